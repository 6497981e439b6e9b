package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/airenas/soulwhisper/internal/pkg/audio"
	"golang.org/x/sync/errgroup"
)

type (
	// Transcriber converts speech to text
	Transcriber interface {
		Transcribe(ctx context.Context, audioPath string) (*api.Transcription, error)
	}

	// EmotionDetector detects emotion, never fails
	EmotionDetector interface {
		Detect(ctx context.Context, audioPath string) *api.Emotion
	}
)

// Coordinator runs transcription and emotion detection in parallel
type Coordinator struct {
	transcriber Transcriber
	detector    EmotionDetector
}

// NewCoordinator creates a pipeline coordinator
func NewCoordinator(transcriber Transcriber, detector EmotionDetector) (*Coordinator, error) {
	if transcriber == nil {
		return nil, fmt.Errorf("no transcriber")
	}
	if detector == nil {
		return nil, fmt.Errorf("no emotion detector")
	}
	return &Coordinator{transcriber: transcriber, detector: detector}, nil
}

// Process runs both analyses on the file. The file is removed before return
func (c *Coordinator) Process(ctx context.Context, audioPath string) (*api.Result, error) {
	start := time.Now()
	res, err := c.process(ctx, audioPath)
	observe(start, err)
	return res, err
}

func (c *Coordinator) process(ctx context.Context, audioPath string) (*api.Result, error) {
	defer func() {
		if err := audio.Remove(audioPath); err != nil {
			goapp.Log.Warn().Err(err).Str("file", audioPath).Msg("can't remove")
		}
	}()

	var tr *api.Transcription
	var em *api.Emotion
	// no errgroup context: the slower branch is not canceled
	eg := &errgroup.Group{}
	eg.Go(func() error {
		var err error
		tr, err = c.transcriber.Transcribe(ctx, audioPath)
		return err
	})
	eg.Go(func() error {
		em = c.detector.Detect(ctx, audioPath)
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, asTranscriptionError(err)
	}
	if em == nil {
		em = api.DefaultEmotion()
	}
	goapp.Log.Info().Int("len", len(tr.Text)).Str("emotion", string(em.Type)).Msg("processed")
	return &api.Result{Text: tr.Text, Emotion: em.Type, Intensity: em.Intensity}, nil
}

// ProcessUpload validates the upload, stages it in dir and processes it
func (c *Coordinator) ProcessUpload(ctx context.Context, dir string, upload *api.AudioUpload) (*api.Result, error) {
	f, err := audio.NewTempFile(dir, upload)
	if err != nil {
		return nil, err
	}
	return c.Process(ctx, f.Path)
}

// Transcribe stages the upload and runs transcription only
func (c *Coordinator) Transcribe(ctx context.Context, dir string, upload *api.AudioUpload) (*api.Transcription, error) {
	f, err := audio.NewTempFile(dir, upload)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Remove() }()
	return c.transcriber.Transcribe(ctx, f.Path)
}

// DetectEmotion stages the upload and runs emotion detection only
func (c *Coordinator) DetectEmotion(ctx context.Context, dir string, upload *api.AudioUpload) (*api.Emotion, error) {
	f, err := audio.NewTempFile(dir, upload)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Remove() }()
	return c.detector.Detect(ctx, f.Path), nil
}

func asTranscriptionError(err error) error {
	var te *api.TranscriptionError
	if errors.As(err, &te) {
		return err
	}
	return api.NewTranscriptionError(err)
}
