package mocks

import (
	"context"
	"io"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/airenas/soulwhisper/internal/pkg/chat"
	"github.com/airenas/soulwhisper/internal/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// Filer is minio mock
type Filer struct{ mock.Mock }

// SaveFile func mock
func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, size int64) error {
	args := m.Called(ctx, name, r, size)
	return args.Error(0)
}

// LoadFile func mock
func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

// InsertRequest func mock
func (m *DB) InsertRequest(ctx context.Context, req *persistence.ReqData) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// InsertStatus func mock
func (m *DB) InsertStatus(ctx context.Context, req *persistence.Status) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// LoadRequest func mock
func (m *DB) LoadRequest(ctx context.Context, id string) (*persistence.ReqData, error) {
	args := m.Called(ctx, id)
	return to[*persistence.ReqData](args.Get(0)), args.Error(1)
}

// LoadStatus func mock
func (m *DB) LoadStatus(ctx context.Context, id string) (*persistence.Status, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Status](args.Get(0)), args.Error(1)
}

// UpdateStatus func mock
func (m *DB) UpdateStatus(ctx context.Context, data *persistence.Status) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

// SaveDiary func mock
func (m *DB) SaveDiary(ctx context.Context, userID string, res *api.Result) (string, error) {
	args := m.Called(ctx, userID, res)
	return args.String(0), args.Error(1)
}

// LoadDiaries func mock
func (m *DB) LoadDiaries(ctx context.Context, userID string, since time.Time) ([]*persistence.Diary, error) {
	args := m.Called(ctx, userID, since)
	return to[[]*persistence.Diary](args.Get(0)), args.Error(1)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

// SendMessage func mock
func (m *Sender) SendMessage(ctx context.Context, msg amessages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Transcriber is transcription client mock
type Transcriber struct{ mock.Mock }

// Transcribe func mock
func (m *Transcriber) Transcribe(ctx context.Context, audioPath string) (*api.Transcription, error) {
	args := m.Called(ctx, audioPath)
	return to[*api.Transcription](args.Get(0)), args.Error(1)
}

// EmotionDetector is emotion client mock
type EmotionDetector struct{ mock.Mock }

// Detect func mock
func (m *EmotionDetector) Detect(ctx context.Context, audioPath string) *api.Emotion {
	args := m.Called(ctx, audioPath)
	return to[*api.Emotion](args.Get(0))
}

// Pipeline is audio pipeline mock
type Pipeline struct{ mock.Mock }

// Process func mock
func (m *Pipeline) Process(ctx context.Context, audioPath string) (*api.Result, error) {
	args := m.Called(ctx, audioPath)
	return to[*api.Result](args.Get(0)), args.Error(1)
}

// ProcessUpload func mock
func (m *Pipeline) ProcessUpload(ctx context.Context, dir string, upload *api.AudioUpload) (*api.Result, error) {
	args := m.Called(ctx, dir, upload)
	return to[*api.Result](args.Get(0)), args.Error(1)
}

// Transcribe func mock
func (m *Pipeline) Transcribe(ctx context.Context, dir string, upload *api.AudioUpload) (*api.Transcription, error) {
	args := m.Called(ctx, dir, upload)
	return to[*api.Transcription](args.Get(0)), args.Error(1)
}

// DetectEmotion func mock
func (m *Pipeline) DetectEmotion(ctx context.Context, dir string, upload *api.AudioUpload) (*api.Emotion, error) {
	args := m.Called(ctx, dir, upload)
	return to[*api.Emotion](args.Get(0)), args.Error(1)
}

// LLM is chat completion mock
type LLM struct{ mock.Mock }

// Complete func mock
func (m *LLM) Complete(ctx context.Context, msgs []chat.Message) (string, error) {
	args := m.Called(ctx, msgs)
	return args.String(0), args.Error(1)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
