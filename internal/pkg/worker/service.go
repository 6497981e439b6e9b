package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/airenas/soulwhisper/internal/pkg/audio"
	"github.com/airenas/soulwhisper/internal/pkg/messages"
	"github.com/airenas/soulwhisper/internal/pkg/persistence"
	"github.com/airenas/soulwhisper/internal/pkg/status"
	"github.com/airenas/soulwhisper/internal/pkg/utils"
	"github.com/airenas/soulwhisper/internal/pkg/utils/handler"
	"github.com/vgarvardt/gue/v5"
)

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB provides persistence functionality
type DB interface {
	LoadRequest(ctx context.Context, id string) (*persistence.ReqData, error)
	LoadStatus(ctx context.Context, id string) (*persistence.Status, error)
	UpdateStatus(context.Context, *persistence.Status) error
	SaveDiary(ctx context.Context, userID string, res *api.Result) (string, error)
}

// Filer retrieves files
type Filer interface {
	LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error)
}

// Pipeline processes a local audio file, the file is removed after the call
type Pipeline interface {
	Process(ctx context.Context, audioPath string) (*api.Result, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	MsgSender   MsgSender
	DB          DB
	Filer       Filer
	Pipeline    Pipeline
	TempDir     string
	Testing     bool
}

// StartWorkerService starts the event queue listener service to listen for events
// returns channel for tracking if all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}

	wm := gue.WorkMap{
		messages.Diary: handler.Create(data, handleDiary, handler.DefaultOpts[messages.DiaryMessage]().
			WithFailure(sendFailure(data.MsgSender)).
			WithTimeout(time.Minute*30).WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
		messages.Fail: handler.Create(data, handleFailure, handler.DefaultOpts[messages.DiaryMessage]().
			WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Work),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("diary-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func handleDiary(ctx context.Context, m *messages.DiaryMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling diary")
	st, err := data.DB.LoadStatus(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load status: %w", err)
	}
	if st == nil {
		goapp.Log.Warn().Str("ID", m.ID).Msg("no status, drop")
		return nil
	}
	if status.From(st.Status) == status.Completed {
		goapp.Log.Info().Str("ID", m.ID).Msg("completed already, skip")
		return nil
	}
	if st.DiaryID.Valid {
		goapp.Log.Warn().Str("ID", m.ID).Str("diary", st.DiaryID.String).Msg("diary saved already, skip")
		return nil
	}
	req, err := data.DB.LoadRequest(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load request: %w", err)
	}
	if status.From(st.Status) != status.Working {
		st.Status = status.Working.String()
		if err := updateStatus(ctx, st, data); err != nil {
			return err
		}
	}

	path, err := stageFile(ctx, req, data)
	if err != nil {
		if utils.IsNotFound(err) {
			return finishWithError(ctx, st, status.ECNotFound, err, data)
		}
		var ve *api.ValidationError
		if errors.As(err, &ve) {
			return finishWithError(ctx, st, status.ECServiceError, err, data)
		}
		return err
	}
	res, err := data.Pipeline.Process(ctx, path)
	if err != nil {
		var te *api.TranscriptionError
		if errors.As(err, &te) {
			return finishWithError(ctx, st, status.ECTranscriptionError, err, data)
		}
		return fmt.Errorf("can't process: %w", err)
	}
	userID := req.UserID
	if userID == "" {
		userID = m.UserID
	}
	diaryID, err := data.DB.SaveDiary(ctx, userID, res)
	if err != nil {
		var pe *api.PersistenceError
		if errors.As(err, &pe) {
			return finishWithError(ctx, st, status.ECPersistenceError, err, data)
		}
		return fmt.Errorf("can't save diary: %w", err)
	}
	goapp.Log.Info().Str("ID", m.ID).Str("diary", diaryID).Msg("diary saved")
	st.Status = status.Completed.String()
	st.DiaryID = utils.NullStr(diaryID)
	st.Text = utils.NullStr(res.Text)
	st.Emotion = utils.NullStr(string(res.Emotion))
	st.Intensity = utils.NullInt(res.Intensity)
	return updateStatus(ctx, st, data)
}

func stageFile(ctx context.Context, req *persistence.ReqData, data *ServiceData) (string, error) {
	name, err := utils.MakeValidateFileName(req.ID, req.FileName)
	if err != nil {
		return "", api.NewValidationError(err.Error())
	}
	f, err := data.Filer.LoadFile(ctx, name)
	if err != nil {
		return "", fmt.Errorf("can't load file: %w", err)
	}
	defer f.Close()
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return "", fmt.Errorf("can't get file size: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("can't rewind file: %w", err)
	}
	tf, err := audio.NewTempFile(data.TempDir, &api.AudioUpload{Name: req.FileName, Size: size, Reader: f})
	if err != nil {
		return "", err
	}
	return tf.Path, nil
}

func sendFailure(sender MsgSender) handler.FailureFunc[messages.DiaryMessage] {
	return func(ctx context.Context, m *messages.DiaryMessage, err error) error {
		msg := messages.NewMessageFrom(m)
		msg.Error = err.Error()
		if err := sender.SendMessage(ctx, msg, messages.Fail); err != nil {
			return fmt.Errorf("can't send msg: %w", err)
		}
		return nil
	}
}

func handleFailure(ctx context.Context, m *messages.DiaryMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling failure")
	st, err := data.DB.LoadStatus(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load status: %w", err)
	}
	if st == nil {
		goapp.Log.Warn().Str("ID", m.ID).Msg("no status, drop")
		return nil
	}
	if st.ErrorCode.Valid {
		goapp.Log.Info().Str("ID", m.ID).Msg("error set - ignore")
		return nil
	}
	return finishWithError(ctx, st, status.ECServiceError, errors.New(m.Error), data)
}

// finishWithError marks the job as failed, the job is not retried
func finishWithError(ctx context.Context, st *persistence.Status, code status.ErrCode, err error,
	data *ServiceData) error {
	goapp.Log.Warn().Err(err).Str("ID", st.ID).Str("code", code.String()).Msg("job failed")
	st.Status = status.Completed.String()
	st.ErrorCode = utils.NullStr(code.String())
	st.Error = utils.NullStr(err.Error())
	return updateStatus(ctx, st, data)
}

func updateStatus(ctx context.Context, st *persistence.Status, data *ServiceData) error {
	if err := data.DB.UpdateStatus(ctx, st); err != nil {
		return fmt.Errorf("can't save status: %w", err)
	}
	goapp.Log.Info().Str("ID", st.ID).Str("status", st.Status).Msg("status updated")
	err := data.MsgSender.SendMessage(ctx, &messages.DiaryMessage{
		QueueMessage: amessages.QueueMessage{ID: st.ID}}, messages.StatusChange)
	if err != nil {
		return fmt.Errorf("can't send msg: %w", err)
	}
	return nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.Filer == nil {
		return fmt.Errorf("no Filer")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Pipeline == nil {
		return fmt.Errorf("no Pipeline")
	}
	if data.TempDir == "" {
		return fmt.Errorf("no temp dir")
	}
	return nil
}
