package intake

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/analytics"
	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/airenas/soulwhisper/internal/pkg/chat"
	"github.com/airenas/soulwhisper/internal/pkg/utils"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type (
	// Pipeline processes staged audio uploads
	Pipeline interface {
		ProcessUpload(ctx context.Context, dir string, upload *api.AudioUpload) (*api.Result, error)
		Transcribe(ctx context.Context, dir string, upload *api.AudioUpload) (*api.Transcription, error)
		DetectEmotion(ctx context.Context, dir string, upload *api.AudioUpload) (*api.Emotion, error)
	}

	// DiarySaver stores the pipeline result
	DiarySaver interface {
		SaveDiary(ctx context.Context, userID string, res *api.Result) (string, error)
	}

	// Chat is a companion conversation
	Chat interface {
		Start(ctx context.Context, userID, diary string) (string, error)
		Send(ctx context.Context, userID, msg string) (string, error)
		End(ctx context.Context, userID string) error
	}

	// Analyzer builds diary reports
	Analyzer interface {
		Analyze(ctx context.Context, userID string, days int) (*analytics.Report, error)
	}
)

// Data keeps data required for service work
type Data struct {
	Port     int
	TempDir  string
	Pipeline Pipeline
	Saver    DiarySaver
	Chat     Chat
	Analyzer Analyzer
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP soulwhisper intake service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	return utils.ServeEcho(initRoutes(data), data.Port, 180*time.Second, 15*time.Minute)
}

func validate(data *Data) error {
	if data.Pipeline == nil {
		return fmt.Errorf("no pipeline")
	}
	if data.Saver == nil {
		return fmt.Errorf("no diary saver")
	}
	if data.Chat == nil {
		return fmt.Errorf("no chat")
	}
	if data.Analyzer == nil {
		return fmt.Errorf("no analyzer")
	}
	if data.TempDir == "" {
		return fmt.Errorf("no temp dir")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("soulwhisper_intake", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/diary/audio", diaryAudio(data))
	e.POST("/process", process(data))
	e.POST("/asr", transcribe(data))
	e.POST("/emotion", detectEmotion(data))
	e.POST("/chat/start", chatStart(data))
	e.POST("/chat/message", chatMessage(data))
	e.POST("/chat/end", chatEnd(data))
	e.GET("/analytics/:user", analyze(data))
	e.GET("/live", utils.Live)

	utils.LogRoutes(e)
	return e
}

type diaryResult struct {
	DiaryID string `json:"diaryId"`
	api.Result
}

func diaryAudio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("diary method")()
		ctx := c.Request().Context()
		userID := takeUser(c)
		if userID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no "+api.PrmUser)
		}
		upload, cf, err := takeUpload(c)
		if err != nil {
			return err
		}
		defer cf()

		res, err := data.Pipeline.ProcessUpload(ctx, data.TempDir, upload)
		if err != nil {
			return toHTTPError(err)
		}
		id, err := data.Saver.SaveDiary(ctx, userID, res)
		if err != nil {
			return toHTTPError(err)
		}
		goapp.Log.Info().Str("ID", id).Str("user", goapp.Sanitize(userID)).Msg("diary saved")
		return c.JSON(http.StatusOK, diaryResult{DiaryID: id, Result: *res})
	}
}

func process(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("process method")()
		upload, cf, err := takeUpload(c)
		if err != nil {
			return err
		}
		defer cf()
		res, err := data.Pipeline.ProcessUpload(c.Request().Context(), data.TempDir, upload)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func transcribe(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("asr method")()
		upload, cf, err := takeUpload(c)
		if err != nil {
			return err
		}
		defer cf()
		res, err := data.Pipeline.Transcribe(c.Request().Context(), data.TempDir, upload)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

type emotionResult struct {
	Emotion *api.Emotion `json:"emotion"`
}

func detectEmotion(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("emotion method")()
		upload, cf, err := takeUpload(c)
		if err != nil {
			return err
		}
		defer cf()
		res, err := data.Pipeline.DetectEmotion(c.Request().Context(), data.TempDir, upload)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, emotionResult{Emotion: res})
	}
}

type chatInput struct {
	UserID  string `json:"user_id"`
	Diary   string `json:"diary_content"`
	Message string `json:"message"`
}

type chatResult struct {
	SessionID string `json:"session_id,omitempty"`
	Response  string `json:"response,omitempty"`
	Message   string `json:"message,omitempty"`
}

func chatStart(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("chat start method")()
		inp, err := takeChatInput(c)
		if err != nil {
			return err
		}
		res, err := data.Chat.Start(c.Request().Context(), inp.UserID, inp.Diary)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, chatResult{SessionID: inp.UserID, Response: res})
	}
}

func chatMessage(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("chat message method")()
		inp, err := takeChatInput(c)
		if err != nil {
			return err
		}
		res, err := data.Chat.Send(c.Request().Context(), inp.UserID, inp.Message)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, chatResult{Response: res})
	}
}

func chatEnd(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		inp, err := takeChatInput(c)
		if err != nil {
			return err
		}
		if err := data.Chat.End(c.Request().Context(), inp.UserID); err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, chatResult{Message: "Chat session has ended"})
	}
}

func analyze(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("analytics method")()
		days := analytics.DefaultDays
		if s := c.QueryParam("days"); s != "" {
			var err error
			days, err = strconv.Atoi(s)
			if err != nil || days <= 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "wrong days")
			}
		}
		res, err := data.Analyzer.Analyze(c.Request().Context(), c.Param("user"), days)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func takeUser(c echo.Context) string {
	res := strings.TrimSpace(c.FormValue(api.PrmUser))
	if res == "" {
		res = strings.TrimSpace(c.Request().Header.Get(api.HeaderUser))
	}
	return res
}

func takeChatInput(c echo.Context) (*chatInput, error) {
	var res chatInput
	if err := c.Bind(&res); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "wrong input")
	}
	if res.UserID == "" {
		res.UserID = strings.TrimSpace(c.Request().Header.Get(api.HeaderUser))
	}
	return &res, nil
}

// takeUpload returns the audio file of the multipart form and a cleanup func
func takeUpload(c echo.Context) (*api.AudioUpload, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
	}
	h := takeFirst(form.File[api.PrmFile])
	if h == nil {
		_ = form.RemoveAll()
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "no "+api.PrmFile)
	}
	f, err := h.Open()
	if err != nil {
		_ = form.RemoveAll()
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "can't read "+api.PrmFile)
	}
	return &api.AudioUpload{Name: h.Filename, Size: h.Size, Reader: f}, func() {
		_ = f.Close()
		_ = form.RemoveAll()
	}, nil
}

func takeFirst(a []*multipart.FileHeader) *multipart.FileHeader {
	if len(a) > 0 {
		return a[0]
	}
	return nil
}

func toHTTPError(err error) error {
	var ve *api.ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Msg)
	}
	var te *api.TranscriptionError
	if errors.As(err, &te) {
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusBadGateway, "transcription failed")
	}
	var pe *api.PersistenceError
	if errors.As(err, &pe) {
		goapp.Log.Error().Err(err).Send()
		return echo.NewHTTPError(http.StatusInternalServerError, "can't save diary")
	}
	if errors.Is(err, chat.ErrNoSession) {
		return echo.NewHTTPError(http.StatusNotFound,
			"Chat session does not exist or has expired, please restart the conversation")
	}
	goapp.Log.Error().Err(err).Send()
	return echo.NewHTTPError(http.StatusInternalServerError)
}
