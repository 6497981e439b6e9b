package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/airenas/soulwhisper/internal/pkg/audio"
	"github.com/airenas/soulwhisper/internal/pkg/messages"
	"github.com/airenas/soulwhisper/internal/pkg/persistence"
	"github.com/airenas/soulwhisper/internal/pkg/status"
	"github.com/airenas/soulwhisper/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// FileSaver provides save file functionality
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB saves requests
type DB interface {
	InsertRequest(ctx context.Context, req *persistence.ReqData) error
	InsertStatus(ctx context.Context, req *persistence.Status) error
	LoadRequest(ctx context.Context, id string) (*persistence.ReqData, error)
	LoadStatus(ctx context.Context, id string) (*persistence.Status, error)
	UpdateStatus(ctx context.Context, item *persistence.Status) error
}

// Data keeps data required for service work
type Data struct {
	Port        int
	Saver       FileSaver
	DB          DB
	MsgSender   MsgSender
	RetrySecret string
}

const requestIDHeader = "x-doorman-requestid"

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP soulwhisper upload service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	return utils.ServeEcho(initRoutes(data), data.Port, 180*time.Second, 30*time.Second)
}

func validate(data *Data) error {
	if data.Saver == nil {
		return errors.New("no file saver")
	}
	if data.DB == nil {
		return errors.New("no DB")
	}
	if data.MsgSender == nil {
		return errors.New("no msg sender")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("soulwhisper_upload", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/upload", upload(data))
	if data.RetrySecret != "" {
		e.POST(fmt.Sprintf("/retry/%s/:id", data.RetrySecret), retry(data))
	}
	e.GET("/live", utils.Live)

	utils.LogRoutes(e)
	return e
}

type result struct {
	ID string `json:"id"`
}

func upload(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("upload method")()
		ctx := c.Request().Context()

		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
		}
		defer cleanFiles(form)
		if err := validateFormParams(form); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		userID := strings.TrimSpace(takeFirst(form.Value[api.PrmUser], ""))
		if userID == "" {
			userID = strings.TrimSpace(c.Request().Header.Get(api.HeaderUser))
		}
		if userID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no "+api.PrmUser)
		}

		fHeader := takeFirst(form.File[api.PrmFile], nil)
		fileName, err := validateFile(fHeader)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		file, err := fHeader.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "can't read file")
		}
		defer file.Close()

		rd := persistence.ReqData{}
		rd.ID = uuid.New().String()
		rd.UserID = userID
		rd.FileName = fileName
		rd.Created = time.Now()
		rd.RequestID = extractRequestID(c.Request().Header)
		goapp.Log.Info().Str("ID", rd.ID).Str("requestID", rd.RequestID).Msg("request info")

		if err := data.DB.InsertRequest(ctx, &rd); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if err := data.DB.InsertStatus(ctx, &persistence.Status{ID: rd.ID, Status: status.Uploaded.String(),
			Created: time.Now()}); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if err := data.Saver.SaveFile(ctx, rd.ID+"/"+rd.FileName, file, fHeader.Size); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if err := data.MsgSender.SendMessage(ctx, newDiaryMessage(&rd), messages.Diary); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, result{ID: rd.ID})
	}
}

// retry resets the status and enqueues the request again
func retry(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("retry method")()
		ctx := c.Request().Context()
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		st, err := data.DB.LoadStatus(ctx, id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if st == nil {
			return echo.NewHTTPError(http.StatusNotFound, "No ID")
		}
		if st.DiaryID.Valid {
			goapp.Log.Warn().Str("ID", id).Str("diary", st.DiaryID.String).Msg("retry of a saved diary")
			return echo.NewHTTPError(http.StatusConflict, "Diary saved already")
		}
		rd, err := data.DB.LoadRequest(ctx, id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		st.Status = status.Uploaded.String()
		st.Error = utils.NullStr("")
		st.ErrorCode = utils.NullStr("")
		if err := data.DB.UpdateStatus(ctx, st); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if err := data.MsgSender.SendMessage(ctx, newDiaryMessage(rd), messages.Diary); err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, result{ID: id})
	}
}

func newDiaryMessage(rd *persistence.ReqData) *messages.DiaryMessage {
	return &messages.DiaryMessage{QueueMessage: amessages.QueueMessage{ID: rd.ID}, UserID: rd.UserID,
		RequestID: rd.RequestID}
}

func takeFirst[K interface{}](a []K, d K) K {
	if len(a) > 0 {
		return a[0]
	}
	return d
}

func extractRequestID(header http.Header) string {
	return header.Get(requestIDHeader)
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		_ = f.RemoveAll()
	}
}

func validateFormParams(form *multipart.Form) error {
	for k := range form.Value {
		if k != api.PrmUser {
			return errors.Errorf("unknown parameter '%s'", k)
		}
	}
	if len(form.File[api.PrmFile]) == 0 {
		return errors.Errorf("no form file parameter '%s'", api.PrmFile)
	}
	for k := range form.File {
		if k != api.PrmFile {
			return errors.Errorf("unexpected form file parameters '%v'", k)
		}
	}
	if len(form.File[api.PrmFile]) > 1 {
		return errors.New("only one file is allowed")
	}
	return nil
}

func validateFile(h *multipart.FileHeader) (string, error) {
	if h == nil {
		return "", errors.New("no file")
	}
	if err := audio.Validate(&api.AudioUpload{Name: h.Filename, Size: h.Size}); err != nil {
		return "", err
	}
	fn, err := utils.MakeValidateFileName("", h.Filename)
	if err != nil {
		return "", errors.Wrapf(err, "wrong file name: %s", h.Filename)
	}
	return fn, nil
}
