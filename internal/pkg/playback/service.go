package playback

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/persistence"
	"github.com/airenas/soulwhisper/internal/pkg/utils"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// FileReader loads file by name
type FileReader interface {
	LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error)
}

// RequestLoader provides the uploaded file name by request ID
type RequestLoader interface {
	LoadRequest(ctx context.Context, id string) (*persistence.ReqData, error)
}

// Data keeps data required for service work
type Data struct {
	Port     int
	Reader   FileReader
	Requests RequestLoader
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting soulwhisper audio playback service")

	if err := validate(data); err != nil {
		return err
	}

	return utils.ServeEcho(initRoutes(data), data.Port, 10*time.Second, 5*time.Minute)
}

func validate(data *Data) error {
	if data.Reader == nil {
		return errors.New("no file reader")
	}
	if data.Requests == nil {
		return errors.New("no request loader")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("soulwhisper_playback", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/audio/:id", serveAudio(data))
	e.HEAD("/audio/:id", serveAudio(data))
	e.GET("/live", utils.Live)

	utils.LogRoutes(e)
	return e
}

func serveAudio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("audio method")()

		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Wrong ID")
		}
		ctx := c.Request().Context()
		req, err := data.Requests.LoadRequest(ctx, id)
		if err != nil {
			goapp.Log.Warn().Err(err).Str("ID", id).Msg("no request")
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		name, err := url.JoinPath(id, req.FileName)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusBadRequest, "Wrong name")
		}

		goapp.Log.Info().Str("file", name).Msg("loading")
		file, err := data.Reader.LoadFile(ctx, name)
		if err != nil {
			return fileError(err, "Can't get file")
		}
		defer file.Close()

		modTime := req.Created
		if st, ok := file.(interface{ Stat() (fs.FileInfo, error) }); ok {
			info, err := st.Stat()
			if err != nil {
				return fileError(err, "Can't get file stat")
			}
			modTime = info.ModTime()
		}

		w := c.Response()
		w.Header().Set("Content-Disposition", "inline; filename="+filepath.Base(req.FileName))
		http.ServeContent(w, c.Request(), req.FileName, modTime, file)
		return nil
	}
}

func fileError(err error, msg string) error {
	goapp.Log.Error().Err(err).Send()
	if utils.IsNotFound(err) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}
