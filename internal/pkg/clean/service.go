package clean

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/utils"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Cleaner removes the async request data: status, request and the uploaded audio
type Cleaner interface {
	Clean(ctx context.Context, ID string) error
}

// Data keeps data required for service work
type Data struct {
	Port    int
	Cleaner Cleaner
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP soulwhisper clean service")
	if err := validate(data); err != nil {
		return err
	}

	return utils.ServeEcho(initRoutes(data), data.Port, 10*time.Second, 10*time.Second)
}

func validate(data *Data) error {
	if data.Cleaner == nil {
		return errors.New("no cleaner")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("soulwhisper_clean", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.DELETE("/delete/:id", deleteRequest(data.Cleaner))
	e.GET("/live", utils.Live)

	utils.LogRoutes(e)
	return e
}

type result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func deleteRequest(cleaner Cleaner) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("delete method")()

		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Wrong ID")
		}
		if err := cleaner.Clean(c.Request().Context(), id); err != nil {
			goapp.Log.Error().Err(err).Str("ID", id).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't delete")
		}
		goapp.Log.Info().Str("ID", id).Msg("deleted")
		return c.JSON(http.StatusOK, result{ID: id, Status: "deleted"})
	}
}
