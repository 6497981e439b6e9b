package statusservice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/airenas/soulwhisper/internal/pkg/persistence"
	"github.com/airenas/soulwhisper/internal/pkg/status"
	"github.com/airenas/soulwhisper/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DB loads status info
type DB interface {
	LoadStatus(ctx context.Context, id string) (*persistence.Status, error)
}

// WSConnHandler WwbSocketConnection wrapper
type WSConnHandler interface {
	HandleConnection(WsConn) error
	GetConnections(id string) ([]WsConn, bool)
}

// Data keeps data required for service work
type Data struct {
	Port      int
	DB        DB
	WSHandler WSConnHandler
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP soulwhisper status service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	return utils.ServeEcho(initRoutes(data), data.Port, 10*time.Second, 10*time.Second)
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("soulwhisper_status", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/status/:id", statusHandler(data))
	e.GET("/live", utils.Live)
	e.GET("/subscribe", subscribeHandler(data))

	utils.LogRoutes(e)
	return e
}

type result struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ErrorCode string `json:"errorCode,omitempty"`
	Error     string `json:"error,omitempty"`
	DiaryID   string `json:"diaryId,omitempty"`
	Text      string `json:"text,omitempty"`
	Emotion   string `json:"emotion_type,omitempty"`
	Intensity int    `json:"emotion_intensity,omitempty"`
}

func statusHandler(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("status method")()

		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		st, err := data.DB.LoadStatus(c.Request().Context(), id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Service error")
		}
		return c.JSON(http.StatusOK, mapStatus(id, st))
	}
}

// mapStatus returns NOT_FOUND status for a missing record
func mapStatus(id string, st *persistence.Status) *result {
	if st == nil {
		nf := status.ECNotFound.String()
		return &result{ID: id, Status: nf, Error: nf, ErrorCode: nf}
	}
	return &result{ID: st.ID, Status: st.Status, Error: utils.StrOf(st.Error),
		ErrorCode: utils.StrOf(st.ErrorCode), DiaryID: utils.StrOf(st.DiaryID),
		Text: utils.StrOf(st.Text), Emotion: utils.StrOf(st.Emotion),
		Intensity: utils.IntOf(st.Intensity)}
}

func validate(data *Data) error {
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.WSHandler == nil {
		return fmt.Errorf("no WSHandler")
	}
	return nil
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

func subscribeHandler(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return err
		}
		defer ws.Close()

		return data.WSHandler.HandleConnection(ws)
	}
}
