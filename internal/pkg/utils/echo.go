package utils

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/labstack/echo/v4"
)

// ServeEcho serves e on port until a termination signal, in-flight requests are drained
func ServeEcho(e *echo.Echo, port int, readTimeout, writeTimeout time.Duration) error {
	e.Server.Addr = ":" + strconv.Itoa(port)
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = readTimeout
	e.Server.WriteTimeout = writeTimeout

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

// LogRoutes writes registered routes to the log
func LogRoutes(e *echo.Echo) {
	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
}

// Live is the liveness handler
func Live(c echo.Context) error {
	return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
}
