package utils

import (
	"net/http"
	"strconv"
	"time"

	"github.com/airenas/go-app/pkg/goapp"

	_ "net/http/pprof"
)

// RunPerfEndpoint serves pprof at debug.port, blocks
func RunPerfEndpoint() {
	port := goapp.Config.GetInt("debug.port")
	if port <= 0 {
		goapp.Log.Info().Msgf("no debug.port provided - skip perf")
		return
	}
	goapp.Log.Info().Msgf("Starting Debug http endpoint at [::]:%d", port)
	srv := &http.Server{Addr: ":" + strconv.Itoa(port), ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		goapp.Log.Error().Err(err).Msg("can't start Debug endpoint")
	}
}
