package main

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/playback"
	"github.com/airenas/soulwhisper/internal/pkg/postgres"
	"github.com/airenas/soulwhisper/internal/pkg/utils"
)

func main() {
	goapp.StartWithDefault()

	utils.PrintBanner("playback", version)

	cfg := goapp.Config
	data := &playback.Data{}
	data.Port = cfg.GetInt("port")

	ctx := context.Background()

	dbPool, err := postgres.NewPool(ctx, cfg.GetString("db.url"), cfg.GetBool("db.trace"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	data.Requests, err = postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	data.Reader, err = utils.NewFiler(ctx, cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init file reader")
	}

	if err := playback.StartWebServer(data); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

var (
	version = "DEV"
)
