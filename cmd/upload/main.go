package main

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/postgres"
	"github.com/airenas/soulwhisper/internal/pkg/upload"
	"github.com/airenas/soulwhisper/internal/pkg/utils"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

func main() {
	goapp.StartWithDefault()

	utils.PrintBanner("upload", version)

	cfg := goapp.Config
	data := &upload.Data{}
	data.Port = cfg.GetInt("port")
	data.RetrySecret = cfg.GetString("retrySecret")

	ctx := context.Background()

	dbPool, err := postgres.NewPool(ctx, cfg.GetString("db.url"), cfg.GetBool("db.trace"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	data.DB, err = postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	data.Saver, err = utils.NewFiler(ctx, cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init file saver")
	}

	gc, err := gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}
	data.MsgSender, err = postgres.NewSender(gc)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	if err := upload.StartWebServer(data); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

var (
	version = "DEV"
)
