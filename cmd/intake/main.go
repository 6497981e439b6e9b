package main

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/analytics"
	"github.com/airenas/soulwhisper/internal/pkg/chat"
	"github.com/airenas/soulwhisper/internal/pkg/intake"
	"github.com/airenas/soulwhisper/internal/pkg/pipeline"
	"github.com/airenas/soulwhisper/internal/pkg/postgres"
	"github.com/airenas/soulwhisper/internal/pkg/utils"
	"github.com/spf13/viper"
)

func main() {
	goapp.StartWithDefault()

	utils.PrintBanner("intake", version)

	cfg := goapp.Config
	data := &intake.Data{}
	data.Port = cfg.GetInt("port")
	data.TempDir = pipeline.TempDir(cfg)

	ctx := context.Background()

	dbPool, err := postgres.NewPool(ctx, cfg.GetString("db.url"), cfg.GetBool("db.trace"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.Saver = db

	data.Pipeline, err = pipeline.NewFromConfig(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init pipeline")
	}

	data.Chat, err = newChat(ctx, cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init chat")
	}

	data.Analyzer, err = analytics.NewAnalyzer(db)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init analyzer")
	}

	sweeper, err := pipeline.StartSweeper(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start sweeper")
	}
	defer sweeper.Stop()

	go utils.RunPerfEndpoint()

	if err := intake.StartWebServer(data); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

func newChat(ctx context.Context, cfg *viper.Viper) (*chat.Service, error) {
	llm, err := chat.NewClient(chat.Options{URL: cfg.GetString("chat.url"), Key: cfg.GetString("chat.key"),
		Model: cfg.GetString("chat.model"), Timeout: cfg.GetDuration("chat.timeout")})
	if err != nil {
		return nil, err
	}
	var store chat.Store
	if url := cfg.GetString("chat.redis.url"); url != "" {
		store, err = chat.NewRedisStore(ctx, url, cfg.GetDuration("chat.redis.ttl"))
		if err != nil {
			return nil, err
		}
	} else {
		goapp.Log.Warn().Msg("no chat.redis.url, sessions are kept in memory")
		store = chat.NewMemoryStore()
	}
	return chat.NewService(llm, store)
}

var (
	version = "DEV"
)
