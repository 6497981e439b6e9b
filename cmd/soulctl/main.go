package main

import (
	"os"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/joho/godotenv"
)

var (
	version = "DEV"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		goapp.Log.Warn().Err(err).Msg("can't load .env")
	}
	if err := newRootCmd(newPipeline).Execute(); err != nil {
		os.Exit(1)
	}
}
