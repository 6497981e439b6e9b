package utils

import (
	"context"
	"fmt"

	"github.com/airenas/async-api/pkg/miniofs"
	"github.com/spf13/viper"
)

// NewFiler creates the minio filer configured by the filer.* keys
func NewFiler(ctx context.Context, cfg *viper.Viper) (*miniofs.Filer, error) {
	opt := miniofs.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key"),
		Secure: cfg.GetBool("filer.https")}
	if opt.Bucket == "" {
		return nil, fmt.Errorf("no filer.bucket")
	}
	res, err := miniofs.NewFiler(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("can't init filer: %w", err)
	}
	return res, nil
}
