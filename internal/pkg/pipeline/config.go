package pipeline

import (
	"fmt"
	"time"

	"github.com/airenas/soulwhisper/internal/pkg/audio"
	"github.com/airenas/soulwhisper/internal/pkg/emotion"
	"github.com/airenas/soulwhisper/internal/pkg/xfyun"
	"github.com/spf13/viper"
)

// NewFromConfig creates a coordinator with clients configured from cfg
func NewFromConfig(cfg *viper.Viper) (*Coordinator, error) {
	tr, err := xfyun.NewClient(xfyun.Options{
		URL:          cfg.GetString("xfyun.url"),
		AppID:        cfg.GetString("xfyun.appID"),
		Secret:       cfg.GetString("xfyun.secret"),
		Language:     cfg.GetString("xfyun.language"),
		Duration:     cfg.GetString("xfyun.duration"),
		PollInterval: cfg.GetDuration("xfyun.pollInterval"),
		MaxPolls:     cfg.GetInt("xfyun.maxPolls"),
		Timeout:      cfg.GetDuration("xfyun.timeout"),
	})
	if err != nil {
		return nil, fmt.Errorf("can't init transcriber: %w", err)
	}
	em, err := emotion.NewClient(emotion.Options{
		URL:     cfg.GetString("emotion.url"),
		Key:     cfg.GetString("emotion.key"),
		Model:   cfg.GetString("emotion.model"),
		Timeout: cfg.GetDuration("emotion.timeout"),
	})
	if err != nil {
		return nil, fmt.Errorf("can't init emotion client: %w", err)
	}
	return NewCoordinator(tr, em)
}

// TempDir returns configured staging dir for audio files
func TempDir(cfg *viper.Viper) string {
	res := cfg.GetString("tempDir")
	if res == "" {
		return "temp_audio"
	}
	return res
}

const (
	defaultSweepAge      = time.Hour
	defaultSweepSchedule = "@every 10m"
)

// StartSweeper starts removal of stale files in TempDir(cfg)
func StartSweeper(cfg *viper.Viper) (*audio.Sweeper, error) {
	maxAge, schedule := sweeperConfig(cfg)
	res, err := audio.NewSweeper(TempDir(cfg), maxAge)
	if err != nil {
		return nil, fmt.Errorf("can't init sweeper: %w", err)
	}
	if err := res.Start(schedule); err != nil {
		return nil, err
	}
	return res, nil
}

func sweeperConfig(cfg *viper.Viper) (time.Duration, string) {
	maxAge := cfg.GetDuration("sweeper.maxAge")
	if maxAge <= 0 {
		maxAge = defaultSweepAge
	}
	schedule := cfg.GetString("sweeper.schedule")
	if schedule == "" {
		schedule = defaultSweepSchedule
	}
	return maxAge, schedule
}
