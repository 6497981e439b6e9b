package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/robfig/cron/v3"
)

// Sweeper removes temp audio files left behind by crashed requests
type Sweeper struct {
	dir    string
	maxAge time.Duration
	cron   *cron.Cron
	now    func() time.Time
}

// NewSweeper creates sweeper for dir
func NewSweeper(dir string, maxAge time.Duration) (*Sweeper, error) {
	if dir == "" {
		return nil, fmt.Errorf("no dir")
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("wrong max age %v", maxAge)
	}
	goapp.Log.Info().Str("dir", dir).Dur("maxAge", maxAge).Msg("cfg: sweeper")
	return &Sweeper{dir: dir, maxAge: maxAge, now: time.Now}, nil
}

// Start schedules sweeping by cron spec, e.g. "@every 10m"
func (s *Sweeper) Start(schedule string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.Sweep(); err != nil {
			goapp.Log.Error().Err(err).Msg("sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("wrong schedule '%s': %w", schedule, err)
	}
	s.cron.Start()
	goapp.Log.Info().Str("schedule", schedule).Msg("started sweeper")
	return nil
}

// Stop waits for a running sweep to finish
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep removes old audio files, returns count of removed files
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("can't read dir: %w", err)
	}
	before := s.now().Add(-s.maxAge)
	res := 0
	for _, e := range entries {
		if e.IsDir() || !SupportAudioExt(Ext(e.Name())) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed meanwhile
		}
		if info.ModTime().After(before) {
			continue
		}
		if err := Remove(filepath.Join(s.dir, e.Name())); err != nil {
			goapp.Log.Warn().Err(err).Send()
			continue
		}
		res++
	}
	if res > 0 {
		goapp.Log.Info().Int("files", res).Str("dir", s.dir).Msg("swept")
	}
	return res, nil
}
