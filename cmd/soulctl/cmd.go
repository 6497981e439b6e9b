package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/airenas/soulwhisper/internal/pkg/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Pipeline runs analyses on a local audio file
type Pipeline interface {
	ProcessUpload(ctx context.Context, dir string, upload *api.AudioUpload) (*api.Result, error)
	Transcribe(ctx context.Context, dir string, upload *api.AudioUpload) (*api.Transcription, error)
	DetectEmotion(ctx context.Context, dir string, upload *api.AudioUpload) (*api.Emotion, error)
}

type pipelineFactory func(cfg *viper.Viper) (Pipeline, error)

func newPipeline(cfg *viper.Viper) (Pipeline, error) {
	return pipeline.NewFromConfig(cfg)
}

type options struct {
	config  string
	timeout time.Duration
}

func newRootCmd(factory pipelineFactory) *cobra.Command {
	opt := &options{}
	res := &cobra.Command{
		Use:          "soulctl",
		Short:        "Runs the soulwhisper audio pipeline against a local file",
		Version:      version,
		SilenceUsage: true,
	}
	res.PersistentFlags().StringVarP(&opt.config, "config", "c", "", "config yaml file")
	res.PersistentFlags().DurationVar(&opt.timeout, "timeout", 10*time.Minute, "max processing time")

	res.AddCommand(newFileCmd(opt, factory, "transcribe", "Transcribe speech in the file",
		func(ctx context.Context, p Pipeline, dir string, up *api.AudioUpload) (any, error) {
			return p.Transcribe(ctx, dir, up)
		}))
	res.AddCommand(newFileCmd(opt, factory, "emotion", "Detect emotion of the speaker",
		func(ctx context.Context, p Pipeline, dir string, up *api.AudioUpload) (any, error) {
			return p.DetectEmotion(ctx, dir, up)
		}))
	res.AddCommand(newFileCmd(opt, factory, "process", "Transcribe and detect emotion in parallel",
		func(ctx context.Context, p Pipeline, dir string, up *api.AudioUpload) (any, error) {
			return p.ProcessUpload(ctx, dir, up)
		}))
	return res
}

type runFunc func(ctx context.Context, p Pipeline, dir string, up *api.AudioUpload) (any, error)

func newFileCmd(opt *options, factory pipelineFactory, name, short string, run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <audio file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opt.config)
			if err != nil {
				return err
			}
			p, err := factory(cfg)
			if err != nil {
				return fmt.Errorf("can't init pipeline: %w", err)
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("can't open %s: %w", args[0], err)
			}
			defer f.Close()
			st, err := f.Stat()
			if err != nil {
				return fmt.Errorf("can't stat %s: %w", args[0], err)
			}
			dir := pipeline.TempDir(cfg)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("can't create %s: %w", dir, err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opt.timeout)
			defer cancel()
			res, err := run(ctx, p, dir, &api.AudioUpload{Name: filepath.Base(args[0]), Size: st.Size(), Reader: f})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func loadConfig(file string) (*viper.Viper, error) {
	res := viper.New()
	res.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	res.AutomaticEnv()
	if file == "" {
		return res, nil
	}
	res.SetConfigFile(file)
	if err := res.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("can't read config %s: %w", file, err)
	}
	return res, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
