package utils

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vgarvardt/gue/v5"
)

// CreateHandler wraps a typed handler into gue.WorkFunc.
// A job failing more than maxErrors times is dropped
func CreateHandler[TM any, SD any](data *SD, hf func(context.Context, *TM, *SD) error, maxErrors int32) gue.WorkFunc {
	return func(ctx context.Context, j *gue.Job) error {
		var m TM
		if err := json.Unmarshal(j.Args, &m); err != nil {
			goapp.Log.Error().Err(err).Str("type", j.Type).Msg("could not unmarshal message, drop")
			return nil
		}
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("got msg")
		if j.ErrorCount > maxErrors {
			goapp.Log.Error().Int32("time", j.ErrorCount).Str("lastError", j.LastError.String).Msg("msg failed, will not retry")
			return nil
		}
		if err := hf(ctx, &m, data); err != nil {
			return fmt.Errorf("can't handle %s: %w", j.Type, err)
		}
		return nil
	}
}
