package handler

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vgarvardt/gue/v5"
)

// FailureFunc is called once the job is out of retries
type FailureFunc[TM any] func(ctx context.Context, m *TM, err error) error

// Opts configure the job handler
type Opts[TM any] struct {
	backoff    gue.Backoff
	timeout    time.Duration
	maxRetries int32
	failure    FailureFunc[TM]
}

// Create wraps a typed handler into gue.WorkFunc with retries and a failure callback
func Create[TM any, SD any](data *SD, hf func(context.Context, *TM, *SD) error, opts *Opts[TM]) gue.WorkFunc {
	if opts == nil {
		goapp.Log.Panic().Msg("no opts provided")
	}
	return func(ctx context.Context, j *gue.Job) error {
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("got msg")

		var m TM
		if err := json.Unmarshal(j.Args, &m); err != nil {
			goapp.Log.Error().Err(err).Str("type", j.Type).Msg("could not unmarshal message, drop")
			return nil
		}
		err := invoke(ctx, opts.timeout, func(ctx context.Context) error { return hf(ctx, &m, data) })
		if err == nil {
			return nil
		}
		goapp.Log.Warn().Err(err).Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("fail")
		if j.ErrorCount >= opts.maxRetries {
			return onFailure(ctx, opts, &m, err, j)
		}
		delay := opts.backoff(int(j.ErrorCount + 1))
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Dur("after", delay).Msg("retry after")
		return gue.ErrRescheduleJobIn(delay, err.Error())
	}
}

func invoke(ctx context.Context, timeout time.Duration, f func(context.Context) error) error {
	wrkCtx, cf := context.WithTimeout(ctx, timeout)
	defer cf()
	return f(wrkCtx)
}

func onFailure[TM any](ctx context.Context, opts *Opts[TM], m *TM, err error, j *gue.Job) error {
	if opts.failure == nil {
		goapp.Log.Error().Err(err).Str("type", j.Type).Msg("out of retries, drop")
		return nil
	}
	if errF := opts.failure(ctx, m, err); errF != nil {
		goapp.Log.Error().Err(errF).Str("type", j.Type).Msg("failure handler")
		if j.ErrorCount > opts.maxRetries+3 {
			return nil
		}
		return gue.ErrRescheduleJobIn(opts.backoff(int(j.ErrorCount+1)), errF.Error())
	}
	return nil
}

// DefaultOpts returns options: 15 min timeout, 3 retries, jittered backoff
func DefaultOpts[TM any]() *Opts[TM] {
	return &Opts[TM]{timeout: time.Minute * 15, maxRetries: 3, backoff: DefaultBackoff()}
}

// DefaultBackoff returns linear backoff with full jitter
func DefaultBackoff() gue.Backoff {
	return func(retries int) time.Duration {
		return fullJitter(time.Duration(retries) * time.Second * 10)
	}
}

// NoBackoff retries immediately
func NoBackoff() gue.Backoff {
	return func(retries int) time.Duration {
		return 0
	}
}

// DefaultBackoffOrTest returns NoBackoff for tests
func DefaultBackoffOrTest(test bool) gue.Backoff {
	if test {
		return NoBackoff()
	}
	return DefaultBackoff()
}

// WithFailure sets the callback for jobs out of retries
func (o *Opts[TM]) WithFailure(f FailureFunc[TM]) *Opts[TM] {
	o.failure = f
	return o
}

// WithTimeout sets handler timeout
func (o *Opts[TM]) WithTimeout(timeout time.Duration) *Opts[TM] {
	o.timeout = timeout
	return o
}

// WithBackoff sets retry delay func
func (o *Opts[TM]) WithBackoff(b gue.Backoff) *Opts[TM] {
	o.backoff = b
	return o
}

// WithRetries sets max retries
func (o *Opts[TM]) WithRetries(n int32) *Opts[TM] {
	o.maxRetries = n
	return o
}

// fullJitter return randomized duration in interval [0, t)
// as suggested by https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/
func fullJitter(t time.Duration) time.Duration {
	return time.Duration(float64(t) * rand.Float64())
}
