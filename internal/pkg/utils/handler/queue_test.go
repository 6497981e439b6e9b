package handler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/airenas/soulwhisper/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"
)

type testMsg struct {
	ID string `json:"id"`
}

type testData struct {
	calls int
	err   error
}

func handle(ctx context.Context, m *testMsg, d *testData) error {
	d.calls++
	return d.err
}

func TestCreate(t *testing.T) {
	d := &testData{}
	f := Create(d, handle, DefaultOpts[testMsg]())

	assert.Nil(t, f(test.Ctx(t), &gue.Job{Args: []byte(`{"id":"1"}`)}))
	assert.Equal(t, 1, d.calls)
}

func TestCreate_Retry(t *testing.T) {
	d := &testData{err: fmt.Errorf("olia")}
	f := Create(d, handle, DefaultOpts[testMsg]().WithBackoff(NoBackoff()))

	err := f(test.Ctx(t), &gue.Job{Args: []byte(`{"id":"1"}`), ErrorCount: 1})

	require.NotNil(t, err)
	assert.Equal(t, 1, d.calls)
}

func TestCreate_Failure(t *testing.T) {
	d := &testData{err: fmt.Errorf("olia")}
	var got []string
	f := Create(d, handle, DefaultOpts[testMsg]().WithRetries(2).WithFailure(
		func(ctx context.Context, m *testMsg, err error) error {
			got = append(got, m.ID+":"+err.Error())
			return nil
		}))

	assert.Nil(t, f(test.Ctx(t), &gue.Job{Args: []byte(`{"id":"1"}`), ErrorCount: 2}))
	assert.Equal(t, []string{"1:olia"}, got)
}

func TestCreate_FailureFails(t *testing.T) {
	d := &testData{err: fmt.Errorf("olia")}
	f := Create(d, handle, DefaultOpts[testMsg]().WithRetries(0).WithBackoff(NoBackoff()).WithFailure(
		func(ctx context.Context, m *testMsg, err error) error {
			return fmt.Errorf("fail")
		}))

	assert.NotNil(t, f(test.Ctx(t), &gue.Job{Args: []byte(`{"id":"1"}`), ErrorCount: 0}))
	assert.Nil(t, f(test.Ctx(t), &gue.Job{Args: []byte(`{"id":"1"}`), ErrorCount: 4}))
}

func TestCreate_NoFailureHandler(t *testing.T) {
	d := &testData{err: fmt.Errorf("olia")}
	f := Create(d, handle, DefaultOpts[testMsg]().WithRetries(0))

	assert.Nil(t, f(test.Ctx(t), &gue.Job{Args: []byte(`{"id":"1"}`)}))
}

func TestCreate_WrongJSON(t *testing.T) {
	d := &testData{}
	f := Create(d, handle, DefaultOpts[testMsg]())

	assert.Nil(t, f(test.Ctx(t), &gue.Job{Args: []byte(`{`)}))
	assert.Equal(t, 0, d.calls)
}

func TestCreate_Timeout(t *testing.T) {
	d := &testData{}
	f := Create(d, func(ctx context.Context, m *testMsg, d *testData) error {
		<-ctx.Done()
		return ctx.Err()
	}, DefaultOpts[testMsg]().WithTimeout(time.Millisecond*10).WithRetries(0))

	assert.Nil(t, f(test.Ctx(t), &gue.Job{Args: []byte(`{"id":"1"}`)}))
}

func TestFullJitter(t *testing.T) {
	for i := 0; i < 100; i++ {
		v := fullJitter(time.Second)
		assert.GreaterOrEqual(t, v, time.Duration(0))
		assert.Less(t, v, time.Second)
	}
}
