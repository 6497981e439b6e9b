package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/messages"
	"github.com/vgarvardt/gue/v5"
)

// Enqueuer puts jobs into the queue
type Enqueuer interface {
	Enqueue(ctx context.Context, j *gue.Job) error
}

//Sender performs messages sending using postgres gue
type Sender struct {
	gc Enqueuer
}

//NewSender initializes gue sender
func NewSender(gc Enqueuer) (*Sender, error) {
	if gc == nil {
		return nil, fmt.Errorf("no gue client")
	}
	return &Sender{gc: gc}, nil
}

//SendMessage enqueues the message as a job of type name
func (sender *Sender) SendMessage(ctx context.Context, msg amessages.Message, name string) error {
	goapp.Log.Debug().Str("type", name).Msg("Sending message")
	args, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("can't marshal msg: %w", err)
	}

	j := &gue.Job{
		Type:  name,
		Queue: messages.QueueOf(name),
		Args:  args,
	}
	if err := sender.gc.Enqueue(ctx, j); err != nil {
		return fmt.Errorf("can't send msg to %s: %w", name, err)
	}
	goapp.Log.Debug().Msg("Sent")
	return nil
}
