package notify

import (
	"context"
	"errors"
	"fmt"
)

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Message is one outbound notification. Attempts counts failed deliveries.
type Message struct {
	ID       string  `json:"id"`
	Channel  Channel `json:"channel"`
	To       string  `json:"to"`
	Subject  string  `json:"subject,omitempty"`
	Body     string  `json:"body"`
	Attempts int     `json:"attempts"`
}

// Sender delivers a message over a single channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoSender = errors.New("no sender for channel")

// Router dispatches a message to the sender registered for its channel.
type Router map[Channel]Sender

func (r Router) Send(ctx context.Context, msg Message) error {
	s, ok := r[msg.Channel]
	if !ok || s == nil {
		return fmt.Errorf("%w %q", ErrNoSender, msg.Channel)
	}
	return s.Send(ctx, msg)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
