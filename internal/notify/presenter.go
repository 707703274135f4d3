// Package notify shows event bus notifications to the user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/simp-lee/mailsync/internal/eventbus"
)

var prefixes = map[eventbus.Channel]string{
	eventbus.Success: "ok",
	eventbus.Error:   "error",
	eventbus.Info:    "info",
}

// Presenter writes every notification as one line, "<channel>: <message>",
// to its writer. Without a writer it logs them instead.
type Presenter struct {
	w      io.Writer
	logger *slog.Logger
	quiet  bool

	mu   sync.Mutex
	subs []*eventbus.Subscription
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithLogger sets the logger notifications go to when there is no writer.
func WithLogger(l *slog.Logger) Option {
	return func(p *Presenter) {
		if l != nil {
			p.logger = l
		}
	}
}

// Quiet drops info notifications.
func Quiet(q bool) Option {
	return func(p *Presenter) { p.quiet = q }
}

// New subscribes a presenter to all channels of bus. Close it to unsubscribe.
func New(bus *eventbus.Bus, w io.Writer, opts ...Option) (*Presenter, error) {
	if bus == nil {
		return nil, errors.New("notify: event bus is required")
	}
	p := &Presenter{w: w, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}

	for _, ch := range eventbus.Channels() {
		if ch == eventbus.Info && p.quiet {
			continue
		}
		sub, err := bus.On(ch, p.show)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.subs = append(p.subs, sub)
	}
	return p, nil
}

func (p *Presenter) show(ev eventbus.Event) {
	if p.w == nil {
		level := slog.LevelInfo
		if ev.Channel == eventbus.Error {
			level = slog.LevelError
		}
		p.logger.Log(context.Background(), level, ev.Message, slog.String("channel", string(ev.Channel)))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintf(p.w, "%s: %s\n", prefixes[ev.Channel], ev.Message); err != nil {
		p.logger.Warn("write notification", slog.String("error", err.Error()))
	}
}

// Close unsubscribes from the bus.
func (p *Presenter) Close() {
	p.mu.Lock()
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}
