// Package eventbus is the process-wide notification channel between write
// operations and whatever presents their outcome to the user.
package eventbus

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Channel names a notification stream. Only the three constants below exist.
type Channel string

const (
	Success Channel = "success"
	Error   Channel = "error"
	Info    Channel = "info"
)

// Channels lists every valid channel.
func Channels() []Channel {
	return []Channel{Success, Error, Info}
}

// Valid reports whether ch is one of the well-known channels.
func (ch Channel) Valid() bool {
	switch ch {
	case Success, Error, Info:
		return true
	}
	return false
}

// Event is what a listener receives.
type Event struct {
	Channel Channel
	Message string
	At      time.Time
}

// Listener handles one event. It runs on the goroutine that called Emit.
type Listener func(Event)

// Subscription is the handle returned by On. Closing it removes the listener.
type Subscription struct {
	bus     *Bus
	channel Channel
	id      uint64
	once    sync.Once
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.bus.off(s.channel, s.id) })
}

type entry struct {
	id uint64
	fn Listener
}

// Bus fans events out to listeners. The zero value is not usable; call New.
type Bus struct {
	mu        sync.RWMutex
	next      uint64
	listeners map[Channel][]entry
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for dropped events and listener panics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the time source stamped on events.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		listeners: make(map[Channel][]entry),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers fn on ch. Listeners on one channel run in registration order.
func (b *Bus) On(ch Channel, fn Listener) (*Subscription, error) {
	if !ch.Valid() {
		return nil, fmt.Errorf("unknown event channel %q", ch)
	}
	if fn == nil {
		return nil, fmt.Errorf("listener for channel %q is nil", ch)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.listeners[ch] = append(b.listeners[ch], entry{id: b.next, fn: fn})
	return &Subscription{bus: b, channel: ch, id: b.next}, nil
}

// Off removes the listener behind sub. Same as sub.Close.
func (b *Bus) Off(sub *Subscription) {
	sub.Close()
}

func (b *Bus) off(ch Channel, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.listeners[ch]
	for i, e := range list {
		if e.id == id {
			// Copy so an Emit iterating the old slice is not disturbed.
			next := make([]entry, 0, len(list)-1)
			next = append(next, list[:i]...)
			b.listeners[ch] = append(next, list[i+1:]...)
			return
		}
	}
}

// Emit delivers message to every listener currently registered on ch. With no
// listeners the message is dropped. A panicking listener is logged and the
// remaining listeners still run.
func (b *Bus) Emit(ch Channel, message string) {
	if !ch.Valid() {
		b.logger.Warn("event dropped: unknown channel", slog.String("channel", string(ch)))
		return
	}

	b.mu.RLock()
	list := b.listeners[ch]
	b.mu.RUnlock()

	ev := Event{Channel: ch, Message: message, At: b.now()}
	for _, e := range list {
		b.dispatch(e.fn, ev)
	}
}

// Emitf is Emit with fmt.Sprintf formatting.
func (b *Bus) Emitf(ch Channel, format string, args ...any) {
	b.Emit(ch, fmt.Sprintf(format, args...))
}

// Len returns the number of listeners on ch.
func (b *Bus) Len(ch Channel) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[ch])
}

func (b *Bus) dispatch(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				slog.String("channel", string(ev.Channel)),
				slog.Any("panic", r),
			)
		}
	}()
	fn(ev)
}
