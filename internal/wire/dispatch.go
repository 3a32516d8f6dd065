package wire

import (
	"context"
	"sync"

	"github.com/dreamware/petals/internal/petalserr"
)

// Response is a handler's reply payload, written back under the request's
// own tag.
type Response struct {
	Format  Format
	Payload []byte
}

// HandlerFunc answers one decoded Message.
type HandlerFunc func(ctx context.Context, msg Message) (Response, error)

// Dispatcher maps envelope tags to handlers, mirroring the original
// server's per-message-type handler table.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Register binds tag to fn, overwriting any prior handler for that tag.
func (d *Dispatcher) Register(tag string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[tag] = fn
}

// Tags returns the set of registered envelope tags, used by the frame
// reader to recognize a message's closing boundary.
func (d *Dispatcher) Tags() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tags := make([]string, 0, len(d.handlers))
	for tag := range d.handlers {
		tags = append(tags, tag)
	}
	return tags
}

// Dispatch routes msg to its registered handler and wraps the result (or a
// ProtocolError for an unregistered tag) into a response Message carrying
// the same tag.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) Message {
	d.mu.RLock()
	fn, ok := d.handlers[msg.Tag]
	d.mu.RUnlock()

	if !ok {
		return errorMessage(msg.Tag, petalserr.Newf(petalserr.KindProtocolError, "no handler registered for %q", msg.Tag))
	}

	resp, err := fn(ctx, msg)
	if err != nil {
		return errorMessage(msg.Tag, err)
	}
	return Message{Tag: msg.Tag, Format: resp.Format, Payload: resp.Payload}
}

func errorMessage(tag string, err error) Message {
	return Message{Tag: tag, Format: FormatJSON, Payload: []byte(`{"error":"` + jsonEscape(err.Error()) + `"}`)}
}

func jsonEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			out = append(out, '\\', c)
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
