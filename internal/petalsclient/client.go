// Package petalsclient implements a client for the wire protocol described
// in spec.md §6: it frames a query as an XML envelope, sends it over a
// fresh TCP connection, and decodes the shard-name response.
package petalsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dreamware/petals/internal/query"
	"github.com/dreamware/petals/internal/wire"
)

// Client sends queries to a petals server and decodes its responses.
type Client struct {
	Addr    string
	Retries int
	Timeout time.Duration
}

// New returns a Client with the retry count and per-attempt timeout the
// original client used: 3 retries, a 10-second timeout.
func New(addr string) *Client {
	return &Client{Addr: addr, Retries: 3, Timeout: 10 * time.Second}
}

type queryRequest struct {
	Store string          `json:"store"`
	Query query.Predicate `json:"query"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Query sends predicate against store and returns the surviving shard
// names, retrying on connection failure with exponential backoff between
// attempts.
func (c *Client) Query(ctx context.Context, store string, predicate query.Predicate) ([]string, error) {
	payload, err := json.Marshal(queryRequest{Store: store, Query: predicate})
	if err != nil {
		return nil, fmt.Errorf("petalsclient: marshal query: %w", err)
	}
	req := wire.Message{Tag: "query", Format: wire.FormatJSON, Payload: payload}

	resp, err := c.sendWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	var errBody errorResponse
	if json.Unmarshal(resp.Payload, &errBody) == nil && errBody.Error != "" {
		return nil, fmt.Errorf("petalsclient: server error: %s", errBody.Error)
	}

	var shards []string
	if err := json.Unmarshal(resp.Payload, &shards); err != nil {
		return nil, fmt.Errorf("petalsclient: decode response: %w", err)
	}
	return shards, nil
}

// Send sends an arbitrary message and returns the server's raw response,
// for request kinds (kv_get, kv_set, message) beyond Query's convenience
// wrapper.
func (c *Client) Send(ctx context.Context, msg wire.Message) (wire.Message, error) {
	return c.sendWithRetry(ctx, msg)
}

func (c *Client) sendWithRetry(ctx context.Context, msg wire.Message) (wire.Message, error) {
	retries := c.Retries
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		resp, err := c.send(ctx, msg)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		backoff := time.Duration(1<<attempt) * time.Second
		select {
		case <-ctx.Done():
			return wire.Message{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return wire.Message{}, fmt.Errorf("petalsclient: server at %s not responding after %d attempts: %w", c.Addr, retries, lastErr)
}

func (c *Client) send(ctx context.Context, msg wire.Message) (wire.Message, error) {
	dialer := net.Dialer{Timeout: c.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return wire.Message{}, err
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(c.Timeout))
	if _, err := conn.Write(wire.Encode(msg)); err != nil {
		return wire.Message{}, err
	}

	closingTag := "</" + msg.Tag + ">"
	var buf strings.Builder
	chunk := make([]byte, 1024)
	for {
		conn.SetReadDeadline(time.Now().Add(c.Timeout))
		n, err := conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if strings.HasSuffix(buf.String(), closingTag) {
				break
			}
		}
		if err != nil {
			return wire.Message{}, err
		}
	}

	return wire.ParseMessage([]byte(buf.String()))
}
