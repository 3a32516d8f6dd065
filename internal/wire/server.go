package wire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"time"

	"github.com/dreamware/petals/internal/petalserr"
)

// Server accepts TCP connections and serves framed XML requests against a
// Dispatcher, one goroutine per connection. There is no explicit
// cancellation token threaded through a single query; ReadTimeout and
// WriteTimeout bound how long a connection may sit idle or mid-write.
type Server struct {
	Dispatcher   *Dispatcher
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	readChunk int
}

// NewServer returns a Server dispatching to d with the given socket
// deadlines. A zero timeout disables that deadline.
func NewServer(d *Dispatcher, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		Dispatcher:   d,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		readChunk:    4096,
	}
}

// Serve accepts connections from ln until ctx is canceled or Accept fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	for {
		frame, err := s.readFrame(conn)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Printf("wire: connection closed: %v", err)
			}
			return
		}

		msg, perr := ParseMessage(frame)
		var response Message
		if perr != nil {
			response = errorMessage(rootTagOf(frame), perr)
		} else {
			response = s.Dispatcher.Dispatch(ctx, msg)
		}

		if s.WriteTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
		}
		if _, err := conn.Write(Encode(response)); err != nil {
			return
		}
	}
}

// readFrame accumulates bytes from conn until the buffer, trimmed of
// trailing whitespace, ends with the closing tag of one of the
// Dispatcher's registered handlers. This mirrors the original server's
// buffer-until-closing-tag framing: there is no length prefix, so the set
// of recognizable closing tags is exactly the set of tags the server knows
// how to handle.
func (s *Server) readFrame(conn net.Conn) ([]byte, error) {
	tags := s.Dispatcher.Tags()
	var buf bytes.Buffer
	chunk := make([]byte, s.readChunk)

	for {
		if s.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
		}
		n, err := conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			trimmed := strings.TrimRight(buf.String(), " \t\r\n")
			for _, tag := range tags {
				if strings.HasSuffix(trimmed, "</"+tag+">") {
					return []byte(trimmed), nil
				}
			}
		}
		if err != nil {
			if buf.Len() > 0 && errors.Is(err, io.EOF) {
				return nil, petalserr.New(petalserr.KindProtocolError, "connection closed mid-frame")
			}
			return nil, err
		}
	}
}

func rootTagOf(frame []byte) string {
	i := bytes.IndexByte(frame, '<')
	if i < 0 {
		return "message"
	}
	j := i + 1
	for j < len(frame) && frame[j] != ' ' && frame[j] != '>' && frame[j] != '/' {
		j++
	}
	if j <= i+1 {
		return "message"
	}
	return string(frame[i+1 : j])
}
