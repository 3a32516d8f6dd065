package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestParseMessageJSON(t *testing.T) {
	msg, err := ParseMessage([]byte(`<query format="json">{"store":"s"}</query>`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if msg.Tag != "query" || msg.Format != FormatJSON {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if string(msg.Payload) != `{"store":"s"}` {
		t.Errorf("unexpected payload: %s", msg.Payload)
	}
}

func TestParseMessageBase64(t *testing.T) {
	msg, err := ParseMessage([]byte(`<message format="base64">aGVsbG8=</message>`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if string(msg.Payload) != "hello" {
		t.Errorf("got %q, want hello", msg.Payload)
	}
}

func TestParseMessageDefaultsToText(t *testing.T) {
	msg, err := ParseMessage([]byte(`<message>hello there</message>`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if msg.Format != FormatText {
		t.Errorf("expected default format text, got %s", msg.Format)
	}
}

func TestParseMessageUnknownFormatFails(t *testing.T) {
	_, err := ParseMessage([]byte(`<query format="yaml">x</query>`))
	if err == nil {
		t.Error("expected ProtocolError for unknown format")
	}
}

func TestParseMessageMalformedXMLFails(t *testing.T) {
	_, err := ParseMessage([]byte(`<query format="json">{"store"`))
	if err == nil {
		t.Error("expected ProtocolError for truncated XML")
	}
}

func TestEncodeEscapesPayload(t *testing.T) {
	got := Encode(Message{Tag: "query", Format: FormatJSON, Payload: []byte(`["a<b>"]`)})
	want := `<query format="json">[&#34;a&lt;b&gt;&#34;]</query>`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestEncodeBase64(t *testing.T) {
	got := Encode(Message{Tag: "message", Format: FormatBase64, Payload: []byte("hello")})
	if string(got) != `<message format="base64">aGVsbG8=</message>` {
		t.Errorf("unexpected encoding: %s", got)
	}
}

func TestDispatcherRoutesToRegisteredHandler(t *testing.T) {
	d := NewDispatcher()
	d.Register("query", func(ctx context.Context, msg Message) (Response, error) {
		return Response{Format: FormatJSON, Payload: []byte(`["a","b"]`)}, nil
	})

	resp := d.Dispatch(context.Background(), Message{Tag: "query", Format: FormatJSON, Payload: []byte(`{}`)})
	if string(resp.Payload) != `["a","b"]` {
		t.Errorf("unexpected response payload: %s", resp.Payload)
	}
}

func TestDispatcherUnknownTagProducesProtocolError(t *testing.T) {
	d := NewDispatcher()
	resp := d.Dispatch(context.Background(), Message{Tag: "frobnicate"})
	var body map[string]string
	if err := json.Unmarshal(resp.Payload, &body); err != nil {
		t.Fatalf("expected JSON error body: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected non-empty error message")
	}
}

func TestServeRoundTripOverPipe(t *testing.T) {
	d := NewDispatcher()
	d.Register("query", func(ctx context.Context, msg Message) (Response, error) {
		return Response{Format: FormatJSON, Payload: []byte(`["shard-a"]`)}, nil
	})
	s := NewServer(d, 2*time.Second, 2*time.Second)

	client, server := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.handleConn(ctx, server)
		close(done)
	}()

	if _, err := client.Write([]byte(`<query format="json">{"store":"s","query":{"field":"status","value":"x"}}</query>`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	buf := make([]byte, 256)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	got := buf[:n]
	want := []byte(`<query format="json">[&#34;shard-a&#34;]</query>`)
	if !bytes.Equal(got, want) {
		t.Errorf("got %s, want %s", got, want)
	}
	client.Close()
	<-done
}
