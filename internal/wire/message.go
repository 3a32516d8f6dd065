// Package wire implements the TCP/XML request envelope described in
// spec.md §6: length-indeterminate framing where a message is an XML
// element delimited by its own closing tag, carrying a format attribute
// that controls how the element's text content is decoded.
package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"strings"

	"github.com/dreamware/petals/internal/petalserr"
)

// Format identifies how a Message's payload text is encoded.
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatBase64 Format = "base64"
)

// Message is a decoded request or response envelope: <Tag format="Format">payload</Tag>.
type Message struct {
	Tag     string
	Format  Format
	Payload []byte
}

type envelope struct {
	XMLName xml.Name
	Format  string `xml:"format,attr"`
	Payload string `xml:",chardata"`
}

// ParseMessage decodes a complete XML frame into a Message. The payload is
// decoded according to the format attribute: json and text pass through as
// raw bytes (json payloads are left for the handler to unmarshal), base64
// is decoded to its underlying bytes. An absent format attribute defaults
// to text, matching the original's permissive parser.
func ParseMessage(frame []byte) (Message, error) {
	var env envelope
	if err := xml.Unmarshal(frame, &env); err != nil {
		return Message{}, petalserr.Wrap(petalserr.KindProtocolError, "", err)
	}

	format := Format(env.Format)
	if format == "" {
		format = FormatText
	}

	var payload []byte
	switch format {
	case FormatText, FormatJSON:
		payload = []byte(env.Payload)
	case FormatBase64:
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(env.Payload))
		if err != nil {
			return Message{}, petalserr.Wrap(petalserr.KindProtocolError, "", err)
		}
		payload = decoded
	default:
		return Message{}, petalserr.Newf(petalserr.KindProtocolError, "unknown format %q", env.Format)
	}

	return Message{Tag: env.XMLName.Local, Format: format, Payload: payload}, nil
}

// Encode renders msg back into its XML envelope, escaping the payload text.
// Non-text formats are written as their raw text representation (json) or
// base64-encoded (base64); callers that want json payloads encoded first
// pass FormatJSON with pre-marshaled bytes.
func Encode(msg Message) []byte {
	var buf bytes.Buffer
	buf.WriteByte('<')
	buf.WriteString(msg.Tag)
	if msg.Format != "" {
		buf.WriteString(` format="`)
		buf.WriteString(string(msg.Format))
		buf.WriteByte('"')
	}
	buf.WriteByte('>')

	switch msg.Format {
	case FormatBase64:
		buf.WriteString(base64.StdEncoding.EncodeToString(msg.Payload))
	default:
		xml.EscapeText(&buf, msg.Payload)
	}

	buf.WriteString("</")
	buf.WriteString(msg.Tag)
	buf.WriteByte('>')
	return buf.Bytes()
}
