// Package codec converts between the chat wire format, the polling client's
// key/value response format and decoded commands.
package codec

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ashureev/scratchat/internal/domain"
)

const (
	// LineTerminator ends every outbound chat line and response line.
	LineTerminator = "\n"

	// OkayLine terminates every poll response.
	OkayLine = "okay"

	// instructionsHead marks the chat service's help banner.
	instructionsHead = "Instructions"

	// emptyValue stands in for absent or empty response values.
	emptyValue = " "
)

var mentionPattern = regexp.MustCompile(`^@([\p{L}\p{N}_]+)`)

// DecodeChatLine splits raw at its first colon into head and body. The head
// is the speaker unless it is one of the service's system heads for room.
func DecodeChatLine(raw, room string) domain.ChatMessage {
	head, body, found := strings.Cut(raw, ":")
	if !found {
		return withMention(domain.ChatMessage{Body: raw})
	}

	msg := domain.ChatMessage{Speaker: head, Body: body}
	if isSystemHead(head, room) {
		msg.Speaker = ""
	}
	return withMention(msg)
}

func isSystemHead(head, room string) bool {
	if head == instructionsHead {
		return true
	}
	return room != "" && head == room+" welcomes"
}

func withMention(msg domain.ChatMessage) domain.ChatMessage {
	m := mentionPattern.FindStringSubmatch(msg.Body)
	if m == nil {
		return msg
	}
	msg.Recipient = m[1]
	msg.MailboxBody = strings.Replace(msg.Body, m[0], "", 1)
	return msg
}

// LatestLine returns the last non-empty line of a raw read with its line
// terminator stripped. A read may hold a partial line or several lines; only
// the most recent one is kept.
func LatestLine(chunk []byte) (string, bool) {
	lines := strings.Split(string(chunk), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) != "" {
			return line, true
		}
	}
	return "", false
}

// EncodeOutboundLine frames a chat message for the service, addressing it
// to recipient when one is given.
func EncodeOutboundLine(body, recipient string) string {
	if recipient != "" {
		return "@" + recipient + " " + body + LineTerminator
	}
	return body + LineTerminator
}

// JoinLine is the request to enter room.
func JoinLine(room string) string {
	return "<join> " + room
}

// NameLine answers the service's greeting.
func NameLine(username string) string {
	return "name: " + username
}

// QuitLine announces a disconnect.
const QuitLine = "<quit>"

// Field is one key/value pair of a poll response.
type Field struct {
	Key   string
	Value string
}

// String returns a text field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Bool returns a field rendered as "true" or "false".
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: strconv.FormatBool(value)}
}

// EncodePollResponse renders fields in order as "key value" lines with
// escaped values, followed by the okay line.
func EncodePollResponse(fields []Field) string {
	var b strings.Builder
	for _, f := range fields {
		value := f.Value
		if value == "" {
			value = emptyValue
		}
		b.WriteString(f.Key)
		b.WriteByte(' ')
		b.WriteString(Escape(value))
		b.WriteString(LineTerminator)
	}
	b.WriteString(OkayLine)
	return b.String()
}

// Escape applies URL query escaping with spaces written as %20.
func Escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Unescape reverses percent-encoding. A literal '+' stays a '+'.
func Unescape(s string) (string, error) {
	return url.PathUnescape(s)
}

// ParseCommand splits an escaped request path into a command, decoding each
// segment. Only the leading slash is dropped, so empty segments, including a
// trailing one, are kept as empty arguments.
func ParseCommand(escapedPath string) (domain.Command, error) {
	trimmed := strings.TrimPrefix(escapedPath, "/")
	parts := strings.Split(trimmed, "/")
	if parts[0] == "" {
		return nil, fmt.Errorf("empty command name")
	}
	cmd := make(domain.Command, 0, len(parts))
	for i, part := range parts {
		decoded, err := Unescape(part)
		if err != nil {
			return nil, fmt.Errorf("decode segment %d: %w", i, err)
		}
		cmd = append(cmd, decoded)
	}
	return cmd, nil
}

// CrossDomainPolicy returns the Flash policy document allowing any domain
// to reach port. The document ends with a NUL byte.
func CrossDomainPolicy(port string) string {
	return "<cross-domain-policy>\n" +
		"  <allow-access-from domain=\"*\" to-ports=\"" + port + "\"/>\n" +
		"</cross-domain-policy>\n\x00"
}
