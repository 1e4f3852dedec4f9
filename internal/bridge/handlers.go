package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/scratchat/internal/chatlink"
	"github.com/ashureev/scratchat/internal/codec"
	"github.com/ashureev/scratchat/internal/domain"
)

const (
	okay            = codec.OkayLine
	mailboxKey      = "last_message_for/"
	mailboxSelfKey  = "last_message_for_me"
	checkTokenCount = 4
)

func (b *Bridge) connectAs(ctx context.Context, cmd domain.Command) (Reply, error) {
	name, ok := cmd.Arg(0)
	if !ok {
		b.logger.Warn("connect_as needs a username", "error", ErrBadArguments)
		return NoReply(), nil
	}
	if b.link != nil {
		b.logger.Warn("Ignoring connect_as", "username", name, "error", ErrAlreadyConnected)
		return NoReply(), nil
	}
	if b.connector == nil {
		return Respond(okay), fmt.Errorf("connect as %s: no connector configured: %w", name, chatlink.ErrUnreachable)
	}

	link, err := b.connector.Connect(ctx, name)
	if err != nil {
		b.logger.Error("Failed to connect to chat server", "username", name, "error", err)
		return Respond(okay), fmt.Errorf("connect as %s: %w", name, err)
	}

	b.link = link
	b.state.Connected = true
	b.state.Username = name
	b.logger.Info("Connected", "username", name)
	b.publish(domain.Event{Type: domain.EventConnected, Username: name})
	return Respond(okay), nil
}

func (b *Bridge) joinRoom(_ context.Context, cmd domain.Command) (Reply, error) {
	room, ok := cmd.Arg(0)
	if !ok {
		b.logger.Warn("join_room needs a room", "error", ErrBadArguments)
		return NoReply(), nil
	}
	if b.link == nil {
		b.logger.Warn("Not connected, please connect first", "room", room, "error", ErrNotConnected)
		return NoReply(), nil
	}

	if err := b.send(codec.JoinLine(room)); err != nil {
		b.logger.Error("Failed to join room", "room", room, "error", err)
		return NoReply(), nil
	}
	b.state.Room = room
	b.logger.Info("Joined room", "room", room)
	return Respond(okay), nil
}

func (b *Bridge) say(_ context.Context, cmd domain.Command) (Reply, error) {
	text, ok := cmd.Arg(0)
	if !ok {
		b.logger.Warn("say needs a message", "error", ErrBadArguments)
		return NoReply(), nil
	}
	return b.sayLine(text, "")
}

func (b *Bridge) sayTo(_ context.Context, cmd domain.Command) (Reply, error) {
	text, okText := cmd.Arg(0)
	recipient, okRecipient := cmd.Arg(1)
	if !okText || !okRecipient {
		b.logger.Warn("say_to needs a message and a recipient", "error", ErrBadArguments)
		return NoReply(), nil
	}
	return b.sayLine(text, recipient)
}

func (b *Bridge) sayLine(text, recipient string) (Reply, error) {
	if b.link == nil {
		b.logger.Warn("Not connected, please connect first", "error", ErrNotConnected)
		return NoReply(), nil
	}
	if b.state.Room == "" {
		b.logger.Warn("Please join a room before chatting", "error", ErrNotInRoom)
		return NoReply(), nil
	}

	if err := b.send(codec.EncodeOutboundLine(text, recipient)); err != nil {
		b.logger.Error("Failed to send chat line", "recipient", recipient, "error", err)
		return NoReply(), nil
	}
	return Respond(okay), nil
}

// checkMessageContains expects exactly: name, block id, message, needle.
func (b *Bridge) checkMessageContains(_ context.Context, cmd domain.Command) (Reply, error) {
	if len(cmd) != checkTokenCount {
		b.logger.Warn("check_message_contains needs id, message and text", "tokens", len(cmd), "error", ErrBadArguments)
		return NoReply(), nil
	}
	b.state.ContainsText = strings.Contains(cmd[2], cmd[3])
	return Respond(okay), nil
}

func (b *Bridge) resetAll(_ context.Context, _ domain.Command) (Reply, error) {
	if err := b.closeLink("reset"); err != nil && !chatlink.IsExpectedCloseError(err) {
		b.logger.Warn("Failed to close chat link", "error", err)
	}
	b.state.Reset()
	return Respond(okay), nil
}

func (b *Bridge) poll(_ context.Context, _ domain.Command) (Reply, error) {
	if b.state.MarkReady() {
		b.logger.Info("Polling client detected, bridge ready")
	}

	if b.link != nil {
		b.receive()
	}
	return Respond(codec.EncodePollResponse(b.pollFields())), nil
}

// receive samples the link once and records the latest line it carried.
func (b *Bridge) receive() {
	data, err := b.link.TryReceive()
	if err != nil {
		if chatlink.IsExpectedCloseError(err) {
			b.logger.Warn("Chat server closed the connection", "username", b.state.Username)
			b.dropLink("peer closed")
			return
		}
		b.logger.Error("Failed to read from chat server", "error", err)
		return
	}
	if data == nil {
		return
	}

	line, ok := codec.LatestLine(data)
	if !ok {
		return
	}
	b.logger.Debug("Chat line received", "line", line, "bytes", len(data))

	msg := codec.DecodeChatLine(line, b.state.Room)
	b.state.RecordMessage(msg)
	b.publish(domain.Event{
		Type:      domain.EventChatLine,
		Speaker:   msg.Speaker,
		Message:   msg.Body,
		Recipient: msg.Recipient,
	})
}

func (b *Bridge) pollFields() []codec.Field {
	s := b.state
	fields := []codec.Field{
		codec.Bool("connected", s.Connected),
		codec.String("username", s.Username),
		codec.String("room", s.Room),
		codec.String("last_speaker", s.LastSpeaker),
		codec.String("last_message", s.LastMessage),
		codec.Bool("contains_text", s.ContainsText),
	}
	for _, recipient := range s.Recipients() {
		fields = append(fields, codec.String(mailboxKey+recipient, s.Mailbox[recipient]))
	}
	if body, ok := s.MessageFor(s.Username); ok {
		fields = append(fields, codec.String(mailboxSelfKey, body))
	}
	return fields
}

func (b *Bridge) crossDomainPolicy(_ context.Context, _ domain.Command) (Reply, error) {
	return Respond(codec.CrossDomainPolicy(b.policyPort)), nil
}
