package bridge

import (
	"context"
	"sort"

	"github.com/ashureev/scratchat/internal/domain"
)

// Reply is a handler's answer to the polling client. The zero Reply means
// "no response", which is distinct from an empty body.
type Reply struct {
	Body    string
	present bool
}

// Respond returns a Reply carrying body.
func Respond(body string) Reply {
	return Reply{Body: body, present: true}
}

// NoReply returns the silent Reply.
func NoReply() Reply {
	return Reply{}
}

// Present reports whether the reply carries a response.
func (r Reply) Present() bool {
	return r.present
}

// HandlerFunc runs one command against the bridge.
type HandlerFunc func(b *Bridge, ctx context.Context, cmd domain.Command) (Reply, error)

// Command names understood by the bridge.
const (
	CommandConnectAs            = "connect_as"
	CommandJoinRoom             = "join_room"
	CommandSay                  = "say"
	CommandSayTo                = "say_to"
	CommandCheckMessageContains = "check_message_contains"
	CommandResetAll             = "reset_all"
	CommandPoll                 = "poll"
	CommandCrossDomain          = "crossdomain.xml"
)

var commands = map[string]HandlerFunc{
	CommandConnectAs:            (*Bridge).connectAs,
	CommandJoinRoom:             (*Bridge).joinRoom,
	CommandSay:                  (*Bridge).say,
	CommandSayTo:                (*Bridge).sayTo,
	CommandCheckMessageContains: (*Bridge).checkMessageContains,
	CommandResetAll:             (*Bridge).resetAll,
	CommandPoll:                 (*Bridge).poll,
	CommandCrossDomain:          (*Bridge).crossDomainPolicy,
}

// Commands returns the registered command names in sorted order.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler registered for cmd's name. An unregistered name
// yields an *UnknownCommandError. A handler may return a present Reply
// together with an error when the client protocol expects "okay" even
// though the operation failed.
func (b *Bridge) Dispatch(ctx context.Context, cmd domain.Command) (Reply, error) {
	name := cmd.Name()
	handler, ok := commands[name]
	if !ok {
		return NoReply(), &UnknownCommandError{Name: name}
	}

	if name != CommandPoll {
		if b.debug {
			b.logger.Debug("Command received", "command", name, "args", cmd.Args())
		}
		b.publish(domain.Event{Type: domain.EventCommand, Command: name, Args: cmd.Args()})
	}

	return handler(b, ctx, cmd)
}
