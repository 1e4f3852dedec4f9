// Package bridge keeps the state of one polling client's chat session and
// runs its commands against the chat link.
package bridge

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/ashureev/scratchat/internal/chatlink"
	"github.com/ashureev/scratchat/internal/domain"
)

// Link is a live connection to the chat service.
type Link interface {
	Send(line string) error
	// TryReceive returns (nil, nil) when nothing is readable.
	TryReceive() ([]byte, error)
	Close() error
}

// Connector opens a Link and completes the name handshake.
type Connector interface {
	Connect(ctx context.Context, username string) (Link, error)
}

// Publisher receives bridge events.
type Publisher interface {
	Publish(event domain.Event)
}

// DialerConnector adapts a chatlink.Dialer to Connector.
type DialerConnector struct {
	Dialer *chatlink.Dialer
}

// Connect implements Connector.
func (d DialerConnector) Connect(ctx context.Context, username string) (Link, error) {
	conn, err := d.Dialer.Connect(ctx, username)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Options configures a Bridge.
type Options struct {
	Connector Connector
	// PolicyPort is advertised in the cross-domain policy.
	PolicyPort string
	// Debug logs every non-poll command.
	Debug  bool
	Logger *slog.Logger
	// Events is optional.
	Events Publisher
}

// Bridge owns one session: its state and, while connected, its link.
// It is not safe for concurrent use; callers serialize commands.
type Bridge struct {
	state      *domain.SessionState
	link       Link
	connector  Connector
	policyPort string
	debug      bool
	logger     *slog.Logger
	events     Publisher
	now        func() time.Time
}

// New creates a disconnected bridge.
func New(opts Options) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		state:      domain.NewSessionState(),
		connector:  opts.Connector,
		policyPort: opts.PolicyPort,
		debug:      opts.Debug,
		logger:     logger,
		events:     opts.Events,
		now:        time.Now,
	}
}

// State returns a copy of the session state.
func (b *Bridge) State() domain.SessionState {
	s := *b.state
	s.Mailbox = maps.Clone(b.state.Mailbox)
	return s
}

// Close tears the session down as reset_all does.
func (b *Bridge) Close() error {
	err := b.closeLink("shutdown")
	b.state.Reset()
	return err
}

func (b *Bridge) closeLink(reason string) error {
	if b.link == nil {
		return nil
	}
	err := b.link.Close()
	b.link = nil
	b.state.Disconnect()
	b.publish(domain.Event{Type: domain.EventDisconnected, Reason: reason})
	return err
}

// dropLink abandons a link the peer already closed.
func (b *Bridge) dropLink(reason string) {
	if err := b.closeLink(reason); err != nil && !chatlink.IsExpectedCloseError(err) {
		b.logger.Debug("Failed to close chat link", "error", err)
	}
}

// send writes to the link, dropping it if the peer has gone away.
func (b *Bridge) send(line string) error {
	if err := b.link.Send(line); err != nil {
		if chatlink.IsExpectedCloseError(err) {
			b.dropLink("peer closed")
		}
		return err
	}
	return nil
}

func (b *Bridge) publish(event domain.Event) {
	if b.events == nil {
		return
	}
	event.Time = b.now()
	b.events.Publish(event)
}
