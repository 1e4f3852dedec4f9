// Package chatlink owns the TCP connection to the line-oriented chat service.
package chatlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ashureev/scratchat/internal/codec"
)

const (
	// ReadBufferSize bounds every read from the chat service.
	ReadBufferSize = 4096

	// GreetingPrompt must appear in the service's greeting.
	GreetingPrompt = "Please tell us your name"

	quitWriteTimeout  = time.Second
	fallbackReadDelay = time.Millisecond
)

// Dialer opens chat links.
type Dialer struct {
	// Addr is the chat service address in host:port form.
	Addr string

	// HandshakeTimeout bounds dialing plus the greeting read. Zero means
	// only the context deadline applies.
	HandshakeTimeout time.Duration

	// Logger receives structured log output. If nil, slog.Default() is used.
	Logger *slog.Logger
}

func (d *Dialer) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Connect dials the chat service, waits for its greeting and answers with
// username. On any failure the socket is closed and no Conn is returned.
func (d *Dialer) Connect(ctx context.Context, username string) (*Conn, error) {
	if d.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.HandshakeTimeout)
		defer cancel()
	}

	nd := net.Dialer{Control: reuseAddr}
	nc, err := nd.DialContext(ctx, "tcp", d.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrUnreachable, d.Addr, err)
	}

	conn, err := newConn(nc, d.logger())
	if err != nil {
		_ = nc.Close()
		return nil, err
	}

	greeting, err := conn.readGreeting(ctx)
	if err != nil {
		conn.release()
		return nil, err
	}
	if !strings.Contains(greeting, GreetingPrompt) {
		conn.release()
		d.logger().Debug("Unexpected chat greeting", "addr", d.Addr, "greeting", greeting)
		return nil, ErrProtocolMismatch
	}

	if err := conn.Send(codec.NameLine(username)); err != nil {
		conn.release()
		return nil, fmt.Errorf("send name: %w", err)
	}

	d.logger().Info("Connected to chat server", "addr", d.Addr, "remote", conn.RemoteAddr(), "username", username)
	return conn, nil
}

// Conn is a live chat link. It is owned by exactly one session.
type Conn struct {
	conn   net.Conn
	raw    syscall.RawConn
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

func newConn(nc net.Conn, logger *slog.Logger) (*Conn, error) {
	sc, ok := nc.(syscall.Conn)
	if !ok {
		return nil, fmt.Errorf("connection %T does not expose a raw socket", nc)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("raw socket: %w", err)
	}
	return &Conn{conn: nc, raw: raw, logger: logger}, nil
}

// readGreeting performs the one blocking read of the handshake, bounded by
// the context.
func (c *Conn) readGreeting(ctx context.Context) (string, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, ReadBufferSize)
	n, err := c.conn.Read(buf)
	if n == 0 {
		if err == nil {
			err = errors.New("empty greeting")
		}
		return "", fmt.Errorf("%w: read greeting: %w", ErrUnreachable, err)
	}
	_ = c.conn.SetReadDeadline(time.Time{})
	return string(buf[:n]), nil
}

// Send writes line as-is. Nothing is buffered across calls and no reply is
// awaited.
func (c *Conn) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	if _, err := c.conn.Write([]byte(line)); err != nil {
		return fmt.Errorf("write chat line: %w", err)
	}
	return nil
}

// TryReceive returns whatever one read of up to ReadBufferSize bytes yields
// if the socket is readable right now, and (nil, nil) otherwise. It never
// blocks, never retries and does no framing: the bytes may hold a partial
// line or several lines. A peer close is reported as io.EOF.
func (c *Conn) TryReceive() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, net.ErrClosed
	}

	ready, err := readable(c.raw)
	if err != nil {
		return nil, fmt.Errorf("poll chat socket: %w", err)
	}
	if !ready {
		return nil, nil
	}

	if !pollSupported {
		_ = c.conn.SetReadDeadline(time.Now().Add(fallbackReadDelay))
		defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()
	}

	buf := make([]byte, ReadBufferSize)
	n, err := c.conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil, nil
	}
	return nil, err
}

// Close sends a best-effort quit line and releases the socket. Closing an
// already closed Conn does nothing.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	_ = c.conn.SetWriteDeadline(time.Now().Add(quitWriteTimeout))
	if _, err := c.conn.Write([]byte(codec.QuitLine)); err != nil && !IsExpectedCloseError(err) {
		c.logger.Debug("Failed to send quit", "error", err)
	}
	return c.conn.Close()
}

// release closes the socket without the quit line, for handshake failures.
func (c *Conn) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}

// RemoteAddr returns the chat service address for logging.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
