//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/scratchat/internal/bridge"
	"github.com/ashureev/scratchat/internal/chatlink"
	"github.com/ashureev/scratchat/internal/domain"
	"github.com/go-chi/chi/v5"
)

type fakeSession struct {
	commands []domain.Command
	reply    bridge.Reply
	err      error
	state    domain.SessionState
	closed   chan struct{}
}

func (f *fakeSession) Dispatch(_ context.Context, cmd domain.Command) (bridge.Reply, error) {
	f.commands = append(f.commands, cmd)
	return f.reply, f.err
}

func (f *fakeSession) State() domain.SessionState {
	return f.state
}

func (f *fakeSession) Close() error {
	if f.closed != nil {
		close(f.closed)
	}
	return nil
}

func newRouter(session Session) http.Handler {
	r := chi.NewRouter()
	NewHandler(session).RegisterRoutes(r)
	return r
}

func get(t *testing.T, h http.Handler, target string) *http.Response {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr.Result()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestCommand_DecodesPathSegments(t *testing.T) {
	session := &fakeSession{reply: bridge.Respond("okay")}
	resp := get(t, newRouter(session), "/say_to/hello%20there%2Fyou/bob")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp); body != "okay" {
		t.Fatalf("expected okay, got %q", body)
	}
	want := domain.Command{"say_to", "hello there/you", "bob"}
	if len(session.commands) != 1 || !reflect.DeepEqual(session.commands[0], want) {
		t.Fatalf("expected %v, got %v", want, session.commands)
	}
}

func TestCommand_SilentReplyIsNoContent(t *testing.T) {
	session := &fakeSession{reply: bridge.NoReply()}
	resp := get(t, newRouter(session), "/say/hi")

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestCommand_EmptyBodyIsNotSilent(t *testing.T) {
	session := &fakeSession{reply: bridge.Respond("")}
	resp := get(t, newRouter(session), "/poll")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for an empty present reply, got %d", resp.StatusCode)
	}
}

func TestCommand_UnknownIsNotFound(t *testing.T) {
	session := &fakeSession{err: &bridge.UnknownCommandError{Name: "dance"}}
	resp := get(t, newRouter(session), "/dance")

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCommand_FailureWithOkaySetsHeader(t *testing.T) {
	session := &fakeSession{
		reply: bridge.Respond("okay"),
		err:   chatlink.ErrUnreachable,
	}
	resp := get(t, newRouter(session), "/connect_as/alice")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp); body != "okay" {
		t.Fatalf("expected okay, got %q", body)
	}
	if got := resp.Header.Get(BridgeErrorHeader); !strings.Contains(got, "unreachable") {
		t.Fatalf("expected error header, got %q", got)
	}
}

func TestCommand_FailureWithoutReply(t *testing.T) {
	session := &fakeSession{err: errors.New("boom")}
	resp := get(t, newRouter(session), "/poll")

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestStatus(t *testing.T) {
	session := &fakeSession{state: domain.SessionState{
		Connected:      true,
		Username:       "alice",
		Room:           "lobby",
		ReadyAnnounced: true,
		Mailbox:        map[string]string{"bob": "hi"},
	}}
	resp := get(t, newRouter(session), "/status")

	var got map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got["username"] != "alice" || got["connected"] != true || got["mailbox_size"] != float64(1) {
		t.Fatalf("unexpected status %v", got)
	}
	if len(session.commands) != 0 {
		t.Fatal("status must not dispatch commands")
	}
}

type fakeLink struct {
	writes []string
}

func (f *fakeLink) Send(line string) error {
	f.writes = append(f.writes, line)
	return nil
}
func (f *fakeLink) TryReceive() ([]byte, error) { return nil, nil }
func (f *fakeLink) Close() error                { return nil }

type fakeConnector struct {
	link *fakeLink
}

func (f *fakeConnector) Connect(_ context.Context, username string) (bridge.Link, error) {
	f.link.writes = append(f.link.writes, "name: "+username)
	return f.link, nil
}

func TestEndToEnd_WithBridge(t *testing.T) {
	link := &fakeLink{}
	b := bridge.New(bridge.Options{Connector: &fakeConnector{link: link}, PolicyPort: "50355"})
	router := newRouter(b)

	policy := get(t, router, "/crossdomain.xml")
	if ct := policy.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		t.Fatalf("expected xml content type, got %q", ct)
	}
	if body := readBody(t, policy); !strings.HasSuffix(body, "</cross-domain-policy>\n\x00") {
		t.Fatalf("unexpected policy %q", body)
	}

	if resp := get(t, router, "/say/too%20early"); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 before connect, got %d", resp.StatusCode)
	}
	for _, path := range []string{"/connect_as/alice", "/join_room/lobby", "/say_to/hi%20there/bob"} {
		if resp := get(t, router, path); resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}

	want := []string{"name: alice", "<join> lobby", "@bob hi there\n"}
	if !reflect.DeepEqual(link.writes, want) {
		t.Fatalf("expected writes %q, got %q", want, link.writes)
	}

	body := readBody(t, get(t, router, "/poll"))
	if !strings.HasPrefix(body, "connected true\nusername alice\nroom lobby\n") || !strings.HasSuffix(body, "\nokay") {
		t.Fatalf("unexpected poll body %q", body)
	}

	if resp := get(t, router, "/fly_away"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown command, got %d", resp.StatusCode)
	}
}

func TestClose_WaitsForRunningCommand(t *testing.T) {
	session := &fakeSession{closed: make(chan struct{})}
	h := NewHandler(session)

	h.mu.Lock()
	done := make(chan error, 1)
	go func() { done <- h.Close() }()

	select {
	case <-session.closed:
		t.Fatal("session closed while a command held the lock")
	case <-time.After(50 * time.Millisecond):
	}

	h.mu.Unlock()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	select {
	case <-session.closed:
	default:
		t.Fatal("expected session to be closed")
	}
}
