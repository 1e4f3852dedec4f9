// Package api provides the HTTP transport the polling client talks to.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/ashureev/scratchat/internal/bridge"
	"github.com/ashureev/scratchat/internal/codec"
	"github.com/ashureev/scratchat/internal/domain"
	"github.com/containerd/errdefs"
	"github.com/go-chi/chi/v5"
)

// BridgeErrorHeader carries the error of a command that still answered
// "okay" on the wire.
const BridgeErrorHeader = "X-Bridge-Error"

// Session is the single chat session served by the transport.
type Session interface {
	Dispatch(ctx context.Context, cmd domain.Command) (bridge.Reply, error)
	State() domain.SessionState
	Close() error
}

// Handler turns requests into commands. All commands run one at a time.
type Handler struct {
	mu      sync.Mutex
	session Session
}

// NewHandler creates a new Handler for session.
func NewHandler(session Session) *Handler {
	return &Handler{session: session}
}

// Close tears the session down once any running command has finished.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Close()
}

// RegisterRoutes registers the command routes. The catch-all route must be
// registered after any more specific routes on the same router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Get("/crossdomain.xml", h.CrossDomainPolicy)
	r.Get("/*", h.Command)
}

// Command runs the command named by the request path.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	cmd, err := codec.ParseCommand(r.URL.EscapedPath())
	if err != nil {
		slog.Warn("Malformed command path", "path", r.URL.EscapedPath(), "error", err)
		Text(w, http.StatusBadRequest, "bad command path")
		return
	}
	h.run(w, r, cmd, "text/plain; charset=utf-8")
}

// CrossDomainPolicy serves the Flash cross-domain policy.
func (h *Handler) CrossDomainPolicy(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, domain.Command{bridge.CommandCrossDomain}, "text/xml; charset=utf-8")
}

// Status returns a JSON summary of the session.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	state := h.session.State()
	h.mu.Unlock()

	JSON(w, http.StatusOK, map[string]interface{}{
		"connected":    state.Connected,
		"username":     state.Username,
		"room":         state.Room,
		"ready":        state.ReadyAnnounced,
		"mailbox_size": len(state.Mailbox),
	})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, cmd domain.Command, contentType string) {
	h.mu.Lock()
	reply, err := h.session.Dispatch(r.Context(), cmd)
	h.mu.Unlock()

	if err != nil {
		switch {
		case errdefs.IsNotFound(err):
			slog.Error("Unknown command", "command", cmd.Name(), "error", err)
			Text(w, http.StatusNotFound, err.Error())
			return
		case reply.Present():
			slog.Warn("Command failed", "command", cmd.Name(), "error", err)
			w.Header().Set(BridgeErrorHeader, err.Error())
		default:
			slog.Error("Command failed", "command", cmd.Name(), "error", err)
			Text(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if !reply.Present() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(reply.Body)); err != nil {
		slog.Debug("Failed to write response", "command", cmd.Name(), "error", err)
	}
}

// Text writes a plain-text response with the given status code.
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}
