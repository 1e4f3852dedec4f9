package domain

import "sort"

// SessionState holds the state of one bridge session. Empty strings mean
// the optional value is absent.
type SessionState struct {
	Connected      bool
	Username       string
	Room           string
	LastSpeaker    string
	LastMessage    string
	Mailbox        map[string]string
	ContainsText   bool
	ReadyAnnounced bool
}

// NewSessionState returns a state with every field at its construction value.
func NewSessionState() *SessionState {
	return &SessionState{Mailbox: make(map[string]string)}
}

// Reset returns every field to its construction value except ReadyAnnounced,
// which stays set for the lifetime of the state.
func (s *SessionState) Reset() {
	ready := s.ReadyAnnounced
	*s = SessionState{
		Mailbox:        make(map[string]string),
		ReadyAnnounced: ready,
	}
}

// MarkReady sets ReadyAnnounced and reports whether this call flipped it.
func (s *SessionState) MarkReady() bool {
	if s.ReadyAnnounced {
		return false
	}
	s.ReadyAnnounced = true
	return true
}

// RecordMessage stores a decoded chat line as the latest one and files it
// in the mailbox when it mentions a recipient.
func (s *SessionState) RecordMessage(msg ChatMessage) {
	s.LastSpeaker = msg.Speaker
	s.LastMessage = msg.Body
	if msg.HasMention() {
		if s.Mailbox == nil {
			s.Mailbox = make(map[string]string)
		}
		s.Mailbox[msg.Recipient] = msg.MailboxBody
	}
}

// Disconnect marks the link as gone. The room goes with it since a room is
// only meaningful on a live link.
func (s *SessionState) Disconnect() {
	s.Connected = false
	s.Room = ""
}

// MessageFor returns the pending mailbox entry for name.
func (s *SessionState) MessageFor(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	body, ok := s.Mailbox[name]
	return body, ok
}

// Recipients returns the mailbox keys in sorted order.
func (s *SessionState) Recipients() []string {
	names := make([]string, 0, len(s.Mailbox))
	for name := range s.Mailbox {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
