// Package domain holds the bridge's data model.
package domain

// ChatMessage is one decoded chat line. It is never stored; the session
// keeps only the fields it needs.
type ChatMessage struct {
	// Speaker is empty for system lines.
	Speaker string
	Body    string
	// Recipient is the name from a leading @name token in Body, if any.
	Recipient string
	// MailboxBody is Body with the first @Recipient token removed.
	MailboxBody string
}

// IsSystem reports whether the line came from the chat service itself.
func (m ChatMessage) IsSystem() bool {
	return m.Speaker == ""
}

// HasMention reports whether the body starts with an @name token.
func (m ChatMessage) HasMention() bool {
	return m.Recipient != ""
}
