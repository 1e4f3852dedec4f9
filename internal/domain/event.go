package domain

import "time"

// Event types published by the bridge.
const (
	EventCommand      = "command"
	EventChatLine     = "chat_line"
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
)

// Event describes something the bridge did or observed. Only the fields
// relevant to Type are set.
type Event struct {
	Type      string    `json:"type"`
	Time      time.Time `json:"time"`
	Command   string    `json:"command,omitempty"`
	Args      []string  `json:"args,omitempty"`
	Speaker   string    `json:"speaker,omitempty"`
	Message   string    `json:"message,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	Username  string    `json:"username,omitempty"`
	Room      string    `json:"room,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}
