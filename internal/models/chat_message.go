package models

import "time"

// SystemSender is the sender id of messages emitted by the service itself.
const SystemSender = "SYSTEM"

// ChatMessage is an immutable entry in a match's conversation.
// VisibleTo, when set, limits a system message to one participant.
type ChatMessage struct {
	ID        string    `gorm:"size:36;primaryKey" json:"id"`
	MatchID   string    `gorm:"size:36;not null;index:idx_chat_match_ts,priority:1" json:"match_id"`
	SenderID  string    `gorm:"size:36;not null" json:"sender_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	VisibleTo string    `gorm:"size:36" json:"-"`
	Timestamp time.Time `gorm:"not null;index:idx_chat_match_ts,priority:2" json:"timestamp"`
}

func (m *ChatMessage) IsSystem() bool {
	return m.SenderID == SystemSender
}

// VisibleFor reports whether userID may read the message.
func (m *ChatMessage) VisibleFor(userID string) bool {
	return m.VisibleTo == "" || m.VisibleTo == userID
}
