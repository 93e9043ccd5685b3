package models

import "time"

// AttachmentPlaceholder replaces the room summary when a message has no text.
const AttachmentPlaceholder = "[Attachment]"

// Message is a persisted chat message.
type Message struct {
	ID         string    `db:"id" json:"id"`
	RoomID     string    `db:"room_id" json:"room_id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	Text       *string   `db:"text" json:"text,omitempty"`
	Attachment *string   `db:"attachment" json:"attachment,omitempty"`
	Read       bool      `db:"read" json:"read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// TextOrEmpty returns the text or "" when absent.
func (m Message) TextOrEmpty() string {
	if m.Text == nil {
		return ""
	}
	return *m.Text
}

// Summary is the text shown as a room's last message.
func (m Message) Summary() string {
	if m.Text != nil && *m.Text != "" {
		return *m.Text
	}
	return AttachmentPlaceholder
}

// MessageView is a message with the sender projected for clients.
type MessageView struct {
	ID         string    `json:"_id"`
	RoomID     string    `json:"room"`
	Sender     UserRef   `json:"sender"`
	Text       *string   `json:"text,omitempty"`
	Attachment *string   `json:"attachment,omitempty"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewMessageView projects msg with the resolved sender.
func NewMessageView(msg Message, sender UserRef) MessageView {
	return MessageView{
		ID:         msg.ID,
		RoomID:     msg.RoomID,
		Sender:     sender,
		Text:       msg.Text,
		Attachment: msg.Attachment,
		Read:       msg.Read,
		CreatedAt:  msg.CreatedAt,
	}
}
