package ws

import (
	"encoding/json"
	"errors"
)

// Client to server event names.
const (
	clientAnnouncePresence = "announcePresence"
	clientJoinRoom         = "joinRoom"
	clientLeaveRoom        = "leaveRoom"
	clientTyping           = "typing"
	clientSendMessage      = "sendMessage"
)

// clientFrame is what a client sends: {"event": ..., "data": ...}.
type clientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type announcePayload struct {
	UserID string `json:"userId"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

// TypingPayload is relayed to the other sessions in a room.
type TypingPayload struct {
	RoomID   string `json:"roomId"`
	SenderID string `json:"senderId"`
	IsTyping bool   `json:"isTyping"`
}

type sendPayload struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// decodeRoomID accepts either {"roomId": "..."} or a bare JSON string.
func decodeRoomID(raw json.RawMessage) string {
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err == nil && p.RoomID != "" {
		return p.RoomID
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	return ""
}

// decodeUserID accepts either {"userId": "..."} or a bare JSON string.
func decodeUserID(raw json.RawMessage) string {
	var p announcePayload
	if err := json.Unmarshal(raw, &p); err == nil && p.UserID != "" {
		return p.UserID
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	return ""
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(raw, v)
}
