package domain

import "time"

// ChatMessage is immutable once created. Seq and SentAt are assigned by the
// registry when it relays the message; ordering is registry receipt order.
type ChatMessage struct {
	RoomID     RoomID        `json:"-"`
	SenderID   ParticipantID `json:"socketId"`
	SenderName string        `json:"userName"`
	Body       string        `json:"message"`
	SentAt     time.Time     `json:"sentAt"`
	Seq        uint64        `json:"seq"`
}
