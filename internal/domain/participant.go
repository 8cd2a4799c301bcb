// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"
)

const MaxDisplayNameLen = 36

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
)

// ParticipantID is the opaque session identifier issued by the signaling
// channel. It is not a durable user id.
type ParticipantID string

// MediaKind names a toggleable outbound media flag.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

type Role string

const (
	RoleHost     Role = "host"
	RoleAttendee Role = "attendee"
)

// Participant is a room member's meta. No transport or lifecycle logic here.
type Participant struct {
	ID       ParticipantID `json:"socketId"`
	Name     string        `json:"userName"`
	Role     Role          `json:"role"`
	Audio    bool          `json:"audio"`
	Video    bool          `json:"video"`
	JoinedAt time.Time     `json:"joinedAt"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(id ParticipantID, name string, role Role) (*Participant, error) {
	if len(name) == 0 {
		return nil, ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	return &Participant{
		ID:       id,
		Name:     name,
		Role:     role,
		Audio:    true,
		Video:    true,
		JoinedAt: time.Now(),
	}, nil
}

func (p *Participant) IsHost() bool { return p.Role == RoleHost }
