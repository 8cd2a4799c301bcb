package domain

import "time"

// RoomID matches the meeting id the room was opened for.
type RoomID string

type Room struct {
	ID     RoomID
	HostID ParticipantID
}

// ScreenShareClaim is the room-scoped presenter slot. At most one lives per
// room; the timestamp is assigned by the registry, not the claimant.
type ScreenShareClaim struct {
	HolderID  ParticipantID
	ClaimedAt time.Time
}
