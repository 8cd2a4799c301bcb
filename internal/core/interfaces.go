package core

import (
	"github.com/dkeye/Meet/internal/domain"
)

// Frame is an encoded signaling payload.
type Frame []byte

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds domain.Participant and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Participant
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []MemberSession
}

// RoomService is the registry-facing API of a room. It owns the membership
// set and the screen-share claim but never touches transport resources.
// All methods serialize on the room's own lock; different rooms never contend.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	Snapshot() []domain.Participant
	Member(id domain.ParticipantID) (MemberSession, bool)

	AddMember(ms MemberSession)
	// Join binds the host slot when asHost and it is free, snapshots the
	// roster, installs the member and fans announce out to everyone already
	// present, all in one critical section. Two concurrent joiners therefore
	// each see the other in the snapshot or receive its announcement, never
	// neither. Returns ok=false when the room has been marked ended.
	Join(ms MemberSession, asHost bool, announce Frame) (snap JoinSnapshot, ok bool)
	// RemoveMember drops the member and implicitly releases its screen-share
	// claim. claimReleased tells the caller whether a stop notice is due.
	RemoveMember(id domain.ParticipantID) (ms MemberSession, claimReleased bool)

	// SetMediaFlag flips a member's audio/video flag under the room lock and
	// returns the updated meta.
	SetMediaFlag(id domain.ParticipantID, kind domain.MediaKind, enabled bool) (domain.Participant, bool)

	SendTo(id domain.ParticipantID, data Frame) error
	Broadcast(from domain.ParticipantID, data Frame) PublishResult
	BroadcastAll(data Frame) PublishResult

	// ClaimShare is the compare-and-set floor acquisition: it succeeds only
	// if no live claim exists or the caller already holds it.
	ClaimShare(id domain.ParticipantID) (domain.ScreenShareClaim, bool)
	ReleaseShare(id domain.ParticipantID) bool
	ShareHolder() (domain.ParticipantID, bool)

	// AppendChat stamps the message with the room's next sequence number and
	// fans it out to every member (sender included) in one critical section,
	// so every member observes the same total order.
	AppendChat(sender *domain.Participant, body string, encode func(domain.ChatMessage) (Frame, error)) (domain.ChatMessage, PublishResult)

	MarkEnded()
	Ended() bool
}

// JoinSnapshot is what a Join observed inside its critical section: the
// roster as it stood before the joiner, the current share holder and the
// delivery result of the join announcement.
type JoinSnapshot struct {
	Roster  []domain.Participant
	Holder  domain.ParticipantID
	Publish PublishResult
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

// RoomManager owns the room map. Operations on different rooms proceed in
// parallel; the manager lock only guards the map itself.
type RoomManager interface {
	GetOrCreate(room *domain.Room) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	Drop(id domain.RoomID)
	List() []RoomInfo
}
