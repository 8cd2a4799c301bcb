package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

var (
	ErrNotInRoom = errors.New("not in a room")
	ErrNotHost   = errors.New("only the host may end the meeting")
)

// Orchestrator is the server-side facade: every signaling handler goes through
// it. It never encodes wire frames itself; adapters pass encoded frames in.
type Orchestrator struct {
	Registry  *Registry
	Rooms     core.RoomManager
	Gate      *Gate
	Directory MeetingDirectory
	Policy    Policy
}

// JoinResult carries everything the adapter needs to answer a join: the new
// member's meta, the roster as it stood before the join and the share holder
// observed at that same instant.
type JoinResult struct {
	Self   *domain.Participant
	Roster []domain.Participant
	Holder domain.ParticipantID
	Room   core.RoomService
}

// Join runs the lifecycle gate, creates the participant and adds it to the
// room, creating the room on first entry. Snapshot, insertion and the fanout
// of announce happen under the room lock, so concurrent joiners always learn
// of each other. The returned roster excludes the joiner itself.
func (o *Orchestrator) Join(sid domain.ParticipantID, meetingID, name string, isHost bool, conn core.SignalConnection, announce core.Frame, cancel context.CancelFunc) (*JoinResult, error) {
	if v := o.Gate.Admit(meetingID); v != VerdictValid {
		return nil, &JoinRefusedError{Verdict: v}
	}

	role := domain.RoleAttendee
	if isHost {
		role = domain.RoleHost
	}
	meta, err := domain.NewParticipant(sid, name, role)
	if err != nil {
		return nil, err
	}

	roomID := domain.RoomID(meetingID)
	room := o.Rooms.GetOrCreate(&domain.Room{ID: roomID})
	sess := core.NewMemberSession(meta, conn)
	snap, ok := room.Join(sess, isHost, announce)
	if !ok {
		// Terminated room mid-teardown; it no longer accepts joiners.
		return nil, &JoinRefusedError{Verdict: VerdictNotFound}
	}
	o.Registry.Bind(sid, sess, cancel)
	o.Registry.SetRoom(sid, roomID)
	o.applyPolicy(room, snap.Publish)

	if err := o.Directory.SetStatus(meetingID, domain.MeetingInProgress); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("meeting", meetingID).Msg("mark in-progress")
	}

	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomID)).Bool("host", isHost).Msg("joined")
	return &JoinResult{Self: meta, Roster: snap.Roster, Holder: snap.Holder, Room: room}, nil
}

// LeaveResult tells the adapter what notices to fan out after a departure.
type LeaveResult struct {
	Self          *domain.Participant
	Room          core.RoomService
	ClaimReleased bool
	RoomEmptied   bool
}

// Leave removes the member from its room and releases any screen-share claim
// it held. Abrupt transport disconnects funnel into the same path; there is
// no separate disconnect handling.
func (o *Orchestrator) Leave(sid domain.ParticipantID) (*LeaveResult, error) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		o.Registry.Unbind(sid)
		return nil, ErrNotInRoom
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		o.Registry.Unbind(sid)
		return nil, ErrNotInRoom
	}

	ms, released := room.RemoveMember(sid)
	o.Registry.ClearRoom(sid)
	o.Registry.Unbind(sid)
	if ms == nil {
		return nil, ErrNotInRoom
	}

	res := &LeaveResult{Self: ms.Meta(), Room: room, ClaimReleased: released}
	if room.MemberCount() == 0 && !room.Ended() {
		o.Rooms.Drop(roomID)
		if err := o.Directory.SetStatus(string(roomID), domain.MeetingEnded); err != nil {
			log.Warn().Err(err).Str("module", "app.orch").Str("meeting", string(roomID)).Msg("mark ended")
		}
		res.RoomEmptied = true
	}
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("left")
	return res, nil
}

// Relay forwards an opaque signaling frame to exactly one target in the
// sender's room, unmodified.
func (o *Orchestrator) Relay(from, to domain.ParticipantID, data core.Frame) error {
	room, err := o.roomOf(from)
	if err != nil {
		return err
	}
	return room.SendTo(to, data)
}

// SetMediaState flips the audio/video flag on the member's meta and fans the
// change out to the rest of the room under the usual backpressure policy.
// Mute toggles never touch negotiation.
func (o *Orchestrator) SetMediaState(sid domain.ParticipantID, kind domain.MediaKind, enabled bool, encode func(domain.Participant) (core.Frame, error)) (domain.Participant, error) {
	room, err := o.roomOf(sid)
	if err != nil {
		return domain.Participant{}, err
	}
	meta, ok := room.SetMediaFlag(sid, kind, enabled)
	if !ok {
		return domain.Participant{}, ErrNotInRoom
	}
	data, err := encode(meta)
	if err != nil {
		return meta, err
	}
	o.applyPolicy(room, room.Broadcast(sid, data))
	return meta, nil
}

// ClaimScreen is the authoritative floor acquisition. Exactly one of two
// simultaneous claims succeeds; the loser learns who holds the floor.
func (o *Orchestrator) ClaimScreen(sid domain.ParticipantID) (granted bool, holder domain.ParticipantID, room core.RoomService, err error) {
	room, err = o.roomOf(sid)
	if err != nil {
		return false, "", nil, err
	}
	claim, ok := room.ClaimShare(sid)
	return ok, claim.HolderID, room, nil
}

// ReleaseScreen is a no-op unless the caller is the current claimant.
func (o *Orchestrator) ReleaseScreen(sid domain.ParticipantID) (released bool, room core.RoomService, err error) {
	room, err = o.roomOf(sid)
	if err != nil {
		return false, nil, err
	}
	return room.ReleaseShare(sid), room, nil
}

// Chat stamps and fans out a chat message in registry order.
func (o *Orchestrator) Chat(sid domain.ParticipantID, body string, encode func(domain.ChatMessage) (core.Frame, error)) (domain.ChatMessage, error) {
	room, err := o.roomOf(sid)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	ms, ok := room.Member(sid)
	if !ok {
		return domain.ChatMessage{}, ErrNotInRoom
	}
	msg, res := room.AppendChat(ms.Meta(), body, encode)
	o.applyPolicy(room, res)
	return msg, nil
}

// EndMeeting validates the caller is the host and marks the room ended. The
// adapter broadcasts the termination notice, then calls TeardownRoom.
func (o *Orchestrator) EndMeeting(sid domain.ParticipantID) (core.RoomService, error) {
	room, err := o.roomOf(sid)
	if err != nil {
		return nil, err
	}
	ms, ok := room.Member(sid)
	if !ok {
		return nil, ErrNotInRoom
	}
	if !ms.Meta().IsHost() {
		return nil, ErrNotHost
	}
	room.MarkEnded()
	return room, nil
}

// TeardownRoom cancels every remaining session and drops the room. A
// terminated room ceases to exist; later joins see not-found.
func (o *Orchestrator) TeardownRoom(room core.RoomService) {
	roomID := room.Room().ID
	for _, p := range room.Snapshot() {
		room.RemoveMember(p.ID)
		o.Registry.ClearRoom(p.ID)
		o.Registry.Cancel(p.ID)
	}
	o.Rooms.Drop(roomID)
	if err := o.Directory.SetStatus(string(roomID), domain.MeetingEnded); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("meeting", string(roomID)).Msg("mark ended")
	}
	log.Info().Str("module", "app.orch").Str("room", string(roomID)).Msg("room torn down")
}

// BroadcastFrom fans a frame out to everyone but the sender.
func (o *Orchestrator) BroadcastFrom(sid domain.ParticipantID, data core.Frame) error {
	room, err := o.roomOf(sid)
	if err != nil {
		return err
	}
	o.applyPolicy(room, room.Broadcast(sid, data))
	return nil
}

func (o *Orchestrator) roomOf(sid domain.ParticipantID) (core.RoomService, error) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return nil, ErrNotInRoom
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return nil, ErrNotInRoom
	}
	return room, nil
}

func (o *Orchestrator) applyPolicy(room core.RoomService, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case KickMember:
			o.Registry.Cancel(slow.Meta().ID)
		case MarkSlow, DropFrame, NoAction:
		}
	}
}
