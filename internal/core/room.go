package core

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

var ErrNoSuchMember = errors.New("no such member")

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room *domain.Room

	mu      sync.Mutex
	members map[domain.ParticipantID]MemberSession
	claim   *domain.ScreenShareClaim
	chatSeq uint64
	ended   bool
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room:    room,
		members: make(map[domain.ParticipantID]MemberSession),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *roomImpl) Snapshot() []domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Participant, 0, len(r.members))
	for _, ms := range r.members {
		out = append(out, *ms.Meta())
	}
	return out
}

func (r *roomImpl) Member(id domain.ParticipantID) (MemberSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.members[id]
	return ms, ok
}

func (r *roomImpl) AddMember(ms MemberSession) {
	id := ms.Meta().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[id] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(id)).Msg("member added")
}

func (r *roomImpl) Join(ms MemberSession, asHost bool, announce Frame) (JoinSnapshot, bool) {
	id := ms.Meta().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return JoinSnapshot{}, false
	}
	if asHost && r.room.HostID == "" {
		r.room.HostID = id
	}
	snap := JoinSnapshot{Roster: make([]domain.Participant, 0, len(r.members))}
	for _, m := range r.members {
		snap.Roster = append(snap.Roster, *m.Meta())
	}
	if r.claim != nil {
		snap.Holder = r.claim.HolderID
	}
	// Announce before inserting, so the joiner never receives its own notice
	// and everyone present at snapshot time learns of the newcomer.
	snap.Publish = r.fanout(id, announce)
	r.members[id] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(id)).Int("present", len(snap.Roster)).Msg("member joined")
	return snap, true
}

func (r *roomImpl) RemoveMember(id domain.ParticipantID) (MemberSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.members[id]
	if !ok {
		return nil, false
	}
	delete(r.members, id)
	released := false
	if r.claim != nil && r.claim.HolderID == id {
		r.claim = nil
		released = true
	}
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(id)).Bool("claim_released", released).Msg("member removed")
	return ms, released
}

func (r *roomImpl) SetMediaFlag(id domain.ParticipantID, kind domain.MediaKind, enabled bool) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.members[id]
	if !ok {
		return domain.Participant{}, false
	}
	meta := ms.Meta()
	switch kind {
	case domain.MediaAudio:
		meta.Audio = enabled
	case domain.MediaVideo:
		meta.Video = enabled
	default:
		return domain.Participant{}, false
	}
	return *meta, true
}

func (r *roomImpl) SendTo(id domain.ParticipantID, data Frame) error {
	r.mu.Lock()
	ms, ok := r.members[id]
	r.mu.Unlock()
	if !ok {
		return ErrNoSuchMember
	}
	return ms.Signal().TrySend(data)
}

func (r *roomImpl) Broadcast(from domain.ParticipantID, data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fanout(from, data)
}

func (r *roomImpl) BroadcastAll(data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fanout("", data)
}

// fanout must run under r.mu.
func (r *roomImpl) fanout(skip domain.ParticipantID, data Frame) PublishResult {
	res := PublishResult{}
	for id, ms := range r.members {
		if id == skip {
			continue
		}
		if err := ms.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, ms)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.room.ID)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) ClaimShare(id domain.ParticipantID) (domain.ScreenShareClaim, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claim != nil && r.claim.HolderID != id {
		return *r.claim, false
	}
	if r.claim == nil {
		r.claim = &domain.ScreenShareClaim{HolderID: id, ClaimedAt: time.Now()}
		log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(id)).Msg("screen share claimed")
	}
	return *r.claim, true
}

func (r *roomImpl) ReleaseShare(id domain.ParticipantID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claim == nil || r.claim.HolderID != id {
		return false
	}
	r.claim = nil
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(id)).Msg("screen share released")
	return true
}

func (r *roomImpl) ShareHolder() (domain.ParticipantID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claim == nil {
		return "", false
	}
	return r.claim.HolderID, true
}

func (r *roomImpl) AppendChat(sender *domain.Participant, body string, encode func(domain.ChatMessage) (Frame, error)) (domain.ChatMessage, PublishResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatSeq++
	msg := domain.ChatMessage{
		RoomID:     r.room.ID,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Body:       body,
		SentAt:     time.Now(),
		Seq:        r.chatSeq,
	}
	data, err := encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("room", string(r.room.ID)).Msg("chat encode")
		return msg, PublishResult{}
	}
	return msg, r.fanout("", data)
}

func (r *roomImpl) MarkEnded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = true
}

func (r *roomImpl) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}
