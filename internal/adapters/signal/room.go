package signal

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/wire"
)

func (ctl *Controller) handleJoin(
	sid domain.ParticipantID,
	conn *WsSignalConn,
	msg wire.Message,
	cancel context.CancelFunc,
) {
	name := msg.UserName
	if name == "" {
		name = "guest"
	}

	// The user-joined notice fans out inside the join's critical section, so
	// members who miss the joiner in their own snapshot still hear about it.
	announce, err := encodeMsg(wire.Message{
		Type:     wire.TypeUserJoined,
		SocketID: string(sid),
		UserName: name,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("join encode")
		ctl.sendError(conn, "bad_payload")
		return
	}

	res, err := ctl.Orch.Join(sid, msg.RoomID, name, msg.IsHost, conn, announce, cancel)
	if err != nil {
		var refused *app.JoinRefusedError
		if errors.As(err, &refused) {
			// Distinct expired / not-found / cancelled reason; fatal to the
			// join attempt.
			ctl.sendError(conn, string(refused.Verdict))
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("join")
		ctl.sendError(conn, "bad_payload")
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", msg.RoomID).Msg("join")

	burst := make([]wire.Participant, 0, len(res.Roster))
	for _, p := range res.Roster {
		burst = append(burst, wire.Participant{
			SocketID: string(p.ID),
			UserName: p.Name,
			Audio:    p.Audio,
			Video:    p.Video,
			Sharing:  p.ID == res.Holder,
		})
	}
	// SocketID doubles as the joiner's assigned participant id.
	ctl.sendMsg(conn, wire.Message{
		Type:         wire.TypeExistingParticipants,
		RoomID:       msg.RoomID,
		SocketID:     string(sid),
		Participants: burst,
	})
}

// handleDisconnect runs when the read pump exits for any reason. Leaving and
// dropping the transport are the same event.
func (ctl *Controller) handleDisconnect(sid domain.ParticipantID) {
	res, err := ctl.Orch.Leave(sid)
	if err != nil {
		return
	}

	if res.ClaimReleased {
		ctl.broadcastRoom(res.Room, wire.Message{
			Type:     wire.TypeStopScreenShare,
			SocketID: string(sid),
		})
	}
	ctl.broadcastRoom(res.Room, wire.Message{
		Type:     wire.TypeUserLeft,
		SocketID: string(sid),
		UserName: res.Self.Name,
	})
}

func (ctl *Controller) handleEndMeeting(sid domain.ParticipantID, conn *WsSignalConn) {
	room, err := ctl.Orch.EndMeeting(sid)
	if err != nil {
		if errors.Is(err, app.ErrNotHost) {
			ctl.sendError(conn, "not_authorized")
			return
		}
		ctl.sendError(conn, "not_in_room")
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(room.Room().ID)).Msg("end meeting")
	ctl.broadcastRoom(room, wire.Message{
		Type: wire.TypeMeetingEnded,
		Body: "meeting ended by host",
	})
	ctl.Orch.TeardownRoom(room)
}

func (ctl *Controller) broadcastRoom(room core.RoomService, msg wire.Message) {
	data, err := encodeMsg(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("broadcast encode")
		return
	}
	room.BroadcastAll(data)
}
