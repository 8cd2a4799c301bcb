package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/wire"
)

// handleMediaToggle records a mute/unmute and fans the new state out so remote
// UIs reflect it. No negotiation is involved.
func (ctl *Controller) handleMediaToggle(
	sid domain.ParticipantID,
	conn *WsSignalConn,
	msg wire.Message,
	kind domain.MediaKind,
) {
	if msg.Enabled == nil {
		ctl.sendError(conn, "bad_payload")
		return
	}
	_, err := ctl.Orch.SetMediaState(sid, kind, *msg.Enabled, func(domain.Participant) (core.Frame, error) {
		return encodeMsg(wire.Message{
			Type:     msg.Type,
			SocketID: string(sid),
			Enabled:  msg.Enabled,
		})
	})
	if err != nil {
		ctl.sendError(conn, "not_in_room")
		return
	}
	log.Debug().Str("module", "signal").Str("sid", string(sid)).Str("kind", string(kind)).Bool("enabled", *msg.Enabled).Msg("media toggle")
}

// handleStartShare arbitrates the presenter slot. The claim is compare-and-set
// at the registry; of two simultaneous claims exactly one is granted.
func (ctl *Controller) handleStartShare(sid domain.ParticipantID, conn *WsSignalConn) {
	granted, holder, room, err := ctl.Orch.ClaimScreen(sid)
	if err != nil {
		ctl.sendError(conn, "not_in_room")
		return
	}
	if !granted {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Str("holder", string(holder)).Msg("screen share denied")
		ctl.sendMsg(conn, wire.Message{
			Type:     wire.TypeScreenShareDenied,
			SocketID: string(holder),
		})
		return
	}

	// The grant goes to everyone including the claimant; the claimant treats
	// it as the signal to actually swap its outbound video.
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("screen share started")
	data, err := encodeMsg(wire.Message{
		Type:     wire.TypeStartScreenShare,
		SocketID: string(sid),
	})
	if err != nil {
		return
	}
	room.BroadcastAll(data)
}

func (ctl *Controller) handleStopShare(sid domain.ParticipantID) {
	released, room, err := ctl.Orch.ReleaseScreen(sid)
	if err != nil || !released {
		// Release by a non-claimant is a no-op.
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("screen share stopped")
	data, err := encodeMsg(wire.Message{
		Type:     wire.TypeStopScreenShare,
		SocketID: string(sid),
	})
	if err != nil {
		return
	}
	room.BroadcastAll(data)
}
