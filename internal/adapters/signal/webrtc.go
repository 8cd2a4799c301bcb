package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/wire"
)

// handleRelay forwards offers, answers and trickled ICE candidates to exactly
// one target participant, unmodified except for stamping From.
func (ctl *Controller) handleRelay(
	sid domain.ParticipantID,
	conn *WsSignalConn,
	msg wire.Message,
) {
	if msg.To == "" {
		ctl.sendError(conn, "missing relay target")
		return
	}
	target := domain.ParticipantID(msg.To)
	msg.From = string(sid)
	msg.To = ""

	data, err := encodeMsg(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("relay encode")
		return
	}
	if err := ctl.Orch.Relay(sid, target, data); err != nil {
		if errors.Is(err, core.ErrNoSuchMember) || errors.Is(err, app.ErrNotInRoom) {
			ctl.sendError(conn, "unknown relay target")
			return
		}
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("to", string(target)).Msg("relay")
	}
}
