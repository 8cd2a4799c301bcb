package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/wire"
)

// handleChat appends a message to the room's totally ordered stream. Stamping
// and fanout happen in one critical section inside the room, so every member
// sees the same order.
func (ctl *Controller) handleChat(sid domain.ParticipantID, conn *WsSignalConn, msg wire.Message) {
	if msg.Body == "" {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if !ctl.chatLimiter.Allow(sid) {
		ctl.sendError(conn, "rate_limited")
		return
	}

	sent, err := ctl.Orch.Chat(sid, msg.Body, func(m domain.ChatMessage) (core.Frame, error) {
		return encodeMsg(wire.Message{
			Type:     wire.TypeChatMessage,
			SocketID: string(m.SenderID),
			UserName: m.SenderName,
			Body:     m.Body,
			SentAt:   &m.SentAt,
			Seq:      m.Seq,
		})
	})
	if err != nil {
		ctl.sendError(conn, "not_in_room")
		return
	}
	log.Debug().Str("module", "signal").Str("sid", string(sid)).Uint64("seq", sent.Seq).Msg("chat relayed")
}
