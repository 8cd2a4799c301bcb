package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/wire"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// Kicks and teardown cancel the context; closing the conn here
			// unblocks the read pump so the leave path runs.
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			c.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid domain.ParticipantID, c *WsSignalConn, cancel context.CancelFunc) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		cancel()
		c.Close()
		// Transport-level disconnect is leave; there is no separate path.
		ctl.handleDisconnect(sid)
	}()

	c.conn.SetReadLimit(ctl.cfg.ReadLimit)

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(sid, c, data, cancel)
		}
	}
}

func (ctl *Controller) handleSignal(sid domain.ParticipantID, c *WsSignalConn, data []byte, cancel context.CancelFunc) {
	var msg wire.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch msg.Type {
	case wire.TypeJoinRoom:
		ctl.handleJoin(sid, c, msg, cancel)
	case wire.TypeOffer, wire.TypeAnswer, wire.TypeICECandidate:
		ctl.handleRelay(sid, c, msg)
	case wire.TypeAudioChanged:
		ctl.handleMediaToggle(sid, c, msg, domain.MediaAudio)
	case wire.TypeVideoChanged:
		ctl.handleMediaToggle(sid, c, msg, domain.MediaVideo)
	case wire.TypeStartScreenShare:
		ctl.handleStartShare(sid, c)
	case wire.TypeStopScreenShare:
		ctl.handleStopShare(sid)
	case wire.TypeChatMessage:
		ctl.handleChat(sid, c, msg)
	case wire.TypeEndMeeting:
		ctl.handleEndMeeting(sid, c)
	default:
		log.Warn().Str("module", "signal").Str("type", msg.Type).Msg("unknown signal")
		ctl.sendError(c, "unknown_type")
	}
}
