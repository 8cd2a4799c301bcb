package client

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/client/roster"
	"github.com/dkeye/Meet/internal/domain"
)

// RenderSink receives everything a front end would paint. All calls come from
// the session loop, in order.
type RenderSink interface {
	RosterChanged(entries []roster.Entry)
	ChatReceived(msg domain.ChatMessage)
	ScreenShareStarted(holder domain.ParticipantID, self bool)
	ScreenShareStopped(holder domain.ParticipantID, self bool)
	ScreenShareDenied(holder domain.ParticipantID)
	PeerConnected(remote domain.ParticipantID)
	PeerFailed(remote domain.ParticipantID, reason string)
	RemoteTrack(remote domain.ParticipantID, kind string)
	MeetingEnded(reason string)
	Notice(text string)
}

// LogRenderer is the headless sink: it narrates the meeting into the
// structured log. The terminal client uses it directly.
type LogRenderer struct {
	log zerolog.Logger
}

func NewLogRenderer() *LogRenderer {
	return &LogRenderer{log: log.With().Str("module", "client.render").Logger()}
}

func (r *LogRenderer) RosterChanged(entries []roster.Entry) {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	r.log.Info().Strs("participants", names).Msg("roster")
}

func (r *LogRenderer) ChatReceived(msg domain.ChatMessage) {
	r.log.Info().Str("from", msg.SenderName).Uint64("seq", msg.Seq).Msg(msg.Body)
}

func (r *LogRenderer) ScreenShareStarted(holder domain.ParticipantID, self bool) {
	r.log.Info().Str("holder", string(holder)).Bool("self", self).Msg("screen share started")
}

func (r *LogRenderer) ScreenShareStopped(holder domain.ParticipantID, self bool) {
	r.log.Info().Str("holder", string(holder)).Bool("self", self).Msg("screen share stopped")
}

func (r *LogRenderer) ScreenShareDenied(holder domain.ParticipantID) {
	r.log.Warn().Str("holder", string(holder)).Msg("screen share denied, someone is presenting")
}

func (r *LogRenderer) PeerConnected(remote domain.ParticipantID) {
	r.log.Info().Str("remote", string(remote)).Msg("peer connected")
}

func (r *LogRenderer) PeerFailed(remote domain.ParticipantID, reason string) {
	r.log.Warn().Str("remote", string(remote)).Str("reason", reason).Msg("peer failed")
}

func (r *LogRenderer) RemoteTrack(remote domain.ParticipantID, kind string) {
	r.log.Info().Str("remote", string(remote)).Str("kind", kind).Msg("remote track")
}

func (r *LogRenderer) MeetingEnded(reason string) {
	r.log.Info().Str("reason", reason).Msg("meeting ended")
}

func (r *LogRenderer) Notice(text string) {
	r.log.Info().Msg(text)
}
