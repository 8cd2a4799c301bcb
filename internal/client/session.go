// Package client is the meeting participant: one session per joined meeting,
// one goroutine driving everything. Signaling messages, pion callbacks, timer
// fires and user commands all funnel into a single loop, so none of the
// client state needs locking.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/client/chat"
	"github.com/dkeye/Meet/internal/client/media"
	"github.com/dkeye/Meet/internal/client/peer"
	"github.com/dkeye/Meet/internal/client/roster"
	"github.com/dkeye/Meet/internal/client/rtc"
	"github.com/dkeye/Meet/internal/client/signaling"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/wire"
)

var ErrJoinRefused = errors.New("join refused")

// Signaler is the slice of the websocket client the session uses.
type Signaler interface {
	Incoming() <-chan wire.Message
	Send(msg wire.Message) error
	Close()
}

type Options struct {
	ServerURL      string
	MeetingID      string
	Name           string
	Host           bool
	Audio          bool
	Video          bool
	ICEServers     []string
	ConnectTimeout time.Duration
}

type Session struct {
	opts     Options
	sig      Signaler
	pipeline *media.Pipeline
	peers    *peer.Orchestrator
	roster   *roster.Roster
	log      *chat.Log
	render   RenderSink

	selfID domain.ParticipantID
	joined bool
	share  shareState

	// Room events that outrun the join burst wait here and replay after it.
	pending []wire.Message

	tasks    chan func()
	commands chan Command
	done     chan struct{}
}

func NewSession(opts Options, sig Signaler, pipeline *media.Pipeline, render RenderSink) *Session {
	rtcCfg := rtc.NewConfig(opts.ICEServers)
	return newSession(opts, sig, pipeline, render, func(remote domain.ParticipantID) (peer.MediaConn, error) {
		return rtc.NewConnection(rtcCfg, remote)
	})
}

func newSession(opts Options, sig Signaler, pipeline *media.Pipeline, render RenderSink, dial peer.DialFunc) *Session {
	s := &Session{
		opts:     opts,
		sig:      sig,
		pipeline: pipeline,
		roster:   roster.New(),
		log:      chat.NewLog(),
		render:   render,
		share:    shareIdle,
		tasks:    make(chan func(), 64),
		commands: make(chan Command, 16),
		done:     make(chan struct{}),
	}

	s.peers = peer.NewOrchestrator(peer.Hooks{
		Dial:   dial,
		Send:   s.send,
		Attach: func(remote domain.ParticipantID, conn peer.MediaConn) error { return pipeline.Attach(remote, conn) },
		Detach: pipeline.Detach,
		Post:   s.post,
		OnConnected: func(remote domain.ParticipantID) {
			s.render.PeerConnected(remote)
		},
		OnFailed: func(remote domain.ParticipantID, reason string) {
			s.render.PeerFailed(remote, reason)
		},
		OnTrack: func(remote domain.ParticipantID, track *webrtc.TrackRemote) {
			s.render.RemoteTrack(remote, track.Kind().String())
		},
	}, opts.ConnectTimeout)

	return s
}

// Peers exposes the arena for inspection.
func (s *Session) Peers() *peer.Orchestrator { return s.peers }

func (s *Session) Roster() *roster.Roster { return s.roster }

func (s *Session) Chat() *chat.Log { return s.log }

func (s *Session) SelfID() domain.ParticipantID { return s.selfID }

// Command feeds a user action into the loop. Safe from any goroutine.
func (s *Session) Command(cmd Command) {
	select {
	case s.commands <- cmd:
	case <-s.done:
	}
}

// post enqueues a closure onto the loop; used by pion callbacks and timers.
func (s *Session) post(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.done:
	}
}

// Run joins the meeting and drives the session until the meeting ends, the
// transport drops, the user quits or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	defer s.shutdown()

	if err := s.sig.Send(wire.Message{
		Type:     wire.TypeJoinRoom,
		RoomID:   s.opts.MeetingID,
		UserName: s.opts.Name,
		IsHost:   s.opts.Host,
	}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	for {
		select {
		case msg, ok := <-s.sig.Incoming():
			if !ok {
				// Transport drop equals leaving; the registry concludes the
				// same on its side.
				s.render.MeetingEnded("connection lost")
				return nil
			}
			if done, err := s.handleMessage(msg); done {
				return err
			}
		case fn := <-s.tasks:
			fn()
		case cmd := <-s.commands:
			if s.handleCommand(cmd) {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) shutdown() {
	close(s.done)
	s.peers.CloseAll()
	s.sig.Close()
}

// handleMessage returns done=true when the session should end.
func (s *Session) handleMessage(msg wire.Message) (bool, error) {
	if !s.joined {
		switch msg.Type {
		case wire.TypeExistingParticipants:
			return s.handleBurst(msg)
		case wire.TypeError:
			return true, fmt.Errorf("%w: %s", ErrJoinRefused, msg.Body)
		default:
			// The burst is the anchor; anything arriving ahead of it waits.
			s.pending = append(s.pending, msg)
			return false, nil
		}
	}

	switch msg.Type {
	case wire.TypeUserJoined:
		s.roster.Join(domain.ParticipantID(msg.SocketID), msg.UserName)
		s.render.RosterChanged(s.roster.Snapshot())

	case wire.TypeUserLeft:
		id := domain.ParticipantID(msg.SocketID)
		s.roster.Leave(id)
		s.peers.Remove(id)
		s.render.RosterChanged(s.roster.Snapshot())

	case wire.TypeOffer:
		if err := s.peers.HandleOffer(domain.ParticipantID(msg.From), msg.SDP); err != nil {
			log.Error().Err(err).Str("module", "client").Str("from", msg.From).Msg("offer")
		}

	case wire.TypeAnswer:
		if err := s.peers.HandleAnswer(domain.ParticipantID(msg.From), msg.SDP); err != nil {
			log.Error().Err(err).Str("module", "client").Str("from", msg.From).Msg("answer")
		}

	case wire.TypeICECandidate:
		if err := s.peers.HandleCandidate(domain.ParticipantID(msg.From), msg); err != nil {
			log.Warn().Err(err).Str("module", "client").Str("from", msg.From).Msg("candidate")
		}

	case wire.TypeAudioChanged, wire.TypeVideoChanged:
		if msg.Enabled != nil {
			s.roster.SetMedia(domain.ParticipantID(msg.SocketID), kindFromType(msg.Type), *msg.Enabled)
			s.render.RosterChanged(s.roster.Snapshot())
		}

	case wire.TypeStartScreenShare:
		s.handleShareStarted(domain.ParticipantID(msg.SocketID))

	case wire.TypeStopScreenShare:
		s.handleShareStopped(domain.ParticipantID(msg.SocketID))

	case wire.TypeScreenShareDenied:
		if s.share == shareRequesting {
			s.share = shareIdle
		}
		s.render.ScreenShareDenied(domain.ParticipantID(msg.SocketID))

	case wire.TypeChatMessage:
		s.handleChat(msg)

	case wire.TypeMeetingEnded:
		s.render.MeetingEnded(msg.Body)
		return true, nil

	case wire.TypeError:
		s.render.Notice("server error: " + msg.Body)
	}
	return false, nil
}

func (s *Session) handleBurst(msg wire.Message) (bool, error) {
	s.selfID = domain.ParticipantID(msg.SocketID)
	s.roster.Seed(msg.Participants)
	s.joined = true
	log.Info().Str("module", "client").Str("self", msg.SocketID).Int("present", len(msg.Participants)).Msg("joined")
	s.render.RosterChanged(s.roster.Snapshot())

	// The newcomer offers to everyone already present.
	s.peers.StartOffers(s.roster.IDs())

	// A replayed event can be terminal, a meeting-ended queued in the gap
	// between admission and the burst ends the session right here.
	replay := s.pending
	s.pending = nil
	for _, m := range replay {
		if done, err := s.handleMessage(m); done {
			return done, err
		}
	}
	return false, nil
}

func (s *Session) handleShareStarted(holder domain.ParticipantID) {
	if holder == s.selfID {
		// The grant echo is the cue to actually swap the outbound video.
		if s.share != shareRequesting {
			return
		}
		added, err := s.pipeline.UseScreen()
		if err != nil {
			s.share = shareIdle
			s.render.Notice("screen capture failed: " + err.Error())
			s.send(wire.Message{Type: wire.TypeStopScreenShare})
			return
		}
		if added {
			// New senders changed the track-set shape; settled peers need
			// fresh offers. A plain source swap does not come here.
			s.peers.RenegotiateAll()
		}
		s.share = sharePresenting
		s.render.ScreenShareStarted(holder, true)
		return
	}
	s.roster.SetSharing(holder, true)
	s.render.ScreenShareStarted(holder, false)
	s.render.RosterChanged(s.roster.Snapshot())
}

func (s *Session) handleShareStopped(holder domain.ParticipantID) {
	if holder == s.selfID {
		if s.share == sharePresenting {
			if err := s.pipeline.UseCamera(); err != nil {
				s.render.Notice("camera restore failed: " + err.Error())
			}
		}
		s.share = shareIdle
		s.render.ScreenShareStopped(holder, true)
		return
	}
	s.roster.SetSharing(holder, false)
	s.render.ScreenShareStopped(holder, false)
	s.render.RosterChanged(s.roster.Snapshot())
}

func (s *Session) handleChat(msg wire.Message) {
	cm := domain.ChatMessage{
		RoomID:     domain.RoomID(s.opts.MeetingID),
		SenderID:   domain.ParticipantID(msg.SocketID),
		SenderName: msg.UserName,
		Body:       msg.Body,
		Seq:        msg.Seq,
	}
	if msg.SentAt != nil {
		cm.SentAt = *msg.SentAt
	}
	s.log.Append(cm)
	s.render.ChatReceived(cm)
}

// handleCommand returns true when the session should end.
func (s *Session) handleCommand(cmd Command) bool {
	switch cmd.Kind {
	case CmdChat:
		if cmd.Body != "" {
			s.send(wire.Message{Type: wire.TypeChatMessage, Body: cmd.Body})
		}

	case CmdStartShare:
		if s.share != shareIdle {
			return false
		}
		s.share = shareRequesting
		s.send(wire.Message{Type: wire.TypeStartScreenShare})

	case CmdStopShare:
		if s.share != sharePresenting {
			return false
		}
		s.send(wire.Message{Type: wire.TypeStopScreenShare})

	case CmdToggleAudio:
		enabled := !s.pipeline.AudioEnabled()
		s.pipeline.SetEnabled(domain.MediaAudio, enabled)
		s.send(wire.Message{Type: wire.TypeAudioChanged, Enabled: &enabled})

	case CmdToggleVideo:
		enabled := !s.pipeline.VideoEnabled()
		s.pipeline.SetEnabled(domain.MediaVideo, enabled)
		s.send(wire.Message{Type: wire.TypeVideoChanged, Enabled: &enabled})

	case CmdEndMeeting:
		s.send(wire.Message{Type: wire.TypeEndMeeting})

	case CmdQuit:
		return true
	}
	return false
}

func (s *Session) send(msg wire.Message) {
	if err := s.sig.Send(msg); err != nil {
		log.Warn().Err(err).Str("module", "client").Str("type", msg.Type).Msg("send")
	}
}

// Dial performs the full pre-join sequence: access check, media acquisition
// and the websocket connection, returning a ready-to-Run session.
func Dial(ctx context.Context, opts Options, capturer media.Capturer, render RenderSink) (*Session, error) {
	access, err := CheckAccess(ctx, opts.ServerURL, opts.MeetingID)
	if err != nil {
		return nil, err
	}
	if access.Verdict != app.VerdictValid {
		return nil, fmt.Errorf("%w: meeting %s", ErrJoinRefused, access.Verdict)
	}

	pipeline := media.NewPipeline(capturer)
	if err := pipeline.Acquire(opts.Audio, opts.Video); err != nil {
		return nil, fmt.Errorf("acquire media: %w", err)
	}

	wsURL, err := SignalURL(opts.ServerURL)
	if err != nil {
		return nil, err
	}
	sig := signaling.NewClient(wsURL, access.Header)
	if err := sig.Connect(); err != nil {
		return nil, err
	}

	return NewSession(opts, sig, pipeline, render), nil
}
