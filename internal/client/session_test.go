package client

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Meet/internal/client/media"
	"github.com/dkeye/Meet/internal/client/peer"
	"github.com/dkeye/Meet/internal/client/roster"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/wire"
)

type fakeSignaler struct {
	incoming chan wire.Message
	sent     []wire.Message
}

func newFakeSignaler() *fakeSignaler {
	return &fakeSignaler{incoming: make(chan wire.Message, 16)}
}

func (f *fakeSignaler) Incoming() <-chan wire.Message { return f.incoming }
func (f *fakeSignaler) Send(msg wire.Message) error   { f.sent = append(f.sent, msg); return nil }
func (f *fakeSignaler) Close()                        {}

func (f *fakeSignaler) sentOfType(typ string) []wire.Message {
	var out []wire.Message
	for _, m := range f.sent {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type fakeMediaConn struct{}

func (fakeMediaConn) Start() {}
func (fakeMediaConn) CreateOffer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "o"}, nil
}
func (fakeMediaConn) CreateAnswer(webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "a"}, nil
}
func (fakeMediaConn) ApplyAnswer(webrtc.SessionDescription) error  { return nil }
func (fakeMediaConn) AddICECandidate(webrtc.ICECandidateInit) error { return nil }
func (fakeMediaConn) AddTrack(webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	return nil, nil
}
func (fakeMediaConn) Close()                                                  {}
func (fakeMediaConn) OnICECandidate(func(webrtc.ICECandidateInit))            {}
func (fakeMediaConn) OnConnectionStateChange(func(webrtc.PeerConnectionState)) {}
func (fakeMediaConn) OnTrack(func(*webrtc.TrackRemote, *webrtc.RTPReceiver))  {}

type fakeCapturer struct{ displayCalls int }

func (f *fakeCapturer) UserMedia(wantAudio, wantVideo bool) (webrtc.TrackLocal, webrtc.TrackLocal, error) {
	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "capture")
	if err != nil {
		return nil, nil, err
	}
	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "camera", "capture")
	if err != nil {
		return nil, nil, err
	}
	return audio, video, nil
}

func (f *fakeCapturer) Display() (webrtc.TrackLocal, error) {
	f.displayCalls++
	return webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "screen", "capture")
}

type recordingSink struct {
	rosterChanges int
	chats         []domain.ChatMessage
	shareStarts   []domain.ParticipantID
	shareStops    []domain.ParticipantID
	denials       []domain.ParticipantID
	ended         []string
	notices       []string
}

func (r *recordingSink) RosterChanged([]roster.Entry) { r.rosterChanges++ }
func (r *recordingSink) ChatReceived(m domain.ChatMessage) {
	r.chats = append(r.chats, m)
}
func (r *recordingSink) ScreenShareStarted(h domain.ParticipantID, self bool) {
	r.shareStarts = append(r.shareStarts, h)
}
func (r *recordingSink) ScreenShareStopped(h domain.ParticipantID, self bool) {
	r.shareStops = append(r.shareStops, h)
}
func (r *recordingSink) ScreenShareDenied(h domain.ParticipantID) {
	r.denials = append(r.denials, h)
}
func (r *recordingSink) PeerConnected(domain.ParticipantID)      {}
func (r *recordingSink) PeerFailed(domain.ParticipantID, string) {}
func (r *recordingSink) RemoteTrack(domain.ParticipantID, string) {}
func (r *recordingSink) MeetingEnded(reason string)                 { r.ended = append(r.ended, reason) }
func (r *recordingSink) Notice(text string)                         { r.notices = append(r.notices, text) }

func newTestSession(t *testing.T) (*Session, *fakeSignaler, *recordingSink) {
	t.Helper()
	sig := newFakeSignaler()
	sink := &recordingSink{}
	pipeline := media.NewPipeline(&fakeCapturer{})
	require.NoError(t, pipeline.Acquire(true, true))
	s := newSession(Options{MeetingID: "m1", Name: "Alice"}, sig, pipeline, sink,
		func(remote domain.ParticipantID) (peer.MediaConn, error) {
			return fakeMediaConn{}, nil
		})
	return s, sig, sink
}

func burst(self string, others ...wire.Participant) wire.Message {
	return wire.Message{
		Type:         wire.TypeExistingParticipants,
		RoomID:       "m1",
		SocketID:     self,
		Participants: others,
	}
}

func join(t *testing.T, s *Session, self string, others ...wire.Participant) {
	t.Helper()
	done, err := s.handleMessage(burst(self, others...))
	require.NoError(t, err)
	require.False(t, done)
}

func TestSession_BurstSeedsAndOffers(t *testing.T) {
	s, sig, _ := newTestSession(t)

	join(t, s, "me",
		wire.Participant{SocketID: "a", UserName: "Ann"},
		wire.Participant{SocketID: "b", UserName: "Ben"},
	)

	assert.Equal(t, domain.ParticipantID("me"), s.SelfID())
	assert.Equal(t, 2, s.Roster().Len())
	assert.Equal(t, 2, s.Peers().Count())

	offers := sig.sentOfType(wire.TypeOffer)
	require.Len(t, offers, 2)
	assert.ElementsMatch(t, []string{"a", "b"},
		[]string{offers[0].To, offers[1].To})
}

func TestSession_EventsBeforeBurstAreReplayed(t *testing.T) {
	s, _, _ := newTestSession(t)

	done, err := s.handleMessage(wire.Message{
		Type: wire.TypeUserJoined, SocketID: "early", UserName: "Early",
	})
	require.NoError(t, err)
	require.False(t, done)
	assert.Equal(t, 0, s.Roster().Len())

	join(t, s, "me")

	_, ok := s.Roster().Get("early")
	assert.True(t, ok)
}

func TestSession_TerminalEventBeforeBurstEndsSession(t *testing.T) {
	s, _, sink := newTestSession(t)

	// The host can end the meeting in the gap between admission and the
	// burst; the notice is then queued ahead of existing-participants.
	done, err := s.handleMessage(wire.Message{Type: wire.TypeMeetingEnded, Body: "host ended"})
	require.NoError(t, err)
	require.False(t, done)

	done, err = s.handleMessage(burst("me"))
	assert.True(t, done)
	assert.NoError(t, err)
	assert.Equal(t, []string{"host ended"}, sink.ended)
}

func TestSession_JoinRefusedIsTerminal(t *testing.T) {
	s, _, _ := newTestSession(t)

	done, err := s.handleMessage(wire.Message{Type: wire.TypeError, Body: "expired"})
	assert.True(t, done)
	assert.ErrorIs(t, err, ErrJoinRefused)
}

func TestSession_UserLeftDropsPeerAndRosterEntry(t *testing.T) {
	s, _, _ := newTestSession(t)
	join(t, s, "me", wire.Participant{SocketID: "a", UserName: "Ann"})
	require.Equal(t, 1, s.Peers().Count())

	done, err := s.handleMessage(wire.Message{Type: wire.TypeUserLeft, SocketID: "a"})
	require.NoError(t, err)
	require.False(t, done)

	assert.Equal(t, 0, s.Peers().Count())
	assert.Equal(t, 0, s.Roster().Len())
}

func TestSession_MuteSendsNoOffers(t *testing.T) {
	s, sig, _ := newTestSession(t)
	join(t, s, "me", wire.Participant{SocketID: "a", UserName: "Ann"})
	offersBefore := len(sig.sentOfType(wire.TypeOffer))

	s.handleCommand(Command{Kind: CmdToggleAudio})

	toggles := sig.sentOfType(wire.TypeAudioChanged)
	require.Len(t, toggles, 1)
	require.NotNil(t, toggles[0].Enabled)
	assert.False(t, *toggles[0].Enabled)

	// Mute never renegotiates.
	assert.Len(t, sig.sentOfType(wire.TypeOffer), offersBefore)
}

func TestSession_ShareGrantedOnEchoOnly(t *testing.T) {
	s, sig, sink := newTestSession(t)
	join(t, s, "me")

	s.handleCommand(Command{Kind: CmdStartShare})
	assert.Equal(t, shareRequesting, s.share)
	require.Len(t, sig.sentOfType(wire.TypeStartScreenShare), 1)
	// Not presenting until the registry confirms.
	assert.NotEqual(t, sharePresenting, s.share)

	done, err := s.handleMessage(wire.Message{Type: wire.TypeStartScreenShare, SocketID: "me"})
	require.NoError(t, err)
	require.False(t, done)

	assert.Equal(t, sharePresenting, s.share)
	assert.Equal(t, []domain.ParticipantID{"me"}, sink.shareStarts)
}

func TestSession_ShareRenegotiatesOnTrackSetChange(t *testing.T) {
	s, sig, _ := newTestSession(t)
	join(t, s, "me", wire.Participant{SocketID: "a", UserName: "Ann"})
	_, err := s.handleMessage(wire.Message{Type: wire.TypeAnswer, From: "a", SDP: "answer"})
	require.NoError(t, err)
	offersBefore := len(sig.sentOfType(wire.TypeOffer))

	s.handleCommand(Command{Kind: CmdStartShare})
	_, err = s.handleMessage(wire.Message{Type: wire.TypeStartScreenShare, SocketID: "me"})
	require.NoError(t, err)

	// The screen sender changed the track-set shape, so the settled peer got
	// a fresh offer.
	assert.Len(t, sig.sentOfType(wire.TypeOffer), offersBefore+1)
}

func TestSession_ShareDeniedLeavesStateUnchanged(t *testing.T) {
	s, _, sink := newTestSession(t)
	join(t, s, "me", wire.Participant{SocketID: "a", UserName: "Ann"})

	s.handleCommand(Command{Kind: CmdStartShare})
	done, err := s.handleMessage(wire.Message{Type: wire.TypeScreenShareDenied, SocketID: "a"})
	require.NoError(t, err)
	require.False(t, done)

	assert.Equal(t, shareIdle, s.share)
	assert.Equal(t, []domain.ParticipantID{"a"}, sink.denials)
}

func TestSession_RepeatShareRequestIgnoredWhileRequesting(t *testing.T) {
	s, sig, _ := newTestSession(t)
	join(t, s, "me")

	s.handleCommand(Command{Kind: CmdStartShare})
	s.handleCommand(Command{Kind: CmdStartShare})

	assert.Len(t, sig.sentOfType(wire.TypeStartScreenShare), 1)
}

func TestSession_StopShareRoundTrip(t *testing.T) {
	s, sig, sink := newTestSession(t)
	join(t, s, "me")
	s.handleCommand(Command{Kind: CmdStartShare})
	_, err := s.handleMessage(wire.Message{Type: wire.TypeStartScreenShare, SocketID: "me"})
	require.NoError(t, err)
	require.Equal(t, sharePresenting, s.share)

	s.handleCommand(Command{Kind: CmdStopShare})
	require.Len(t, sig.sentOfType(wire.TypeStopScreenShare), 1)
	// Still presenting until the registry echoes the stop.
	assert.Equal(t, sharePresenting, s.share)

	_, err = s.handleMessage(wire.Message{Type: wire.TypeStopScreenShare, SocketID: "me"})
	require.NoError(t, err)
	assert.Equal(t, shareIdle, s.share)
	assert.Equal(t, []domain.ParticipantID{"me"}, sink.shareStops)
}

func TestSession_RemoteShareUpdatesRoster(t *testing.T) {
	s, _, _ := newTestSession(t)
	join(t, s, "me", wire.Participant{SocketID: "a", UserName: "Ann"})

	_, err := s.handleMessage(wire.Message{Type: wire.TypeStartScreenShare, SocketID: "a"})
	require.NoError(t, err)
	entry, _ := s.Roster().Get("a")
	assert.True(t, entry.Sharing)

	_, err = s.handleMessage(wire.Message{Type: wire.TypeStopScreenShare, SocketID: "a"})
	require.NoError(t, err)
	entry, _ = s.Roster().Get("a")
	assert.False(t, entry.Sharing)
}

func TestSession_MediaChangeUpdatesRoster(t *testing.T) {
	s, _, _ := newTestSession(t)
	join(t, s, "me", wire.Participant{SocketID: "a", UserName: "Ann", Audio: true, Video: true})

	muted := false
	_, err := s.handleMessage(wire.Message{
		Type: wire.TypeAudioChanged, SocketID: "a", Enabled: &muted,
	})
	require.NoError(t, err)

	entry, _ := s.Roster().Get("a")
	assert.False(t, entry.Audio)
	assert.True(t, entry.Video)
}

func TestSession_ChatAppended(t *testing.T) {
	s, _, sink := newTestSession(t)
	join(t, s, "me", wire.Participant{SocketID: "a", UserName: "Ann"})

	_, err := s.handleMessage(wire.Message{
		Type: wire.TypeChatMessage, SocketID: "a", UserName: "Ann", Body: "hello", Seq: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Chat().Len())
	require.Len(t, sink.chats, 1)
	assert.Equal(t, "hello", sink.chats[0].Body)
	assert.Equal(t, uint64(1), sink.chats[0].Seq)
}

func TestSession_MeetingEndedIsTerminal(t *testing.T) {
	s, _, sink := newTestSession(t)
	join(t, s, "me")

	done, err := s.handleMessage(wire.Message{Type: wire.TypeMeetingEnded, Body: "host ended"})
	assert.True(t, done)
	assert.NoError(t, err)
	assert.Equal(t, []string{"host ended"}, sink.ended)
}
