package peer_test

import (
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Meet/internal/client/peer"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/wire"
)

type fakeConn struct {
	remote     domain.ParticipantID
	offers     int
	answers    []string
	applied    []string
	candidates []webrtc.ICECandidateInit
	closed     bool

	onICE   func(webrtc.ICECandidateInit)
	onState func(webrtc.PeerConnectionState)
}

func (c *fakeConn) Start() {}

func (c *fakeConn) CreateOffer() (webrtc.SessionDescription, error) {
	c.offers++
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-sdp"}, nil
}

func (c *fakeConn) CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	c.answers = append(c.answers, offer.SDP)
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-sdp"}, nil
}

func (c *fakeConn) ApplyAnswer(answer webrtc.SessionDescription) error {
	c.applied = append(c.applied, answer.SDP)
	return nil
}

func (c *fakeConn) AddICECandidate(ci webrtc.ICECandidateInit) error {
	c.candidates = append(c.candidates, ci)
	return nil
}

func (c *fakeConn) AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	return nil, nil
}

func (c *fakeConn) Close() { c.closed = true }

func (c *fakeConn) OnICECandidate(fn func(webrtc.ICECandidateInit))             { c.onICE = fn }
func (c *fakeConn) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) { c.onState = fn }
func (c *fakeConn) OnTrack(fn func(*webrtc.TrackRemote, *webrtc.RTPReceiver))   {}

type harness struct {
	orch      *peer.Orchestrator
	conns     map[domain.ParticipantID]*fakeConn
	sent      []wire.Message
	attached  []domain.ParticipantID
	detached  []domain.ParticipantID
	connected []domain.ParticipantID
	failed    map[domain.ParticipantID]string
	timers    []func()
}

func newHarness(timeout time.Duration) *harness {
	h := &harness{
		conns:  make(map[domain.ParticipantID]*fakeConn),
		failed: make(map[domain.ParticipantID]string),
	}
	h.orch = peer.NewOrchestrator(peer.Hooks{
		Dial: func(remote domain.ParticipantID) (peer.MediaConn, error) {
			c := &fakeConn{remote: remote}
			h.conns[remote] = c
			return c, nil
		},
		Send: func(msg wire.Message) { h.sent = append(h.sent, msg) },
		Attach: func(remote domain.ParticipantID, conn peer.MediaConn) error {
			h.attached = append(h.attached, remote)
			return nil
		},
		Detach: func(remote domain.ParticipantID) { h.detached = append(h.detached, remote) },
		Post:   func(fn func()) { fn() },
		Later: func(d time.Duration, fn func()) func() {
			idx := len(h.timers)
			h.timers = append(h.timers, fn)
			return func() { h.timers[idx] = nil }
		},
		OnConnected: func(remote domain.ParticipantID) { h.connected = append(h.connected, remote) },
		OnFailed: func(remote domain.ParticipantID, reason string) {
			h.failed[remote] = reason
		},
	}, timeout)
	return h
}

func (h *harness) fireTimers() {
	for _, fn := range h.timers {
		if fn != nil {
			fn()
		}
	}
}

func (h *harness) sentOfType(typ string) []wire.Message {
	var out []wire.Message
	for _, m := range h.sent {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func TestOrchestrator_StartOffersDialsEveryone(t *testing.T) {
	h := newHarness(time.Minute)
	h.orch.StartOffers([]domain.ParticipantID{"a", "b"})

	assert.Equal(t, 2, h.orch.Count())
	offers := h.sentOfType(wire.TypeOffer)
	require.Len(t, offers, 2)
	targets := []string{offers[0].To, offers[1].To}
	assert.ElementsMatch(t, []string{"a", "b"}, targets)
	assert.ElementsMatch(t, []domain.ParticipantID{"a", "b"}, h.attached)

	p, ok := h.orch.Get("a")
	require.True(t, ok)
	assert.Equal(t, peer.PhaseOffering, p.Phase)
	assert.Equal(t, peer.NegHaveLocalOffer, p.Negotiation)
}

func TestOrchestrator_DuplicateOfferRejected(t *testing.T) {
	h := newHarness(0)
	require.NoError(t, h.orch.StartOffer("a"))
	assert.Error(t, h.orch.StartOffer("a"))
	assert.Equal(t, 1, h.orch.Count())
}

func TestOrchestrator_AnswerSettlesNegotiation(t *testing.T) {
	h := newHarness(0)
	require.NoError(t, h.orch.StartOffer("a"))

	require.NoError(t, h.orch.HandleAnswer("a", "their-answer"))

	p, _ := h.orch.Get("a")
	assert.Equal(t, peer.NegStable, p.Negotiation)
	assert.Equal(t, []string{"their-answer"}, h.conns["a"].applied)

	assert.Error(t, h.orch.HandleAnswer("ghost", "x"))
	assert.Error(t, h.orch.HandleAnswer("a", "again"))
}

func TestOrchestrator_IncomingOfferCreatesAnsweringPeer(t *testing.T) {
	h := newHarness(time.Minute)
	require.NoError(t, h.orch.HandleOffer("newcomer", "their-offer"))

	p, ok := h.orch.Get("newcomer")
	require.True(t, ok)
	assert.Equal(t, peer.PhaseAnswering, p.Phase)
	assert.Equal(t, peer.NegStable, p.Negotiation)

	answers := h.sentOfType(wire.TypeAnswer)
	require.Len(t, answers, 1)
	assert.Equal(t, "newcomer", answers[0].To)
	assert.Equal(t, []string{"their-offer"}, h.conns["newcomer"].answers)
}

func TestOrchestrator_GlareOfferDropped(t *testing.T) {
	h := newHarness(0)
	require.NoError(t, h.orch.StartOffer("a"))

	require.NoError(t, h.orch.HandleOffer("a", "crossing-offer"))

	assert.Empty(t, h.sentOfType(wire.TypeAnswer))
	assert.Empty(t, h.conns["a"].answers)
}

func TestOrchestrator_CandidateRouting(t *testing.T) {
	h := newHarness(0)
	require.NoError(t, h.orch.StartOffer("a"))

	mid := "0"
	require.NoError(t, h.orch.HandleCandidate("a", wire.Message{Candidate: "cand", SDPMid: &mid}))
	require.Len(t, h.conns["a"].candidates, 1)
	assert.Equal(t, "cand", h.conns["a"].candidates[0].Candidate)

	// Candidates for unknown peers are dropped silently.
	require.NoError(t, h.orch.HandleCandidate("ghost", wire.Message{Candidate: "x"}))
}

func TestOrchestrator_LocalCandidateSentToRemote(t *testing.T) {
	h := newHarness(0)
	require.NoError(t, h.orch.StartOffer("a"))

	h.conns["a"].onICE(webrtc.ICECandidateInit{Candidate: "local-cand"})

	ice := h.sentOfType(wire.TypeICECandidate)
	require.Len(t, ice, 1)
	assert.Equal(t, "a", ice[0].To)
	assert.Equal(t, "local-cand", ice[0].Candidate)
}

func TestOrchestrator_ConnectedCancelsDeadline(t *testing.T) {
	h := newHarness(time.Minute)
	require.NoError(t, h.orch.StartOffer("a"))

	h.conns["a"].onState(webrtc.PeerConnectionStateConnected)

	p, _ := h.orch.Get("a")
	assert.Equal(t, peer.PhaseConnected, p.Phase)
	assert.Equal(t, []domain.ParticipantID{"a"}, h.connected)

	h.fireTimers()
	assert.Empty(t, h.failed)
	assert.Equal(t, 1, h.orch.Count())
}

func TestOrchestrator_DeadlineFailsPendingPeer(t *testing.T) {
	h := newHarness(time.Minute)
	require.NoError(t, h.orch.StartOffer("a"))
	require.NoError(t, h.orch.StartOffer("b"))
	h.conns["b"].onState(webrtc.PeerConnectionStateConnected)

	h.fireTimers()

	assert.Contains(t, h.failed, domain.ParticipantID("a"))
	assert.NotContains(t, h.failed, domain.ParticipantID("b"))
	assert.True(t, h.conns["a"].closed)
	assert.Contains(t, h.detached, domain.ParticipantID("a"))

	// One pair failing leaves the rest of the mesh alone.
	assert.Equal(t, 1, h.orch.Count())
	_, ok := h.orch.Get("b")
	assert.True(t, ok)
}

func TestOrchestrator_FailedStateTearsDownPair(t *testing.T) {
	h := newHarness(0)
	require.NoError(t, h.orch.StartOffer("a"))

	h.conns["a"].onState(webrtc.PeerConnectionStateFailed)

	assert.Contains(t, h.failed, domain.ParticipantID("a"))
	assert.True(t, h.conns["a"].closed)
	assert.Equal(t, 0, h.orch.Count())
}

func TestOrchestrator_RemoveIsOrderly(t *testing.T) {
	h := newHarness(0)
	require.NoError(t, h.orch.StartOffer("a"))

	h.orch.Remove("a")

	assert.True(t, h.conns["a"].closed)
	assert.Contains(t, h.detached, domain.ParticipantID("a"))
	assert.Empty(t, h.failed)
	assert.Equal(t, 0, h.orch.Count())
}

func TestOrchestrator_RenegotiateAllSkipsUnsettledPeers(t *testing.T) {
	h := newHarness(0)
	require.NoError(t, h.orch.StartOffer("a"))
	require.NoError(t, h.orch.HandleAnswer("a", "answer"))
	require.NoError(t, h.orch.StartOffer("b")) // still has a local offer in flight
	h.sent = nil

	h.orch.RenegotiateAll()

	offers := h.sentOfType(wire.TypeOffer)
	require.Len(t, offers, 1)
	assert.Equal(t, "a", offers[0].To)
	assert.Equal(t, 2, h.conns["a"].offers)
}
