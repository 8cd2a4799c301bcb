package peer

import (
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/wire"
)

// DialFunc builds the media connection for one remote participant.
type DialFunc func(remote domain.ParticipantID) (MediaConn, error)

// Hooks is everything the orchestrator needs from its surroundings. Post must
// enqueue the closure onto the session loop; pion callbacks arrive through it
// so the arena is only ever touched from one goroutine.
type Hooks struct {
	Dial   DialFunc
	Send   func(wire.Message)
	Attach func(remote domain.ParticipantID, conn MediaConn) error
	Detach func(remote domain.ParticipantID)
	Post   func(fn func())
	Later  func(d time.Duration, fn func()) (cancel func())

	// OnConnected and OnFailed report terminal transitions upward.
	OnConnected func(remote domain.ParticipantID)
	OnFailed    func(remote domain.ParticipantID, reason string)
	OnTrack     func(remote domain.ParticipantID, track *webrtc.TrackRemote)
}

// Orchestrator owns the peer arena: exactly one entry per remote participant,
// created on join and destroyed on leave or failure.
type Orchestrator struct {
	hooks          Hooks
	connectTimeout time.Duration
	peers          map[domain.ParticipantID]*Peer
}

func NewOrchestrator(hooks Hooks, connectTimeout time.Duration) *Orchestrator {
	if hooks.Later == nil {
		hooks.Later = func(d time.Duration, fn func()) func() {
			t := time.AfterFunc(d, fn)
			return func() { t.Stop() }
		}
	}
	return &Orchestrator{
		hooks:          hooks,
		connectTimeout: connectTimeout,
		peers:          make(map[domain.ParticipantID]*Peer),
	}
}

func (o *Orchestrator) Get(remote domain.ParticipantID) (*Peer, bool) {
	p, ok := o.peers[remote]
	return p, ok
}

func (o *Orchestrator) Count() int { return len(o.peers) }

// StartOffers dials everyone in the join burst. The newcomer is always the
// offerer; members already in the room only ever answer.
func (o *Orchestrator) StartOffers(remotes []domain.ParticipantID) {
	for _, r := range remotes {
		if err := o.StartOffer(r); err != nil {
			log.Error().Err(err).Str("module", "client.peer").Str("remote", string(r)).Msg("start offer")
		}
	}
}

func (o *Orchestrator) StartOffer(remote domain.ParticipantID) error {
	if _, exists := o.peers[remote]; exists {
		return fmt.Errorf("peer %s already exists", remote)
	}
	p, err := o.spawn(remote, PhaseOffering)
	if err != nil {
		return err
	}

	offer, err := p.conn.CreateOffer()
	if err != nil {
		o.fail(p, "create offer: "+err.Error())
		return err
	}
	p.Negotiation = NegHaveLocalOffer
	o.hooks.Send(wire.Message{
		Type:    wire.TypeOffer,
		To:      string(remote),
		SDP:     offer.SDP,
		SDPType: offer.Type.String(),
	})
	return nil
}

// HandleOffer answers an incoming offer. A first offer from an unknown
// participant creates the answering side of the pair; an offer on an existing
// peer is a renegotiation after the remote track set changed.
func (o *Orchestrator) HandleOffer(from domain.ParticipantID, sdp string) error {
	p, exists := o.peers[from]
	if !exists {
		var err error
		p, err = o.spawn(from, PhaseAnswering)
		if err != nil {
			return err
		}
	} else if p.Negotiation == NegHaveLocalOffer {
		// Glare. The join asymmetry makes this a protocol violation, not a
		// race to resolve.
		log.Warn().Str("module", "client.peer").Str("remote", string(from)).Msg("offer while local offer pending, dropped")
		return nil
	}

	answer, err := p.conn.CreateAnswer(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdp,
	})
	if err != nil {
		o.fail(p, "create answer: "+err.Error())
		return err
	}
	o.hooks.Send(wire.Message{
		Type:    wire.TypeAnswer,
		To:      string(from),
		SDP:     answer.SDP,
		SDPType: answer.Type.String(),
	})
	return nil
}

func (o *Orchestrator) HandleAnswer(from domain.ParticipantID, sdp string) error {
	p, exists := o.peers[from]
	if !exists {
		return fmt.Errorf("answer from unknown peer %s", from)
	}
	if p.Negotiation != NegHaveLocalOffer {
		return fmt.Errorf("unexpected answer from %s", from)
	}
	if err := p.conn.ApplyAnswer(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	}); err != nil {
		o.fail(p, "apply answer: "+err.Error())
		return err
	}
	p.Negotiation = NegStable
	return nil
}

func (o *Orchestrator) HandleCandidate(from domain.ParticipantID, msg wire.Message) error {
	p, exists := o.peers[from]
	if !exists {
		// Candidates can outrun the offer after a peer was torn down; drop.
		return nil
	}
	return p.conn.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     msg.Candidate,
		SDPMid:        msg.SDPMid,
		SDPMLineIndex: msg.SDPMLineIndex,
	})
}

// Remove tears down the pair for a departed participant. Orderly: no failure
// is reported.
func (o *Orchestrator) Remove(remote domain.ParticipantID) {
	p, exists := o.peers[remote]
	if !exists {
		return
	}
	o.teardown(p)
	p.Phase = PhaseClosed
}

func (o *Orchestrator) CloseAll() {
	for _, p := range o.peers {
		o.teardown(p)
		p.Phase = PhaseClosed
	}
}

// RenegotiateAll pushes fresh offers to every established peer. Called when
// the local track set changed shape; plain mute toggles never come here.
func (o *Orchestrator) RenegotiateAll() {
	for _, p := range o.peers {
		if p.terminal() || p.Negotiation != NegStable {
			continue
		}
		offer, err := p.conn.CreateOffer()
		if err != nil {
			log.Error().Err(err).Str("module", "client.peer").Str("remote", string(p.Remote)).Msg("renegotiate")
			continue
		}
		p.Negotiation = NegHaveLocalOffer
		o.hooks.Send(wire.Message{
			Type:    wire.TypeOffer,
			To:      string(p.Remote),
			SDP:     offer.SDP,
			SDPType: offer.Type.String(),
		})
	}
}

func (o *Orchestrator) spawn(remote domain.ParticipantID, phase Phase) (*Peer, error) {
	conn, err := o.hooks.Dial(remote)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", remote, err)
	}
	p := &Peer{
		Remote:      remote,
		Phase:       phase,
		Negotiation: NegStable,
		conn:        conn,
	}

	conn.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		o.hooks.Post(func() { o.handleLocalCandidate(remote, ci) })
	})
	conn.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		o.hooks.Post(func() { o.handleConnState(remote, s) })
	})
	conn.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if o.hooks.OnTrack != nil {
			o.hooks.Post(func() { o.hooks.OnTrack(remote, track) })
		}
	})

	if err := o.hooks.Attach(remote, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("attach media for %s: %w", remote, err)
	}
	conn.Start()

	if o.connectTimeout > 0 {
		p.cancelDeadline = o.hooks.Later(o.connectTimeout, func() {
			o.hooks.Post(func() { o.handleDeadline(remote) })
		})
	}

	o.peers[remote] = p
	return p, nil
}

func (o *Orchestrator) handleLocalCandidate(remote domain.ParticipantID, ci webrtc.ICECandidateInit) {
	if _, exists := o.peers[remote]; !exists {
		return
	}
	o.hooks.Send(wire.Message{
		Type:          wire.TypeICECandidate,
		To:            string(remote),
		Candidate:     ci.Candidate,
		SDPMid:        ci.SDPMid,
		SDPMLineIndex: ci.SDPMLineIndex,
	})
}

func (o *Orchestrator) handleConnState(remote domain.ParticipantID, s webrtc.PeerConnectionState) {
	p, exists := o.peers[remote]
	if !exists || p.terminal() {
		return
	}
	switch s {
	case webrtc.PeerConnectionStateConnected:
		p.Phase = PhaseConnected
		if p.cancelDeadline != nil {
			p.cancelDeadline()
			p.cancelDeadline = nil
		}
		if o.hooks.OnConnected != nil {
			o.hooks.OnConnected(remote)
		}
	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
		o.fail(p, "connection "+s.String())
	}
}

func (o *Orchestrator) handleDeadline(remote domain.ParticipantID) {
	p, exists := o.peers[remote]
	if !exists || p.terminal() || p.Phase == PhaseConnected {
		return
	}
	o.fail(p, "connect deadline exceeded")
}

// fail is terminal for this pair only; the rest of the mesh is untouched.
func (o *Orchestrator) fail(p *Peer, reason string) {
	o.teardown(p)
	p.Phase = PhaseFailed
	log.Warn().Str("module", "client.peer").Str("remote", string(p.Remote)).Str("reason", reason).Msg("peer failed")
	if o.hooks.OnFailed != nil {
		o.hooks.OnFailed(p.Remote, reason)
	}
}

func (o *Orchestrator) teardown(p *Peer) {
	if p.cancelDeadline != nil {
		p.cancelDeadline()
		p.cancelDeadline = nil
	}
	p.conn.Close()
	o.hooks.Detach(p.Remote)
	delete(o.peers, p.Remote)
}
