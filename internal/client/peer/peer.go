// Package peer tracks the mesh of per-participant media connections and
// drives their negotiation. All methods run on the session loop; the package
// holds no locks.
package peer

import (
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Meet/internal/domain"
)

// Phase is the connection lifecycle of one remote peer.
type Phase string

const (
	PhaseOffering  Phase = "offering"
	PhaseAnswering Phase = "answering"
	PhaseConnected Phase = "connected"
	PhaseFailed    Phase = "failed"
	PhaseClosed    Phase = "closed"
)

// Negotiation is the SDP exchange sub-state, orthogonal to Phase: a connected
// peer re-enters have-local-offer during renegotiation without leaving
// PhaseConnected.
type Negotiation string

const (
	NegStable         Negotiation = "stable"
	NegHaveLocalOffer Negotiation = "have-local-offer"
)

// MediaConn is the transport a Peer negotiates over. rtc.Connection is the
// production implementation; tests substitute fakes.
type MediaConn interface {
	Start()
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error)
	ApplyAnswer(answer webrtc.SessionDescription) error
	AddICECandidate(ci webrtc.ICECandidateInit) error
	AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error)
	Close()
	OnICECandidate(fn func(webrtc.ICECandidateInit))
	OnConnectionStateChange(fn func(webrtc.PeerConnectionState))
	OnTrack(fn func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver))
}

// Peer is one entry in the arena.
type Peer struct {
	Remote      domain.ParticipantID
	Phase       Phase
	Negotiation Negotiation

	conn           MediaConn
	cancelDeadline func()
}

func (p *Peer) Conn() MediaConn { return p.conn }

func (p *Peer) terminal() bool {
	return p.Phase == PhaseFailed || p.Phase == PhaseClosed
}
