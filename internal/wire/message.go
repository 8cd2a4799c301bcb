// Package wire defines the signaling event vocabulary shared by the registry
// adapter and the client. Payloads are JSON-shaped; offers, answers and ICE
// candidates are relayed unmodified.
package wire

import "time"

// Event types, client -> server.
const (
	TypeJoinRoom         = "join-room"
	TypeOffer            = "webrtc-offer"
	TypeAnswer           = "webrtc-answer"
	TypeICECandidate     = "ice-candidate"
	TypeAudioChanged     = "participant-audio-changed"
	TypeVideoChanged     = "participant-video-changed"
	TypeStartScreenShare = "start-screen-share"
	TypeStopScreenShare  = "stop-screen-share"
	TypeChatMessage      = "chat-message"
	TypeEndMeeting       = "end-meeting"
)

// Event types, server -> client.
const (
	TypeExistingParticipants = "existing-participants"
	TypeUserJoined           = "user-joined"
	TypeUserLeft             = "user-left"
	TypeScreenShareDenied    = "screen-share-denied"
	TypeMeetingEnded         = "meeting-ended"
	TypeError                = "error"
)

// Participant mirrors the roster entry pushed in the existing-participants
// burst and in user-joined events.
type Participant struct {
	SocketID string `json:"socketId"`
	UserName string `json:"userName"`
	Audio    bool   `json:"audio"`
	Video    bool   `json:"video"`
	Sharing  bool   `json:"sharing,omitempty"`
}

// Message is the flat signaling envelope. Unused fields are omitted on the
// wire; which fields are meaningful depends on Type.
type Message struct {
	Type string `json:"type"`

	RoomID   string `json:"roomId,omitempty"`
	UserName string `json:"userName,omitempty"`
	IsHost   bool   `json:"isHost,omitempty"`

	// Relay addressing. To is set by the sender, From is stamped by the
	// registry before forwarding.
	To   string `json:"to,omitempty"`
	From string `json:"from,omitempty"`

	// Session descriptions travel as raw SDP plus its type.
	SDP     string `json:"sdp,omitempty"`
	SDPType string `json:"sdpType,omitempty"`

	// Trickled ICE candidate.
	Candidate     string  `json:"candidate,omitempty"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`

	// Roster and media-state payloads.
	SocketID     string        `json:"socketId,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	Enabled      *bool         `json:"enabled,omitempty"`

	// Free-text payload: the chat body, the termination reason, or the error
	// reason on error events. SentAt and Seq are registry-stamped.
	Body   string     `json:"message,omitempty"`
	SentAt *time.Time `json:"sentAt,omitempty"`
	Seq    uint64     `json:"seq,omitempty"`
}
