// Package media owns the local capture tracks and their attachment to peer
// connections. Peer connections borrow tracks; the pipeline owns them.
package media

import (
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

var (
	ErrPermissionDenied = errors.New("media permission denied")
	ErrDeviceNotFound   = errors.New("media device not found")
	ErrNotAcquired      = errors.New("local media not acquired")
)

// Source tags which capture feeds the outbound video slot.
type Source string

const (
	SourceCamera Source = "camera"
	SourceScreen Source = "screen"
)

// Capturer acquires local capture tracks. The device-backed implementation
// lives in capture.go; tests plug in static tracks.
type Capturer interface {
	UserMedia(wantAudio, wantVideo bool) (audio, video webrtc.TrackLocal, err error)
	Display() (webrtc.TrackLocal, error)
}

// TrackSet is the local capture handles: one audio, one camera video and,
// while presenting, one screen track.
type TrackSet struct {
	Audio  webrtc.TrackLocal
	Camera webrtc.TrackLocal
	Screen webrtc.TrackLocal
}

type attachment struct {
	pc          AddTracker
	audioSender *webrtc.RTPSender
	videoSender *webrtc.RTPSender
}

// Pipeline is confined to the session loop; it needs no locking.
type Pipeline struct {
	capturer Capturer
	tracks   TrackSet
	source   Source

	audioEnabled bool
	videoEnabled bool

	attached map[domain.ParticipantID]*attachment
}

func NewPipeline(capturer Capturer) *Pipeline {
	return &Pipeline{
		capturer: capturer,
		source:   SourceCamera,
		attached: make(map[domain.ParticipantID]*attachment),
	}
}

// Acquire grabs camera and microphone. This is the permission-gated blocking
// call of the whole subsystem; failures here are fatal to the join attempt.
func (p *Pipeline) Acquire(wantAudio, wantVideo bool) error {
	audio, video, err := p.capturer.UserMedia(wantAudio, wantVideo)
	if err != nil {
		return err
	}
	p.tracks.Audio = audio
	p.tracks.Camera = video
	p.audioEnabled = wantAudio
	p.videoEnabled = wantVideo
	log.Info().Str("module", "client.media").Bool("audio", wantAudio).Bool("video", wantVideo).Msg("local media acquired")
	return nil
}

// AddTracker is the slice of a peer connection the pipeline attaches to.
type AddTracker interface {
	AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error)
}

// Attach adds the current outbound tracks to a new peer connection and
// remembers the senders so the video slot can be swapped later.
func (p *Pipeline) Attach(id domain.ParticipantID, pc AddTracker) error {
	if p.tracks.Audio == nil && p.tracks.Camera == nil {
		return ErrNotAcquired
	}
	att := &attachment{pc: pc}
	if p.tracks.Audio != nil {
		s, err := pc.AddTrack(p.tracks.Audio)
		if err != nil {
			return fmt.Errorf("attach audio: %w", err)
		}
		att.audioSender = s
	}
	if v := p.outboundVideo(); v != nil {
		s, err := pc.AddTrack(v)
		if err != nil {
			return fmt.Errorf("attach video: %w", err)
		}
		att.videoSender = s
	}
	p.attached[id] = att
	return nil
}

func (p *Pipeline) Detach(id domain.ParticipantID) {
	delete(p.attached, id)
}

func (p *Pipeline) outboundVideo() webrtc.TrackLocal {
	if p.source == SourceScreen && p.tracks.Screen != nil {
		return p.tracks.Screen
	}
	return p.tracks.Camera
}

func (p *Pipeline) Source() Source     { return p.source }
func (p *Pipeline) AudioEnabled() bool { return p.audioEnabled }
func (p *Pipeline) VideoEnabled() bool { return p.videoEnabled }

// SetEnabled flips a mute flag. The track stays attached; no negotiation
// happens here or anywhere downstream of here.
func (p *Pipeline) SetEnabled(kind domain.MediaKind, enabled bool) {
	switch kind {
	case domain.MediaAudio:
		p.audioEnabled = enabled
	case domain.MediaVideo:
		p.videoEnabled = enabled
	}
	log.Debug().Str("module", "client.media").Str("kind", string(kind)).Bool("enabled", enabled).Msg("media toggled")
}

// UseScreen acquires the display capture if needed and substitutes it into
// every live video sender in place. Connections that never carried video get
// a new sender instead; added reports that, and the caller must renegotiate
// since the track set changed shape.
func (p *Pipeline) UseScreen() (added bool, err error) {
	if p.tracks.Screen == nil {
		screen, err := p.capturer.Display()
		if err != nil {
			return false, err
		}
		p.tracks.Screen = screen
	}
	for id, att := range p.attached {
		if att.videoSender != nil {
			if err := att.videoSender.ReplaceTrack(p.tracks.Screen); err != nil {
				return added, fmt.Errorf("replace video for %s: %w", id, err)
			}
			continue
		}
		s, err := att.pc.AddTrack(p.tracks.Screen)
		if err != nil {
			return added, fmt.Errorf("add screen track for %s: %w", id, err)
		}
		att.videoSender = s
		added = true
	}
	p.source = SourceScreen
	log.Info().Str("module", "client.media").Bool("senders_added", added).Msg("outbound video switched to screen")
	return added, nil
}

// UseCamera swaps the outbound video back and drops the screen track.
func (p *Pipeline) UseCamera() error {
	if err := p.replaceVideo(p.tracks.Camera); err != nil {
		return err
	}
	p.source = SourceCamera
	p.tracks.Screen = nil
	log.Info().Str("module", "client.media").Msg("outbound video switched to camera")
	return nil
}

func (p *Pipeline) replaceVideo(track webrtc.TrackLocal) error {
	for id, att := range p.attached {
		if att.videoSender == nil {
			continue
		}
		if err := att.videoSender.ReplaceTrack(track); err != nil {
			return fmt.Errorf("replace video for %s: %w", id, err)
		}
	}
	return nil
}
