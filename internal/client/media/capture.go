package media

import (
	"fmt"
	"strings"
	"time"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"     // registers the camera adapter
	_ "github.com/pion/mediadevices/pkg/driver/microphone" // registers the microphone adapter
	_ "github.com/pion/mediadevices/pkg/driver/screen"     // registers the screen adapter
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
)

// DeviceCapturer grabs real camera, microphone and screen tracks through
// pion/mediadevices, encoded as VP8 + opus.
type DeviceCapturer struct {
	selector *mediadevices.CodecSelector
}

func NewDeviceCapturer() (*DeviceCapturer, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("vp8 params: %w", err)
	}
	vpxParams.BitRate = 500_000

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("opus params: %w", err)
	}
	opusParams.BitRate = 32_000
	opusParams.Latency = opus.Latency20ms

	selector := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)
	return &DeviceCapturer{selector: selector}, nil
}

func (d *DeviceCapturer) UserMedia(wantAudio, wantVideo bool) (webrtc.TrackLocal, webrtc.TrackLocal, error) {
	constraints := mediadevices.MediaStreamConstraints{Codec: d.selector}
	if wantVideo {
		constraints.Video = func(c *mediadevices.MediaTrackConstraints) {
			c.Width = prop.Int(640)
			c.Height = prop.Int(480)
			c.FrameRate = prop.Float(30)
		}
	}
	if wantAudio {
		constraints.Audio = func(c *mediadevices.MediaTrackConstraints) {
			c.SampleRate = prop.Int(48000)
			c.ChannelCount = prop.Int(1)
			c.Latency = prop.Duration(20 * time.Millisecond)
		}
	}

	stream, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		return nil, nil, mapCaptureErr(err)
	}

	var audio, video webrtc.TrackLocal
	if tracks := stream.GetAudioTracks(); len(tracks) > 0 {
		audio = tracks[0]
	}
	if tracks := stream.GetVideoTracks(); len(tracks) > 0 {
		video = tracks[0]
	}
	return audio, video, nil
}

func (d *DeviceCapturer) Display() (webrtc.TrackLocal, error) {
	stream, err := mediadevices.GetDisplayMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.FrameRate = prop.Float(15)
		},
		Codec: d.selector,
	})
	if err != nil {
		return nil, mapCaptureErr(err)
	}
	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, ErrDeviceNotFound
	}
	return tracks[0], nil
}

// mapCaptureErr folds driver-specific failures into the two cases callers
// act on differently.
func mapCaptureErr(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, err)
	case strings.Contains(msg, "not found") || strings.Contains(msg, "failed to find"):
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, err)
	default:
		return err
	}
}
