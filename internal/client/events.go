package client

import (
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/wire"
)

// CommandKind is a user action fed into the session loop.
type CommandKind string

const (
	CmdChat        CommandKind = "chat"
	CmdStartShare  CommandKind = "start-share"
	CmdStopShare   CommandKind = "stop-share"
	CmdToggleAudio CommandKind = "toggle-audio"
	CmdToggleVideo CommandKind = "toggle-video"
	CmdEndMeeting  CommandKind = "end-meeting"
	CmdQuit        CommandKind = "quit"
)

type Command struct {
	Kind CommandKind
	Body string
}

// shareState is the local presenter state machine. Requesting means the claim
// is in flight; the transition to presenting happens only on the registry's
// grant echo, never optimistically.
type shareState string

const (
	shareIdle       shareState = "idle"
	shareRequesting shareState = "requesting"
	sharePresenting shareState = "presenting"
)

func kindFromType(t string) domain.MediaKind {
	if t == wire.TypeAudioChanged {
		return domain.MediaAudio
	}
	return domain.MediaVideo
}
