package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

// Verdict is the lifecycle gate's answer for a meeting id. The strings double
// as the REST payload values.
type Verdict string

const (
	VerdictValid     Verdict = "valid"
	VerdictNotFound  Verdict = "not-found"
	VerdictExpired   Verdict = "expired"
	VerdictCancelled Verdict = "cancelled"
)

// JoinRefusedError is returned when the gate refuses entry; it carries the
// verdict so callers can render a distinct reason.
type JoinRefusedError struct {
	Verdict Verdict
}

func (e *JoinRefusedError) Error() string {
	return fmt.Sprintf("join refused: meeting %s", e.Verdict)
}

// Gate validates, before a participant may enter a room, that the meeting
// exists, has not been cancelled, and is within its allowed join window.
// It runs once at entry; an expiring meeting does not evict anyone.
type Gate struct {
	dir   MeetingDirectory
	early time.Duration
	now   func() time.Time
}

func NewGate(dir MeetingDirectory, earlyJoinWindow time.Duration) *Gate {
	return &Gate{dir: dir, early: earlyJoinWindow, now: time.Now}
}

func (g *Gate) Admit(meetingID string) Verdict {
	m, err := g.dir.Find(meetingID)
	if err != nil {
		if !errors.Is(err, domain.ErrMeetingNotFound) {
			log.Error().Err(err).Str("module", "app.gate").Str("meeting", meetingID).Msg("directory lookup")
		}
		return VerdictNotFound
	}

	switch m.Status {
	case domain.MeetingCancelled:
		return VerdictCancelled
	case domain.MeetingEnded:
		// An ended meeting is gone as far as joiners are concerned.
		return VerdictNotFound
	}

	open, until := m.Window(g.early)
	now := g.now()
	if now.Before(open) || now.After(until) {
		return VerdictExpired
	}
	return VerdictValid
}
