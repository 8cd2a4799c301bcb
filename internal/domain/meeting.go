package domain

import (
	"errors"
	"time"
)

var ErrMeetingNotFound = errors.New("meeting not found")

type MeetingStatus string

const (
	MeetingScheduled  MeetingStatus = "scheduled"
	MeetingInProgress MeetingStatus = "in-progress"
	MeetingEnded      MeetingStatus = "ended"
	MeetingCancelled  MeetingStatus = "cancelled"
)

// Meeting is the scheduling record the lifecycle gate checks against. It is
// owned by the surrounding product; only the status field is written back here.
type Meeting struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Status      MeetingStatus `json:"status"`
	ScheduledAt time.Time     `json:"scheduledAt"`
	Duration    time.Duration `json:"duration"`
}

// Window returns the allowed join window [start-early, start+duration].
func (m *Meeting) Window(early time.Duration) (time.Time, time.Time) {
	return m.ScheduledAt.Add(-early), m.ScheduledAt.Add(m.Duration)
}
