package app

import (
	"sync"

	"github.com/dkeye/Meet/internal/domain"
)

// MeetingDirectory is the scheduling boundary. Meetings are created by the
// surrounding product; this subsystem only reads them and writes the status
// field back.
type MeetingDirectory interface {
	Find(id string) (*domain.Meeting, error)
	Put(m *domain.Meeting)
	SetStatus(id string, status domain.MeetingStatus) error
}

// MemoryDirectory keeps meetings in memory. Nothing here survives a restart;
// durable scheduling lives outside this subsystem.
type MemoryDirectory struct {
	mu       sync.RWMutex
	meetings map[string]domain.Meeting
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{meetings: make(map[string]domain.Meeting)}
}

func (d *MemoryDirectory) Find(id string) (*domain.Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.meetings[id]
	if !ok {
		return nil, domain.ErrMeetingNotFound
	}
	cp := m
	return &cp, nil
}

func (d *MemoryDirectory) Put(m *domain.Meeting) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meetings[m.ID] = *m
}

func (d *MemoryDirectory) SetStatus(id string, status domain.MeetingStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.meetings[id]
	if !ok {
		return domain.ErrMeetingNotFound
	}
	m.Status = status
	d.meetings[id] = m
	return nil
}
