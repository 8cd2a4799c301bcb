// Package roster mirrors the room membership as announced by the registry.
// The registry's event stream is authoritative; the roster applies events
// idempotently and never invents state.
package roster

import (
	"sort"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/wire"
)

// Entry is one remote participant as currently known.
type Entry struct {
	ID      domain.ParticipantID
	Name    string
	Audio   bool
	Video   bool
	Sharing bool
}

type Roster struct {
	entries map[domain.ParticipantID]*Entry
}

func New() *Roster {
	return &Roster{entries: make(map[domain.ParticipantID]*Entry)}
}

// Seed installs the join burst wholesale, replacing anything held before.
func (r *Roster) Seed(burst []wire.Participant) {
	r.entries = make(map[domain.ParticipantID]*Entry, len(burst))
	for _, p := range burst {
		id := domain.ParticipantID(p.SocketID)
		r.entries[id] = &Entry{
			ID:      id,
			Name:    p.UserName,
			Audio:   p.Audio,
			Video:   p.Video,
			Sharing: p.Sharing,
		}
	}
}

// Join records a newcomer. A repeat for a known id just refreshes the name.
func (r *Roster) Join(id domain.ParticipantID, name string) {
	if e, ok := r.entries[id]; ok {
		e.Name = name
		return
	}
	r.entries[id] = &Entry{ID: id, Name: name, Audio: true, Video: true}
}

func (r *Roster) Leave(id domain.ParticipantID) {
	delete(r.entries, id)
}

func (r *Roster) SetMedia(id domain.ParticipantID, kind domain.MediaKind, enabled bool) {
	e, ok := r.entries[id]
	if !ok {
		return
	}
	switch kind {
	case domain.MediaAudio:
		e.Audio = enabled
	case domain.MediaVideo:
		e.Video = enabled
	}
}

// SetSharing marks the presenter. There is at most one; granting clears any
// stale holder.
func (r *Roster) SetSharing(id domain.ParticipantID, sharing bool) {
	if sharing {
		for _, e := range r.entries {
			e.Sharing = e.ID == id
		}
		return
	}
	if e, ok := r.entries[id]; ok {
		e.Sharing = false
	}
}

func (r *Roster) Get(id domain.ParticipantID) (Entry, bool) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (r *Roster) Len() int { return len(r.entries) }

func (r *Roster) IDs() []domain.ParticipantID {
	ids := make([]domain.ParticipantID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns the membership ordered by name for stable rendering.
func (r *Roster) Snapshot() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}
