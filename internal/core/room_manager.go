package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

type roomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]RoomService
}

func NewRoomManager() RoomManager {
	return &roomManager{
		rooms: make(map[domain.RoomID]RoomService),
	}
}

func (rm *roomManager) GetOrCreate(room *domain.Room) RoomService {
	rm.mu.RLock()
	r, ok := rm.rooms[room.ID]
	rm.mu.RUnlock()
	if ok {
		return r
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if r, ok = rm.rooms[room.ID]; !ok {
		r = NewRoomService(room)
		rm.rooms[room.ID] = r
		log.Info().Str("module", "core.rooms").Str("room", string(room.ID)).Msg("room created")
	}
	return r
}

func (rm *roomManager) Get(id domain.RoomID) (RoomService, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r, ok := rm.rooms[id]
	return r, ok
}

func (rm *roomManager) Drop(id domain.RoomID) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, ok := rm.rooms[id]; ok {
		delete(rm.rooms, id)
		log.Info().Str("module", "core.rooms").Str("room", string(id)).Msg("room dropped")
	}
}

func (rm *roomManager) List() []RoomInfo {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]RoomInfo, 0, len(rm.rooms))
	for id, r := range rm.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: r.MemberCount()})
	}
	return out
}
