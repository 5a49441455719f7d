package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"atrium/models"
)

type memoryState struct {
	users map[string]models.User
	rooms map[string]models.Room
}

func newMemoryState() memoryState {
	return memoryState{
		users: make(map[string]models.User),
		rooms: make(map[string]models.Room),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.users {
		cloned.users[k] = cloneUser(v)
	}
	for k, v := range s.rooms {
		cloned.rooms[k] = cloneRoom(v)
	}
	return cloned
}

func cloneUser(u models.User) models.User {
	cp := u
	if u.HomeOfficeID != nil {
		id := *u.HomeOfficeID
		cp.HomeOfficeID = &id
	}
	if u.CurrentOfficeID != nil {
		id := *u.CurrentOfficeID
		cp.CurrentOfficeID = &id
	}
	return cp
}

func cloneRoom(r models.Room) models.Room {
	cp := r
	cp.AssignedUsers = append(pq.StringArray(nil), r.AssignedUsers...)
	cp.CurrentOccupants = append(pq.StringArray(nil), r.CurrentOccupants...)
	return cp
}

// Memory is an in-memory Store used by tests and local development. A global
// lock serializes transactions, so commits never conflict; version counters
// are still maintained to match the Postgres implementation.
type Memory struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the timestamp source. Test hook.
func (s *Memory) SetNow(fn func() time.Time) {
	s.nowFn = fn
}

// SeedUser inserts a user directly into committed state, bypassing the
// transaction path. User documents are created by the auth collaborator at
// first login, never by the occupancy engine.
func (s *Memory) SeedUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.nowFn()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.state.users[u.ID] = cloneUser(u)
}

type memoryTxn struct {
	state memoryState
	now   time.Time
}

func (tx *memoryTxn) GetUser(id string) (*models.User, error) {
	u, ok := tx.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneUser(u)
	return &cp, nil
}

func (tx *memoryTxn) GetRoom(id string) (*models.Room, error) {
	r, ok := tx.state.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneRoom(r)
	return &cp, nil
}

func (tx *memoryTxn) CreateUser(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, exists := tx.state.users[user.ID]; exists {
		return fmt.Errorf("user %q: %w", user.ID, ErrExists)
	}
	user.CreatedAt = tx.now
	user.UpdatedAt = tx.now
	tx.state.users[user.ID] = cloneUser(*user)
	return nil
}

func (tx *memoryTxn) SaveUser(user *models.User) error {
	if _, ok := tx.state.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = tx.now
	user.Version++
	tx.state.users[user.ID] = cloneUser(*user)
	return nil
}

func (tx *memoryTxn) SaveRoom(room *models.Room) error {
	if _, ok := tx.state.rooms[room.ID]; !ok {
		return ErrNotFound
	}
	room.UpdatedAt = tx.now
	room.Version++
	tx.state.rooms[room.ID] = cloneRoom(*room)
	return nil
}

func (tx *memoryTxn) CreateRoom(room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if _, exists := tx.state.rooms[room.ID]; exists {
		return fmt.Errorf("room %q: %w", room.ID, ErrExists)
	}
	room.CreatedAt = tx.now
	room.UpdatedAt = tx.now
	tx.state.rooms[room.ID] = cloneRoom(*room)
	return nil
}

func (tx *memoryTxn) DeleteRoom(id string) error {
	if _, ok := tx.state.rooms[id]; !ok {
		return ErrNotFound
	}
	delete(tx.state.rooms, id)
	return nil
}

// RunTransaction executes fn within a transactional copy of the store state.
func (s *Memory) RunTransaction(_ context.Context, fn func(tx Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTxn{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return err
	}

	s.state = tx.state
	return nil
}

func (s *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneUser(u)
	return &cp, nil
}

func (s *Memory) GetRoom(_ context.Context, id string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneRoom(r)
	return &cp, nil
}

func (s *Memory) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.state.users))
	for _, u := range s.state.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Memory) ListRooms(_ context.Context) ([]models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Room, 0, len(s.state.rooms))
	for _, r := range s.state.rooms {
		out = append(out, cloneRoom(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
