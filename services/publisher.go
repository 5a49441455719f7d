package services

import (
	"context"
	"sync"
	"time"

	"atrium/models"
	"atrium/store"
	"atrium/utils"
)

// Snapshot is the complete current floor-plan state. Every committed
// mutation produces a fresh snapshot; subscribers never see deltas.
type Snapshot struct {
	Rooms []models.Room `json:"rooms"`
	Users []models.User `json:"users"`
	At    time.Time     `json:"at"`
}

// Publisher fans snapshots out to subscribers. Slow subscribers skip
// intermediate snapshots rather than blocking publishers; the latest state
// always gets through.
type Publisher struct {
	mu   sync.Mutex
	subs map[int]chan Snapshot
	next int
}

func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[int]chan Snapshot)}
}

// Subscribe registers a listener. The returned cancel func unregisters it
// and closes the channel.
func (p *Publisher) Subscribe() (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.next
	p.next++
	ch := make(chan Snapshot, 1)
	p.subs[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// PublishState loads the full floor-plan state from st and publishes it.
// Called after every committed mutation.
func (p *Publisher) PublishState(ctx context.Context, st store.Store, logger *utils.Logger) {
	rooms, err := st.ListRooms(ctx)
	if err != nil {
		logger.Error("Failed to load rooms for snapshot", "error", err)
		return
	}
	users, err := st.ListUsers(ctx)
	if err != nil {
		logger.Error("Failed to load users for snapshot", "error", err)
		return
	}
	p.Publish(Snapshot{Rooms: rooms, Users: users, At: time.Now().UTC()})
}

// Publish delivers snap to every subscriber. A subscriber with a stale
// pending snapshot has it replaced by the newer one.
func (p *Publisher) Publish(snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
