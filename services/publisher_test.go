package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/models"
)

func TestPublisherDeliversToAllSubscribers(t *testing.T) {
	p := NewPublisher()

	ch1, cancel1 := p.Subscribe()
	ch2, cancel2 := p.Subscribe()
	defer cancel1()
	defer cancel2()

	snap := Snapshot{Rooms: []models.Room{{ID: "r1"}}, At: time.Now()}
	p.Publish(snap)

	for _, ch := range []<-chan Snapshot{ch1, ch2} {
		select {
		case got := <-ch:
			require.Len(t, got.Rooms, 1)
			assert.Equal(t, "r1", got.Rooms[0].ID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive snapshot")
		}
	}
}

func TestPublisherSlowSubscriberGetsLatest(t *testing.T) {
	p := NewPublisher()

	ch, cancel := p.Subscribe()
	defer cancel()

	// Nobody reads between these; the stale snapshot must be replaced.
	p.Publish(Snapshot{Rooms: []models.Room{{ID: "stale"}}})
	p.Publish(Snapshot{Rooms: []models.Room{{ID: "fresh"}}})

	select {
	case got := <-ch:
		assert.Equal(t, "fresh", got.Rooms[0].ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive snapshot")
	}
}

func TestPublisherCancelClosesChannel(t *testing.T) {
	p := NewPublisher()

	ch, cancel := p.Subscribe()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Cancel twice is safe, and publishing after cancel must not panic.
	cancel()
	p.Publish(Snapshot{})
}
