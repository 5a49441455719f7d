package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/models"
)

func TestMemoryRoomLifecycle(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	var roomID string
	err := mem.RunTransaction(ctx, func(tx Txn) error {
		room := &models.Room{Name: "Office A", Type: models.RoomTypeOffice, MaxOccupants: 2}
		if err := tx.CreateRoom(room); err != nil {
			return err
		}
		roomID = room.ID
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, roomID)

	room, err := mem.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, "Office A", room.Name)
	assert.False(t, room.CreatedAt.IsZero())

	err = mem.RunTransaction(ctx, func(tx Txn) error {
		r, err := tx.GetRoom(roomID)
		if err != nil {
			return err
		}
		r.AddOccupant("u1")
		return tx.SaveRoom(r)
	})
	require.NoError(t, err)

	room, err = mem.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, []string(room.CurrentOccupants))
	assert.Equal(t, int64(1), room.Version)

	err = mem.RunTransaction(ctx, func(tx Txn) error {
		return tx.DeleteRoom(roomID)
	})
	require.NoError(t, err)

	_, err = mem.GetRoom(ctx, roomID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTransactionAbortLeavesStateUntouched(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	mem.SeedUser(models.User{ID: "u1", Name: "Alice"})

	boom := errors.New("boom")
	err := mem.RunTransaction(ctx, func(tx Txn) error {
		user, err := tx.GetUser("u1")
		if err != nil {
			return err
		}
		user.Name = "Mallory"
		if err := tx.SaveUser(user); err != nil {
			return err
		}
		room := &models.Room{Name: "Partial", Type: models.RoomTypeOffice, MaxOccupants: 1}
		if err := tx.CreateRoom(room); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	user, err := mem.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name, "aborted write must not leak")

	rooms, err := mem.ListRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestMemoryReturnsClones(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	var roomID string
	require.NoError(t, mem.RunTransaction(ctx, func(tx Txn) error {
		room := &models.Room{Name: "Office A", Type: models.RoomTypeOffice, MaxOccupants: 3}
		if err := tx.CreateRoom(room); err != nil {
			return err
		}
		room.AddOccupant("u1")
		if err := tx.SaveRoom(room); err != nil {
			return err
		}
		roomID = room.ID
		return nil
	}))

	first, err := mem.GetRoom(ctx, roomID)
	require.NoError(t, err)
	first.AddOccupant("intruder")
	first.Name = "Hacked"

	second, err := mem.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, "Office A", second.Name)
	assert.Equal(t, []string{"u1"}, []string(second.CurrentOccupants))
}

func TestMemoryCreateUserDuplicate(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	mem.SeedUser(models.User{ID: "u1", Name: "Alice"})

	err := mem.RunTransaction(ctx, func(tx Txn) error {
		return tx.CreateUser(&models.User{ID: "u1", Name: "Clone"})
	})
	assert.ErrorIs(t, err, ErrExists)
}

func TestMemoryTimestampsUseNowFn(t *testing.T) {
	mem := NewMemory()
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mem.SetNow(func() time.Time { return frozen })

	var roomID string
	require.NoError(t, mem.RunTransaction(context.Background(), func(tx Txn) error {
		room := &models.Room{Name: "Office A", Type: models.RoomTypeOffice, MaxOccupants: 1}
		if err := tx.CreateRoom(room); err != nil {
			return err
		}
		roomID = room.ID
		return nil
	}))

	room, err := mem.GetRoom(context.Background(), roomID)
	require.NoError(t, err)
	assert.Equal(t, frozen, room.CreatedAt)
	assert.Equal(t, frozen, room.UpdatedAt)
}

func TestMemoryListOrdering(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"First", "Second", "Third"} {
		stamp := base.Add(time.Duration(i) * time.Minute)
		mem.SetNow(func() time.Time { return stamp })
		require.NoError(t, mem.RunTransaction(ctx, func(tx Txn) error {
			return tx.CreateRoom(&models.Room{Name: name, Type: models.RoomTypeOffice, MaxOccupants: 1})
		}))
	}

	rooms, err := mem.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, "First", rooms[0].Name)
	assert.Equal(t, "Third", rooms[2].Name)

	mem.SeedUser(models.User{ID: "b", Name: "Bob"})
	mem.SeedUser(models.User{ID: "a", Name: "Alice"})
	users, err := mem.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Name)
}
