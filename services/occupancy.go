package services

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/lib/pq"

	"atrium/models"
	"atrium/store"
	"atrium/utils"
)

// OccupancyEngine owns every mutation of the occupancy fields: a room's
// assigned_users and current_occupants, and a user's home_office_id and
// current_office_id. No other code path may write them; that discipline is
// what keeps the capacity and single-presence invariants enforceable.
type OccupancyEngine struct {
	store     store.Store
	publisher *Publisher
	logger    *utils.Logger

	attempts int
	backoff  time.Duration
}

// NewOccupancyEngine constructs the engine. attempts bounds transaction
// retries after write conflicts; backoff is the initial retry delay, doubled
// per attempt with jitter.
func NewOccupancyEngine(st store.Store, publisher *Publisher, logger *utils.Logger, attempts int, backoff time.Duration) *OccupancyEngine {
	if attempts < 1 {
		attempts = 1
	}
	if backoff <= 0 {
		backoff = 25 * time.Millisecond
	}
	return &OccupancyEngine{
		store:     st,
		publisher: publisher,
		logger:    logger,
		attempts:  attempts,
		backoff:   backoff,
	}
}

// run executes fn transactionally, retrying conflicted commits with
// exponential backoff. fn must be pure given its snapshot so retries are safe.
func (e *OccupancyEngine) run(ctx context.Context, op string, fn func(tx store.Txn) error) error {
	delay := e.backoff
	for attempt := 1; ; attempt++ {
		err := e.store.RunTransaction(ctx, fn)
		if err == nil {
			e.notify(ctx)
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		if attempt >= e.attempts {
			e.logger.Warn("transaction retries exhausted", "op", op, "attempts", attempt)
			return errTransientConflict("Operation could not complete due to concurrent updates, please retry")
		}
		jitter := time.Duration(rand.Int63n(int64(delay) + 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + jitter):
		}
		delay *= 2
	}
}

func (e *OccupancyEngine) notify(ctx context.Context) {
	if e.publisher == nil {
		return
	}
	e.publisher.PublishState(ctx, e.store, e.logger)
}

// AssignHomeOffice sets a user's permanent home room and teleports their
// presence there, evicting them from the previous home room entirely. Only
// assigned-seat capacity is validated; current occupancy of the destination
// is not checked, matching the visit-overflow behavior the floor plan allows.
func (e *OccupancyEngine) AssignHomeOffice(ctx context.Context, userID, newOfficeID string) error {
	if userID == "" || newOfficeID == "" {
		return errInvalidState("Invalid user or office ID")
	}

	return e.run(ctx, "assign_home_office", func(tx store.Txn) error {
		user, err := tx.GetUser(userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errNotFound("User not found")
			}
			return err
		}

		newOffice, err := tx.GetRoom(newOfficeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errNotFound("New office not found")
			}
			return err
		}

		if len(newOffice.AssignedUsers) >= newOffice.MaxOccupants {
			return errCapacity("Office has reached maximum assigned users")
		}

		if prev := user.HomeOfficeID; prev != nil && *prev != newOfficeID {
			prevOffice, err := tx.GetRoom(*prev)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if prevOffice != nil {
				prevOffice.RemoveAssigned(userID)
				prevOffice.RemoveOccupant(userID)
				if err := tx.SaveRoom(prevOffice); err != nil {
					return err
				}
			}
		}

		newOffice.AddAssigned(userID)
		newOffice.AddOccupant(userID)
		if err := tx.SaveRoom(newOffice); err != nil {
			return err
		}

		user.HomeOfficeID = &newOffice.ID
		user.CurrentOfficeID = &newOffice.ID
		return tx.SaveUser(user)
	})
}

// VisitOffice moves a user's current presence to a room without touching
// home assignment. A room with assigned users is gated by its primary
// assignee: until that user is present, nobody else may enter.
func (e *OccupancyEngine) VisitOffice(ctx context.Context, userID, newOfficeID string) error {
	if userID == "" || newOfficeID == "" {
		return errInvalidState("Invalid user or office ID")
	}

	return e.run(ctx, "visit_office", func(tx store.Txn) error {
		user, err := tx.GetUser(userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errNotFound("User not found")
			}
			return err
		}

		newOffice, err := tx.GetRoom(newOfficeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errNotFound("Office not found")
			}
			return err
		}

		if len(newOffice.CurrentOccupants) >= newOffice.MaxOccupants {
			return errCapacity("Office is at maximum capacity")
		}

		if primary, ok := newOffice.PrimaryAssignee(); ok {
			if !newOffice.Occupies(primary) && userID != primary {
				return errAccessDenied("Cannot visit when assigned user is not present")
			}
		}

		if cur := user.CurrentOfficeID; cur != nil && *cur != newOfficeID {
			curOffice, err := tx.GetRoom(*cur)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if curOffice != nil {
				curOffice.RemoveOccupant(userID)
				if err := tx.SaveRoom(curOffice); err != nil {
					return err
				}
			}
		}

		newOffice.AddOccupant(userID)
		if err := tx.SaveRoom(newOffice); err != nil {
			return err
		}

		user.CurrentOfficeID = &newOffice.ID
		return tx.SaveUser(user)
	})
}

// LeaveOffice returns a user from wherever they currently are to their home
// office. Leaving while already home is a successful no-op.
func (e *OccupancyEngine) LeaveOffice(ctx context.Context, userID string) error {
	if userID == "" {
		return errInvalidState("Invalid user ID")
	}

	return e.run(ctx, "leave_office", func(tx store.Txn) error {
		user, err := tx.GetUser(userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errNotFound("User does not exist")
			}
			return err
		}

		if user.CurrentOfficeID == nil {
			return errInvalidState("User is not currently in any office")
		}
		if user.HomeOfficeID == nil {
			return errInvalidState("User does not have a home office")
		}

		currentID := *user.CurrentOfficeID
		homeID := *user.HomeOfficeID

		if currentID != homeID {
			current, err := tx.GetRoom(currentID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if current != nil {
				current.RemoveOccupant(userID)
				if err := tx.SaveRoom(current); err != nil {
					return err
				}
			}
		}

		home, err := tx.GetRoom(homeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errNotFound("Home office not found")
			}
			return err
		}
		home.AddOccupant(userID)
		if err := tx.SaveRoom(home); err != nil {
			return err
		}

		user.CurrentOfficeID = &homeID
		return tx.SaveUser(user)
	})
}

// CreateRoom creates a room with empty occupancy. Numeric fields arrive
// normalized by the request binding; arrays always start empty.
func (e *OccupancyEngine) CreateRoom(ctx context.Context, req models.CreateRoomRequest) (*models.Room, error) {
	if req.MaxOccupants <= 0 {
		return nil, errInvalidState("Room capacity must be positive")
	}

	room := &models.Room{
		Name:             req.Name,
		Type:             req.Type,
		AssignedUsers:    pq.StringArray{},
		CurrentOccupants: pq.StringArray{},
		MaxOccupants:     req.MaxOccupants,
		PosX:             req.PosX,
		PosY:             req.PosY,
		Width:            req.Width,
		Height:           req.Height,
	}

	err := e.run(ctx, "create_room", func(tx store.Txn) error {
		return tx.CreateRoom(room)
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// DeleteRoom deletes a room unconditionally. Callers are responsible for
// checking the room is empty first; the engine does not enforce it.
func (e *OccupancyEngine) DeleteRoom(ctx context.Context, roomID string) error {
	if roomID == "" {
		return errInvalidState("Invalid room ID")
	}

	return e.run(ctx, "delete_room", func(tx store.Txn) error {
		if err := tx.DeleteRoom(roomID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errNotFound("Room not found")
			}
			return err
		}
		return nil
	})
}
