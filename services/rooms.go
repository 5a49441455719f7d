package services

import (
	"context"
	"errors"

	"atrium/models"
	"atrium/store"
	"atrium/utils"
)

// RoomService is the thin read/write layer over room documents. It owns the
// layout-facing fields (name, geometry, capacity); the occupancy arrays are
// off limits here and only change through the OccupancyEngine.
type RoomService struct {
	store     store.Store
	publisher *Publisher
	logger    *utils.Logger
}

func NewRoomService(st store.Store, publisher *Publisher, logger *utils.Logger) *RoomService {
	return &RoomService{store: st, publisher: publisher, logger: logger}
}

func (s *RoomService) List(ctx context.Context) ([]models.Room, error) {
	return s.store.ListRooms(ctx)
}

func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.store.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNotFound("Room not found")
		}
		return nil, err
	}
	return room, nil
}

// Update applies a partial layout update. Capacity shrink below the current
// assignment or occupancy is rejected so the engine's invariants keep holding.
func (s *RoomService) Update(ctx context.Context, id string, req models.UpdateRoomRequest) (*models.Room, error) {
	var updated *models.Room
	err := s.store.RunTransaction(ctx, func(tx store.Txn) error {
		room, err := tx.GetRoom(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errNotFound("Room not found")
			}
			return err
		}

		if req.Name != nil {
			room.Name = *req.Name
		}
		if req.MaxOccupants != nil {
			if *req.MaxOccupants <= 0 {
				return errInvalidState("Room capacity must be positive")
			}
			if *req.MaxOccupants < len(room.AssignedUsers) || *req.MaxOccupants < len(room.CurrentOccupants) {
				return errCapacity("Room capacity cannot drop below current usage")
			}
			room.MaxOccupants = *req.MaxOccupants
		}
		if req.PosX != nil {
			room.PosX = *req.PosX
		}
		if req.PosY != nil {
			room.PosY = *req.PosY
		}
		if req.Width != nil {
			room.Width = *req.Width
		}
		if req.Height != nil {
			room.Height = *req.Height
		}

		if err := tx.SaveRoom(room); err != nil {
			return err
		}
		updated = room
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx)
	return updated, nil
}

func (s *RoomService) notify(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishState(ctx, s.store, s.logger)
}
