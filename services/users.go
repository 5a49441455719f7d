package services

import (
	"context"
	"errors"
	"time"

	"atrium/models"
	"atrium/store"
	"atrium/utils"
)

// UserService is the thin read/write layer over user documents. Status and
// profile fields are writable here; the occupancy pointers belong to the
// OccupancyEngine.
type UserService struct {
	store     store.Store
	publisher *Publisher
	logger    *utils.Logger
}

func NewUserService(st store.Store, publisher *Publisher, logger *utils.Logger) *UserService {
	return &UserService{store: st, publisher: publisher, logger: logger}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNotFound("User not found")
		}
		return nil, err
	}
	return user, nil
}

// UpdateStatus sets the user's presence status and bumps last_active.
func (s *UserService) UpdateStatus(ctx context.Context, id string, status models.UserStatus) (*models.User, error) {
	if !models.ValidStatus(status) {
		return nil, errInvalidState("Unknown status")
	}

	var updated *models.User
	err := s.store.RunTransaction(ctx, func(tx store.Txn) error {
		user, err := tx.GetUser(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errNotFound("User not found")
			}
			return err
		}
		user.Status = status
		user.LastActive = time.Now().UTC()
		if err := tx.SaveUser(user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx)
	return updated, nil
}

// EnsureUser is the login bootstrap: it creates the user document on first
// login from verified token claims, or marks an existing user online.
func (s *UserService) EnsureUser(ctx context.Context, id, name, email, avatar string) (*models.User, error) {
	var result *models.User
	err := s.store.RunTransaction(ctx, func(tx store.Txn) error {
		user, err := tx.GetUser(id)
		if err == nil {
			user.Status = models.StatusOnline
			user.LastActive = time.Now().UTC()
			if err := tx.SaveUser(user); err != nil {
				return err
			}
			result = user
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		user = &models.User{
			ID:         id,
			Name:       name,
			Email:      email,
			Avatar:     avatar,
			Role:       "Member",
			Status:     models.StatusOnline,
			LastActive: time.Now().UTC(),
		}
		if err := tx.CreateUser(user); err != nil {
			return err
		}
		result = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx)
	return result, nil
}

func (s *UserService) notify(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishState(ctx, s.store, s.logger)
}
