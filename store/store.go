// Package store provides the transactional document store backing the
// occupancy engine. Implementations expose snapshot reads plus
// version-guarded writes: a transaction observes a consistent snapshot and
// commits only if none of the documents it wrote changed underneath it,
// otherwise it fails with ErrConflict and the caller retries.
package store

import (
	"context"
	"errors"

	"atrium/models"
)

var (
	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a transaction could not commit because a
	// touched document was modified concurrently.
	ErrConflict = errors.New("write conflict")
	// ErrExists is returned when creating a document whose id is taken.
	ErrExists = errors.New("document already exists")
)

// Txn is the mutation surface available inside a transaction. Reads see the
// transaction's snapshot; writes are applied to it and become visible to
// other callers only on commit.
type Txn interface {
	GetUser(id string) (*models.User, error)
	GetRoom(id string) (*models.Room, error)
	CreateUser(user *models.User) error
	SaveUser(user *models.User) error
	SaveRoom(room *models.Room) error
	CreateRoom(room *models.Room) error
	DeleteRoom(id string) error
}

// Store is a transactional key-document store over users and rooms.
type Store interface {
	// RunTransaction executes fn against a snapshot and commits its writes
	// atomically. A failed commit surfaces ErrConflict; any error from fn
	// aborts with no partial effect.
	RunTransaction(ctx context.Context, fn func(tx Txn) error) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
}
