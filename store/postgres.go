package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"atrium/models"
)

// Postgres is the production Store. Each RunTransaction call maps to a
// database transaction; writes carry a version guard
// (WHERE id = ? AND version = ?) so a concurrent writer that got there first
// turns the commit into ErrConflict instead of a lost update.
type Postgres struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewPostgres wraps an open gorm connection.
func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{
		db:    db,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

type postgresTxn struct {
	db  *gorm.DB
	now time.Time
}

func (tx *postgresTxn) GetUser(id string) (*models.User, error) {
	var user models.User
	if err := tx.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (tx *postgresTxn) GetRoom(id string) (*models.Room, error) {
	var room models.Room
	if err := tx.db.First(&room, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (tx *postgresTxn) CreateUser(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = tx.now
	user.UpdatedAt = tx.now
	if err := tx.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrExists
		}
		return err
	}
	return nil
}

func (tx *postgresTxn) SaveUser(user *models.User) error {
	prev := user.Version
	user.Version = prev + 1
	user.UpdatedAt = tx.now

	res := tx.db.Model(&models.User{}).
		Where("id = ? AND version = ?", user.ID, prev).
		Select("*").Omit("id", "created_at").
		Updates(user)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (tx *postgresTxn) SaveRoom(room *models.Room) error {
	prev := room.Version
	room.Version = prev + 1
	room.UpdatedAt = tx.now

	res := tx.db.Model(&models.Room{}).
		Where("id = ? AND version = ?", room.ID, prev).
		Select("*").Omit("id", "created_at").
		Updates(room)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (tx *postgresTxn) CreateRoom(room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	room.CreatedAt = tx.now
	room.UpdatedAt = tx.now
	if err := tx.db.Create(room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrExists
		}
		return err
	}
	return nil
}

func (tx *postgresTxn) DeleteRoom(id string) error {
	res := tx.db.Delete(&models.Room{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RunTransaction executes fn inside a database transaction. Any error from
// fn, including a version-guard conflict, rolls the transaction back.
func (s *Postgres) RunTransaction(ctx context.Context, fn func(tx Txn) error) error {
	return s.db.WithContext(ctx).Transaction(func(dbTx *gorm.DB) error {
		return fn(&postgresTxn{db: dbTx, now: s.nowFn()})
	})
}

func (s *Postgres) GetUser(ctx context.Context, id string) (*models.User, error) {
	tx := postgresTxn{db: s.db.WithContext(ctx), now: s.nowFn()}
	return tx.GetUser(id)
}

func (s *Postgres) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	tx := postgresTxn{db: s.db.WithContext(ctx), now: s.nowFn()}
	return tx.GetRoom(id)
}

func (s *Postgres) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Postgres) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.db.WithContext(ctx).Order("created_at").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}
