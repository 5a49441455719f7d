package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"atrium/models"
	"atrium/utils"
)

const (
	presenceKeyPrefix = "presence:"
	onlineSetKey      = "online_users"
)

// UserPresence is the heartbeat record kept in Redis with a TTL. It expires
// on its own when a client stops sending heartbeats.
type UserPresence struct {
	UserID       string            `json:"user_id"`
	Status       models.UserStatus `json:"status"`
	LastSeen     time.Time         `json:"last_seen"`
	Device       string            `json:"device,omitempty"`
	ConnectionID string            `json:"connection_id,omitempty"`
}

// PresenceService tracks liveness heartbeats in Redis, separate from the
// room presence the occupancy engine owns.
type PresenceService struct {
	redis  *redis.Client
	engine *OccupancyEngine
	logger *utils.Logger
	ttl    time.Duration
}

func NewPresenceService(redisClient *redis.Client, engine *OccupancyEngine, logger *utils.Logger, ttl time.Duration) *PresenceService {
	if ttl <= 0 {
		ttl = 120 * time.Second
	}
	return &PresenceService{
		redis:  redisClient,
		engine: engine,
		logger: logger,
		ttl:    ttl,
	}
}

// Heartbeat refreshes a user's presence record and membership in the online set.
func (ps *PresenceService) Heartbeat(ctx context.Context, userID string, status models.UserStatus, device string) error {
	presence := UserPresence{
		UserID:       userID,
		Status:       status,
		LastSeen:     time.Now().UTC(),
		Device:       device,
		ConnectionID: uuid.NewString(),
	}

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence data: %w", err)
	}

	key := presenceKeyPrefix + userID

	pipe := ps.redis.Pipeline()
	pipe.Set(ctx, key, data, ps.ttl)
	pipe.SAdd(ctx, onlineSetKey, userID)
	pipe.Expire(ctx, onlineSetKey, ps.ttl*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}

	ps.logger.Debug("Updated presence", "user_id", userID, "status", status)
	return nil
}

// Get returns a user's presence, reporting offline when the record expired.
func (ps *PresenceService) Get(ctx context.Context, userID string) (*UserPresence, error) {
	data, err := ps.redis.Get(ctx, presenceKeyPrefix+userID).Result()
	if err != nil {
		if err == redis.Nil {
			return &UserPresence{UserID: userID, Status: models.StatusOffline}, nil
		}
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	var presence UserPresence
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence data: %w", err)
	}

	if time.Since(presence.LastSeen) > ps.ttl {
		presence.Status = models.StatusOffline
	}
	return &presence, nil
}

// Online returns every live presence record, sweeping expired members out of
// the online set as a side effect.
func (ps *PresenceService) Online(ctx context.Context) ([]UserPresence, error) {
	userIDs, err := ps.redis.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get online users: %w", err)
	}
	if len(userIDs) == 0 {
		return []UserPresence{}, nil
	}

	pipe := ps.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(userIDs))
	for i, userID := range userIDs {
		cmds[i] = pipe.Get(ctx, presenceKeyPrefix+userID)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get presence data: %w", err)
	}

	online := make([]UserPresence, 0, len(userIDs))
	var expired []interface{}
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			if err == redis.Nil {
				expired = append(expired, userIDs[i])
				continue
			}
			ps.logger.Warn("Error getting presence", "user_id", userIDs[i], "error", err)
			continue
		}

		var presence UserPresence
		if err := json.Unmarshal([]byte(data), &presence); err != nil {
			ps.logger.Warn("Error unmarshaling presence", "user_id", userIDs[i], "error", err)
			continue
		}

		if time.Since(presence.LastSeen) <= ps.ttl {
			online = append(online, presence)
		} else {
			expired = append(expired, presence.UserID)
		}
	}

	if len(expired) > 0 {
		ps.redis.SRem(ctx, onlineSetKey, expired...)
	}
	return online, nil
}

// Remove deletes a user's presence record.
func (ps *PresenceService) Remove(ctx context.Context, userID string) error {
	pipe := ps.redis.Pipeline()
	pipe.Del(ctx, presenceKeyPrefix+userID)
	pipe.SRem(ctx, onlineSetKey, userID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove presence: %w", err)
	}
	return nil
}

// HandleVisit marks the user online then moves them into the office.
func (ps *PresenceService) HandleVisit(ctx context.Context, userID, officeID string) error {
	if err := ps.Heartbeat(ctx, userID, models.StatusOnline, "web"); err != nil {
		return err
	}
	return ps.engine.VisitOffice(ctx, userID, officeID)
}

// HandleLeave marks the user offline then returns them to their home office.
func (ps *PresenceService) HandleLeave(ctx context.Context, userID string) error {
	if err := ps.Heartbeat(ctx, userID, models.StatusOffline, "web"); err != nil {
		return err
	}
	return ps.engine.LeaveOffice(ctx, userID)
}
