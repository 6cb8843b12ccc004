// internal/storage/redis/store.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/models"
)

// usageKeyTTL outlives the month the counter belongs to, then the key
// expires on its own.
const usageKeyTTL = 40 * 24 * time.Hour

// conversationTTL keeps chat transcripts around long enough for analytics.
const conversationTTL = 90 * 24 * time.Hour

// Store keeps the per-business monthly usage counters and the append-only
// conversation log. The usage increment is a single atomic INCR so two
// concurrent turns cannot both slip past the allowance check unbounded.
type Store struct {
	client *redis.Client
	now    func() time.Time
	logger logger.Logger
}

func New(client *redis.Client, log logger.Logger) *Store {
	return &Store{
		client: client,
		now:    time.Now,
		logger: log.With(map[string]interface{}{
			"component": "redis-store",
		}),
	}
}

func (s *Store) usageKey(businessID string) string {
	return fmt.Sprintf("agent:usage:%s:%s", businessID, s.now().UTC().Format("2006-01"))
}

func conversationKey(businessID, sessionID string) string {
	return fmt.Sprintf("agent:conv:%s:%s", businessID, sessionID)
}

// GetUsage reads the current month's counter. A missing key means zero usage.
func (s *Store) GetUsage(ctx context.Context, businessID string, limit int) (models.Usage, error) {
	value, err := s.client.Get(ctx, s.usageKey(businessID)).Result()
	if errors.Is(err, redis.Nil) {
		return models.Usage{Used: 0, Limit: limit}, nil
	}
	if err != nil {
		return models.Usage{}, fmt.Errorf("reading usage for %s: %w", businessID, err)
	}
	used, err := strconv.Atoi(value)
	if err != nil {
		return models.Usage{}, fmt.Errorf("parsing usage counter for %s: %w", businessID, err)
	}
	return models.Usage{Used: used, Limit: limit}, nil
}

// IncrementUsage atomically bumps the monthly counter and returns the new
// value. The TTL is set when the key is first created.
func (s *Store) IncrementUsage(ctx context.Context, businessID string) (int, error) {
	key := s.usageKey(businessID)
	used, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing usage for %s: %w", businessID, err)
	}
	if used == 1 {
		if err := s.client.Expire(ctx, key, usageKeyTTL).Err(); err != nil {
			s.logger.Warn("setting usage key TTL failed", map[string]interface{}{
				"businessId": businessID,
				"error":      err.Error(),
			})
		}
	}
	return int(used), nil
}

// AppendConversation pushes the turn pair onto the session's list and bumps
// its token total in one pipeline.
func (s *Store) AppendConversation(ctx context.Context, conv models.Conversation) error {
	key := conversationKey(conv.BusinessID, conv.SessionID)

	encoded := make([]interface{}, 0, len(conv.Turns))
	for _, turn := range conv.Turns {
		payload, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("encoding conversation turn: %w", err)
		}
		encoded = append(encoded, payload)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, encoded...)
	pipe.IncrBy(ctx, key+":tokens", int64(conv.TokensUsed))
	if conv.UserID != "" {
		pipe.Set(ctx, key+":user", conv.UserID, conversationTTL)
	}
	pipe.Expire(ctx, key, conversationTTL)
	pipe.Expire(ctx, key+":tokens", conversationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending conversation %s: %w", key, err)
	}
	return nil
}

// GetConversation reloads a session transcript with its metadata.
func (s *Store) GetConversation(ctx context.Context, businessID, sessionID string) (models.Conversation, error) {
	key := conversationKey(businessID, sessionID)

	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return models.Conversation{}, fmt.Errorf("reading conversation %s: %w", key, err)
	}

	turns := make([]models.ConversationTurn, 0, len(raw))
	for _, payload := range raw {
		var turn models.ConversationTurn
		if err := json.Unmarshal([]byte(payload), &turn); err != nil {
			return models.Conversation{}, fmt.Errorf("decoding conversation turn: %w", err)
		}
		turns = append(turns, turn)
	}

	conv := models.Conversation{
		BusinessID: businessID,
		SessionID:  sessionID,
		Turns:      turns,
	}

	if tokens, err := s.client.Get(ctx, key+":tokens").Int(); err == nil {
		conv.TokensUsed = tokens
	}
	if userID, err := s.client.Get(ctx, key+":user").Result(); err == nil {
		conv.UserID = userID
	}
	if rating, err := s.client.Get(ctx, key+":rating").Int(); err == nil {
		conv.Rating = &rating
	}
	if resolved, err := s.client.Get(ctx, key+":resolved").Bool(); err == nil {
		conv.Resolved = resolved
	}
	return conv, nil
}

// RateConversation records a satisfaction rating against a session.
func (s *Store) RateConversation(ctx context.Context, businessID, sessionID string, rating int) error {
	key := conversationKey(businessID, sessionID) + ":rating"
	if err := s.client.Set(ctx, key, rating, conversationTTL).Err(); err != nil {
		return fmt.Errorf("rating conversation: %w", err)
	}
	return nil
}

// MarkResolved flags a session as resolved.
func (s *Store) MarkResolved(ctx context.Context, businessID, sessionID string) error {
	key := conversationKey(businessID, sessionID) + ":resolved"
	if err := s.client.Set(ctx, key, true, conversationTTL).Err(); err != nil {
		return fmt.Errorf("marking conversation resolved: %w", err)
	}
	return nil
}
