package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/okian/coachfit/internal/domain/model"
)

// hashClient is the subset of *redis.Client the loader needs.
type hashClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// redisCoach is the JSON value stored per coach_id in the roster hash.
type redisCoach struct {
	Name        string  `json:"coach_name"`
	Rating      float64 `json:"coach_rating"`
	Experiences string  `json:"coach_experiences"`
}

// RedisLoader reads a roster from a Redis hash: field = coach_id, value = a
// JSON object with coach_name, coach_rating and coach_experiences.
type RedisLoader struct {
	client hashClient
	key    string
	closer func() error
}

// NewRedisLoader connects to addr and verifies the connection.
func NewRedisLoader(ctx context.Context, addr, password string, db int, key string) (*RedisLoader, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %w", ErrRosterLoad, addr, err)
	}
	return &RedisLoader{client: client, key: key, closer: client.Close}, nil
}

// NewRedisLoaderWithClient uses an existing client.
func NewRedisLoaderWithClient(client hashClient, key string) *RedisLoader {
	return &RedisLoader{client: client, key: key}
}

func (l *RedisLoader) Name() string { return "redis" }

// Load reads the whole hash. Coaches are returned ordered by coach_id since
// hash order is unspecified.
func (l *RedisLoader) Load(ctx context.Context) ([]model.CoachCandidate, error) {
	entries, err := l.client.HGetAll(ctx, l.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", l.key, err)
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.CoachCandidate, 0, len(ids))
	for _, id := range ids {
		var rc redisCoach
		if err := json.Unmarshal([]byte(entries[id]), &rc); err != nil {
			return nil, fmt.Errorf("%w: coach %q: %w", ErrMalformedRoster, id, err)
		}
		out = append(out, model.CoachCandidate{
			ID:          id,
			Name:        rc.Name,
			Rating:      rc.Rating,
			Experiences: rc.Experiences,
		})
	}
	return out, nil
}

// Save writes coaches into the roster hash, keyed by coach_id.
func (l *RedisLoader) Save(ctx context.Context, coaches []model.CoachCandidate) error {
	if len(coaches) == 0 {
		return nil
	}
	values := make([]interface{}, 0, 2*len(coaches))
	for _, c := range coaches {
		b, err := json.Marshal(redisCoach{Name: c.Name, Rating: c.Rating, Experiences: c.Experiences})
		if err != nil {
			return fmt.Errorf("marshal coach %q: %w", c.ID, err)
		}
		values = append(values, c.ID, string(b))
	}
	return l.client.HSet(ctx, l.key, values...).Err()
}

// Close releases the connection opened by NewRedisLoader.
func (l *RedisLoader) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer()
}
