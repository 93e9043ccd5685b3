package presence

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

const (
	usersKey    = "presence:users"
	sessionsKey = "presence:sessions"
)

// KEYS[1] users hash, KEYS[2] sessions hash, ARGV[1] user, ARGV[2] session
var setOnlineScript = redis.NewScript(`
local old = redis.call("HGET", KEYS[1], ARGV[1])
if old then
  redis.call("HDEL", KEYS[2], old)
end
local prev = redis.call("HGET", KEYS[2], ARGV[2])
if prev and prev ~= ARGV[1] then
  redis.call("HDEL", KEYS[1], prev)
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
redis.call("HSET", KEYS[2], ARGV[2], ARGV[1])
return 1
`)

// KEYS[1] users hash, KEYS[2] sessions hash, ARGV[1] session
var removeSessionScript = redis.NewScript(`
local user = redis.call("HGET", KEYS[2], ARGV[1])
if not user then
  return 0
end
redis.call("HDEL", KEYS[2], ARGV[1])
if redis.call("HGET", KEYS[1], user) == ARGV[1] then
  redis.call("HDEL", KEYS[1], user)
end
return 1
`)

// Redis is a Registry shared by every instance pointing at the same server.
type Redis struct {
	client      *redis.Client
	usersKey    string
	sessionsKey string
}

// NewRedis wraps client. prefix namespaces the two hashes and may be empty.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{
		client:      client,
		usersKey:    prefix + usersKey,
		sessionsKey: prefix + sessionsKey,
	}
}

func (r *Redis) SetOnline(ctx context.Context, userID, sessionID string) error {
	if err := setOnlineScript.Run(ctx, r.client, []string{r.usersKey, r.sessionsKey}, userID, sessionID).Err(); err != nil {
		return fmt.Errorf("presence: set online: %w", err)
	}
	return nil
}

func (r *Redis) RemoveSession(ctx context.Context, sessionID string) (bool, error) {
	removed, err := removeSessionScript.Run(ctx, r.client, []string{r.usersKey, r.sessionsKey}, sessionID).Int()
	if err != nil {
		return false, fmt.Errorf("presence: remove session: %w", err)
	}
	return removed == 1, nil
}

func (r *Redis) OnlineUserIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.HKeys(ctx, r.usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("presence: list online: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
