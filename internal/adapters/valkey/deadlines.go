package valkey

import (
	"context"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"
)

// extendScript stores ARGV[1] (unix ms) under KEYS[1] unless the current
// value is later, expiring the key at the deadline plus ARGV[3] ms of grace.
// It returns the deadline in effect.
var extendScript = valkey.NewLuaScript(`
local new = tonumber(ARGV[1])
local cur = redis.call('GET', KEYS[1])
if cur and tonumber(cur) >= new then
	return tonumber(cur)
end
local ttl = new - tonumber(ARGV[2])
if ttl <= 0 then
	return new
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl + tonumber(ARGV[3]))
return new
`)

// DeadlineStore implements ports.DeadlineStore in Valkey so every API
// replica sees the same countdown for a session.
type DeadlineStore struct {
	client valkey.Client
	grace  time.Duration
	now    func() time.Time
}

// NewDeadlineStore creates a DeadlineStore. grace keeps a deadline readable
// for a while after it passes; Get still reports it as absent.
func NewDeadlineStore(client valkey.Client, grace time.Duration) *DeadlineStore {
	return &DeadlineStore{client: client, grace: grace, now: time.Now}
}

func deadlineKey(session string) string {
	return keyPrefix + "deadline:" + session
}

// Extend implements ports.DeadlineStore.
func (s *DeadlineStore) Extend(ctx context.Context, session string, deadline time.Time) (time.Time, error) {
	ms, err := extendScript.Exec(ctx, s.client,
		[]string{deadlineKey(session)},
		[]string{
			strconv.FormatInt(deadline.UnixMilli(), 10),
			strconv.FormatInt(s.now().UnixMilli(), 10),
			strconv.FormatInt(s.grace.Milliseconds(), 10),
		},
	).AsInt64()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// Get implements ports.DeadlineStore.
func (s *DeadlineStore) Get(ctx context.Context, session string) (time.Time, bool, error) {
	ms, err := s.client.Do(ctx, s.client.B().Get().Key(deadlineKey(session)).Build()).AsInt64()
	if valkey.IsValkeyNil(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	d := time.UnixMilli(ms)
	if !d.After(s.now()) {
		return time.Time{}, false, nil
	}
	return d, true, nil
}
