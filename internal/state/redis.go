package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "conductor:session:"

	minUpdateBackoff = 2 * time.Millisecond
	maxUpdateBackoff = 200 * time.Millisecond
)

// Session hash fields.
const (
	fieldID          = "id"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
	fieldPrompt      = "prompt"
	fieldIntent      = "intent"
	fieldFinalResult = "final_result"
)

// Single-field writes run as scripts so concurrent writers never conflict.
// KEYS are the session hash, the outputs hash and the history list; ARGV[1]
// is the update stamp and ARGV[2] the TTL in milliseconds. A script returns 0
// when the session hash is gone.
const (
	scriptGuard = `if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
`
	scriptTouch = `
redis.call('HSET', KEYS[1], 'updated_at', ARGV[1])
for i = 1, #KEYS do redis.call('PEXPIRE', KEYS[i], ARGV[2]) end
return 1`
)

var (
	setFieldScript    = redis.NewScript(scriptGuard + `redis.call('HSET', KEYS[1], ARGV[3], ARGV[4])` + scriptTouch)
	setOutputScript   = redis.NewScript(scriptGuard + `redis.call('HSET', KEYS[2], ARGV[3], ARGV[4])` + scriptTouch)
	appendEventScript = redis.NewScript(scriptGuard + `redis.call('RPUSH', KEYS[3], ARGV[3])` + scriptTouch)
)

// RedisStore keeps each session as a hash of its scalar fields, a hash of
// agent outputs and a list of history events, all sharing a sliding TTL, so
// contexts can be shared between engine instances.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. Keys are prefix+id, with
// ":outputs" and ":history" suffixes for the other two structures; an empty
// prefix uses "conductor:session:".
func NewRedisStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) keys(id string) []string {
	base := s.prefix + id
	return []string{base, base + ":outputs", base + ":history"}
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (s *RedisStore) Init(ctx context.Context, id string, data Data) (*SessionContext, error) {
	if id == "" {
		return nil, fmt.Errorf("init session: id is required")
	}
	sc := newSession(id, data)
	if err := s.write(ctx, s.rdb, sc); err != nil {
		return nil, fmt.Errorf("init session %q: %w", id, err)
	}
	return sc.clone(), nil
}

// write replaces all three structures of sc in one MULTI.
func (s *RedisStore) write(ctx context.Context, c redis.Cmdable, sc *SessionContext) error {
	keys := s.keys(sc.ID)
	history := make([]any, 0, len(sc.History))
	for _, ev := range sc.History {
		raw, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		history = append(history, string(raw))
	}
	_, err := c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.HSet(ctx, keys[0], map[string]any{
			fieldID:          sc.ID,
			fieldCreatedAt:   stamp(sc.CreatedAt),
			fieldUpdatedAt:   stamp(sc.UpdatedAt),
			fieldPrompt:      sc.Data.Prompt,
			fieldIntent:      sc.Data.Intent,
			fieldFinalResult: sc.Data.FinalResult,
		})
		if len(sc.Data.AgentOutputs) > 0 {
			outputs := make(map[string]any, len(sc.Data.AgentOutputs))
			for k, v := range sc.Data.AgentOutputs {
				outputs[k] = v
			}
			pipe.HSet(ctx, keys[1], outputs)
		}
		if len(history) > 0 {
			pipe.RPush(ctx, keys[2], history...)
		}
		for _, k := range keys {
			pipe.PExpire(ctx, k, s.ttl)
		}
		return nil
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, id string) (*SessionContext, error) {
	return s.load(ctx, s.rdb, id)
}

func (s *RedisStore) load(ctx context.Context, c redis.Cmdable, id string) (*SessionContext, error) {
	keys := s.keys(id)
	var (
		meta    *redis.MapStringStringCmd
		outputs *redis.MapStringStringCmd
		history *redis.StringSliceCmd
	)
	_, err := c.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		meta = pipe.HGetAll(ctx, keys[0])
		outputs = pipe.HGetAll(ctx, keys[1])
		history = pipe.LRange(ctx, keys[2], 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get session %q: %w", id, err)
	}
	fields := meta.Val()
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}

	sc := &SessionContext{
		ID: id,
		Data: Data{
			Prompt:       fields[fieldPrompt],
			Intent:       fields[fieldIntent],
			FinalResult:  fields[fieldFinalResult],
			AgentOutputs: outputs.Val(),
		},
		History: make([]Event, 0, len(history.Val())),
	}
	if sc.Data.AgentOutputs == nil {
		sc.Data.AgentOutputs = make(map[string]string)
	}
	sc.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	sc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])
	for _, raw := range history.Val() {
		var ev Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("decode session %q event: %w", id, err)
		}
		sc.History = append(sc.History, ev)
	}
	return sc, nil
}

// Update performs an optimistic read-modify-write of the whole session under
// WATCH. Conflicting writes are retried with jittered backoff until ctx ends.
// The single-field writers below never conflict with each other and should
// be preferred.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*SessionContext)) error {
	txf := func(tx *redis.Tx) error {
		sc, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		fn(sc)
		sc.UpdatedAt = time.Now().UTC()
		return s.write(ctx, tx, sc)
	}

	backoff := minUpdateBackoff
	for {
		err := s.rdb.Watch(ctx, txf, s.keys(id)...)
		if !errors.Is(err, redis.TxFailedErr) {
			if err != nil && !errors.Is(err, ErrSessionNotFound) {
				return fmt.Errorf("update session %q: %w", id, err)
			}
			return err
		}
		wait := backoff/2 + rand.N(backoff)
		select {
		case <-ctx.Done():
			return fmt.Errorf("update session %q: %w", id, ctx.Err())
		case <-time.After(wait):
		}
		backoff = min(backoff*2, maxUpdateBackoff)
	}
}

func (s *RedisStore) run(ctx context.Context, script *redis.Script, id, op string, args ...any) error {
	argv := append([]any{stamp(time.Now()), s.ttl.Milliseconds()}, args...)
	n, err := script.Run(ctx, s.rdb, s.keys(id), argv...).Int()
	if err != nil {
		return fmt.Errorf("%s session %q: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return nil
}

// SetOutput writes one agent output with a single HSET.
func (s *RedisStore) SetOutput(ctx context.Context, id, agent, output string) error {
	return s.run(ctx, setOutputScript, id, "set output", agent, output)
}

// AppendEvent pushes one event onto the history list.
func (s *RedisStore) AppendEvent(ctx context.Context, id string, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("append event %q: %w", id, err)
	}
	return s.run(ctx, appendEventScript, id, "append event", string(raw))
}

func (s *RedisStore) SetField(ctx context.Context, id string, field Field, value string) error {
	var name string
	switch field {
	case FieldIntent:
		name = fieldIntent
	case FieldFinalResult:
		name = fieldFinalResult
	default:
		return fmt.Errorf("set field %q: unknown field %q", id, field)
	}
	return s.run(ctx, setFieldScript, id, "set field", name, value)
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.keys(id)...).Err(); err != nil {
		return fmt.Errorf("clear session %q: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
