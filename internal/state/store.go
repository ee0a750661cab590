package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/brainytots/whatsapp-connect/pkg/logging"
)

// DefaultTTL bounds how long an idle conversation survives in the store.
const DefaultTTL = 24 * time.Hour

// ErrNoBackend is returned by New when no Redis client is supplied and the
// in-memory fallback has not been explicitly enabled. Running multi-worker
// deployments on process-local state silently would lose conversations, so
// the opt-in is mandatory.
var ErrNoBackend = errors.New("state: redis client required unless memory fallback is explicitly enabled")

// Store persists one Conversation per user identifier. It prefers a shared
// Redis backend with a TTL and demotes itself to a process-local map when
// Redis fails. Demotion is one-way for the process lifetime: a later
// successful Redis call never re-promotes.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
	tracer trace.Tracer

	allowMemory bool
	memoryOnly  atomic.Bool
	warned      atomic.Bool

	initOnce sync.Once
	initErr  error

	mu  sync.RWMutex
	mem map[string]memEntry
}

type memEntry struct {
	payload   []byte
	expiresAt time.Time
}

// Options configures a Store.
type Options struct {
	// Client is the shared Redis backend. May be nil only when
	// AllowMemoryFallback is true.
	Client *redis.Client
	// TTL is the idle lifetime of a record. Zero means DefaultTTL.
	TTL time.Duration
	// AllowMemoryFallback permits volatile process-local storage when Redis
	// is absent or fails. State is then lost on restart and not shared
	// across workers.
	AllowMemoryFallback bool
	Logger              *logging.Logger
}

// New validates the backend configuration and returns a Store. Connectivity
// is verified lazily on first use so construction stays cheap and testable.
func New(opts Options) (*Store, error) {
	if opts.Client == nil && !opts.AllowMemoryFallback {
		return nil, ErrNoBackend
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	s := &Store{
		client:      opts.Client,
		ttl:         opts.TTL,
		logger:      opts.Logger,
		tracer:      otel.Tracer("whatsapp-connect.internal.state"),
		allowMemory: opts.AllowMemoryFallback,
		mem:         make(map[string]memEntry),
	}
	if opts.Client == nil {
		s.memoryOnly.Store(true)
		s.warnDegraded("no redis client configured")
	}
	return s, nil
}

// MemoryOnly reports whether the store is serving from the volatile
// process-local map.
func (s *Store) MemoryOnly() bool {
	return s.memoryOnly.Load()
}

// ensureReady pings Redis exactly once across all callers. A failed ping
// demotes to memory when the fallback is allowed, otherwise surfaces a hard
// error to every subsequent operation.
func (s *Store) ensureReady(ctx context.Context) error {
	s.initOnce.Do(func() {
		if s.memoryOnly.Load() {
			return
		}
		if err := s.client.Ping(ctx).Err(); err != nil {
			if !s.allowMemory {
				s.initErr = fmt.Errorf("state: redis unreachable: %w", err)
				return
			}
			s.demote("redis ping failed", err)
			return
		}
		s.logger.Info("connected to redis for conversation state", "ttl", s.ttl.String())
	})
	return s.initErr
}

// demote flips the store into volatile mode. The CAS ensures concurrent
// failing operations produce exactly one demotion log.
func (s *Store) demote(reason string, err error) {
	if !s.memoryOnly.CompareAndSwap(false, true) {
		return
	}
	s.logger.Warn("redis operation failed, switching to memory store", "reason", reason, "error", err)
	s.warnDegraded(reason)
}

func (s *Store) warnDegraded(reason string) {
	if !s.warned.CompareAndSwap(false, true) {
		return
	}
	s.logger.Error("conversation state persistence degraded: per-process memory store will drop state across restarts and workers",
		"reason", reason,
	)
}

func key(id string) string {
	return fmt.Sprintf("conversation_state:%s", id)
}

// Get returns the conversation for id, or (nil, nil) when absent or expired.
func (s *Store) Get(ctx context.Context, id string) (*Conversation, error) {
	ctx, span := s.tracer.Start(ctx, "state.get")
	defer span.End()

	if err := s.ensureReady(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var payload []byte
	if !s.memoryOnly.Load() {
		data, err := s.client.Get(ctx, key(id)).Bytes()
		switch {
		case err == nil:
			payload = data
		case errors.Is(err, redis.Nil):
			return nil, nil
		default:
			span.RecordError(err)
			s.demote("redis get failed", err)
		}
	}
	if payload == nil {
		payload = s.memGet(id)
	}
	if payload == nil {
		return nil, nil
	}

	var conv Conversation
	if err := json.Unmarshal(payload, &conv); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("state: failed to decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

// Set upserts the conversation for id and restarts its TTL countdown.
func (s *Store) Set(ctx context.Context, id string, conv *Conversation) error {
	ctx, span := s.tracer.Start(ctx, "state.set")
	defer span.End()

	if err := s.ensureReady(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	payload, err := json.Marshal(conv)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("state: failed to encode conversation %s: %w", id, err)
	}

	if !s.memoryOnly.Load() {
		err := s.client.Set(ctx, key(id), payload, s.ttl).Err()
		if err == nil {
			return nil
		}
		span.RecordError(err)
		s.demote("redis set failed", err)
	}

	s.memSet(id, payload)
	return nil
}

// Delete removes the conversation for id. Deleting an absent id is not an
// error.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "state.delete")
	defer span.End()

	if err := s.ensureReady(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	if !s.memoryOnly.Load() {
		if err := s.client.Del(ctx, key(id)).Err(); err != nil {
			span.RecordError(err)
			s.demote("redis delete failed", err)
		}
	}

	s.mu.Lock()
	delete(s.mem, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) memGet(id string) []byte {
	s.mu.RLock()
	entry, ok := s.mem[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.mem, id)
		s.mu.Unlock()
		return nil
	}
	return entry.payload
}

func (s *Store) memSet(id string, payload []byte) {
	s.mu.Lock()
	s.mem[id] = memEntry{payload: payload, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
}
