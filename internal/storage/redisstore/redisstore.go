// Package redisstore archives programs, stacks and traces in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/gridbots/programmable/internal/config"
	"github.com/gridbots/programmable/pkg/core"
)

const defaultTimeout = 5 * time.Second

// Backend keeps one key per object and concern under a common prefix.
type Backend struct {
	client  *backend.Client
	prefix  string
	timeout time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

// WithTimeout bounds every Redis round trip.
func WithTimeout(d time.Duration) Option {
	return func(b *Backend) {
		b.timeout = d
	}
}

// New creates a backend connected to cfg.Addr.
func New(cfg config.RedisConfig, opts ...Option) *Backend {
	client := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewFromClient(client, cfg.Prefix, opts...)
}

// NewFromClient creates a backend from an existing client.
func NewFromClient(client *backend.Client, prefix string, opts ...Option) *Backend {
	if prefix == "" {
		prefix = "robotctl"
	}
	b := &Backend{
		client:  client,
		prefix:  prefix,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) key(objectID int, kind string) string {
	return b.prefix + ":object:" + strconv.Itoa(objectID) + ":" + kind
}

func (b *Backend) traceSeqKey() string {
	return b.prefix + ":trace:seq"
}

func (b *Backend) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

// Init checks the server is reachable.
func (b *Backend) Init() error {
	ctx, cancel := b.ctx()
	defer cancel()
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (b *Backend) Close() error {
	return b.client.Close()
}

// SavePrograms replaces the programs of an object.
func (b *Backend) SavePrograms(objectID int, progs []core.ProgramSource) error {
	if progs == nil {
		progs = []core.ProgramSource{}
	}
	data, err := json.Marshal(progs)
	if err != nil {
		return fmt.Errorf("failed to marshal programs: %w", err)
	}
	ctx, cancel := b.ctx()
	defer cancel()
	if err := b.client.Set(ctx, b.key(objectID, "programs"), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// LoadPrograms returns the programs of an object.
func (b *Backend) LoadPrograms(objectID int) ([]core.ProgramSource, error) {
	ctx, cancel := b.ctx()
	defer cancel()
	val, err := b.client.Get(ctx, b.key(objectID, "programs")).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	var progs []core.ProgramSource
	if err := json.Unmarshal(val, &progs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal programs: %w", err)
	}
	return progs, nil
}

// SaveStack replaces the stack snapshot of an object.
func (b *Backend) SaveStack(objectID int, data []byte) error {
	ctx, cancel := b.ctx()
	defer cancel()
	if err := b.client.Set(ctx, b.key(objectID, "stack"), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// LoadStack returns the stack snapshot of an object.
func (b *Backend) LoadStack(objectID int) ([]byte, error) {
	ctx, cancel := b.ctx()
	defer cancel()
	val, err := b.client.Get(ctx, b.key(objectID, "stack")).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// RecordTrace appends a recording to the object's list, numbering it from
// a shared sequence.
func (b *Backend) RecordTrace(t *core.TraceRecording) error {
	ctx, cancel := b.ctx()
	defer cancel()

	id, err := b.client.Incr(ctx, b.traceSeqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate trace id: %w", err)
	}
	rec := *t
	rec.ID = uint(id)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	if err := b.client.RPush(ctx, b.key(t.ObjectID, "traces"), data).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	t.ID = rec.ID
	return nil
}

// Traces returns the recordings of an object in insertion order.
func (b *Backend) Traces(objectID int) ([]core.TraceRecording, error) {
	ctx, cancel := b.ctx()
	defer cancel()
	vals, err := b.client.LRange(ctx, b.key(objectID, "traces"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list traces: %w", err)
	}
	out := make([]core.TraceRecording, 0, len(vals))
	for _, v := range vals {
		var t core.TraceRecording
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trace: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}
