// Package redisstore is the KV-backed half of the persistence façade: saved
// connections, configurations, I/O display metadata, and HMI panels.
// Adapted from the teacher's internal/bridge/redis_publisher.go connection
// pattern (redis.ParseURL + redis.NewClient + Ping), but reshaped from
// XAdd stream publishing into ordinary CRUD: each record is a msgpack blob
// under its own key, indexed by a Redis Set for listing.
package redisstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/fanuc-rmi/rmigateway/internal/store"
)

// Store is the Redis-backed implementation of
// store.SavedConnectionStore, store.ConfigurationStore,
// store.IODisplayStore, and store.HMIPanelStore.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

// New parses redisURL, connects, and verifies reachability with a Ping.
func New(redisURL string, logger *zap.Logger) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	logger.Info("connected to redis store")
	return &Store{client: client, logger: logger}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func recordKey(kind, id string) string  { return fmt.Sprintf("%s:%s", kind, id) }
func indexKey(kind, scope string) string {
	if scope == "" {
		return fmt.Sprintf("%s:index", kind)
	}
	return fmt.Sprintf("%s:index:%s", kind, scope)
}

func put[T any](ctx context.Context, s *Store, kind, scope, id string, v T) error {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKey(kind, id), raw, 0)
	pipe.SAdd(ctx, indexKey(kind, scope), id)
	_, err = pipe.Exec(ctx)
	return err
}

func get[T any](ctx context.Context, s *Store, kind, id string) (T, error) {
	var out T
	raw, err := s.client.Get(ctx, recordKey(kind, id)).Bytes()
	if err != nil {
		return out, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	if err := msgpack.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", kind, err)
	}
	return out, nil
}

func list[T any](ctx context.Context, s *Store, kind, scope string) ([]T, error) {
	ids, err := s.client.SMembers(ctx, indexKey(kind, scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v, err := get[T](ctx, s, kind, id)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func remove(ctx context.Context, s *Store, kind, scope, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, recordKey(kind, id))
	pipe.SRem(ctx, indexKey(kind, scope), id)
	_, err := pipe.Exec(ctx)
	return err
}

const (
	kindSavedConnection = "saved_connection"
	kindConfiguration   = "configuration"
	kindIODisplay       = "io_display"
	kindHMIPanel        = "hmi_panel"
)

func (s *Store) ListSavedConnections(ctx context.Context) ([]store.SavedConnection, error) {
	return list[store.SavedConnection](ctx, s, kindSavedConnection, "")
}

func (s *Store) GetSavedConnection(ctx context.Context, id string) (store.SavedConnection, error) {
	return get[store.SavedConnection](ctx, s, kindSavedConnection, id)
}

func (s *Store) CreateSavedConnection(ctx context.Context, c store.SavedConnection) (store.SavedConnection, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := put(ctx, s, kindSavedConnection, "", c.ID, c); err != nil {
		return store.SavedConnection{}, err
	}
	return c, nil
}

func (s *Store) UpdateSavedConnection(ctx context.Context, c store.SavedConnection) (store.SavedConnection, error) {
	if err := put(ctx, s, kindSavedConnection, "", c.ID, c); err != nil {
		return store.SavedConnection{}, err
	}
	return c, nil
}

func (s *Store) DeleteSavedConnection(ctx context.Context, id string) error {
	return remove(ctx, s, kindSavedConnection, "", id)
}

func (s *Store) ListConfigurations(ctx context.Context, robotID string) ([]store.Configuration, error) {
	return list[store.Configuration](ctx, s, kindConfiguration, robotID)
}

func (s *Store) GetConfiguration(ctx context.Context, id string) (store.Configuration, error) {
	return get[store.Configuration](ctx, s, kindConfiguration, id)
}

func (s *Store) CreateConfiguration(ctx context.Context, c store.Configuration) (store.Configuration, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.IsDefault {
		if err := s.clearDefault(ctx, c.RobotID); err != nil {
			return store.Configuration{}, err
		}
	}
	if err := put(ctx, s, kindConfiguration, c.RobotID, c.ID, c); err != nil {
		return store.Configuration{}, err
	}
	return c, nil
}

func (s *Store) UpdateConfiguration(ctx context.Context, c store.Configuration) (store.Configuration, error) {
	if c.IsDefault {
		if err := s.clearDefault(ctx, c.RobotID); err != nil {
			return store.Configuration{}, err
		}
	}
	if err := put(ctx, s, kindConfiguration, c.RobotID, c.ID, c); err != nil {
		return store.Configuration{}, err
	}
	return c, nil
}

func (s *Store) DeleteConfiguration(ctx context.Context, id string) error {
	c, err := s.GetConfiguration(ctx, id)
	if err != nil {
		return err
	}
	return remove(ctx, s, kindConfiguration, c.RobotID, id)
}

// clearDefault flips IsDefault off on every existing configuration for
// robotID, preserving the exactly-one-default invariant spec.md §6.4
// requires before a new default is written.
func (s *Store) clearDefault(ctx context.Context, robotID string) error {
	configs, err := s.ListConfigurations(ctx, robotID)
	if err != nil {
		return err
	}
	for _, c := range configs {
		if c.IsDefault {
			c.IsDefault = false
			if err := put(ctx, s, kindConfiguration, robotID, c.ID, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) SetDefaultConfiguration(ctx context.Context, robotID, id string) error {
	if err := s.clearDefault(ctx, robotID); err != nil {
		return err
	}
	c, err := s.GetConfiguration(ctx, id)
	if err != nil {
		return err
	}
	c.IsDefault = true
	return put(ctx, s, kindConfiguration, robotID, c.ID, c)
}

// CreateRobotWithConfigurations creates a saved connection plus its
// initial configuration set atomically from the caller's perspective: it
// validates invariants before writing anything.
func (s *Store) CreateRobotWithConfigurations(ctx context.Context, conn store.SavedConnection, configs []store.Configuration) (store.SavedConnection, []store.Configuration, error) {
	if len(configs) == 0 {
		return store.SavedConnection{}, nil, fmt.Errorf("at least one configuration is required")
	}
	defaults := 0
	for _, c := range configs {
		if c.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		return store.SavedConnection{}, nil, fmt.Errorf("exactly one configuration must be marked default, got %d", defaults)
	}

	created, err := s.CreateSavedConnection(ctx, conn)
	if err != nil {
		return store.SavedConnection{}, nil, err
	}

	out := make([]store.Configuration, 0, len(configs))
	for _, c := range configs {
		c.RobotID = created.ID
		saved, err := s.CreateConfiguration(ctx, c)
		if err != nil {
			return created, out, err
		}
		out = append(out, saved)
	}
	return created, out, nil
}

func (s *Store) ListIODisplayMetadata(ctx context.Context, robotID string) ([]store.IODisplayMetadata, error) {
	return list[store.IODisplayMetadata](ctx, s, kindIODisplay, robotID)
}

func (s *Store) UpsertIODisplayMetadata(ctx context.Context, m store.IODisplayMetadata) (store.IODisplayMetadata, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := put(ctx, s, kindIODisplay, m.RobotID, m.ID, m); err != nil {
		return store.IODisplayMetadata{}, err
	}
	return m, nil
}

func (s *Store) DeleteIODisplayMetadata(ctx context.Context, id string) error {
	raw, err := s.client.Get(ctx, recordKey(kindIODisplay, id)).Bytes()
	if err != nil {
		return err
	}
	var m store.IODisplayMetadata
	if err := msgpack.Unmarshal(raw, &m); err != nil {
		return err
	}
	return remove(ctx, s, kindIODisplay, m.RobotID, id)
}

func (s *Store) ListHMIPanels(ctx context.Context, robotID string) ([]store.HMIPanel, error) {
	return list[store.HMIPanel](ctx, s, kindHMIPanel, robotID)
}

func (s *Store) GetHMIPanel(ctx context.Context, id string) (store.HMIPanel, error) {
	return get[store.HMIPanel](ctx, s, kindHMIPanel, id)
}

func (s *Store) CreateHMIPanel(ctx context.Context, p store.HMIPanel) (store.HMIPanel, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := put(ctx, s, kindHMIPanel, p.RobotID, p.ID, p); err != nil {
		return store.HMIPanel{}, err
	}
	return p, nil
}

func (s *Store) UpdateHMIPanel(ctx context.Context, p store.HMIPanel) (store.HMIPanel, error) {
	if err := put(ctx, s, kindHMIPanel, p.RobotID, p.ID, p); err != nil {
		return store.HMIPanel{}, err
	}
	return p, nil
}

func (s *Store) DeleteHMIPanel(ctx context.Context, id string) error {
	p, err := s.GetHMIPanel(ctx, id)
	if err != nil {
		return err
	}
	return remove(ctx, s, kindHMIPanel, p.RobotID, id)
}
