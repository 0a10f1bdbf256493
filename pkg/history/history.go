package history

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/types"
)

var (
	// Bucket names
	bucketRollouts = []byte("rollouts")
)

// Store persists terminal rollout records in BoltDB
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) the rollout history database under dataDir
func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "rollouts.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRollouts); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketRollouts, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a terminal rollout result (upsert by rollout ID)
func (s *Store) Record(res *types.RolloutResult) error {
	if res.ID == "" {
		return fmt.Errorf("rollout result has no ID")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRollouts)
		data, err := json.Marshal(res)
		if err != nil {
			return err
		}
		return b.Put([]byte(res.ID), data)
	})
}

// Get retrieves a rollout record by ID
func (s *Store) Get(id string) (*types.RolloutResult, error) {
	var res types.RolloutResult
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRollouts)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("rollout not found: %s", id)
		}
		return json.Unmarshal(data, &res)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// List returns rollout records newest-first. A limit of 0 or below
// returns everything.
func (s *Store) List(limit int) ([]*types.RolloutResult, error) {
	all, err := s.scan(func(*types.RolloutResult) bool { return true })
	if err != nil {
		return nil, err
	}
	return clip(all, limit), nil
}

// ListByService returns a service's rollout records newest-first
func (s *Store) ListByService(service string, limit int) ([]*types.RolloutResult, error) {
	matched, err := s.scan(func(r *types.RolloutResult) bool {
		return r.Service == service
	})
	if err != nil {
		return nil, err
	}
	return clip(matched, limit), nil
}

// LastByService returns the most recent rollout record for a service
func (s *Store) LastByService(service string) (*types.RolloutResult, error) {
	matched, err := s.ListByService(service, 1)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("no rollouts recorded for service: %s", service)
	}
	return matched[0], nil
}

// scan loads every record passing the filter, sorted newest-first
func (s *Store) scan(keep func(*types.RolloutResult) bool) ([]*types.RolloutResult, error) {
	var results []*types.RolloutResult
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRollouts)
		return b.ForEach(func(k, v []byte) error {
			var res types.RolloutResult
			if err := json.Unmarshal(v, &res); err != nil {
				return err
			}
			if keep(&res) {
				results = append(results, &res)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].StartedAt.Equal(results[j].StartedAt) {
			return results[i].ID < results[j].ID
		}
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	return results, nil
}

func clip(results []*types.RolloutResult, limit int) []*types.RolloutResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
