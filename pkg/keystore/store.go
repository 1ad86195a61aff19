// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biostore.
//
// go-biostore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package keystore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awnumar/memguard"
	"golang.org/x/sync/singleflight"

	"github.com/jeremyhahn/go-biostore/pkg/logging"
	"github.com/jeremyhahn/go-biostore/pkg/metrics"
	"github.com/jeremyhahn/go-biostore/pkg/storage"
	"github.com/jeremyhahn/go-biostore/pkg/types"
)

// Driver supplies the variant-specific parts of a KeyStore: where the
// records for a name live, how fresh material is generated and how a
// handle is built from loaded records.
type Driver interface {
	Variant() types.KeyVariant

	// Paths returns the storage keys owned by name. Generate and Open
	// exchange records in the same order.
	Paths(name string) []string

	// Generate returns new records for one key. Enrollment and
	// CreatedAt are filled in by the caller.
	Generate(rand io.Reader) ([]*Record, error)

	// Open builds a handle from records. Open takes ownership of the
	// record material.
	Open(info *KeyInfo, records []*Record) (Handle, error)
}

// KeyInfo carries the variant-independent state of a handle. Driver
// handles embed it.
type KeyInfo struct {
	name      string
	variant   types.KeyVariant
	created   bool
	recreated bool
	state     *keyState
}

// Name returns the key name.
func (k *KeyInfo) Name() string { return k.name }

// Variant returns the key variant.
func (k *KeyInfo) Variant() types.KeyVariant { return k.variant }

// Created reports whether the key was generated for this handle.
func (k *KeyInfo) Created() bool { return k.created }

// Recreated reports whether the key replaced an invalidated one.
func (k *KeyInfo) Recreated() bool { return k.recreated }

// Invalidated reports whether the key was deleted or invalidated after
// the handle was issued.
func (k *KeyInfo) Invalidated() bool {
	return k.state != nil && k.state.invalidated.Load()
}

// keyState is shared by all live handles for one stored key.
type keyState struct {
	invalidated atomic.Bool
}

// Store is a KeyStore backed by a storage.Backend.
type Store struct {
	driver     Driver
	storage    storage.Backend
	enrollment EnrollmentSource
	logger     logging.Logger
	rand       io.Reader

	locks *keyedMutex
	group singleflight.Group

	mu     sync.Mutex
	states map[string]*keyState
}

// New creates a Store for the given driver.
func New(driver Driver, config *Config) (*Store, error) {
	if driver == nil {
		return nil, fmt.Errorf("%w: driver is required", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: storage is required", err)
	}
	cfg := *config
	cfg.setDefaults()

	return &Store{
		driver:     driver,
		storage:    cfg.Storage,
		enrollment: cfg.Enrollment,
		logger:     cfg.Logger.With(logging.String("variant", driver.Variant().String())),
		rand:       cfg.Rand,
		locks:      newKeyedMutex(),
		states:     make(map[string]*keyState),
	}, nil
}

// Variant returns the capability shape of keys in this store.
func (s *Store) Variant() types.KeyVariant {
	return s.driver.Variant()
}

// GetOrCreate returns the key for name, creating it on a miss.
// Concurrent calls for the same name share a single lookup or creation.
func (s *Store) GetOrCreate(ctx context.Context, name string) (Handle, error) {
	start := time.Now()
	v, err, _ := s.group.Do(name, func() (interface{}, error) {
		unlock := s.locks.Lock(name)
		defer unlock()
		return s.getOrCreate(ctx, name)
	})

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	metrics.RecordOperation(metrics.OpGetOrCreate, s.Variant().String(), status, time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return v.(Handle), nil
}

func (s *Store) getOrCreate(ctx context.Context, name string) (Handle, error) {
	enrollment, err := s.fingerprint(ctx)
	if err != nil {
		return nil, err
	}

	h, err := s.load(name, enrollment)
	switch {
	case err == nil:
		return h, nil
	case errors.Is(err, ErrKeyNotFound):
		return s.create(name, enrollment, false)
	case errors.Is(err, ErrKeyInvalidated), errors.Is(err, ErrInvalidRecord):
		reason := metrics.ReasonEnrollmentChanged
		if errors.Is(err, ErrInvalidRecord) {
			reason = metrics.ReasonBindFailed
		}
		s.logger.Warn("Key permanently invalidated, recreating",
			logging.String("key", name),
			logging.String("reason", reason))
		if err := s.remove(name); err != nil {
			return nil, err
		}
		metrics.RecordKeyRecreation(s.Variant().String(), reason)
		return s.create(name, enrollment, true)
	default:
		return nil, err
	}
}

// Get returns the key for name without creating it.
func (s *Store) Get(ctx context.Context, name string) (Handle, error) {
	unlock := s.locks.Lock(name)
	defer unlock()

	enrollment, err := s.fingerprint(ctx)
	if err != nil {
		return nil, err
	}
	return s.load(name, enrollment)
}

// Delete removes all records for name. Live handles for the key report
// Invalidated afterwards.
func (s *Store) Delete(ctx context.Context, name string) error {
	start := time.Now()
	unlock := s.locks.Lock(name)
	defer unlock()

	err := s.remove(name)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	metrics.RecordOperation(metrics.OpDeleteKey, s.Variant().String(), status, time.Since(start).Seconds())

	if err == nil {
		s.logger.Debug("Key deleted", logging.String("key", name))
	}
	return err
}

// Invalidate marks the key under name permanently invalidated. The next
// GetOrCreate replaces it.
func (s *Store) Invalidate(ctx context.Context, name string) error {
	unlock := s.locks.Lock(name)
	defer unlock()

	records, err := s.readRecords(name)
	if err != nil {
		return err
	}
	defer wipeAll(records)

	for i, path := range s.driver.Paths(name) {
		records[i].Invalidated = true
		if err := s.writeRecord(path, records[i]); err != nil {
			return err
		}
	}
	s.retire(name)
	s.logger.Info("Key invalidated", logging.String("key", name))
	return nil
}

func (s *Store) fingerprint(ctx context.Context) (string, error) {
	if s.enrollment == nil {
		return "", nil
	}
	fp, err := s.enrollment.Fingerprint(ctx)
	if err != nil {
		return "", fmt.Errorf("keystore: failed to read enrollment: %w", err)
	}
	return fp, nil
}

// load reads and validates the records for name. Must be called with
// the name lock held.
func (s *Store) load(name, enrollment string) (Handle, error) {
	records, err := s.readRecords(name)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.Stale(enrollment) {
			wipeAll(records)
			return nil, ErrKeyInvalidated
		}
	}

	info := &KeyInfo{
		name:    name,
		variant: s.Variant(),
		state:   s.liveState(name),
	}
	h, err := s.driver.Open(info, records)
	if err != nil {
		wipeAll(records)
		return nil, err
	}
	return h, nil
}

// create generates and persists a new key. Must be called with the name
// lock held.
func (s *Store) create(name, enrollment string, recreated bool) (Handle, error) {
	records, err := s.driver.Generate(s.rand)
	if err != nil {
		return nil, fmt.Errorf("keystore: failed to generate %s key: %w", s.Variant(), err)
	}

	paths := s.driver.Paths(name)
	if len(records) != len(paths) {
		wipeAll(records)
		return nil, fmt.Errorf("%w: driver returned %d records for %d paths", ErrInvalidRecord, len(records), len(paths))
	}

	now := time.Now().UTC()
	for i, r := range records {
		r.CreatedAt = now
		r.Enrollment = enrollment
		if err := s.writeRecord(paths[i], r); err != nil {
			wipeAll(records)
			_ = s.deletePaths(paths)
			return nil, err
		}
	}

	s.retire(name)
	info := &KeyInfo{
		name:      name,
		variant:   s.Variant(),
		created:   true,
		recreated: recreated,
		state:     s.liveState(name),
	}
	h, err := s.driver.Open(info, records)
	if err != nil {
		wipeAll(records)
		return nil, err
	}

	s.logger.Debug("Key created",
		logging.String("key", name),
		logging.Bool("recreated", recreated))
	return h, nil
}

// remove deletes the records for name and retires live handles.
func (s *Store) remove(name string) error {
	s.retire(name)
	return s.deletePaths(s.driver.Paths(name))
}

func (s *Store) deletePaths(paths []string) error {
	for _, path := range paths {
		if err := storage.DeleteIfExists(s.storage, path); err != nil {
			return fmt.Errorf("keystore: failed to delete %s: %w", path, err)
		}
	}
	return nil
}

// readRecords loads every record for name. A name with no records is
// ErrKeyNotFound; a name with only some of its records is ErrInvalidRecord.
func (s *Store) readRecords(name string) ([]*Record, error) {
	paths := s.driver.Paths(name)
	records := make([]*Record, 0, len(paths))
	missing := 0

	for _, path := range paths {
		data, err := s.storage.Get(path)
		if errors.Is(err, storage.ErrNotFound) {
			missing++
			continue
		}
		if err != nil {
			wipeAll(records)
			return nil, fmt.Errorf("keystore: failed to read %s: %w", path, err)
		}
		r, err := unmarshalRecord(data)
		memguard.WipeBytes(data)
		if err != nil {
			wipeAll(records)
			return nil, err
		}
		records = append(records, r)
	}

	switch {
	case missing == len(paths):
		return nil, ErrKeyNotFound
	case missing > 0:
		wipeAll(records)
		return nil, fmt.Errorf("%w: incomplete key material for %q", ErrInvalidRecord, name)
	}
	return records, nil
}

func (s *Store) writeRecord(path string, r *Record) error {
	data, err := marshalRecord(r)
	if err != nil {
		return fmt.Errorf("keystore: failed to encode %s: %w", path, err)
	}
	defer memguard.WipeBytes(data)

	opts := storage.DefaultOptions()
	opts.Label = path
	if err := s.storage.Put(path, data, opts); err != nil {
		return fmt.Errorf("keystore: failed to write %s: %w", path, err)
	}
	return nil
}

// liveState returns the state shared by handles for name.
func (s *Store) liveState(name string) *keyState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[name]
	if !ok {
		st = &keyState{}
		s.states[name] = st
	}
	return st
}

// retire invalidates all live handles for name.
func (s *Store) retire(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[name]; ok {
		st.invalidated.Store(true)
		delete(s.states, name)
	}
}

func wipeAll(records []*Record) {
	for _, r := range records {
		if r != nil {
			r.Wipe()
		}
	}
}
