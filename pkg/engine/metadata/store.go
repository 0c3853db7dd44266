// Poolkeeper
// Copyright (c) 2026 The Poolkeeper Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Poolkeeper.
//
// Poolkeeper is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Poolkeeper is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Poolkeeper.  If not, see <http://www.gnu.org/licenses/>.

// Package metadata persists pool metadata in a bbolt database so that pools
// survive a daemon restart.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
)

const BucketPools = "pools"

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("metadata store is closed")

type BlockDev struct {
	Devnode string             `json:"devnode"`
	UUID    types.DevUUID      `json:"uuid"`
	Tier    types.BlockDevTier `json:"tier"`
}

type Filesystem struct {
	Created   time.Time            `json:"created"`
	Name      types.Name           `json:"name"`
	SizeBytes uint64               `json:"size_bytes"`
	UUID      types.FilesystemUUID `json:"uuid"`
}

// PoolMetadata is the persisted form of one pool.
type PoolMetadata struct {
	Created     time.Time             `json:"created"`
	Encryption  *types.EncryptionInfo `json:"encryption,omitempty"`
	Name        types.Name            `json:"name"`
	BlockDevs   []BlockDev            `json:"blockdevs"`
	Filesystems []Filesystem          `json:"filesystems"`
	UUID        types.PoolUUID        `json:"uuid"`
	Redundancy  types.Redundancy      `json:"redundancy"`
}

type Store struct {
	bdb *bolt.DB
}

// Open opens or creates the database at path and makes sure the pools
// bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketPools))
		if err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", BucketPools, err)
		}
		return nil
	})
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing metadata database")
		}
		return nil, err
	}

	return &Store{bdb: db}, nil
}

func (s *Store) Close() error {
	if s.bdb == nil {
		return nil
	}
	err := s.bdb.Close()
	s.bdb = nil
	if err != nil {
		return fmt.Errorf("failed to close bolt database: %w", err)
	}
	return nil
}

// Save writes md, replacing any previous record for the same pool.
func (s *Store) Save(md *PoolMetadata) error {
	if s.bdb == nil {
		return ErrClosed
	}
	if md.UUID.IsNil() {
		return errors.New("pool metadata has no uuid")
	}

	data, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to marshal pool metadata: %w", err)
	}

	err = s.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketPools)).Put([]byte(md.UUID.String()), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save pool %s: %w", md.UUID, err)
	}
	return nil
}

// Delete removes the record for pool. Deleting a missing record is not an
// error.
func (s *Store) Delete(pool types.PoolUUID) error {
	if s.bdb == nil {
		return ErrClosed
	}
	err := s.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketPools)).Delete([]byte(pool.String()))
	})
	if err != nil {
		return fmt.Errorf("failed to delete pool %s: %w", pool, err)
	}
	return nil
}

// Load returns every stored pool in key order.
func (s *Store) Load() ([]PoolMetadata, error) {
	if s.bdb == nil {
		return nil, ErrClosed
	}

	pools := make([]PoolMetadata, 0)
	err := s.bdb.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketPools))
		if b == nil {
			return fmt.Errorf("bucket %q does not exist", BucketPools)
		}
		return b.ForEach(func(k, v []byte) error {
			var md PoolMetadata
			if err := json.Unmarshal(v, &md); err != nil {
				return fmt.Errorf("failed to unmarshal pool %s: %w", k, err)
			}
			if md.UUID.String() != string(k) {
				return fmt.Errorf("pool record %s holds uuid %s", k, md.UUID)
			}
			pools = append(pools, md)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to view bolt database: %w", err)
	}

	return pools, nil
}
