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

// Package sim is an in-memory engine. It keeps the full pool, filesystem,
// key and hotplug bookkeeping of a real engine but performs no device I/O.
package sim

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/poolkeeper/poolkeeper/pkg/engine"
	"github.com/poolkeeper/poolkeeper/pkg/engine/metadata"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
	"github.com/rs/zerolog/log"
)

// DefaultFilesystemSize is used when a filesystem spec has no size.
const DefaultFilesystemSize uint64 = 1 << 40

var _ engine.Engine = (*Engine)(nil)

type Option func(*Engine)

// WithClock sets the clock used for creation timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithStore persists pool metadata to store and loads existing pools from
// it when the engine is created.
func WithStore(store *metadata.Store) Option {
	return func(e *Engine) { e.store = store }
}

// Engine is not safe for concurrent use; callers share it through an
// engine.LockableEngine.
type Engine struct {
	clock   clockwork.Clock
	store   *metadata.Store
	pools   map[types.PoolUUID]*metadata.PoolMetadata
	locked  map[types.PoolUUID]*metadata.PoolMetadata
	keyring map[string]types.SizedKeyMemory
	liminal map[types.DevUUID]LiminalDevice
}

func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		clock:   clockwork.NewRealClock(),
		pools:   make(map[types.PoolUUID]*metadata.PoolMetadata),
		locked:  make(map[types.PoolUUID]*metadata.PoolMetadata),
		keyring: make(map[string]types.SizedKeyMemory),
		liminal: make(map[types.DevUUID]LiminalDevice),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		return e, nil
	}

	stored, err := e.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load pool metadata: %w", err)
	}
	for i := range stored {
		md := stored[i]
		if isEncrypted(&md) {
			e.locked[md.UUID] = &md
			log.Info().Stringer("pool", md.UUID).Str("name", md.Name.String()).
				Msg("loaded encrypted pool, waiting for unlock")
			continue
		}
		e.pools[md.UUID] = &md
		log.Info().Stringer("pool", md.UUID).Str("name", md.Name.String()).Msg("loaded pool")
	}

	return e, nil
}

func isEncrypted(md *metadata.PoolMetadata) bool {
	return md.Encryption != nil && !md.Encryption.IsEmpty()
}

// sameEncryption treats nil and empty encryption info as unencrypted.
func sameEncryption(a, b *types.EncryptionInfo) bool {
	if a == nil || a.IsEmpty() || b == nil || b.IsEmpty() {
		return (a == nil || a.IsEmpty()) == (b == nil || b.IsEmpty())
	}
	switch {
	case (a.KeyDescription == nil) != (b.KeyDescription == nil):
		return false
	case a.KeyDescription != nil && a.KeyDescription.String() != b.KeyDescription.String():
		return false
	case (a.Clevis == nil) != (b.Clevis == nil):
		return false
	case a.Clevis != nil && !a.Clevis.Equal(*b.Clevis):
		return false
	}
	return true
}

func clonePool(md *metadata.PoolMetadata) metadata.PoolMetadata {
	out := *md
	out.BlockDevs = slices.Clone(md.BlockDevs)
	out.Filesystems = slices.Clone(md.Filesystems)
	out.Encryption = cloneEncryption(md.Encryption)
	return out
}

func cloneEncryption(enc *types.EncryptionInfo) *types.EncryptionInfo {
	if enc == nil {
		return nil
	}
	out := types.EncryptionInfo{}
	if enc.KeyDescription != nil {
		desc := *enc.KeyDescription
		out.KeyDescription = &desc
	}
	if enc.Clevis != nil {
		clevis := types.ClevisInfo{
			Pin:    enc.Clevis.Pin,
			Config: slices.Clone(enc.Clevis.Config),
		}
		out.Clevis = &clevis
	}
	return &out
}

func poolInfo(md *metadata.PoolMetadata) engine.PoolInfo {
	info := engine.PoolInfo{
		UUID:        md.UUID,
		Name:        md.Name,
		Created:     md.Created,
		Redundancy:  md.Redundancy,
		Encryption:  cloneEncryption(md.Encryption),
		BlockDevs:   make([]engine.BlockDevInfo, 0, len(md.BlockDevs)),
		Filesystems: make([]engine.FilesystemInfo, 0, len(md.Filesystems)),
	}
	for _, bd := range md.BlockDevs {
		info.BlockDevs = append(info.BlockDevs, engine.BlockDevInfo{
			UUID:    bd.UUID,
			Devnode: bd.Devnode,
			Tier:    bd.Tier,
		})
	}
	for _, fs := range md.Filesystems {
		info.Filesystems = append(info.Filesystems, engine.FilesystemInfo{
			UUID:    fs.UUID,
			Name:    fs.Name,
			Created: fs.Created,
		})
	}
	return info
}

// commit persists next and then makes it the live record, so a failed write
// leaves the engine unchanged.
func (e *Engine) commit(next *metadata.PoolMetadata) error {
	if e.store != nil {
		if err := e.store.Save(next); err != nil {
			return fmt.Errorf("%w: %w", types.ErrIO, err)
		}
	}
	e.pools[next.UUID] = next
	return nil
}

// unlockedPool returns a live pool for mutation. Locked pools fail with
// ErrLocked, unknown ones with ErrNotFound.
func (e *Engine) unlockedPool(pool types.PoolUUID) (*metadata.PoolMetadata, error) {
	if md, ok := e.pools[pool]; ok {
		return md, nil
	}
	if _, ok := e.locked[pool]; ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrLocked, pool)
	}
	return nil, fmt.Errorf("%w: pool %s", engine.ErrNotFound, pool)
}

func (e *Engine) poolNamed(name types.Name) *metadata.PoolMetadata {
	for _, md := range e.pools {
		if md.Name == name {
			return md
		}
	}
	for _, md := range e.locked {
		if md.Name == name {
			return md
		}
	}
	return nil
}

// deviceOwner returns the pool and member record using devnode, if any.
func (e *Engine) deviceOwner(devnode string) (*metadata.PoolMetadata, *metadata.BlockDev) {
	for _, set := range []map[types.PoolUUID]*metadata.PoolMetadata{e.pools, e.locked} {
		for _, md := range set {
			for i := range md.BlockDevs {
				if md.BlockDevs[i].Devnode == devnode {
					return md, &md.BlockDevs[i]
				}
			}
		}
	}
	return nil, nil
}

func dedupePaths(devices []types.DevicePath) []string {
	seen := make(map[string]struct{}, len(devices))
	out := make([]string, 0, len(devices))
	for _, d := range devices {
		p := d.String()
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (e *Engine) Pools() []engine.PoolInfo {
	out := make([]engine.PoolInfo, 0, len(e.pools))
	for _, md := range e.pools {
		out = append(out, poolInfo(md))
	}
	slices.SortFunc(out, func(a, b engine.PoolInfo) int {
		return strings.Compare(a.Name.String(), b.Name.String())
	})
	return out
}

func (e *Engine) GetPool(uuid types.PoolUUID) (engine.PoolInfo, bool) {
	md, ok := e.pools[uuid]
	if !ok {
		return engine.PoolInfo{}, false
	}
	return poolInfo(md), true
}

func (e *Engine) GetPoolByName(name types.Name) (engine.PoolInfo, bool) {
	for _, md := range e.pools {
		if md.Name == name {
			return poolInfo(md), true
		}
	}
	return engine.PoolInfo{}, false
}

func (e *Engine) LockedPools() map[types.PoolUUID]types.LockedPoolInfo {
	out := make(map[types.PoolUUID]types.LockedPoolInfo, len(e.locked))
	for uuid, md := range e.locked {
		info := types.LockedPoolInfo{
			Info:    *cloneEncryption(md.Encryption),
			Devices: make([]types.LockedPoolDevice, 0, len(md.BlockDevs)),
		}
		for _, bd := range md.BlockDevs {
			devnode := bd.Devnode
			if seen, ok := e.liminal[bd.UUID]; ok {
				devnode = seen.Devnode
			}
			info.Devices = append(info.Devices, types.LockedPoolDevice{
				Devnode: devnode,
				UUID:    bd.UUID,
			})
		}
		out[uuid] = info
	}
	return out
}

func (e *Engine) KeyDescriptions() []types.KeyDescription {
	descs := slices.Sorted(maps.Keys(e.keyring))
	out := make([]types.KeyDescription, 0, len(descs))
	for _, d := range descs {
		kd, err := types.NewKeyDescription(d)
		if err != nil {
			continue
		}
		out = append(out, kd)
	}
	return out
}

func (e *Engine) CreatePool(
	name types.Name,
	devices []types.DevicePath,
	redundancy types.Redundancy,
	encryption *types.EncryptionInfo,
) (types.CreateAction[types.PoolUUID], error) {
	if name.IsEmpty() {
		return types.CreateIdentity[types.PoolUUID](), fmt.Errorf("%w: pool name is empty", engine.ErrInvalidArgument)
	}
	if redundancy != types.RedundancyNone {
		return types.CreateIdentity[types.PoolUUID](),
			fmt.Errorf("%w: unsupported redundancy %s", engine.ErrInvalidArgument, redundancy)
	}
	paths := dedupePaths(devices)
	if len(paths) == 0 {
		return types.CreateIdentity[types.PoolUUID](), fmt.Errorf("%w: no block devices", engine.ErrInvalidArgument)
	}
	if encryption != nil && encryption.IsEmpty() {
		encryption = nil
	}

	if existing := e.poolNamed(name); existing != nil {
		have := make([]string, 0, len(existing.BlockDevs))
		for _, bd := range existing.BlockDevs {
			if bd.Tier == types.TierData {
				have = append(have, bd.Devnode)
			}
		}
		slices.Sort(have)
		want := slices.Sorted(slices.Values(paths))
		if !slices.Equal(have, want) {
			return types.CreateIdentity[types.PoolUUID](),
				fmt.Errorf("%w: pool %q already exists with different devices", engine.ErrConflict, name)
		}
		if existing.Redundancy != redundancy || !sameEncryption(existing.Encryption, encryption) {
			return types.CreateIdentity[types.PoolUUID](),
				fmt.Errorf("%w: pool %q already exists with different settings", engine.ErrConflict, name)
		}
		return types.CreateIdentity[types.PoolUUID](), nil
	}

	for _, p := range paths {
		if owner, _ := e.deviceOwner(p); owner != nil {
			return types.CreateIdentity[types.PoolUUID](),
				fmt.Errorf("%w: %s already belongs to pool %q", engine.ErrConflict, p, owner.Name)
		}
	}

	if encryption != nil {
		if encryption.KeyDescription != nil {
			if _, ok := e.keyring[encryption.KeyDescription.String()]; !ok {
				return types.CreateIdentity[types.PoolUUID](),
					fmt.Errorf("%w: key %s is not in the keyring", engine.ErrNotFound, encryption.KeyDescription)
			}
		}
		if encryption.Clevis != nil && encryption.Clevis.Pin == "" {
			return types.CreateIdentity[types.PoolUUID](), fmt.Errorf("%w: clevis pin is empty", engine.ErrInvalidArgument)
		}
	}

	md := metadata.PoolMetadata{
		UUID:        types.NewPoolUUID(),
		Name:        name,
		Created:     e.clock.Now().UTC(),
		Redundancy:  redundancy,
		Encryption:  cloneEncryption(encryption),
		BlockDevs:   make([]metadata.BlockDev, 0, len(paths)),
		Filesystems: []metadata.Filesystem{},
	}
	for _, p := range paths {
		md.BlockDevs = append(md.BlockDevs, metadata.BlockDev{
			UUID:    types.NewDevUUID(),
			Devnode: p,
			Tier:    types.TierData,
		})
	}

	if err := e.commit(&md); err != nil {
		return types.CreateIdentity[types.PoolUUID](), err
	}
	log.Info().Stringer("pool", md.UUID).Str("name", name.String()).Int("devices", len(paths)).
		Bool("encrypted", encryption != nil).Msg("created pool")
	return types.Created(md.UUID), nil
}

func (e *Engine) DestroyPool(pool types.PoolUUID) (types.DeleteAction[types.PoolUUID], error) {
	if _, ok := e.locked[pool]; ok {
		return types.DeleteIdentity[types.PoolUUID](), fmt.Errorf("%w: %s", engine.ErrLocked, pool)
	}
	md, ok := e.pools[pool]
	if !ok {
		return types.DeleteIdentity[types.PoolUUID](), nil
	}
	if len(md.Filesystems) > 0 {
		return types.DeleteIdentity[types.PoolUUID](),
			fmt.Errorf("%w: pool %q still has %d filesystems", engine.ErrConflict, md.Name, len(md.Filesystems))
	}

	if e.store != nil {
		if err := e.store.Delete(pool); err != nil {
			return types.DeleteIdentity[types.PoolUUID](), fmt.Errorf("%w: %w", types.ErrIO, err)
		}
	}
	delete(e.pools, pool)
	log.Info().Stringer("pool", pool).Str("name", md.Name.String()).Msg("destroyed pool")
	return types.Deleted(pool), nil
}

func (e *Engine) RenamePool(pool types.PoolUUID, name types.Name) (types.RenameAction[types.PoolUUID], error) {
	if name.IsEmpty() {
		return types.RenameIdentity[types.PoolUUID](), fmt.Errorf("%w: pool name is empty", engine.ErrInvalidArgument)
	}
	if _, ok := e.locked[pool]; ok {
		return types.RenameIdentity[types.PoolUUID](), fmt.Errorf("%w: %s", engine.ErrLocked, pool)
	}
	md, ok := e.pools[pool]
	if !ok {
		return types.RenameNoSource[types.PoolUUID](), nil
	}
	if md.Name == name {
		return types.RenameIdentity[types.PoolUUID](), nil
	}
	if other := e.poolNamed(name); other != nil {
		return types.RenameIdentity[types.PoolUUID](),
			fmt.Errorf("%w: pool name %q is taken", engine.ErrConflict, name)
	}

	next := clonePool(md)
	next.Name = name
	if err := e.commit(&next); err != nil {
		return types.RenameIdentity[types.PoolUUID](), err
	}
	log.Info().Stringer("pool", pool).Str("from", md.Name.String()).Str("to", name.String()).Msg("renamed pool")
	return types.Renamed(pool), nil
}

func (e *Engine) AddBlockdevs(
	pool types.PoolUUID,
	devices []types.DevicePath,
	tier types.BlockDevTier,
) (types.SetCreateAction[types.DevUUID], error) {
	md, err := e.unlockedPool(pool)
	if err != nil {
		return types.EmptySetCreateAction[types.DevUUID](), err
	}

	toAdd := make([]string, 0, len(devices))
	for _, p := range dedupePaths(devices) {
		owner, bd := e.deviceOwner(p)
		switch {
		case owner == nil:
			toAdd = append(toAdd, p)
		case owner.UUID != pool:
			return types.EmptySetCreateAction[types.DevUUID](),
				fmt.Errorf("%w: %s already belongs to pool %q", engine.ErrConflict, p, owner.Name)
		case bd.Tier != tier:
			return types.EmptySetCreateAction[types.DevUUID](),
				fmt.Errorf("%w: %s is already in the %s tier", engine.ErrConflict, p, bd.Tier)
		}
	}
	if len(toAdd) == 0 {
		return types.EmptySetCreateAction[types.DevUUID](), nil
	}

	next := clonePool(md)
	added := make([]types.DevUUID, 0, len(toAdd))
	for _, p := range toAdd {
		dev := types.NewDevUUID()
		next.BlockDevs = append(next.BlockDevs, metadata.BlockDev{UUID: dev, Devnode: p, Tier: tier})
		added = append(added, dev)
	}
	if err := e.commit(&next); err != nil {
		return types.EmptySetCreateAction[types.DevUUID](), err
	}
	log.Info().Stringer("pool", pool).Stringer("tier", tier).Int("count", len(added)).Msg("added block devices")
	return types.NewSetCreateAction(added), nil
}

func (e *Engine) CreateFilesystems(
	pool types.PoolUUID,
	specs []engine.FilesystemSpec,
) (types.SetCreateAction[engine.FilesystemCreated], error) {
	md, err := e.unlockedPool(pool)
	if err != nil {
		return types.EmptySetCreateAction[engine.FilesystemCreated](), err
	}

	existing := make(map[types.Name]struct{}, len(md.Filesystems))
	for _, fs := range md.Filesystems {
		existing[fs.Name] = struct{}{}
	}

	requested := make(map[types.Name]struct{}, len(specs))
	toCreate := make([]engine.FilesystemSpec, 0, len(specs))
	for _, spec := range specs {
		if spec.Name.IsEmpty() {
			return types.EmptySetCreateAction[engine.FilesystemCreated](),
				fmt.Errorf("%w: filesystem name is empty", engine.ErrInvalidArgument)
		}
		if _, dup := requested[spec.Name]; dup {
			return types.EmptySetCreateAction[engine.FilesystemCreated](),
				fmt.Errorf("%w: filesystem %q requested twice", engine.ErrInvalidArgument, spec.Name)
		}
		requested[spec.Name] = struct{}{}
		if spec.SizeBytes != nil && *spec.SizeBytes == 0 {
			return types.EmptySetCreateAction[engine.FilesystemCreated](),
				fmt.Errorf("%w: filesystem %q has zero size", engine.ErrInvalidArgument, spec.Name)
		}
		if _, ok := existing[spec.Name]; ok {
			continue
		}
		toCreate = append(toCreate, spec)
	}
	if len(toCreate) == 0 {
		return types.EmptySetCreateAction[engine.FilesystemCreated](), nil
	}

	next := clonePool(md)
	now := e.clock.Now().UTC()
	created := make([]engine.FilesystemCreated, 0, len(toCreate))
	for _, spec := range toCreate {
		size := DefaultFilesystemSize
		if spec.SizeBytes != nil {
			size = *spec.SizeBytes
		}
		fs := metadata.Filesystem{
			UUID:      types.NewFilesystemUUID(),
			Name:      spec.Name,
			Created:   now,
			SizeBytes: size,
		}
		next.Filesystems = append(next.Filesystems, fs)
		created = append(created, engine.FilesystemCreated{Name: fs.Name, UUID: fs.UUID})
	}
	if err := e.commit(&next); err != nil {
		return types.EmptySetCreateAction[engine.FilesystemCreated](), err
	}
	log.Info().Stringer("pool", pool).Int("count", len(created)).Msg("created filesystems")
	return types.NewSetCreateAction(created), nil
}

func (e *Engine) DestroyFilesystems(
	pool types.PoolUUID,
	filesystems []types.FilesystemUUID,
) (types.SetDeleteAction[types.FilesystemUUID], error) {
	md, err := e.unlockedPool(pool)
	if err != nil {
		return types.EmptySetDeleteAction[types.FilesystemUUID](), err
	}

	doomed := make(map[types.FilesystemUUID]struct{}, len(filesystems))
	for _, fs := range filesystems {
		doomed[fs] = struct{}{}
	}

	next := clonePool(md)
	removed := make([]types.FilesystemUUID, 0, len(filesystems))
	next.Filesystems = slices.DeleteFunc(next.Filesystems, func(fs metadata.Filesystem) bool {
		if _, ok := doomed[fs.UUID]; ok {
			removed = append(removed, fs.UUID)
			return true
		}
		return false
	})
	if len(removed) == 0 {
		return types.EmptySetDeleteAction[types.FilesystemUUID](), nil
	}
	if err := e.commit(&next); err != nil {
		return types.EmptySetDeleteAction[types.FilesystemUUID](), err
	}
	log.Info().Stringer("pool", pool).Int("count", len(removed)).Msg("destroyed filesystems")
	return types.NewSetDeleteAction(removed), nil
}

func (e *Engine) RenameFilesystem(
	pool types.PoolUUID,
	fs types.FilesystemUUID,
	name types.Name,
) (types.RenameAction[types.FilesystemUUID], error) {
	if name.IsEmpty() {
		return types.RenameIdentity[types.FilesystemUUID](),
			fmt.Errorf("%w: filesystem name is empty", engine.ErrInvalidArgument)
	}
	md, err := e.unlockedPool(pool)
	if err != nil {
		return types.RenameIdentity[types.FilesystemUUID](), err
	}

	idx := -1
	for i, f := range md.Filesystems {
		switch {
		case f.UUID == fs:
			idx = i
		case f.Name == name:
			return types.RenameIdentity[types.FilesystemUUID](),
				fmt.Errorf("%w: filesystem name %q is taken", engine.ErrConflict, name)
		}
	}
	if idx < 0 {
		return types.RenameNoSource[types.FilesystemUUID](), nil
	}
	if md.Filesystems[idx].Name == name {
		return types.RenameIdentity[types.FilesystemUUID](), nil
	}

	next := clonePool(md)
	next.Filesystems[idx].Name = name
	if err := e.commit(&next); err != nil {
		return types.RenameIdentity[types.FilesystemUUID](), err
	}
	log.Info().Stringer("pool", pool).Stringer("filesystem", fs).Str("name", name.String()).Msg("renamed filesystem")
	return types.Renamed(fs), nil
}

func (e *Engine) SetKey(
	desc types.KeyDescription,
	key types.SizedKeyMemory,
) (types.MappingCreateAction[types.Key], error) {
	if key.Len() == 0 {
		return types.MappingCreateIdentity[types.Key](), fmt.Errorf("%w: key is empty", engine.ErrInvalidArgument)
	}
	old, ok := e.keyring[desc.String()]
	switch {
	case ok && old.Equal(key):
		return types.MappingCreateIdentity[types.Key](), nil
	case ok:
		e.keyring[desc.String()] = key
		log.Info().Str("key", desc.String()).Msg("changed key")
		return types.MappingValueChanged(types.Key{}), nil
	default:
		e.keyring[desc.String()] = key
		log.Info().Str("key", desc.String()).Msg("added key")
		return types.MappingCreated(types.Key{}), nil
	}
}

func (e *Engine) UnsetKey(desc types.KeyDescription) (types.MappingDeleteAction[types.Key], error) {
	if _, ok := e.keyring[desc.String()]; !ok {
		return types.MappingDeleteIdentity[types.Key](), nil
	}
	delete(e.keyring, desc.String())
	log.Info().Str("key", desc.String()).Msg("removed key")
	return types.MappingDeleted(types.Key{}), nil
}

func (e *Engine) encryptedPool(pool types.PoolUUID) (*metadata.PoolMetadata, error) {
	md, err := e.unlockedPool(pool)
	if err != nil {
		return nil, err
	}
	if !isEncrypted(md) {
		return nil, fmt.Errorf("%w: pool %q is not encrypted", engine.ErrInvalidArgument, md.Name)
	}
	return md, nil
}

func (e *Engine) BindClevis(
	pool types.PoolUUID,
	pin string,
	config json.RawMessage,
) (types.CreateAction[types.Clevis], error) {
	if pin == "" {
		return types.CreateIdentity[types.Clevis](), fmt.Errorf("%w: clevis pin is empty", engine.ErrInvalidArgument)
	}
	md, err := e.encryptedPool(pool)
	if err != nil {
		return types.CreateIdentity[types.Clevis](), err
	}

	want := types.ClevisInfo{Pin: pin, Config: slices.Clone(config)}
	if have := md.Encryption.Clevis; have != nil {
		if have.Equal(want) {
			return types.CreateIdentity[types.Clevis](), nil
		}
		return types.CreateIdentity[types.Clevis](),
			fmt.Errorf("%w: pool %q is already bound with pin %s", engine.ErrConflict, md.Name, have.Pin)
	}

	next := clonePool(md)
	next.Encryption.Clevis = &want
	if err := e.commit(&next); err != nil {
		return types.CreateIdentity[types.Clevis](), err
	}
	log.Info().Stringer("pool", pool).Str("pin", pin).Msg("bound clevis")
	return types.Created(types.Clevis{}), nil
}

func (e *Engine) UnbindClevis(pool types.PoolUUID) (types.DeleteAction[types.Clevis], error) {
	md, err := e.encryptedPool(pool)
	if err != nil {
		return types.DeleteIdentity[types.Clevis](), err
	}
	if md.Encryption.Clevis == nil {
		return types.DeleteIdentity[types.Clevis](), nil
	}
	if md.Encryption.KeyDescription == nil {
		return types.DeleteIdentity[types.Clevis](),
			fmt.Errorf("%w: clevis is the only unlock method of pool %q", engine.ErrConflict, md.Name)
	}

	next := clonePool(md)
	next.Encryption.Clevis = nil
	if err := e.commit(&next); err != nil {
		return types.DeleteIdentity[types.Clevis](), err
	}
	log.Info().Stringer("pool", pool).Msg("unbound clevis")
	return types.Deleted(types.Clevis{}), nil
}

func (e *Engine) RebindClevis(pool types.PoolUUID) (types.RegenAction, error) {
	md, err := e.encryptedPool(pool)
	if err != nil {
		return types.RegenAction{}, err
	}
	if md.Encryption.Clevis == nil {
		return types.RegenAction{}, fmt.Errorf("%w: pool %q has no clevis binding", engine.ErrInvalidArgument, md.Name)
	}
	log.Info().Stringer("pool", pool).Msg("regenerated clevis binding")
	return types.RegenAction{}, nil
}

func (e *Engine) UnlockPool(
	pool types.PoolUUID,
	method types.UnlockMethod,
) (types.SetUnlockAction[types.DevUUID], error) {
	md, ok := e.locked[pool]
	if !ok {
		if _, open := e.pools[pool]; open {
			return types.EmptySetUnlockAction[types.DevUUID](), nil
		}
		return types.EmptySetUnlockAction[types.DevUUID](), fmt.Errorf("%w: pool %s", engine.ErrNotFound, pool)
	}

	switch method {
	case types.UnlockKeyring:
		desc := md.Encryption.KeyDescription
		if desc == nil {
			return types.EmptySetUnlockAction[types.DevUUID](),
				fmt.Errorf("%w: pool %q has no key description", engine.ErrInvalidArgument, md.Name)
		}
		if _, ok := e.keyring[desc.String()]; !ok {
			return types.EmptySetUnlockAction[types.DevUUID](),
				fmt.Errorf("%w: key %s is not in the keyring", engine.ErrNotFound, desc)
		}
	case types.UnlockClevis:
		if md.Encryption.Clevis == nil {
			return types.EmptySetUnlockAction[types.DevUUID](),
				fmt.Errorf("%w: pool %q has no clevis binding", engine.ErrInvalidArgument, md.Name)
		}
	default:
		return types.EmptySetUnlockAction[types.DevUUID](),
			fmt.Errorf("%w: unknown unlock method %q", engine.ErrInvalidArgument, method)
	}

	unlocked := make([]types.DevUUID, 0, len(md.BlockDevs))
	for _, bd := range md.BlockDevs {
		unlocked = append(unlocked, bd.UUID)
	}
	delete(e.locked, pool)
	e.pools[pool] = md
	log.Info().Stringer("pool", pool).Str("method", string(method)).Msg("unlocked pool")
	return types.NewSetUnlockAction(unlocked, nil), nil
}
