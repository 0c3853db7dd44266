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

package types

import (
	"fmt"

	"github.com/google/uuid"
)

// UUIDKind identifies which entity an identifier belongs to.
type UUIDKind uint8

const (
	UUIDKindDev UUIDKind = iota + 1
	UUIDKindFilesystem
	UUIDKindPool
)

func (k UUIDKind) String() string {
	switch k {
	case UUIDKindDev:
		return "dev"
	case UUIDKindFilesystem:
		return "filesystem"
	case UUIDKindPool:
		return "pool"
	default:
		return "unknown"
	}
}

// idKind is implemented by the zero-size tag types that parameterize UUID.
// The method set is unexported so no other package can mint a new kind.
type idKind interface {
	uuidKind() UUIDKind
	typeName() string
}

type devKind struct{}

func (devKind) uuidKind() UUIDKind { return UUIDKindDev }
func (devKind) typeName() string   { return "DevUUID" }

type filesystemKind struct{}

func (filesystemKind) uuidKind() UUIDKind { return UUIDKindFilesystem }
func (filesystemKind) typeName() string   { return "FilesystemUUID" }

type poolKind struct{}

func (poolKind) uuidKind() UUIDKind { return UUIDKindPool }
func (poolKind) typeName() string   { return "PoolUUID" }

// UUID is a 128-bit identifier for one kind of engine entity. Each kind is a
// distinct type, so a DevUUID can never be compared with or passed in place
// of a PoolUUID even when both wrap the same value.
type UUID[K idKind] struct {
	id uuid.UUID
}

type (
	// DevUUID identifies a block device owned by a pool.
	DevUUID = UUID[devKind]
	// FilesystemUUID identifies a thin filesystem.
	FilesystemUUID = UUID[filesystemKind]
	// PoolUUID identifies a pool.
	PoolUUID = UUID[poolKind]
)

// AsUUID is the capability set shared by every identifier kind.
type AsUUID interface {
	fmt.Stringer
	fmt.GoStringer
	Raw() uuid.UUID
	IsNil() bool
	Kind() UUIDKind
}

var (
	_ AsUUID = DevUUID{}
	_ AsUUID = FilesystemUUID{}
	_ AsUUID = PoolUUID{}
	_ AsUUID = AnyUUID{}
)

func newUUID[K idKind]() UUID[K] {
	return UUID[K]{id: uuid.New()}
}

func parseUUID[K idKind](s string) (UUID[K], error) {
	id, err := uuid.Parse(s)
	if err != nil {
		var k K
		return UUID[K]{}, fmt.Errorf("%w: invalid %s uuid %q: %w", ErrParse, k.uuidKind(), s, err)
	}
	return UUID[K]{id: id}, nil
}

func NewDevUUID() DevUUID               { return newUUID[devKind]() }
func NewFilesystemUUID() FilesystemUUID { return newUUID[filesystemKind]() }
func NewPoolUUID() PoolUUID             { return newUUID[poolKind]() }

func ParseDevUUID(s string) (DevUUID, error)               { return parseUUID[devKind](s) }
func ParseFilesystemUUID(s string) (FilesystemUUID, error) { return parseUUID[filesystemKind](s) }
func ParsePoolUUID(s string) (PoolUUID, error)             { return parseUUID[poolKind](s) }

// NilDevUUID returns the all-zero sentinel meaning "no device".
func NilDevUUID() DevUUID { return DevUUID{} }

// NilFilesystemUUID returns the all-zero sentinel meaning "no filesystem".
func NilFilesystemUUID() FilesystemUUID { return FilesystemUUID{} }

// NilPoolUUID returns the all-zero sentinel meaning "no pool".
func NilPoolUUID() PoolUUID { return PoolUUID{} }

// Raw returns the underlying untyped value.
func (u UUID[K]) Raw() uuid.UUID {
	return u.id
}

// IsNil reports whether u is the all-zero sentinel.
func (u UUID[K]) IsNil() bool {
	return u.id == uuid.Nil
}

func (UUID[K]) Kind() UUIDKind {
	var k K
	return k.uuidKind()
}

// String returns the canonical hyphenated lower-case form.
func (u UUID[K]) String() string {
	return u.id.String()
}

func (u UUID[K]) GoString() string {
	var k K
	return k.typeName() + "(" + u.id.String() + ")"
}

func (u UUID[K]) MarshalText() ([]byte, error) {
	return u.id.MarshalText()
}

func (u *UUID[K]) UnmarshalText(text []byte) error {
	parsed, err := parseUUID[K](string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// AnyUUID holds an identifier of any kind, for code that handles
// identifiers generically (logging, error reports).
type AnyUUID struct {
	kind UUIDKind
	id   uuid.UUID
}

// Any erases the kind of u into an AnyUUID.
func Any[K idKind](u UUID[K]) AnyUUID {
	return AnyUUID{kind: u.Kind(), id: u.id}
}

func (a AnyUUID) Kind() UUIDKind { return a.kind }

func (a AnyUUID) Raw() uuid.UUID { return a.id }

func (a AnyUUID) IsNil() bool { return a.id == uuid.Nil }

func (a AnyUUID) String() string { return a.id.String() }

func (a AnyUUID) GoString() string {
	switch a.kind {
	case UUIDKindDev:
		return DevUUID{id: a.id}.GoString()
	case UUIDKindFilesystem:
		return FilesystemUUID{id: a.id}.GoString()
	case UUIDKindPool:
		return PoolUUID{id: a.id}.GoString()
	default:
		return "AnyUUID(" + a.id.String() + ")"
	}
}

// Dev returns the active variant if it is a device identifier.
func (a AnyUUID) Dev() (DevUUID, bool) {
	return DevUUID{id: a.id}, a.kind == UUIDKindDev
}

// Filesystem returns the active variant if it is a filesystem identifier.
func (a AnyUUID) Filesystem() (FilesystemUUID, bool) {
	return FilesystemUUID{id: a.id}, a.kind == UUIDKindFilesystem
}

// Pool returns the active variant if it is a pool identifier.
func (a AnyUUID) Pool() (PoolUUID, bool) {
	return PoolUUID{id: a.id}, a.kind == UUIDKindPool
}
