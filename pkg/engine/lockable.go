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

package engine

import (
	"sync/atomic"

	"github.com/poolkeeper/poolkeeper/pkg/helpers/syncutil"
)

type lockableInner[T any] struct {
	value T
	mu    syncutil.RWMutex
}

// Lockable is a shared handle to a value guarded by a reader/writer lock.
// Copies of a handle refer to the same value and the same lock. Handles must
// be made with NewLockable; the zero value is not usable.
//
// Acquisition blocks until the lock is free and cannot be cancelled.
type Lockable[T any] struct {
	inner *lockableInner[T]
}

func NewLockable[T any](v T) Lockable[T] {
	return Lockable[T]{inner: &lockableInner[T]{value: v}}
}

// Write runs fn with exclusive access to the value. The lock is released
// when fn returns or panics.
func (l Lockable[T]) Write(fn func(v *T)) {
	l.inner.mu.Lock()
	defer l.inner.mu.Unlock()
	fn(&l.inner.value)
}

// Read runs fn with shared access to the value. fn must not modify it.
func (l Lockable[T]) Read(fn func(v *T)) {
	l.inner.mu.RLock()
	defer l.inner.mu.RUnlock()
	fn(&l.inner.value)
}

// Lock acquires exclusive access and returns a guard that must be unlocked.
func (l Lockable[T]) Lock() *WriteGuard[T] {
	l.inner.mu.Lock()
	return &WriteGuard[T]{inner: l.inner}
}

// RLock acquires shared access and returns a guard that must be unlocked.
func (l Lockable[T]) RLock() *ReadGuard[T] {
	l.inner.mu.RLock()
	return &ReadGuard[T]{inner: l.inner}
}

// WriteGuard is a held exclusive acquisition.
type WriteGuard[T any] struct {
	inner    *lockableInner[T]
	released atomic.Bool
}

// Value returns the guarded value. It must not be used after Unlock.
func (g *WriteGuard[T]) Value() *T {
	return &g.inner.value
}

// Unlock releases the lock. Calls after the first are no-ops.
func (g *WriteGuard[T]) Unlock() {
	if g.released.CompareAndSwap(false, true) {
		g.inner.mu.Unlock()
	}
}

// ReadGuard is a held shared acquisition.
type ReadGuard[T any] struct {
	inner    *lockableInner[T]
	released atomic.Bool
}

// Value returns the guarded value. It must not be modified, nor used after
// RUnlock.
func (g *ReadGuard[T]) Value() *T {
	return &g.inner.value
}

// RUnlock releases the lock. Calls after the first are no-ops.
func (g *ReadGuard[T]) RUnlock() {
	if g.released.CompareAndSwap(false, true) {
		g.inner.mu.RUnlock()
	}
}

// WithWrite runs fn under the exclusive lock and returns its results.
func WithWrite[T, R any](l Lockable[T], fn func(v *T) (R, error)) (R, error) {
	l.inner.mu.Lock()
	defer l.inner.mu.Unlock()
	return fn(&l.inner.value)
}

// WithRead runs fn under the shared lock and returns its results.
func WithRead[T, R any](l Lockable[T], fn func(v *T) (R, error)) (R, error) {
	l.inner.mu.RLock()
	defer l.inner.mu.RUnlock()
	return fn(&l.inner.value)
}

// LockableEngine is the process-wide engine handle. Exclusive acquisitions
// see the whole Engine, shared ones only its Reader half.
type LockableEngine struct {
	l Lockable[Engine]
}

func NewLockableEngine(e Engine) LockableEngine {
	return LockableEngine{l: NewLockable(e)}
}

func (le LockableEngine) Write(fn func(e Engine)) {
	le.l.Write(func(v *Engine) { fn(*v) })
}

func (le LockableEngine) Read(fn func(r Reader)) {
	le.l.Read(func(v *Engine) { fn(*v) })
}

// Lock returns an exclusive guard over the engine.
func (le LockableEngine) Lock() *EngineWriteGuard {
	return &EngineWriteGuard{g: le.l.Lock()}
}

// RLock returns a shared guard that only exposes the Reader view.
func (le LockableEngine) RLock() *EngineReadGuard {
	return &EngineReadGuard{g: le.l.RLock()}
}

type EngineWriteGuard struct {
	g *WriteGuard[Engine]
}

func (g *EngineWriteGuard) Engine() Engine { return *g.g.Value() }

func (g *EngineWriteGuard) Unlock() { g.g.Unlock() }

type EngineReadGuard struct {
	g *ReadGuard[Engine]
}

func (g *EngineReadGuard) Reader() Reader { return *g.g.Value() }

func (g *EngineReadGuard) RUnlock() { g.g.RUnlock() }

// WriteEngine runs fn with the exclusive engine lock held.
func WriteEngine[R any](le LockableEngine, fn func(e Engine) (R, error)) (R, error) {
	return WithWrite(le.l, func(v *Engine) (R, error) { return fn(*v) })
}

// ReadEngine runs fn with the shared engine lock held.
func ReadEngine[R any](le LockableEngine, fn func(r Reader) (R, error)) (R, error) {
	return WithRead(le.l, func(v *Engine) (R, error) { return fn(*v) })
}
