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
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
)

// KeyDescription names a key in the kernel keyring used to unlock an
// encrypted pool.
type KeyDescription struct {
	desc string
}

func NewKeyDescription(s string) (KeyDescription, error) {
	if strings.TrimSpace(s) == "" {
		return KeyDescription{}, fmt.Errorf("%w: key description must not be empty", ErrParse)
	}
	return KeyDescription{desc: s}, nil
}

func (k KeyDescription) String() string {
	return k.desc
}

func (k KeyDescription) MarshalText() ([]byte, error) {
	return []byte(k.desc), nil
}

func (k *KeyDescription) UnmarshalText(text []byte) error {
	parsed, err := NewKeyDescription(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// SizedKeyMemory holds key material. It keeps its own copy of the bytes and
// never prints them.
type SizedKeyMemory struct {
	data []byte
}

func NewSizedKeyMemory(b []byte) SizedKeyMemory {
	data := make([]byte, len(b))
	copy(data, b)
	return SizedKeyMemory{data: data}
}

func (m SizedKeyMemory) Len() int {
	return len(m.data)
}

// Equal compares key material in constant time.
func (m SizedKeyMemory) Equal(o SizedKeyMemory) bool {
	return subtle.ConstantTimeCompare(m.data, o.data) == 1
}

func (m SizedKeyMemory) String() string {
	return fmt.Sprintf("SizedKeyMemory(%d bytes)", len(m.data))
}

// ClevisInfo is a clevis pin and its JSON configuration.
type ClevisInfo struct {
	Pin    string          `json:"pin"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Equal reports whether both bindings use the same pin and the same
// configuration bytes.
func (c ClevisInfo) Equal(o ClevisInfo) bool {
	return c.Pin == o.Pin && string(c.Config) == string(o.Config)
}

// EncryptionInfo describes how an encrypted pool can be unlocked. At least
// one of the two mechanisms is set for an encrypted pool.
type EncryptionInfo struct {
	KeyDescription *KeyDescription `json:"key_description,omitempty"`
	Clevis         *ClevisInfo     `json:"clevis,omitempty"`
}

func (e EncryptionInfo) IsEmpty() bool {
	return e.KeyDescription == nil && e.Clevis == nil
}
