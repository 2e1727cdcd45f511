// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package hash computes the signatures used to identify synthesized argument
// vectors and stored crash logs.
package hash

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

type Sig [sha1.Size]byte

func Hash(pieces ...[]byte) Sig {
	h := sha1.New()
	for _, data := range pieces {
		h.Write(data)
	}
	var sig Sig
	copy(sig[:], h.Sum(nil))
	return sig
}

// Uint64s hashes a sequence of 64-bit values in little-endian order,
// so equal vectors hash equally on every host.
func Uint64s(vals ...uint64) Sig {
	buf := make([]byte, 0, 8*len(vals))
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	return Hash(buf)
}

func String(pieces ...[]byte) string {
	sig := Hash(pieces...)
	return sig.String()
}

func (sig Sig) String() string {
	return hex.EncodeToString(sig[:])
}

// Short returns the first 8 hex digits, enough to tell vectors of one case apart.
func (sig Sig) Short() string {
	return sig.String()[:8]
}

func FromString(str string) (Sig, error) {
	bin, err := hex.DecodeString(str)
	if err != nil {
		return Sig{}, fmt.Errorf("failed to decode sig '%v': %w", str, err)
	}
	var sig Sig
	if len(bin) != len(sig) {
		return Sig{}, fmt.Errorf("failed to decode sig '%v': bad len", str)
	}
	copy(sig[:], bin)
	return sig, nil
}
