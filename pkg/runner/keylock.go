// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package runner

import (
	"context"
	"sort"
	"sync"
)

// keyLocks is a table of per-key mutexes with context-aware acquisition.
// Entries exist only while somebody holds or waits for the key.
type keyLocks struct {
	mu   sync.Mutex
	keys map[string]*keyEntry
}

type keyEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{keys: make(map[string]*keyEntry)}
}

// lock acquires all keys in sorted order and returns the release function.
// On context cancellation the already acquired keys are released.
func (kl *keyLocks) lock(ctx context.Context, keys []string) (func(), error) {
	keys = append([]string(nil), keys...)
	sort.Strings(keys)
	var held []string
	unlock := func() {
		for i := len(held) - 1; i >= 0; i-- {
			kl.release(held[i])
		}
	}
	for i, key := range keys {
		if i != 0 && key == keys[i-1] {
			continue
		}
		if err := kl.acquire(ctx, key); err != nil {
			unlock()
			return nil, err
		}
		held = append(held, key)
	}
	return unlock, nil
}

func (kl *keyLocks) acquire(ctx context.Context, key string) error {
	kl.mu.Lock()
	e := kl.keys[key]
	if e == nil {
		e = &keyEntry{ch: make(chan struct{}, 1)}
		kl.keys[key] = e
	}
	e.refs++
	kl.mu.Unlock()
	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.unref(key, e)
		return ctx.Err()
	}
}

func (kl *keyLocks) release(key string) {
	kl.mu.Lock()
	e := kl.keys[key]
	kl.mu.Unlock()
	<-e.ch
	kl.unref(key, e)
}

func (kl *keyLocks) unref(key string, e *keyEntry) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(kl.keys, key)
	}
}

func (kl *keyLocks) len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.keys)
}
