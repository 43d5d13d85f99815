// Copyright 2024 The Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package txnlocker implements the TransactionalLocker facade from spec
// §4.6: it routes point locks to per-key KeyLocks and range locks to a
// shared RangeLock, and fans update/unlock out across everything a
// transaction currently holds.
package txnlocker

import (
	"github.com/cockroachdb/errors"
	"github.com/nvanbenschoten/txnlock/pkg/counter"
	"github.com/nvanbenschoten/txnlock/pkg/keylock"
	"github.com/nvanbenschoten/txnlock/pkg/rangelock"
	"github.com/nvanbenschoten/txnlock/pkg/storekey"
	"github.com/nvanbenschoten/txnlock/pkg/tid"
	"github.com/nvanbenschoten/txnlock/util/metric"
	"golang.org/x/exp/slices"
)

type heldRange struct {
	start, end storekey.Key
}

func rangeSetKey(start, end storekey.Key) string {
	return string(start.Bytes()) + "\x00" + string(end.Bytes())
}

// held is the set of keys and ranges one pending transaction currently has
// locked. ranges is keyed by (start,end) rather
// than a plain slice so that re-locking the same exact range (e.g. a
// reader-to-writer upgrade) records it once, matching the original
// implementation's Set<KeyRange> semantics.
type held struct {
	ts      int64
	counter *counter.Counter
	keys    map[string]storekey.Key
	ranges  map[string]heldRange
}

// TestingKnobs parameterizes behavior that only tests should override.
type TestingKnobs struct {
	// DisableMetrics skips all metric updates even when Config.Metrics is set.
	DisableMetrics bool
}

// Config parameterizes a Locker: its metrics sink and any testing knobs.
type Config struct {
	// Metrics, if non-nil, is updated as the Locker runs.
	Metrics *metric.LockManagerMetrics
	Knobs   TestingKnobs
}

// Locker is the TransactionalLocker facade.
type Locker struct {
	cfg        Config
	keyLocks   map[string]*keylock.KeyLock
	rangeLocks *rangelock.RangeLock
	pending    map[string]*held

	active     bool
	curTID     tid.TID
	curTS      int64
	curCounter *counter.Counter
}

// New returns an empty Locker with no metrics wired in.
func New() *Locker {
	return NewWithConfig(Config{})
}

// NewWithConfig returns an empty Locker configured per cfg.
func NewWithConfig(cfg Config) *Locker {
	return &Locker{
		cfg:        cfg,
		keyLocks:   make(map[string]*keylock.KeyLock),
		rangeLocks: rangelock.New(),
		pending:    make(map[string]*held),
	}
}

func (l *Locker) recordMetrics() {
	if l.cfg.Metrics == nil || l.cfg.Knobs.DisableMetrics {
		return
	}
	l.cfg.Metrics.PendingTransactions.Set(float64(len(l.pending)))
	l.cfg.Metrics.RangeTreeSize.Set(float64(l.rangeLocks.Len()))
}

// Start establishes the working context for tid's next run of lock calls.
func (l *Locker) Start(t tid.TID, ts int64, c *counter.Counter) error {
	if !t.IsValid() {
		return errors.Newf("txnlocker: start with invalid tid")
	}
	if c == nil {
		return errors.Newf("txnlocker: start with nil counter")
	}
	key := string(t.Bytes())
	if _, ok := l.pending[key]; ok {
		return errors.Newf("txnlocker: tid %s is already pending", t)
	}
	l.pending[key] = &held{
		ts:      ts,
		counter: c,
		keys:    make(map[string]storekey.Key),
		ranges:  make(map[string]heldRange),
	}
	l.active, l.curTID, l.curTS, l.curCounter = true, t, ts, c
	l.recordMetrics()
	return nil
}

func (l *Locker) requireActive() error {
	if !l.active {
		return errors.Newf("txnlocker: no active transaction context (call Start first)")
	}
	return nil
}

// End clears the working context. It emits nothing.
func (l *Locker) End() error {
	if err := l.requireActive(); err != nil {
		return err
	}
	l.active, l.curCounter = false, nil
	return nil
}

// curHeld returns the held set for the active transaction context.
func (l *Locker) curHeld() *held {
	return l.pending[string(l.curTID.Bytes())]
}

func (l *Locker) keyLockFor(k storekey.Key) *keylock.KeyLock {
	s := string(k.Bytes())
	kl, ok := l.keyLocks[s]
	if !ok {
		kl = keylock.New()
		l.keyLocks[s] = kl
	}
	return kl
}

// ReadLock acquires a shared lock on the concrete key k.
func (l *Locker) ReadLock(k storekey.Key) error {
	if err := l.requireActive(); err != nil {
		return err
	}
	if k.IsMeta() {
		return errors.Newf("txnlocker: readLock rejects sentinel key %s", k)
	}
	kl := l.keyLockFor(k)
	kl.ReadLock(l.curTID, l.curTS, l.curCounter)
	l.curHeld().keys[string(k.Bytes())] = k
	l.observeKeyQueueDepth(kl)
	return nil
}

// WriteLock acquires an exclusive lock on the concrete key k.
func (l *Locker) WriteLock(k storekey.Key) error {
	if err := l.requireActive(); err != nil {
		return err
	}
	if k.IsMeta() {
		return errors.Newf("txnlocker: writeLock rejects sentinel key %s", k)
	}
	kl := l.keyLockFor(k)
	kl.WriteLock(l.curTID, l.curTS, l.curCounter)
	l.curHeld().keys[string(k.Bytes())] = k
	l.observeKeyQueueDepth(kl)
	return nil
}

func (l *Locker) observeKeyQueueDepth(kl *keylock.KeyLock) {
	if l.cfg.Metrics == nil || l.cfg.Knobs.DisableMetrics {
		return
	}
	l.cfg.Metrics.KeyQueueDepth.Observe(float64(kl.Len()))
}

func validateRangeEndpoint(k storekey.Key) error {
	if k.Kind() == storekey.Null || k.Kind() == storekey.Any {
		return errors.Newf("txnlocker: range bound rejects sentinel key %s", k)
	}
	return nil
}

// ReadRangeLock acquires a shared lock over [start, end].
func (l *Locker) ReadRangeLock(start, end storekey.Key) error {
	if err := l.requireActive(); err != nil {
		return err
	}
	if err := validateRangeEndpoint(start); err != nil {
		return err
	}
	if err := validateRangeEndpoint(end); err != nil {
		return err
	}
	l.rangeLocks.ReadLock(start, end, l.curTID, l.curTS, l.curCounter)
	l.curHeld().ranges[rangeSetKey(start, end)] = heldRange{start, end}
	l.recordMetrics()
	return nil
}

// WriteRangeLock acquires an exclusive lock over [start, end].
func (l *Locker) WriteRangeLock(start, end storekey.Key) error {
	if err := l.requireActive(); err != nil {
		return err
	}
	if err := validateRangeEndpoint(start); err != nil {
		return err
	}
	if err := validateRangeEndpoint(end); err != nil {
		return err
	}
	l.rangeLocks.WriteLock(start, end, l.curTID, l.curTS, l.curCounter)
	l.curHeld().ranges[rangeSetKey(start, end)] = heldRange{start, end}
	l.recordMetrics()
	return nil
}

// WriteAllLock acquires an exclusive lock over the entire key domain.
func (l *Locker) WriteAllLock() error {
	if err := l.requireActive(); err != nil {
		return err
	}
	l.rangeLocks.WriteLock(storekey.FirstKey, storekey.LastKey, l.curTID, l.curTS, l.curCounter)
	l.curHeld().ranges[rangeSetKey(storekey.FirstKey, storekey.LastKey)] = heldRange{storekey.FirstKey, storekey.LastKey}
	l.recordMetrics()
	return nil
}

// dedupeExcept merges execs into a sorted, deduplicated slice with the
// caller's own TID excluded: a call can never report its own transaction
// as newly executable, since it was already running.
func dedupeExcept(caller tid.TID, execs []tid.TID) []tid.TID {
	seen := make(map[string]bool, len(execs))
	out := make([]tid.TID, 0, len(execs))
	for _, t := range execs {
		if t.Equal(caller) {
			continue
		}
		key := string(t.Bytes())
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b tid.TID) bool { return a.Compare(b) < 0 })
	return out
}

// Update fans a timestamp change out to every key and range t holds.
func (l *Locker) Update(t tid.TID, ts int64) ([]tid.TID, error) {
	hs, ok := l.pending[string(t.Bytes())]
	if !ok {
		return nil, errors.Newf("txnlocker: update on tid %s not pending", t)
	}
	if ts < hs.ts {
		return nil, errors.Newf("txnlocker: update timestamp %d precedes current %d for tid %s", ts, hs.ts, t)
	}
	var execs []tid.TID
	for _, k := range hs.keys {
		ex, err := l.keyLockFor(k).Update(t, ts)
		if err != nil {
			return nil, err
		}
		execs = append(execs, ex...)
	}
	for _, r := range hs.ranges {
		ex, err := l.rangeLocks.Update(r.start, r.end, t, ts)
		if err != nil {
			return nil, err
		}
		execs = append(execs, ex...)
	}
	hs.ts = ts
	out := dedupeExcept(t, execs)
	l.observeExecutableBatch(out)
	return out, nil
}

func (l *Locker) observeExecutableBatch(execs []tid.TID) {
	if l.cfg.Metrics == nil || l.cfg.Knobs.DisableMetrics {
		return
	}
	l.cfg.Metrics.ExecutableBatch.Observe(float64(len(execs)))
	l.cfg.Metrics.Executable.Add(float64(len(execs)))
}

// Unlock releases every key and range t holds and removes it from the
// pending set.
func (l *Locker) Unlock(t tid.TID, commit bool) ([]tid.TID, error) {
	hs, ok := l.pending[string(t.Bytes())]
	if !ok {
		return nil, errors.Newf("txnlocker: unlock on tid %s not pending", t)
	}
	var execs []tid.TID
	for s, k := range hs.keys {
		kl := l.keyLockFor(k)
		ex, err := kl.Unlock(t, commit)
		if err != nil {
			return nil, err
		}
		execs = append(execs, ex...)
		if kl.IsEmpty() {
			delete(l.keyLocks, s)
		}
	}
	for _, r := range hs.ranges {
		ex, err := l.rangeLocks.Unlock(r.start, r.end, t)
		if err != nil {
			return nil, err
		}
		execs = append(execs, ex...)
	}
	delete(l.pending, string(t.Bytes()))
	out := dedupeExcept(t, execs)
	l.observeExecutableBatch(out)
	l.recordMetrics()
	return out, nil
}

// Size reports the number of pending transactions.
func (l *Locker) Size() int {
	return len(l.pending)
}

// Reset drops all lock-manager state.
func (l *Locker) Reset() {
	l.keyLocks = make(map[string]*keylock.KeyLock)
	l.rangeLocks = rangelock.New()
	l.pending = make(map[string]*held)
	l.active, l.curCounter = false, nil
}
