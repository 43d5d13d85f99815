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

// lockbench drives a synthetic mixed read/write/range workload through a
// txnlocker.Locker, end to end, and reports executable-emission counts.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/google/uuid"
	"github.com/nvanbenschoten/txnlock/pkg/counter"
	"github.com/nvanbenschoten/txnlock/pkg/storekey"
	"github.com/nvanbenschoten/txnlock/pkg/tid"
	"github.com/nvanbenschoten/txnlock/pkg/txnlocker"
	"github.com/nvanbenschoten/txnlock/util/log"
	"github.com/nvanbenschoten/txnlock/util/metric"
)

var (
	numTxns   = flag.Int("txns", 2000, "number of transactions to submit")
	numKeys   = flag.Int("keys", 64, "size of the concrete key space")
	writeFrac = flag.Float64("write-frac", 0.3, "fraction of transactions that take a write lock")
	rangeFrac = flag.Float64("range-frac", 0.1, "fraction of transactions that take a range lock instead of a point lock")
	seed      = flag.Int64("seed", 1, "PRNG seed")
	verbosity = flag.Int("v", 0, "log verbosity")
)

func main() {
	flag.Parse()
	log.SetVerbosity(int32(*verbosity))
	ctx := context.Background()

	reg := metric.NewRegistry()
	m := metric.NewLockManagerMetrics(reg)

	locker := txnlocker.NewWithConfig(txnlocker.Config{Metrics: m})
	rng := rand.New(rand.NewSource(*seed))

	executed := 0
	pendingOrder := make([]tid.TID, 0, *numTxns)
	counters := make(map[string]*counter.Counter, *numTxns)

	for i := 0; i < *numTxns; i++ {
		raw, err := uuid.New().MarshalBinary()
		if err != nil {
			fmt.Fprintln(os.Stderr, "mint tid:", err)
			os.Exit(1)
		}
		t, err := tid.New(raw[:16])
		if err != nil {
			fmt.Fprintln(os.Stderr, "wrap tid:", err)
			os.Exit(1)
		}
		ts := int64(i)
		c := counter.New()

		if err := locker.Start(t, ts, c); err != nil {
			log.Fatalf(ctx, "start: %v", err)
		}

		switch {
		case rng.Float64() < *rangeFrac:
			s := storekey.NewConcrete([]byte{byte(rng.Intn(*numKeys))})
			e := storekey.NewConcrete([]byte{byte(rng.Intn(*numKeys))})
			if storekey.Compare(s, e) > 0 {
				s, e = e, s
			}
			if rng.Float64() < *writeFrac {
				err = locker.WriteRangeLock(s, e)
			} else {
				err = locker.ReadRangeLock(s, e)
			}
		default:
			k := storekey.NewConcrete([]byte{byte(rng.Intn(*numKeys))})
			if rng.Float64() < *writeFrac {
				err = locker.WriteLock(k)
			} else {
				err = locker.ReadLock(k)
			}
		}
		if err != nil {
			log.Fatalf(ctx, "acquire: %v", err)
		}
		if err := locker.End(); err != nil {
			log.Fatalf(ctx, "end: %v", err)
		}

		if c.IsFree() {
			executed++
		}

		pendingOrder = append(pendingOrder, t)
		counters[string(t.Bytes())] = c
	}

	// Drain in submission order, committing every transaction and counting
	// every newly-executable successor this unwinds.
	for _, t := range pendingOrder {
		execs, err := locker.Unlock(t, true)
		if err != nil {
			log.Fatalf(ctx, "unlock: %v", err)
		}
		for _, e := range execs {
			if c, ok := counters[string(e.Bytes())]; ok && c.IsFree() {
				executed++
			}
		}
	}

	fmt.Printf("submitted=%d executed=%d pending-at-end=%d\n",
		*numTxns, executed, locker.Size())
}
