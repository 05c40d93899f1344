// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package testutil

import (
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"
)

// purgeInterval bounds how long the pool scavenger outlives the pool.
const purgeInterval = 10 * time.Millisecond

// ConcurrentRead runs read(i) for i in [0, n) on a pool of workers and
// returns every error. Every worker has exited when it returns.
func ConcurrentRead(workers, n int, read func(i int) error) error {
	pool, err := ants.NewPool(workers, ants.WithExpiryDuration(purgeInterval))
	if err != nil {
		return err
	}
	defer func() {
		pool.Release()
		for pool.Running() > 0 {
			time.Sleep(time.Millisecond)
		}
		// the scavenger stops on its next tick after Release
		time.Sleep(2 * purgeInterval)
	}()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		if err = pool.Submit(func() {
			defer wg.Done()
			if err := read(i); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}); err != nil {
			wg.Done()
			mu.Lock()
			errs = multierr.Append(errs, err)
			mu.Unlock()
		}
	}
	wg.Wait()
	return errs
}
