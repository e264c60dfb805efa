// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stats

import (
	"sync"
	"testing"
)

func TestFloatConcurrentAdd(t *testing.T) {
	var f Float
	var wg sync.WaitGroup
	const n = 200
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Add(1.5)
		}()
	}
	wg.Wait()
	if got, want := f.Get(), 1.5*float64(n); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFloatSet(t *testing.T) {
	var f Float
	f.Set(42)
	if got, want := f.Get(), 42.0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
