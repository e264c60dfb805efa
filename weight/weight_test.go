// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package weight

import (
	"math"
	"testing"
)

func TestAdaBoost(t *testing.T) {
	cases := []struct {
		label int8
		score float32
		want  float64
	}{
		{1, 1.0, math.Exp(-1)},
		{1, 0.0, 1},
		{-1, -1.0, math.Exp(-1)},
	}
	for _, c := range cases {
		got := AdaBoost(c.label, c.score)
		if diff := math.Abs(float64(got) - c.want); diff > 1e-6 {
			t.Errorf("AdaBoost(%v, %v) = %v, want %v", c.label, c.score, got, c.want)
		}
	}
}

func TestClampNaN(t *testing.T) {
	got, clamped := Clamp(float32(math.NaN()))
	if !clamped {
		t.Error("expected NaN to be clamped")
	}
	if got != maxWeight {
		t.Errorf("got %v, want %v", got, maxWeight)
	}
}

func TestClampBounds(t *testing.T) {
	if got, clamped := Clamp(1.0); clamped || got != 1.0 {
		t.Errorf("got (%v, %v), want (1.0, false)", got, clamped)
	}
	if got, clamped := Clamp(1e20); !clamped || got != maxWeight {
		t.Errorf("got (%v, %v), want (%v, true)", got, clamped, maxWeight)
	}
	if got, clamped := Clamp(1e-20); !clamped || got != minWeight {
		t.Errorf("got (%v, %v), want (%v, true)", got, clamped, minWeight)
	}
}
