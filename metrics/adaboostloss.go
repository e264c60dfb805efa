// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// AdaBoostLoss returns the mean exponential loss exp(-label*score) over
// points, matching the AdaBoost training objective (spec.md §8(a)).
func AdaBoostLoss(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	losses := make([]float64, len(points))
	for i, p := range points {
		losses[i] = math.Exp(-float64(p.Label) * float64(p.Score))
	}
	return stat.Mean(losses, nil)
}
