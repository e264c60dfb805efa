// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package metrics

const errorEpsilon = 1e-8

// ErrorRate returns the fraction of points misclassified, where a point
// is an error when score*label <= errorEpsilon (spec.md §8(b)): this
// treats an exact-zero or sign-disagreeing score as wrong, matching the
// worked example.
func ErrorRate(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	var errs int
	for _, p := range points {
		if float64(p.Score)*float64(p.Label) <= errorEpsilon {
			errs++
		}
	}
	return float64(errs) / float64(len(points))
}
