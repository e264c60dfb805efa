// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package metrics

import "sort"

// AUROC sorts points by descending score and returns the area under the
// ROC curve via the trapezoid rule (spec.md §8(c)).
func AUROC(points []Point) float64 {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	return AUROCSorted(sorted)
}

// AUROCSorted computes the same metric as AUROC but requires points to
// already be sorted by descending score. It exists so that
// AUROC(points) == AUROCSorted(sortDescending(points)) is directly
// testable, matching spec.md §8's ordered=false/true round-trip
// property.
func AUROCSorted(points []Point) float64 {
	var totalPos, totalNeg int
	for _, p := range points {
		if p.Label > 0 {
			totalPos++
		} else {
			totalNeg++
		}
	}
	if totalPos == 0 || totalNeg == 0 {
		return 0
	}

	var (
		auc              float64
		tp, fp           int
		prevTPR, prevFPR float64
		i                int
	)
	for i < len(points) {
		j := i
		score := points[i].Score
		for j < len(points) && points[j].Score == score {
			if points[j].Label > 0 {
				tp++
			} else {
				fp++
			}
			j++
		}
		tpr := float64(tp) / float64(totalPos)
		fpr := float64(fp) / float64(totalNeg)
		auc += (fpr - prevFPR) * (tpr + prevTPR) / 2
		prevTPR, prevFPR = tpr, fpr
		i = j
	}
	return auc
}
