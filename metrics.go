package seismix

// CalcMetrics computes detection quality scores from pick counts: nTP true
// positives, nP predicted picks, nT true picks. Precision is nTP/nP,
// recall is nTP/nT, and F1 is their harmonic mean. A zero denominator
// yields 0 for that score rather than NaN.
func CalcMetrics(nTP, nP, nT int) (precision, recall, f1 float64) {
	if nP > 0 {
		precision = float64(nTP) / float64(nP)
	}
	if nT > 0 {
		recall = float64(nTP) / float64(nT)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// CleanQueueItem returns q without zero entries, preserving order. The
// result is a fresh slice, empty (not nil) when everything is removed.
func CleanQueueItem(q []int) []int {
	out := make([]int, 0, len(q))
	for _, v := range q {
		if v != 0 {
			out = append(out, v)
		}
	}
	return out
}

// CleanQueue applies CleanQueueItem to every queue, keeping the outer
// structure: queues that become empty stay in place as empty slices.
func CleanQueue(queues [][]int) [][]int {
	out := make([][]int, len(queues))
	for i, q := range queues {
		out[i] = CleanQueueItem(q)
	}
	return out
}
