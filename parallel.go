package seismix

import "sync"

// ExtractPicksParallel extracts picks using multiple goroutines. The
// (batch, station) traces are flattened into one list and split into
// contiguous ranges, one range per worker; each trace is scanned from its
// own copy of the input, so no synchronization is needed beyond the final
// join. numWorkers controls the degree of parallelism; if <= 1, it falls
// back to single-threaded ExtractPicks.
//
// The result is identical to ExtractPicks, including pick order.
func ExtractPicksParallel(preds *Tensor4, fileNames, beginTimes []string, stationIDs [][]string, cfg ExtractConfig, numWorkers int) ([]Pick, error) {
	if numWorkers <= 1 || preds == nil || preds.Nb*preds.Ns <= 1 {
		return ExtractPicks(preds, fileNames, beginTimes, stationIDs, cfg)
	}

	applyExtractDefaults(&cfg)
	if err := validateExtract(preds, fileNames, beginTimes, stationIDs, &cfg); err != nil {
		return nil, err
	}

	nSlices := preds.Nb * preds.Ns
	results := make([][]Pick, nSlices)
	errs := make([]error, nSlices)

	var wg sync.WaitGroup
	slicesPerWorker := (nSlices + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		start := w * slicesPerWorker
		end := start + slicesPerWorker
		if end > nSlices {
			end = nSlices
		}
		if start >= nSlices {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for k := start; k < end; k++ {
				b := k / preds.Ns
				s := k % preds.Ns
				results[k], errs[k] = extractSlice(preds, b, s,
					batchFileName(fileNames, b),
					batchBeginTime(beginTimes, b),
					sliceStationID(stationIDs, b, s),
					&cfg)
			}
		}(start, end)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	picks := []Pick{}
	for _, r := range results {
		picks = append(picks, r...)
	}
	return picks, nil
}
