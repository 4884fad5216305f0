package parallel

import (
	"runtime"
	"sync"
)

// Parallelize divides items into one contiguous range per CPU core and runs fn
// on each range concurrently. It returns once every range has been processed.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.NumCPU(), fn)
}

// ParallelizeN is Parallelize with an explicit worker count. The ranges are
// the ones Chunks returns.
func ParallelizeN(items, numWorkers int, fn func(start, end int)) {
	chunks := Chunks(items, numWorkers)
	if len(chunks) == 1 {
		fn(chunks[0][0], chunks[0][1])
		return
	}

	var wg sync.WaitGroup
	for _, c := range chunks {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(c[0], c[1])
	}
	wg.Wait()
}

// ParallelizeWithThreshold performs parallelization only when the number of items exceeds the threshold.
// Otherwise fn is called once with the full range.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// Chunks returns the ranges Parallelize would hand out, in order. Callers that
// need a deterministic reduction allocate one partial result per chunk and
// combine them in this order.
func Chunks(items, numWorkers int) [][2]int {
	if items <= 0 {
		return nil
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers
	var out [][2]int
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// NumChunks returns how many chunks ForEachChunk will use for items.
func NumChunks(items, threshold int) int {
	return len(Chunks(items, workersFor(items, threshold)))
}

// ForEachChunk runs fn(chunkIndex, start, end) for every chunk concurrently,
// or inline as a single chunk when items does not exceed threshold. Chunk
// indices run from 0 to NumChunks(items, threshold)-1.
func ForEachChunk(items, threshold int, fn func(chunk, start, end int)) int {
	chunks := Chunks(items, workersFor(items, threshold))
	// one worker per chunk index
	ParallelizeN(len(chunks), len(chunks), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			fn(i, chunks[i][0], chunks[i][1])
		}
	})
	return len(chunks)
}

func workersFor(items, threshold int) int {
	if items <= threshold {
		return 1
	}
	return runtime.NumCPU()
}
