package ndarray

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/jpfielding/jpegls.go/pkg/compress/jpegls"
)

type batchJob struct {
	index int
	array *Array
}

type batchResult struct {
	index int
	data  []byte
	err   error
}

// EncodeBatch encodes independent arrays on up to workers goroutines
// (GOMAXPROCS when workers <= 0). Results keep the order of arrays; the
// first failure is returned and cancels the remaining work.
func EncodeBatch(ctx context.Context, arrays []*Array, ilv jpegls.InterleaveMode, near, workers int) ([][]byte, error) {
	if len(arrays) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(arrays))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan batchJob, len(arrays))
	for i, a := range arrays {
		jobs <- batchJob{index: i, array: a}
	}
	close(jobs)

	results := make(chan batchResult, len(arrays))
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					results <- batchResult{index: job.index, err: ctx.Err()}
					continue
				}
				data, err := Encode(ctx, job.array, ilv, near)
				if err != nil {
					cancel()
					err = fmt.Errorf("array %d: %w", job.index, err)
				}
				results <- batchResult{index: job.index, data: data, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([][]byte, len(arrays))
	var first error
	for r := range results {
		// a worker's own failure outranks the cancellations it caused
		if r.err != nil && (first == nil || errors.Is(first, context.Canceled) && !errors.Is(r.err, context.Canceled)) {
			first = r.err
		}
		out[r.index] = r.data
	}
	if first != nil {
		return nil, first
	}
	return out, nil
}
