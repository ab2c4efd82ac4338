package launch

import (
	"runtime"
	"sync"
)

// ParallelFor splits the index range [0, n) into contiguous blocks and runs
// fn on each block from a pool of workers, one per CPU. Blocks never
// overlap, so fn may write to per-index output regions without locking.
// A panic in any block aborts the whole call and is reported as an
// *ExecError; results are then unspecified (all-or-nothing semantics).
func ParallelFor(n int, fn func(start, end int)) error {
	if n <= 0 {
		return nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		return runBlock(0, n, fn)
	}

	blockSize := (n + workers - 1) / workers
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	for start := 0; start < n; start += blockSize {
		end := start + blockSize
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			if err := runBlock(start, end, fn); err != nil {
				errs <- err
			}
		}(start, end)
	}

	wg.Wait()
	close(errs)
	return <-errs // nil when the channel is empty
}

// runBlock executes one block, converting panics into *ExecError.
func runBlock(start, end int, fn func(start, end int)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExecError{Fault: r}
		}
	}()
	fn(start, end)
	return nil
}
