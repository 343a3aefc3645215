package orchestrator

import (
	"context"
	"sync"

	"github.com/kozaktomas/imageproxy/internal/cache"
	"github.com/kozaktomas/imageproxy/internal/generator"
)

// BatchRequest is one item of a batch generation call.
type BatchRequest struct {
	Request generator.Request
	Filters cache.Filters
}

// BatchResult aggregates per-item outcomes. Items is aligned to the
// input order regardless of completion order.
type BatchResult struct {
	TotalRequested int
	SuccessCount   int
	FailureCount   int
	Items          []Result
}

// Succeeded reports whether every item in the batch succeeded.
func (b BatchResult) Succeeded() bool {
	return b.FailureCount == 0 && b.TotalRequested > 0
}

type indexedResult struct {
	index  int
	result Result
}

// GenerateBatch runs the requests concurrently with at most
// maxConcurrent in flight at once. Item failures are recorded per
// item and never abort sibling items.
func (o *Orchestrator) GenerateBatch(ctx context.Context, requests []BatchRequest, maxConcurrent int) BatchResult {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	resultsChan := make(chan indexedResult, len(requests))
	semaphore := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i := range requests {
		wg.Add(1)
		go func(idx int, req BatchRequest) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			resultsChan <- indexedResult{
				index:  idx,
				result: o.Generate(ctx, req.Request, req.Filters),
			}
		}(i, requests[i])
	}

	wg.Wait()
	close(resultsChan)

	batch := BatchResult{
		TotalRequested: len(requests),
		Items:          make([]Result, len(requests)),
	}
	for r := range resultsChan {
		batch.Items[r.index] = r.result
		if r.result.Success {
			batch.SuccessCount++
		} else {
			batch.FailureCount++
		}
	}

	return batch
}
