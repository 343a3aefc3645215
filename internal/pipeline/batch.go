package pipeline

import (
	"context"
	"sync"
)

// ItemResult pairs a batch item's result with the error that failed it.
// Exactly one of Result and Err is set.
type ItemResult struct {
	Result *Result
	Err    error
}

// BatchResult aggregates per-item outcomes in input order.
type BatchResult struct {
	TotalRequested int
	SuccessCount   int
	FailureCount   int
	Items          []ItemResult
}

// Succeeded reports whether every item in the batch succeeded.
func (b BatchResult) Succeeded() bool {
	return b.FailureCount == 0 && b.TotalRequested > 0
}

type indexedItem struct {
	index int
	item  ItemResult
}

// ProgressFunc is called after each batch item completes.
type ProgressFunc func(completed, total int)

// RunBatch executes the pipeline for every request with at most
// maxConcurrent runs in flight. One item failing never aborts its
// siblings; failures become per-item results.
func (p *Pipeline) RunBatch(ctx context.Context, requests []Request, maxConcurrent int, onProgress ProgressFunc) BatchResult {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	resultsChan := make(chan indexedItem, len(requests))
	semaphore := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var completed int
	var progressMu sync.Mutex

	reportProgress := func() {
		if onProgress == nil {
			return
		}
		progressMu.Lock()
		completed++
		current := completed
		progressMu.Unlock()
		onProgress(current, len(requests))
	}

	for i := range requests {
		wg.Add(1)
		go func(idx int, req Request) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			result, err := p.Run(ctx, req)
			resultsChan <- indexedItem{index: idx, item: ItemResult{Result: result, Err: err}}
			reportProgress()
		}(i, requests[i])
	}

	wg.Wait()
	close(resultsChan)

	batch := BatchResult{
		TotalRequested: len(requests),
		Items:          make([]ItemResult, len(requests)),
	}
	for r := range resultsChan {
		batch.Items[r.index] = r.item
		if r.item.Err == nil {
			batch.SuccessCount++
		} else {
			batch.FailureCount++
		}
	}

	return batch
}
