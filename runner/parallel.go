package runner

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/flaky-dev/flaky/metrics"
	"github.com/flaky-dev/flaky/types"
)

// generationOutcome carries one generation's result or failure from a worker
// back to the collector.
type generationOutcome struct {
	genNum int
	result *types.GenerationResult
	err    error
}

// executeGenerations submits all generation indices to a bounded worker pool
// and collects outcomes as they complete. Surviving generations are returned
// sorted by generation index; arrival order is never relied upon. A failed
// generation is logged, counted, surfaced through opts.OnGenerationError and
// dropped — sibling generations proceed unaffected.
func (r *Runner) executeGenerations(ctx context.Context, caseName string, opts RunOptions, workers int) []types.GenerationResult {
	if opts.NumRuns == 0 {
		return nil
	}

	caseDir := filepath.Join(r.casesDir, caseName)

	bufferSize := workers * 2
	if bufferSize > 100 {
		bufferSize = 100
	}
	genChan := make(chan int, bufferSize)
	outChan := make(chan generationOutcome, bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go r.generationWorker(ctx, &wg, caseDir, genChan, outChan)
	}

	// Eager submission: every index goes in up front, the pool enforces
	// the concurrency ceiling.
	go func() {
		defer close(genChan)
		for n := 1; n <= opts.NumRuns; n++ {
			select {
			case genChan <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outChan)
	}()

	var survivors []types.GenerationResult
	for outcome := range outChan {
		if outcome.err != nil {
			r.log.WithFields(logrus.Fields{
				"case":       caseName,
				"generation": outcome.genNum,
			}).WithError(outcome.err).Error("Generation failed")
			metrics.RecordGenerationFailure(caseName)
			if opts.OnGenerationError != nil {
				opts.OnGenerationError(outcome.genNum, outcome.err)
			}
			continue
		}

		metrics.RecordGeneration(caseName, outcome.result.PassedCount(), outcome.result.FailedCount(),
			outcome.result.DurationMS/1000)
		if opts.OnGeneration != nil {
			opts.OnGeneration(*outcome.result)
		}
		survivors = append(survivors, *outcome.result)
	}

	sort.Slice(survivors, func(i, j int) bool {
		return survivors[i].GenerationNum < survivors[j].GenerationNum
	})
	return survivors
}

// generationWorker processes generation indices until the channel closes or
// the context is cancelled.
func (r *Runner) generationWorker(ctx context.Context, wg *sync.WaitGroup, caseDir string, genChan <-chan int, outChan chan<- generationOutcome) {
	defer wg.Done()

	for {
		select {
		case genNum, ok := <-genChan:
			if !ok {
				return
			}

			result, err := r.execGeneration(ctx, caseDir, genNum)

			select {
			case outChan <- generationOutcome{genNum: genNum, result: result, err: err}:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
