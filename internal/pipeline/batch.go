package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"call-transcription-service/internal/models"
)

// BatchItem is the outcome of one recording in a batch run.
type BatchItem struct {
	Path   string
	Result *models.TranscriptionResult // nil when Err is set
	Err    error
}

// BatchSummary reports the aggregate outcome of a batch run.
type BatchSummary struct {
	Items     []BatchItem
	Succeeded int
	Failed    int
}

// ProcessBatch processes a collection of recordings. Items are submitted
// concurrently; the worker semaphore inside Process still bounds actual
// inference concurrency. Per-item failures are captured in the summary
// and never abort the remaining items.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string) BatchSummary {
	items := make([]BatchItem, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			result, err := p.Process(ctx, path)
			items[i] = BatchItem{Path: path, Result: result, Err: err}
		}(i, path)
	}
	wg.Wait()

	summary := BatchSummary{Items: items}
	for _, item := range items {
		if item.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}

	log.Info().
		Int("total", len(paths)).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("Batch processing complete")
	return summary
}
