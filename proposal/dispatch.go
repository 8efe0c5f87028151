package proposal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/stencilworks/redline/editor"
)

// DefaultChunkSize bounds the per-request payload to the collaborator.
const DefaultChunkSize = 200

// Dispatch partitions nodes into contiguous chunks of at most chunkSize,
// invokes the collaborator once per chunk concurrently, and flattens the
// results. A failing or malformed chunk resolves to zero corrections for
// that chunk only; completion order is irrelevant because correlation
// downstream is by node ID. An empty node list short-circuits without
// invoking the collaborator.
func Dispatch(ctx context.Context, p Proposer, nodes []NodeText, chunkSize int, logger *slog.Logger) []editor.CorrectionRecord {
	if len(nodes) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	chunks := partition(nodes, chunkSize)
	results := make([][]editor.CorrectionRecord, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []NodeText) {
			defer wg.Done()
			records, err := p.Propose(ctx, chunk)
			if err != nil {
				// Failure isolation at chunk granularity: this chunk
				// yields no corrections, the run continues.
				logger.Warn("proposal chunk failed",
					"chunk", i,
					"nodes", len(chunk),
					"error", err)
				return
			}
			results[i] = records
		}(i, chunk)
	}
	wg.Wait()

	var flat []editor.CorrectionRecord
	for _, r := range results {
		flat = append(flat, r...)
	}
	return flat
}

func partition(nodes []NodeText, size int) [][]NodeText {
	var chunks [][]NodeText
	for len(nodes) > size {
		chunks = append(chunks, nodes[:size])
		nodes = nodes[size:]
	}
	return append(chunks, nodes)
}
