package replay

import (
	"context"
	"fmt"

	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/pkg/store"
)

var processedMarker = []byte{0x01}

// Guard records which transfer ids have been settled. A transfer moves from
// unprocessed to processed exactly once and never back.
type Guard struct {
	kv     store.KV
	logger log.Logger
}

// New returns a guard reading and writing markers through kv.
func New(kv store.KV, logger log.Logger) *Guard {
	return &Guard{
		kv:     store.NewPrefixKV(kv, store.ProcessedPrefix),
		logger: logger.With("component", "replay"),
	}
}

// MarkIfUnprocessed marks id as processed and reports whether this call did
// so. Only the caller that gets true may pay the transfer out.
func (g *Guard) MarkIfUnprocessed(ctx context.Context, id uint64) (bool, error) {
	processed, err := g.IsProcessed(ctx, id)
	if err != nil {
		return false, err
	}
	if processed {
		g.logger.Debug("transfer already processed", "transfer_id", id)
		return false, nil
	}
	if err := g.kv.Put(ctx, store.UintKey(id), processedMarker); err != nil {
		return false, fmt.Errorf("failed to mark transfer %d as processed: %w", id, err)
	}
	g.logger.Debug("transfer marked processed", "transfer_id", id)
	return true, nil
}

// IsProcessed reports whether id has been settled.
func (g *Guard) IsProcessed(ctx context.Context, id uint64) (bool, error) {
	has, err := g.kv.Has(ctx, store.UintKey(id))
	if err != nil {
		return false, fmt.Errorf("failed to read marker of transfer %d: %w", id, err)
	}
	return has, nil
}
