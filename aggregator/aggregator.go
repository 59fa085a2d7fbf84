package aggregator

import (
	"context"
	"fmt"
	"math/big"
	"math/bits"
	"sort"

	cmbytes "github.com/cometbft/cometbft/libs/bytes"

	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/types"
)

// Quorum is the fraction of observed weight a root needs to be accepted.
type Quorum struct {
	Numerator   uint64
	Denominator uint64
}

// DefaultQuorum is the 2/3 supermajority.
var DefaultQuorum = Quorum{Numerator: 2, Denominator: 3}

// Validate checks that 0 < Numerator <= Denominator.
func (q Quorum) Validate() error {
	if q.Numerator == 0 || q.Denominator == 0 {
		return fmt.Errorf("quorum %d/%d must have a positive numerator and denominator", q.Numerator, q.Denominator)
	}
	if q.Numerator > q.Denominator {
		return fmt.Errorf("quorum %d/%d exceeds 1", q.Numerator, q.Denominator)
	}
	return nil
}

// Reached reports whether best/total >= Numerator/Denominator, compared
// exactly as Numerator*total <= Denominator*best. Zero total never reaches quorum.
func (q Quorum) Reached(best, total uint64) bool {
	if total == 0 {
		return false
	}
	scaledTotal := new(big.Int).SetUint64(total)
	scaledTotal.Mul(scaledTotal, new(big.Int).SetUint64(q.Numerator))
	scaledBest := new(big.Int).SetUint64(best)
	scaledBest.Mul(scaledBest, new(big.Int).SetUint64(q.Denominator))
	return scaledTotal.Cmp(scaledBest) <= 0
}

func (q Quorum) String() string {
	return fmt.Sprintf("%d/%d", q.Numerator, q.Denominator)
}

// Accepted is a root that reached quorum for a chain.
type Accepted struct {
	ChainID     string
	Root        cmbytes.HexBytes
	Weight      uint64
	TotalWeight uint64
}

// RootWriter receives accepted roots.
type RootWriter interface {
	Write(ctx context.Context, chainID string, root []byte) error
}

// Aggregator turns a batch of weighted vote reports into agreed roots.
type Aggregator struct {
	quorum Quorum
	logger log.Logger
}

// New creates an aggregator accepting roots at the given quorum.
func New(quorum Quorum, logger log.Logger) (*Aggregator, error) {
	if err := quorum.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{
		quorum: quorum,
		logger: logger.With("component", "aggregator"),
	}, nil
}

type tally struct {
	total   uint64
	weights map[string]uint64
	roots   map[string]cmbytes.HexBytes
}

// Aggregate computes at most one accepted root per chain, ordered by chain id.
// Within a chain, roots are ranked in ascending byte order and a root only
// replaces the running best when its weight is strictly greater, so among
// equally weighted roots the smallest wins.
func (a *Aggregator) Aggregate(reports []types.VoteReport) ([]Accepted, error) {
	tallies := make(map[string]*tally)
	for _, report := range reports {
		for chainID, root := range report.Roots {
			t, ok := tallies[chainID]
			if !ok {
				t = &tally{weights: make(map[string]uint64), roots: make(map[string]cmbytes.HexBytes)}
				tallies[chainID] = t
			}

			total, carry := bits.Add64(t.total, report.Weight, 0)
			if carry != 0 {
				return nil, fmt.Errorf("%w: total weight of chain %s", types.ErrArithmeticOverflow, chainID)
			}
			t.total = total

			key := string(root)
			weight, carry := bits.Add64(t.weights[key], report.Weight, 0)
			if carry != 0 {
				return nil, fmt.Errorf("%w: weight of root %X on chain %s", types.ErrArithmeticOverflow, root, chainID)
			}
			t.weights[key] = weight
			t.roots[key] = root
		}
	}

	chainIDs := make([]string, 0, len(tallies))
	for chainID := range tallies {
		chainIDs = append(chainIDs, chainID)
	}
	sort.Strings(chainIDs)

	var accepted []Accepted
	for _, chainID := range chainIDs {
		t := tallies[chainID]
		best, bestWeight := t.best()
		if best == nil || !a.quorum.Reached(bestWeight, t.total) {
			a.logger.Debug("no root reached quorum",
				"chain_id", chainID,
				"best_weight", bestWeight,
				"total_weight", t.total,
				"quorum", a.quorum.String())
			continue
		}
		accepted = append(accepted, Accepted{
			ChainID:     chainID,
			Root:        best,
			Weight:      bestWeight,
			TotalWeight: t.total,
		})
	}
	return accepted, nil
}

func (t *tally) best() (cmbytes.HexBytes, uint64) {
	keys := make([]string, 0, len(t.weights))
	for k := range t.weights {
		keys = append(keys, k)
	}
	// string order is byte order
	sort.Strings(keys)

	var (
		best       cmbytes.HexBytes
		bestWeight uint64
	)
	for _, k := range keys {
		if w := t.weights[k]; w > bestWeight {
			best, bestWeight = t.roots[k], w
		}
	}
	return best, bestWeight
}

// Apply aggregates reports and writes every accepted root to w in chain id order.
func (a *Aggregator) Apply(ctx context.Context, w RootWriter, reports []types.VoteReport) ([]Accepted, error) {
	accepted, err := a.Aggregate(reports)
	if err != nil {
		return nil, err
	}
	for _, acc := range accepted {
		if err := w.Write(ctx, acc.ChainID, acc.Root); err != nil {
			return nil, fmt.Errorf("failed to write agreed root for %s: %w", acc.ChainID, err)
		}
		a.logger.Info("root reached quorum",
			"chain_id", acc.ChainID,
			"root", acc.Root.String(),
			"weight", acc.Weight,
			"total_weight", acc.TotalWeight)
	}
	return accepted, nil
}
