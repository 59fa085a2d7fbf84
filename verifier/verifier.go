package verifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/rollkit/fastlane/merkle"
	"github.com/rollkit/fastlane/pkg/log"
	"github.com/rollkit/fastlane/types"
)

// RootQuerier answers whether a root is agreed for a chain.
type RootQuerier interface {
	// Lookup returns the age of root for chainID, 1 being the most recent
	// agreed root, or an error wrapping types.ErrNotFound.
	Lookup(ctx context.Context, chainID string, root []byte) (uint64, error)
}

// Request is a claim that Item is included under ClaimedRoot of ChainID.
type Request struct {
	ChainID     string
	ClaimedRoot []byte
	Proof       merkle.Proof
	Item        []byte
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithMaxRootAge rejects agreed roots older than maxAge. Zero accepts any cached root.
func WithMaxRootAge(maxAge uint64) Option {
	return func(v *Verifier) {
		v.maxRootAge = maxAge
	}
}

// WithScheme sets the proof scheme accepted by the verifier. Proofs that do
// not name a scheme are read as this one.
func WithScheme(scheme merkle.Scheme) Option {
	return func(v *Verifier) {
		v.scheme = scheme
	}
}

// Verifier checks inclusion proofs against agreed roots. It never derives
// agreement itself, the RootQuerier is the only source of it.
type Verifier struct {
	querier    RootQuerier
	scheme     merkle.Scheme
	maxRootAge uint64
	logger     log.Logger
}

// New returns a verifier consulting querier for agreed roots.
func New(querier RootQuerier, logger log.Logger, opts ...Option) *Verifier {
	v := &Verifier{
		querier: querier,
		scheme:  merkle.SchemeKeccak256,
		logger:  logger.With("component", "verifier"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks that req.ClaimedRoot is agreed and that req.Proof binds
// req.Item to it. It returns the age of the root on success.
func (v *Verifier) Verify(ctx context.Context, req Request) (uint64, error) {
	age, err := v.querier.Lookup(ctx, req.ChainID, req.ClaimedRoot)
	switch {
	case errors.Is(err, types.ErrNotFound):
		return 0, fmt.Errorf("%w: root %X is not agreed for chain %s", types.ErrInvalidRoot, req.ClaimedRoot, req.ChainID)
	case err != nil:
		return 0, fmt.Errorf("failed to look up root: %w", err)
	}
	if v.maxRootAge > 0 && age > v.maxRootAge {
		return 0, fmt.Errorf("%w: root %X for chain %s has age %d, limit %d",
			types.ErrInvalidRoot, req.ClaimedRoot, req.ChainID, age, v.maxRootAge)
	}

	proof := req.Proof
	if proof.Scheme == "" {
		proof.Scheme = v.scheme
	}
	if proof.Scheme != v.scheme {
		return 0, fmt.Errorf("%w: scheme %s, expected %s", types.ErrInvalidMerkleProof, proof.Scheme, v.scheme)
	}
	if err := proof.Verify(req.ClaimedRoot); err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrInvalidMerkleProof, err)
	}
	if !proof.Covers(merkle.LeafHash(proof.Scheme, req.Item)) {
		return 0, fmt.Errorf("%w: item is not among the proven leaves", types.ErrInvalidItem)
	}

	v.logger.Debug("inclusion verified", "chain_id", req.ChainID, "root", fmt.Sprintf("%X", req.ClaimedRoot), "age", age)
	return age, nil
}
