package consensus

import (
	"context"

	"github.com/miradorstack/vmtest/internal/models"
)

// Store abstracts persistence for consensus reports.
type Store interface {
	StoreConsensus(ctx context.Context, host string, report models.ConsensusReport) error
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, host string, report models.ConsensusReport) error

// StoreConsensus implements Store.
func (f StoreFunc) StoreConsensus(ctx context.Context, host string, report models.ConsensusReport) error {
	return f(ctx, host, report)
}
