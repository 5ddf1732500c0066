package vault

import (
	"context"
	"errors"

	"github.com/elys-network/lp-tracker/internal/types"
)

// ErrNoDataSource means neither the current share nor the deposit history could be read.
var ErrNoDataSource = errors.New("no position data source available")

// FactsGateway reads the protocol-specific facts of a user's position in one vault.
// Implementations return deposits in ascending time order and surface partial data: a deposit
// without a current share is valid (the position was staked or withdrawn).
type FactsGateway interface {
	FetchFacts(ctx context.Context, user string, vault types.VaultConfig) (*types.PositionFacts, error)
}

// joinReads combines the outcome of the two independent reads a gateway performs.
func joinReads(shareErr, depositErr error) error {
	if shareErr != nil && depositErr != nil {
		return errors.Join(ErrNoDataSource, shareErr, depositErr)
	}
	return nil
}
