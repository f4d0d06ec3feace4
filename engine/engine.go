// Package engine owns the connection to the Move-VM engine node. The core
// depends only on the Adapter contract; the remote adapter speaks the
// node's REST API.
package engine

import (
	"context"

	"github.com/NoirHQ/engine-sidecar/models"
)

// Adapter is the engine gateway contract. All calls are bounded by the
// context and the adapter's own per-call timeout; implementations must be
// safe for concurrent use.
type Adapter interface {
	CoinType() string

	LedgerInfo(ctx context.Context) (*models.LedgerInfo, error)
	Account(ctx context.Context, addr models.MoveAddress) (*models.MoveAccount, error)
	AccountBalance(ctx context.Context, addr models.MoveAddress) (uint64, error)
	BlockByHeight(ctx context.Context, height uint64, withTransactions bool) (*models.MoveBlock, error)
	BlockByVersion(ctx context.Context, version uint64, withTransactions bool) (*models.MoveBlock, error)
	TransactionByHash(ctx context.Context, hash string) (*models.MoveTransaction, error)
	EstimateGasPrice(ctx context.Context) (*models.GasEstimation, error)
	SubmitTransaction(ctx context.Context, req *models.SubmitRequest) (*models.PendingTransaction, error)
	SimulateTransaction(ctx context.Context, req *models.SubmitRequest) (*models.MoveTransaction, error)
}
