// Copyright 2025 Noir
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api implements the Ethereum-facing method handlers. Each handler
// translates one eth/net/web3 method onto engine queries or submissions;
// none of them hold chain state beyond small lookup caches.
package api

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/NoirHQ/engine-sidecar/bridge"
	"github.com/NoirHQ/engine-sidecar/config"
	"github.com/NoirHQ/engine-sidecar/consts"
	"github.com/NoirHQ/engine-sidecar/engine"
	"github.com/NoirHQ/engine-sidecar/models"
)

const (
	txIndexCacheSize    = 8192
	blockIndexCacheSize = 4096

	// submitExpirySecs bounds how long a forwarded transaction may sit in
	// the engine's mempool before it expires.
	submitExpirySecs = 600

	// minTxGas is the intrinsic cost floor reported by eth_estimateGas.
	minTxGas = 21000
)

// EthAPI serves the eth_* namespace. Transaction and block hashes minted on
// the engine side are remembered in lookup caches so that later by-hash
// queries can be answered; entries age out, they are never invalidated.
type EthAPI struct {
	engine  engine.Adapter
	bridge  *bridge.Bridge
	queue   *engine.SenderQueue
	conf    config.EngineConfig
	chainID *big.Int

	txIndex    *lru.Cache // eth tx hash -> engine tx hash (string)
	blockIndex *lru.Cache // eth block hash -> engine block height (uint64)

	logger logrus.FieldLogger
}

func NewEthAPI(adapter engine.Adapter, b *bridge.Bridge, conf config.EngineConfig) *EthAPI {
	txIndex, _ := lru.New(txIndexCacheSize)
	blockIndex, _ := lru.New(blockIndexCacheSize)
	return &EthAPI{
		engine:     adapter,
		bridge:     b,
		queue:      engine.NewSenderQueue(),
		conf:       conf,
		chainID:    new(big.Int).SetUint64(conf.ChainID),
		txIndex:    txIndex,
		blockIndex: blockIndex,
		logger:     logrus.WithField("L", "EthAPI"),
	}
}

func (api *EthAPI) ChainId() *hexutil.Big {
	return (*hexutil.Big)(new(big.Int).Set(api.chainID))
}

func (api *EthAPI) BlockNumber(ctx context.Context) (hexutil.Uint64, error) {
	ledger, err := api.engine.LedgerInfo(ctx)
	if err != nil {
		return 0, err
	}
	return hexutil.Uint64(ledger.BlockHeight), nil
}

func (api *EthAPI) Syncing(ctx context.Context) (interface{}, error) {
	return false, nil
}

// GasPrice reports the engine's estimated gas unit price scaled into wei.
func (api *EthAPI) GasPrice(ctx context.Context) (*hexutil.Big, error) {
	est, err := api.engine.EstimateGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	wei := models.WeiFromBaseUnits(est.GasEstimate.Uint64(), api.conf.ScalingFactor)
	return (*hexutil.Big)(wei), nil
}

// GetBalance reports the account's coin balance scaled into wei. The engine
// exposes only current state, so the block argument selects presentation but
// not history; historical heights answer with the latest balance.
func (api *EthAPI) GetBalance(ctx context.Context, address common.Address, _ models.BlockNumberOrHash) (*hexutil.Big, error) {
	balance, err := api.engine.AccountBalance(ctx, bridge.ToMoveAddress(address))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return (*hexutil.Big)(new(big.Int)), nil
		}
		return nil, err
	}
	return (*hexutil.Big)(models.WeiFromBaseUnits(balance, api.conf.ScalingFactor)), nil
}

// GetTransactionCount reports the engine sequence number, which is what the
// submission path uses as the nonce.
func (api *EthAPI) GetTransactionCount(ctx context.Context, address common.Address, _ models.BlockNumberOrHash) (hexutil.Uint64, error) {
	account, err := api.engine.Account(ctx, bridge.ToMoveAddress(address))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return hexutil.Uint64(account.SequenceNumber), nil
}

func (api *EthAPI) GetBlockByNumber(ctx context.Context, number models.BlockNumber, fullTx bool) (map[string]interface{}, error) {
	height, err := api.resolveHeight(ctx, number)
	if err != nil {
		return nil, err
	}
	block, err := api.engine.BlockByHeight(ctx, height, true)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return api.blockFields(block, fullTx), nil
}

// GetBlockByHash resolves the hash through the block index cache. Hashes the
// sidecar has never served by number are unknown and answer null.
func (api *EthAPI) GetBlockByHash(ctx context.Context, hash common.Hash, fullTx bool) (map[string]interface{}, error) {
	cached, ok := api.blockIndex.Get(hash)
	if !ok {
		return nil, nil
	}
	block, err := api.engine.BlockByHeight(ctx, cached.(uint64), true)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if common.HexToHash(block.BlockHash) != hash {
		return nil, nil
	}
	return api.blockFields(block, fullTx), nil
}

func (api *EthAPI) GetTransactionByHash(ctx context.Context, hash common.Hash) (*models.RPCTransaction, error) {
	moveTx, err := api.lookupMoveTransaction(ctx, hash)
	if moveTx == nil || err != nil {
		return nil, err
	}
	tx, err := models.DecodeMovePayload(moveTx.Payload)
	if err != nil {
		return nil, err
	}
	from, err := bridge.ToEthAddress(moveTx.Sender)
	if err != nil {
		return nil, err
	}
	if moveTx.Type != "user_transaction" {
		// Still pending, no placement yet.
		return models.NewRPCTransaction(tx.Tx(), from, common.Hash{}, 0, 0), nil
	}
	block, index, err := api.locateInBlock(ctx, moveTx)
	if err != nil {
		return nil, err
	}
	return models.NewRPCTransaction(tx.Tx(), from, common.HexToHash(block.BlockHash), block.BlockHeight.Uint64(), index), nil
}

func (api *EthAPI) GetTransactionReceipt(ctx context.Context, hash common.Hash) (map[string]interface{}, error) {
	moveTx, err := api.lookupMoveTransaction(ctx, hash)
	if moveTx == nil || err != nil {
		return nil, err
	}
	if moveTx.Type != "user_transaction" {
		// No receipt until committed.
		return nil, nil
	}
	tx, err := models.DecodeMovePayload(moveTx.Payload)
	if err != nil {
		return nil, err
	}
	from, err := bridge.ToEthAddress(moveTx.Sender)
	if err != nil {
		return nil, err
	}
	block, index, err := api.locateInBlock(ctx, moveTx)
	if err != nil {
		return nil, err
	}

	// Cumulative gas counts the translated transactions of the block up to
	// and including this one, in engine gas units priced at each
	// transaction's own effective price.
	var cumulative uint64
	for i := range block.Transactions {
		inner := &block.Transactions[i]
		if !api.translated(inner) {
			continue
		}
		cumulative += inner.GasUsed.Uint64()
		if inner.Hash == moveTx.Hash {
			break
		}
	}

	blockHash := common.HexToHash(block.BlockHash)
	status := hexutil.Uint64(0)
	if moveTx.Success {
		status = 1
	}
	effectiveGasPrice := models.WeiFromBaseUnits(moveTx.GasUnitPrice.Uint64(), api.conf.ScalingFactor)
	fields := map[string]interface{}{
		"transactionHash":   tx.Hash(),
		"transactionIndex":  hexutil.Uint64(index),
		"blockHash":         blockHash,
		"blockNumber":       hexutil.Uint64(block.BlockHeight),
		"from":              from,
		"to":                tx.Tx().To(),
		"gasUsed":           hexutil.Uint64(moveTx.GasUsed),
		"cumulativeGasUsed": hexutil.Uint64(cumulative),
		"effectiveGasPrice": (*hexutil.Big)(effectiveGasPrice),
		"contractAddress":   nil,
		"logs":              []*types.Log{},
		"logsBloom":         types.Bloom{},
		"type":              hexutil.Uint64(tx.Tx().Type()),
		"status":            status,
	}
	if tx.Tx().To() == nil {
		fields["contractAddress"] = crypto.CreateAddress(from, tx.Tx().Nonce())
	}
	return fields, nil
}

// SendRawTransaction validates and forwards a signed transaction. The
// signed nonce becomes the engine sequence number untouched; whether it is
// current is the chain's call, never reassigned here. The sender's queue
// slot covers the whole submit window so concurrent transactions from one
// account reach the engine one at a time.
func (api *EthAPI) SendRawTransaction(ctx context.Context, input hexutil.Bytes) (common.Hash, error) {
	tx, err := models.DecodeETHTransaction(input)
	if err != nil {
		return common.Hash{}, err
	}
	from, err := tx.Sender(api.chainID)
	if err != nil {
		return common.Hash{}, err
	}
	sender := bridge.ToMoveAddress(from)

	release, err := api.queue.Acquire(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}
	defer release()

	seq := tx.Tx().Nonce()
	payload, err := tx.MovePayload(sender, api.conf.EntryFunc)
	if err != nil {
		return common.Hash{}, err
	}
	req := models.NewSubmitRequest(sender, seq,
		api.maxGasAmount(tx.Tx().Gas()),
		api.gasUnitPrice(tx.Tx().GasPrice()),
		uint64(time.Now().Unix())+submitExpirySecs,
		payload, api.conf.AuthFunc)

	pending, err := api.engine.SubmitTransaction(ctx, req)
	if err != nil {
		return common.Hash{}, err
	}
	api.txIndex.Add(tx.Hash(), pending.Hash)
	api.logger.WithFields(logrus.Fields{
		"tx":     tx.Hash().Hex(),
		"engine": pending.Hash,
		"seq":    seq,
	}).Debug("transaction forwarded")
	return tx.Hash(), nil
}

// Call simulates the call against current state. The engine reports the
// execution outcome but no EVM-shaped return buffer, so a successful call
// answers empty data and a reverted one surfaces the VM status.
func (api *EthAPI) Call(ctx context.Context, args models.TransactionArgs, _ *models.BlockNumberOrHash) (hexutil.Bytes, error) {
	sim, err := api.simulate(ctx, args)
	if err != nil {
		return nil, err
	}
	if !sim.Success {
		return nil, &RevertError{Status: sim.VMStatus}
	}
	return hexutil.Bytes{}, nil
}

// EstimateGas simulates the call and converts the consumed engine resources
// into gas units at the current wei gas price. The estimate is a documented
// approximation of later actual consumption, never below the intrinsic
// transaction cost.
func (api *EthAPI) EstimateGas(ctx context.Context, args models.TransactionArgs, _ *models.BlockNumberOrHash) (hexutil.Uint64, error) {
	sim, err := api.simulate(ctx, args)
	if err != nil {
		return 0, err
	}
	if !sim.Success {
		return 0, &RevertError{Status: sim.VMStatus}
	}
	est, err := api.engine.EstimateGasPrice(ctx)
	if err != nil {
		return 0, err
	}
	ethGasPrice := models.WeiFromBaseUnits(est.GasEstimate.Uint64(), api.conf.ScalingFactor)
	gas := models.EthGasFromMove(sim.GasUsed.Uint64(), sim.GasUnitPrice.Uint64(), api.conf.ScalingFactor, ethGasPrice)
	if gas < minTxGas {
		gas = minTxGas
	}
	return hexutil.Uint64(gas), nil
}

// RevertError carries the engine VM status of a failed simulation. It
// classifies as a chain rejection on the wire.
type RevertError struct {
	Status string
}

func (e *RevertError) Error() string {
	return "execution reverted: " + e.Status
}

func (e *RevertError) Unwrap() error { return models.ErrRejected }

// simulate assembles an unsigned transaction from call args, translates it
// like a real submission and runs it through the engine's simulation route.
func (api *EthAPI) simulate(ctx context.Context, args models.TransactionArgs) (*models.MoveTransaction, error) {
	var from common.Address
	if args.From != nil {
		from = *args.From
	}
	sender := bridge.ToMoveAddress(from)

	var seq uint64
	if args.Nonce != nil {
		seq = uint64(*args.Nonce)
	} else {
		account, err := api.engine.Account(ctx, sender)
		switch {
		case err == nil:
			seq = account.SequenceNumber.Uint64()
		case errors.Is(err, models.ErrNotFound):
		default:
			return nil, err
		}
	}

	gas := uint64(0)
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	}
	gasPrice := new(big.Int)
	if args.GasPrice != nil {
		gasPrice = (*big.Int)(args.GasPrice)
	} else if args.MaxFeePerGas != nil {
		gasPrice = (*big.Int)(args.MaxFeePerGas)
	}
	value := new(big.Int)
	if args.Value != nil {
		value = (*big.Int)(args.Value)
	}

	inner := types.NewTx(&types.LegacyTx{
		Nonce:    seq,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       args.To,
		Value:    value,
		Data:     args.CallData(),
	})
	raw, err := inner.MarshalBinary()
	if err != nil {
		return nil, err
	}
	tx, err := models.DecodeETHTransaction(raw)
	if err != nil {
		return nil, err
	}
	payload, err := tx.MovePayload(sender, api.conf.EntryFunc)
	if err != nil {
		return nil, err
	}
	req := models.NewSubmitRequest(sender, seq,
		api.maxGasAmount(gas),
		api.gasUnitPrice(gasPrice),
		uint64(time.Now().Unix())+submitExpirySecs,
		payload, api.conf.AuthFunc)
	return api.engine.SimulateTransaction(ctx, req)
}

// lookupMoveTransaction maps an Ethereum transaction hash through the
// submission index onto the engine's ledger. Hashes the sidecar never saw
// answer nil without an upstream round trip.
func (api *EthAPI) lookupMoveTransaction(ctx context.Context, hash common.Hash) (*models.MoveTransaction, error) {
	cached, ok := api.txIndex.Get(hash)
	if !ok {
		return nil, nil
	}
	moveTx, err := api.engine.TransactionByHash(ctx, cached.(string))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return moveTx, nil
}

// locateInBlock finds the committed transaction's block and its index among
// the block's translated transactions.
func (api *EthAPI) locateInBlock(ctx context.Context, moveTx *models.MoveTransaction) (*models.MoveBlock, uint64, error) {
	block, err := api.engine.BlockByVersion(ctx, moveTx.Version.Uint64(), true)
	if err != nil {
		return nil, 0, err
	}
	api.blockIndex.Add(common.HexToHash(block.BlockHash), block.BlockHeight.Uint64())
	var index uint64
	for i := range block.Transactions {
		inner := &block.Transactions[i]
		if !api.translated(inner) {
			continue
		}
		if inner.Hash == moveTx.Hash {
			return block, index, nil
		}
		index++
	}
	return block, 0, nil
}

func (api *EthAPI) resolveHeight(ctx context.Context, number models.BlockNumber) (uint64, error) {
	switch number {
	case models.LatestBlockNumber, models.PendingBlockNumber:
		ledger, err := api.engine.LedgerInfo(ctx)
		if err != nil {
			return 0, err
		}
		return ledger.BlockHeight.Uint64(), nil
	case models.EarliestBlockNumber:
		ledger, err := api.engine.LedgerInfo(ctx)
		if err != nil {
			return 0, err
		}
		return ledger.OldestBlockHeight.Uint64(), nil
	default:
		return uint64(number.Int64()), nil
	}
}

// translated reports whether a ledger transaction is one the sidecar's
// entry function produced, i.e. visible on the Ethereum side.
func (api *EthAPI) translated(moveTx *models.MoveTransaction) bool {
	return moveTx.Type == "user_transaction" &&
		moveTx.Payload != nil &&
		moveTx.Payload.Function == api.conf.EntryFunc
}

// blockFields synthesizes the Ethereum block view. Identity fields come
// from the engine block; consensus fields with no engine counterpart hold
// deterministic zero values. Requesting the same height twice yields
// identical results.
func (api *EthAPI) blockFields(block *models.MoveBlock, fullTx bool) map[string]interface{} {
	blockHash := common.HexToHash(block.BlockHash)
	api.blockIndex.Add(blockHash, block.BlockHeight.Uint64())

	txs := make([]interface{}, 0)
	var index, gasUsed uint64
	for i := range block.Transactions {
		moveTx := &block.Transactions[i]
		if !api.translated(moveTx) {
			continue
		}
		tx, err := models.DecodeMovePayload(moveTx.Payload)
		if err != nil {
			api.logger.WithField("tx", moveTx.Hash).Debugf("undecodable payload: %v", err)
			continue
		}
		from, err := bridge.ToEthAddress(moveTx.Sender)
		if err != nil {
			api.logger.WithField("tx", moveTx.Hash).Debugf("foreign sender: %v", err)
			continue
		}
		api.txIndex.Add(tx.Hash(), moveTx.Hash)
		gasUsed += moveTx.GasUsed.Uint64()
		if fullTx {
			txs = append(txs, models.NewRPCTransaction(tx.Tx(), from, blockHash, block.BlockHeight.Uint64(), index))
		} else {
			txs = append(txs, tx.Hash())
		}
		index++
	}

	return map[string]interface{}{
		"number":           hexutil.Uint64(block.BlockHeight),
		"hash":             blockHash,
		"parentHash":       common.Hash{},
		"nonce":            types.BlockNonce{},
		"mixHash":          common.Hash{},
		"sha3Uncles":       types.EmptyUncleHash,
		"logsBloom":        types.Bloom{},
		"stateRoot":        types.EmptyRootHash,
		"transactionsRoot": types.EmptyTxsHash,
		"receiptsRoot":     types.EmptyReceiptsHash,
		"miner":            common.Address{},
		"difficulty":       (*hexutil.Big)(new(big.Int)),
		"totalDifficulty":  (*hexutil.Big)(new(big.Int)),
		"extraData":        hexutil.Bytes{},
		"size":             hexutil.Uint64(0),
		"gasLimit":         hexutil.Uint64(consts.EthBlockGasLimit),
		"gasUsed":          hexutil.Uint64(gasUsed),
		"timestamp":        hexutil.Uint64(block.BlockTimestamp.Uint64() / 1_000_000),
		"transactions":     txs,
		"uncles":           []common.Hash{},
	}
}

func (api *EthAPI) maxGasAmount(ethGas uint64) uint64 {
	if ethGas == 0 {
		return consts.DefaultMaxGasAmount
	}
	if ethGas > consts.DefaultMaxGasAmount {
		return consts.DefaultMaxGasAmount
	}
	return ethGas
}

func (api *EthAPI) gasUnitPrice(ethGasPrice *big.Int) uint64 {
	price := models.BaseUnitsFromWei(ethGasPrice, api.conf.ScalingFactor)
	if price == 0 {
		return consts.DefaultGasUnitPrice
	}
	return price
}
