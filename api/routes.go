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

package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/NoirHQ/engine-sidecar/models"
	"github.com/NoirHQ/engine-sidecar/rpcserver"
)

// Routes enumerates every exposed method. The set is fixed here; nothing is
// discovered at runtime and nothing outside this table is callable.
func Routes(eth *EthAPI, netAPI *NetAPI, web3 *Web3API) []rpcserver.Method {
	return []rpcserver.Method{
		{Name: "eth_chainId", MinParams: 0, MaxParams: 0,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				return eth.ChainId(), nil
			}},
		{Name: "eth_blockNumber", MinParams: 0, MaxParams: 0,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				return eth.BlockNumber(ctx)
			}},
		{Name: "eth_syncing", MinParams: 0, MaxParams: 0,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				return eth.Syncing(ctx)
			}},
		{Name: "eth_gasPrice", MinParams: 0, MaxParams: 0,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				return eth.GasPrice(ctx)
			}},
		{Name: "eth_getBalance", MinParams: 1, MaxParams: 2,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				var address common.Address
				if err := decodeParam(params[0], &address, "address"); err != nil {
					return nil, err
				}
				block, err := blockArg(params, 1)
				if err != nil {
					return nil, err
				}
				return eth.GetBalance(ctx, address, block)
			}},
		{Name: "eth_getTransactionCount", MinParams: 1, MaxParams: 2,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				var address common.Address
				if err := decodeParam(params[0], &address, "address"); err != nil {
					return nil, err
				}
				block, err := blockArg(params, 1)
				if err != nil {
					return nil, err
				}
				return eth.GetTransactionCount(ctx, address, block)
			}},
		{Name: "eth_getBlockByNumber", MinParams: 1, MaxParams: 2,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				var number models.BlockNumber
				if err := decodeParam(params[0], &number, "block number"); err != nil {
					return nil, err
				}
				fullTx, err := fullTxArg(params, 1)
				if err != nil {
					return nil, err
				}
				return eth.GetBlockByNumber(ctx, number, fullTx)
			}},
		{Name: "eth_getBlockByHash", MinParams: 1, MaxParams: 2,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				var hash common.Hash
				if err := decodeParam(params[0], &hash, "block hash"); err != nil {
					return nil, err
				}
				fullTx, err := fullTxArg(params, 1)
				if err != nil {
					return nil, err
				}
				return eth.GetBlockByHash(ctx, hash, fullTx)
			}},
		{Name: "eth_getTransactionByHash", MinParams: 1, MaxParams: 1,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				var hash common.Hash
				if err := decodeParam(params[0], &hash, "transaction hash"); err != nil {
					return nil, err
				}
				return eth.GetTransactionByHash(ctx, hash)
			}},
		{Name: "eth_getTransactionReceipt", MinParams: 1, MaxParams: 1,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				var hash common.Hash
				if err := decodeParam(params[0], &hash, "transaction hash"); err != nil {
					return nil, err
				}
				return eth.GetTransactionReceipt(ctx, hash)
			}},
		{Name: "eth_sendRawTransaction", MinParams: 1, MaxParams: 1,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				var input hexutil.Bytes
				if err := decodeParam(params[0], &input, "transaction data"); err != nil {
					return nil, err
				}
				return eth.SendRawTransaction(ctx, input)
			}},
		{Name: "eth_call", MinParams: 1, MaxParams: 2,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				var args models.TransactionArgs
				if err := decodeParam(params[0], &args, "call args"); err != nil {
					return nil, err
				}
				block, err := blockArg(params, 1)
				if err != nil {
					return nil, err
				}
				return eth.Call(ctx, args, &block)
			}},
		{Name: "eth_estimateGas", MinParams: 1, MaxParams: 2,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				var args models.TransactionArgs
				if err := decodeParam(params[0], &args, "call args"); err != nil {
					return nil, err
				}
				block, err := blockArg(params, 1)
				if err != nil {
					return nil, err
				}
				return eth.EstimateGas(ctx, args, &block)
			}},
		{Name: "net_version", MinParams: 0, MaxParams: 0,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				return netAPI.Version(), nil
			}},
		{Name: "net_listening", MinParams: 0, MaxParams: 0,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				return netAPI.Listening(), nil
			}},
		{Name: "web3_clientVersion", MinParams: 0, MaxParams: 0,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				return web3.ClientVersion(), nil
			}},
		{Name: "web3_sha3", MinParams: 1, MaxParams: 1,
			Handler: func(ctx context.Context, params []json.RawMessage) (interface{}, error) {
				var input hexutil.Bytes
				if err := decodeParam(params[0], &input, "data"); err != nil {
					return nil, err
				}
				return web3.Sha3(input), nil
			}},
	}
}

func decodeParam(raw json.RawMessage, v interface{}, name string) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return rpcserver.ErrInvalidParams(fmt.Sprintf("invalid %s: %v", name, err))
	}
	return nil
}

// blockArg reads the optional trailing block selector, defaulting to latest.
func blockArg(params []json.RawMessage, i int) (models.BlockNumberOrHash, error) {
	latest := models.LatestBlockNumber
	bnh := models.BlockNumberOrHash{BlockNumber: &latest}
	if len(params) > i {
		if err := json.Unmarshal(params[i], &bnh); err != nil {
			return bnh, rpcserver.ErrInvalidParams(fmt.Sprintf("invalid block selector: %v", err))
		}
	}
	return bnh, nil
}

func fullTxArg(params []json.RawMessage, i int) (bool, error) {
	if len(params) <= i {
		return false, nil
	}
	var fullTx bool
	if err := json.Unmarshal(params[i], &fullTx); err != nil {
		return false, rpcserver.ErrInvalidParams(fmt.Sprintf("invalid full transactions flag: %v", err))
	}
	return fullTx, nil
}
