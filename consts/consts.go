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

package consts

const (
	Version          = "v0.2.0" // sidecar version
	ClientIdentifier = "engine-sidecar"

	// DefaultChainID is the chain id reported by eth_chainId and net_version
	// when the configuration does not override it.
	DefaultChainID uint64 = 0xdeadbeef

	// WeiPerBaseUnit is the fee/value conversion policy between the engine's
	// base currency unit and wei. The engine coin carries 8 decimals against
	// ether's 18; the chosen factor is a documented constant, not something
	// derived from either chain's precision, and is configurable per
	// deployment via engine.scaling_factor.
	WeiPerBaseUnit uint64 = 1_000_000_000_000

	// Engine-side fee model defaults applied when a submitted Ethereum
	// transaction carries values that do not survive unit conversion.
	DefaultGasUnitPrice uint64 = 100
	DefaultMaxGasAmount uint64 = 200_000

	// EthBlockGasLimit is reported in synthesized block headers. The engine
	// has no per-block gas ceiling in Ethereum units.
	EthBlockGasLimit uint64 = 30_000_000

	// Move identifiers of the execution entry points.
	CoinType      = "0x1::aptos_coin::AptosCoin"
	AuthFunction  = "0x100::evm::authenticate"
	EntryFunction = "0x100::evm::transact"
)
