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
	"runtime"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/NoirHQ/engine-sidecar/consts"
)

// Web3API serves the web3_* namespace.
type Web3API struct{}

func NewWeb3API() *Web3API {
	return &Web3API{}
}

func (api *Web3API) ClientVersion() string {
	return consts.ClientIdentifier + "/" + consts.Version + "/" + runtime.GOOS + "-" + runtime.GOARCH + "/" + runtime.Version()
}

func (api *Web3API) Sha3(input hexutil.Bytes) hexutil.Bytes {
	return crypto.Keccak256(input)
}
