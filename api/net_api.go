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

import "strconv"

// NetAPI serves the net_* namespace.
type NetAPI struct {
	chainID uint64
}

func NewNetAPI(chainID uint64) *NetAPI {
	return &NetAPI{chainID: chainID}
}

// Version reports the chain id in decimal, matching eth_chainId in value.
func (api *NetAPI) Version() string {
	return strconv.FormatUint(api.chainID, 10)
}

func (api *NetAPI) Listening() bool {
	return true
}
