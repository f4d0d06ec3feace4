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

// Package server assembles the sidecar: configuration, the engine adapter,
// the method handlers and the RPC front end.
package server

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/NoirHQ/engine-sidecar/api"
	"github.com/NoirHQ/engine-sidecar/bridge"
	"github.com/NoirHQ/engine-sidecar/config"
	"github.com/NoirHQ/engine-sidecar/engine"
	"github.com/NoirHQ/engine-sidecar/rpcserver"
)

// Sidecar is the assembled service. The method registry is built once
// during construction and closed before the server starts listening.
type Sidecar struct {
	conf   *config.Config
	rpc    *rpcserver.Server
	logger logrus.FieldLogger
}

func NewSidecar(conf *config.Config) (*Sidecar, error) {
	adapter, err := engine.NewRemoteAdapter(conf.Engine)
	if err != nil {
		return nil, err
	}
	eth := api.NewEthAPI(adapter, bridge.New(), conf.Engine)
	rpc := rpcserver.NewServer(conf.Server)
	if err := rpc.Register(api.Routes(eth, api.NewNetAPI(conf.Engine.ChainID), api.NewWeb3API())...); err != nil {
		return nil, err
	}
	return &Sidecar{
		conf:   conf,
		rpc:    rpc,
		logger: logrus.WithField("L", "Sidecar"),
	}, nil
}

func (s *Sidecar) Start() error {
	s.logger.WithFields(logrus.Fields{
		"rpc":    s.conf.Server.Addr(),
		"engine": s.conf.Engine.Endpoint,
	}).Info("starting")
	return s.rpc.Start()
}

// Stop drains in-flight requests until ctx expires.
func (s *Sidecar) Stop(ctx context.Context) error {
	s.logger.Info("stopping")
	return s.rpc.Stop(ctx)
}
