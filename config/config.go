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

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/NoirHQ/engine-sidecar/consts"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

type ServerConfig struct {
	Host           string   `yaml:"host"`           // listen address, default 127.0.0.1
	Port           uint16   `yaml:"port"`           // listen port, default 8545
	RequestTimeout uint64   `yaml:"requestTimeout"` // per request timeout in seconds, default 90
	Cors           []string `yaml:"cors"`           // allowed CORS origins, empty means any
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c ServerConfig) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

type EngineConfig struct {
	Endpoint      string `yaml:"endpoint"`      // engine node REST endpoint, default http://127.0.0.1:8080/v1
	Timeout       uint64 `yaml:"timeout"`       // per call timeout in seconds, default 10
	ChainID       uint64 `yaml:"chainid"`       // chain id exposed on the Ethereum side
	CoinType      string `yaml:"coinType"`      // Move coin type used for balances
	AuthFunc      string `yaml:"authFunc"`      // account abstraction authenticator function
	EntryFunc     string `yaml:"entryFunc"`     // entry function receiving translated transactions
	ScalingFactor uint64 `yaml:"scalingFactor"` // wei per engine base unit
	MaxRetries    int    `yaml:"maxRetries"`    // retry bound for engine calls, default 3
}

func (c EngineConfig) CallTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	Engine EngineConfig `yaml:"engine"`
}

// LoadConfig reads the yaml configuration at path. An empty path yields the
// built-in defaults.
func LoadConfig(path string) (*Config, error) {
	config := new(Config)
	if path != "" {
		contents, err := os.ReadFile(path)
		if err != nil {
			log.Error("reading config ", path, " error: ", err)
			return nil, err
		}
		if err := yaml.Unmarshal(contents, config); err != nil {
			log.Error("unmarshal config ", path, " error: ", err)
			return nil, err
		}
	}
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8545
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 90
	}
	if c.Engine.Endpoint == "" {
		c.Engine.Endpoint = "http://127.0.0.1:8080/v1"
	}
	if c.Engine.Timeout == 0 {
		c.Engine.Timeout = 10
	}
	if c.Engine.ChainID == 0 {
		c.Engine.ChainID = consts.DefaultChainID
	}
	if c.Engine.CoinType == "" {
		c.Engine.CoinType = consts.CoinType
	}
	if c.Engine.AuthFunc == "" {
		c.Engine.AuthFunc = consts.AuthFunction
	}
	if c.Engine.EntryFunc == "" {
		c.Engine.EntryFunc = consts.EntryFunction
	}
	if c.Engine.ScalingFactor == 0 {
		c.Engine.ScalingFactor = consts.WeiPerBaseUnit
	}
	if c.Engine.MaxRetries == 0 {
		c.Engine.MaxRetries = 3
	}
}

func (c *Config) validate() error {
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine.maxRetries must not be negative: %d", c.Engine.MaxRetries)
	}
	return nil
}
