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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"

	"github.com/NoirHQ/engine-sidecar/bridge"
	"github.com/NoirHQ/engine-sidecar/config"
	"github.com/NoirHQ/engine-sidecar/consts"
	"github.com/NoirHQ/engine-sidecar/server"
)

const shutdownGrace = 10 * time.Second

func main() {
	var (
		confPath string
		genkey   bool
		debug    bool
	)
	flag.StringVar(&confPath, "conf", "", "path of the yaml config file")
	flag.BoolVar(&genkey, "genkey", false, "generate a secp256k1 key pair and exit")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if genkey {
		if err := generateKey(); err != nil {
			log.Fatal("genkey failed: ", err)
		}
		return
	}

	conf, err := config.LoadConfig(confPath)
	if err != nil {
		log.Fatal("load config failed: ", err)
	}

	sidecar, err := server.NewSidecar(conf)
	if err != nil {
		log.Fatal("init failed: ", err)
	}
	if err := sidecar.Start(); err != nil {
		log.Fatal("start failed: ", err)
	}
	log.Info(consts.ClientIdentifier, " ", consts.Version, " started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := sidecar.Stop(ctx); err != nil {
		log.Error("shutdown: ", err)
	}
}

// generateKey prints a fresh key pair with both address forms.
func generateKey() error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	fmt.Println("private key :", hexutil.Encode(crypto.FromECDSA(key)))
	fmt.Println("eth address :", addr.Hex())
	fmt.Println("move address:", bridge.ToMoveAddress(addr).Hex())
	return nil
}
