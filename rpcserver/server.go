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

package rpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/NoirHQ/engine-sidecar/config"
)

const maxRequestSize = 5 * 1024 * 1024

// Server dispatches JSON-RPC 2.0 requests over HTTP POST and WebSocket
// to a registry fixed at startup. Registration after Start is rejected.
type Server struct {
	conf     config.ServerConfig
	methods  map[string]Method
	httpSrv  *http.Server
	listener net.Listener
	upgrader websocket.Upgrader
	running  int32
	logger   logrus.FieldLogger
}

func NewServer(conf config.ServerConfig) *Server {
	return &Server{
		conf:    conf,
		methods: make(map[string]Method),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logrus.WithField("L", "RPCServer"),
	}
}

// Register adds methods to the dispatch table. Duplicate names and
// registration on a started server are errors.
func (s *Server) Register(methods ...Method) error {
	if atomic.LoadInt32(&s.running) == 1 {
		return fmt.Errorf("rpcserver: registry is closed after start")
	}
	for _, m := range methods {
		if m.Handler == nil {
			return fmt.Errorf("rpcserver: method %s has no handler", m.Name)
		}
		if _, ok := s.methods[m.Name]; ok {
			return fmt.Errorf("rpcserver: duplicate method %s", m.Name)
		}
		s.methods[m.Name] = m
	}
	return nil
}

func (s *Server) Start() error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return fmt.Errorf("rpcserver: already started")
	}
	l, err := net.Listen("tcp", s.conf.Addr())
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		return fmt.Errorf("rpcserver: listen on %s: %w", s.conf.Addr(), err)
	}
	s.listener = l

	var handler http.Handler = s
	if len(s.conf.Cors) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: s.conf.Cors,
			AllowedMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		})
		handler = c.Handler(s)
	}
	s.httpSrv = &http.Server{Handler: handler}

	go func() {
		if err := s.httpSrv.Serve(l); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("serve: %v", err)
		}
	}()
	s.logger.Infof("listening on %s", s.conf.Addr())
	return nil
}

// Stop shuts the listener down and waits for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.serveWS(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.conf.Timeout())
	defer cancel()

	answer := s.handlePayload(ctx, body)
	w.Header().Set("Content-Type", "application/json")
	if answer == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := json.NewEncoder(w).Encode(answer); err != nil {
		s.logger.Errorf("write response: %v", err)
	}
}

// handlePayload parses a request body into single or batch form and
// dispatches each call. A nil return means only notifications arrived.
func (s *Server) handlePayload(ctx context.Context, data []byte) interface{} {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return (&jsonrpcMessage{}).errorResponse(ParseErrorCode, "empty request")
	}
	if trimmed[0] == '[' {
		var batch []jsonrpcMessage
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return (&jsonrpcMessage{}).errorResponse(ParseErrorCode, "invalid batch")
		}
		if len(batch) == 0 {
			return (&jsonrpcMessage{}).errorResponse(InvalidParamsCode, "empty batch")
		}
		answers := make([]*jsonrpcMessage, 0, len(batch))
		for i := range batch {
			if resp := s.handleMsg(ctx, &batch[i]); resp != nil {
				answers = append(answers, resp)
			}
		}
		if len(answers) == 0 {
			return nil
		}
		return answers
	}
	var msg jsonrpcMessage
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return (&jsonrpcMessage{}).errorResponse(ParseErrorCode, "invalid request")
	}
	return s.handleMsg(ctx, &msg)
}

func (s *Server) handleMsg(ctx context.Context, msg *jsonrpcMessage) *jsonrpcMessage {
	if msg.Version != vsn || msg.Method == "" {
		return msg.errorResponse(InvalidRequestCode, "not a jsonrpc 2.0 request")
	}
	method, ok := s.methods[msg.Method]
	if !ok {
		if msg.isNotification() {
			return nil
		}
		return msg.errorResponse(MethodNotFoundCode, fmt.Sprintf("the method %s does not exist/is not available", msg.Method))
	}

	params, err := parsePositional(msg.Params)
	if err != nil {
		return msg.errorResponse(InvalidParamsCode, err.Error())
	}
	if len(params) < method.MinParams || len(params) > method.MaxParams {
		return msg.errorResponse(InvalidParamsCode,
			fmt.Sprintf("%s: expected %d to %d params, got %d", msg.Method, method.MinParams, method.MaxParams, len(params)))
	}

	result, err := method.Handler(ctx, params)
	if err != nil {
		s.logger.WithField("method", msg.Method).Debugf("handler failed: %v", err)
		if msg.isNotification() {
			return nil
		}
		return msg.errorResponse(errorCode(err), err.Error())
	}
	if msg.isNotification() {
		return nil
	}
	return msg.response(result)
}

func parsePositional(raw json.RawMessage) ([]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var params []json.RawMessage
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("params must be a positional array")
	}
	return params, nil
}

// serveWS runs the message loop of one WebSocket connection. Requests
// on a connection are handled concurrently; writes are serialized.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debugf("ws upgrade: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestSize)

	var wmu sync.Mutex
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		wg.Add(1)
		go func(data []byte) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(r.Context(), s.conf.Timeout())
			defer cancel()
			answer := s.handlePayload(ctx, data)
			if answer == nil {
				return
			}
			enc, err := json.Marshal(answer)
			if err != nil {
				return
			}
			wmu.Lock()
			defer wmu.Unlock()
			_ = conn.WriteMessage(websocket.TextMessage, enc)
		}(data)
	}
}
