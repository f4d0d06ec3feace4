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
	"context"
	"encoding/json"
	"errors"

	"github.com/NoirHQ/engine-sidecar/models"
)

const vsn = "2.0"

// JSON-RPC standard codes plus the reserved application range for
// translation failures.
const (
	ParseErrorCode     = -32700
	InvalidRequestCode = -32600
	MethodNotFoundCode = -32601
	InvalidParamsCode  = -32602
	InternalErrorCode  = -32603

	DecodeErrorCode         = -32000
	SignatureErrorCode      = -32001
	AddressMappingErrorCode = -32002
	SerializationErrorCode  = -32003
	UpstreamErrorCode       = -32010
	RejectedErrorCode       = -32011
)

type jsonError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *jsonError) Error() string { return e.Message }

type jsonrpcMessage struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonError      `json:"error,omitempty"`
}

func (msg *jsonrpcMessage) isNotification() bool {
	return len(msg.ID) == 0
}

func (msg *jsonrpcMessage) errorResponse(code int, message string) *jsonrpcMessage {
	resp := &jsonrpcMessage{Version: vsn, Error: &jsonError{Code: code, Message: message}}
	if msg != nil {
		resp.ID = msg.ID
	}
	return resp
}

func (msg *jsonrpcMessage) response(result interface{}) *jsonrpcMessage {
	enc, err := json.Marshal(result)
	if err != nil {
		return msg.errorResponse(InternalErrorCode, "result marshaling failed")
	}
	return &jsonrpcMessage{Version: vsn, ID: msg.ID, Result: enc}
}

// HandlerFunc is a registered method implementation. Params arrive
// positionally, already split but not yet decoded.
type HandlerFunc func(ctx context.Context, params []json.RawMessage) (interface{}, error)

// Method declares one entry of the closed dispatch registry.
type Method struct {
	Name      string
	MinParams int
	MaxParams int
	Handler   HandlerFunc
}

// InvalidParamsError reports a params shape or value problem detected
// inside a handler; the dispatcher maps it to -32602.
type InvalidParamsError struct {
	Message string
}

func (e *InvalidParamsError) Error() string { return e.Message }

// ErrInvalidParams builds an InvalidParamsError with the given message.
func ErrInvalidParams(msg string) error { return &InvalidParamsError{Message: msg} }

// errorCode maps a handler failure onto the wire code table.
func errorCode(err error) int {
	var invalid *InvalidParamsError
	switch {
	case errors.As(err, &invalid):
		return InvalidParamsCode
	case errors.Is(err, models.ErrDecode):
		return DecodeErrorCode
	case errors.Is(err, models.ErrSignature):
		return SignatureErrorCode
	case errors.Is(err, models.ErrAddressMapping):
		return AddressMappingErrorCode
	case errors.Is(err, models.ErrSerialization):
		return SerializationErrorCode
	case errors.Is(err, models.ErrUpstream):
		return UpstreamErrorCode
	case errors.Is(err, models.ErrRejected):
		return RejectedErrorCode
	default:
		return InternalErrorCode
	}
}
