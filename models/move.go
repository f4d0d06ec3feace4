package models

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MoveAddress is a 32-byte engine account identifier.
type MoveAddress [32]byte

func (a MoveAddress) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a MoveAddress) String() string {
	return a.Hex()
}

func (a MoveAddress) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText accepts both full 64-digit hex and the short forms the
// engine node emits for special addresses (e.g. "0x1").
func (a *MoveAddress) UnmarshalText(input []byte) error {
	s := strings.TrimPrefix(string(input), "0x")
	if len(s) > 64 {
		return fmt.Errorf("move address too long: %q", input)
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid move address %q: %v", input, err)
	}
	*a = MoveAddress{}
	copy(a[32-len(b):], b)
	return nil
}

// U64 is an unsigned 64-bit integer that the engine's REST API encodes as a
// decimal JSON string.
type U64 uint64

func (u U64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

func (u *U64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Some fields arrive as bare numbers from older nodes.
		var n uint64
		if err2 := json.Unmarshal(data, &n); err2 != nil {
			return err
		}
		*u = U64(n)
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*u = U64(n)
	return nil
}

func (u U64) Uint64() uint64 { return uint64(u) }

// LedgerInfo is the engine node's index response.
type LedgerInfo struct {
	ChainID             uint8  `json:"chain_id"`
	LedgerVersion       U64    `json:"ledger_version"`
	OldestLedgerVersion U64    `json:"oldest_ledger_version"`
	BlockHeight         U64    `json:"block_height"`
	OldestBlockHeight   U64    `json:"oldest_block_height"`
	LedgerTimestamp     U64    `json:"ledger_timestamp"`
	Epoch               U64    `json:"epoch"`
	NodeRole            string `json:"node_role"`
}

// MoveAccount is the on-chain account resource summary.
type MoveAccount struct {
	SequenceNumber    U64    `json:"sequence_number"`
	AuthenticationKey string `json:"authentication_key"`
}

// EntryFunctionPayload carries a Move entry function invocation. Arguments
// are hex strings of BCS-encoded values.
type EntryFunctionPayload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []string `json:"arguments"`
}

// AbstractionSignature authenticates a translated transaction through the
// engine's account abstraction function instead of an engine-native key.
type AbstractionSignature struct {
	Type     string `json:"type"`
	Function string `json:"function"`
}

// SubmitRequest is the JSON body posted to the engine's transaction
// submission and simulation routes.
type SubmitRequest struct {
	Sender                  MoveAddress           `json:"sender"`
	SequenceNumber          U64                   `json:"sequence_number"`
	MaxGasAmount            U64                   `json:"max_gas_amount"`
	GasUnitPrice            U64                   `json:"gas_unit_price"`
	ExpirationTimestampSecs U64                   `json:"expiration_timestamp_secs"`
	Payload                 *EntryFunctionPayload `json:"payload"`
	Signature               *AbstractionSignature `json:"signature,omitempty"`
}

// PendingTransaction is the engine's acknowledgement of an accepted
// submission; the transaction is not yet committed to the ledger.
type PendingTransaction struct {
	Hash           string      `json:"hash"`
	Sender         MoveAddress `json:"sender"`
	SequenceNumber U64         `json:"sequence_number"`
}

// MoveEvent is an event emitted during execution.
type MoveEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MoveTransaction is a transaction as reported by the engine's ledger; for
// committed transactions Version and block placement are meaningful, for
// simulation results only the execution outcome fields are.
type MoveTransaction struct {
	Type           string                `json:"type"`
	Version        U64                   `json:"version"`
	Hash           string                `json:"hash"`
	Success        bool                  `json:"success"`
	VMStatus       string                `json:"vm_status"`
	GasUsed        U64                   `json:"gas_used"`
	GasUnitPrice   U64                   `json:"gas_unit_price"`
	Sender         MoveAddress           `json:"sender"`
	SequenceNumber U64                   `json:"sequence_number"`
	Timestamp      U64                   `json:"timestamp"`
	Payload        *EntryFunctionPayload `json:"payload"`
	Events         []MoveEvent           `json:"events"`
}

// MoveBlock is a ledger block: a hash-identified range of ledger versions.
type MoveBlock struct {
	BlockHeight    U64               `json:"block_height"`
	BlockHash      string            `json:"block_hash"`
	BlockTimestamp U64               `json:"block_timestamp"` // microseconds
	FirstVersion   U64               `json:"first_version"`
	LastVersion    U64               `json:"last_version"`
	Transactions   []MoveTransaction `json:"transactions,omitempty"`
}

// GasEstimation is the engine's current gas unit price estimate.
type GasEstimation struct {
	GasEstimate              U64  `json:"gas_estimate"`
	DeprioritizedGasEstimate *U64 `json:"deprioritized_gas_estimate,omitempty"`
	PrioritizedGasEstimate   *U64 `json:"prioritized_gas_estimate,omitempty"`
}
