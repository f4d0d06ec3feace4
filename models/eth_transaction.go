package models

import (
	"fmt"
	"math/big"

	"github.com/aptos-labs/aptos-go-sdk/bcs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

const EntryFunctionPayloadType = "entry_function_payload"

// ETHTransaction is a decoded, signed Ethereum transaction on its way into
// the engine. Values are never mutated after decoding; every translation
// step produces a new value.
type ETHTransaction struct {
	inner *types.Transaction
	raw   []byte
}

// DecodeETHTransaction parses raw as a canonical signed transaction
// envelope (legacy RLP or EIP-2718 typed).
func DecodeETHTransaction(raw []byte) (*ETHTransaction, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	inner := new(types.Transaction)
	if err := inner.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &ETHTransaction{inner: inner, raw: cp}, nil
}

func (tx *ETHTransaction) Tx() *types.Transaction { return tx.inner }

// Raw returns the canonical encoding the transaction was decoded from.
func (tx *ETHTransaction) Raw() []byte { return tx.raw }

func (tx *ETHTransaction) Hash() common.Hash { return tx.inner.Hash() }

// Sender recovers the signing address under chainID. Replay-protected
// transactions for a different chain fail here, as do signatures whose
// values fall outside the curve order.
func (tx *ETHTransaction) Sender(chainID *big.Int) (common.Address, error) {
	signer := types.LatestSignerForChainID(chainID)
	from, err := types.Sender(signer, tx.inner)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return from, nil
}

// MovePayload encodes the verified transaction as an entry function
// invocation: the recovered sender's engine address and the untouched
// canonical bytes, both BCS-encoded.
func (tx *ETHTransaction) MovePayload(sender MoveAddress, entryFunc string) (*EntryFunctionPayload, error) {
	senderArg, err := bcs.SerializeSingle(func(ser *bcs.Serializer) {
		ser.FixedBytes(sender[:])
	})
	if err != nil {
		return nil, fmt.Errorf("%w: sender: %v", ErrSerialization, err)
	}
	txArg, err := bcs.SerializeBytes(tx.raw)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction: %v", ErrSerialization, err)
	}
	return &EntryFunctionPayload{
		Type:          EntryFunctionPayloadType,
		Function:      entryFunc,
		TypeArguments: []string{},
		Arguments:     []string{hexutil.Encode(senderArg), hexutil.Encode(txArg)},
	}, nil
}

// DecodeMovePayload is the inverse of MovePayload: it recovers the original
// signed Ethereum transaction from a committed entry function payload. The
// payload comes from the engine, so structural violations are upstream
// contract violations, not caller errors.
func DecodeMovePayload(p *EntryFunctionPayload) (*ETHTransaction, error) {
	if p == nil || p.Type != EntryFunctionPayloadType || len(p.Arguments) != 2 {
		return nil, fmt.Errorf("%w: unexpected payload shape", ErrUpstream)
	}
	arg, err := hexutil.Decode(p.Arguments[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload argument: %v", ErrUpstream, err)
	}
	des := bcs.NewDeserializer(arg)
	raw := des.ReadBytes()
	if err := des.Error(); err != nil {
		return nil, fmt.Errorf("%w: payload argument: %v", ErrUpstream, err)
	}
	tx, err := DecodeETHTransaction(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: embedded transaction: %v", ErrUpstream, err)
	}
	return tx, nil
}

// NewSubmitRequest assembles the submission body around a translated
// payload under the engine's fee model.
func NewSubmitRequest(sender MoveAddress, seq, maxGas, gasUnitPrice, expirySecs uint64,
	payload *EntryFunctionPayload, authFunc string) *SubmitRequest {
	return &SubmitRequest{
		Sender:                  sender,
		SequenceNumber:          U64(seq),
		MaxGasAmount:            U64(maxGas),
		GasUnitPrice:            U64(gasUnitPrice),
		ExpirationTimestampSecs: U64(expirySecs),
		Payload:                 payload,
		Signature: &AbstractionSignature{
			Type:     "abstraction_signature",
			Function: authFunc,
		},
	}
}
