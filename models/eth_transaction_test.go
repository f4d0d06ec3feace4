package models

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var testChainID = new(big.Int).SetUint64(0xdeadbeef)

func signedLegacyTx(t *testing.T) (*types.Transaction, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	to := common.HexToAddress("0x95222290DD7278Aa3Ddd389Cc1E1d165CC4BAfe5")
	tx, err := types.SignNewTx(key, types.LatestSignerForChainID(testChainID), &types.LegacyTx{
		Nonce:    7,
		GasPrice: big.NewInt(2_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1),
	})
	require.NoError(t, err)
	return tx, crypto.PubkeyToAddress(key.PublicKey)
}

func TestDecodeAndRecoverLegacy(t *testing.T) {
	signed, from := signedLegacyTx(t)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)

	tx, err := DecodeETHTransaction(raw)
	require.NoError(t, err)
	require.Equal(t, signed.Hash(), tx.Hash())
	require.Equal(t, raw, tx.Raw())

	got, err := tx.Sender(testChainID)
	require.NoError(t, err)
	require.Equal(t, from, got)
}

// Golden vector from EIP-155: nonce 9, 20 gwei gas price, 21000 gas, 1
// ether to 0x3535...35, signed for chain 1 with the private key 0x4646...46.
// Recovery must land on the same address in any process.
func TestRecoverGoldenVector(t *testing.T) {
	raw := hexutil.MustDecode("0xf86c098504a817c800825208943535353535353535353535353535353535353535880de0b6b3a76400008025a028ef61340bd939bc2195fe537567866003e1a15d3c71ff63e1590620aa636276a067cbe9d8997f761aecb703304b3800ccf555c9f3dc64214b297fb1966a3b6d83")
	want := common.HexToAddress("0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F")

	tx, err := DecodeETHTransaction(raw)
	require.NoError(t, err)
	require.EqualValues(t, 9, tx.Tx().Nonce())
	require.EqualValues(t, 21000, tx.Tx().Gas())
	require.Equal(t, common.HexToAddress("0x3535353535353535353535353535353535353535"), *tx.Tx().To())
	require.Zero(t, tx.Tx().Value().Cmp(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)))
	require.Equal(t, raw, tx.Raw())

	for i := 0; i < 3; i++ {
		got, err := tx.Sender(big.NewInt(1))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestDecodeAndRecoverDynamicFee(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	to := common.HexToAddress("0x01")
	signed, err := types.SignNewTx(key, types.LatestSignerForChainID(testChainID), &types.DynamicFeeTx{
		ChainID:   testChainID,
		Nonce:     0,
		GasTipCap: big.NewInt(1_000_000_000),
		GasFeeCap: big.NewInt(3_000_000_000),
		Gas:       40000,
		To:        &to,
		Value:     big.NewInt(5),
		Data:      []byte{0xca, 0xfe},
	})
	require.NoError(t, err)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)

	tx, err := DecodeETHTransaction(raw)
	require.NoError(t, err)
	require.EqualValues(t, types.DynamicFeeTxType, tx.Tx().Type())

	got, err := tx.Sender(testChainID)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), got)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeETHTransaction(nil)
	require.ErrorIs(t, err, ErrDecode)

	_, err = DecodeETHTransaction([]byte{0x01, 0x02, 0x03})
	require.ErrorIs(t, err, ErrDecode)

	signed, _ := signedLegacyTx(t)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)
	_, err = DecodeETHTransaction(raw[:len(raw)/2])
	require.ErrorIs(t, err, ErrDecode)
}

func TestSenderRejectsWrongChain(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	to := common.HexToAddress("0x01")
	signed, err := types.SignNewTx(key, types.LatestSignerForChainID(big.NewInt(1)), &types.LegacyTx{
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(0),
	})
	require.NoError(t, err)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)

	tx, err := DecodeETHTransaction(raw)
	require.NoError(t, err)
	_, err = tx.Sender(testChainID)
	require.ErrorIs(t, err, ErrSignature)
}

func TestSenderRejectsOutOfRangeSignature(t *testing.T) {
	to := common.HexToAddress("0x01")
	curveOrder := crypto.S256().Params().N
	forged := types.NewTx(&types.LegacyTx{
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(0),
		V:        big.NewInt(27),
		R:        new(big.Int).Set(curveOrder),
		S:        big.NewInt(1),
	})
	raw, err := forged.MarshalBinary()
	require.NoError(t, err)

	tx, err := DecodeETHTransaction(raw)
	require.NoError(t, err)
	_, err = tx.Sender(testChainID)
	require.ErrorIs(t, err, ErrSignature)
}

func TestMovePayloadLayout(t *testing.T) {
	signed, from := signedLegacyTx(t)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)
	require.Less(t, len(raw), 128, "single length byte expected below")

	var sender MoveAddress
	copy(sender[12:], from[:])

	tx, err := DecodeETHTransaction(raw)
	require.NoError(t, err)
	payload, err := tx.MovePayload(sender, "0x100::evm::transact")
	require.NoError(t, err)

	require.Equal(t, EntryFunctionPayloadType, payload.Type)
	require.Equal(t, "0x100::evm::transact", payload.Function)
	require.Empty(t, payload.TypeArguments)
	require.Len(t, payload.Arguments, 2)

	// Argument 0: the sender address as 32 raw bytes.
	require.Equal(t, hexutil.Encode(sender[:]), payload.Arguments[0])
	// Argument 1: the canonical bytes behind a ULEB128 length prefix.
	require.Equal(t, hexutil.Encode(append([]byte{byte(len(raw))}, raw...)), payload.Arguments[1])
}

func TestMovePayloadRoundTrip(t *testing.T) {
	signed, from := signedLegacyTx(t)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)

	var sender MoveAddress
	copy(sender[12:], from[:])

	tx, err := DecodeETHTransaction(raw)
	require.NoError(t, err)
	payload, err := tx.MovePayload(sender, "0x100::evm::transact")
	require.NoError(t, err)

	back, err := DecodeMovePayload(payload)
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), back.Hash())
	require.Equal(t, raw, back.Raw())
}

func TestDecodeMovePayloadRejectsBadShape(t *testing.T) {
	_, err := DecodeMovePayload(nil)
	require.ErrorIs(t, err, ErrUpstream)

	_, err = DecodeMovePayload(&EntryFunctionPayload{Type: "script_payload"})
	require.ErrorIs(t, err, ErrUpstream)

	_, err = DecodeMovePayload(&EntryFunctionPayload{
		Type:      EntryFunctionPayloadType,
		Arguments: []string{"0x00", "not-hex"},
	})
	require.ErrorIs(t, err, ErrUpstream)
}

func TestNewSubmitRequestShape(t *testing.T) {
	var sender MoveAddress
	sender[31] = 0x42
	payload := &EntryFunctionPayload{Type: EntryFunctionPayloadType}

	req := NewSubmitRequest(sender, 9, 200_000, 100, 1_700_000_000, payload, "0x100::evm::authenticate")
	require.Equal(t, sender, req.Sender)
	require.EqualValues(t, 9, req.SequenceNumber)
	require.EqualValues(t, 200_000, req.MaxGasAmount)
	require.EqualValues(t, 100, req.GasUnitPrice)
	require.Same(t, payload, req.Payload)
	require.NotNil(t, req.Signature)
	require.Equal(t, "0x100::evm::authenticate", req.Signature.Function)
}
