package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMoveAddressText(t *testing.T) {
	var addr MoveAddress
	require.NoError(t, addr.UnmarshalText([]byte("0x1")))
	require.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", addr.Hex())

	full := "0x00000000000000000000000071562b71999873db5b286df957af199ec94617f7"
	require.NoError(t, addr.UnmarshalText([]byte(full)))
	require.Equal(t, full, addr.Hex())

	out, err := addr.MarshalText()
	require.NoError(t, err)
	require.Equal(t, full, string(out))

	require.Error(t, addr.UnmarshalText([]byte("0xzz")))
	require.Error(t, addr.UnmarshalText([]byte(full+"00")))
}

func TestU64JSON(t *testing.T) {
	var u U64
	require.NoError(t, json.Unmarshal([]byte(`"18446744073709551615"`), &u))
	require.Equal(t, ^uint64(0), u.Uint64())

	// Bare number fallback.
	require.NoError(t, json.Unmarshal([]byte(`42`), &u))
	require.EqualValues(t, 42, u)

	require.Error(t, json.Unmarshal([]byte(`"not a number"`), &u))

	out, err := json.Marshal(U64(7))
	require.NoError(t, err)
	require.Equal(t, `"7"`, string(out))
}

func TestLedgerInfoDecoding(t *testing.T) {
	body := `{
		"chain_id": 4,
		"ledger_version": "191129",
		"oldest_ledger_version": "0",
		"block_height": "50217",
		"oldest_block_height": "8",
		"ledger_timestamp": "1679640611",
		"epoch": "2",
		"node_role": "full_node"
	}`
	var info LedgerInfo
	require.NoError(t, json.Unmarshal([]byte(body), &info))
	require.EqualValues(t, 4, info.ChainID)
	require.EqualValues(t, 50217, info.BlockHeight)
	require.EqualValues(t, 8, info.OldestBlockHeight)
	require.EqualValues(t, 191129, info.LedgerVersion)
}

func TestBlockNumberUnmarshal(t *testing.T) {
	var bn BlockNumber
	require.NoError(t, json.Unmarshal([]byte(`"latest"`), &bn))
	require.Equal(t, LatestBlockNumber, bn)
	require.NoError(t, json.Unmarshal([]byte(`"pending"`), &bn))
	require.Equal(t, PendingBlockNumber, bn)
	require.NoError(t, json.Unmarshal([]byte(`"earliest"`), &bn))
	require.Equal(t, EarliestBlockNumber, bn)
	require.NoError(t, json.Unmarshal([]byte(`"0x1b4"`), &bn))
	require.EqualValues(t, 436, bn)
	require.Error(t, json.Unmarshal([]byte(`"436"`), &bn))
}
