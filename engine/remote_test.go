package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NoirHQ/engine-sidecar/config"
	"github.com/NoirHQ/engine-sidecar/models"
)

func testAdapter(t *testing.T, url string) *RemoteAdapter {
	t.Helper()
	a, err := NewRemoteAdapter(config.EngineConfig{
		Endpoint:   url,
		Timeout:    5,
		CoinType:   "0x1::aptos_coin::AptosCoin",
		MaxRetries: 3,
	})
	require.NoError(t, err)
	a.backoff = Backoff{Base: time.Millisecond, Max: 2 * time.Millisecond, MaxAttempts: 3}
	return a
}

func TestLedgerInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/", r.URL.Path)
		w.Write([]byte(`{"chain_id":4,"block_height":"1234","oldest_block_height":"0","ledger_version":"5000"}`))
	}))
	defer srv.Close()

	info, err := testAdapter(t, srv.URL).LedgerInfo(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1234, info.BlockHeight)
	require.EqualValues(t, 4, info.ChainID)
}

func TestAccountBalanceRoute(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`1000000`))
	}))
	defer srv.Close()

	var addr models.MoveAddress
	addr[31] = 0x42
	balance, err := testAdapter(t, srv.URL).AccountBalance(context.Background(), addr)
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000, balance)
	require.Equal(t, "/accounts/"+addr.Hex()+"/balance/0x1::aptos_coin::AptosCoin", gotPath)
}

func TestNotFoundIsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"account not found","error_code":"account_not_found"}`))
	}))
	defer srv.Close()

	_, err := testAdapter(t, srv.URL).Account(context.Background(), models.MoveAddress{})
	require.ErrorIs(t, err, models.ErrNotFound)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls), "404 must not be retried")
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"gas_estimate":"100"}`))
	}))
	defer srv.Close()

	est, err := testAdapter(t, srv.URL).EstimateGasPrice(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 100, est.GasEstimate)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRetriesExhaust(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testAdapter(t, srv.URL).LedgerInfo(context.Background())
	require.ErrorIs(t, err, models.ErrUpstream)
	require.EqualValues(t, 4, atomic.LoadInt32(&calls))
}

func TestRejectionIsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"SEQUENCE_NUMBER_TOO_OLD","error_code":"vm_error"}`))
	}))
	defer srv.Close()

	_, err := testAdapter(t, srv.URL).SubmitTransaction(context.Background(), &models.SubmitRequest{})
	require.ErrorIs(t, err, models.ErrRejected)
	require.Contains(t, err.Error(), "SEQUENCE_NUMBER_TOO_OLD")
	require.EqualValues(t, 1, atomic.LoadInt32(&calls), "chain rejections must not be retried")
}

func TestSubmitBody(t *testing.T) {
	var got models.SubmitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transactions", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"hash":"0xabc","sequence_number":"5"}`))
	}))
	defer srv.Close()

	var sender models.MoveAddress
	sender[31] = 0x07
	req := models.NewSubmitRequest(sender, 5, 200_000, 100, 1_700_000_000,
		&models.EntryFunctionPayload{Type: "entry_function_payload", Function: "0x100::evm::transact"},
		"0x100::evm::authenticate")

	pending, err := testAdapter(t, srv.URL).SubmitTransaction(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "0xabc", pending.Hash)
	require.Equal(t, sender, got.Sender)
	require.EqualValues(t, 5, got.SequenceNumber)
	require.Equal(t, "0x100::evm::authenticate", got.Signature.Function)
}

func TestSimulateUnwrapsArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions/simulate", r.URL.Path)
		w.Write([]byte(`[{"success":true,"gas_used":"1500","gas_unit_price":"100","vm_status":"Executed successfully"}]`))
	}))
	defer srv.Close()

	sim, err := testAdapter(t, srv.URL).SimulateTransaction(context.Background(), &models.SubmitRequest{})
	require.NoError(t, err)
	require.True(t, sim.Success)
	require.EqualValues(t, 1500, sim.GasUsed)
}
