package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/NoirHQ/engine-sidecar/config"
	"github.com/NoirHQ/engine-sidecar/models"
	"github.com/sirupsen/logrus"
)

// RemoteAdapter talks to an engine full node over its REST API.
type RemoteAdapter struct {
	endpoint string
	coinType string
	client   *http.Client
	backoff  Backoff
	logger   logrus.FieldLogger
}

func NewRemoteAdapter(conf config.EngineConfig) (*RemoteAdapter, error) {
	if _, err := url.Parse(conf.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid engine endpoint %q: %v", conf.Endpoint, err)
	}
	backoff := DefaultBackoff
	backoff.MaxAttempts = conf.MaxRetries
	return &RemoteAdapter{
		endpoint: strings.TrimRight(conf.Endpoint, "/"),
		coinType: conf.CoinType,
		client:   &http.Client{Timeout: conf.CallTimeout()},
		backoff:  backoff,
		logger:   logrus.WithField("L", "ENGINE"),
	}, nil
}

func (a *RemoteAdapter) CoinType() string { return a.coinType }

func (a *RemoteAdapter) LedgerInfo(ctx context.Context) (*models.LedgerInfo, error) {
	out := new(models.LedgerInfo)
	if err := a.call(ctx, http.MethodGet, "/", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *RemoteAdapter) Account(ctx context.Context, addr models.MoveAddress) (*models.MoveAccount, error) {
	out := new(models.MoveAccount)
	if err := a.call(ctx, http.MethodGet, "/accounts/"+addr.Hex(), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *RemoteAdapter) AccountBalance(ctx context.Context, addr models.MoveAddress) (uint64, error) {
	var out json.Number
	path := "/accounts/" + addr.Hex() + "/balance/" + url.PathEscape(a.coinType)
	if err := a.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	balance, err := strconv.ParseUint(out.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: balance %q: %v", models.ErrUpstream, out, err)
	}
	return balance, nil
}

func (a *RemoteAdapter) BlockByHeight(ctx context.Context, height uint64, withTransactions bool) (*models.MoveBlock, error) {
	out := new(models.MoveBlock)
	path := fmt.Sprintf("/blocks/by_height/%d?with_transactions=%t", height, withTransactions)
	if err := a.call(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *RemoteAdapter) BlockByVersion(ctx context.Context, version uint64, withTransactions bool) (*models.MoveBlock, error) {
	out := new(models.MoveBlock)
	path := fmt.Sprintf("/blocks/by_version/%d?with_transactions=%t", version, withTransactions)
	if err := a.call(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *RemoteAdapter) TransactionByHash(ctx context.Context, hash string) (*models.MoveTransaction, error) {
	out := new(models.MoveTransaction)
	if err := a.call(ctx, http.MethodGet, "/transactions/by_hash/"+hash, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *RemoteAdapter) EstimateGasPrice(ctx context.Context) (*models.GasEstimation, error) {
	out := new(models.GasEstimation)
	if err := a.call(ctx, http.MethodGet, "/estimate_gas_price", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *RemoteAdapter) SubmitTransaction(ctx context.Context, req *models.SubmitRequest) (*models.PendingTransaction, error) {
	out := new(models.PendingTransaction)
	if err := a.call(ctx, http.MethodPost, "/transactions", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *RemoteAdapter) SimulateTransaction(ctx context.Context, req *models.SubmitRequest) (*models.MoveTransaction, error) {
	// The simulation route returns the executed transaction in a
	// single-element array.
	var out []models.MoveTransaction
	if err := a.call(ctx, http.MethodPost, "/transactions/simulate", req, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty simulation response", models.ErrUpstream)
	}
	return &out[0], nil
}

// apiError is the engine node's error body.
type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// call performs one REST call with bounded retries. Transport failures and
// 5xx responses are retried; everything else is surfaced immediately.
func (a *RemoteAdapter) call(ctx context.Context, method, path string, body, out interface{}) error {
	return a.backoff.retry(ctx, func() error {
		err := a.once(ctx, method, path, body, out)
		if err != nil && retryable(err) {
			a.logger.Warnf("engine %s %s failed, will retry: %v", method, path, err)
		}
		return err
	})
}

func (a *RemoteAdapter) once(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", models.ErrSerialization, err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return &retryableError{fmt.Errorf("%w: %v", models.ErrUpstream, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", models.ErrUpstream, err)
		}
		return nil
	}

	msg := readAPIError(resp.Body)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", models.ErrNotFound, msg)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return &retryableError{fmt.Errorf("%w: status %d: %s", models.ErrUpstream, resp.StatusCode, msg)}
	default:
		// A well-formed 4xx is the chain refusing the request, not a
		// transport fault; retrying cannot succeed.
		return fmt.Errorf("%w: %s", models.ErrRejected, msg)
	}
}

func readAPIError(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "unreadable error body"
	}
	var apiErr apiError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
		if apiErr.ErrorCode != "" {
			return apiErr.ErrorCode + ": " + apiErr.Message
		}
		return apiErr.Message
	}
	return strings.TrimSpace(string(data))
}
