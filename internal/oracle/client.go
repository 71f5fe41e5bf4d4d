// Package oracle looks up Hedera accounts and balances through a mirror
// node's REST API. All workers share one client: its rate limiter is the
// global throttle for the run, and transient failures are retried with
// bounded exponential backoff before being deferred.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrDeferred marks a lookup abandoned after the retry budget ran out. The
// candidate-method pair is recorded for a later pass instead of failing the
// run.
var ErrDeferred = errors.New("oracle: lookup deferred after retries")

// Account is one Hedera account attached to a public key.
type Account struct {
	AccountID string
	Balance   int64
}

// Client is a mirror node REST client.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	retries uint64
	log     *logrus.Logger
}

// NewClient builds a client against baseURL (".../api/v1"). perSec and
// burst shape the shared rate limit; retries bounds backoff attempts per
// lookup.
func NewClient(baseURL string, perSec float64, burst int, retries uint64, timeout time.Duration, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if burst < 1 {
		burst = 1
	}
	return &Client{
		base:    baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		retries: retries,
		log:     log,
	}
}

type accountPayload struct {
	Account string `json:"account"`
	Balance struct {
		Balance int64 `json:"balance"`
	} `json:"balance"`
}

type accountsResponse struct {
	Accounts []accountPayload `json:"accounts"`
}

// AccountsByPublicKey returns every account whose key matches keyHex,
// with balances in tinybars. An unknown key yields an empty slice.
func (c *Client) AccountsByPublicKey(ctx context.Context, keyHex string) ([]Account, error) {
	body, err := c.get(ctx, "/accounts?account.publickey="+keyHex)
	if err != nil {
		return nil, err
	}
	var payload accountsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("oracle: malformed accounts response: %w", err)
	}
	accounts := make([]Account, 0, len(payload.Accounts))
	for _, a := range payload.Accounts {
		if a.Account == "" {
			return nil, fmt.Errorf("oracle: accounts response entry missing account id")
		}
		accounts = append(accounts, Account{AccountID: a.Account, Balance: a.Balance.Balance})
	}
	return accounts, nil
}

// AccountBalance returns the tinybar balance of accountID. A missing
// account reads as zero.
func (c *Client) AccountBalance(ctx context.Context, accountID string) (int64, error) {
	body, err := c.get(ctx, "/accounts/"+accountID)
	if err != nil {
		return 0, err
	}
	var payload accountPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("oracle: malformed account response: %w", err)
	}
	return payload.Balance.Balance, nil
}

// transientError marks outcomes worth retrying: 429, 5xx, and transport
// errors. Everything else aborts the backoff loop immediately.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// get performs one rate-limited request with bounded retries. Once the
// retry budget is spent on transient failures the error wraps ErrDeferred;
// malformed or unexpected responses are returned as-is.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	attempt := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return &transientError{fmt.Errorf("oracle request: %w", err)}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusNotFound:
			body = []byte("{}")
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &transientError{fmt.Errorf("oracle status %s", resp.Status)}
		default:
			return backoff.Permanent(fmt.Errorf("oracle unexpected status %s", resp.Status))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return &transientError{fmt.Errorf("reading oracle response: %w", err)}
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		var tr *transientError
		if errors.As(err, &tr) {
			c.log.WithError(err).WithField("path", path).Warn("oracle lookup deferred")
			return nil, fmt.Errorf("%w: %v", ErrDeferred, tr.err)
		}
		return nil, err
	}
	return body, nil
}
