package kaspa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Macmachi/kasland/pkg/retry"
)

// Feed pagination is fixed; the poll interval is short enough that fifty
// transactions always covers the window.
const (
	feedLimit        = 50
	resolvePrevMode  = "light"
	fullTransactions = "/addresses/%s/full-transactions"
)

// Client queries the Kaspa REST API for address transaction history.
type Client struct {
	baseURL string
	http    *http.Client
	retry   retry.Config
	logger  *zap.Logger
}

type Opts struct {
	BaseURL    string
	Timeout    time.Duration
	Retry      retry.Config
	HTTPClient *http.Client
}

func NewClient(o Opts, logger *zap.Logger) *Client {
	if o.Timeout <= 0 {
		o.Timeout = 50 * time.Second
	}
	if o.Retry.MaxAttempts == 0 {
		o.Retry = retry.DefaultConfig()
	}
	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	}
	return &Client{
		baseURL: o.BaseURL,
		http:    client,
		retry:   o.Retry,
		logger:  logger,
	}
}

// FullTransactions fetches recent transactions involving the address,
// retrying on transient failure. An exhausted retry budget surfaces as an
// error; callers must treat it as "no new information".
func (c *Client) FullTransactions(ctx context.Context, address string) ([]Transaction, error) {
	u := c.baseURL + fmt.Sprintf(fullTransactions, url.PathEscape(address))
	params := url.Values{}
	params.Set("limit", fmt.Sprint(feedLimit))
	params.Set("resolve_previous_outpoints", resolvePrevMode)
	u += "?" + params.Encode()

	var txs []Transaction
	err := retry.Do(ctx, c.retry, c.logger, "full-transactions", func() error {
		return c.getJSON(ctx, u, &txs)
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// FindPayment scans the address's recent transactions for an output of
// exactly amountKAS within the window. It returns the resolved sender
// address, which may be empty when the feed cannot resolve the input.
func (c *Client) FindPayment(ctx context.Context, address string, amountKAS float64, window time.Duration) (sender string, found bool, err error) {
	txs, err := c.FullTransactions(ctx, address)
	if err != nil {
		return "", false, err
	}

	wantSompi := Sompi(amountKAS)
	cutoff := time.Now().Add(-window)

	for _, tx := range txs {
		if tx.Time().Before(cutoff) {
			// Feed is newest-first; everything past here is too old.
			break
		}
		for _, out := range tx.Outputs {
			if out.ScriptPublicKeyAddress == address && out.Amount == wantSompi {
				return tx.Sender(), true, nil
			}
		}
	}
	return "", false, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode feed response: %w", err)
	}
	return nil
}
