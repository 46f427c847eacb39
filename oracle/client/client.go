package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/GPTx-global/cidoracle/types"
	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

const DefaultDispatchTimeout = 5 * time.Second

type baseClient struct {
	endpoint string
	http     *http.Client
}

func newBaseClient(endpoint string, httpClient *http.Client) baseClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return baseClient{endpoint: strings.TrimRight(endpoint, "/"), http: httpClient}
}

// do sends in as JSON and decodes the response into out. A non-2xx response is
// decoded as types.ErrorResponse and returned as the registered error it carries.
func (c baseClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		bz, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(bz)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	bz, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er types.ErrorResponse
		if err := json.Unmarshal(bz, &er); err != nil || er.Error == "" {
			return errors.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(bz)))
		}
		return errors.Wrapf(er.Err(), "%s %s", method, path)
	}

	if out == nil || len(bz) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(bz, out), "decode response")
}

// CoreClient talks to the oracle service API.
type CoreClient struct {
	baseClient
}

func NewCoreClient(endpoint string, httpClient *http.Client) *CoreClient {
	return &CoreClient{baseClient: newBaseClient(endpoint, httpClient)}
}

func (c *CoreClient) Submit(ctx context.Context, requester common.Address, contentRef string) (common.Hash, error) {
	var resp types.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/v1/requests", types.SubmitRequest{
		Requester:        requester,
		ContentReference: contentRef,
	}, &resp)
	return resp.Handle, err
}

// Fulfill implements submitter.Fulfiller.
func (c *CoreClient) Fulfill(ctx context.Context, msg *oracletypes.MsgFulfill) error {
	return c.do(ctx, http.MethodPost, "/v1/fulfillments", msg, nil)
}

func (c *CoreClient) Withdraw(ctx context.Context, msg *oracletypes.MsgWithdraw) (sdk.Coin, error) {
	var resp types.WithdrawResponse
	err := c.do(ctx, http.MethodPost, "/v1/withdraw", msg, &resp)
	return resp.Amount, err
}

// ExpireRequests implements monitor.Expirer.
func (c *CoreClient) ExpireRequests(ctx context.Context) ([]common.Hash, error) {
	var resp types.ExpireResponse
	err := c.do(ctx, http.MethodPost, "/v1/expire", nil, &resp)
	return resp.Expired, err
}

func (c *CoreClient) Completion(ctx context.Context, contentRef string) (oracletypes.Completion, error) {
	var resp oracletypes.Completion
	err := c.do(ctx, http.MethodGet, "/v1/completions/"+url.PathEscape(contentRef), nil, &resp)
	return resp, err
}

func (c *CoreClient) Request(ctx context.Context, handle common.Hash) (oracletypes.PendingRequest, error) {
	var resp oracletypes.PendingRequest
	err := c.do(ctx, http.MethodGet, "/v1/requests/"+handle.Hex(), nil, &resp)
	return resp, err
}

// VerifyJob implements scheduler.Verifier against the ledger record of the
// job's handle.
func (c *CoreClient) VerifyJob(ctx context.Context, req oracletypes.OracleRequest) error {
	rec, err := c.Request(ctx, req.Handle)
	if err != nil {
		return err
	}
	return rec.VerifyJob(req)
}

// Requests lists ledger records. StatusUnspecified lists all of them.
func (c *CoreClient) Requests(ctx context.Context, status oracletypes.RequestStatus) ([]oracletypes.PendingRequest, error) {
	path := "/v1/requests"
	if status != oracletypes.StatusUnspecified {
		path += "?status=" + status.String()
	}
	var resp types.RequestsResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Requests, err
}

func (c *CoreClient) Params(ctx context.Context) (types.ParamsResponse, error) {
	var resp types.ParamsResponse
	err := c.do(ctx, http.MethodGet, "/v1/params", nil, &resp)
	return resp, err
}

func (c *CoreClient) Balance(ctx context.Context, addr common.Address) (sdk.Coins, error) {
	var resp types.BalanceResponse
	err := c.do(ctx, http.MethodGet, "/v1/balance/"+addr.Hex(), nil, &resp)
	return resp.Balances, err
}

func (c *CoreClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// NodeClient dispatches requests to a remote oracle node.
type NodeClient struct {
	baseClient
	timeout time.Duration
}

func NewNodeClient(endpoint string, httpClient *http.Client) *NodeClient {
	return &NodeClient{baseClient: newBaseClient(endpoint, httpClient), timeout: DefaultDispatchTimeout}
}

// Dispatch implements types.OracleDispatcher.
func (c *NodeClient) Dispatch(req oracletypes.OracleRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.do(ctx, http.MethodPost, "/v1/jobs", req, nil); err != nil {
		return fmt.Errorf("failed to dispatch %s: %w", req.Handle.Hex(), err)
	}
	return nil
}

func (c *NodeClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
