package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/armon/go-metrics"
	"github.com/tidwall/gjson"

	"github.com/GPTx-global/cidoracle/oracle/retry"
	"github.com/GPTx-global/cidoracle/oracle/types"
	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

// MaxResponseSize bounds the resolver response read for a job.
const MaxResponseSize = 1 << 20

// Verifier confirms that a job was dispatched by the ledger before the node
// fetches anything for it.
type Verifier interface {
	VerifyJob(ctx context.Context, req oracletypes.OracleRequest) error
}

// NewHTTPClient returns the client used for resolver fetches.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Executor fetches the resolver response of a job and extracts its result.
type Executor struct {
	client   *http.Client
	retry    *retry.Config
	verifier Verifier
}

func NewExecutor(client *http.Client, retryConfig *retry.Config) *Executor {
	if client == nil {
		client = NewHTTPClient(30 * time.Second)
	}
	if retryConfig == nil {
		retryConfig = retry.DefaultConfig()
	}
	return &Executor{client: client, retry: retryConfig}
}

// WithVerifier makes e check every job against v first. A nil v disables
// the check.
func (e *Executor) WithVerifier(v Verifier) *Executor {
	e.verifier = v
	return e
}

// Execute runs job and returns the value found at its path.
func (e *Executor) Execute(ctx context.Context, job types.Job) (types.JobResult, error) {
	if err := e.verify(ctx, job); err != nil {
		metrics.IncrCounter([]string{"node", "job", "rejected"}, 1)
		return types.JobResult{}, fmt.Errorf("job rejected: %w", err)
	}

	rawData, err := e.fetchRawData(ctx, job.URL)
	if err != nil {
		return types.JobResult{}, fmt.Errorf("failed to fetch raw data: %w", err)
	}

	value, err := extractDataByPath(rawData, job.Path)
	if err != nil {
		return types.JobResult{}, fmt.Errorf("failed to extract data by path: %w", err)
	}

	return types.JobResult{
		Handle:  job.Handle,
		Data:    value,
		Request: job.Request,
	}, nil
}

// verify retries until the ledger has committed the job's record. A record
// that exists but does not match the job fails at once.
func (e *Executor) verify(ctx context.Context, job types.Job) error {
	if e.verifier == nil {
		return nil
	}
	return retry.Do(ctx, e.retry, func() error {
		err := e.verifier.VerifyJob(ctx, job.Request)
		if errors.Is(err, oracletypes.ErrInvalidCommitment) || errors.Is(err, oracletypes.ErrUnknownRequest) {
			return retry.Permanent(err)
		}
		return err
	}, retry.Always)
}

// fetchRawData retries network errors and 5xx responses; other statuses fail at once.
func (e *Executor) fetchRawData(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, e.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		req.Header.Set("User-Agent", "cidoracle-node/1.0")
		req.Header.Set("Accept", "application/json")

		res, err := e.client.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode == http.StatusOK {
			body, err = io.ReadAll(io.LimitReader(res.Body, MaxResponseSize+1))
			if err != nil {
				return retry.Permanent(fmt.Errorf("failed to read response body: %w", err))
			}
			if len(body) > MaxResponseSize {
				return retry.Permanent(fmt.Errorf("response body exceeds %d bytes", MaxResponseSize))
			}
			return nil
		}

		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		if res.StatusCode >= 500 {
			return fmt.Errorf("server error: %s (%s)", res.Status, strings.TrimSpace(string(msg)))
		}
		return retry.Permanent(fmt.Errorf("unexpected HTTP status: %s (%s)", res.Status, strings.TrimSpace(string(msg))))
	}, retry.Always)
	return body, err
}

// extractDataByPath reads path from a JSON document. A root array is read
// through its first element.
func extractDataByPath(rawData []byte, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !gjson.ValidBytes(rawData) {
		return "", fmt.Errorf("response is not valid JSON")
	}

	root := gjson.ParseBytes(rawData)
	if root.IsArray() && !startsWithIndex(path) {
		path = "0." + path
	}
	if !root.IsArray() && !root.IsObject() {
		return "", fmt.Errorf("response is not a JSON object or array")
	}

	value := root.Get(path)
	if !value.Exists() {
		return "", fmt.Errorf("key '%s' not found", path)
	}
	if value.Type == gjson.Null {
		return "", fmt.Errorf("key '%s' is null", path)
	}
	return value.String(), nil
}

func startsWithIndex(path string) bool {
	first := strings.SplitN(path, ".", 2)[0]
	if first == "" {
		return false
	}
	for _, c := range first {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
