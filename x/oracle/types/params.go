package types

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultDenom       = "ucid"
	DefaultJobID       = "ca98366cc7314957b8c012c72f05aeeb"
	DefaultResolverURL = "http://localhost:8000/completion/ipfs"
	DefaultResultPath  = "cid"
	DefaultRequestTTL  = time.Hour
)

// Params is the fee configuration of the oracle module. The fee denom names the payment token.
type Params struct {
	Fee           sdk.Coin       `json:"fee"`
	JobID         string         `json:"job_id"`
	OracleAddress common.Address `json:"oracle_address"`
	ResolverURL   string         `json:"resolver_url"`
	ResultPath    string         `json:"result_path"`
	// RequestTTL of zero keeps requests pending until fulfilled.
	RequestTTL time.Duration `json:"request_ttl"`
}

// DefaultParams returns default oracle module parameters
func DefaultParams() Params {
	return Params{
		Fee:         sdk.NewInt64Coin(DefaultDenom, 100000),
		JobID:       DefaultJobID,
		ResolverURL: DefaultResolverURL,
		ResultPath:  DefaultResultPath,
		RequestTTL:  DefaultRequestTTL,
	}
}

// Validate performs basic validation on oracle parameters
func (p Params) Validate() error {
	if err := p.Fee.Validate(); err != nil {
		return fmt.Errorf("invalid fee: %w", err)
	}
	if strings.TrimSpace(p.JobID) == "" {
		return fmt.Errorf("job id cannot be empty")
	}
	if p.OracleAddress == (common.Address{}) {
		return fmt.Errorf("oracle address cannot be empty")
	}
	u, err := url.Parse(p.ResolverURL)
	if err != nil {
		return fmt.Errorf("invalid resolver url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("resolver url must be http(s): %s", p.ResolverURL)
	}
	if strings.TrimSpace(p.ResultPath) == "" {
		return fmt.Errorf("result path cannot be empty")
	}
	if p.RequestTTL < 0 {
		return fmt.Errorf("request ttl cannot be negative")
	}
	return nil
}

type paramsJSON struct {
	Fee           sdk.Coin       `json:"fee"`
	JobID         string         `json:"job_id"`
	OracleAddress common.Address `json:"oracle_address"`
	ResolverURL   string         `json:"resolver_url"`
	ResultPath    string         `json:"result_path"`
	RequestTTL    string         `json:"request_ttl"`
}

// MarshalJSON writes RequestTTL as a duration string.
func (p Params) MarshalJSON() ([]byte, error) {
	return json.Marshal(paramsJSON{
		Fee:           p.Fee,
		JobID:         p.JobID,
		OracleAddress: p.OracleAddress,
		ResolverURL:   p.ResolverURL,
		ResultPath:    p.ResultPath,
		RequestTTL:    p.RequestTTL.String(),
	})
}

func (p *Params) UnmarshalJSON(bz []byte) error {
	var raw paramsJSON
	if err := json.Unmarshal(bz, &raw); err != nil {
		return err
	}
	var ttl time.Duration
	if raw.RequestTTL != "" {
		d, err := time.ParseDuration(raw.RequestTTL)
		if err != nil {
			return fmt.Errorf("invalid request ttl: %w", err)
		}
		ttl = d
	}
	*p = Params{
		Fee:           raw.Fee,
		JobID:         raw.JobID,
		OracleAddress: raw.OracleAddress,
		ResolverURL:   raw.ResolverURL,
		ResultPath:    raw.ResultPath,
		RequestTTL:    ttl,
	}
	return nil
}
