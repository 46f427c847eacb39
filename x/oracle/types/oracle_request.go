package types

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// request data fields understood by the oracle node
const (
	DataKeyGet  = "get"
	DataKeyPath = "path"
)

// OracleRequest is the job handed to the oracle node at dispatch time.
type OracleRequest struct {
	JobID           string         `json:"job_id"`
	Handle          common.Hash    `json:"handle"`
	Requester       common.Address `json:"requester"`
	CallbackAddress common.Address `json:"callback_address"`
	CallbackID      hexutil.Bytes  `json:"callback_id"`
	Nonce           uint64         `json:"nonce"`
	Payment         sdk.Coin       `json:"payment"`
	Expiration      uint64         `json:"expiration"`
	Data            string         `json:"data"`
}

// FetchURL returns base with the content reference set as the cid query parameter.
func FetchURL(base, contentRef string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid resolver url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("cid", contentRef)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// BuildRequestData encodes the fetch and path instructions of a request.
func BuildRequestData(resolverURL, resultPath, contentRef string) (string, error) {
	fetch, err := FetchURL(resolverURL, contentRef)
	if err != nil {
		return "", err
	}

	data, err := sjson.Set("", DataKeyGet, fetch)
	if err != nil {
		return "", fmt.Errorf("failed to set %s: %w", DataKeyGet, err)
	}
	data, err = sjson.Set(data, DataKeyPath, resultPath)
	if err != nil {
		return "", fmt.Errorf("failed to set %s: %w", DataKeyPath, err)
	}
	return data, nil
}

// FetchURL returns the url the oracle must query.
func (r OracleRequest) FetchURL() string {
	return gjson.Get(r.Data, DataKeyGet).String()
}

// ResultPath returns the path of the response field holding the result reference.
func (r OracleRequest) ResultPath() string {
	return gjson.Get(r.Data, DataKeyPath).String()
}

// Equal reports whether r and o carry the same terms.
func (r OracleRequest) Equal(o OracleRequest) bool {
	return r.JobID == o.JobID &&
		r.Handle == o.Handle &&
		r.Requester == o.Requester &&
		r.CallbackAddress == o.CallbackAddress &&
		bytes.Equal(r.CallbackID, o.CallbackID) &&
		r.Nonce == o.Nonce &&
		r.Payment.String() == o.Payment.String() &&
		r.Expiration == o.Expiration &&
		r.Data == o.Data
}

// Validate performs basic validation of a received oracle request
func (r OracleRequest) Validate() error {
	if r.Handle == (common.Hash{}) {
		return fmt.Errorf("handle cannot be empty")
	}
	if strings.TrimSpace(r.JobID) == "" {
		return fmt.Errorf("job id cannot be empty")
	}
	if !gjson.Valid(r.Data) {
		return fmt.Errorf("request data is not valid json")
	}
	if r.FetchURL() == "" {
		return fmt.Errorf("request data has no %q instruction", DataKeyGet)
	}
	if r.ResultPath() == "" {
		return fmt.Errorf("request data has no %q instruction", DataKeyPath)
	}
	if len(r.CallbackID) != len(FulfillSelector) {
		return fmt.Errorf("invalid callback id length: %d", len(r.CallbackID))
	}
	return nil
}
