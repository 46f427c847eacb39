package types

import (
	"fmt"
	"math/big"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// RequestStatus is the lifecycle state of a request handle.
type RequestStatus uint8

const (
	StatusUnspecified RequestStatus = iota
	StatusDispatched
	StatusFulfilled
	StatusExpired
)

func (s RequestStatus) String() string {
	switch s {
	case StatusDispatched:
		return "dispatched"
	case StatusFulfilled:
		return "fulfilled"
	case StatusExpired:
		return "expired"
	default:
		return "unspecified"
	}
}

// ParseRequestStatus parses a status name as produced by String.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dispatched":
		return StatusDispatched, nil
	case "fulfilled":
		return StatusFulfilled, nil
	case "expired":
		return StatusExpired, nil
	}
	return StatusUnspecified, fmt.Errorf("unknown request status %q", s)
}

func (s RequestStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RequestStatus) UnmarshalText(text []byte) error {
	status, err := ParseRequestStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// PendingRequest is the ledger record of a handle. It is kept after
// fulfillment or expiry as an audit trail.
type PendingRequest struct {
	Handle           common.Hash    `json:"handle"`
	ContentReference string         `json:"content_reference"`
	Requester        common.Address `json:"requester"`
	Oracle           common.Address `json:"oracle"`
	Nonce            uint64         `json:"nonce"`
	Payment          *big.Int       `json:"payment"`
	Denom            string         `json:"denom"`
	CallbackID       hexutil.Bytes  `json:"callback_id"`
	Expiration       uint64         `json:"expiration"`
	Commitment       common.Hash    `json:"commitment"`
	Status           RequestStatus  `json:"status"`
	Result           string         `json:"result_reference,omitempty"`
}

// PaymentCoin returns the fee paid for the request.
func (r PendingRequest) PaymentCoin() sdk.Coin {
	amount := r.Payment
	if amount == nil {
		amount = new(big.Int)
	}
	return sdk.NewCoin(r.Denom, math.NewIntFromBigInt(amount))
}

// VerifyJob checks that job is the request recorded as r and is still
// awaiting its result.
func (r PendingRequest) VerifyJob(job OracleRequest) error {
	if r.Handle != job.Handle {
		return errorsmod.Wrapf(ErrUnknownRequest, "job %s does not match record %s", job.Handle, r.Handle)
	}
	if r.Status != StatusDispatched {
		return errorsmod.Wrapf(ErrUnknownRequest, "request %s is %s", r.Handle, r.Status)
	}
	if job.Commitment(r.Oracle) != r.Commitment {
		return errorsmod.Wrapf(ErrInvalidCommitment, "job %s does not match its commitment", job.Handle)
	}
	return nil
}

// Expired reports whether the request could no longer be fulfilled at unix time now.
func (r PendingRequest) Expired(now uint64) bool {
	return r.Expiration != 0 && now > r.Expiration
}

// Validate performs basic validation of a stored request
func (r PendingRequest) Validate() error {
	if r.Handle == (common.Hash{}) {
		return fmt.Errorf("handle cannot be empty")
	}
	if strings.TrimSpace(r.ContentReference) == "" {
		return fmt.Errorf("content reference cannot be empty (handle %s)", r.Handle)
	}
	if r.Status == StatusUnspecified || r.Status > StatusExpired {
		return fmt.Errorf("invalid status %d (handle %s)", r.Status, r.Handle)
	}
	if r.Status == StatusFulfilled && r.Result == "" {
		return fmt.Errorf("fulfilled request without result (handle %s)", r.Handle)
	}
	if r.Payment != nil && r.Payment.Sign() < 0 {
		return fmt.Errorf("negative payment (handle %s)", r.Handle)
	}
	return nil
}

// Completion is a content reference together with its computed result.
type Completion struct {
	ContentReference string `json:"content_reference"`
	ResultReference  string `json:"result_reference"`
}
