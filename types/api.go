package types

import (
	"net/http"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

// SubmitRequest is the body of POST /v1/requests.
type SubmitRequest struct {
	Requester        common.Address `json:"requester"`
	ContentReference string         `json:"content_reference"`
}

// SubmitResponse returns the handle of a submitted job.
type SubmitResponse struct {
	Handle common.Hash `json:"handle"`
}

// RequestsResponse lists ledger records.
type RequestsResponse struct {
	Requests []oracletypes.PendingRequest `json:"requests"`
}

// WithdrawResponse reports the amount sent to the owner.
type WithdrawResponse struct {
	Amount sdk.Coin `json:"amount"`
}

// ExpireResponse lists the handles retired by a sweep.
type ExpireResponse struct {
	Expired []common.Hash `json:"expired"`
}

// BalanceResponse lists the balances of an address.
type BalanceResponse struct {
	Address  common.Address `json:"address"`
	Balances sdk.Coins      `json:"balances"`
}

// ParamsResponse returns the fee configuration and owner.
type ParamsResponse struct {
	Params        oracletypes.Params `json:"params"`
	Owner         common.Address     `json:"owner"`
	ModuleAddress common.Address     `json:"module_address"`
	Balance       sdk.Coin           `json:"balance"`
}

// EventMessage is a committed event pushed on the event feed.
type EventMessage struct {
	Height     int64             `json:"height"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// ErrorResponse carries a registered error across HTTP.
type ErrorResponse struct {
	Codespace string `json:"codespace,omitempty"`
	Code      uint32 `json:"code,omitempty"`
	Error     string `json:"error"`
}

// NewErrorResponse encodes err with its registered codespace and code.
func NewErrorResponse(err error) ErrorResponse {
	codespace, code, log := errorsmod.ABCIInfo(err, false)
	return ErrorResponse{Codespace: codespace, Code: code, Error: log}
}

// Err rebuilds the error so errors.Is matches the registered error on the client side.
func (r ErrorResponse) Err() error {
	if r.Codespace == "" || r.Code == 0 {
		return errors.New(r.Error)
	}
	return errorsmod.ABCIError(r.Codespace, r.Code, r.Error)
}

// HTTPStatus maps an error to its response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errorsmod.IsOf(err, oracletypes.ErrUnauthorizedCaller):
		return http.StatusUnauthorized
	case errorsmod.IsOf(err, oracletypes.ErrNotFound, oracletypes.ErrUnknownRequest):
		return http.StatusNotFound
	case errorsmod.IsOf(err, oracletypes.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errorsmod.IsOf(err, oracletypes.ErrDispatchFailure, oracletypes.ErrTransferFailure):
		return http.StatusBadGateway
	case errorsmod.IsOf(err, oracletypes.ErrInvalidContentReference, oracletypes.ErrInvalidCommitment, oracletypes.ErrInvalidParams):
		return http.StatusBadRequest
	}
	// remaining registered errors are request validation failures
	if _, code, _ := errorsmod.ABCIInfo(err, false); code != 1 {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
