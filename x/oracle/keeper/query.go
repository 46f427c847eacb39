package keeper

import (
	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

// GetContentReference returns the content reference a handle was issued for.
func (k Keeper) GetContentReference(ctx sdk.Context, handle common.Hash) (string, error) {
	req, err := k.GetRequest(ctx, handle)
	if err != nil {
		return "", errorsmod.Wrapf(types.ErrNotFound, "%v", err)
	}
	return req.ContentReference, nil
}

// QueryCompletion returns the result recorded for contentRef.
func (k Keeper) QueryCompletion(ctx sdk.Context, contentRef string) (types.Completion, error) {
	result, ok := k.GetCompletion(ctx, contentRef)
	if !ok {
		return types.Completion{}, errorsmod.Wrapf(types.ErrNotFound, "no completion for %s", contentRef)
	}
	return types.Completion{ContentReference: contentRef, ResultReference: result}, nil
}

// QueryRequest returns the full ledger record of a handle.
func (k Keeper) QueryRequest(ctx sdk.Context, handle common.Hash) (types.PendingRequest, error) {
	req, err := k.GetRequest(ctx, handle)
	if err != nil {
		return types.PendingRequest{}, errorsmod.Wrapf(types.ErrNotFound, "%v", err)
	}
	return *req, nil
}

// GetRequestsByStatus lists stored requests, all of them when status is unspecified.
func (k Keeper) GetRequestsByStatus(ctx sdk.Context, status types.RequestStatus) []types.PendingRequest {
	requests := []types.PendingRequest{}
	k.IterateRequests(ctx, func(req types.PendingRequest) bool {
		if status == types.StatusUnspecified || req.Status == status {
			requests = append(requests, req)
		}
		return false
	})
	return requests
}

// GetPendingRequests lists dispatched requests in expiration order.
func (k Keeper) GetPendingRequests(ctx sdk.Context) []types.PendingRequest {
	requests := []types.PendingRequest{}
	k.IteratePending(ctx, func(_ uint64, handle common.Hash) bool {
		if req, err := k.GetRequest(ctx, handle); err == nil {
			requests = append(requests, *req)
		}
		return false
	})
	return requests
}
