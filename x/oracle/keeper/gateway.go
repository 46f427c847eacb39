package keeper

import (
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/armon/go-metrics"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

// Submit dispatches a job for contentRef to the configured oracle and returns
// the handle the result will be delivered under. Any failure leaves the
// caller's branch of the store to be discarded.
func (k Keeper) Submit(ctx sdk.Context, requester common.Address, contentRef string) (common.Hash, error) {
	if strings.TrimSpace(contentRef) == "" {
		return common.Hash{}, errorsmod.Wrap(types.ErrInvalidContentReference, "content reference cannot be empty")
	}
	if k.dispatcher == nil {
		return common.Hash{}, errorsmod.Wrap(types.ErrDispatchFailure, "no oracle dispatcher configured")
	}

	params := k.GetParams(ctx)
	handle, nonce := k.nextHandle(ctx, requester, contentRef)

	var expiration uint64
	if params.RequestTTL > 0 {
		expiration = uint64(ctx.BlockTime().Add(params.RequestTTL).Unix())
	}

	data, err := types.BuildRequestData(params.ResolverURL, params.ResultPath, contentRef)
	if err != nil {
		return common.Hash{}, errorsmod.Wrapf(types.ErrDispatchFailure, "%v", err)
	}

	balance := k.tokenKeeper.GetBalance(ctx, types.ModuleAddress, params.Fee.Denom)
	if balance.Amount.LT(params.Fee.Amount) {
		return common.Hash{}, errorsmod.Wrapf(types.ErrInsufficientFunds, "module balance: %s is less than %s", balance, params.Fee)
	}
	if err := k.tokenKeeper.SendCoin(ctx, types.ModuleAddress, params.OracleAddress, params.Fee); err != nil {
		return common.Hash{}, errorsmod.Wrapf(types.ErrInsufficientFunds, "fee payment failed: %v", err)
	}

	job := types.OracleRequest{
		JobID:           params.JobID,
		Handle:          handle,
		Requester:       requester,
		CallbackAddress: types.ModuleAddress,
		CallbackID:      append([]byte{}, types.FulfillSelector...),
		Nonce:           nonce,
		Payment:         params.Fee,
		Expiration:      expiration,
		Data:            data,
	}
	req := types.PendingRequest{
		Handle:           handle,
		ContentReference: contentRef,
		Requester:        requester,
		Oracle:           params.OracleAddress,
		Nonce:            nonce,
		Payment:          params.Fee.Amount.BigInt(),
		Denom:            params.Fee.Denom,
		CallbackID:       job.CallbackID,
		Expiration:       expiration,
		Commitment:       job.Commitment(params.OracleAddress),
		Status:           types.StatusDispatched,
	}
	k.SetRequest(ctx, req)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeRequestReceived,
			sdk.NewAttribute(types.AttributeKeyHandle, handle.Hex()),
			sdk.NewAttribute(types.AttributeKeyContentReference, contentRef),
			sdk.NewAttribute(types.AttributeKeyRequester, requester.Hex()),
		),
	)

	if err := k.dispatcher.Dispatch(job); err != nil {
		metrics.IncrCounter([]string{types.ModuleName, "submit", "failed"}, 1)
		return common.Hash{}, errorsmod.Wrapf(types.ErrDispatchFailure, "%v", err)
	}

	metrics.IncrCounter([]string{types.ModuleName, "submit"}, 1)
	k.Logger(ctx).Info("request dispatched", "handle", handle.Hex(), "content_reference", contentRef, "nonce", nonce)
	return handle, nil
}
