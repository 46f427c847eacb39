package keeper

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/armon/go-metrics"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

// Fulfill records the result of a dispatched request. The caller must be the
// configured oracle and must echo the terms the request was committed with.
// The caller is authenticated before any other check runs.
func (k Keeper) Fulfill(ctx sdk.Context, msg types.MsgFulfill) error {
	params := k.GetParams(ctx)

	if err := msg.VerifySignature(); err != nil {
		metrics.IncrCounter([]string{types.ModuleName, "fulfill", "unauthorized"}, 1)
		return err
	}
	if msg.Caller != params.OracleAddress {
		metrics.IncrCounter([]string{types.ModuleName, "fulfill", "unauthorized"}, 1)
		return errorsmod.Wrapf(types.ErrUnauthorizedCaller, "%s is not the oracle", msg.Caller)
	}
	if err := msg.ValidateBasic(); err != nil {
		return err
	}

	req, err := k.GetRequest(ctx, msg.Handle)
	if err != nil {
		return errorsmod.Wrapf(types.ErrUnknownRequest, "%v", err)
	}

	switch req.Status {
	case types.StatusDispatched:
	case types.StatusFulfilled:
		return errorsmod.Wrapf(types.ErrUnknownRequest, "request %s already fulfilled", msg.Handle)
	default:
		return errorsmod.Wrapf(types.ErrUnknownRequest, "request %s is %s", msg.Handle, req.Status)
	}

	if req.Expired(uint64(ctx.BlockTime().Unix())) {
		return errorsmod.Wrapf(types.ErrUnknownRequest, "request %s expired at %d", msg.Handle, req.Expiration)
	}

	payment, err := msg.PaymentAmount()
	if err != nil {
		return errorsmod.Wrap(types.ErrInvalidCommitment, err.Error())
	}
	commitment := types.ComputeCommitment(
		msg.Handle, payment, msg.Denom, types.ModuleAddress, msg.CallbackID, msg.Expiration, req.Oracle, msg.DataHash,
	)
	if commitment != req.Commitment {
		metrics.IncrCounter([]string{types.ModuleName, "fulfill", "rejected"}, 1)
		return errorsmod.Wrapf(types.ErrInvalidCommitment, "fulfillment does not match request %s", msg.Handle)
	}

	k.SetCompletion(ctx, req.ContentReference, msg.ResultReference)
	req.Status = types.StatusFulfilled
	req.Result = msg.ResultReference
	k.SetRequest(ctx, *req)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeRequestFulfilled,
			sdk.NewAttribute(types.AttributeKeyHandle, msg.Handle.Hex()),
			sdk.NewAttribute(types.AttributeKeyContentReference, req.ContentReference),
			sdk.NewAttribute(types.AttributeKeyResultReference, msg.ResultReference),
		),
	)

	metrics.IncrCounter([]string{types.ModuleName, "fulfill"}, 1)
	k.Logger(ctx).Info("request fulfilled", "handle", msg.Handle.Hex(), "content_reference", req.ContentReference, "result_reference", msg.ResultReference)
	return nil
}
