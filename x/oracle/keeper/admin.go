package keeper

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/armon/go-metrics"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

func (k Keeper) checkOwner(ctx sdk.Context, caller common.Address) error {
	owner := k.GetOwnerAddress(ctx)
	if caller != owner {
		return errorsmod.Wrapf(types.ErrUnauthorizedCaller, "%s is not the owner", caller)
	}
	return nil
}

// Withdraw sends the whole payment token balance of the module to the owner
// and returns the amount sent. A zero balance is sent as a zero transfer.
func (k Keeper) Withdraw(ctx sdk.Context, caller common.Address) (sdk.Coin, error) {
	if err := k.checkOwner(ctx, caller); err != nil {
		metrics.IncrCounter([]string{types.ModuleName, "withdraw", "unauthorized"}, 1)
		return sdk.Coin{}, err
	}

	balance := k.GetModuleBalance(ctx)
	if err := k.tokenKeeper.SendCoin(ctx, types.ModuleAddress, caller, balance); err != nil {
		return sdk.Coin{}, errorsmod.Wrapf(types.ErrTransferFailure, "%v", err)
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeWithdraw,
			sdk.NewAttribute(types.AttributeKeyOwner, caller.Hex()),
			sdk.NewAttribute(types.AttributeKeyAmount, balance.String()),
		),
	)

	metrics.IncrCounter([]string{types.ModuleName, "withdraw"}, 1)
	k.Logger(ctx).Info("balance withdrawn", "owner", caller.Hex(), "amount", balance.String())
	return balance, nil
}

// UpdateParams replaces the fee configuration.
func (k Keeper) UpdateParams(ctx sdk.Context, caller common.Address, params types.Params) error {
	if err := k.checkOwner(ctx, caller); err != nil {
		return err
	}
	if err := k.SetParams(ctx, params); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeParamsUpdated,
			sdk.NewAttribute(types.AttributeKeyOwner, caller.Hex()),
			sdk.NewAttribute(types.AttributeKeyOracle, params.OracleAddress.Hex()),
			sdk.NewAttribute(types.AttributeKeyAmount, params.Fee.String()),
		),
	)
	k.Logger(ctx).Info("params updated", "oracle", params.OracleAddress.Hex(), "fee", params.Fee.String(), "job_id", params.JobID)
	return nil
}

// TransferOwnership hands the owner role to newOwner.
func (k Keeper) TransferOwnership(ctx sdk.Context, caller, newOwner common.Address) error {
	if err := k.checkOwner(ctx, caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return errorsmod.Wrap(types.ErrInvalidParams, "new owner cannot be the zero address")
	}

	k.SetOwnerAddress(ctx, newOwner)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeOwnershipTransferred,
			sdk.NewAttribute(types.AttributeKeyPreviousOwner, caller.Hex()),
			sdk.NewAttribute(types.AttributeKeyOwner, newOwner.Hex()),
		),
	)
	k.Logger(ctx).Info("ownership transferred", "previous", caller.Hex(), "owner", newOwner.Hex())
	return nil
}
