package oracle

import (
	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"

	"github.com/GPTx-global/cidoracle/x/oracle/keeper"
	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

// Msg is a signed oracle message.
type Msg interface {
	Route() string
	Type() string
	ValidateBasic() error
}

// Handler executes a signed oracle message against ctx.
type Handler func(ctx sdk.Context, msg Msg) (*sdk.Result, error)

// NewHandler creates a new handler for oracle messages
func NewHandler(k *keeper.Keeper) Handler {
	return func(ctx sdk.Context, msg Msg) (*sdk.Result, error) {
		switch msg := msg.(type) {
		case *types.MsgFulfill:
			if err := k.Fulfill(ctx, *msg); err != nil {
				return nil, err
			}
			return &sdk.Result{Data: []byte(msg.ResultReference), Events: ctx.EventManager().ABCIEvents()}, nil

		case *types.MsgWithdraw:
			if err := msg.VerifySignature(); err != nil {
				return nil, err
			}
			if err := msg.ValidateBasic(); err != nil {
				return nil, err
			}
			if msg.Deadline != 0 && uint64(ctx.BlockTime().Unix()) > msg.Deadline {
				return nil, errorsmod.Wrapf(types.ErrUnauthorizedCaller, "withdraw signature expired at %d", msg.Deadline)
			}
			amount, err := k.Withdraw(ctx, msg.Caller)
			if err != nil {
				return nil, err
			}
			return &sdk.Result{Data: []byte(amount.String()), Events: ctx.EventManager().ABCIEvents()}, nil

		default:
			return nil, errorsmod.Wrapf(sdkerrors.ErrUnknownRequest, "unrecognized %s message type: %T", types.ModuleName, msg)
		}
	}
}
