package keeper

import (
	"github.com/armon/go-metrics"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

// ExpireRequests retires every dispatched request whose expiration is before
// the block time and returns their handles. The fee is not refunded.
func (k Keeper) ExpireRequests(ctx sdk.Context) []common.Hash {
	now := uint64(ctx.BlockTime().Unix())

	var due []common.Hash
	k.IteratePending(ctx, func(expiration uint64, handle common.Hash) bool {
		if expiration == 0 {
			return false
		}
		if expiration >= now {
			return true
		}
		due = append(due, handle)
		return false
	})

	expired := make([]common.Hash, 0, len(due))
	for _, handle := range due {
		req, err := k.GetRequest(ctx, handle)
		if err != nil {
			k.Logger(ctx).Error("pending index points at missing request", "handle", handle.Hex(), "error", err)
			continue
		}
		if req.Status != types.StatusDispatched {
			continue
		}

		req.Status = types.StatusExpired
		k.SetRequest(ctx, *req)
		expired = append(expired, handle)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeRequestExpired,
				sdk.NewAttribute(types.AttributeKeyHandle, handle.Hex()),
				sdk.NewAttribute(types.AttributeKeyContentReference, req.ContentReference),
			),
		)
	}

	if len(expired) > 0 {
		metrics.IncrCounter([]string{types.ModuleName, "expire"}, float32(len(expired)))
		k.Logger(ctx).Info("requests expired", "count", len(expired))
	}
	return expired
}
