package keeper

import (
	"fmt"

	storetypes "github.com/cosmos/cosmos-sdk/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

type Keeper struct {
	storeKey storetypes.StoreKey

	tokenKeeper types.TokenKeeper
	dispatcher  types.OracleDispatcher
}

func NewKeeper(
	storeKey storetypes.StoreKey,
	tokenKeeper types.TokenKeeper,
) *Keeper {
	return &Keeper{
		storeKey:    storeKey,
		tokenKeeper: tokenKeeper,
	}
}

// SetDispatcher sets the oracle the keeper dispatches requests to. It must be
// called before the first Submit.
func (k *Keeper) SetDispatcher(dispatcher types.OracleDispatcher) {
	k.dispatcher = dispatcher
}

// GetOwnerAddress returns the current owner address.
func (k Keeper) GetOwnerAddress(ctx sdk.Context) common.Address {
	store := ctx.KVStore(k.storeKey)
	return common.BytesToAddress(store.Get(types.KeyOwnerAddress))
}

// SetOwnerAddress adds/updates the owner address.
func (k Keeper) SetOwnerAddress(ctx sdk.Context, owner common.Address) {
	store := ctx.KVStore(k.storeKey)
	store.Set(types.KeyOwnerAddress, owner.Bytes())
}

// GetModuleBalance returns the payment token balance available for fees.
func (k Keeper) GetModuleBalance(ctx sdk.Context) sdk.Coin {
	return k.tokenKeeper.GetBalance(ctx, types.ModuleAddress, k.GetParams(ctx).Fee.Denom)
}

func (k Keeper) Logger(ctx sdk.Context) log.Logger {
	return ctx.Logger().With("module", fmt.Sprintf("x/%s", types.ModuleName))
}
