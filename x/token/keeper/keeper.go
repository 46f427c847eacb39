package keeper

import (
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/store/prefix"
	storetypes "github.com/cosmos/cosmos-sdk/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/GPTx-global/cidoracle/x/token/types"
)

// Keeper of the token store
type Keeper struct {
	storeKey storetypes.StoreKey
}

func NewKeeper(key storetypes.StoreKey) Keeper {
	return Keeper{storeKey: key}
}

// Logger returns a module-specific logger.
func (k Keeper) Logger(ctx sdk.Context) log.Logger {
	return ctx.Logger().With("module", "x/"+types.ModuleName)
}

// GetBalance returns the balance of addr in denom. Missing balances are zero.
func (k Keeper) GetBalance(ctx sdk.Context, addr common.Address, denom string) sdk.Coin {
	store := ctx.KVStore(k.storeKey)
	bz := store.Get(types.GetBalanceKey(addr, denom))
	if len(bz) == 0 {
		return sdk.NewCoin(denom, math.ZeroInt())
	}

	amount, ok := math.NewIntFromString(string(bz))
	if !ok {
		panic(errorsmod.Wrapf(types.ErrInvalidCoin, "corrupted balance for %s: %s", addr, bz))
	}
	return sdk.NewCoin(denom, amount)
}

// GetAllBalances returns every non-zero balance held by addr.
func (k Keeper) GetAllBalances(ctx sdk.Context, addr common.Address) sdk.Coins {
	store := prefix.NewStore(ctx.KVStore(k.storeKey), types.GetBalancePrefix(addr))
	iterator := store.Iterator(nil, nil)
	defer iterator.Close()

	coins := sdk.NewCoins()
	for ; iterator.Valid(); iterator.Next() {
		amount, ok := math.NewIntFromString(string(iterator.Value()))
		if !ok {
			continue
		}
		coins = coins.Add(sdk.NewCoin(string(iterator.Key()), amount))
	}
	return coins
}

// IterateBalances calls cb for every stored balance until cb returns true.
func (k Keeper) IterateBalances(ctx sdk.Context, cb func(addr common.Address, coin sdk.Coin) (stop bool)) {
	iterator := sdk.KVStorePrefixIterator(ctx.KVStore(k.storeKey), types.KeyBalance)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		addr, denom := types.ParseBalanceKey(iterator.Key())
		amount, ok := math.NewIntFromString(string(iterator.Value()))
		if !ok {
			continue
		}
		if cb(addr, sdk.NewCoin(denom, amount)) {
			break
		}
	}
}

// GetSupply returns the total minted amount of denom.
func (k Keeper) GetSupply(ctx sdk.Context, denom string) sdk.Coin {
	store := ctx.KVStore(k.storeKey)
	bz := store.Get(types.GetSupplyKey(denom))
	if len(bz) == 0 {
		return sdk.NewCoin(denom, math.ZeroInt())
	}
	amount, _ := math.NewIntFromString(string(bz))
	return sdk.NewCoin(denom, amount)
}

func (k Keeper) setBalance(ctx sdk.Context, addr common.Address, coin sdk.Coin) {
	store := ctx.KVStore(k.storeKey)
	key := types.GetBalanceKey(addr, coin.Denom)
	if coin.IsZero() {
		store.Delete(key)
		return
	}
	store.Set(key, []byte(coin.Amount.String()))
}

func (k Keeper) setSupply(ctx sdk.Context, coin sdk.Coin) {
	store := ctx.KVStore(k.storeKey)
	store.Set(types.GetSupplyKey(coin.Denom), []byte(coin.Amount.String()))
}

// SendCoin moves coin from one address to another. A zero amount is a valid no-op transfer.
func (k Keeper) SendCoin(ctx sdk.Context, from, to common.Address, coin sdk.Coin) error {
	if err := coin.Validate(); err != nil {
		return errorsmod.Wrapf(types.ErrInvalidCoin, "%v", err)
	}
	if to == (common.Address{}) {
		return errorsmod.Wrapf(types.ErrInvalidRecipient, "cannot send to the zero address")
	}

	fromBalance := k.GetBalance(ctx, from, coin.Denom)
	if fromBalance.Amount.LT(coin.Amount) {
		return errorsmod.Wrapf(types.ErrInsufficientBalance, "sender balance: %s is less than %s", fromBalance, coin)
	}

	k.setBalance(ctx, from, fromBalance.Sub(coin))
	k.setBalance(ctx, to, k.GetBalance(ctx, to, coin.Denom).Add(coin))

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeTransfer,
			sdk.NewAttribute(types.AttributeKeySender, from.Hex()),
			sdk.NewAttribute(types.AttributeKeyRecipient, to.Hex()),
			sdk.NewAttribute(types.AttributeKeyAmount, coin.String()),
		),
	)
	return nil
}

// MintCoin credits newly created coin to addr.
func (k Keeper) MintCoin(ctx sdk.Context, to common.Address, coin sdk.Coin) error {
	if err := coin.Validate(); err != nil {
		return errorsmod.Wrapf(types.ErrInvalidCoin, "%v", err)
	}
	if to == (common.Address{}) {
		return errorsmod.Wrapf(types.ErrInvalidRecipient, "cannot mint to the zero address")
	}

	k.setBalance(ctx, to, k.GetBalance(ctx, to, coin.Denom).Add(coin))
	k.setSupply(ctx, k.GetSupply(ctx, coin.Denom).Add(coin))

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeMint,
			sdk.NewAttribute(types.AttributeKeyRecipient, to.Hex()),
			sdk.NewAttribute(types.AttributeKeyAmount, coin.String()),
		),
	)
	return nil
}
