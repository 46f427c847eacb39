package token

import (
	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/GPTx-global/cidoracle/x/token/keeper"
	"github.com/GPTx-global/cidoracle/x/token/types"
)

// InitGenesis mints the genesis balances
func InitGenesis(ctx sdk.Context, k keeper.Keeper, data types.GenesisState) {
	if err := data.Validate(); err != nil {
		panic(errorsmod.Wrapf(err, "failed to validate %s genesis state", types.ModuleName))
	}

	for _, b := range data.Balances {
		if err := k.MintCoin(ctx, b.Address, b.Coin); err != nil {
			panic(errorsmod.Wrapf(err, "failed to mint genesis balance for %s", b.Address))
		}
	}
}

// ExportGenesis returns the token module's exported genesis.
func ExportGenesis(ctx sdk.Context, k keeper.Keeper) *types.GenesisState {
	balances := []types.Balance{}
	k.IterateBalances(ctx, func(addr common.Address, coin sdk.Coin) bool {
		balances = append(balances, types.Balance{Address: addr, Coin: coin})
		return false
	})
	return &types.GenesisState{Balances: balances}
}
