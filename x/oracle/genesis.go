package oracle

import (
	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/GPTx-global/cidoracle/x/oracle/keeper"
	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

// InitGenesis new oracle genesis
func InitGenesis(ctx sdk.Context, k *keeper.Keeper, data types.GenesisState) {
	if err := data.Validate(); err != nil {
		panic(errorsmod.Wrapf(err, "failed to validate %s genesis state", types.ModuleName))
	}

	if err := k.SetParams(ctx, data.Params); err != nil {
		panic(errorsmod.Wrapf(err, "error setting params"))
	}
	k.SetOwnerAddress(ctx, data.OwnerAddress)
	k.SetNonce(ctx, data.Nonce)

	for _, req := range data.Requests {
		k.SetRequest(ctx, req)
	}
	for _, c := range data.Completions {
		k.SetCompletion(ctx, c.ContentReference, c.ResultReference)
	}
}

// ExportGenesis returns a GenesisState for a given context and keeper.
func ExportGenesis(ctx sdk.Context, k *keeper.Keeper) *types.GenesisState {
	gs := types.NewGenesisState(k.GetParams(ctx), k.GetOwnerAddress(ctx))
	gs.Nonce = k.GetNonce(ctx)
	gs.Requests = k.GetRequestsByStatus(ctx, types.StatusUnspecified)
	k.IterateCompletions(ctx, func(c types.Completion) bool {
		gs.Completions = append(gs.Completions, c)
		return false
	})
	return &gs
}
