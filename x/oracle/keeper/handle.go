package keeper

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

// nextHandle advances the request nonce and derives a fresh handle from it.
// The nonce rolls back with a failed operation, so the handle is also salted
// with the last commit hash and the block time.
func (k Keeper) nextHandle(ctx sdk.Context, requester common.Address, contentRef string) (common.Hash, uint64) {
	nonce := k.GetNonce(ctx) + 1
	k.SetNonce(ctx, nonce)
	return types.ComputeHandle(types.ModuleAddress, requester, contentRef, nonce, handleSalt(ctx)), nonce
}

func handleSalt(ctx sdk.Context) []byte {
	salt := append([]byte{}, ctx.BlockHeader().AppHash...)
	return append(salt, types.NonceToBytes(uint64(ctx.BlockTime().UnixNano()))...)
}
