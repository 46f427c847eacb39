package keeper

import (
	"encoding/binary"
	"fmt"

	"github.com/cosmos/cosmos-sdk/store/prefix"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

func (k Keeper) SetNonce(ctx sdk.Context, nonce uint64) {
	store := ctx.KVStore(k.storeKey)
	store.Set(types.KeyRequestNonce, types.NonceToBytes(nonce))
}

func (k Keeper) GetNonce(ctx sdk.Context) uint64 {
	store := ctx.KVStore(k.storeKey)
	bz := store.Get(types.KeyRequestNonce)
	if len(bz) == 0 {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}

// SetRequest stores req and keeps the pending index in step with its status.
func (k Keeper) SetRequest(ctx sdk.Context, req types.PendingRequest) {
	store := ctx.KVStore(k.storeKey)

	bz, err := rlp.EncodeToBytes(&req)
	if err != nil {
		panic(fmt.Errorf("failed to encode request %s: %w", req.Handle, err))
	}
	store.Set(types.GetRequestKey(req.Handle), bz)

	pendingKey := types.GetPendingKey(req.Expiration, req.Handle)
	if req.Status == types.StatusDispatched {
		store.Set(pendingKey, []byte{1})
	} else {
		store.Delete(pendingKey)
	}
}

func (k Keeper) GetRequest(ctx sdk.Context, handle common.Hash) (*types.PendingRequest, error) {
	store := ctx.KVStore(k.storeKey)
	bz := store.Get(types.GetRequestKey(handle))
	if len(bz) == 0 {
		return nil, fmt.Errorf("not exist request(handle: %s)", handle)
	}

	var req types.PendingRequest
	if err := rlp.DecodeBytes(bz, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request %s: %w", handle, err)
	}
	return &req, nil
}

// IterateRequests calls cb for every stored request until cb returns true.
func (k Keeper) IterateRequests(ctx sdk.Context, cb func(req types.PendingRequest) (stop bool)) {
	iterator := sdk.KVStorePrefixIterator(ctx.KVStore(k.storeKey), types.KeyRequest)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var req types.PendingRequest
		if err := rlp.DecodeBytes(iterator.Value(), &req); err != nil {
			k.Logger(ctx).Error("skipping undecodable request", "key", common.Bytes2Hex(iterator.Key()), "error", err)
			continue
		}
		if cb(req) {
			break
		}
	}
}

// IteratePending walks dispatched requests in expiration order until cb returns true.
func (k Keeper) IteratePending(ctx sdk.Context, cb func(expiration uint64, handle common.Hash) (stop bool)) {
	iterator := sdk.KVStorePrefixIterator(ctx.KVStore(k.storeKey), types.KeyPending)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		expiration, handle, err := types.ParsePendingKey(iterator.Key())
		if err != nil {
			continue
		}
		if cb(expiration, handle) {
			break
		}
	}
}

func (k Keeper) SetCompletion(ctx sdk.Context, contentRef, resultRef string) {
	store := ctx.KVStore(k.storeKey)
	store.Set(types.GetCompletionKey(contentRef), []byte(resultRef))
}

// GetCompletion returns the result reference recorded for contentRef.
func (k Keeper) GetCompletion(ctx sdk.Context, contentRef string) (string, bool) {
	store := ctx.KVStore(k.storeKey)
	bz := store.Get(types.GetCompletionKey(contentRef))
	if bz == nil {
		return "", false
	}
	return string(bz), true
}

func (k Keeper) IterateCompletions(ctx sdk.Context, cb func(c types.Completion) (stop bool)) {
	store := prefix.NewStore(ctx.KVStore(k.storeKey), types.KeyCompletion)
	iterator := store.Iterator(nil, nil)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		if cb(types.Completion{ContentReference: string(iterator.Key()), ResultReference: string(iterator.Value())}) {
			break
		}
	}
}
