package keeper

import (
	"fmt"
	"math/big"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/GPTx-global/cidoracle/x/oracle/types"
)

// paramsRecord is the stored form of types.Params.
type paramsRecord struct {
	FeeDenom      string
	FeeAmount     *big.Int
	JobID         string
	OracleAddress common.Address
	ResolverURL   string
	ResultPath    string
	RequestTTL    uint64
}

// SetParams validates and stores params
func (k Keeper) SetParams(ctx sdk.Context, params types.Params) error {
	if err := params.Validate(); err != nil {
		return errorsmod.Wrap(types.ErrInvalidParams, err.Error())
	}

	bz, err := rlp.EncodeToBytes(&paramsRecord{
		FeeDenom:      params.Fee.Denom,
		FeeAmount:     params.Fee.Amount.BigInt(),
		JobID:         params.JobID,
		OracleAddress: params.OracleAddress,
		ResolverURL:   params.ResolverURL,
		ResultPath:    params.ResultPath,
		RequestTTL:    uint64(params.RequestTTL),
	})
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	store := ctx.KVStore(k.storeKey)
	store.Set(types.KeyParams, bz)
	return nil
}

// GetParams returns the stored params. It panics if genesis never set them.
func (k Keeper) GetParams(ctx sdk.Context) types.Params {
	store := ctx.KVStore(k.storeKey)
	bz := store.Get(types.KeyParams)
	if len(bz) == 0 {
		panic("oracle params not set")
	}

	var rec paramsRecord
	if err := rlp.DecodeBytes(bz, &rec); err != nil {
		panic(fmt.Errorf("failed to decode params: %w", err))
	}
	return types.Params{
		Fee:           sdk.NewCoin(rec.FeeDenom, math.NewIntFromBigInt(rec.FeeAmount)),
		JobID:         rec.JobID,
		OracleAddress: rec.OracleAddress,
		ResolverURL:   rec.ResolverURL,
		ResultPath:    rec.ResultPath,
		RequestTTL:    time.Duration(rec.RequestTTL),
	}
}
