package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
)

// TokenKeeper defines the payment token operations the oracle module needs
type TokenKeeper interface {
	GetBalance(ctx sdk.Context, addr common.Address, denom string) sdk.Coin
	SendCoin(ctx sdk.Context, from, to common.Address, coin sdk.Coin) error
}

// OracleDispatcher hands a request to the oracle. Dispatch must not block on the job itself.
type OracleDispatcher interface {
	Dispatch(req OracleRequest) error
}

// DispatcherFunc adapts a function to OracleDispatcher
type DispatcherFunc func(req OracleRequest) error

func (f DispatcherFunc) Dispatch(req OracleRequest) error {
	return f(req)
}
