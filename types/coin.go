package types

import (
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/pkg/errors"

	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

// NewFeeCoin returns a coin in the default fee denomination.
// It panics if the amount is negative.
func NewFeeCoin(amount sdkmath.Int) sdk.Coin {
	return sdk.NewCoin(oracletypes.DefaultDenom, amount)
}

// NewFeeCoinInt64 is NewFeeCoin for an int64 amount.
func NewFeeCoinInt64(amount int64) sdk.Coin {
	return sdk.NewInt64Coin(oracletypes.DefaultDenom, amount)
}

// ParseCoin parses "100ucid". A bare integer is read in the default denomination.
func ParseCoin(s string) (sdk.Coin, error) {
	if amount, ok := sdkmath.NewIntFromString(s); ok {
		if amount.IsNegative() {
			return sdk.Coin{}, errors.Errorf("negative amount %s", s)
		}
		return NewFeeCoin(amount), nil
	}
	coin, err := sdk.ParseCoinNormalized(s)
	if err != nil {
		return sdk.Coin{}, errors.Wrapf(err, "parse coin %q", s)
	}
	return coin, nil
}
