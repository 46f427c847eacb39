package types

import (
	errorsmod "cosmossdk.io/errors"
)

// errors
var (
	ErrInsufficientBalance = errorsmod.Register(ModuleName, 2, "insufficient balance")
	ErrInvalidRecipient    = errorsmod.Register(ModuleName, 3, "invalid recipient address")
	ErrInvalidCoin         = errorsmod.Register(ModuleName, 4, "invalid coin")
)
