package types

import (
	errorsmod "cosmossdk.io/errors"
)

// errors
var (
	ErrInsufficientFunds       = errorsmod.Register(ModuleName, 2, "insufficient funds for oracle fee")
	ErrDispatchFailure         = errorsmod.Register(ModuleName, 3, "oracle dispatch failed")
	ErrUnauthorizedCaller      = errorsmod.Register(ModuleName, 4, "unauthorized caller")
	ErrUnknownRequest          = errorsmod.Register(ModuleName, 5, "unknown request")
	ErrTransferFailure         = errorsmod.Register(ModuleName, 6, "token transfer failed")
	ErrInvalidContentReference = errorsmod.Register(ModuleName, 7, "invalid content reference")
	ErrInvalidCommitment       = errorsmod.Register(ModuleName, 8, "invalid commitment")
	ErrInvalidParams           = errorsmod.Register(ModuleName, 9, "invalid params")
	ErrNotFound                = errorsmod.Register(ModuleName, 10, "not found")
)
