package types

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
)

// Balance is the amount of a single denom held by an address.
type Balance struct {
	Address common.Address `json:"address"`
	Coin    sdk.Coin       `json:"coin"`
}

// GenesisState holds the initial token balances.
type GenesisState struct {
	Balances []Balance `json:"balances"`
}

// DefaultGenesisState returns an empty token genesis
func DefaultGenesisState() *GenesisState {
	return &GenesisState{Balances: []Balance{}}
}

// Validate performs basic genesis state validation
func (gs GenesisState) Validate() error {
	seen := make(map[string]bool, len(gs.Balances))
	for _, b := range gs.Balances {
		if b.Address == (common.Address{}) {
			return fmt.Errorf("balance with zero address")
		}
		if err := b.Coin.Validate(); err != nil {
			return fmt.Errorf("invalid balance for %s: %w", b.Address, err)
		}
		key := b.Address.Hex() + "/" + b.Coin.Denom
		if seen[key] {
			return fmt.Errorf("duplicate balance for %s", key)
		}
		seen[key] = true
	}
	return nil
}
