package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// GenesisState is the exported state of the oracle module.
type GenesisState struct {
	Params       Params           `json:"params"`
	OwnerAddress common.Address   `json:"owner_address"`
	Nonce        uint64           `json:"nonce"`
	Requests     []PendingRequest `json:"requests"`
	Completions  []Completion     `json:"completions"`
}

// NewGenesisState creates a new genesis state.
func NewGenesisState(params Params, owner common.Address) GenesisState {
	return GenesisState{
		Params:       params,
		OwnerAddress: owner,
		Requests:     []PendingRequest{},
		Completions:  []Completion{},
	}
}

// DefaultGenesisState returns a default genesis state. Owner and oracle must be
// filled in before it validates.
func DefaultGenesisState() *GenesisState {
	gs := NewGenesisState(DefaultParams(), common.Address{})
	return &gs
}

// Validate performs basic genesis state validation returning an error upon any
// failure.
func (gs GenesisState) Validate() error {
	if err := gs.Params.Validate(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	if gs.OwnerAddress == (common.Address{}) {
		return fmt.Errorf("owner address cannot be empty")
	}

	handles := make(map[common.Hash]bool, len(gs.Requests))
	for _, req := range gs.Requests {
		if err := req.Validate(); err != nil {
			return fmt.Errorf("invalid request: %w", err)
		}
		if handles[req.Handle] {
			return fmt.Errorf("duplicate request handle %s", req.Handle)
		}
		handles[req.Handle] = true
	}

	refs := make(map[string]bool, len(gs.Completions))
	for _, c := range gs.Completions {
		if c.ContentReference == "" {
			return fmt.Errorf("completion with empty content reference")
		}
		if refs[c.ContentReference] {
			return fmt.Errorf("duplicate completion for %s", c.ContentReference)
		}
		refs[c.ContentReference] = true
	}
	return nil
}
