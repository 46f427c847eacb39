package types

import (
	"github.com/ethereum/go-ethereum/common"
)

const (
	// ModuleName defines the module name
	ModuleName = "token"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName
)

// KV Store key prefix bytes
const (
	prefixBalance = iota + 1
	prefixSupply
)

// KV Store key prefixes
var (
	KeyBalance = []byte{prefixBalance}
	KeySupply  = []byte{prefixSupply}
)

// GetBalancePrefix returns the prefix under which all balances of an address are stored
func GetBalancePrefix(addr common.Address) []byte {
	return append(append([]byte{}, KeyBalance...), addr.Bytes()...)
}

// GetBalanceKey returns the key for storing the balance of addr in denom
func GetBalanceKey(addr common.Address, denom string) []byte {
	return append(GetBalancePrefix(addr), []byte(denom)...)
}

// ParseBalanceKey splits a balance key into address and denom
func ParseBalanceKey(key []byte) (common.Address, string) {
	key = key[len(KeyBalance):]
	return common.BytesToAddress(key[:common.AddressLength]), string(key[common.AddressLength:])
}

// GetSupplyKey returns the key for storing the total supply of denom
func GetSupplyKey(denom string) []byte {
	return append(append([]byte{}, KeySupply...), []byte(denom)...)
}
