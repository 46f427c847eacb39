package types

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// ModuleName defines the module name
	ModuleName = "oracle"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// RouterKey defines the module's message routing key
	RouterKey = ModuleName

	// FulfillSignature is the entry point named as callback in every dispatched request
	FulfillSignature = "fulfill(bytes32,string)"
)

// KV Store key prefix bytes
const (
	prefixParams = iota + 1
	prefixOwnerAddress
	prefixRequest
	prefixRequestNonce
	prefixCompletion
	prefixPending
)

// KV Store key prefixes
var (
	KeyParams       = []byte{prefixParams}
	KeyOwnerAddress = []byte{prefixOwnerAddress}
	KeyRequest      = []byte{prefixRequest}
	KeyRequestNonce = []byte{prefixRequestNonce}
	KeyCompletion   = []byte{prefixCompletion}
	KeyPending      = []byte{prefixPending}
)

var (
	// ModuleAddress is the account holding the fee balance; it is also the callback address of every request.
	ModuleAddress = common.BytesToAddress(crypto.Keccak256([]byte(ModuleName))[12:])

	// FulfillSelector is the 4-byte callback id of FulfillSignature.
	FulfillSelector = crypto.Keccak256([]byte(FulfillSignature))[:4]
)

func NonceToBytes(nonce uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, nonce)
	return bz
}

// GetRequestKey returns the key for storing a request record
func GetRequestKey(handle common.Hash) []byte {
	return append(append([]byte{}, KeyRequest...), handle.Bytes()...)
}

// GetCompletionKey returns the key for storing the result of a content reference
func GetCompletionKey(contentRef string) []byte {
	return append(append([]byte{}, KeyCompletion...), []byte(contentRef)...)
}

// GetPendingKey returns the index key of a dispatched request, ordered by expiration
func GetPendingKey(expiration uint64, handle common.Hash) []byte {
	key := append(append([]byte{}, KeyPending...), NonceToBytes(expiration)...)
	return append(key, handle.Bytes()...)
}

// ParsePendingKey parses a pending index key and returns the expiration and handle
func ParsePendingKey(key []byte) (uint64, common.Hash, error) {
	if len(key) != 1+8+common.HashLength {
		return 0, common.Hash{}, fmt.Errorf("invalid pending key length: %d", len(key))
	}
	return binary.BigEndian.Uint64(key[1:9]), common.BytesToHash(key[9:]), nil
}
