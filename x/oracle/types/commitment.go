package types

import (
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ComputeHandle derives the request handle from the callback address, the
// requester, the content reference, the request nonce and a per-operation salt
// (the last commit hash and block time), so a handle cannot be predicted ahead
// of the operation that creates it.
func ComputeHandle(callback, requester common.Address, contentRef string, nonce uint64, salt []byte) common.Hash {
	return crypto.Keccak256Hash(
		callback.Bytes(),
		requester.Bytes(),
		[]byte(contentRef),
		NonceToBytes(nonce),
		salt,
	)
}

// DataHash is the digest of the fetch instructions of a request.
func DataHash(data string) common.Hash {
	return crypto.Keccak256Hash([]byte(data))
}

// ComputeCommitment binds a handle to the terms it was dispatched with,
// including the fetch instructions. A fulfillment must reproduce the same
// terms to consume the handle.
func ComputeCommitment(
	handle common.Hash,
	payment math.Int,
	denom string,
	callback common.Address,
	callbackID []byte,
	expiration uint64,
	oracle common.Address,
	dataHash common.Hash,
) common.Hash {
	var (
		amount []byte
		sign   byte
	)
	if !payment.IsNil() {
		amount = payment.BigInt().Bytes()
		if payment.IsNegative() {
			sign = 1
		}
	}
	return crypto.Keccak256Hash(
		handle.Bytes(),
		[]byte{sign},
		common.LeftPadBytes(amount, 32),
		[]byte(denom),
		callback.Bytes(),
		callbackID,
		NonceToBytes(expiration),
		oracle.Bytes(),
		dataHash.Bytes(),
	)
}

// Commitment returns the commitment of r when dispatched to oracle.
func (r OracleRequest) Commitment(oracle common.Address) common.Hash {
	return ComputeCommitment(
		r.Handle, r.Payment.Amount, r.Payment.Denom, r.CallbackAddress, r.CallbackID, r.Expiration, oracle, DataHash(r.Data),
	)
}
