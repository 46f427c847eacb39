package types

import (
	"crypto/ecdsa"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	TypeMsgFulfill  = "fulfill"
	TypeMsgWithdraw = "withdraw"
)

// Signer produces 65 byte [R || S || V] signatures over a 32 byte digest.
type Signer interface {
	Address() common.Address
	SignHash(digest []byte) ([]byte, error)
}

// MsgFulfill delivers the result of a dispatched request. Payment, CallbackID,
// Expiration and DataHash repeat the terms of the request and must match its
// commitment.
type MsgFulfill struct {
	Caller          common.Address `json:"caller"`
	Handle          common.Hash    `json:"handle"`
	ResultReference string         `json:"result_reference"`
	Payment         string         `json:"payment"`
	Denom           string         `json:"denom"`
	CallbackID      hexutil.Bytes  `json:"callback_id"`
	Expiration      uint64         `json:"expiration"`
	DataHash        common.Hash    `json:"data_hash"`
	Signature       hexutil.Bytes  `json:"signature"`
}

// NewMsgFulfill creates an unsigned MsgFulfill answering req.
func NewMsgFulfill(caller common.Address, req OracleRequest, resultRef string) *MsgFulfill {
	return &MsgFulfill{
		Caller:          caller,
		Handle:          req.Handle,
		ResultReference: resultRef,
		Payment:         req.Payment.Amount.String(),
		Denom:           req.Payment.Denom,
		CallbackID:      req.CallbackID,
		Expiration:      req.Expiration,
		DataHash:        DataHash(req.Data),
	}
}

// Route implements the sdk.Msg interface
func (msg MsgFulfill) Route() string { return RouterKey }

// Type implements the sdk.Msg interface
func (msg MsgFulfill) Type() string { return TypeMsgFulfill }

// PaymentAmount parses the echoed payment.
func (msg MsgFulfill) PaymentAmount() (math.Int, error) {
	amount, ok := math.NewIntFromString(msg.Payment)
	if !ok {
		return math.Int{}, fmt.Errorf("invalid payment amount %q", msg.Payment)
	}
	return amount, nil
}

// GetSignBytes returns the digest signed by the caller.
func (msg MsgFulfill) GetSignBytes() []byte {
	return crypto.Keccak256(
		[]byte(TypeMsgFulfill),
		msg.Caller.Bytes(),
		msg.Handle.Bytes(),
		[]byte(msg.ResultReference),
		[]byte(msg.Payment),
		[]byte(msg.Denom),
		msg.CallbackID,
		NonceToBytes(msg.Expiration),
		msg.DataHash.Bytes(),
	)
}

// Sign sets the signature of msg.
func (msg *MsgFulfill) Sign(key *ecdsa.PrivateKey) error {
	sig, err := crypto.Sign(msg.GetSignBytes(), key)
	if err != nil {
		return err
	}
	msg.Signature = sig
	return nil
}

// SignWith sets the signature of msg using signer, which must be the caller.
func (msg *MsgFulfill) SignWith(signer Signer) error {
	sig, err := signWith(signer, msg.Caller, msg.GetSignBytes())
	if err != nil {
		return err
	}
	msg.Signature = sig
	return nil
}

// VerifySignature checks that the signature recovers to Caller.
func (msg MsgFulfill) VerifySignature() error {
	return verifySignature(msg.GetSignBytes(), msg.Signature, msg.Caller)
}

// ValidateBasic implements the sdk.Msg interface. It does not authenticate
// the caller; Keeper.Fulfill runs it only after the caller is verified.
func (msg MsgFulfill) ValidateBasic() error {
	if msg.Caller == (common.Address{}) {
		return errorsmod.Wrap(ErrUnauthorizedCaller, "caller cannot be empty")
	}
	if msg.Handle == (common.Hash{}) {
		return errorsmod.Wrap(ErrUnknownRequest, "handle cannot be empty")
	}
	payment, err := msg.PaymentAmount()
	if err != nil {
		return errorsmod.Wrap(ErrInvalidCommitment, err.Error())
	}
	if payment.IsNegative() {
		return errorsmod.Wrapf(ErrInvalidCommitment, "negative payment %s", msg.Payment)
	}
	return nil
}

// MsgWithdraw asks for the module balance to be sent to the owner. Deadline
// bounds how long a signed withdraw stays valid.
type MsgWithdraw struct {
	Caller    common.Address `json:"caller"`
	Deadline  uint64         `json:"deadline"`
	Signature hexutil.Bytes  `json:"signature"`
}

func NewMsgWithdraw(caller common.Address, deadline uint64) *MsgWithdraw {
	return &MsgWithdraw{Caller: caller, Deadline: deadline}
}

// Route implements the sdk.Msg interface
func (msg MsgWithdraw) Route() string { return RouterKey }

// Type implements the sdk.Msg interface
func (msg MsgWithdraw) Type() string { return TypeMsgWithdraw }

// GetSignBytes returns the digest signed by the caller.
func (msg MsgWithdraw) GetSignBytes() []byte {
	return crypto.Keccak256(
		[]byte(TypeMsgWithdraw),
		msg.Caller.Bytes(),
		NonceToBytes(msg.Deadline),
	)
}

func (msg *MsgWithdraw) Sign(key *ecdsa.PrivateKey) error {
	sig, err := crypto.Sign(msg.GetSignBytes(), key)
	if err != nil {
		return err
	}
	msg.Signature = sig
	return nil
}

func (msg *MsgWithdraw) SignWith(signer Signer) error {
	sig, err := signWith(signer, msg.Caller, msg.GetSignBytes())
	if err != nil {
		return err
	}
	msg.Signature = sig
	return nil
}

func (msg MsgWithdraw) VerifySignature() error {
	return verifySignature(msg.GetSignBytes(), msg.Signature, msg.Caller)
}

// ValidateBasic implements the sdk.Msg interface
func (msg MsgWithdraw) ValidateBasic() error {
	if msg.Caller == (common.Address{}) {
		return errorsmod.Wrap(ErrUnauthorizedCaller, "caller cannot be empty")
	}
	return nil
}

func signWith(signer Signer, caller common.Address, digest []byte) ([]byte, error) {
	if signer.Address() != caller {
		return nil, errorsmod.Wrapf(ErrUnauthorizedCaller, "signer %s is not caller %s", signer.Address(), caller)
	}
	sig, err := signer.SignHash(digest)
	if err != nil {
		return nil, err
	}
	if err := verifySignature(digest, sig, caller); err != nil {
		return nil, err
	}
	return sig, nil
}

func verifySignature(digest, sig []byte, signer common.Address) error {
	if len(sig) != crypto.SignatureLength {
		return errorsmod.Wrapf(ErrUnauthorizedCaller, "invalid signature length %d", len(sig))
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return errorsmod.Wrapf(ErrUnauthorizedCaller, "failed to recover signer: %v", err)
	}
	if recovered := crypto.PubkeyToAddress(*pub); recovered != signer {
		return errorsmod.Wrapf(ErrUnauthorizedCaller, "signature by %s, expected %s", recovered, signer)
	}
	return nil
}
