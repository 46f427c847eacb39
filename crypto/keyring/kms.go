package keyring

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	pkgerrors "github.com/pkg/errors"
)

const (
	KMSKeySpec       = kms.KeySpecEccSecgP256k1
	KMSKeyUsage      = kms.KeyUsageTypeSignVerify
	SigningAlgorithm = kms.SigningAlgorithmSpecEcdsaSha256

	KMSTagApplication = "Application"
	KMSTagKeyType     = "KeyType"
	KMSTagCreatedBy   = "CreatedBy"
)

var (
	ErrRegionNotSet  = errors.New("AWS region is not set")
	ErrInvalidKeyID  = errors.New("invalid KMS key id")
	ErrSigningFailed = errors.New("KMS signing failed")
	ErrInvalidPubKey = errors.New("KMS key is not a secp256k1 public key")

	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// KMSAPI is the subset of the KMS client used by KMSSigner.
type KMSAPI interface {
	CreateKey(*kms.CreateKeyInput) (*kms.CreateKeyOutput, error)
	GetPublicKey(*kms.GetPublicKeyInput) (*kms.GetPublicKeyOutput, error)
	Sign(*kms.SignInput) (*kms.SignOutput, error)
}

// NewKMSClient creates a KMS client for region.
func NewKMSClient(region string) (*kms.KMS, error) {
	if region == "" {
		return nil, ErrRegionNotSet
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return kms.New(sess), nil
}

// CreateKMSKey creates a secp256k1 signing key tagged with createdBy and
// returns its key id.
func CreateKMSKey(client KMSAPI, createdBy string) (string, error) {
	out, err := client.CreateKey(&kms.CreateKeyInput{
		KeySpec:     aws.String(KMSKeySpec),
		KeyUsage:    aws.String(KMSKeyUsage),
		Description: aws.String(fmt.Sprintf("cidoracle key for %s", createdBy)),
		Tags: []*kms.Tag{
			{TagKey: aws.String(KMSTagApplication), TagValue: aws.String("cidoracle")},
			{TagKey: aws.String(KMSTagKeyType), TagValue: aws.String("secp256k1")},
			{TagKey: aws.String(KMSTagCreatedBy), TagValue: aws.String(createdBy)},
		},
	})
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to create KMS key")
	}
	if out.KeyMetadata == nil || out.KeyMetadata.KeyId == nil {
		return "", ErrInvalidKeyID
	}
	return *out.KeyMetadata.KeyId, nil
}

// KMSSigner signs digests with a secp256k1 key that never leaves KMS.
type KMSSigner struct {
	client  KMSAPI
	keyID   string
	pubKey  []byte
	address common.Address

	mu sync.Mutex
}

// NewKMSSigner loads the public key of keyID and derives its address.
func NewKMSSigner(client KMSAPI, keyID string) (*KMSSigner, error) {
	if keyID == "" {
		return nil, ErrInvalidKeyID
	}
	out, err := client.GetPublicKey(&kms.GetPublicKeyInput{KeyId: aws.String(keyID)})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get public key of %s", keyID)
	}

	pubKey, err := parsePublicKey(out.PublicKey)
	if err != nil {
		return nil, err
	}
	return &KMSSigner{
		client:  client,
		keyID:   keyID,
		pubKey:  crypto.FromECDSAPub(pubKey),
		address: crypto.PubkeyToAddress(*pubKey),
	}, nil
}

func (s *KMSSigner) Address() common.Address {
	return s.address
}

func (s *KMSSigner) KeyID() string {
	return s.keyID
}

// SignHash asks KMS to sign digest and converts the DER signature into the
// recoverable form with a low S value.
func (s *KMSSigner) SignHash(digest []byte) ([]byte, error) {
	if len(digest) != common.HashLength {
		return nil, fmt.Errorf("digest must be %d bytes, got %d", common.HashLength, len(digest))
	}

	s.mu.Lock()
	out, err := s.client.Sign(&kms.SignInput{
		KeyId:            aws.String(s.keyID),
		Message:          digest,
		MessageType:      aws.String(kms.MessageTypeDigest),
		SigningAlgorithm: aws.String(SigningAlgorithm),
	})
	s.mu.Unlock()
	if err != nil {
		return nil, pkgerrors.Wrap(err, ErrSigningFailed.Error())
	}

	r, sv, err := parseSignature(out.Signature)
	if err != nil {
		return nil, err
	}
	if sv.Cmp(secp256k1HalfN) > 0 {
		sv = new(big.Int).Sub(secp256k1N, sv)
	}

	sig := make([]byte, crypto.SignatureLength)
	r.FillBytes(sig[:32])
	sv.FillBytes(sig[32:64])
	for v := byte(0); v < 2; v++ {
		sig[64] = v
		pub, err := crypto.Ecrecover(digest, sig)
		if err == nil && bytes.Equal(pub, s.pubKey) {
			return sig, nil
		}
	}
	return nil, fmt.Errorf("%w: signature does not recover to %s", ErrSigningFailed, s.address.Hex())
}

type subjectPublicKeyInfo struct {
	Algorithm struct {
		Algorithm  asn1.ObjectIdentifier
		Parameters asn1.ObjectIdentifier
	}
	PublicKey asn1.BitString
}

type ecdsaSignature struct {
	R, S *big.Int
}

func parsePublicKey(der []byte) (*ecdsa.PublicKey, error) {
	var info subjectPublicKeyInfo
	if _, err := asn1.Unmarshal(der, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}
	pubKey, err := crypto.UnmarshalPubkey(info.PublicKey.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}
	return pubKey, nil
}

func parseSignature(der []byte) (*big.Int, *big.Int, error) {
	var sig ecdsaSignature
	if _, err := asn1.Unmarshal(der, &sig); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	if sig.R == nil || sig.S == nil || sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: malformed signature", ErrSigningFailed)
	}
	return sig.R, sig.S, nil
}
