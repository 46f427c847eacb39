package keyring

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// BackendFile signs with a secp256k1 key file under the home directory
	BackendFile = "file"
	// BackendKMS signs with an asymmetric AWS KMS key
	BackendKMS = "kms-aws"

	EnvAWSRegion = "AWS_REGION"
)

// IsKMSBackend reports whether backend keeps the key in AWS KMS.
func IsKMSBackend(backend string) bool {
	return backend == BackendKMS
}

// ValidateBackend checks that backend is known.
func ValidateBackend(backend string) error {
	switch backend {
	case BackendFile, BackendKMS:
		return nil
	default:
		return fmt.Errorf("unknown key backend %q, expected %s or %s", backend, BackendFile, BackendKMS)
	}
}

// LocalSigner signs with an in-process private key.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *LocalSigner) Address() common.Address {
	return s.address
}

// SignHash signs a 32 byte digest.
func (s *LocalSigner) SignHash(digest []byte) ([]byte, error) {
	return crypto.Sign(digest, s.key)
}
