package crypto

import (
	"crypto/ecdsa"
	"crypto/rsa"
)

// VerifyRsaSignature2018 is not implemented and always fails closed.
func VerifyRsaSignature2018(_ *rsa.PublicKey, _ []byte, _ string) bool {
	return false
}

// VerifyEcdsaSecp256k1Signature2019 is not implemented and always fails closed.
func VerifyEcdsaSecp256k1Signature2019(_ *ecdsa.PublicKey, _ []byte, _ string) bool {
	return false
}
