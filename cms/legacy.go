package cms

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
)

// Errors specific to the legacy adbe.x509.rsa_sha1 signature phase
// (spec §4.E.4).
var (
	ErrNoRSAPublicKey  = errors.New("cms: signer certificate does not carry an RSA public key")
	ErrMalformedPKCS1  = errors.New("cms: decrypted RSA block is not valid PKCS#1 v1.5 padding")
	ErrDigestInfoParse = errors.New("cms: could not parse DigestInfo from decrypted RSA block")
	ErrLegacyDigestMismatch = errors.New("cms: computed digest does not match DigestInfo digest")
)

// digestInfo is the PKCS#1 DigestInfo structure RFC 8017 §9.2 embeds
// inside an RSA PKCS#1 v1.5 signature.
type digestInfo struct {
	Algorithm AlgorithmIdentifier
	Digest    []byte
}

// VerifyLegacyRSASignature implements the adbe.x509.rsa_sha1 signature
// phase: contents is the signature dictionary's /Contents value,
// expected to be a DER OCTET STRING wrapping a raw PKCS#1 v1.5
// RSA-signed DigestInfo. signedBytes is the byte-range-assembled
// document content.
//
// Unlike every other verification path in this package, there is no
// CMS/PKCS#7 framing to lean on crypto/x509.Certificate.CheckSignature
// with: the digest algorithm isn't known ahead of time, it's read back
// out of the decrypted DigestInfo, so the RSA public-key operation and
// PKCS#1 depadding are done by hand here, matching spec §4.E.4
// exactly.
func VerifyLegacyRSASignature(leaf *x509.Certificate, contents []byte, signedBytes []byte) error {
	pub, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok {
		return ErrNoRSAPublicKey
	}

	sigBlock := contents
	var octet []byte
	if _, err := asn1.Unmarshal(contents, &octet); err == nil {
		sigBlock = octet
	}

	em, err := rsaPublicDecrypt(pub, sigBlock)
	if err != nil {
		return fmt.Errorf("cms: RSA public-decrypt: %w", err)
	}

	payload, err := stripPKCS1Padding(em)
	if err != nil {
		return err
	}

	var info digestInfo
	if _, err := asn1.Unmarshal(payload, &info); err != nil {
		return ErrDigestInfoParse
	}

	hashAlg, err := hashAlgorithmFor(info.Algorithm.Algorithm)
	if err != nil {
		return ErrUnsupportedAlgorithm
	}
	computed, err := digestBytes(hashAlg, signedBytes)
	if err != nil {
		return ErrUnsupportedAlgorithm
	}

	if !bytesEqual(computed, info.Digest) {
		return ErrLegacyDigestMismatch
	}
	return nil
}

// rsaPublicDecrypt performs the textbook RSA public-key operation
// m = c^e mod n, left-padded to the modulus size, as PKCS#1 v1.5
// signature verification's first step.
func rsaPublicDecrypt(pub *rsa.PublicKey, sig []byte) ([]byte, error) {
	if len(sig) == 0 {
		return nil, errors.New("cms: empty signature block")
	}
	c := new(big.Int).SetBytes(sig)
	if c.Cmp(pub.N) >= 0 {
		return nil, errors.New("cms: signature integer out of range for modulus")
	}
	m := new(big.Int).Exp(c, big.NewInt(int64(pub.E)), pub.N)

	k := (pub.N.BitLen() + 7) / 8
	em := make([]byte, k)
	m.FillBytes(em)
	return em, nil
}

// stripPKCS1Padding validates and removes PKCS#1 v1.5 signature
// padding (0x00 0x01 FF...FF 0x00 <payload>), returning <payload>.
func stripPKCS1Padding(em []byte) ([]byte, error) {
	if len(em) < 11 || em[0] != 0x00 || em[1] != 0x01 {
		return nil, ErrMalformedPKCS1
	}
	i := 2
	for i < len(em) && em[i] == 0xFF {
		i++
	}
	if i < 10 || i >= len(em) || em[i] != 0x00 {
		return nil, ErrMalformedPKCS1
	}
	return em[i+1:], nil
}
