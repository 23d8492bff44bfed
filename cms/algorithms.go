package cms

import (
	"crypto"
	"crypto/x509"
	"encoding/asn1"
)

// hashAlgorithmFor maps a digest algorithm OID to a crypto.Hash.
func hashAlgorithmFor(oid asn1.ObjectIdentifier) (crypto.Hash, error) {
	switch {
	case oid.Equal(OIDSHA1):
		return crypto.SHA1, nil
	case oid.Equal(OIDSHA256):
		return crypto.SHA256, nil
	case oid.Equal(OIDSHA384):
		return crypto.SHA384, nil
	case oid.Equal(OIDSHA512):
		return crypto.SHA512, nil
	default:
		return 0, ErrUnsupportedAlgorithm
	}
}

// digestBytes hashes data with alg, after confirming alg is linked
// into the binary (crypto.Hash.Available).
func digestBytes(alg crypto.Hash, data []byte) ([]byte, error) {
	if !alg.Available() {
		return nil, ErrUnsupportedAlgorithm
	}
	h := alg.New()
	h.Write(data)
	return h.Sum(nil), nil
}

// signatureAlgorithmFor resolves the x509.SignatureAlgorithm that
// CheckSignature needs, from the signer's public key algorithm, the
// SignerInfo's signatureAlgorithm OID, and its digestAlgorithm OID.
//
// Some signers use a combined hash+key OID directly in
// signatureAlgorithm (e.g. sha256WithRSAEncryption); others use a bare
// key-type OID (rsaEncryption, id-ecPublicKey) and leave the hash to
// be read from digestAlgorithm instead. Both forms are handled, unlike
// the teacher's RSA-only switch, so ECDSA and Ed25519 signer
// certificates verify through the same call as RSA ones.
func signatureAlgorithmFor(pubKeyAlg x509.PublicKeyAlgorithm, sigOID, digestOID asn1.ObjectIdentifier) (x509.SignatureAlgorithm, error) {
	switch {
	case sigOID.Equal(OIDSHA1WithRSA):
		return x509.SHA1WithRSA, nil
	case sigOID.Equal(OIDSHA256WithRSA):
		return x509.SHA256WithRSA, nil
	case sigOID.Equal(OIDSHA384WithRSA):
		return x509.SHA384WithRSA, nil
	case sigOID.Equal(OIDSHA512WithRSA):
		return x509.SHA512WithRSA, nil
	case sigOID.Equal(OIDECDSAWithSHA1):
		return x509.ECDSAWithSHA1, nil
	case sigOID.Equal(OIDECDSAWithSHA256):
		return x509.ECDSAWithSHA256, nil
	case sigOID.Equal(OIDECDSAWithSHA384):
		return x509.ECDSAWithSHA384, nil
	case sigOID.Equal(OIDECDSAWithSHA512):
		return x509.ECDSAWithSHA512, nil
	case sigOID.Equal(OIDEd25519):
		return x509.PureEd25519, nil
	}

	// Bare key-type OID: combine with the digest algorithm field and,
	// as a fallback, the certificate's own public key algorithm.
	switch {
	case sigOID.Equal(OIDRSAEncryption) || pubKeyAlg == x509.RSA:
		return combineRSA(digestOID)
	case sigOID.Equal(OIDECPublicKey) || pubKeyAlg == x509.ECDSA:
		return combineECDSA(digestOID)
	case pubKeyAlg == x509.Ed25519:
		return x509.PureEd25519, nil
	}

	return x509.UnknownSignatureAlgorithm, ErrUnsupportedAlgorithm
}

func combineRSA(digestOID asn1.ObjectIdentifier) (x509.SignatureAlgorithm, error) {
	switch {
	case digestOID.Equal(OIDSHA1):
		return x509.SHA1WithRSA, nil
	case digestOID.Equal(OIDSHA256):
		return x509.SHA256WithRSA, nil
	case digestOID.Equal(OIDSHA384):
		return x509.SHA384WithRSA, nil
	case digestOID.Equal(OIDSHA512):
		return x509.SHA512WithRSA, nil
	default:
		return x509.UnknownSignatureAlgorithm, ErrUnsupportedAlgorithm
	}
}

func combineECDSA(digestOID asn1.ObjectIdentifier) (x509.SignatureAlgorithm, error) {
	switch {
	case digestOID.Equal(OIDSHA1):
		return x509.ECDSAWithSHA1, nil
	case digestOID.Equal(OIDSHA256):
		return x509.ECDSAWithSHA256, nil
	case digestOID.Equal(OIDSHA384):
		return x509.ECDSAWithSHA384, nil
	case digestOID.Equal(OIDSHA512):
		return x509.ECDSAWithSHA512, nil
	default:
		return x509.UnknownSignatureAlgorithm, ErrUnsupportedAlgorithm
	}
}
