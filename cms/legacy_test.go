package cms

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"
	"time"
)

func legacySignerCert(t *testing.T) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "Legacy RSA Signer"},
		NotBefore:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2033, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	return cert, key
}

// buildLegacyContents signs signedBytes's SHA-256 digest with key and
// wraps the PKCS#1 v1.5 signature in a DER OCTET STRING, the shape
// adbe.x509.rsa_sha1's /Contents takes.
func buildLegacyContents(t *testing.T, key *rsa.PrivateKey, signedBytes []byte) []byte {
	t.Helper()
	digest := sha256.Sum256(signedBytes)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("SignPKCS1v15: %v", err)
	}
	wrapped, err := asn1.Marshal(sig)
	if err != nil {
		t.Fatalf("marshal octet string: %v", err)
	}
	return wrapped
}

func TestVerifyLegacyRSASignatureValid(t *testing.T) {
	cert, key := legacySignerCert(t)
	content := []byte("legacy signed document bytes")
	contents := buildLegacyContents(t, key, content)

	if err := VerifyLegacyRSASignature(cert, contents, content); err != nil {
		t.Fatalf("VerifyLegacyRSASignature: %v", err)
	}
}

func TestVerifyLegacyRSASignatureTamperedContentFails(t *testing.T) {
	cert, key := legacySignerCert(t)
	content := []byte("legacy signed document bytes")
	contents := buildLegacyContents(t, key, content)

	err := VerifyLegacyRSASignature(cert, contents, []byte("different bytes entirely"))
	if err != ErrLegacyDigestMismatch {
		t.Fatalf("err = %v, want ErrLegacyDigestMismatch", err)
	}
}

func TestVerifyLegacyRSASignatureMalformedContentsFails(t *testing.T) {
	cert, _ := legacySignerCert(t)
	err := VerifyLegacyRSASignature(cert, []byte{0x01, 0x02, 0x03}, []byte("content"))
	if err == nil {
		t.Fatal("expected an error for malformed contents")
	}
}

func TestVerifyLegacyRSASignatureNonRSAKeyFails(t *testing.T) {
	// A certificate whose public key isn't RSA should be rejected before
	// any ASN.1 work happens.
	cert, _ := legacySignerCert(t)
	cert.PublicKey = "not an rsa key"

	err := VerifyLegacyRSASignature(cert, []byte{0x00}, []byte("content"))
	if err != ErrNoRSAPublicKey {
		t.Fatalf("err = %v, want ErrNoRSAPublicKey", err)
	}
}
