package certinfo

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"
)

func selfSignedRSA(t *testing.T, subject pkix.Name, keyUsage x509.KeyUsage, omitKeyUsage bool) (*x509.Certificate, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      subject,
		NotBefore:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2033, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:     keyUsage,
	}
	if omitKeyUsage {
		tmpl.KeyUsage = 0
		// x509.CreateCertificate only emits the KeyUsage extension when
		// KeyUsage is non-zero, so leaving it at zero suffices to omit it.
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	return cert, der
}

func TestExtractCoreFields(t *testing.T) {
	subject := pkix.Name{
		CommonName:   "Jane Doe",
		Organization: []string{"Acme Corp"},
		Country:      []string{"US"},
	}
	cert, _ := selfSignedRSA(t, subject, x509.KeyUsageDigitalSignature|x509.KeyUsageKeyEncipherment, false)

	info := Extract(cert)

	if info.PublicKey != PublicKeyRSA {
		t.Errorf("PublicKey = %v, want RSA", info.PublicKey)
	}
	if info.KeySize != 2048 {
		t.Errorf("KeySize = %d, want 2048", info.KeySize)
	}
	if info.DN[CommonName] != "Jane Doe" {
		t.Errorf("CommonName = %q", info.DN[CommonName])
	}
	if info.DN[OrganizationName] != "Acme Corp" {
		t.Errorf("OrganizationName = %q", info.DN[OrganizationName])
	}
	if info.DN[CountryName] != "US" {
		t.Errorf("CountryName = %q", info.DN[CountryName])
	}
	if info.DN[DistinguishedName] == "" {
		t.Error("expected DistinguishedName to be populated")
	}
	if !info.KeyUsage.Has(KeyUsageDigitalSignature) {
		t.Error("expected KeyUsageDigitalSignature bit set")
	}
	if !info.KeyUsage.Has(KeyUsageKeyEncipherment) {
		t.Error("expected KeyUsageKeyEncipherment bit set")
	}
	if info.KeyUsage.Has(KeyUsageCertSign) {
		t.Error("did not expect KeyUsageCertSign bit set")
	}
}

func TestExtractKeyUsageAbsentSentinel(t *testing.T) {
	cert, _ := selfSignedRSA(t, pkix.Name{CommonName: "No Usage"}, 0, true)

	info := Extract(cert)
	if info.KeyUsage != KeyUsageNotPresent {
		t.Errorf("KeyUsage = %#x, want KeyUsageNotPresent sentinel", uint16(info.KeyUsage))
	}
}

func TestFromDERRoundTrip(t *testing.T) {
	_, der := selfSignedRSA(t, pkix.Name{CommonName: "Round Trip"}, x509.KeyUsageDigitalSignature, false)

	info, ok := FromDER(der)
	if !ok {
		t.Fatal("FromDER returned ok=false for a valid certificate")
	}
	if info.DN[CommonName] != "Round Trip" {
		t.Errorf("CommonName = %q", info.DN[CommonName])
	}
}

func TestFromDERMalformedReturnsNotOK(t *testing.T) {
	_, ok := FromDER([]byte{0x00, 0x01, 0x02})
	if ok {
		t.Error("expected ok=false for malformed DER")
	}
}

func TestEqualComparesDNValidityAndDER(t *testing.T) {
	_, der := selfSignedRSA(t, pkix.Name{CommonName: "Same"}, x509.KeyUsageDigitalSignature, false)
	a, _ := FromDER(der)
	b, _ := FromDER(der)

	if !a.Equal(*b) {
		t.Error("expected identical certificates to be Equal")
	}

	_, otherDER := selfSignedRSA(t, pkix.Name{CommonName: "Different"}, x509.KeyUsageDigitalSignature, false)
	c, _ := FromDER(otherDER)
	if a.Equal(*c) {
		t.Error("expected different certificates to not be Equal")
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	cert, _ := selfSignedRSA(t, pkix.Name{
		CommonName:   "Serialize Me",
		Organization: []string{"Acme Corp"},
		Country:      []string{"US"},
	}, x509.KeyUsageDigitalSignature|x509.KeyUsageCertSign, false)
	info := Extract(cert)

	encoded := info.Serialize()
	decoded, err := Deserialize(encoded)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if !info.Equal(*decoded) {
		t.Error("round-tripped CertificateInfo is not Equal to the original")
	}
	if decoded.KeyUsage != info.KeyUsage {
		t.Errorf("KeyUsage = %#x, want %#x", uint16(decoded.KeyUsage), uint16(info.KeyUsage))
	}
	if decoded.PublicKey != info.PublicKey || decoded.KeySize != info.KeySize {
		t.Errorf("PublicKey/KeySize = %v/%d, want %v/%d", decoded.PublicKey, decoded.KeySize, info.PublicKey, info.KeySize)
	}
}
