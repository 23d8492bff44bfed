// Package certinfo implements component B, the certificate info
// extractor: it turns a parsed X.509 certificate into a flat,
// serializable CertificateInfo value, independent of the crypto/x509
// representation it was read from.
package certinfo

import (
	"bytes"
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/unicode/norm"
)

// currentSerializationVersion is written as the leading version
// integer of Serialize's output. Deserialize ignores the value it
// reads back, per spec: the field is a forward-compatibility
// placeholder, and fields are always decoded by fixed position.
const currentSerializationVersion = 1

// PublicKeyType classifies the certificate's subject public key.
type PublicKeyType int

const (
	PublicKeyUnknown PublicKeyType = iota
	PublicKeyRSA
	PublicKeyDSA
	PublicKeyDH
	PublicKeyEC
)

// DNField names one attribute of a certificate's distinguished name.
type DNField int

const (
	CountryName DNField = iota
	OrganizationName
	OrganizationalUnitName
	DistinguishedName
	StateOrProvinceName
	CommonName
	SerialNumber
	LocalityName
	Title
	Surname
	GivenName
	Initials
	Pseudonym
	GenerationalQualifier
	Email
)

// dnFieldOrder is the fixed field order used by Serialize/Deserialize.
var dnFieldOrder = []DNField{
	CountryName, OrganizationName, OrganizationalUnitName, DistinguishedName,
	StateOrProvinceName, CommonName, SerialNumber, LocalityName, Title,
	Surname, GivenName, Initials, Pseudonym, GenerationalQualifier, Email,
}

// dnFieldOIDs maps a DNField to the RDN attribute OID that carries it.
// DistinguishedName has no single OID: it's synthesized from the whole
// subject name (see extractDistinguishedNames).
var dnFieldOIDs = map[DNField]asn1.ObjectIdentifier{
	CountryName:            {2, 5, 4, 6},
	OrganizationName:       {2, 5, 4, 10},
	OrganizationalUnitName: {2, 5, 4, 11},
	StateOrProvinceName:    {2, 5, 4, 8},
	CommonName:             {2, 5, 4, 3},
	SerialNumber:           {2, 5, 4, 5},
	LocalityName:           {2, 5, 4, 7},
	Title:                  {2, 5, 4, 12},
	Surname:                {2, 5, 4, 4},
	GivenName:              {2, 5, 4, 42},
	Initials:               {2, 5, 4, 43},
	Pseudonym:              {2, 5, 4, 65},
	GenerationalQualifier:  {2, 5, 4, 44},
	Email:                  {1, 2, 840, 113549, 1, 9, 1},
}

// KeyUsage is a bit set whose positions match the RFC 5280 key-usage
// bits exactly.
type KeyUsage uint16

const (
	KeyUsageDigitalSignature KeyUsage = 1 << iota
	KeyUsageNonRepudiation
	KeyUsageKeyEncipherment
	KeyUsageDataEncipherment
	KeyUsageAgreement
	KeyUsageCertSign
	KeyUsageCrlSign
	KeyUsageEncipherOnly
	KeyUsageDecipherOnly
)

// KeyUsageNotPresent is the all-ones sentinel meaning the key usage
// extension was absent from the certificate. It is not reachable by
// setting every real bit, since only 9 bits are defined, so it can
// always be told apart from "every defined usage granted".
const KeyUsageNotPresent = KeyUsage(0xFFFF)

var oidKeyUsage = asn1.ObjectIdentifier{2, 5, 29, 15}

// Has reports whether bit is set in k.
func (k KeyUsage) Has(bit KeyUsage) bool { return k&bit != 0 }

// CertificateInfo is the value this package produces from a single
// X.509 certificate (spec §3). Two values are equal, for trust-store
// deduplication purposes, when Equal reports true.
type CertificateInfo struct {
	Version   int
	KeySize   int
	PublicKey PublicKeyType

	DN map[DNField]string

	NotValidBefore time.Time
	NotValidAfter  time.Time

	KeyUsage KeyUsage

	// CertificateData is the exact DER bytes the certificate was
	// parsed from, kept so the certificate can be reconstructed later.
	CertificateData []byte
}

// Extract builds a CertificateInfo from an already-parsed certificate.
func Extract(cert *x509.Certificate) CertificateInfo {
	info := CertificateInfo{
		Version:         cert.Version,
		DN:              extractDistinguishedNames(cert.Subject),
		NotValidBefore:  cert.NotBefore.UTC(),
		NotValidAfter:   cert.NotAfter.UTC(),
		CertificateData: append([]byte(nil), cert.Raw...),
	}
	info.PublicKey, info.KeySize = extractPublicKeyInfo(cert.PublicKey)
	info.KeyUsage = extractKeyUsage(cert)
	return info
}

// FromDER parses a DER-encoded certificate and extracts its info. It
// returns ok=false, not an error, on a malformed blob — mirroring the
// GUI-facing inspection convenience described in spec §6.2.
func FromDER(der []byte) (*CertificateInfo, bool) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, false
	}
	info := Extract(cert)
	return &info, true
}

func extractPublicKeyInfo(pub interface{}) (PublicKeyType, int) {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		return PublicKeyRSA, key.N.BitLen()
	case *dsa.PublicKey:
		return PublicKeyDSA, key.P.BitLen()
	case *ecdsa.PublicKey:
		return PublicKeyEC, key.Curve.Params().BitSize
	default:
		return PublicKeyUnknown, 0
	}
}

func extractKeyUsage(cert *x509.Certificate) KeyUsage {
	present := false
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(oidKeyUsage) {
			present = true
			break
		}
	}
	if !present {
		return KeyUsageNotPresent
	}

	var usage KeyUsage
	if cert.KeyUsage&x509.KeyUsageDigitalSignature != 0 {
		usage |= KeyUsageDigitalSignature
	}
	if cert.KeyUsage&x509.KeyUsageContentCommitment != 0 {
		usage |= KeyUsageNonRepudiation
	}
	if cert.KeyUsage&x509.KeyUsageKeyEncipherment != 0 {
		usage |= KeyUsageKeyEncipherment
	}
	if cert.KeyUsage&x509.KeyUsageDataEncipherment != 0 {
		usage |= KeyUsageDataEncipherment
	}
	if cert.KeyUsage&x509.KeyUsageKeyAgreement != 0 {
		usage |= KeyUsageAgreement
	}
	if cert.KeyUsage&x509.KeyUsageCertSign != 0 {
		usage |= KeyUsageCertSign
	}
	if cert.KeyUsage&x509.KeyUsageCRLSign != 0 {
		usage |= KeyUsageCrlSign
	}
	if cert.KeyUsage&x509.KeyUsageEncipherOnly != 0 {
		usage |= KeyUsageEncipherOnly
	}
	if cert.KeyUsage&x509.KeyUsageDecipherOnly != 0 {
		usage |= KeyUsageDecipherOnly
	}
	return usage
}

// extractDistinguishedNames finds, for each target attribute, the
// first matching RDN entry in name and normalizes it to UTF-8 NFC.
// pkix.Name's dedicated fields (CommonName, Organization, ...) don't
// cover the full attribute set spec §3 asks for (Title, Surname,
// GivenName, Initials, Pseudonym, GenerationalQualifier), so this
// walks the raw RDN sequence by OID instead.
func extractDistinguishedNames(name pkix.Name) map[DNField]string {
	out := make(map[DNField]string, len(dnFieldOrder))
	for _, field := range dnFieldOrder {
		out[field] = ""
	}
	out[DistinguishedName] = norm.NFC.String(name.String())

	for _, atv := range name.Names {
		for _, field := range dnFieldOrder {
			oid, ok := dnFieldOIDs[field]
			if !ok || !oid.Equal(atv.Type) {
				continue
			}
			if out[field] != "" {
				continue // first match wins
			}
			if s, ok := atv.Value.(string); ok {
				out[field] = norm.NFC.String(s)
			}
		}
	}
	return out
}

// Equal reports whether two CertificateInfo values are the value-equal
// per spec §3: DN entries, validity window, and DER bytes must all
// match. TrustStore deduplication relies on this.
func (c CertificateInfo) Equal(other CertificateInfo) bool {
	if !c.NotValidBefore.Equal(other.NotValidBefore) {
		return false
	}
	if !c.NotValidAfter.Equal(other.NotValidAfter) {
		return false
	}
	if !bytes.Equal(c.CertificateData, other.CertificateData) {
		return false
	}
	if len(c.DN) != len(other.DN) {
		return false
	}
	for field, value := range c.DN {
		if other.DN[field] != value {
			return false
		}
	}
	return true
}

// Serialize encodes c as a length-tagged binary stream: a leading
// version integer followed by every field in the exact order listed
// in spec §3 (version, key_size, public_key, the fifteen DN entries in
// dnFieldOrder, not_valid_before, not_valid_after, key_usage,
// certificate_data).
func (c CertificateInfo) Serialize() []byte {
	var buf bytes.Buffer
	writeUint32(&buf, currentSerializationVersion)
	writeUint32(&buf, uint32(c.Version))
	writeUint32(&buf, uint32(c.KeySize))
	writeUint32(&buf, uint32(c.PublicKey))
	for _, field := range dnFieldOrder {
		writeString(&buf, c.DN[field])
	}
	writeUint64(&buf, uint64(c.NotValidBefore.Unix()))
	writeUint64(&buf, uint64(c.NotValidAfter.Unix()))
	writeUint32(&buf, uint32(c.KeyUsage))
	writeBytes(&buf, c.CertificateData)
	return buf.Bytes()
}

// Deserialize decodes the output of Serialize. The leading version
// integer is read and discarded: every field after it is decoded by
// fixed position, so a reader built against a newer writer version
// still recovers every field this version knows about.
func Deserialize(data []byte) (*CertificateInfo, error) {
	r := bytes.NewReader(data)

	if _, err := readUint32(r); err != nil {
		return nil, fmt.Errorf("certinfo: reading version: %w", err)
	}

	info := &CertificateInfo{DN: make(map[DNField]string, len(dnFieldOrder))}

	version, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("certinfo: reading version field: %w", err)
	}
	info.Version = int(version)

	keySize, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("certinfo: reading key size: %w", err)
	}
	info.KeySize = int(keySize)

	pubKey, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("certinfo: reading public key type: %w", err)
	}
	info.PublicKey = PublicKeyType(pubKey)

	for _, field := range dnFieldOrder {
		s, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("certinfo: reading DN field %d: %w", field, err)
		}
		info.DN[field] = s
	}

	before, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("certinfo: reading not_valid_before: %w", err)
	}
	info.NotValidBefore = time.Unix(int64(before), 0).UTC()

	after, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("certinfo: reading not_valid_after: %w", err)
	}
	info.NotValidAfter = time.Unix(int64(after), 0).UTC()

	usage, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("certinfo: reading key usage: %w", err)
	}
	info.KeyUsage = KeyUsage(usage)

	der, err := readBytesField(r)
	if err != nil {
		return nil, fmt.Errorf("certinfo: reading certificate data: %w", err)
	}
	info.CertificateData = der

	return info, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUint32(buf, uint32(len(b)))
	buf.Write(b)
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(tmp[:]), nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(tmp[:]), nil
}

func readBytesField(r *bytes.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := readFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytesField(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	return io.ReadFull(r, buf)
}
