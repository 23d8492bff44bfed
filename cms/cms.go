// Package cms implements the PKCS#7/CMS SignedData parsing and
// verification shared by the adbe.pkcs7.detached and adbe.pkcs7.sha1
// verification engines (spec §4.E). It is verification-only: this
// module never builds a SignedData structure, only reads one.
//
// Grounded on the teacher's sign/cms/cms.go, with the signing-side
// CMSBuilder and its helpers dropped and signature-algorithm matching
// generalized from the teacher's RSA-only switch to crypto/x509's
// SignatureAlgorithm enum, so ECDSA and Ed25519 signer certificates
// verify through the same path as RSA ones.
package cms

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
)

// Content types.
var (
	OIDData              = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	OIDSignedData        = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
	OIDSignedAndEnveloped = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 4}
)

// Digest algorithms.
var (
	OIDSHA1   = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	OIDSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	OIDSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	OIDSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
)

// Signature algorithms, both combined hash+key OIDs and bare key-type
// OIDs (the latter pairs with the digest algorithm field instead).
var (
	OIDRSAEncryption   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	OIDSHA1WithRSA     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	OIDSHA256WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	OIDSHA384WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	OIDSHA512WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}
	OIDECPublicKey     = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	OIDECDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
	OIDECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	OIDECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	OIDECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
	OIDEd25519         = asn1.ObjectIdentifier{1, 3, 101, 112}
)

// Signed attributes.
var (
	OIDContentType   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	OIDMessageDigest = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	OIDSigningTime   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}
)

// Errors this package returns. Callers map these to the
// VerificationResult flag taxonomy (spec §7); they are not themselves
// part of that taxonomy.
var (
	ErrNotSignedData        = errors.New("cms: content is not a SignedData")
	ErrNoSignerInfos         = errors.New("cms: SignedData contains no signer infos")
	ErrSignerCertNotFound   = errors.New("cms: signer certificate not found in SignedData's certificate bag")
	ErrMessageDigestMissing = errors.New("cms: messageDigest signed attribute missing")
	ErrMessageDigestMismatch = errors.New("cms: computed digest does not match signed messageDigest attribute")
	ErrUnsupportedAlgorithm = errors.New("cms: unsupported digest or signature algorithm")
)

// AlgorithmIdentifier represents an algorithm identifier.
type AlgorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

// ContentInfo represents a CMS ContentInfo structure.
type ContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

// SignedDataRaw captures a SignedData structure with its SignerInfos
// left as raw ASN.1 values so their signed-attributes bytes can be
// re-marshaled byte-for-byte during verification.
type SignedDataRaw struct {
	Version          int
	DigestAlgorithms []AlgorithmIdentifier `asn1:"set"`
	EncapContentInfo EncapsulatedContentInfo
	Certificates     []asn1.RawValue `asn1:"optional,implicit,tag:0,set"`
	CRLs             []asn1.RawValue `asn1:"optional,implicit,tag:1"`
	SignerInfos      []asn1.RawValue `asn1:"set"`
}

// EncapsulatedContentInfo represents encapsulated content. PDF
// signatures are always detached, so EContent is normally absent.
type EncapsulatedContentInfo struct {
	EContentType asn1.ObjectIdentifier
	EContent     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

// signedAndEnvelopedDataRaw captures the legacy PKCS#7
// SignedAndEnvelopedData alternate (RFC 2315 §12) just deep enough to
// recover its certificate bag and signer infos: this module never
// decrypts content, so RecipientInfos and EncryptedContentInfo are
// kept as opaque raw values purely to preserve field alignment during
// ASN.1 decoding.
type signedAndEnvelopedDataRaw struct {
	Version              int
	RecipientInfos       []asn1.RawValue `asn1:"set"`
	DigestAlgorithms     []AlgorithmIdentifier `asn1:"set"`
	EncryptedContentInfo asn1.RawValue
	Certificates         []asn1.RawValue `asn1:"optional,implicit,tag:0,set"`
	CRLs                 []asn1.RawValue `asn1:"optional,implicit,tag:1"`
	SignerInfos          []asn1.RawValue `asn1:"set"`
}

// SignerInfoRaw is SignerInfo with SignedAttrs left as a raw value, so
// its exact encoded bytes (minus the implicit [0] tag) are available
// for re-marshaling as a SET during digest verification.
type SignerInfoRaw struct {
	Version            int
	SID                IssuerAndSerialNumber
	DigestAlgorithm    AlgorithmIdentifier
	SignedAttrs        asn1.RawValue `asn1:"optional,tag:0"`
	SignatureAlgorithm AlgorithmIdentifier
	Signature          []byte
	UnsignedAttrs      asn1.RawValue `asn1:"optional,tag:1"`
}

// IssuerAndSerialNumber identifies a certificate by issuer and serial.
type IssuerAndSerialNumber struct {
	Issuer       asn1.RawValue
	SerialNumber *big.Int
}

// Attribute represents a CMS attribute.
type Attribute struct {
	Type   asn1.ObjectIdentifier
	Values []asn1.RawValue `asn1:"set"`
}

// SignerResult is what VerifySignerInfo reports for one signer info
// entry: the certificate bag embedded in the message, the matched
// signer certificate, and Err, which holds that signer info's own
// verification error (nil on success). A SignedData with more than
// one signer info yields one SignerResult per entry; a failure on one
// signer info does not stop the others from being checked, mirroring
// the ground-truth verifySignature loop, which only stops early when
// a signer certificate itself can't be resolved.
type SignerResult struct {
	Certificates []*x509.Certificate
	SignerCert   *x509.Certificate
	Err          error
}

// ParseSignedData unwraps ContentInfo and returns the SignedData it
// carries. Both PKCS#7 content-type alternates that carry a
// certificate bag and signer infos are accepted: signedData, and the
// legacy signedAndEnvelopedData (whose certificates/signerInfos share
// SignedData's shape even though the two structures otherwise differ
// in how they carry content). Returns ErrNotSignedData for any other
// content type.
func ParseSignedData(data []byte) (*SignedDataRaw, error) {
	var contentInfo ContentInfo
	if _, err := asn1.Unmarshal(data, &contentInfo); err != nil {
		return nil, fmt.Errorf("cms: parsing ContentInfo: %w", err)
	}

	switch {
	case contentInfo.ContentType.Equal(OIDSignedData):
		var signedData SignedDataRaw
		if _, err := asn1.Unmarshal(contentInfo.Content.Bytes, &signedData); err != nil {
			return nil, fmt.Errorf("cms: parsing SignedData: %w", err)
		}
		return &signedData, nil

	case contentInfo.ContentType.Equal(OIDSignedAndEnveloped):
		var enveloped signedAndEnvelopedDataRaw
		if _, err := asn1.Unmarshal(contentInfo.Content.Bytes, &enveloped); err != nil {
			return nil, fmt.Errorf("cms: parsing SignedAndEnvelopedData: %w", err)
		}
		return &SignedDataRaw{
			Version:          enveloped.Version,
			DigestAlgorithms: enveloped.DigestAlgorithms,
			Certificates:     enveloped.Certificates,
			CRLs:             enveloped.CRLs,
			SignerInfos:      enveloped.SignerInfos,
		}, nil

	default:
		return nil, ErrNotSignedData
	}
}

// Certificates parses every certificate embedded in sd's certificate
// bag, skipping any that fail to parse.
func Certificates(sd *SignedDataRaw) []*x509.Certificate {
	var certs []*x509.Certificate
	for _, raw := range sd.Certificates {
		cert, err := x509.ParseCertificate(raw.FullBytes)
		if err != nil {
			continue
		}
		certs = append(certs, cert)
	}
	return certs
}

// VerifySignerInfo enumerates every signer info in sd and verifies
// each against signedContent (the reconstructed byte-range content):
// for each, it matches the signer certificate by issuer+serial, checks
// the messageDigest signed attribute against a freshly computed
// digest of signedContent, then verifies the signature over the
// re-encoded signed-attributes SET using the signer certificate's
// public key.
//
// It returns one SignerResult per signer info that could be resolved
// to a certificate, each carrying its own verification outcome in Err
// so a digest or signature failure on one signer info doesn't stop
// the others from being checked. The function's own error return is
// reserved for structural failures: no signer infos at all, malformed
// ASN.1 in a signer info, or a signer info whose certificate can't be
// resolved at all, which (mirroring the ground truth's verifySignature
// loop) stops processing any remaining signer infos.
func VerifySignerInfo(sd *SignedDataRaw, signedContent []byte) ([]*SignerResult, error) {
	if len(sd.SignerInfos) == 0 {
		return nil, ErrNoSignerInfos
	}

	certs := Certificates(sd)
	var results []*SignerResult

	for _, raw := range sd.SignerInfos {
		var signerInfo SignerInfoRaw
		if _, err := asn1.Unmarshal(raw.FullBytes, &signerInfo); err != nil {
			return results, fmt.Errorf("cms: parsing SignerInfo: %w", err)
		}

		signerCert := findSignerCertificate(certs, signerInfo.SID)
		if signerCert == nil {
			return results, ErrSignerCertNotFound
		}

		results = append(results, &SignerResult{
			Certificates: certs,
			SignerCert:   signerCert,
			Err:          verifyOneSignerInfo(signerInfo, signerCert, signedContent),
		})
	}

	return results, nil
}

// verifyOneSignerInfo performs the cryptographic checks for a single,
// already-resolved signer info: messageDigest comparison, then the
// signature over the re-encoded signed-attributes SET.
func verifyOneSignerInfo(signerInfo SignerInfoRaw, signerCert *x509.Certificate, signedContent []byte) error {
	digestAlg, err := hashAlgorithmFor(signerInfo.DigestAlgorithm.Algorithm)
	if err != nil {
		return err
	}

	computedDigest, err := digestBytes(digestAlg, signedContent)
	if err != nil {
		return err
	}

	signedAttrs, err := parseAttributeSequence(signerInfo.SignedAttrs.Bytes)
	if err != nil {
		return fmt.Errorf("cms: parsing signed attributes: %w", err)
	}

	foundDigest, err := findMessageDigest(signedAttrs)
	if err != nil {
		return err
	}
	if !bytesEqual(computedDigest, foundDigest) {
		return ErrMessageDigestMismatch
	}

	signedAttrsSET, err := reencodeAsSet(signedAttrs)
	if err != nil {
		return fmt.Errorf("cms: re-encoding signed attributes: %w", err)
	}

	sigAlg, err := signatureAlgorithmFor(signerCert.PublicKeyAlgorithm, signerInfo.SignatureAlgorithm.Algorithm, signerInfo.DigestAlgorithm.Algorithm)
	if err != nil {
		return err
	}

	if err := signerCert.CheckSignature(sigAlg, signedAttrsSET, signerInfo.Signature); err != nil {
		return fmt.Errorf("cms: signature verification failed: %w", err)
	}

	return nil
}

// ResolveSigner enumerates every signer info in sd far enough to match
// each one's signer certificate by issuer+serial, without performing
// any cryptographic verification. It exists so a caller's certificate
// phase can build and validate a chain for each signer before the
// signature phase (VerifySignerInfo) spends effort on the
// cryptographic check, mirroring spec §4.E's split between the two
// phases.
//
// leaves holds one resolved certificate per signer info that could be
// matched, in signer-info order. If a signer info's certificate can't
// be resolved, ResolveSigner stops there (mirroring the ground
// truth's verifyCertificate loop, which breaks on the same condition)
// and returns ErrSignerCertNotFound alongside the leaves resolved so
// far.
func ResolveSigner(sd *SignedDataRaw) (certs []*x509.Certificate, leaves []*x509.Certificate, err error) {
	if len(sd.SignerInfos) == 0 {
		return nil, nil, ErrNoSignerInfos
	}
	certs = Certificates(sd)

	for _, raw := range sd.SignerInfos {
		var signerInfo SignerInfoRaw
		if _, err := asn1.Unmarshal(raw.FullBytes, &signerInfo); err != nil {
			return certs, leaves, fmt.Errorf("cms: parsing SignerInfo: %w", err)
		}

		signerCert := findSignerCertificate(certs, signerInfo.SID)
		if signerCert == nil {
			return certs, leaves, ErrSignerCertNotFound
		}
		leaves = append(leaves, signerCert)
	}
	return certs, leaves, nil
}

// findSignerCertificate matches a certificate in certs by both issuer
// DN and serial number, per RFC 5652's IssuerAndSerialNumber identity
// (the same two-field match the teacher's certvalidator performs in
// compareIssuerSerial/compareRDNSequences for attribute-certificate
// issuer resolution). Matching on serial number alone would conflate
// certificates from different issuers that happen to share one.
func findSignerCertificate(certs []*x509.Certificate, sid IssuerAndSerialNumber) *x509.Certificate {
	if sid.SerialNumber == nil {
		return nil
	}
	var sidIssuer pkix.RDNSequence
	if _, err := asn1.Unmarshal(sid.Issuer.FullBytes, &sidIssuer); err != nil {
		return nil
	}
	for _, cert := range certs {
		if cert.SerialNumber.Cmp(sid.SerialNumber) != 0 {
			continue
		}
		var certIssuer pkix.RDNSequence
		if _, err := asn1.Unmarshal(cert.RawIssuer, &certIssuer); err != nil {
			continue
		}
		if compareRDNSequences(sidIssuer, certIssuer) {
			return cert
		}
	}
	return nil
}

// compareRDNSequences reports whether a and b name the same
// distinguished name, type by type and value by value. Grounded on
// the teacher's certvalidator/ac_validate.go compareRDNSequences.
func compareRDNSequences(a, b pkix.RDNSequence) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if !a[i][j].Type.Equal(b[i][j].Type) {
				return false
			}
			if a[i][j].Value != b[i][j].Value {
				return false
			}
		}
	}
	return true
}

func parseAttributeSequence(raw []byte) ([]Attribute, error) {
	var attrs []Attribute
	rest := raw
	for len(rest) > 0 {
		var attr Attribute
		var err error
		rest, err = asn1.Unmarshal(rest, &attr)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func findMessageDigest(attrs []Attribute) ([]byte, error) {
	for _, attr := range attrs {
		if !attr.Type.Equal(OIDMessageDigest) || len(attr.Values) == 0 {
			continue
		}
		var digest []byte
		if _, err := asn1.Unmarshal(attr.Values[0].FullBytes, &digest); err == nil {
			return digest, nil
		}
	}
	return nil, ErrMessageDigestMissing
}

// reencodeAsSet marshals attrs as an ASN.1 SEQUENCE, then overwrites
// its leading tag byte to 0x31 (SET), matching the DER form that was
// actually signed: signed attributes live under an implicit [0] tag
// in the message but are signed as a SET, per RFC 5652 §5.4.
func reencodeAsSet(attrs []Attribute) ([]byte, error) {
	encoded, err := asn1.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	if len(encoded) == 0 {
		return nil, errors.New("cms: empty signed attributes encoding")
	}
	encoded[0] = 0x31
	return encoded, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
