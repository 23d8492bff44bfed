// Package verify implements component E, the verification engines: the
// top-level entry point that dispatches each signature field to the
// subfilter-specific recipe spec §4.E describes and aggregates the
// result into a VerificationResult.
package verify

import (
	"bytes"
	"crypto/sha1"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sigverify/pdfcore/byterange"
	"github.com/sigverify/pdfcore/certinfo"
	"github.com/sigverify/pdfcore/cms"
	"github.com/sigverify/pdfcore/cryptoguard"
	"github.com/sigverify/pdfcore/pdfmodel"
	"github.com/sigverify/pdfcore/report"
	"github.com/sigverify/pdfcore/sigfield"
	"github.com/sigverify/pdfcore/truststore"
)

const (
	subfilterPKCS7Detached = "adbe.pkcs7.detached"
	subfilterPKCS7SHA1     = "adbe.pkcs7.sha1"
	subfilterX509RSASHA1   = "adbe.x509.rsa_sha1"
)

// Parameters controls a verify_signatures call (spec §6.2).
type Parameters struct {
	EnableVerification        bool
	IgnoreExpirationDate      bool
	UseSystemCertificateStore bool

	// TrustStore supplies the anchors certificate-chain validation is
	// checked against. A nil TrustStore behaves as an empty one: no
	// chain will validate, matching an explicit "no anchors configured"
	// posture rather than silently trusting every issuer.
	TrustStore *truststore.Store

	// Storage resolves the indirect objects a signature dictionary may
	// reference. Required whenever a form yields at least one signed
	// field; spec §6.1 names this collaborator but leaves its wiring
	// point to the implementation, so it travels on Parameters
	// alongside the other per-call inputs.
	Storage pdfmodel.ObjectStorage

	// Clock supplies "now" for expiration checks. Nil defaults to the
	// real wall clock.
	Clock clockwork.Clock

	// Diagnostics, if set, receives each field's subfilter dispatch and
	// final flags. Purely additive: it never changes a
	// VerificationResult's flags.
	Diagnostics *report.Report
}

func (p Parameters) clockNow() time.Time {
	if p.Clock != nil {
		return p.Clock.Now()
	}
	return time.Now()
}

func (p Parameters) diagnostic(level report.Level, category, message string) {
	if p.Diagnostics != nil {
		p.Diagnostics.Add(level, category, message)
	}
}

// CertificateFlag is one bit of VerificationResult's certificate-group
// outcome (spec §7).
type CertificateFlag uint32

const (
	CertificateOK CertificateFlag = 1 << iota
	CertificateInvalid
	CertificateNoSignatures
	CertificateMissing
	CertificateGeneric
	CertificateExpired
	CertificateSelfSigned
	CertificateSelfSignedChain
	CertificateTrustedNotFound
	CertificateRevoked
	CertificateOther
)

// Has reports whether bit is set.
func (f CertificateFlag) Has(bit CertificateFlag) bool { return f&bit != 0 }

// certificateErrorMask is every certificate-group bit that blocks
// CertificateOK. CertificateOK itself is excluded: it is the result of
// the mask being clear, not a member of it.
const certificateErrorMask = CertificateInvalid | CertificateNoSignatures | CertificateMissing |
	CertificateGeneric | CertificateExpired | CertificateSelfSigned | CertificateSelfSignedChain |
	CertificateTrustedNotFound | CertificateRevoked | CertificateOther

// SignatureFlag is one bit of VerificationResult's signature-group
// outcome (spec §7).
type SignatureFlag uint32

const (
	SignatureOK SignatureFlag = 1 << iota
	SignatureInvalid
	SignatureNoSignaturesFound
	SignatureSourceCertificateMissing
	SignatureDigestFailure
	SignatureDataOther
	SignatureDataCoveredBySignatureMissing
)

// Has reports whether bit is set.
func (f SignatureFlag) Has(bit SignatureFlag) bool { return f&bit != 0 }

const signatureErrorMask = SignatureInvalid | SignatureNoSignaturesFound | SignatureSourceCertificateMissing |
	SignatureDigestFailure | SignatureDataOther | SignatureDataCoveredBySignatureMissing

// WarningFlag is one bit of VerificationResult's warning set.
type WarningFlag uint32

// WarningNotCoveredBytes is spec §7's only defined warning.
const WarningNotCoveredBytes WarningFlag = 1

// Has reports whether bit is set.
func (f WarningFlag) Has(bit WarningFlag) bool { return f&bit != 0 }

// VerificationResult is the per-signature-field outcome spec §4.E's
// engines produce. OK is monotonic: once validate sets it, nothing
// clears it again (spec §9's open question).
type VerificationResult struct {
	SignatureFieldReference pdfmodel.Reference
	SignatureFieldName      string
	Subfilter               string

	CertificateFlags   CertificateFlag
	SignatureFlags     SignatureFlag
	WarningFlags       WarningFlag
	UncoveredByteCount int64

	// NoHandler is set when the subfilter has no matching engine (spec
	// §4.E's dispatch table, "anything else" row). It is orthogonal to
	// the certificate/signature groups: neither group's flags are set
	// and validate is not run, so OK stays false.
	NoHandler bool

	OK bool

	Errors   []string
	Warnings []string

	CertificateInfos []certinfo.CertificateInfo
}

func (r *VerificationResult) addCertError(flag CertificateFlag, message string) {
	r.CertificateFlags |= flag
	r.Errors = append(r.Errors, message)
}

func (r *VerificationResult) addSigError(flag SignatureFlag, message string) {
	r.SignatureFlags |= flag
	r.Errors = append(r.Errors, message)
}

func (r *VerificationResult) addWarning(flag WarningFlag, message string) {
	r.WarningFlags |= flag
	r.Warnings = append(r.Warnings, message)
}

// validate implements spec §4.E step 4: OK is derived once from the
// absence of any error bit in each group, never cleared afterward.
func (r *VerificationResult) validate() {
	if r.CertificateFlags&certificateErrorMask == 0 {
		r.CertificateFlags |= CertificateOK
	}
	if r.SignatureFlags&signatureErrorMask == 0 {
		r.SignatureFlags |= SignatureOK
	}
	if r.CertificateFlags.Has(CertificateOK) && r.SignatureFlags.Has(SignatureOK) {
		r.OK = true
	}
}

// VerifySignatures is the public entry point (spec §6.2). It returns
// one VerificationResult per signed field the form enumerates, in the
// form's own order, or an empty slice if verification is disabled or
// the form carries no recognized interactive-form kind.
func VerifySignatures(form pdfmodel.Form, fileBytes []byte, params Parameters) ([]VerificationResult, error) {
	if !params.EnableVerification || form == nil {
		return nil, nil
	}
	kind := form.Kind()
	if kind != pdfmodel.FormKindAcroForm && kind != pdfmodel.FormKindXFA {
		return nil, nil
	}

	var results []VerificationResult
	err := form.Apply(func(field pdfmodel.SignatureField) error {
		dict := field.Dictionary()
		if dict == nil {
			return nil // field not yet signed: no result for it
		}
		if params.Storage == nil {
			return errors.New("verify: Parameters.Storage is required to read signature dictionaries")
		}
		results = append(results, verifyOne(field, dict, fileBytes, params))
		return nil
	})
	if err != nil {
		return results, err
	}
	return results, nil
}

func verifyOne(field pdfmodel.SignatureField, dict *pdfmodel.Dictionary, fileBytes []byte, params Parameters) VerificationResult {
	unlock := cryptoguard.Lock()
	defer unlock()

	result := VerificationResult{
		SignatureFieldReference: field.Reference(),
		SignatureFieldName:      field.QualifiedName(),
	}

	sig := sigfield.Parse(params.Storage, dict)
	result.Subfilter = string(sig.SubFilter)
	params.diagnostic(report.LevelNormal, "dispatch", fmt.Sprintf("field %q: subfilter %q", result.SignatureFieldName, result.Subfilter))

	switch result.Subfilter {
	case subfilterPKCS7Detached:
		runPKCS7(sig, fileBytes, false, params, &result)
	case subfilterPKCS7SHA1:
		runPKCS7(sig, fileBytes, true, params, &result)
	case subfilterX509RSASHA1:
		runLegacy(sig, fileBytes, params, &result)
	default:
		result.NoHandler = true
		result.Errors = append(result.Errors, fmt.Sprintf("no verification engine for subfilter %q", result.Subfilter))
		return result
	}

	result.validate()
	params.diagnostic(report.LevelVerbose, "result", fmt.Sprintf("field %q: OK=%v certFlags=%#x sigFlags=%#x", result.SignatureFieldName, result.OK, uint32(result.CertificateFlags), uint32(result.SignatureFlags)))
	return result
}

// runPKCS7 implements spec §4.E.1 and §4.E.3 for both adbe.pkcs7.*
// subfilters. sha1Variant selects whether the digest check is run
// against the raw assembled bytes (detached) or their SHA-1 (sha1).
func runPKCS7(sig *sigfield.Signature, fileBytes []byte, sha1Variant bool, params Parameters, result *VerificationResult) {
	sd, err := cms.ParseSignedData(sig.Contents)
	if err != nil {
		result.addCertError(CertificateInvalid, fmt.Sprintf("parsing PKCS#7 container: %v", err))
		result.addSigError(SignatureInvalid, fmt.Sprintf("parsing PKCS#7 container: %v", err))
		return
	}

	// Certificate phase: spec §4.E.1 enumerates every signer info and
	// validates a chain for each one it can resolve a certificate for.
	// ResolveSigner stops at the first unresolvable signer info
	// (mirroring the ground truth's verifyCertificate loop), but every
	// leaf resolved before that point still gets its own chain check.
	certs, leaves, err := cms.ResolveSigner(sd)
	if err != nil {
		switch {
		case errors.Is(err, cms.ErrNoSignerInfos):
			result.addCertError(CertificateNoSignatures, "PKCS#7 container has no signer infos")
		case errors.Is(err, cms.ErrSignerCertNotFound):
			result.addCertError(CertificateMissing, "signer certificate not found in PKCS#7 certificate bag")
		default:
			result.addCertError(CertificateGeneric, fmt.Sprintf("resolving signer: %v", err))
		}
		if len(leaves) == 0 {
			result.CertificateInfos = infosFrom(certs)
		}
	}
	for _, leaf := range leaves {
		certificatePhase(certs, leaf, params, result)
	}

	assembled, err := byterange.Assemble(fileBytes, sig)
	if err != nil {
		result.addSigError(SignatureDataCoveredBySignatureMissing, fmt.Sprintf("assembling signed bytes: %v", err))
		return
	}
	recordCoverage(assembled, result)

	content := assembled.SignedBytes
	if sha1Variant {
		digest := sha1.Sum(assembled.SignedBytes)
		content = digest[:]
	}

	// Signature phase: spec §4.E.3 separately enumerates every signer
	// info and cryptographically verifies each one it can resolve. A
	// digest or signature failure on one signer info doesn't stop the
	// others (mirroring the ground truth's verifySignature loop); only
	// an unresolvable signer certificate stops the loop early.
	results, err := cms.VerifySignerInfo(sd, content)
	for _, r := range results {
		if r.Err != nil {
			mapCMSSignatureError(r.Err, result)
		}
	}
	if err != nil {
		mapCMSSignatureError(err, result)
	}
}

// runLegacy implements spec §4.E.2 and §4.E.4 for adbe.x509.rsa_sha1.
func runLegacy(sig *sigfield.Signature, fileBytes []byte, params Parameters, result *VerificationResult) {
	var certs []*x509.Certificate
	for _, der := range sig.Certificates {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			continue
		}
		certs = append(certs, cert)
	}

	var leaf *x509.Certificate
	if len(certs) > 0 {
		leaf = certs[0]
	}
	if leaf == nil {
		result.addCertError(CertificateMissing, "no certificates present in signature's /Cert entry")
		result.addSigError(SignatureSourceCertificateMissing, "no signer certificate available for legacy RSA verification")
		return
	}

	certificatePhase(certs, leaf, params, result)

	assembled, err := byterange.Assemble(fileBytes, sig)
	if err != nil {
		result.addSigError(SignatureDataCoveredBySignatureMissing, fmt.Sprintf("assembling signed bytes: %v", err))
		return
	}
	recordCoverage(assembled, result)

	if err := cms.VerifyLegacyRSASignature(leaf, sig.Contents, assembled.SignedBytes); err != nil {
		mapLegacySignatureError(err, result)
	}
}

func recordCoverage(assembled *byterange.Assembled, result *VerificationResult) {
	if assembled.CoverageReport.IsComplete {
		return
	}
	result.UncoveredByteCount = assembled.CoverageReport.UncoveredByteCount
	result.addWarning(WarningNotCoveredBytes, fmt.Sprintf("%d bytes of the file lie outside the signed byte ranges", assembled.CoverageReport.UncoveredByteCount))
}

func mapCMSSignatureError(err error, result *VerificationResult) {
	switch {
	case errors.Is(err, cms.ErrMessageDigestMismatch):
		result.addSigError(SignatureDigestFailure, fmt.Sprintf("signature digest check failed: %v", err))
	case errors.Is(err, cms.ErrSignerCertNotFound):
		result.addSigError(SignatureSourceCertificateMissing, fmt.Sprintf("signer certificate unavailable: %v", err))
	case errors.Is(err, cms.ErrNoSignerInfos):
		result.addSigError(SignatureNoSignaturesFound, fmt.Sprintf("no signer infos: %v", err))
	default:
		result.addSigError(SignatureDataOther, fmt.Sprintf("signature verification failed: %v", err))
	}
}

func mapLegacySignatureError(err error, result *VerificationResult) {
	switch {
	case errors.Is(err, cms.ErrLegacyDigestMismatch):
		result.addSigError(SignatureDigestFailure, fmt.Sprintf("signature digest check failed: %v", err))
	case errors.Is(err, cms.ErrNoRSAPublicKey):
		result.addSigError(SignatureSourceCertificateMissing, fmt.Sprintf("signer certificate unavailable: %v", err))
	default:
		result.addSigError(SignatureDataOther, fmt.Sprintf("signature verification failed: %v", err))
	}
}

// certificatePhase builds a chain from certs, rooted in params'
// trust store, with leaf as the signer. It implements spec §4.E.1's
// and §4.E.2's shared tail: chain validation, error classification,
// and appending to result.CertificateInfos from the validated chain
// on success or from every presented certificate on failure. It
// appends rather than assigns because a SignedData with more than one
// signer info runs this once per resolved leaf, each contributing its
// own certificate information to the same VerificationResult.
func certificatePhase(certs []*x509.Certificate, leaf *x509.Certificate, params Parameters, result *VerificationResult) {
	if leaf == nil {
		result.addCertError(CertificateMissing, "no signer certificate to validate")
		return
	}

	roots, err := buildRoots(params)
	if err != nil {
		result.addCertError(CertificateGeneric, fmt.Sprintf("building trust roots: %v", err))
		return
	}

	intermediates := x509.NewCertPool()
	for _, c := range certs {
		if c != leaf {
			intermediates.AddCert(c)
		}
	}

	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	if params.IgnoreExpirationDate {
		// No stdlib switch disables expiry checking outright; pinning
		// CurrentTime to the leaf's own NotBefore makes the leaf's own
		// validity window a no-op the way "ignore expiration" is meant
		// to behave, at the cost of still checking intermediates/roots
		// against that same instant.
		opts.CurrentTime = leaf.NotBefore.Add(time.Minute)
	} else {
		opts.CurrentTime = params.clockNow()
	}

	chains, err := leaf.Verify(opts)
	if err != nil {
		classifyChainError(err, leaf, certs, result)
		result.CertificateInfos = append(result.CertificateInfos, infosFrom(certs)...)
		return
	}

	shortest := chains[0]
	for _, chain := range chains[1:] {
		if len(chain) < len(shortest) {
			shortest = chain
		}
	}
	result.CertificateInfos = append(result.CertificateInfos, infosFrom(shortest)...)
	if isSelfSigned(leaf) {
		result.CertificateFlags |= CertificateSelfSigned
	}
}

func buildRoots(params Parameters) (*x509.CertPool, error) {
	if params.TrustStore == nil {
		return x509.NewCertPool(), nil
	}
	if !params.UseSystemCertificateStore {
		return params.TrustStore.CertPool()
	}
	// The OS roots are read here rather than via MergeSystemRoots, so the
	// borrowed trust store is left unchanged.
	pool, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("loading system root pool: %w", err)
	}
	for _, entry := range params.TrustStore.Entries() {
		cert, err := x509.ParseCertificate(entry.Info.CertificateData)
		if err != nil {
			return nil, fmt.Errorf("parsing trust store certificate: %w", err)
		}
		pool.AddCert(cert)
	}
	return pool, nil
}

// classifyChainError maps a crypto/x509.Verify error to the
// certificate-group taxonomy of spec §7.
func classifyChainError(err error, leaf *x509.Certificate, providedChain []*x509.Certificate, result *VerificationResult) {
	var invalid x509.CertificateInvalidError
	var unknownAuthority x509.UnknownAuthorityError

	switch {
	case errors.As(err, &invalid):
		if invalid.Reason == x509.Expired {
			result.addCertError(CertificateExpired, fmt.Sprintf("certificate chain expired: %v", err))
			return
		}
		result.addCertError(CertificateOther, fmt.Sprintf("certificate chain invalid (reason code %d): %v", int(invalid.Reason), err))
	case errors.As(err, &unknownAuthority):
		switch {
		case isSelfSigned(leaf):
			result.addCertError(CertificateSelfSigned, fmt.Sprintf("signer certificate is self-signed and not a trusted anchor: %v", err))
		case selfSignedInChain(providedChain):
			result.addCertError(CertificateSelfSignedChain, fmt.Sprintf("certificate chain terminates in an untrusted self-signed certificate: %v", err))
		default:
			result.addCertError(CertificateTrustedNotFound, fmt.Sprintf("unable to find a trusted issuer: %v", err))
		}
	default:
		result.addCertError(CertificateGeneric, fmt.Sprintf("certificate chain validation failed: %v", err))
	}
}

func isSelfSigned(cert *x509.Certificate) bool {
	return bytes.Equal(cert.RawIssuer, cert.RawSubject) &&
		cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature) == nil
}

func selfSignedInChain(chain []*x509.Certificate) bool {
	for _, cert := range chain {
		if isSelfSigned(cert) {
			return true
		}
	}
	return false
}

func infosFrom(certs []*x509.Certificate) []certinfo.CertificateInfo {
	out := make([]certinfo.CertificateInfo, 0, len(certs))
	for _, cert := range certs {
		out = append(out, certinfo.Extract(cert))
	}
	return out
}
