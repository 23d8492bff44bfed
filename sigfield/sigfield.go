// Package sigfield implements component A, the signature dictionary
// parser: it decodes a PDF signature dictionary into a typed,
// immutable Signature value. Every field is optional from this
// package's perspective — unknown or malformed entries fall back to
// documented zero values rather than failing, so a fully empty
// signature dictionary still produces a Signature (later rejected
// cleanly by the verification engines, not by this parser).
package sigfield

import (
	"time"

	"github.com/sigverify/pdfcore/pdfdate"
	"github.com/sigverify/pdfcore/pdfmodel"
)

// Type is the signature dictionary's /Type entry.
type Type string

// Recognized signature types. An unrecognized or absent /Type
// defaults to TypeSig.
const (
	TypeSig         Type = "Sig"
	TypeDocTimeStamp Type = "DocTimeStamp"
)

var typeTable = map[string]Type{
	"Sig":          TypeSig,
	"DocTimeStamp": TypeDocTimeStamp,
}

// PropType is the signature dictionary's /Prop_AuthType entry.
type PropType string

const (
	PropTypeInvalid     PropType = "Invalid"
	PropTypePIN         PropType = "PIN"
	PropTypePassword    PropType = "Password"
	PropTypeFingerprint PropType = "Fingerprint"
)

var propTypeTable = map[string]PropType{
	"PIN":         PropTypePIN,
	"Password":    PropTypePassword,
	"Fingerprint": PropTypeFingerprint,
}

// TransformMethod is a SignatureReference dictionary's /TransformMethod
// entry.
type TransformMethod string

const (
	TransformInvalid   TransformMethod = "Invalid"
	TransformDocMDP    TransformMethod = "DocMDP"
	TransformUR        TransformMethod = "UR"
	TransformFieldMDP  TransformMethod = "FieldMDP"
)

var transformMethodTable = map[string]TransformMethod{
	"DocMDP":   TransformDocMDP,
	"UR":       TransformUR,
	"FieldMDP": TransformFieldMDP,
}

// ByteRange is one (offset, length) pair of a signature's /ByteRange
// array.
type ByteRange struct {
	Offset int64
	Length int64
}

// Reference models one entry of a signature's /Reference array.
type Reference struct {
	TransformMethod TransformMethod
	TransformParams *pdfmodel.Dictionary
	Data            pdfmodel.Object
	DigestMethod    string
}

// Changes is the 3-tuple a signature's /Changes entry carries: object
// count, pages added, fields added or updated.
type Changes struct {
	Objects int64
	Pages   int64
	Fields  int64
}

// Signature is the immutable record this package produces from a PDF
// signature dictionary. See spec §3 for the field-by-field contract.
type Signature struct {
	Type      Type
	Filter    []byte
	SubFilter []byte
	Contents  []byte

	// Certificates holds the DER-encoded X.509 blobs from /Cert. It is
	// only populated (and only meaningful) for the legacy
	// adbe.x509.rsa_sha1 subfilter; PKCS#7 variants carry their
	// certificates inside Contents instead.
	Certificates [][]byte

	ByteRanges []ByteRange
	References []Reference
	Changes    *Changes

	Name         string
	SigningTime  time.Time
	HasSigningTime bool
	Location     string
	Reason       string
	ContactInfo  string

	R int64
	V int64

	PropBuild *pdfmodel.Dictionary
	PropTime  int64
	PropType  PropType
}

// Parse decodes dict, a signature dictionary read via storage, into a
// Signature. It never fails: every entry it cannot find or cannot make
// sense of is simply left at its zero value.
func Parse(storage pdfmodel.ObjectStorage, dict *pdfmodel.Dictionary) *Signature {
	sig := &Signature{
		Type:     resolveType(dict, storage),
		PropType: resolvePropType(dict, storage),
	}

	if name, ok := storage.GetName(dict, "Filter"); ok {
		sig.Filter = []byte(name)
	}
	if name, ok := storage.GetName(dict, "SubFilter"); ok {
		sig.SubFilter = []byte(name)
	}
	if contents, ok := storage.GetString(dict, "Contents"); ok {
		sig.Contents = contents
	}

	sig.Certificates = parseCertificates(storage, dict)
	sig.ByteRanges = parseByteRanges(storage, dict)
	sig.References = parseReferences(storage, dict)
	sig.Changes = parseChanges(storage, dict)

	if name, ok := storage.GetTextString(dict, "Name"); ok {
		sig.Name = name
	}
	if m, ok := storage.GetTextString(dict, "M"); ok {
		if t, ok := pdfdate.Parse(m); ok {
			sig.SigningTime = t
			sig.HasSigningTime = true
		}
	}
	if loc, ok := storage.GetTextString(dict, "Location"); ok {
		sig.Location = loc
	}
	if reason, ok := storage.GetTextString(dict, "Reason"); ok {
		sig.Reason = reason
	}
	if contact, ok := storage.GetTextString(dict, "ContactInfo"); ok {
		sig.ContactInfo = contact
	}
	if r, ok := storage.GetInt(dict, "R"); ok {
		sig.R = r
	}
	if v, ok := storage.GetInt(dict, "V"); ok {
		sig.V = v
	}
	if pb, ok := storage.GetDict(dict, "Prop_Build"); ok {
		sig.PropBuild = pb
	}
	if pt, ok := storage.GetInt(dict, "Prop_AuthTime"); ok {
		sig.PropTime = pt
	}

	return sig
}

func resolveType(dict *pdfmodel.Dictionary, storage pdfmodel.ObjectStorage) Type {
	name, ok := storage.GetName(dict, "Type")
	if !ok {
		return TypeSig
	}
	if t, ok := typeTable[name]; ok {
		return t
	}
	return TypeSig
}

func resolvePropType(dict *pdfmodel.Dictionary, storage pdfmodel.ObjectStorage) PropType {
	name, ok := storage.GetName(dict, "Prop_AuthType")
	if !ok {
		return PropTypeInvalid
	}
	if t, ok := propTypeTable[name]; ok {
		return t
	}
	return PropTypeInvalid
}

// parseCertificates handles /Cert appearing either as a single string
// or an array of strings.
func parseCertificates(storage pdfmodel.ObjectStorage, dict *pdfmodel.Dictionary) [][]byte {
	if single, ok := storage.GetString(dict, "Cert"); ok {
		return [][]byte{single}
	}
	objs, ok := storage.GetObjectArray(dict, "Cert")
	if !ok {
		return nil
	}
	var out [][]byte
	for _, obj := range objs {
		if s, ok := obj.(pdfmodel.String); ok {
			out = append(out, []byte(s))
		}
	}
	return out
}

// parseByteRanges groups a flat integer array into (offset, length)
// pairs, dropping a trailing element if the array has odd length.
func parseByteRanges(storage pdfmodel.ObjectStorage, dict *pdfmodel.Dictionary) []ByteRange {
	flat, ok := storage.GetIntArray(dict, "ByteRange")
	if !ok {
		return nil
	}
	n := len(flat) / 2
	ranges := make([]ByteRange, 0, n)
	for i := 0; i < n; i++ {
		ranges = append(ranges, ByteRange{
			Offset: flat[2*i],
			Length: flat[2*i+1],
		})
	}
	return ranges
}

func parseReferences(storage pdfmodel.ObjectStorage, dict *pdfmodel.Dictionary) []Reference {
	objs, ok := storage.GetObjectArray(dict, "References")
	if !ok {
		return nil
	}
	var out []Reference
	for _, obj := range objs {
		rd, ok := obj.(*pdfmodel.Dictionary)
		if !ok {
			continue
		}
		ref := Reference{TransformMethod: TransformInvalid}
		if name, ok := storage.GetName(rd, "TransformMethod"); ok {
			if tm, ok := transformMethodTable[name]; ok {
				ref.TransformMethod = tm
			}
		}
		if tp, ok := storage.GetDict(rd, "TransformParams"); ok {
			ref.TransformParams = tp
		}
		ref.Data = rd.Get("Data")
		if dm, ok := storage.GetName(rd, "DigestMethod"); ok {
			ref.DigestMethod = dm
		}
		out = append(out, ref)
	}
	return out
}

func parseChanges(storage pdfmodel.ObjectStorage, dict *pdfmodel.Dictionary) *Changes {
	flat, ok := storage.GetIntArray(dict, "Changes")
	if !ok || len(flat) != 3 {
		return nil
	}
	return &Changes{Objects: flat[0], Pages: flat[1], Fields: flat[2]}
}
