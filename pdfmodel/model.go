// Package pdfmodel defines the seam between this module and a PDF
// object-graph implementation. It intentionally does not parse PDF
// files: it only declares the small set of object types and storage
// contracts a caller's PDF layer must expose so the signature
// verification core can read signature dictionaries out of it.
package pdfmodel

import "fmt"

// Reference is an indirect reference to a PDF object.
type Reference struct {
	ObjectNumber     int
	GenerationNumber int
}

// String returns the conventional "N G R" rendering of a reference.
func (r Reference) String() string {
	return fmt.Sprintf("%d %d R", r.ObjectNumber, r.GenerationNumber)
}

// Object is any decoded PDF object value. The concrete types that
// satisfy it are Name, String, Integer, Real, Boolean, Array,
// *Dictionary and Reference.
type Object interface{}

// Name is a PDF name object, without its leading slash.
type Name string

// String is a PDF string object. PDF strings are byte sequences, not
// text; Contents and ByteRange-adjacent fields are always read as
// String so the original bytes are preserved.
type String []byte

// Integer is a PDF integer object.
type Integer int64

// Real is a PDF real-number object.
type Real float64

// Boolean is a PDF boolean object.
type Boolean bool

// Array is a PDF array object.
type Array []Object

// Dictionary is a PDF dictionary object. Keys are stored without their
// leading slash, matching how ObjectStorage implementations are
// expected to key their maps.
type Dictionary struct {
	entries map[string]Object
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{entries: make(map[string]Object)}
}

// Set stores a value under key, overwriting any previous value.
func (d *Dictionary) Set(key string, value Object) {
	if d.entries == nil {
		d.entries = make(map[string]Object)
	}
	d.entries[key] = value
}

// Get returns the raw value stored under key, or nil if absent.
func (d *Dictionary) Get(key string) Object {
	if d == nil {
		return nil
	}
	return d.entries[key]
}

// Has reports whether key is present.
func (d *Dictionary) Has(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.entries[key]
	return ok
}

// ObjectStorage is the read-only view of a PDF's object graph that
// component A (the signature dictionary parser) and the rest of the
// core are allowed to depend on. A caller's PDF parser implements this;
// this module never builds one itself beyond the in-memory fixture in
// memstorage.go, which exists for tests.
type ObjectStorage interface {
	// GetDictionary resolves ref (following one level of indirection)
	// and returns it as a dictionary, if that's what it is.
	GetDictionary(ref Reference) (*Dictionary, bool)

	// GetObject resolves ref to its direct object value.
	GetObject(ref Reference) (Object, bool)

	// GetString reads key from dict as a raw PDF string's bytes.
	GetString(dict *Dictionary, key string) ([]byte, bool)

	// GetInt reads key from dict as an integer.
	GetInt(dict *Dictionary, key string) (int64, bool)

	// GetName reads key from dict as a name object, without its
	// leading slash.
	GetName(dict *Dictionary, key string) (string, bool)

	// GetDict reads key from dict as a (possibly indirect) dictionary.
	GetDict(dict *Dictionary, key string) (*Dictionary, bool)

	// GetTextString reads key from dict as a human-readable text
	// string (PDFDocEncoding or UTF-16BE, decoded to UTF-8).
	GetTextString(dict *Dictionary, key string) (string, bool)

	// GetIntArray reads key from dict as a flat array of integers.
	GetIntArray(dict *Dictionary, key string) ([]int64, bool)

	// GetObjectArray reads key from dict as an array of (possibly
	// indirect) objects, resolving each one level of indirection.
	GetObjectArray(dict *Dictionary, key string) ([]Object, bool)
}

// FormKind distinguishes the two interactive-form flavors a PDF can
// carry. verify_signatures only processes AcroForm and XFA forms (see
// the Form.Kind doc); anything else yields an empty result.
type FormKind int

const (
	FormKindNone FormKind = iota
	FormKindAcroForm
	FormKindXFA
)

// SignatureField is a single entry of a Form's field tree whose field
// type is Signature. Dictionary() is all component A (see package
// sigfield) needs to produce a Signature value.
type SignatureField interface {
	// Reference is the indirect reference to the field dictionary,
	// used to populate VerificationResult.SignatureFieldReference.
	Reference() Reference

	// QualifiedName is the fully qualified field name, built by
	// joining this field's /T with its ancestors' using '.'.
	QualifiedName() string

	// Dictionary is the signature dictionary (the field's /V entry),
	// or nil if the field has not been signed yet.
	Dictionary() *Dictionary
}

// Form enumerates the signature fields of a PDF's interactive form.
type Form interface {
	// Kind reports whether this is an AcroForm, an XFA form, or
	// neither.
	Kind() FormKind

	// Apply calls visit once per signature field the form contains,
	// in the form's natural enumeration order. It stops and returns
	// the first error a visit call returns.
	Apply(visit func(SignatureField) error) error
}
