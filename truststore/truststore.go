// Package truststore implements component C: a deduplicated set of
// trust anchors that verification engines consult during chain
// validation. Its entry/equality model is adapted from the teacher's
// certvalidator SimpleCertificateStore, simplified to the flat
// value-equality semantics spec §4.C calls for instead of indexing by
// issuer/serial/keyID.
package truststore

import (
	"crypto/x509"
	"fmt"
	"sync"

	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/sigverify/pdfcore/certinfo"
)

// EntryType distinguishes trust anchors the caller added explicitly
// from ones merged in from the OS root store.
type EntryType int

const (
	EntrySystem EntryType = iota
	EntryUser
)

// Entry pairs a CertificateInfo with how it entered the store.
type Entry struct {
	Type EntryType
	Info certinfo.CertificateInfo
}

// Store holds an ordered, deduplicated set of trust anchors. It is a
// plain value object per spec §4.C: concurrent writers must coordinate
// externally, and a verification run is expected to borrow it
// read-only for its full duration. The internal mutex here only
// guards against accidental concurrent mutation of this process's own
// copy; it is not a substitute for the caller's external exclusion
// during a verification call.
type Store struct {
	mu      sync.Mutex
	entries []Entry

	// systemPool holds the OS root store once MergeSystemRoots has been
	// called. crypto/x509.CertPool does not expose the certificates it
	// holds for enumeration, so system roots are folded into CertPool's
	// output for chain validation but cannot be expanded into
	// individual Entries the way explicitly added anchors can.
	systemPool *x509.CertPool
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Add appends info under the given entry type if no existing entry is
// value-equal to it. Returns whether the logical set changed.
func (s *Store) Add(entryType EntryType, info certinfo.CertificateInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(entryType, info)
}

func (s *Store) addLocked(entryType EntryType, info certinfo.CertificateInfo) bool {
	for _, existing := range s.entries {
		if existing.Info.Equal(info) {
			return false
		}
	}
	s.entries = append(s.entries, Entry{Type: entryType, Info: info})
	return true
}

// AddDER parses der with certinfo.FromDER, then Adds the result.
// Returns false, false if der could not be parsed.
func (s *Store) AddDER(entryType EntryType, der []byte) (changed bool, parsed bool) {
	info, ok := certinfo.FromDER(der)
	if !ok {
		return false, false
	}
	return s.Add(entryType, *info), true
}

// Contains reports whether info is already present, by value equality.
func (s *Store) Contains(info certinfo.CertificateInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.Info.Equal(info) {
			return true
		}
	}
	return false
}

// Entries returns a copy of the store's contents in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// CertPool builds an x509.CertPool from every explicitly added entry
// plus, if MergeSystemRoots has been called, the OS root store, for
// use as crypto/x509 verification roots.
func (s *Store) CertPool() (*x509.CertPool, error) {
	s.mu.Lock()
	pool := x509.NewCertPool()
	if s.systemPool != nil {
		pool = s.systemPool.Clone()
	}
	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	s.mu.Unlock()

	for _, entry := range entries {
		cert, err := x509.ParseCertificate(entry.Info.CertificateData)
		if err != nil {
			return nil, fmt.Errorf("truststore: parsing stored certificate: %w", err)
		}
		pool.AddCert(cert)
	}
	return pool, nil
}

// MergeSystemRoots loads the OS root store and retains it for CertPool
// to fold in; each call replaces the pool an earlier call retained.
// The verify package does not call it: when
// Parameters.UseSystemCertificateStore is set it reads the OS roots
// itself for each chain validation, leaving the store unchanged.
func (s *Store) MergeSystemRoots() error {
	pool, err := x509.SystemCertPool()
	if err != nil {
		return fmt.Errorf("truststore: loading system root pool: %w", err)
	}
	s.mu.Lock()
	s.systemPool = pool
	s.mu.Unlock()
	return nil
}

// AddFromPKCS12 decodes a PKCS#12 bundle (as produced by most CA and
// HSM export tools) and adds every certificate it contains as an
// EntryUser anchor. This is a supplemental convenience beyond spec's
// baseline add/add_der pair, wired to the teacher's general PKCS#12
// handling in config/config.go (which loads a signing identity from
// the same kind of bundle).
func (s *Store) AddFromPKCS12(data []byte, password string) (int, error) {
	_, cert, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return 0, fmt.Errorf("truststore: decoding PKCS#12 bundle: %w", err)
	}

	added := 0
	all := append([]*x509.Certificate{}, caCerts...)
	if cert != nil {
		all = append(all, cert)
	}
	for _, c := range all {
		info := certinfo.Extract(c)
		if s.Add(EntryUser, info) {
			added++
		}
	}
	return added, nil
}

// Serialize encodes the store as a versioned tagged stream: a leading
// version integer, then an entry count, then each entry's type tag
// followed by its certinfo.Serialize output.
func (s *Store) Serialize() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := newByteWriter()
	buf.writeUint32(storeSerializationVersion)
	buf.writeUint32(uint32(len(s.entries)))
	for _, entry := range s.entries {
		buf.writeUint32(uint32(entry.Type))
		buf.writeBytes(entry.Info.Serialize())
	}
	return buf.bytes()
}

// Deserialize decodes the output of Serialize into a new Store. The
// leading version integer is read and discarded, matching certinfo's
// forward-compatibility contract.
func Deserialize(data []byte) (*Store, error) {
	r := newByteReader(data)

	if _, err := r.readUint32(); err != nil {
		return nil, fmt.Errorf("truststore: reading version: %w", err)
	}
	count, err := r.readUint32()
	if err != nil {
		return nil, fmt.Errorf("truststore: reading entry count: %w", err)
	}

	store := New()
	for i := uint32(0); i < count; i++ {
		typeTag, err := r.readUint32()
		if err != nil {
			return nil, fmt.Errorf("truststore: reading entry %d type: %w", i, err)
		}
		raw, err := r.readBytes()
		if err != nil {
			return nil, fmt.Errorf("truststore: reading entry %d info: %w", i, err)
		}
		info, err := certinfo.Deserialize(raw)
		if err != nil {
			return nil, fmt.Errorf("truststore: decoding entry %d: %w", i, err)
		}
		store.addLocked(EntryType(typeTag), *info)
	}
	return store, nil
}

const storeSerializationVersion = 1
