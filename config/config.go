// Package config loads verification configuration from YAML, grounded
// on the teacher's config/config.go ValidationConfig shape (there
// declared but never wired to an implementation) and its
// yaml.v3-based LoadConfig/ParseConfig pattern.
package config

import (
	"encoding/pem"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sigverify/pdfcore/pdfmodel"
	"github.com/sigverify/pdfcore/truststore"
	"github.com/sigverify/pdfcore/verify"
)

// VerificationConfig is the YAML-serializable shape of a verification
// run's parameters: trusted certificate sources plus the three
// boolean switches spec §6.2's Parameters carries.
type VerificationConfig struct {
	// EnableVerification mirrors Parameters.EnableVerification.
	EnableVerification bool `yaml:"enable-verification"`

	// IgnoreExpirationDate mirrors Parameters.IgnoreExpirationDate.
	IgnoreExpirationDate bool `yaml:"ignore-expiration-date"`

	// UseSystemCertificateStore mirrors Parameters.UseSystemCertificateStore.
	UseSystemCertificateStore bool `yaml:"use-system-certificate-store"`

	// TrustedCertFiles are paths to individual DER or PEM-wrapped DER
	// certificate files to seed the trust store with as EntryUser
	// anchors.
	TrustedCertFiles []string `yaml:"trusted-certs"`

	// PKCS12Bundle is the path to an optional PKCS#12 bundle to import
	// trust anchors from.
	PKCS12Bundle string `yaml:"pkcs12-bundle"`

	// PKCS12Passphrase is the PKCS#12 bundle's decryption passphrase.
	PKCS12Passphrase string `yaml:"pkcs12-passphrase"`
}

// Load reads and parses a VerificationConfig from a YAML file.
func Load(filename string) (*VerificationConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", filename, err)
	}
	return Parse(data)
}

// Parse decodes a VerificationConfig from YAML bytes.
func Parse(data []byte) (*VerificationConfig, error) {
	var cfg VerificationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing YAML: %w", err)
	}
	return &cfg, nil
}

// BuildTrustStore constructs a truststore.Store from the configured
// trusted certificate files and, if set, the PKCS#12 bundle. It does
// not call MergeSystemRoots: that is driven per-verification-call by
// Parameters.UseSystemCertificateStore instead, matching spec §5's
// "opened and closed within one critical section" contract for the OS
// root store.
func (c *VerificationConfig) BuildTrustStore() (*truststore.Store, error) {
	store := truststore.New()

	for _, path := range c.TrustedCertFiles {
		der, err := readCertFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: loading trusted cert %s: %w", path, err)
		}
		if _, parsed := store.AddDER(truststore.EntryUser, der); !parsed {
			return nil, fmt.Errorf("config: %s does not contain a parseable certificate", path)
		}
	}

	if c.PKCS12Bundle != "" {
		data, err := os.ReadFile(c.PKCS12Bundle)
		if err != nil {
			return nil, fmt.Errorf("config: reading PKCS#12 bundle %s: %w", c.PKCS12Bundle, err)
		}
		if _, err := store.AddFromPKCS12(data, c.PKCS12Passphrase); err != nil {
			return nil, fmt.Errorf("config: decoding PKCS#12 bundle %s: %w", c.PKCS12Bundle, err)
		}
	}

	return store, nil
}

// BuildParameters constructs verify.Parameters from the configuration,
// a trust store built via BuildTrustStore, and the caller's
// ObjectStorage implementation.
func (c *VerificationConfig) BuildParameters(storage pdfmodel.ObjectStorage) (verify.Parameters, error) {
	store, err := c.BuildTrustStore()
	if err != nil {
		return verify.Parameters{}, err
	}
	return verify.Parameters{
		EnableVerification:        c.EnableVerification,
		IgnoreExpirationDate:      c.IgnoreExpirationDate,
		UseSystemCertificateStore: c.UseSystemCertificateStore,
		TrustStore:                store,
		Storage:                   storage,
	}, nil
}

// readCertFile reads a certificate file in either PEM or raw DER form,
// returning the DER bytes either way. Grounded on the PEM-or-DER
// detection in the teacher's keys.LoadCertsFromPemDer.
func readCertFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(data); block != nil {
		return block.Bytes, nil
	}
	return data, nil
}
