// Package cryptoguard models CRYPTO_LOCK from spec §5: the
// verification core assumes its underlying cryptographic primitives
// (PKCS#7, X.509, ASN.1, digest) are not safe to call reentrantly from
// multiple goroutines at once, so every call into them is wrapped in
// one process-wide critical section.
//
// Grounded on the mutex-guarded Load patterns in the teacher's
// sign/signers/pkcs11_signer.go and csc_signer.go, which serialize
// access to a single non-reentrant signing backend the same way.
package cryptoguard

import "sync"

var mu sync.Mutex

// Lock acquires the process-wide crypto lock and returns a function
// that releases it. Callers are expected to defer the returned
// function immediately:
//
//	unlock := cryptoguard.Lock()
//	defer unlock()
func Lock() (unlock func()) {
	mu.Lock()
	return mu.Unlock
}
