package ports

import "context"

// EncryptionService encrypts access credentials before they reach the record
// store.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SyncLocker is a per-business advisory lock around full-sync runs. It only
// guards sync against sync: webhook ingestion is deliberately not serialized
// against an in-flight run (last-applied-wins).
type SyncLocker interface {
	// Acquire returns false when another run already holds the lock.
	Acquire(ctx context.Context, businessID string) (bool, error)
	Release(ctx context.Context, businessID string) error
}
