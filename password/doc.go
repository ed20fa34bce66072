// Package password verifies plaintext credentials against stored one-way hashes.
//
// Two encodings are understood:
//
//	$2a$/$2b$/$2y$<cost>$<salt+hash>               bcrypt (default for new hashes)
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Auto] picks the algorithm from the stored hash prefix, so a credential store may
// hold a mix of both.
//
// # What this package must NOT do
//
//   - Store or look up credentials.
//   - Report why a verification failed. A mismatch and an unreadable hash are both false.
//   - Log plaintext passwords.
package password

// Verifier compares a plaintext password with a stored hash. Verify never panics
// and never returns an error; any failure is reported as false.
type Verifier interface {
	Verify(plaintext, hash string) bool
}

// Hasher produces stored hashes for new credentials.
type Hasher interface {
	Hash(plaintext string) (string, error)
}
