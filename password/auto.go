package password

import "strings"

// Auto dispatches verification on the stored hash prefix.
type Auto struct {
	bcrypt *Bcrypt
	argon2 *Argon2
}

// NewAuto returns a verifier accepting bcrypt and argon2id hashes.
func NewAuto() *Auto {
	return &Auto{
		bcrypt: &Bcrypt{cost: DefaultBcryptCost},
		argon2: &Argon2{config: DefaultArgon2Config()},
	}
}

func (a *Auto) Verify(plaintext, hash string) bool {
	switch {
	case isBcrypt(hash):
		return a.bcrypt.Verify(plaintext, hash)
	case strings.HasPrefix(hash, "$"+argon2ID+"$"):
		return a.argon2.Verify(plaintext, hash)
	default:
		return false
	}
}
