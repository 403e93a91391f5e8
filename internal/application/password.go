package application

import "golang.org/x/crypto/bcrypt"

// bcryptCost balances hashing time against login throughput. The
// library default is fine for a community booking service.
const bcryptCost = bcrypt.DefaultCost

// CreatePasswordHash hashes a plaintext password for storage.
func CreatePasswordHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a stored hash with a candidate password. A
// mismatch surfaces as ErrInvalidCredentials so callers never learn
// whether the hash itself was malformed.
func VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
