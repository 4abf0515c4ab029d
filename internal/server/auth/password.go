package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost is fixed at 12 rounds; it is not user-configurable.
const bcryptCost = 12

// bcryptMaxLen is the bcrypt input limit. Longer passwords are truncated to
// exactly this many bytes on both the hash and verify paths so that long
// passwords stay verifiable.
const bcryptMaxLen = 72

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > bcryptMaxLen {
		b = b[:bcryptMaxLen]
	}
	return b
}

// HashPassword returns a salted bcrypt digest of the password.
// The plaintext is never stored or logged.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(truncatePassword(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// CheckPassword reports whether password matches the stored digest.
// A malformed digest fails closed: the result is false, never a panic.
func CheckPassword(password string, digest string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), truncatePassword(password))
	return err == nil
}
