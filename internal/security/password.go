package security

import "golang.org/x/crypto/bcrypt"

// dummyPasswordHash is compared against when the username does not resolve,
// so unknown-user and wrong-password failures take the same time.
var dummyPasswordHash, _ = bcrypt.GenerateFromPassword([]byte("datavault-dummy"), bcrypt.DefaultCost)

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, errGenerate := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errGenerate != nil {
		return "", errGenerate
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck performs a bcrypt comparison against a throwaway hash.
// Callers use it on the unknown-username path to keep timing uniform.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
}
