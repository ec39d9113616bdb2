package auth

import "golang.org/x/crypto/bcrypt"

// HashProvisionKey hashes the token-issuance key for storage in config.
func HashProvisionKey(key string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyProvisionKey checks a presented key against the configured hash.
func VerifyProvisionKey(hashed, key string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(key))
}
