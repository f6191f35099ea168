package credentials

import "golang.org/x/crypto/bcrypt"

// hashVersion tags stored hashes so the scheme can be rotated later.
const hashVersion = 1

const bcryptCost = 12

func HashPassword(password string) (hash string, version int, err error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", 0, err
	}
	return string(b), hashVersion, nil
}

func VerifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
