package pkg

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost matches the cost the seed data was produced with.
const DefaultBcryptCost = 10

// HashPassword produces a salted bcrypt hash of the given password.
// The salt is generated per call and embedded in the returned token,
// so two calls for the same password yield different tokens.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return BytesToString(bytes), nil
}

// CheckPasswordHash reports whether password matches the bcrypt hash.
// Malformed hashes simply yield false, never an error to the caller.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
