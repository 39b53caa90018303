package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the supplied password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares the hashed password with the plaintext candidate.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

var (
	decoyOnce sync.Once
	decoyHash []byte
)

// VerifyDecoyPassword runs a bcrypt comparison against a throwaway hash and always reports
// false. Logins call it for unknown accounts so they cost the same as a wrong password.
func VerifyDecoyPassword(password string) bool {
	decoyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("studyhall-decoy-password"), bcrypt.DefaultCost)
		if err == nil {
			decoyHash = hash
		}
	})
	if decoyHash == nil {
		return false
	}
	_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(password))
	return false
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// GenerateInvitationCode returns the first length characters of a random UUID with the
// separators removed, upper-cased so codes are easy to read back over the phone.
func GenerateInvitationCode(length int) (string, error) {
	if length <= 0 || length > 32 {
		return "", errors.New("crypto: invitation code length must be between 1 and 32")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	raw := strings.ReplaceAll(id.String(), "-", "")
	return strings.ToUpper(raw[:length]), nil
}

// GenerateOneTimeCode returns six uniformly random decimal digits, left-padded with zeros.
func GenerateOneTimeCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return otp.DigitsSix.Format(int32(n.Int64())), nil
}
