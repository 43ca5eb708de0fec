package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// RealClock implements ports.Clock with the system clock.
type RealClock struct{}

// NewRealClock creates a RealClock.
func NewRealClock() RealClock { return RealClock{} }

// Now returns the current UTC time.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// CryptoServiceImpl implements ports.Crypto with crypto/rand and SHA-256.
type CryptoServiceImpl struct{}

// NewCryptoService creates a CryptoServiceImpl.
func NewCryptoService() CryptoServiceImpl { return CryptoServiceImpl{} }

// RandomToken returns prefix + base64url(n random bytes), unpadded.
func (CryptoServiceImpl) RandomToken(prefix string, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func (CryptoServiceImpl) SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SignHMAC returns the lowercase hex HMAC-SHA256 of payload under secret.
func (CryptoServiceImpl) SignHMAC(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
