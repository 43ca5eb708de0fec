// Package cybersource implements the acquirer contract against the
// CyberSource REST API using HTTP Signature authentication.
package cybersource

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// SignedHeaders is the header list covered by the signature. The order is
// fixed by the gateway's CyberSource profile and must match the signing
// string exactly.
const SignedHeaders = "host date (request-target) digest v-c-merchant-id"

// Credentials holds a merchant's CyberSource HTTP Signature credentials.
type Credentials struct {
	MerchantID string
	KeyID      string
	SecretKey  string // base64-encoded shared secret
	Host       string // value of the Host header, e.g. apitest.cybersource.com
}

// Signer produces Signature header values for outbound requests.
type Signer struct {
	creds Credentials
	key   []byte
}

// NewSigner decodes the shared secret and returns a ready signer.
func NewSigner(creds Credentials) (*Signer, error) {
	key, err := base64.StdEncoding.DecodeString(creds.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("decode cybersource secret key: %w", err)
	}
	return &Signer{creds: creds, key: key}, nil
}

// Digest returns the Digest header value for body.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
}

// Sign builds the Signature header value for one request. date must already
// be formatted as RFC 1123 GMT.
func (s *Signer) Sign(method, path, date, digest string) string {
	signingString := strings.Join([]string{
		"host: " + s.creds.Host,
		"date: " + date,
		"(request-target): " + strings.ToLower(method) + " " + path,
		"digest: " + digest,
		"v-c-merchant-id: " + s.creds.MerchantID,
	}, "\n")

	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(signingString))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf(`keyid="%s", algorithm="HmacSHA256", headers="%s", signature="%s"`,
		s.creds.KeyID, SignedHeaders, signature)
}
