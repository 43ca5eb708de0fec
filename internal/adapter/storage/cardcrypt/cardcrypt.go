// Package cardcrypt seals card payloads before they reach any store. Vault
// entries are ciphertext at rest regardless of which backend holds them.
package cardcrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"payment-api-gateway/internal/core/domain"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts and decrypts vault entries with ChaCha20-Poly1305.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from a 32-byte hex key.
func NewSealer(hexKey string) (*Sealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts the card. The random nonce is prepended to the ciphertext.
func (s *Sealer) Seal(card *domain.Card) ([]byte, error) {
	plaintext, err := json.Marshal(card)
	if err != nil {
		return nil, fmt.Errorf("marshal card: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a sealed entry back into a card.
func (s *Sealer) Open(sealed []byte) (*domain.Card, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, fmt.Errorf("sealed card too short")
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed card: %w", err)
	}

	card := &domain.Card{}
	if err := json.Unmarshal(plaintext, card); err != nil {
		return nil, fmt.Errorf("unmarshal card: %w", err)
	}
	return card, nil
}
