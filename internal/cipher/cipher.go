// Package cipher шифрует отдельные строковые поля (wallet) перед записью в хранилище записей.
//
// Формат токена: "enc:v1:" + base64url(nonce || ciphertext), AES-256-GCM, nonce 12 байт.
// Расшифровка не возвращает ошибок: всё, что не похоже на наш токен или не проходит
// аутентификацию, возвращается как есть. В хранилище могут лежать старые значения без шифрования.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// TokenPrefix помечает зашифрованные значения.
const TokenPrefix = "enc:v1:"

const (
	keySize   = 32
	nonceSize = 12
)

// ErrEmptySeed - ключевой материал не задан.
var ErrEmptySeed = errors.New("cipher: empty key seed")

// KeyProvider отдаёт 32-байтный ключ AES-256.
type KeyProvider interface {
	Key() ([]byte, error)
}

// SeedKeyProvider выводит ключ из секрета конфигурации через argon2id.
type SeedKeyProvider struct {
	Seed string
	Salt string
}

func (p SeedKeyProvider) Key() ([]byte, error) {
	if p.Seed == "" {
		return nil, ErrEmptySeed
	}
	salt := p.Salt
	if salt == "" {
		salt = "airdrop-tracker/wallet"
	}
	return argon2.IDKey([]byte(p.Seed), []byte(salt), 1, 64*1024, 4, keySize), nil
}

// StaticKey - готовый ключ (тесты, внешний KMS).
type StaticKey []byte

func (k StaticKey) Key() ([]byte, error) {
	if len(k) != keySize {
		return nil, fmt.Errorf("cipher: key must be %d bytes, got %d", keySize, len(k))
	}
	return []byte(k), nil
}

// FieldCipher шифрует и расшифровывает значения полей. Нулевое значение (и nil) - выключенный шифр:
// Encrypt и Decrypt возвращают вход без изменений.
type FieldCipher struct {
	aead cipher.AEAD
}

// New строит шифр на ключе от провайдера.
func New(kp KeyProvider) (*FieldCipher, error) {
	key, err := kp.Key()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	return &FieldCipher{aead: aead}, nil
}

// Disabled возвращает шифр, который ничего не шифрует.
func Disabled() *FieldCipher { return &FieldCipher{} }

// Enabled сообщает, настроен ли ключ.
func (c *FieldCipher) Enabled() bool { return c != nil && c.aead != nil }

// Encrypt возвращает токен для plaintext. Пустая строка остаётся пустой.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	if !c.Enabled() || plaintext == "" {
		return plaintext, nil
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cipher: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt возвращает открытый текст токена или token без изменений, если расшифровать нельзя.
func (c *FieldCipher) Decrypt(token string) string {
	if !c.Enabled() || !strings.HasPrefix(token, TokenPrefix) {
		return token
	}
	raw, err := base64.RawURLEncoding.DecodeString(token[len(TokenPrefix):])
	if err != nil || len(raw) < nonceSize+c.aead.Overhead() {
		return token
	}
	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return token
	}
	return string(plain)
}

// IsToken - строка расшифровывается текущим ключом.
func (c *FieldCipher) IsToken(s string) bool {
	if !c.Enabled() || !strings.HasPrefix(s, TokenPrefix) {
		return false
	}
	return c.Decrypt(s) != s
}
