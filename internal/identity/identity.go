// Package identity выводит из email стабильный непрозрачный идентификатор:
// ключ раздела, под которым хранятся записи пользователя.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Size - длина идентификатора в байтах до hex-кодирования.
const Size = 16

// Normalize приводит email к виду, по которому выводится идентификатор.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Derive возвращает 32 hex-символа: усечённый SHA-256 от нормализованного email.
// Это ключ раздела, а не граница безопасности.
func Derive(email string) string {
	sum := sha256.Sum256([]byte(Normalize(email)))
	return hex.EncodeToString(sum[:Size])
}
