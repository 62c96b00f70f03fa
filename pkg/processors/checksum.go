// File: pkg/processors/checksum.go

package processors

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/xxh3"
)

// ChecksumWriter считает xxh3 (64-bit) хеш и размер всего, что в него записано.
// Используется через io.MultiWriter рядом с файлом назначения.
type ChecksumWriter struct {
	hasher *xxh3.Hasher
	size   int64
}

// NewChecksumWriter создает новый счетчик контрольной суммы
func NewChecksumWriter() *ChecksumWriter {
	return &ChecksumWriter{hasher: xxh3.New()}
}

// Write реализует io.Writer
func (c *ChecksumWriter) Write(p []byte) (int, error) {
	n, err := c.hasher.Write(p)
	c.size += int64(n)
	return n, err
}

// Sum возвращает hex-encoded хеш записанных данных
func (c *ChecksumWriter) Sum() string {
	return hex.EncodeToString(uint64ToBytes(c.hasher.Sum64()))
}

// Size возвращает количество записанных байт
func (c *ChecksumWriter) Size() int64 {
	return c.size
}

// uint64ToBytes конвертирует uint64 в байтовый массив (big-endian).
func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// --- Helper Functions ---

// ComputeChecksum вычисляет xxh3 хеш данных и возвращает hex-encoded строку.
func ComputeChecksum(data []byte) string {
	h := xxh3.Hash(data)
	return hex.EncodeToString(uint64ToBytes(h))
}

// ValidateChecksum проверяет соответствие данных ожидаемому хешу.
func ValidateChecksum(data []byte, expectedHash string) error {
	actual := ComputeChecksum(data)
	if actual != expectedHash {
		return fmt.Errorf(
			"checksum validation failed: expected %s, got %s",
			expectedHash, actual,
		)
	}
	return nil
}
