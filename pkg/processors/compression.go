// File: pkg/processors/compression.go

package processors

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedSuffix - суффикс файлов, сжатых zstd
const CompressedSuffix = ".zst"

// DefaultCompressionLevel - баланс скорости и степени сжатия
const DefaultCompressionLevel = 3

// IsCompressed определяет по имени файла, сжат ли он zstd
func IsCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), CompressedSuffix)
}

// --- Compression ---

// NewCompressionWriter оборачивает w потоковым zstd энкодером.
// level: 1 (самый быстрый) - 22 (лучшее сжатие), 0 = DefaultCompressionLevel.
// Close энкодера дописывает кадр, но не закрывает w.
func NewCompressionWriter(w io.Writer, level int) (io.WriteCloser, error) {
	if level <= 0 {
		level = DefaultCompressionLevel
	}

	encoder, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	return encoder, nil
}

// --- Decompression ---

// decompressionReader адаптирует zstd.Decoder к io.ReadCloser
type decompressionReader struct {
	decoder *zstd.Decoder
}

func (r *decompressionReader) Read(p []byte) (int, error) {
	return r.decoder.Read(p)
}

// Close освобождает ресурсы декодера
func (r *decompressionReader) Close() error {
	r.decoder.Close()
	return nil
}

// NewDecompressionReader оборачивает r потоковым zstd декодером.
func NewDecompressionReader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &decompressionReader{decoder: decoder}, nil
}
