package checksum

import (
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

// Fingerprint accumulates an XXH3-64 digest. Not safe for concurrent use.
type Fingerprint struct {
	h *xxh3.Hasher
	n int64
}

func New() *Fingerprint {
	return &Fingerprint{h: xxh3.New()}
}

func (f *Fingerprint) Write(p []byte) (int, error) {
	n, err := f.h.Write(p)
	f.n += int64(n)
	return n, err
}

// Sum returns the digest of everything written so far.
func (f *Fingerprint) Sum() string {
	return format(f.h.Sum64())
}

// Size is the number of bytes hashed.
func (f *Fingerprint) Size() int64 {
	return f.n
}

// TeeReader returns a reader that hashes everything read through it.
func TeeReader(r io.Reader) (io.Reader, *Fingerprint) {
	fp := New()
	return io.TeeReader(r, fp), fp
}

// Bytes fingerprints b in one call.
func Bytes(b []byte) string {
	return format(xxh3.Hash(b))
}

// File fingerprints the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fp := New()
	if _, err := io.Copy(fp, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return fp.Sum(), nil
}

func format(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}
