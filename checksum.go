package blobpath

import (
	"context"
	"crypto/md5"  //nolint:gosec // integrity only
	"crypto/sha1" //nolint:gosec // integrity only
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ChecksumAlgorithm names a supported hash.
type ChecksumAlgorithm string

const (
	ChecksumMD5    ChecksumAlgorithm = "md5"
	ChecksumSHA1   ChecksumAlgorithm = "sha1"
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	ChecksumSHA512 ChecksumAlgorithm = "sha512"
	ChecksumCRC32  ChecksumAlgorithm = "crc32"
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

// NewHasher returns a fresh hash for algorithm, or ErrNotSupported.
func NewHasher(algorithm ChecksumAlgorithm) (hash.Hash, error) {
	switch ChecksumAlgorithm(strings.ToLower(string(algorithm))) {
	case ChecksumMD5:
		return md5.New(), nil //nolint:gosec
	case ChecksumSHA1:
		return sha1.New(), nil //nolint:gosec
	case ChecksumSHA256:
		return sha256.New(), nil
	case ChecksumSHA512:
		return sha512.New(), nil
	case ChecksumCRC32:
		return crc32.NewIEEE(), nil
	case ChecksumXXHash:
		return xxhash.New(), nil
	}
	return nil, fmt.Errorf("%w: checksum algorithm %q", ErrNotSupported, algorithm)
}

// CalculateChecksum hashes everything r yields and returns the hex digest.
func CalculateChecksum(r io.Reader, algorithm ChecksumAlgorithm) (string, error) {
	sums, err := CalculateChecksums(r, []ChecksumAlgorithm{algorithm})
	if err != nil {
		return "", err
	}
	return sums[algorithm], nil
}

// CalculateChecksums feeds r once through every algorithm. Duplicate
// algorithms share one hasher.
func CalculateChecksums(r io.Reader, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	if len(algorithms) == 0 {
		return nil, fmt.Errorf("%w: no checksum algorithm given", ErrNotSupported)
	}

	hashers := make(map[ChecksumAlgorithm]hash.Hash, len(algorithms))
	var sinks []io.Writer
	for _, algorithm := range algorithms {
		if _, ok := hashers[algorithm]; ok {
			continue
		}
		h, err := NewHasher(algorithm)
		if err != nil {
			return nil, err
		}
		hashers[algorithm] = h
		sinks = append(sinks, h)
	}

	if _, err := io.Copy(io.MultiWriter(sinks...), r); err != nil {
		return nil, err
	}

	sums := make(map[ChecksumAlgorithm]string, len(hashers))
	for algorithm, h := range hashers {
		sums[algorithm] = hex.EncodeToString(h.Sum(nil))
	}
	return sums, nil
}

// Checksum streams the raw bytes of the blob at p through algorithm and
// returns the hex digest.
func (f *FS) Checksum(ctx context.Context, p Path, algorithm ChecksumAlgorithm) (string, error) {
	rc, err := f.OpenRead(ctx, p, WithoutCompression())
	if err != nil {
		return "", err
	}
	defer rc.Close()
	sum, err := CalculateChecksum(rc, algorithm)
	return sum, WrapPathErr("checksum", p.String(), err)
}

// Checksums computes several digests of the blob at p in one read.
func (f *FS) Checksums(ctx context.Context, p Path, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	rc, err := f.OpenRead(ctx, p, WithoutCompression())
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	sums, err := CalculateChecksums(rc, algorithms)
	return sums, WrapPathErr("checksum", p.String(), err)
}

// VerifyChecksum reports whether the blob at p has the expected digest.
func (f *FS) VerifyChecksum(ctx context.Context, p Path, expected string, algorithm ChecksumAlgorithm) (bool, error) {
	actual, err := f.Checksum(ctx, p, algorithm)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expected), nil
}
