// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compression compresses service token data before it is
// encrypted and signed.
//
// The algorithm name travels in the token as "compressionalgo", so
// the names returned by [Algorithm.String] are wire constants.
// Compression is opportunistic: [Compress] returns [ErrIncompressible]
// when the output would not be smaller, and the caller stores the
// data uncompressed.
//
// Decompression runs on data from the network, so [Decompress] takes
// an output limit and fails with COMPRESSION_ERROR rather than
// expanding past it.
package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/msl/lib/mslerror"
)

// Algorithm identifies a compression algorithm.
type Algorithm uint8

const (
	// None stores data as-is.
	None Algorithm = iota

	// GZIP is DEFLATE in a gzip container. Every MSL peer supports it.
	GZIP

	// ZSTD is zstd at the default level. Better ratio and speed than
	// GZIP for the JSON-like payloads services typically store.
	ZSTD

	// LZ4 is LZ4 block compression. Fastest decode, lowest ratio.
	LZ4
)

// DefaultLimit bounds decompressed output when callers have no better
// figure.
const DefaultLimit = 16 << 20

// String returns the wire name of the algorithm.
func (algorithm Algorithm) String() string {
	switch algorithm {
	case None:
		return "NONE"
	case GZIP:
		return "GZIP"
	case ZSTD:
		return "ZSTD"
	case LZ4:
		return "LZ4"
	default:
		return fmt.Sprintf("unknown(%d)", algorithm)
	}
}

// ParseAlgorithm parses a wire name. The empty string is None.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "", "NONE":
		return None, nil
	case "GZIP":
		return GZIP, nil
	case "ZSTD":
		return ZSTD, nil
	case "LZ4":
		return LZ4, nil
	default:
		return 0, mslerror.New(mslerror.CompressionError, "unknown compression algorithm %q", name)
	}
}

// ErrIncompressible is returned by Compress when the compressed form
// is not smaller than the input.
var ErrIncompressible = errors.New("compression: data is incompressible")

// Compress compresses data with algorithm. For None it returns data
// unchanged.
func Compress(algorithm Algorithm, data []byte) ([]byte, error) {
	var compressed []byte
	var err error
	switch algorithm {
	case None:
		return data, nil
	case GZIP:
		compressed, err = compressGzip(data)
	case ZSTD:
		compressed = zstdEncoder.EncodeAll(data, nil)
	case LZ4:
		compressed, err = compressLZ4(data)
	default:
		return nil, mslerror.New(mslerror.CompressionError, "unsupported algorithm %s", algorithm)
	}
	if err != nil {
		if errors.Is(err, ErrIncompressible) {
			return nil, err
		}
		return nil, mslerror.Wrap(mslerror.CompressionError, err, "%s compress", algorithm)
	}
	if len(compressed) >= len(data) {
		return nil, ErrIncompressible
	}
	return compressed, nil
}

// Decompress reverses Compress. Output longer than limit bytes is
// rejected.
func Decompress(algorithm Algorithm, compressed []byte, limit int) ([]byte, error) {
	var data []byte
	var err error
	switch algorithm {
	case None:
		data = compressed
	case GZIP:
		data, err = decompressGzip(compressed, limit)
	case ZSTD:
		data, err = decompressZstd(compressed, limit)
	case LZ4:
		data, err = decompressLZ4(compressed, limit)
	default:
		return nil, mslerror.New(mslerror.CompressionError, "unsupported algorithm %s", algorithm)
	}
	if err != nil {
		return nil, mslerror.Wrap(mslerror.CompressionError, err, "%s decompress", algorithm)
	}
	if len(data) > limit {
		return nil, mslerror.New(mslerror.CompressionError, "%s output exceeds %d bytes", algorithm, limit)
	}
	return data, nil
}

func compressGzip(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buffer, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func decompressGzip(compressed []byte, limit int) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	// Read one byte past the limit so overflow is detectable.
	data, err := io.ReadAll(io.LimitReader(reader, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func decompressZstd(compressed []byte, limit int) ([]byte, error) {
	// Reject up front when the frame declares its size. Frames without
	// a content size are caught by the streaming read below.
	var header zstd.Header
	if err := header.Decode(compressed); err == nil && header.HasFCS && header.FrameContentSize > uint64(limit) {
		return nil, fmt.Errorf("frame declares %d bytes, limit is %d", header.FrameContentSize, limit)
	}
	decoder, err := zstd.NewReader(bytes.NewReader(compressed),
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(zstdMaxMemory),
	)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return io.ReadAll(io.LimitReader(decoder, int64(limit)+1))
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, err
	}
	// CompressBlock reports incompressible input as zero bytes written.
	if written == 0 {
		return nil, ErrIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, limit int) ([]byte, error) {
	// Block mode carries no length. Grow the destination until the
	// block fits or the limit is reached.
	size := min(limit, 4*len(compressed)+64)
	for {
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(compressed, destination)
		if err == nil {
			return destination[:read], nil
		}
		if !errors.Is(err, lz4.ErrInvalidSourceShortBuffer) || size >= limit {
			return nil, err
		}
		size = min(limit, size*2)
	}
}

// zstdMaxMemory caps the window a zstd frame may demand.
const zstdMaxMemory = DefaultLimit * 4

// zstdEncoder is shared; EncodeAll is safe for concurrent use.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compression: zstd encoder initialization failed: " + err.Error())
	}
}
