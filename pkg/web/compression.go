package web

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	ZlibContentEncoding = "deflate"
	Lz4ContentEncoding  = "lz4"
	ZstdContentEncoding = "zstd"
)

// unsupportedEncodingError is returned for a Content-Encoding the server cannot decode.
type unsupportedEncodingError string

func (e unsupportedEncodingError) Error() string {
	return fmt.Sprintf("unsupported content encoding %q", string(e))
}

// ErrDecompressedTooLarge is returned when a body decompresses to more than the allowed size.
var ErrDecompressedTooLarge = errors.New("decompressed body too large")

// decompress returns the body decoded according to the Content-Encoding header value. A positive limit caps the
// decoded size.
func decompress(encoding string, input []byte, limit int64) ([]byte, error) {
	switch encoding {
	case "", "identity":
		return input, nil
	case ZlibContentEncoding:
		return DecompressWithZlib(input, limit)
	case Lz4ContentEncoding:
		return DecompressWithLz4(input, limit)
	case ZstdContentEncoding:
		return DecompressWithZstd(input, limit)
	default:
		if len(encoding) > 64 {
			encoding = encoding[0:64]
		}
		return nil, unsupportedEncodingError(encoding)
	}
}

func DecompressWithZlib(input []byte, limit int64) ([]byte, error) {
	decompressor, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, err
	}
	defer decompressor.Close()
	return readAll(decompressor, limit)
}

func DecompressWithLz4(input []byte, limit int64) ([]byte, error) {
	return readAll(lz4.NewReader(bytes.NewReader(input)), limit)
}

func DecompressWithZstd(input []byte, limit int64) ([]byte, error) {
	decompressor, err := zstd.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, err
	}
	defer decompressor.Close()
	return readAll(decompressor, limit)
}

// readAll reads r to the end, or fails with ErrDecompressedTooLarge once more than a positive limit was read.
func readAll(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return nil, err
	}
	if limit > 0 && int64(out.Len()) > limit {
		return nil, ErrDecompressedTooLarge
	}
	return out.Bytes(), nil
}

// The Compress helpers are the client side of decompress. They are used by tests and by anything posting to the
// ingest API from Go.

func CompressWithZlib(in []byte, out io.Writer) error {
	compressor := zlib.NewWriter(out)
	_, _ = compressor.Write(in) // error is propagated through Close
	return compressor.Close()
}

func CompressWithLz4(in []byte, out io.Writer) error {
	compressor := lz4.NewWriter(out)
	if _, err := compressor.Write(in); err != nil {
		_ = compressor.Close()
		return err
	}
	return compressor.Close()
}

func CompressWithZstd(in []byte, out io.Writer) error {
	compressor, err := zstd.NewWriter(out)
	if err != nil {
		return err
	}
	if _, err = compressor.Write(in); err != nil {
		_ = compressor.Close()
		return err
	}
	return compressor.Close()
}
