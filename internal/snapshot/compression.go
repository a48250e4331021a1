package snapshot

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec provides streaming compression for archive members
type Codec interface {
	Name() string
	// Extension is appended to the .tar base name, e.g. ".gz"
	Extension() string
	NewWriter(w io.Writer, level int) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
	DefaultLevel() int
}

// CodecRegistry resolves codecs by name or by archive extension
type CodecRegistry struct {
	codecs map[string]Codec
}

// NewCodecRegistry creates a registry with all supported codecs
func NewCodecRegistry() *CodecRegistry {
	r := &CodecRegistry{codecs: make(map[string]Codec)}
	for _, c := range []Codec{&gzipCodec{}, &zstdCodec{}, &lz4Codec{}, &noneCodec{}} {
		r.codecs[c.Name()] = c
	}
	return r
}

// Get returns the codec for an algorithm name. An empty name
// resolves to gzip.
func (r *CodecRegistry) Get(name string) (Codec, error) {
	if name == "" {
		name = "gzip"
	}
	codec, ok := r.codecs[name]
	if !ok {
		return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", name), nil)
	}
	return codec, nil
}

// ByExtension resolves a codec from an archive file extension
func (r *CodecRegistry) ByExtension(ext string) (Codec, error) {
	for _, codec := range r.codecs {
		if codec.Extension() == ext {
			return codec, nil
		}
	}
	return nil, NewCompressionError(fmt.Sprintf("unrecognized archive extension: %s", ext), nil)
}

// Names returns the supported algorithm names
func (r *CodecRegistry) Names() []string {
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	return names
}

type gzipCodec struct{}

func (gzipCodec) Name() string      { return "gzip" }
func (gzipCodec) Extension() string { return ".gz" }
func (gzipCodec) DefaultLevel() int { return gzip.DefaultCompression }

func (gzipCodec) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	if level < gzip.BestSpeed || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	zw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, NewCompressionError("failed to create gzip writer", err)
	}
	return zw, nil
}

func (gzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, NewCompressionError("failed to create gzip reader", err)
	}
	return zr, nil
}

type zstdCodec struct{}

func (zstdCodec) Name() string      { return "zstd" }
func (zstdCodec) Extension() string { return ".zst" }
func (zstdCodec) DefaultLevel() int { return 3 }

func (zstdCodec) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	encoderLevel := zstd.SpeedDefault
	switch {
	case level <= 1:
		encoderLevel = zstd.SpeedFastest
	case level <= 3:
		encoderLevel = zstd.SpeedDefault
	case level <= 6:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedBestCompression
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(encoderLevel))
	if err != nil {
		return nil, NewCompressionError("failed to create zstd encoder", err)
	}
	return zw, nil
}

func (zstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, NewCompressionError("failed to create zstd decoder", err)
	}
	return zr.IOReadCloser(), nil
}

type lz4Codec struct{}

func (lz4Codec) Name() string      { return "lz4" }
func (lz4Codec) Extension() string { return ".lz4" }
func (lz4Codec) DefaultLevel() int { return 1 }

func (lz4Codec) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	zw := lz4.NewWriter(w)
	if level > 6 {
		if err := zw.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, NewCompressionError("failed to set lz4 compression level", err)
		}
	}
	return zw, nil
}

func (lz4Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

type noneCodec struct{}

func (noneCodec) Name() string      { return "none" }
func (noneCodec) Extension() string { return "" }
func (noneCodec) DefaultLevel() int { return 0 }

func (noneCodec) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (noneCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
