// Package compress is a response-compression middleware for Aurora.
// Aurora's Context builds the whole response body before Send, rather
// than streaming it through an io.Writer the way the teacher's
// shockwave ResponseWriter does — so compression here runs as a
// post-handler step that re-encodes the finished body in place,
// negotiated off Accept-Encoding using klauspost/compress's gzip/zstd
// implementations and andybalholm/brotli, the compression stack the
// teacher's go.mod carries but never wires into a concrete component.
package compress

import (
	"bytes"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/aurorahttp/aurora"
)

// Encoding identifies a supported content-coding.
type Encoding string

const (
	Gzip     Encoding = "gzip"
	Brotli   Encoding = "br"
	Zstd     Encoding = "zstd"
	Identity Encoding = "identity"
)

// Config configures the compression middleware.
type Config struct {
	// MinLength is the smallest body size, in bytes, worth compressing.
	// Bodies shorter than this pass through uncompressed. Default: 256.
	MinLength int

	// GzipLevel and BrotliLevel are the compression levels passed to gzip
	// and brotli. DefaultConfig sets each library's "default" constant;
	// New does not fill in a zero value.
	GzipLevel   int
	BrotliLevel int

	// Preference orders which encoding wins when a client's
	// Accept-Encoding lists more than one supported scheme. Default:
	// [Brotli, Zstd, Gzip].
	Preference []Encoding
}

// DefaultConfig returns sane defaults: 256-byte threshold, default
// compression levels, brotli preferred over zstd over gzip.
func DefaultConfig() Config {
	return Config{
		MinLength:   256,
		GzipLevel:   gzip.DefaultCompression,
		BrotliLevel: 6,
		Preference:  []Encoding{Brotli, Zstd, Gzip},
	}
}

// New builds the middleware from cfg.
func New(cfg Config) aurora.Middleware {
	if cfg.MinLength <= 0 {
		cfg.MinLength = 256
	}
	if len(cfg.Preference) == 0 {
		cfg.Preference = []Encoding{Brotli, Zstd, Gzip}
	}

	zstdEnc, _ := zstd.NewWriter(nil)

	return func(c *aurora.Context, next aurora.Next) error {
		if err := next(); err != nil {
			return err
		}

		resp := c.Response()
		body := resp.Body()
		if len(body) < cfg.MinLength {
			return nil
		}
		if resp.Header().Get("Content-Encoding") != nil {
			return nil // handler already encoded its own body
		}

		enc, ok := negotiate(c.Header("Accept-Encoding"), cfg.Preference)
		if !ok {
			return nil
		}

		encoded, err := encode(enc, body, cfg, zstdEnc)
		if err != nil || encoded == nil {
			return nil // fall through uncompressed rather than fail the request
		}

		resp.SetBody(encoded)
		resp.Header().Add([]byte("Content-Encoding"), []byte(enc))
		resp.Header().Add([]byte("Vary"), []byte("Accept-Encoding"))
		return nil
	}
}

func negotiate(acceptEncoding string, preference []Encoding) (Encoding, bool) {
	if acceptEncoding == "" {
		return "", false
	}
	offered := make(map[Encoding]bool)
	for _, part := range strings.Split(acceptEncoding, ",") {
		name := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		offered[Encoding(name)] = true
	}
	for _, enc := range preference {
		if offered[enc] {
			return enc, true
		}
	}
	return "", false
}

func encode(enc Encoding, body []byte, cfg Config, zstdEnc *zstd.Encoder) ([]byte, error) {
	var buf bytes.Buffer
	switch enc {
	case Gzip:
		w, err := gzip.NewWriterLevel(&buf, cfg.GzipLevel)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case Brotli:
		w := brotli.NewWriterLevel(&buf, cfg.BrotliLevel)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case Zstd:
		if zstdEnc == nil {
			return nil, nil
		}
		return zstdEnc.EncodeAll(body, nil), nil
	default:
		return nil, nil
	}
	return buf.Bytes(), nil
}
