package stream

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const decodeBufferSize = 4096

// Decoder turns a byte stream into UTF-8 text one read at a time.
// A multi-byte sequence cut by a read boundary is held back and prefixed to the next read.
// Ill-formed bytes decode to U+FFFD.
type Decoder struct {
	transformer transform.Transformer
	pending     []byte
	dst         []byte
}

// NewDecoder returns a new UTF-8 decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		transformer: unicode.UTF8.NewDecoder(),
		dst:         make([]byte, decodeBufferSize),
	}
}

// Decode decodes p, prefixed by any sequence held back from the previous call.
// With atEOF set, a held-back incomplete sequence is decoded as U+FFFD instead of being retained.
func (d *Decoder) Decode(p []byte, atEOF bool) (string, error) {
	src := make([]byte, 0, len(d.pending)+len(p))
	src = append(src, d.pending...)
	src = append(src, p...)
	d.pending = d.pending[:0]

	var sb strings.Builder
	for {
		nDst, nSrc, err := d.transformer.Transform(d.dst, src, atEOF)
		sb.Write(d.dst[:nDst])
		src = src[nSrc:]
		switch err {
		case nil:
			return sb.String(), nil
		case transform.ErrShortDst:
			continue
		case transform.ErrShortSrc:
			d.pending = append(d.pending, src...)
			return sb.String(), nil
		default:
			return sb.String(), err
		}
	}
}

// Pending returns the number of bytes held back.
func (d *Decoder) Pending() int { return len(d.pending) }
