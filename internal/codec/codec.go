package codec

// codec.go = string <-> bytes conversion for the wire.
// there is no framing: every chunk the socket hands us is one decoded message,
// and every Encode call puts the raw encoded bytes on the wire (no length, no delimiter)

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const DefaultBufferSize = 1024 // max bytes handed out per decode event

var ErrUnknownCharset = errors.New("unknown charset")

// LookupCharset resolves a charset label ("utf-8", "windows-1252", "gbk", ...)
// to an encoding. An empty label means UTF-8.
func LookupCharset(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, name)
	}
	return enc, nil
}

// Decoder turns a byte stream into strings, one per read.
type Decoder struct {
	r   io.Reader
	buf []byte
	err error // error returned alongside data, reported on the next call
}

// NewDecoder wraps r. Invalid input becomes U+FFFD; a character split across
// two reads is held back until the rest of it arrives.
func NewDecoder(r io.Reader, enc encoding.Encoding, size int) *Decoder {
	if enc == nil {
		enc = unicode.UTF8
	}
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Decoder{
		r:   transform.NewReader(r, enc.NewDecoder()),
		buf: make([]byte, size),
	}
}

// Next blocks until the next chunk is available and returns it decoded.
// io.EOF is returned once the peer has closed its side and all data was consumed.
func (d *Decoder) Next() (string, error) {
	if d.err != nil {
		err := d.err
		d.err = nil
		return "", err
	}
	for {
		n, err := d.r.Read(d.buf)
		if n > 0 {
			d.err = err
			return string(d.buf[:n]), nil
		}
		if err != nil {
			return "", err
		}
	}
}

// Encoder writes strings to a buffered writer in the configured charset.
// Not safe for concurrent use.
type Encoder struct {
	w   *bufio.Writer
	enc *encoding.Encoder
}

func NewEncoder(w io.Writer, enc encoding.Encoding) *Encoder {
	if enc == nil {
		enc = unicode.UTF8
	}
	return &Encoder{
		w: bufio.NewWriter(w),
		// characters the charset can't represent are replaced instead of failing the write
		enc: encoding.ReplaceUnsupported(enc.NewEncoder()),
	}
}

// Encode buffers s. The empty string produces no bytes at all.
func (e *Encoder) Encode(s string) error {
	if s == "" {
		return nil
	}
	encoded, err := e.enc.String(s)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if _, err := e.w.WriteString(encoded); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (e *Encoder) Flush() error {
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return nil
}

// WriteAndFlush encodes s and pushes it straight to the underlying writer.
func (e *Encoder) WriteAndFlush(s string) error {
	if err := e.Encode(s); err != nil {
		return err
	}
	return e.Flush()
}
