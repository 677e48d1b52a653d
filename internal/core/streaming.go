package core

// streaming.go normalizes import bytes on the fly before tokenizing.
//
// Spreadsheet exports arrive with Windows byte-order marks, stray Latin-1
// bytes and occasionally as binary by mistake. The readers here fix the first
// two and detect the third without holding more than one buffer:
//
//   - bomReader drops a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - limitReader fails once more than the configured size has been read
//
// NewImportReader applies them in that order.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrImportTooLarge is returned when import input exceeds the size limit.
var ErrImportTooLarge = errors.New("import too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomReader skips a UTF-8 BOM at the start of the stream.
type bomReader struct {
	r       *bufio.Reader
	checked bool
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: bufio.NewReader(r)}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err != nil && err != io.EOF {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := b.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

// utf8Sanitizer rewrites invalid UTF-8 as '?' so replacement never grows the
// buffer. A multi-byte rune split across two reads is carried over.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	off := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns how many bytes are ready.
// Unless atEOF, an incomplete trailing rune is held back in pending.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	w := 0
	for r := 0; r < len(data); {
		if data[r] < utf8.RuneSelf {
			data[w] = data[r]
			w++
			r++
			continue
		}
		if !atEOF && !utf8.FullRune(data[r:]) {
			s.pending = append(s.pending, data[r:]...)
			return w
		}
		ru, size := utf8.DecodeRune(data[r:])
		if ru == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			r++
			continue
		}
		w += copy(data[w:], data[r:r+size])
		r += size
	}
	return w
}

// limitReader fails with ErrImportTooLarge once more than max bytes are read.
type limitReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.max > 0 && l.read > l.max {
		return n, fmt.Errorf("%w: more than %d bytes", ErrImportTooLarge, l.max)
	}
	return n, err
}

// NewImportReader wraps r with BOM stripping, UTF-8 sanitizing and a size
// limit. maxBytes <= 0 disables the limit.
func NewImportReader(r io.Reader, maxBytes int64) io.Reader {
	return newUTF8Sanitizer(newBOMReader(&limitReader{r: r, max: maxBytes}))
}

// ReadImport drains r through NewImportReader. Oversized or binary input is
// reported as ErrMalformedImport.
func ReadImport(r io.Reader, maxBytes int64) (string, error) {
	var sb strings.Builder
	if _, err := io.Copy(&sb, NewImportReader(r, maxBytes)); err != nil {
		if errors.Is(err, ErrImportTooLarge) {
			return "", fmt.Errorf("%w: %w", ErrMalformedImport, err)
		}
		return "", fmt.Errorf("read import: %w", err)
	}
	text := sb.String()
	if strings.IndexByte(text, 0) >= 0 {
		return "", fmt.Errorf("%w: binary content", ErrMalformedImport)
	}
	return text, nil
}
