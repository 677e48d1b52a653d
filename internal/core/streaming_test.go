package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestBOMReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("Title\tRating")...),
			expected: "Title\tRating",
		},
		{
			name:     "file without BOM",
			input:    []byte("Title\tRating"),
			expected: "Title\tRating",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(newBOMReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "ascii passes through",
			input:    []byte("Halo\t$19.99"),
			expected: "Halo\t$19.99",
		},
		{
			name:     "valid multibyte kept",
			input:    []byte("Pokémon Snap\t249 kr"),
			expected: "Pokémon Snap\t249 kr",
		},
		{
			name:     "latin-1 byte replaced",
			input:    []byte{'P', 'o', 'k', 0xE9, 'm', 'o', 'n'},
			expected: "Pok?mon",
		},
		{
			name:     "truncated rune at EOF replaced",
			input:    []byte{'a', 0xC3},
			expected: "a?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(newUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer_SplitRune(t *testing.T) {
	// One byte per Read forces every multibyte rune across a boundary.
	input := "Ōkami\tCapcom\tÉditions"
	r := newUTF8Sanitizer(iotest.OneByteReader(strings.NewReader(input)))

	result, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != input {
		t.Errorf("got %q, want %q", string(result), input)
	}
}

func TestReadImport(t *testing.T) {
	t.Run("strips BOM and sanitizes", func(t *testing.T) {
		input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Title\nPok\xe9mon\n")...)
		got, err := ReadImport(bytes.NewReader(input), 0)
		if err != nil {
			t.Fatalf("ReadImport() error: %v", err)
		}
		if got != "Title\nPok?mon\n" {
			t.Errorf("ReadImport() = %q", got)
		}
	})

	t.Run("oversized input is malformed", func(t *testing.T) {
		_, err := ReadImport(strings.NewReader(strings.Repeat("x", 2048)), 1024)
		if !errors.Is(err, ErrMalformedImport) {
			t.Errorf("ReadImport() error = %v, want ErrMalformedImport", err)
		}
	})

	t.Run("binary input is malformed", func(t *testing.T) {
		_, err := ReadImport(bytes.NewReader([]byte{'P', 'K', 0x03, 0x04, 0x00, 0x00}), 0)
		if !errors.Is(err, ErrMalformedImport) {
			t.Errorf("ReadImport() error = %v, want ErrMalformedImport", err)
		}
	})

	t.Run("input at the limit is accepted", func(t *testing.T) {
		got, err := ReadImport(strings.NewReader(strings.Repeat("x", 1024)), 1024)
		if err != nil {
			t.Fatalf("ReadImport() error: %v", err)
		}
		if len(got) != 1024 {
			t.Errorf("len = %d, want 1024", len(got))
		}
	})
}
