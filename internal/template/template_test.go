package template

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestReplacePlaceholders(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		mapping map[string]string
		want    string
	}{
		{
			name:    "single key",
			input:   "hello {world}",
			mapping: map[string]string{"world": "earth"},
			want:    "hello earth",
		},
		{
			name:    "multiple keys",
			input:   "{a} and {b}",
			mapping: map[string]string{"a": "x", "b": "y"},
			want:    "x and y",
		},
		{
			name:    "repeated key",
			input:   "{a}{a}",
			mapping: map[string]string{"a": "x"},
			want:    "xx",
		},
		{
			name:    "unknown key left literal",
			input:   "hello {world}",
			mapping: map[string]string{"planet": "earth"},
			want:    "hello {world}",
		},
		{
			name:    "no placeholders",
			input:   "0xdead",
			mapping: map[string]string{"a": "x"},
			want:    "0xdead",
		},
		{
			name:    "empty mapping",
			input:   "{a}",
			mapping: nil,
			want:    "{a}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReplacePlaceholders(tt.input, tt.mapping)
			if got != tt.want {
				t.Errorf("ReplacePlaceholders(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestScanHelpers(t *testing.T) {
	input := "send to {pool} from {owner}"

	if got := TerminatorStart(input); got != 8 {
		t.Errorf("TerminatorStart() = %d, want 8", got)
	}
	if got := TerminatorEnd(input); got != 13 {
		t.Errorf("TerminatorEnd() = %d, want 13", got)
	}
	if got := NumPlaceholders(input); got != 2 {
		t.Errorf("NumPlaceholders() = %d, want 2", got)
	}

	key, end, ok := FindKey(input)
	if !ok || key != "pool" {
		t.Fatalf("FindKey() = %q, %v, want pool, true", key, ok)
	}

	rest := Remainder(input, end+1)
	key, _, ok = FindKey(rest)
	if !ok || key != "owner" {
		t.Errorf("FindKey(rest) = %q, %v, want owner, true", key, ok)
	}

	if _, _, ok := FindKey("no placeholders here"); ok {
		t.Error("FindKey() on plain string should report ok=false")
	}
	if got := Remainder("abc", 10); got != "" {
		t.Errorf("Remainder() past end = %q, want empty", got)
	}
}

func TestFindKeyStrayClosingDelimiter(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
		wantOK  bool
	}{
		{
			name:    "stray close before placeholder",
			input:   "}x{key}",
			wantKey: "key",
			wantOK:  true,
		},
		{
			name:    "close only",
			input:   "}}}",
			wantOK:  false,
		},
		{
			name:    "open never closed",
			input:   "}a{key",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, end, ok := FindKey(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("FindKey(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if key != tt.wantKey {
				t.Errorf("FindKey(%q) key = %q, want %q", tt.input, key, tt.wantKey)
			}
			if tt.input[end] != '}' {
				t.Errorf("FindKey(%q) end = %d, not a closing delimiter", tt.input, end)
			}
		})
	}
}

func TestEncodeAddressRoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	encoded := EncodeAddress(addr)

	if len(encoded) != 42 || encoded[:2] != "0x" {
		t.Fatalf("EncodeAddress() = %q, want 0x-prefixed 20-byte hex", encoded)
	}
	if !common.IsHexAddress(encoded) {
		t.Fatalf("EncodeAddress() produced unparseable address %q", encoded)
	}

	substituted := ReplacePlaceholders("{pool}", map[string]string{"pool": encoded})
	if common.HexToAddress(substituted) != addr {
		t.Errorf("encode/substitute/re-parse round-trip lost the address: %q", substituted)
	}
}
