// Package template implements {name} placeholder substitution for plan
// strings. Keys missing from the mapping are left untouched so unresolved
// placeholders surface later as invalid-address or invalid-argument errors
// at encoding time.
package template

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ReplacePlaceholders replaces every {key} occurrence whose key exists in
// mapping with the mapped value. Example: ReplacePlaceholders("hello {world}",
// map[string]string{"world": "earth"}) returns "hello earth".
func ReplacePlaceholders(input string, mapping map[string]string) string {
	output := input
	for key, value := range mapping {
		output = strings.ReplaceAll(output, "{"+key+"}", value)
	}
	return output
}

// TerminatorStart returns the index of the next placeholder's opening
// delimiter, or -1 when none remains.
func TerminatorStart(input string) int {
	return strings.IndexByte(input, '{')
}

// TerminatorEnd returns the index of the next placeholder's closing
// delimiter, or -1 when none remains.
func TerminatorEnd(input string) int {
	return strings.IndexByte(input, '}')
}

// NumPlaceholders counts the placeholders remaining in input.
func NumPlaceholders(input string) int {
	return strings.Count(input, "{")
}

// FindKey returns the next placeholder key and the index of its closing
// delimiter. The closing delimiter is searched after the opening one, so a
// stray '}' earlier in the input does not hide a later placeholder. ok is
// false when no complete placeholder remains.
func FindKey(input string) (key string, end int, ok bool) {
	start := TerminatorStart(input)
	if start < 0 {
		return "", 0, false
	}
	rel := strings.IndexByte(input[start:], '}')
	if rel < 0 {
		return "", 0, false
	}
	end = start + rel
	return input[start+1 : end], end, true
}

// Remainder returns the unconsumed tail of input after offset, letting a
// caller scan a string incrementally without re-scanning resolved prefixes.
func Remainder(input string, offset int) string {
	if offset >= len(input) {
		return ""
	}
	return input[offset:]
}

// EncodeAddress renders an address as a 0x-prefixed fixed-width hex string
// that re-parses losslessly after substitution.
func EncodeAddress(addr common.Address) string {
	return addr.Hex()
}
