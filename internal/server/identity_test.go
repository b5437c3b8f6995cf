package server

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
)

// TestGenerateFormat verifies that generated identities are a vocabulary
// word followed by a 4-digit suffix.
func TestGenerateFormat(t *testing.T) {
	assignor := NewIdentityAssignor()
	pattern := regexp.MustCompile(`^[A-Z][a-z]+-\d{4}$`)

	for i := 0; i < 1000; i++ {
		identity := assignor.Generate()
		if !pattern.MatchString(identity) {
			t.Fatalf("Identity %q does not match expected format", identity)
		}
	}
}

// TestGenerateSuffixRange verifies that the numeric suffix stays within
// [1000, 9999].
func TestGenerateSuffixRange(t *testing.T) {
	assignor := NewIdentityAssignor()

	for i := 0; i < 1000; i++ {
		identity := assignor.Generate()
		parts := strings.SplitN(identity, "-", 2)
		if len(parts) != 2 {
			t.Fatalf("Identity %q has no suffix", identity)
		}
		suffix, err := strconv.Atoi(parts[1])
		if err != nil {
			t.Fatalf("Identity %q has non-numeric suffix: %v", identity, err)
		}
		if suffix < 1000 || suffix > 9999 {
			t.Fatalf("Identity %q suffix %d out of range", identity, suffix)
		}
	}
}

// TestGenerateUsesVocabulary verifies that the word portion always comes
// from the fixed vocabulary.
func TestGenerateUsesVocabulary(t *testing.T) {
	assignor := NewIdentityAssignor()
	words := make(map[string]bool, len(identityWords))
	for _, w := range identityWords {
		words[w] = true
	}

	for i := 0; i < 1000; i++ {
		identity := assignor.Generate()
		word := strings.SplitN(identity, "-", 2)[0]
		if !words[word] {
			t.Fatalf("Identity %q uses word outside the vocabulary", identity)
		}
	}
}
