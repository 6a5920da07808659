package features

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Role identifies which side of a path a site code names.
type Role string

const (
	RoleClient Role = "client"
	RoleServer Role = "server"
)

// UnknownCodeError reports a site code missing from the vocabulary.
// It is fatal for a pipeline run: defaulting the id would silently corrupt
// the categorical encoding of every row.
type UnknownCodeError struct {
	Role Role
	Code string
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown %s code %q", e.Role, e.Code)
}

// Vocabulary maps site codes to the small integers used as categorical
// features. The zero value is empty; use NewVocabulary or DefaultVocabulary.
// A Vocabulary is immutable once built.
type Vocabulary struct {
	ids map[string]int
}

// DefaultVocabulary returns the six known site codes.
// Client and server codes share one table.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(map[string]int{
		"ba": 0,
		"rj": 1,
		"ce": 0,
		"df": 1,
		"es": 2,
		"pi": 3,
	})
}

// NewVocabulary copies ids into a new Vocabulary.
func NewVocabulary(ids map[string]int) Vocabulary {
	return Vocabulary{ids: maps.Clone(ids)}
}

// ParseVocabulary parses a comma-separated list of code=id pairs,
// e.g. "ba=0,rj=1".
func ParseVocabulary(s string) (Vocabulary, error) {
	ids := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, idStr, ok := strings.Cut(pair, "=")
		code = strings.TrimSpace(code)
		if !ok || code == "" {
			return Vocabulary{}, fmt.Errorf("invalid vocabulary entry %q (want code=id)", pair)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idStr))
		if err != nil {
			return Vocabulary{}, fmt.Errorf("invalid id for code %q: %w", code, err)
		}
		if _, dup := ids[code]; dup {
			return Vocabulary{}, fmt.Errorf("duplicate vocabulary code %q", code)
		}
		ids[code] = id
	}
	if len(ids) == 0 {
		return Vocabulary{}, fmt.Errorf("vocabulary is empty")
	}
	return Vocabulary{ids: ids}, nil
}

// Lookup returns the id for code.
func (v Vocabulary) Lookup(code string) (int, bool) {
	id, ok := v.ids[code]
	return id, ok
}

// Resolve is Lookup that reports a missing code as *UnknownCodeError.
func (v Vocabulary) Resolve(role Role, code string) (int, error) {
	id, ok := v.ids[code]
	if !ok {
		return 0, &UnknownCodeError{Role: role, Code: code}
	}
	return id, nil
}

// Len returns the number of codes.
func (v Vocabulary) Len() int { return len(v.ids) }

// Codes returns the codes in sorted order.
func (v Vocabulary) Codes() []string {
	return slices.Sorted(maps.Keys(v.ids))
}

// String renders the vocabulary in the form accepted by ParseVocabulary.
func (v Vocabulary) String() string {
	parts := make([]string, 0, len(v.ids))
	for _, code := range v.Codes() {
		parts = append(parts, code+"="+strconv.Itoa(v.ids[code]))
	}
	return strings.Join(parts, ",")
}
