// Package recipients turns raw phone entries into normalized recipients and loads them
// from spreadsheets, CSV files or plain text lists.
package recipients

import (
	"strings"

	"github.com/xkilldash9x/courier-cli/api/schemas"
)

// NormalizeOne keeps the ASCII digits of raw. ok is false when nothing is left.
func NormalizeOne(raw string) (schemas.Recipient, bool) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return schemas.Recipient(b.String()), true
}

// Normalize strips every entry to its digits, drops empty results and removes duplicates,
// keeping the first occurrence. Applying it to its own output is a no-op.
func Normalize(raw []string) []schemas.Recipient {
	seen := make(map[schemas.Recipient]struct{}, len(raw))
	out := make([]schemas.Recipient, 0, len(raw))
	for _, s := range raw {
		r, ok := NormalizeOne(s)
		if !ok {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Strings converts recipients back to plain strings.
func Strings(rs []schemas.Recipient) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String()
	}
	return out
}
