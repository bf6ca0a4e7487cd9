package store

import (
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Slugify transliterates s to ASCII and joins its words with hyphens, so
// "Crème Brûlée" becomes "creme-brulee". It returns "" when nothing usable is
// left.
func Slugify(s string) string {
	return slug.Make(s)
}

// slugFor picks the first candidate that yields a slug. When none does the
// slug is prefix plus a random suffix, which keeps the UNIQUE column
// satisfiable for names made only of symbols.
func slugFor(prefix string, candidates ...string) string {
	for _, c := range candidates {
		if s := Slugify(c); s != "" {
			return s
		}
	}
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
