package engine

import (
	"fmt"
	"strings"

	"github.com/konnta0/zenoh-bridge/errors"
)

// Key expressions are hierarchical addresses: slash-separated chunks where
// "*" matches exactly one chunk and "**" matches any number, including zero.
// A selector is a key expression optionally followed by "?parameters".

// ValidateKeyExpr checks the structural rules for a key expression.
func ValidateKeyExpr(keyExpr string) error {
	if keyExpr == "" {
		return errors.InvalidKey(errors.PhaseValidate, keyExpr, fmt.Errorf("key expression is empty"))
	}
	if strings.HasPrefix(keyExpr, "/") || strings.HasSuffix(keyExpr, "/") {
		return errors.InvalidKey(errors.PhaseValidate, keyExpr, fmt.Errorf("leading or trailing slash"))
	}
	for _, chunk := range strings.Split(keyExpr, "/") {
		if chunk == "" {
			return errors.InvalidKey(errors.PhaseValidate, keyExpr, fmt.Errorf("empty chunk"))
		}
		if strings.ContainsAny(chunk, "*$#?") && chunk != "*" && chunk != "**" {
			return errors.InvalidKey(errors.PhaseValidate, keyExpr, fmt.Errorf("wildcard must be a whole chunk"))
		}
	}
	return nil
}

// SplitSelector separates a selector into its key expression and parameter
// parts. The parameters, if any, follow the first '?'.
func SplitSelector(selector string) (keyExpr, params string) {
	if i := strings.IndexByte(selector, '?'); i >= 0 {
		return selector[:i], selector[i+1:]
	}
	return selector, ""
}

// Intersects reports whether two key expressions can address at least one
// common key.
func Intersects(a, b string) bool {
	return chunksIntersect(strings.Split(a, "/"), strings.Split(b, "/"))
}

func chunksIntersect(a, b []string) bool {
	switch {
	case len(a) == 0 && len(b) == 0:
		return true
	case len(a) == 0:
		return b[0] == "**" && chunksIntersect(a, b[1:])
	case len(b) == 0:
		return a[0] == "**" && chunksIntersect(a[1:], b)
	}

	if a[0] == "**" {
		// Consume zero chunks of b, or one chunk of b and stay.
		return chunksIntersect(a[1:], b) || chunksIntersect(a, b[1:])
	}
	if b[0] == "**" {
		return chunksIntersect(a, b[1:]) || chunksIntersect(a[1:], b)
	}
	if a[0] == "*" || b[0] == "*" || a[0] == b[0] {
		return chunksIntersect(a[1:], b[1:])
	}
	return false
}
