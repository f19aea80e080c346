package util

import "golang.org/x/text/unicode/norm"

// Normalize applies NFKD normalization so visually identical usernames and
// passwords hash identically regardless of input method.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}
