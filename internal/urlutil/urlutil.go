// Package urlutil provides URL parsing utilities.
package urlutil

import "regexp"

// trailingDigits matches the run of digits at the very end of a string.
var trailingDigits = regexp.MustCompile(`\d+$`)

// TrailingNumber returns the trailing run of digits in a GitHub API URL,
// which for issue and pull request URLs is the issue number:
//
//	https://api.github.com/repos/owner/repo/issues/123 -> "123"
//
// The digits are returned verbatim, leading zeros included. ok is false
// when the URL does not end in a digit.
func TrailingNumber(apiURL string) (number string, ok bool) {
	m := trailingDigits.FindString(apiURL)
	if m == "" {
		return "", false
	}
	return m, true
}
