// Package validator checks candidate feed urls entered by the user
package validator

import (
	"net/url"
	"strings"

	"github.com/umputun/feedwatch/pkg/domain"
)

// Validate checks the raw input and returns the failed kinds, empty if the url is acceptable.
// Input is trimmed before all checks. An empty input fails only with "required", a known url
// fails with "notOneOf".
func Validate(raw string, known []string) []domain.ValidationKind {
	candidate := Normalize(raw)
	if candidate == "" {
		return []domain.ValidationKind{domain.ValidationRequired}
	}

	var kinds []domain.ValidationKind
	if !isFeedURL(candidate) {
		kinds = append(kinds, domain.ValidationURL)
	}
	for _, k := range known {
		if k == candidate {
			kinds = append(kinds, domain.ValidationNotOneOf)
			break
		}
	}
	return kinds
}

// Normalize returns the form of the input used for validation and registration
func Normalize(raw string) string {
	return strings.TrimSpace(raw)
}

// isFeedURL reports whether s is an absolute http(s) url with a host
func isFeedURL(s string) bool {
	if strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Hostname() != ""
}
