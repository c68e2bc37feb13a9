package pipeline

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrUnknownContext is returned when a scan names a context the host
	// cannot resolve.
	ErrUnknownContext = errors.New("unknown context")

	// ErrProtectedContext is returned when a scan targets a privileged page
	// where content injection is disallowed.
	ErrProtectedContext = errors.New("protected context")

	// ErrInjection marks a document scanner that could not be placed or did
	// not answer. Scans degrade to network-only results when it occurs.
	ErrInjection = errors.New("scanner injection failed")
)

// protectedPrefixes identify privileged pages. Injection is refused before
// any other work happens.
var protectedPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"devtools://",
	"edge://",
	"about:",
	"view-source:",
}

// IsProtectedURL reports whether a page URL belongs to a privileged context.
func IsProtectedURL(raw string) bool {
	lower := strings.ToLower(raw)
	return slices.ContainsFunc(protectedPrefixes, func(p string) bool {
		return strings.HasPrefix(lower, p)
	})
}
