// Package postprocess turns raw generated text into the code snippet that is
// returned to API callers. Every Cleaner is a total function: it returns a
// string for any input and never fails.
package postprocess

import "strings"

// DefaultMarker is the substring that starts a generated Lua snippet.
const DefaultMarker = "local"

// DefaultTrailingCutset holds the delimiter characters stripped from the end.
const DefaultTrailingCutset = "` \t\r\n"

// Cleaner converts raw generated text into a cleaned result.
// Implementations must be deterministic and side-effect free.
type Cleaner interface {
	Clean(raw string) string
}

// CleanerFunc adapts a plain function to the Cleaner interface.
type CleanerFunc func(raw string) string

// Clean calls f(raw).
func (f CleanerFunc) Clean(raw string) string {
	return f(raw)
}

// TrimCleaner returns the input with surrounding whitespace removed.
var TrimCleaner Cleaner = CleanerFunc(strings.TrimSpace)

// MarkerCleaner keeps the text from the first occurrence of Marker onward,
// or the whole text when the marker is absent, then strips a leading
// markdown code fence and trailing delimiter characters.
type MarkerCleaner struct {
	// Marker is searched for case-sensitively. Empty means no marker search.
	Marker string

	// TrailingCutset lists characters removed from the end of the result.
	// Empty means DefaultTrailingCutset.
	TrailingCutset string
}

// NewMarkerCleaner returns a MarkerCleaner for marker with default delimiters.
func NewMarkerCleaner(marker string) MarkerCleaner {
	return MarkerCleaner{Marker: marker, TrailingCutset: DefaultTrailingCutset}
}

// Clean applies the marker policy.
func (c MarkerCleaner) Clean(raw string) string {
	text := raw
	if c.Marker != "" {
		if idx := strings.Index(text, c.Marker); idx >= 0 {
			text = text[idx:]
		}
	}

	text = strings.TrimSpace(text)
	text = stripLeadingFence(text)

	cutset := c.TrailingCutset
	if cutset == "" {
		cutset = DefaultTrailingCutset
	}
	return strings.TrimSpace(strings.TrimRight(text, cutset))
}

// stripLeadingFence drops an opening ``` line such as "```lua".
func stripLeadingFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		return strings.TrimSpace(text[nl+1:])
	}
	return strings.TrimLeft(text, "`")
}

// Chain applies cleaners in order, feeding each the previous output.
func Chain(cleaners ...Cleaner) Cleaner {
	return CleanerFunc(func(raw string) string {
		out := raw
		for _, c := range cleaners {
			out = c.Clean(out)
		}
		return out
	})
}
