package itinerary

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// FallbackColor is used for routes without a letter mapping.
	FallbackColor = "#757575"
	WalkColor     = "#4285F4"
)

var letterColors = map[rune]string{
	'A': "#E53935",
	'B': "#1E88E5",
	'C': "#43A047",
	'D': "#FB8C00",
	'E': "#8E24AA",
	'F': "#00ACC1",
	'G': "#F4511E",
	'H': "#3949AB",
	'I': "#7CB342",
	'J': "#D81B60",
	'K': "#6D4C41",
	'L': "#00897B",
}

// RouteLetter extracts the route letter from names like "Route E(N24)" or "c".
func RouteLetter(routeName string) (rune, bool) {
	name := strings.TrimSpace(routeName)
	if len(name) >= 5 && strings.EqualFold(name[:5], "route") {
		name = strings.TrimSpace(name[5:])
	}
	r, _ := utf8.DecodeRuneInString(name)
	if !unicode.IsLetter(r) {
		return 0, false
	}
	return unicode.ToUpper(r), true
}

// RouteColor maps a route name to its fixed hex color.
func RouteColor(routeName string) string {
	letter, ok := RouteLetter(routeName)
	if !ok {
		return FallbackColor
	}
	if c, ok := letterColors[letter]; ok {
		return c
	}
	return FallbackColor
}
