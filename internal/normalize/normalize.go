// Package normalize canonicalizes the names that key the hotspot database.
// Journal events, imported data and old database rows disagree on casing,
// whitespace and whether the system name is embedded in the body name; every
// write path funnels through these functions so the (system, ring, material)
// key is stable.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// materialCanon maps known lowercase aliases to their canonical material
// names where plain title-casing gets it wrong.
var materialCanon = map[string]string{
	"lowtemperaturediamond":   "Low Temperature Diamonds",
	"low temperature diamond": "Low Temperature Diamonds",
	"opal":                    "Void Opals",
	"void opal":               "Void Opals",
	"tritium":                 "Tritium",
}

// System canonicalizes a system name: trimmed, interior whitespace
// collapsed, original casing preserved (system names are case-sensitive
// proper nouns in the game).
func System(name string) string {
	return collapse(strings.TrimSpace(name))
}

// Ring canonicalizes a ring designator relative to its system. The journal
// reports ring bodies as "<system> <body> <letter> Ring"; the stored
// designator drops the system prefix so "Delkar 7 A Ring" under system
// "Delkar" becomes "7 A Ring".
func Ring(system, body string) string {
	body = collapse(strings.TrimSpace(body))
	system = System(system)
	if system != "" {
		if rest, ok := cutPrefixFold(body, system+" "); ok {
			body = rest
		}
	}
	return body
}

// Material canonicalizes a material name to its display form: known aliases
// first, then English title case.
func Material(name string) string {
	name = collapse(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if canon, ok := materialCanon[strings.ToLower(name)]; ok {
		return canon
	}
	// A cases.Caser is stateful and not safe for concurrent use; the live
	// watcher and the UI both normalize names, so build one per call.
	return cases.Title(language.English).String(strings.ToLower(name))
}

// collapse squeezes runs of whitespace down to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cutPrefixFold is strings.CutPrefix with ASCII case folding.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
