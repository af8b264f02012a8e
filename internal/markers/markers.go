// Package markers expands user supplied marker names and named groups
// into the flat marker lists used by the table and filter operations.
package markers

import (
	"slices"
	"sort"
	"strings"
)

// Group is a named set of markers that can be passed wherever a marker
// name is accepted.
type Group string

// Marker groups.
const (
	BookHeaders Group = "book_headers"
	Titles      Group = "titles"
	Comments    Group = "comments"
	Paragraphs  Group = "paragraphs"
	Characters  Group = "characters"
	Notes       Group = "notes"
	StudyBible  Group = "study_bible"
	BCV         Group = "bcv"
	Text        Group = "text"
)

var groups = map[Group][]string{
	BookHeaders: {
		"ide", "usfm", "h", "toc", "toca",
		"imt", "is", "ip", "ipi", "im", "imi", "ipq", "imq", "ipr", "iq", "ib",
		"ili", "iot", "io", "iex", "imte", "ie",
	},
	Titles:   {"mt", "mte", "cl", "cd", "ms", "mr", "s", "sr", "r", "d", "sp", "sd"},
	Comments: {"sts", "rem", "lit", "restore"},
	Paragraphs: {
		"p", "m", "po", "pr", "cls", "pmo", "pm", "pmc", "pmr", "pi", "mi", "nb",
		"pc", "ph", "q", "qr", "qc", "qa", "qm", "qd", "lh", "li", "lf", "lim",
		"litl", "tr", "tc", "th", "tcr", "thr", "table", "b",
	},
	Characters: {
		"add", "bk", "dc", "ior", "iqt", "k", "litl", "nd", "ord", "pn", "png",
		"qac", "qs", "qt", "rq", "sig", "sls", "tl", "wj",
		"em", "bd", "bdit", "it", "no", "sc", "sup",
		"rb", "pro", "w", "wh", "wa", "wg",
		"lik", "liv", "jmp",
	},
	Notes: {
		"f", "fe", "ef", "efe", "x", "ex",
		"fr", "ft", "fk", "fq", "fqa", "fl", "fw", "fp", "fv", "fdc",
		"xo", "xop", "xt", "xta", "xk", "xq", "xot", "xnt", "xdc",
	},
	StudyBible: {"esb", "cat"},
	BCV:        {"id", "c", "v"},
	Text:       {"text-in-excluded-parent", "text"},
}

// Groups returns the group names in sorted order.
func Groups() []Group {
	out := make([]Group, 0, len(groups))
	for g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Members returns a copy of the markers in g, or nil for an unknown group.
func Members(g Group) []string {
	return slices.Clone(groups[g])
}

// Lookup reports whether name (case-insensitive) is a group.
func Lookup(name string) (Group, bool) {
	g := Group(strings.ToLower(name))
	_, ok := groups[g]
	return g, ok
}

// Normalize lowercases a marker name and strips backslashes, so "\\V"
// and "v" name the same marker.
func Normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, `\`, ""))
}

// Expand replaces group names with their members and normalizes the
// rest. Empty names are dropped, duplicates are kept once, and the
// first occurrence decides the order. A nil input returns nil so an
// unset filter stays unset.
func Expand(names []string) []string {
	if names == nil {
		return nil
	}
	seen := make(map[string]bool)
	out := []string{}
	add := func(m string) {
		if m == "" || seen[m] {
			return
		}
		seen[m] = true
		out = append(out, m)
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if g, ok := Lookup(name); ok {
			for _, m := range groups[g] {
				add(m)
			}
			continue
		}
		add(Normalize(name))
	}
	return out
}
