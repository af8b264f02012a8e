package usj

import (
	"regexp"
	"strings"
)

// TextInExcludedParent is the pseudo-marker that controls text sitting
// directly inside a marker removed by RemoveMarkers or not kept by KeepOnly.
const TextInExcludedParent = "text-in-excluded-parent"

// discardable lists markers whose content goes away with them: removing a
// heading or footnote must not leave its text behind in the parent.
var discardable = markerSet(
	"ide", "usfm", "h", "toc", "toca",
	"imt", "is", "ip", "ipi", "im", "imi", "ipq", "imq", "ipr", "iq", "ib",
	"ili", "iot", "io", "iex", "imte", "ie",
	"mt", "mte", "cl", "cd", "ms", "mr", "s", "sr", "r", "d", "sp", "sd",
	"sts", "rem", "lit", "restore",
	"f", "fe", "ef", "efe", "x", "ex",
	"fr", "ft", "fk", "fq", "fqa", "fl", "fw", "fp", "fv", "fdc",
	"xo", "xop", "xt", "xta", "xk", "xq", "xot", "xnt", "xdc",
	"jmp", "fig", "cat", "esb", "b",
)

var (
	noSpaceBefore = regexp.MustCompile(`^[,.\-—/;:!?@$%^)}\]>”»]`)
	noSpaceAfter  = regexp.MustCompile("[\\-—/`@^&({\\[<“«]$")
)

func markerSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[trailingNum.ReplaceAllString(name, "")] = true
	}
	return set
}

// RemoveMarkers returns a copy of the tree without the listed markers.
// Children of a removed marker are spliced into its parent unless the
// marker's content is discardable (headings, notes, comments, ...). The
// root is always kept. Level digits are ignored, so "q" also removes "q1".
func RemoveMarkers(root *Node, markers []string, combineTexts bool) *Node {
	set := markerSet(markers...)
	out := root.shallowCopy()
	if root.Content != nil {
		out.Content = filterChildren(root.Content, combineTexts, func(item Content) []Content {
			return exclude(item, set, combineTexts, false)
		})
	}
	return out
}

// KeepOnly returns a copy of the tree that keeps only the listed markers
// and marker-less nodes. Other markers are spliced out, or dropped with
// their content when that content is discardable. Text directly inside a
// marker that was not kept survives only when TextInExcludedParent is listed.
func KeepOnly(root *Node, markers []string, combineTexts bool) *Node {
	set := markerSet(markers...)
	out := root.shallowCopy()
	if root.Content != nil {
		out.Content = filterChildren(root.Content, combineTexts, func(item Content) []Content {
			return include(item, set, combineTexts, false)
		})
	}
	return out
}

func filterChildren(items []Content, combineTexts bool, fn func(Content) []Content) []Content {
	kids := make([]Content, 0, len(items))
	for _, item := range items {
		kids = append(kids, fn(item)...)
	}
	if combineTexts {
		kids = combineText(kids)
	}
	return kids
}

func exclude(item Content, set map[string]bool, combineTexts, excludedParent bool) []Content {
	n, ok := item.(*Node)
	if !ok {
		if excludedParent && set[TextInExcludedParent] {
			return nil
		}
		return []Content{item}
	}
	if n == nil {
		return nil
	}

	marker := n.BaseMarker()
	keepMarker, keepInner := true, true
	if set[marker] {
		keepMarker = false
		keepInner = !discardable[marker]
	}

	var kids []Content
	if n.Content != nil && (keepMarker || keepInner) {
		kids = filterChildren(n.Content, combineTexts, func(c Content) []Content {
			return exclude(c, set, combineTexts, !keepMarker)
		})
	}

	switch {
	case keepMarker:
		out := n.shallowCopy()
		out.Content = kids
		return []Content{out}
	case keepInner:
		return kids
	}
	return nil
}

func include(item Content, set map[string]bool, combineTexts, excludedParent bool) []Content {
	n, ok := item.(*Node)
	if !ok {
		if excludedParent && !set[TextInExcludedParent] {
			return nil
		}
		return []Content{item}
	}
	if n == nil {
		return nil
	}

	marker := n.BaseMarker()
	keepMarker := marker == "" || set[marker]
	keepInner := keepMarker || !discardable[marker]

	var kids []Content
	if n.Content != nil && keepInner {
		kids = filterChildren(n.Content, combineTexts, func(c Content) []Content {
			return include(c, set, combineTexts, !keepMarker)
		})
	}

	switch {
	case keepMarker:
		out := n.shallowCopy()
		out.Content = kids
		switch marker {
		case "c":
			dropUnlessListed(out, set, "altnumber", "ca")
			dropUnlessListed(out, set, "pubnumber", "cp")
		case "v":
			dropUnlessListed(out, set, "altnumber", "va")
			dropUnlessListed(out, set, "pubnumber", "vp")
		}
		return []Content{out}
	case keepInner:
		return kids
	}
	return nil
}

func dropUnlessListed(n *Node, set map[string]bool, attr, marker string) {
	if !set[marker] {
		delete(n.Attrs, attr)
	}
}

// combineText joins runs of adjacent text items. A single space is added
// between two runs unless one side already has whitespace at the seam or
// punctuation makes a space wrong.
func combineText(items []Content) []Content {
	out := make([]Content, 0, len(items))
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			out = append(out, Text(sb.String()))
			sb.Reset()
		}
	}

	for _, item := range items {
		t, ok := item.(Text)
		if !ok {
			flush()
			out = append(out, item)
			continue
		}
		s := string(t)
		prev := sb.String()
		if !(prev == "" ||
			strings.HasSuffix(prev, " ") ||
			strings.HasPrefix(s, " ") ||
			noSpaceBefore.MatchString(s) ||
			noSpaceAfter.MatchString(prev)) {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
	}
	flush()
	return out
}
