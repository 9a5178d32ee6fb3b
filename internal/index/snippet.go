package index

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/search"
)

const (
	openTag  = "<em>"
	closeTag = "</em>"
)

type span struct {
	start, end int
}

// buildFragments turns term match locations into ordered, bounded
// snippets of the document body, with each matched term wrapped in
// highlight tags. Fragments never overlap; a match that falls inside an
// earlier fragment's window is highlighted there instead of producing a
// fragment of its own.
func buildFragments(content string, locations search.TermLocationMap, maxFragments, fragmentSize int) []string {
	spans := collectSpans(content, locations)
	if len(spans) == 0 {
		return nil
	}

	var fragments []string
	cursor := 0
	i := 0
	for i < len(spans) && len(fragments) < maxFragments {
		anchor := spans[i]
		if anchor.start < cursor {
			// Already covered by the previous fragment.
			i++
			continue
		}

		wStart := anchor.start - (fragmentSize-(anchor.end-anchor.start))/2
		if wStart < cursor {
			wStart = cursor
		}
		wEnd := wStart + fragmentSize
		if wEnd > len(content) {
			wEnd = len(content)
		}
		wStart = alignRuneStart(content, wStart)
		wEnd = alignRuneStart(content, wEnd)

		// Gather every span that fits inside this window.
		var inWindow []span
		j := i
		for j < len(spans) && spans[j].start >= wStart && spans[j].end <= wEnd {
			inWindow = append(inWindow, spans[j])
			j++
		}
		fragments = append(fragments, highlight(content, wStart, wEnd, inWindow))
		cursor = wEnd
		i = j
	}
	return fragments
}

// collectSpans flattens and merges term locations into sorted,
// non-overlapping byte ranges.
func collectSpans(content string, locations search.TermLocationMap) []span {
	var spans []span
	for _, locs := range locations {
		for _, loc := range locs {
			s, e := int(loc.Start), int(loc.End)
			if s < 0 || e > len(content) || s >= e {
				continue
			}
			spans = append(spans, span{start: s, end: e})
		}
	}
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func highlight(content string, wStart, wEnd int, spans []span) string {
	var sb strings.Builder
	prev := wStart
	for _, s := range spans {
		sb.WriteString(content[prev:s.start])
		sb.WriteString(openTag)
		sb.WriteString(content[s.start:s.end])
		sb.WriteString(closeTag)
		prev = s.end
	}
	sb.WriteString(content[prev:wEnd])
	return sb.String()
}

// alignRuneStart moves pos back to the nearest rune boundary so windows
// never split a multi-byte character.
func alignRuneStart(content string, pos int) int {
	for pos > 0 && pos < len(content) && !utf8.RuneStart(content[pos]) {
		pos--
	}
	return pos
}
