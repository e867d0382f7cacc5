// Package pagerange parses page selections such as "1-3,5" against a
// document's page count.
package pagerange

import (
	"slices"
	"strconv"
	"strings"

	"github.com/sammcj/mcp-pdf/internal/pdferrors"
)

// All selects every page
const All = "all"

// PageSet is an ascending, duplicate-free list of 1-based page numbers
type PageSet []int

// Parse resolves expr against totalPages. An empty expression or "all"
// selects every page; a document with no pages yields an empty set.
func Parse(expr string, totalPages int) (PageSet, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || strings.EqualFold(expr, All) {
		return allPages(totalPages), nil
	}

	seen := make(map[int]struct{})
	for _, term := range strings.Split(expr, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			return nil, pdferrors.New(pdferrors.KindInvalidPageNumber, "invalid page number: empty term")
		}

		if startText, endText, isRange := strings.Cut(term, "-"); isRange {
			start, end, err := parseRange(term, startText, endText, totalPages)
			if err != nil {
				return nil, err
			}
			for p := start; p <= end; p++ {
				seen[p] = struct{}{}
			}
			continue
		}

		n, err := strconv.Atoi(term)
		if err != nil || n < 1 || n > totalPages {
			e := pdferrors.Newf(pdferrors.KindInvalidPageNumber, "invalid page number %q", term)
			e.Details = pageCountDetail(totalPages)
			return nil, e
		}
		seen[n] = struct{}{}
	}

	pages := make(PageSet, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	slices.Sort(pages)
	return pages, nil
}

func parseRange(term, startText, endText string, totalPages int) (int, int, error) {
	start, errStart := strconv.Atoi(strings.TrimSpace(startText))
	end, errEnd := strconv.Atoi(strings.TrimSpace(endText))
	if errStart != nil || errEnd != nil || start < 1 || end < start || end > totalPages {
		e := pdferrors.Newf(pdferrors.KindInvalidPageRange, "invalid page range %q", term)
		e.Details = pageCountDetail(totalPages)
		return 0, 0, e
	}
	return start, end, nil
}

func pageCountDetail(totalPages int) string {
	return "document has " + strconv.Itoa(totalPages) + " pages"
}

func allPages(totalPages int) PageSet {
	pages := make(PageSet, 0, max(totalPages, 0))
	for p := 1; p <= totalPages; p++ {
		pages = append(pages, p)
	}
	return pages
}

// String renders the set compactly, e.g. "1-3,5,7-8"
func (s PageSet) String() string {
	if len(s) == 0 {
		return ""
	}

	var b strings.Builder
	start, prev := s[0], s[0]
	flush := func() {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(start))
		if prev != start {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(prev))
		}
	}
	for _, p := range s[1:] {
		if p == prev+1 {
			prev = p
			continue
		}
		flush()
		start, prev = p, p
	}
	flush()
	return b.String()
}

// Contains reports whether page is selected
func (s PageSet) Contains(page int) bool {
	_, found := slices.BinarySearch(s, page)
	return found
}
