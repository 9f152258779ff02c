// Package clauses extracts and orders ISO 27001 clause numbers such as
// "6.1.3" from free-form standard references like "Clause-6.1.3".
package clauses

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var clausePattern = regexp.MustCompile(`(\d+(?:\.\d+)+)`)

// Extract returns the first dotted clause number in ref, or ref itself when
// there is none.
func Extract(ref string) string {
	if m := clausePattern.FindString(ref); m != "" {
		return m
	}
	return ref
}

// Compare orders clause numbers segment by segment. A missing segment sorts
// first so "6.1" < "6.1.3", and a non-numeric segment sorts after every
// number. Equal segment lists fall back to string order.
func Compare(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")

	n := len(pa)
	if len(pb) > n {
		n = len(pb)
	}
	for i := 0; i < n; i++ {
		na := segment(pa, i)
		nb := segment(pb, i)
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(a, b)
}

func segment(parts []string, i int) int {
	if i >= len(parts) {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil || n < 0 {
		return math.MaxInt
	}
	return n
}

// Sort orders refs in place by Compare.
func Sort(refs []string) {
	sort.SliceStable(refs, func(i, j int) bool {
		return Compare(refs[i], refs[j]) < 0
	})
}

// Unique extracts the clause number of every ref, drops blanks and
// duplicates, and returns them sorted.
func Unique(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		c := Extract(strings.TrimSpace(ref))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	Sort(out)
	return out
}

// Merge combines clause lists into one sorted, duplicate-free list.
func Merge(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	return Unique(all)
}

// SectionNumber parses the leading integer of a section label such as
// "6. Planning". ok is false when the label does not start with a digit.
func SectionNumber(section string) (n int, ok bool) {
	s := strings.TrimSpace(section)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
