// Package keywords provides job-description keyword extraction and keyword coverage matching.
package keywords

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/jonathan/section-tailor/internal/types"
)

// DefaultTopN is the number of keywords validators check coverage against
const DefaultTopN = 8

// Options controls token weighting. Zero values fall back to the defaults.
type Options struct {
	BodyWeight    float64
	HeadingWeight float64
	MinLength     int
}

// DefaultOptions returns the weighting used by Extract
func DefaultOptions() Options {
	return Options{BodyWeight: 1, HeadingWeight: 2, MinLength: 2}
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:[-./][\p{L}\p{N}]+)*[+#]{0,2}`)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with by from as is was are were be
		been being have has had do does did will would should could may might must can this
		that these those i you he she it we they what which who when where why how all each
		every both few more most other some such no nor not only own same so than too very our
		your their us its into about over also etc`) {
		stopWords[w] = struct{}{}
	}
}

type termStat struct {
	term   string
	weight float64
	first  int
}

// Extract returns at most topN keywords ranked by weight, ties broken by first occurrence.
// A term's weight is the sum of its occurrence weights: body lines count BodyWeight,
// heading-like lines count HeadingWeight. Terms are case-folded.
func Extract(text string, topN int) []types.Keyword {
	return ExtractWithOptions(text, topN, DefaultOptions())
}

// ExtractWithOptions is Extract with explicit weighting
func ExtractWithOptions(text string, topN int, opts Options) []types.Keyword {
	if opts.BodyWeight <= 0 {
		opts.BodyWeight = 1
	}
	if opts.HeadingWeight <= 0 {
		opts.HeadingWeight = 2
	}
	if opts.MinLength <= 0 {
		opts.MinLength = 2
	}

	folder := cases.Fold()
	stats := make(map[string]*termStat)
	position := 0

	for _, line := range strings.Split(text, "\n") {
		weight := opts.BodyWeight
		if isHeadingLike(line) {
			weight = opts.HeadingWeight
		}
		for _, raw := range tokenPattern.FindAllString(line, -1) {
			term := folder.String(raw)
			if !keepToken(term, opts.MinLength) {
				continue
			}
			st, ok := stats[term]
			if !ok {
				st = &termStat{term: term, first: position}
				stats[term] = st
			}
			st.weight += weight
			position++
		}
	}

	ranked := make([]*termStat, 0, len(stats))
	for _, st := range stats {
		ranked = append(ranked, st)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].first < ranked[j].first
	})

	if topN >= 0 && topN < len(ranked) {
		ranked = ranked[:topN]
	}
	out := make([]types.Keyword, len(ranked))
	for i, st := range ranked {
		out[i] = types.Keyword{Term: st.term, Weight: st.weight}
	}
	return out
}

// ForJob builds an immutable JobDescription with its ranked keywords
func ForJob(text string, topN int) *types.JobDescription {
	return &types.JobDescription{
		Text:     text,
		Keywords: Extract(text, topN),
	}
}

func keepToken(term string, minLength int) bool {
	if len([]rune(term)) < minLength {
		return false
	}
	if _, stop := stopWords[term]; stop {
		return false
	}
	// bare numbers ("5", "2024", "10+") are never keywords
	core := strings.TrimRight(term, "+#")
	for _, r := range core {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// isHeadingLike detects lines such as "Requirements:", "# Skills" or "RESPONSIBILITIES"
func isHeadingLike(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasSuffix(trimmed, ":") || strings.HasPrefix(trimmed, "#") {
		return true
	}
	letters := 0
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}
