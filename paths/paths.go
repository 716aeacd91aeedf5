// Package paths generates, in order of specificity, every storage location that could hold the mock for a request.
//
// A mock lives at <root>/<segments...>/<METHOD><discriminators>.mock. Each path segment may be
// replaced by the wildcard marker "__", and the filename may carry any ordering of the
// discriminators present on the request: watched headers (_Name=value), the query string
// (--query) and the body (--body).
//
// Filenames grow factorially with the number of discriminators: n tokens produce
// sum(n!/(n-k)!) for k in 0..n names, 16 for three tokens and 1957 for six. The token count is
// capped at MaxDiscriminators.
//
// Path variations double with every segment. Only the last MaxSegments segments of a deeper
// path are wildcarded, the leading ones always stay literal.
package paths

import (
	"path"
	"sort"
	"strings"

	"github.com/zerbitx/filegnock/headers"
	"github.com/zerbitx/filegnock/mock"
)

const (
	// Wildcard replaces a path segment to match any value
	Wildcard = "__"
	// Extension is appended to every candidate before probing storage
	Extension = ".mock"
	// MaxDiscriminators caps the tokens permuted into filenames
	MaxDiscriminators = 6
	// MaxSegments caps the trailing path segments that may be replaced by the wildcard
	MaxSegments = 8
)

// Dropped counts what Candidates left out of a request to stay within the caps
type Dropped struct {
	Segments       int
	Discriminators int
}

// Candidate is one storage location probed for a mock
type Candidate struct {
	Root     string
	Segments []string
	Filename string
}

// String is the candidate location without the storage extension
func (c Candidate) String() string {
	parts := make([]string, 0, len(c.Segments)+2)
	parts = append(parts, c.Root)
	parts = append(parts, c.Segments...)
	parts = append(parts, c.Filename)

	return path.Join(parts...)
}

// File is the candidate location relative to the mocks root, with the storage extension
func (c Candidate) File() string {
	return path.Join(append(append([]string{}, c.Segments...), c.Filename+Extension)...)
}

func (c Candidate) literals() int {
	n := 0
	for _, s := range c.Segments {
		if s != Wildcard {
			n++
		}
	}

	return n
}

// Segments splits a request path into its non-empty parts
func Segments(requestPath string) []string {
	var segments []string
	for _, s := range strings.Split(requestPath, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	return segments
}

// Wildcards returns the variations of the path where each of its last MaxSegments segments is
// itself or the wildcard: 2^n of them for n segments, 2^MaxSegments at most
func Wildcards(requestPath string) [][]string {
	segments := Segments(requestPath)

	fixed := 0
	if len(segments) > MaxSegments {
		fixed = len(segments) - MaxSegments
	}

	total := 1 << uint(len(segments)-fixed)
	variations := make([][]string, 0, total)

	for mask := 0; mask < total; mask++ {
		variation := make([]string, len(segments))
		for i, s := range segments {
			if i >= fixed && mask&(1<<uint(i-fixed)) != 0 {
				variation[i] = Wildcard
			} else {
				variation[i] = s
			}
		}
		variations = append(variations, variation)
	}

	return variations
}

// Discriminators lists the filename tokens of a request: watched headers, then query, then body
func Discriminators(req *mock.Request, watched []string) []string {
	var tokens []string

	for _, pair := range headers.Match(req.Headers, watched) {
		tokens = append(tokens, pair.Token())
	}

	if req.Query != "" {
		tokens = append(tokens, "--"+req.Query)
	}

	if body := req.Body.Token(); body != "" {
		tokens = append(tokens, strings.ToLower("--"+body))
	}

	return tokens
}

// Filenames returns the method followed by every ordering of every selection of the discriminators
func Filenames(req *mock.Request, watched []string) []string {
	return filenames(req.Method, Discriminators(req, watched))
}

func filenames(method string, tokens []string) []string {
	if len(tokens) > MaxDiscriminators {
		tokens = tokens[:MaxDiscriminators]
	}

	var names []string
	seen := map[string]bool{}

	for k := 0; k <= len(tokens); k++ {
		permute(tokens, k, func(selection []string) {
			name := method + strings.Join(selection, "")
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		})
	}

	return names
}

// permute calls fn with every ordered selection of k tokens
func permute(tokens []string, k int, fn func([]string)) {
	used := make([]bool, len(tokens))
	selection := make([]string, 0, k)

	var walk func()
	walk = func() {
		if len(selection) == k {
			fn(selection)
			return
		}
		for i, t := range tokens {
			if used[i] {
				continue
			}
			used[i] = true
			selection = append(selection, t)
			walk()
			selection = selection[:len(selection)-1]
			used[i] = false
		}
	}

	walk()
}

// Candidates cross joins the path variations with the filenames and sorts them most specific first.
// Dropped reports the segments kept literal and the discriminators ignored because of the caps.
func Candidates(req *mock.Request, watched []string, root string) ([]Candidate, Dropped) {
	var dropped Dropped

	if n := len(Segments(req.Path)); n > MaxSegments {
		dropped.Segments = n - MaxSegments
	}

	tokens := Discriminators(req, watched)
	if len(tokens) > MaxDiscriminators {
		dropped.Discriminators = len(tokens) - MaxDiscriminators
	}

	variations := Wildcards(req.Path)
	names := filenames(req.Method, tokens)

	candidates := make([]Candidate, 0, len(variations)*len(names))
	for _, segments := range variations {
		for _, filename := range names {
			candidates = append(candidates, Candidate{Root: root, Segments: segments, Filename: filename})
		}
	}

	Sort(candidates)

	return candidates, dropped
}

// Sort orders candidates by literal segments, then wildcard occurrences, then length, then text
func Sort(candidates []Candidate) {
	type ranked struct {
		candidate Candidate
		literals  int
		wildcards int
		text      string
	}

	ranks := make([]ranked, len(candidates))
	for i, c := range candidates {
		text := c.String()
		ranks[i] = ranked{candidate: c, literals: c.literals(), wildcards: strings.Count(text, Wildcard), text: text}
	}

	sort.Slice(ranks, func(a, b int) bool {
		ra, rb := ranks[a], ranks[b]
		if ra.literals != rb.literals {
			return ra.literals > rb.literals
		}
		if ra.wildcards != rb.wildcards {
			return ra.wildcards < rb.wildcards
		}
		if len(ra.text) != len(rb.text) {
			return len(ra.text) > len(rb.text)
		}
		return ra.text < rb.text
	})

	for i, r := range ranks {
		candidates[i] = r.candidate
	}
}
