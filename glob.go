package blobpath

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/gobwas/glob"
)

// ============================================================================
// Glob Matcher
// ============================================================================

const wildcardChars = "*?[{"

// Matcher matches slash-separated relative keys against a glob pattern.
//
//   - "*" matches any run of characters except "/"
//   - "?" matches one character except "/"
//   - "**" as a whole segment matches any number of segments, including none
//   - "[abc]", "[!a-z]" and "{jpg,png}" work as usual
//
// A "**" embedded in a longer segment behaves like "*".
type Matcher struct {
	pattern string
	globs   []glob.Glob
}

// CompileGlob compiles pattern into a Matcher.
func CompileGlob(pattern string) (*Matcher, error) {
	segs := splitSegments(pattern)
	for i, s := range segs {
		if s != "**" {
			segs[i] = collapseStars(s)
		}
	}

	m := &Matcher{pattern: pattern}
	for _, variant := range starVariants(segs) {
		g, err := glob.Compile(strings.Join(variant, "/"), '/')
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, pattern, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether name matches the pattern.
func (m *Matcher) Match(name string) bool {
	for _, g := range m.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (m *Matcher) String() string { return m.pattern }

func collapseStars(s string) string {
	for strings.Contains(s, "**") {
		s = strings.ReplaceAll(s, "**", "*")
	}
	return s
}

// starVariants expands every non-final "**" segment into the pattern with
// and without it, so "**/x" also matches "x" at the top level.
func starVariants(segs []string) [][]string {
	variants := [][]string{segs}
	for i := len(segs) - 2; i >= 0; i-- {
		if segs[i] != "**" {
			continue
		}
		n := len(variants)
		for _, v := range variants[:n] {
			without := make([]string, 0, len(v)-1)
			without = append(without, v[:i]...)
			without = append(without, v[i+1:]...)
			variants = append(variants, without)
		}
	}
	return variants
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, wildcardChars)
}

// globPlan is a pattern split at its first wildcard segment.
type globPlan struct {
	literal []string // segments before the first wildcard
	filter  string   // literal lead of the first wildcard segment
	matcher *Matcher // nil when the pattern has no wildcard
}

func planGlob(pattern string) (globPlan, error) {
	segs := splitSegments(pattern)
	if len(segs) == 0 {
		return globPlan{}, fmt.Errorf("%w: empty pattern", ErrBadPattern)
	}
	for i, s := range segs {
		if !hasWildcard(s) {
			continue
		}
		m, err := CompileGlob(strings.Join(segs[i:], "/"))
		if err != nil {
			return globPlan{}, err
		}
		lead := s[:strings.IndexAny(s, wildcardChars)]
		return globPlan{literal: segs[:i], filter: lead, matcher: m}, nil
	}
	return globPlan{literal: segs}, nil
}

// ============================================================================
// Glob / RGlob
// ============================================================================

// Glob yields every blob under root whose key, relative to root, matches
// pattern. The literal leading segments of the pattern become a single
// prefix listing; only the remainder is matched client side. Results come
// in the backend's listing order and the sequence is single-pass.
//
// A pattern without wildcards yields that one path if a blob or a
// non-empty prefix exists there.
func (f *FS) Glob(ctx context.Context, root Path, pattern string) (iter.Seq2[Path, error], error) {
	plan, err := planGlob(pattern)
	if err != nil {
		return nil, err
	}
	if root.IsRoot() && (len(plan.literal) == 0) {
		return nil, NewPathError("glob", root.String(), fmt.Errorf("%w: pattern must name a bucket", ErrNotSupported))
	}
	base, err := root.Join(plan.literal...)
	if err != nil {
		return nil, err
	}
	b, err := f.backend(base)
	if err != nil {
		return nil, err
	}

	if plan.matcher == nil {
		return func(yield func(Path, error) bool) {
			ok, err := f.exists(ctx, b, base)
			switch {
			case err != nil:
				yield(Path{}, err)
			case ok:
				yield(base, nil)
			}
		}, nil
	}

	return func(yield func(Path, error) bool) {
		for st, err := range b.ListBlobs(ctx, base, plan.filter) {
			if err != nil {
				yield(Path{}, err)
				return
			}
			if !plan.matcher.Match(st.Name) {
				continue
			}
			if !yield(base.child(st.Name), nil) {
				return
			}
		}
	}, nil
}

// RGlob is Glob with an implicit "**/" in front of pattern.
func (f *FS) RGlob(ctx context.Context, root Path, pattern string) (iter.Seq2[Path, error], error) {
	return f.Glob(ctx, root, "**/"+strings.TrimPrefix(pattern, "/"))
}
