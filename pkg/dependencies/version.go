package dependencies

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

type specKind int

const (
	specExact specKind = iota
	specRange
	specLatest
)

// classify sorts a version string into latest, range or exact. Ranges use
// ^, ~, *, x wildcards or a comparison prefix.
func classify(v string) specKind {
	v = strings.TrimSpace(v)
	switch {
	case strings.EqualFold(v, Latest):
		return specLatest
	case strings.ContainsAny(v, "^~*"),
		strings.HasPrefix(v, ">"),
		strings.HasPrefix(v, "<"),
		strings.HasPrefix(v, "="),
		hasWildcardPart(v):
		return specRange
	default:
		return specExact
	}
}

// hasWildcardPart reports whether a dotted component is x or X (1.x, 1.2.X)
func hasWildcardPart(v string) bool {
	for _, part := range strings.Split(v, ".") {
		if part == "x" || part == "X" {
			return true
		}
	}
	return false
}

// strictVersion parses a full MAJOR.MINOR.PATCH semantic version
func strictVersion(v string) (*semver.Version, bool) {
	sv, err := semver.StrictNewVersion(strings.TrimSpace(v))
	if err != nil {
		return nil, false
	}
	return sv, true
}

// minBound extracts the lowest version a range admits: "^1.2" -> 1.2.0,
// ">=2.1.0 <3" -> 2.1.0, "1.x" -> 1.0.0, "*" -> 0.0.0
func minBound(v string) (*semver.Version, bool) {
	v = strings.TrimSpace(v)
	if i := strings.Index(v, "||"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	v = strings.TrimLeft(v, "^~<>=v ")
	if fields := strings.FieldsFunc(v, func(r rune) bool { return r == ' ' || r == ',' }); len(fields) > 0 {
		v = fields[0]
	}

	if v == "" || v == "*" || v == "x" || v == "X" {
		return semver.New(0, 0, 0, "", ""), true
	}

	parts := strings.Split(v, ".")
	for i, part := range parts {
		if part == "*" || part == "x" || part == "X" {
			parts[i] = "0"
		}
	}

	sv, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		return nil, false
	}
	return sv, true
}

// outcome of comparing a new declaration against the current winner
type outcome int

const (
	keepCurrent outcome = iota
	replace
	undecided // no rule applied; current is kept
)

// compare applies the precedence rules in order:
//
//	(a) latest beats any concrete version
//	(b) two semantic versions: higher wins
//	(c) an exact version beats a range
//	(d) two ranges: higher minimum bound wins
//	(e) otherwise the current (first-seen) declaration stays
//
// Ties keep the current declaration, so the relation is a strict order and
// folding a list through it is idempotent.
func compare(current, candidate string) outcome {
	if current == candidate {
		return keepCurrent
	}

	ck, nk := classify(current), classify(candidate)

	// (a)
	if ck == specLatest || nk == specLatest {
		if nk == specLatest && ck != specLatest {
			return replace
		}
		return keepCurrent
	}

	// (b)
	if cv, ok := strictVersion(current); ok {
		if nv, ok := strictVersion(candidate); ok {
			if nv.GreaterThan(cv) {
				return replace
			}
			return keepCurrent
		}
	}

	// (c)
	if ck != nk {
		if nk == specExact {
			return replace
		}
		return keepCurrent
	}

	// (d)
	if ck == specRange {
		cmin, cok := minBound(current)
		nmin, nok := minBound(candidate)
		if cok && nok {
			if nmin.GreaterThan(cmin) {
				return replace
			}
			return keepCurrent
		}
	}

	// (e)
	return undecided
}
