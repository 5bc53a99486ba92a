package osc

import "strings"

// MatchAddress reports whether an address matches a handler pattern. Matching
// is per path segment: '*' matches any run of characters within a segment and
// '?' matches a single character. Wildcards never cross '/' boundaries, so
// /track/* matches /track/1 but not /track/1/xyz.
func MatchAddress(pattern, address string) bool {
	pSegs := strings.Split(pattern, "/")
	aSegs := strings.Split(address, "/")
	if len(pSegs) != len(aSegs) {
		return false
	}
	for i := range pSegs {
		if !matchSegment(pSegs[i], aSegs[i]) {
			return false
		}
	}
	return true
}

func matchSegment(pattern, seg string) bool {
	// Iterative glob with single-star backtracking.
	var pi, si int
	starP, starS := -1, 0
	for si < len(seg) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == seg[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			starP, starS = pi, si
			pi++
		case starP >= 0:
			starS++
			pi, si = starP+1, starS
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
