// Copyright (c) 2015, Arbo von Monkiewitsch All rights reserved.
// Use of this source code is governed by a BSD-style
// license.

// Package levenshtein calculates the Levenshtein edit distance between strings
// and picks the closest of a set of names, for "did you mean" hints.
package levenshtein

// Context is the object which allows to calculate the Levenshtein distance
// with Distance() method. It is needed to ensure 0 memory allocations.
type Context struct {
	intSlice []int
}

func (ctx *Context) getIntSlice(length int) []int {
	if cap(ctx.intSlice) < length {
		ctx.intSlice = make([]int, length)
	}

	return ctx.intSlice[:length]
}

// Distance calculates the Levenshtein distance between two strings which
// is defined as the minimum number of edits needed to transform one string
// into the other, with the allowable edit operations being insertion, deletion,
// or substitution of a single character.
// http://en.wikipedia.org/wiki/Levenshtein_distance
//
// This implementation uses O(min(m,n)) space: the shorter string indexes the
// reused column.
func (ctx *Context) Distance(str1, str2 string) int {
	s1 := []rune(str1)
	s2 := []rune(str2)

	if len(s1) > len(s2) {
		s1, s2 = s2, s1
	}

	if len(s1) == 0 {
		return len(s2)
	}

	lenS1 := len(s1)

	column := ctx.getIntSlice(lenS1 + 1)
	for idx := 1; idx <= lenS1; idx++ {
		column[idx] = idx
	}

	for col, s2Rune := range s2 {
		column[0] = col + 1
		lastdiag := col

		for row := range lenS1 {
			olddiag := column[row+1]

			cost := 0
			if s1[row] != s2Rune {
				cost = 1
			}

			column[row+1] = min(
				column[row+1]+1,
				column[row]+1,
				lastdiag+cost,
			)
			lastdiag = olddiag
		}
	}

	return column[lenS1]
}

// Closest returns the candidate nearest to target, provided it is at most
// maxDistance edits away. Ties go to the earlier candidate.
func Closest(target string, candidates []string, maxDistance int) (string, bool) {
	var (
		ctx  Context
		best string
	)

	bestDistance := maxDistance + 1

	for _, candidate := range candidates {
		d := ctx.Distance(target, candidate)
		if d < bestDistance {
			best, bestDistance = candidate, d
		}
	}

	return best, bestDistance <= maxDistance
}
