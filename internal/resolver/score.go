// internal/resolver/score.go
package resolver

import (
	"strings"

	"affiliation-validator/internal/models"
)

// Name-similarity tiers. The top scorer is accepted only when it clears
// scoreAccept outright, beats the runner-up by scoreMargin, or is the unique
// candidate sharing the expected last name.
const (
	scoreExact      = 100
	scoreLastPrefix = 85
	scoreJaccard    = 60

	scoreAccept = 85
	scoreMargin = 15

	jaccardThreshold = 0.5
)

type scoredCandidate struct {
	candidate models.DirectoryCandidate
	score     int
}

// normalizeName lowercases and collapses whitespace.
func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func nameTokens(name string) []string {
	return strings.Fields(normalizeName(name))
}

func lastName(name string) string {
	tokens := nameTokens(name)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

func firstName(name string) string {
	tokens := nameTokens(name)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}

// scoreName rates how closely a candidate name matches the queried name.
func scoreName(query, candidate string) int {
	q := normalizeName(query)
	c := normalizeName(candidate)
	if q == "" || c == "" {
		return 0
	}

	if q == c {
		return scoreExact
	}

	if lastName(q) == lastName(c) && firstNamePrefix(firstName(q), firstName(c)) {
		return scoreLastPrefix
	}

	if tokenJaccard(nameTokens(q), nameTokens(c)) >= jaccardThreshold {
		return scoreJaccard
	}

	return 0
}

// firstNamePrefix reports whether either first name is a prefix of the
// other, covering initials and shortened forms.
func firstNamePrefix(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

func tokenJaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}

	union := make(map[string]bool, len(a)+len(b))
	for _, t := range a {
		union[t] = true
	}

	intersection := 0
	for _, t := range b {
		if set[t] {
			intersection++
		}
		union[t] = true
	}

	return float64(intersection) / float64(len(union))
}

// pickByName scores every pool candidate against the queried name and
// returns the accepted winner, or nil when the pool stays ambiguous.
func pickByName(queryName string, pool []models.DirectoryCandidate) *models.DirectoryCandidate {
	if normalizeName(queryName) == "" {
		return nil
	}

	scored := make([]scoredCandidate, 0, len(pool))
	for _, cand := range pool {
		scored = append(scored, scoredCandidate{candidate: cand, score: scoreName(queryName, cand.Name)})
	}

	top, second := -1, -1
	topIdx := -1
	for i, s := range scored {
		if s.score > top {
			second = top
			top = s.score
			topIdx = i
		} else if s.score > second {
			second = s.score
		}
	}

	if topIdx >= 0 && top > 0 {
		if top >= scoreAccept || top-second >= scoreMargin {
			return &scored[topIdx].candidate
		}
	}

	// Last resort: a single candidate sharing the expected last name.
	expectedLast := lastName(queryName)
	if expectedLast != "" {
		var match *models.DirectoryCandidate
		for i := range pool {
			if lastName(pool[i].Name) == expectedLast {
				if match != nil {
					return nil // non-unique, fall through to the pool scan
				}
				match = &pool[i]
			}
		}
		if match != nil {
			return match
		}
	}

	return nil
}
