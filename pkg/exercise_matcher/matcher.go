package exercise_matcher

import (
	"sort"
	"strings"

	"github.com/ripixel/fitglue-media/pkg/domain/exercise"
)

// MinScore is the acceptance floor for automatic pairing.
const MinScore = 50.0

// Match is the outcome of pairing a file name with the catalog.
type Match struct {
	Entry exercise.Entry
	Score float64
}

// BestMatch pairs a media file name with the highest-scoring catalog entry.
//
// The extension is stripped before scoring. An entry only replaces the
// current best when it scores strictly higher and at least MinScore, so
// ties keep catalog order. ok is false when nothing reaches the floor,
// including for an empty catalog.
func BestMatch(fileName string, catalog []exercise.Entry) (Match, bool) {
	query := Normalize(StripExtension(fileName))

	var best Match
	found := false
	for _, entry := range catalog {
		score := scoreNormalized(query, Normalize(entry.Name))
		if score >= MinScore && (!found || score > best.Score) {
			best = Match{Entry: entry, Score: score}
			found = true
		}
	}
	return best, found
}

// Search returns the catalog entries to offer in the manual picker.
//
// An empty query lists the selected muscle-group tab (the whole catalog for
// exercise.GroupAll). A non-empty query keeps entries where a query word
// and a name word overlap as substrings or synonyms, or where the whole
// query hits an alias of a muscle group the entry belongs to. Results are
// sorted by name.
func Search(query, group string, catalog []exercise.Entry) []exercise.Entry {
	q := Normalize(query)
	allGroups := isAllGroups(group)

	var out []exercise.Entry
	for _, entry := range catalog {
		if !allGroups && !MatchesGroup(entry.MuscleGroup, group) {
			continue
		}
		if q != "" && !matchesQuery(q, entry) {
			continue
		}
		out = append(out, entry)
	}

	sortByName(out)
	return out
}

// MatchesGroup reports whether a catalog muscle-group value belongs to the
// given tab: the normalized value must contain the tab or one of its
// synonyms. Containment is one way, so a short value like "co" never
// matches a longer alias.
func MatchesGroup(muscleGroup, group string) bool {
	if isAllGroups(group) {
		return true
	}
	mg := Normalize(muscleGroup)
	if mg == "" {
		return false
	}
	for _, alias := range GroupAliases(group) {
		if strings.Contains(mg, alias) {
			return true
		}
	}
	return false
}

func matchesQuery(q string, entry exercise.Entry) bool {
	nameWords := tokens(Normalize(entry.Name))
	for _, qw := range tokens(q) {
		for _, nw := range nameWords {
			if strings.Contains(nw, qw) || strings.Contains(qw, nw) {
				return true
			}
			if AreSynonyms(qw, nw) || synonymOverlap(qw, nw) {
				return true
			}
		}
	}

	mg := Normalize(entry.MuscleGroup)
	if mg == "" {
		return false
	}
	for _, g := range synonymTable {
		if !g.MuscleGroup || !strings.Contains(mg, g.Key) {
			continue
		}
		for _, alias := range append([]string{g.Key}, g.Aliases...) {
			if strings.Contains(q, alias) || strings.Contains(alias, q) {
				return true
			}
		}
	}
	return false
}

func isAllGroups(group string) bool {
	g := Normalize(group)
	return g == "" || g == exercise.GroupAll
}

func sortByName(entries []exercise.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ni, nj := Normalize(entries[i].Name), Normalize(entries[j].Name)
		if ni != nj {
			return ni < nj
		}
		return entries[i].ID < entries[j].ID
	})
}
