package exercise_matcher

import "strings"

// synonymGroup maps a canonical token to the spellings, abbreviations and
// English terms that should be treated as the same thing. All values are
// stored already normalized.
type synonymGroup struct {
	Key     string
	Aliases []string
	// MuscleGroup marks groups whose key is a catalog muscle-group tag, as
	// opposed to exercise-name fragments.
	MuscleGroup bool
}

var synonymTable = []synonymGroup{
	// Muscle groups
	{Key: "peito", MuscleGroup: true, Aliases: []string{"peito", "peitoral", "peitorais", "chest", "pectoral", "pecs"}},
	{Key: "costas", MuscleGroup: true, Aliases: []string{"costas", "dorsal", "dorsais", "back", "lats", "latissimo", "trapezio"}},
	{Key: "ombros", MuscleGroup: true, Aliases: []string{"ombros", "ombro", "shoulders", "shoulder", "deltoide", "deltoides", "delts"}},
	{Key: "biceps", MuscleGroup: true, Aliases: []string{"biceps", "bicep", "bicipital"}},
	{Key: "triceps", MuscleGroup: true, Aliases: []string{"triceps", "tricep", "tricipital"}},
	{Key: "pernas", MuscleGroup: true, Aliases: []string{"pernas", "perna", "legs", "quadriceps", "posterior", "coxa"}},
	{Key: "gluteos", MuscleGroup: true, Aliases: []string{"gluteos", "gluteo", "glutes", "gluteus", "bumbum"}},
	{Key: "panturrilha", MuscleGroup: true, Aliases: []string{"panturrilha", "panturrilhas", "calves", "calf", "gemeos"}},
	{Key: "abdomen", MuscleGroup: true, Aliases: []string{"abdomen", "abdominal", "abdominais", "abs", "core"}},
	{Key: "antebraco", MuscleGroup: true, Aliases: []string{"antebraco", "antebracos", "forearm", "forearms", "punho"}},
	{Key: "cardio", MuscleGroup: true, Aliases: []string{"cardio", "aerobico", "hiit", "cardiovascular"}},

	// Exercise-name fragments
	{Key: "halteres", Aliases: []string{"halteres", "haltere", "halter", "dumbbell", "dumbbells", "db"}},
	{Key: "barra", Aliases: []string{"barra", "barbell", "bb"}},
	{Key: "supino", Aliases: []string{"supino", "bench", "chest press"}},
	{Key: "agachamento", Aliases: []string{"agachamento", "agacho", "squat"}},
	{Key: "remada", Aliases: []string{"remada", "row", "rowing"}},
	{Key: "rosca", Aliases: []string{"rosca", "curl"}},
	{Key: "desenvolvimento", Aliases: []string{"desenvolvimento", "overhead press", "military press", "shoulder press"}},
	{Key: "puxada", Aliases: []string{"puxada", "pulldown", "lat pulldown"}},
	{Key: "levantamento terra", Aliases: []string{"levantamento terra", "terra", "deadlift"}},
	{Key: "afundo", Aliases: []string{"afundo", "passada", "lunge", "lunges"}},
	{Key: "flexao", Aliases: []string{"flexao", "flexoes", "pushup", "push up"}},
	{Key: "elevacao", Aliases: []string{"elevacao", "raise"}},
	{Key: "polia", Aliases: []string{"polia", "cabo", "cable", "crossover"}},
	{Key: "maquina", Aliases: []string{"maquina", "machine", "smith"}},
}

// Synonyms returns every alias of every group the word belongs to, either
// as the group key or as one of its aliases. The word is expected to be
// normalized. Unknown words have no synonyms.
func Synonyms(word string) []string {
	if word == "" {
		return nil
	}
	var out []string
	for _, g := range synonymTable {
		if !g.contains(word) {
			continue
		}
		out = append(out, g.Key)
		for _, a := range g.Aliases {
			if a != g.Key {
				out = append(out, a)
			}
		}
	}
	return out
}

// AreSynonyms reports whether two normalized words belong to the same
// synonym group, or one appears in the synonym list of the other.
func AreSynonyms(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	for _, g := range synonymTable {
		if g.contains(a) && g.contains(b) {
			return true
		}
	}
	return false
}

// GroupAliases returns the tag itself plus its synonym expansion, the set a
// muscle-group tab filters on.
func GroupAliases(tag string) []string {
	tag = Normalize(tag)
	if tag == "" {
		return nil
	}
	out := []string{tag}
	for _, s := range Synonyms(tag) {
		if s != tag {
			out = append(out, s)
		}
	}
	return out
}

// synonymOverlap reports whether a synonym of one word contains, or is
// contained by, the other word.
func synonymOverlap(a, b string) bool {
	for _, s := range Synonyms(a) {
		if strings.Contains(s, b) || strings.Contains(b, s) {
			return true
		}
	}
	for _, s := range Synonyms(b) {
		if strings.Contains(s, a) || strings.Contains(a, s) {
			return true
		}
	}
	return false
}

func (g synonymGroup) contains(word string) bool {
	if g.Key == word {
		return true
	}
	for _, a := range g.Aliases {
		if a == word {
			return true
		}
	}
	return false
}
