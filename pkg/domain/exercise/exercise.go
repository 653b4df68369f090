package exercise

import (
	"fmt"
	"strings"
)

// Muscle-group tags used by the admin catalog and the picker tabs.
// The catalog stores free text, so these are the canonical spellings rather
// than an enforced enum.
const (
	GroupAll       = "all"
	GroupChest     = "peito"
	GroupBack      = "costas"
	GroupShoulders = "ombros"
	GroupBiceps    = "biceps"
	GroupTriceps   = "triceps"
	GroupLegs      = "pernas"
	GroupGlutes    = "gluteos"
	GroupCalves    = "panturrilha"
	GroupAbs       = "abdomen"
	GroupForearms  = "antebraco"
	GroupCardio    = "cardio"
	GroupFullBody  = "corpo inteiro"
)

// Groups lists the picker tabs in display order.
var Groups = []string{
	GroupAll,
	GroupChest,
	GroupBack,
	GroupShoulders,
	GroupBiceps,
	GroupTriceps,
	GroupLegs,
	GroupGlutes,
	GroupCalves,
	GroupAbs,
	GroupForearms,
	GroupCardio,
	GroupFullBody,
}

// Entry is one canonical exercise in the catalog.
type Entry struct {
	ID          string `json:"id" firestore:"-"`
	Name        string `json:"name" firestore:"name"`
	MuscleGroup string `json:"muscle_group" firestore:"muscle_group"`
	MediaURL    string `json:"gif_url,omitempty" firestore:"gif_url,omitempty"`
}

// Validate rejects rows that cannot take part in matching.
// An empty name is allowed: it simply never scores.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("exercise entry has no id")
	}
	if strings.TrimSpace(e.MuscleGroup) == "" {
		return fmt.Errorf("exercise %s has no muscle group", e.ID)
	}
	return nil
}

// FindByID returns the entry with the given id from a catalog snapshot.
func FindByID(catalog []Entry, id string) (Entry, bool) {
	for _, e := range catalog {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
