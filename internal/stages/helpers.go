package stages

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"promptflow/internal/story"
)

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// titleCase returns s with each word capitalized. Casers keep state, so one is
// built per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// appendUnique appends values that are non-blank and not already present,
// compared case-insensitively.
func appendUnique(dst []string, values ...string) []string {
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if strings.EqualFold(existing, value) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, value)
		}
	}
	return dst
}

func angleLabel(angle story.CameraAngle) string {
	return strings.ReplaceAll(string(angle), "-", " ") + " shot"
}

// joinNames renders names as "A", "A and B", or "A, B and C".
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

type characterKey struct {
	Name string              `json:"name"`
	Role story.CharacterRole `json:"role"`
}

func characterKeys(chars []story.Character) []characterKey {
	keys := make([]characterKey, 0, len(chars))
	for _, c := range chars {
		keys = append(keys, characterKey{Name: c.Name, Role: c.Role})
	}
	return keys
}
