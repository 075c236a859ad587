package stages

import "promptflow/internal/story"

type genreProfile struct {
	themes     []string
	pacing     story.Pacing
	beginning  story.ArcPoint
	climax     story.ArcPoint
	resolution story.ArcPoint
	transition string

	// climaxAngle frames the first shot of the third act.
	climaxAngle story.CameraAngle
}

var genreProfiles = map[story.Genre]genreProfile{
	story.GenreRomance: {
		themes: []string{"love", "connection", "fate"}, pacing: story.PacingSlow,
		beginning: arc("curiosity", 0.3), climax: arc("passion", 0.9), resolution: arc("contentment", 0.6),
		climaxAngle: story.AngleCloseUp, transition: "dissolve",
	},
	story.GenreDrama: {
		themes: []string{"conflict", "growth", "family"}, pacing: story.PacingSlow,
		beginning: arc("unease", 0.35), climax: arc("anguish", 0.9), resolution: arc("acceptance", 0.5),
		climaxAngle: story.AngleCloseUp, transition: "dissolve",
	},
	story.GenreComedy: {
		themes: []string{"misunderstanding", "friendship", "absurdity"}, pacing: story.PacingFast,
		beginning: arc("amusement", 0.4), climax: arc("chaos", 0.85), resolution: arc("joy", 0.7),
		climaxAngle: story.AngleWide, transition: "cut",
	},
	story.GenreAction: {
		themes: []string{"courage", "survival", "justice"}, pacing: story.PacingFast,
		beginning: arc("tension", 0.5), climax: arc("adrenaline", 1.0), resolution: arc("relief", 0.5),
		climaxAngle: story.AngleLowAngle, transition: "smash cut",
	},
	story.GenreThriller: {
		themes: []string{"suspicion", "danger", "truth"}, pacing: story.PacingFast,
		beginning: arc("unease", 0.45), climax: arc("dread", 0.95), resolution: arc("release", 0.5),
		climaxAngle: story.AngleDutch, transition: "cut",
	},
	story.GenreHorror: {
		themes: []string{"fear", "the unknown", "isolation"}, pacing: story.PacingMedium,
		beginning: arc("unease", 0.4), climax: arc("terror", 1.0), resolution: arc("dread", 0.6),
		climaxAngle: story.AngleDutch, transition: "cut",
	},
	story.GenreFantasy: {
		themes: []string{"wonder", "destiny", "magic"}, pacing: story.PacingMedium,
		beginning: arc("wonder", 0.4), climax: arc("awe", 0.95), resolution: arc("hope", 0.6),
		climaxAngle: story.AngleLowAngle, transition: "dissolve",
	},
	story.GenreSciFi: {
		themes: []string{"discovery", "technology", "identity"}, pacing: story.PacingMedium,
		beginning: arc("curiosity", 0.4), climax: arc("revelation", 0.9), resolution: arc("reflection", 0.5),
		climaxAngle: story.AngleLowAngle, transition: "cut",
	},
	story.GenreMystery: {
		themes: []string{"secrets", "deduction", "truth"}, pacing: story.PacingMedium,
		beginning: arc("intrigue", 0.4), climax: arc("revelation", 0.9), resolution: arc("closure", 0.5),
		climaxAngle: story.AngleHighAngle, transition: "dissolve",
	},
	story.GenreDocumentary: {
		themes: []string{"reality", "people", "place"}, pacing: story.PacingSlow,
		beginning: arc("curiosity", 0.3), climax: arc("insight", 0.7), resolution: arc("reflection", 0.5),
		climaxAngle: story.AngleMedium, transition: "cut",
	},
}

func arc(emotion string, intensity float64) story.ArcPoint {
	return story.ArcPoint{Emotion: emotion, Intensity: intensity}
}

func profileFor(g story.Genre) genreProfile {
	if profile, ok := genreProfiles[g]; ok {
		return profile
	}
	return genreProfiles[story.GenreDrama]
}

// beats names the story beats a key moment can land on, in order.
var beats = []string{
	"opening image",
	"inciting moment",
	"rising tension",
	"turning point",
	"climax",
	"resolution",
}

type actTemplate struct {
	label       string
	percent     int
	visualFocus string
	summary     string
}

var actTemplates = [4]actTemplate{
	{label: "setup", percent: 25, visualFocus: "establishing the world", summary: "introduces the characters in the %s setting"},
	{label: "confrontation", percent: 35, visualFocus: "character interaction", summary: "builds tension as paths cross in the %s setting"},
	{label: "climax", percent: 30, visualFocus: "emotional peak", summary: "brings the story to its peak in the %s setting"},
	{label: "resolution", percent: 10, visualFocus: "lingering aftermath", summary: "resolves the story and lingers on the %s setting"},
}

// shotPatterns gives the default camera angles for the three shots of each act.
var shotPatterns = [4][3]story.CameraAngle{
	{story.AngleWide, story.AngleMedium, story.AngleCloseUp},
	{story.AngleOverTheShoulder, story.AngleMedium, story.AngleCloseUp},
	{story.AngleMedium, story.AngleCloseUp, story.AngleExtremeCloseUp},
	{story.AngleMedium, story.AngleHighAngle, story.AngleWide},
}

var angleMovement = map[story.CameraAngle]string{
	story.AngleWide:            "slow pan",
	story.AngleMedium:          "gentle dolly",
	story.AngleCloseUp:         "static",
	story.AngleExtremeCloseUp:  "static",
	story.AngleOverTheShoulder: "slow push-in",
	story.AngleHighAngle:       "crane down",
	story.AngleLowAngle:        "tilt up",
	story.AngleBirdsEye:        "drone orbit",
	story.AngleDutch:           "handheld drift",
	story.AnglePOV:             "handheld",
}

var timeLighting = map[story.TimeOfDay]string{
	"dawn":      "soft dawn light",
	"morning":   "fresh morning light",
	"afternoon": "warm afternoon light",
	"evening":   "golden hour glow",
	"night":     "low-key night lighting",
}

func depthOfField(angle story.CameraAngle) string {
	switch angle {
	case story.AngleCloseUp, story.AngleExtremeCloseUp, story.AngleOverTheShoulder:
		return "shallow"
	case story.AngleWide, story.AngleBirdsEye, story.AngleHighAngle:
		return "deep"
	default:
		return "medium"
	}
}

var roleArcs = map[story.CharacterRole]string{
	story.RoleProtagonist: "transformation",
	story.RoleAntagonist:  "opposition",
	story.RoleSupporting:  "support",
	story.RoleExtra:       "presence",
}
