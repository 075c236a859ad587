package story

// Genre classifies the story and drives pacing, themes, and shot language.
type Genre string

const (
	GenreRomance     Genre = "romance"
	GenreDrama       Genre = "drama"
	GenreComedy      Genre = "comedy"
	GenreAction      Genre = "action"
	GenreThriller    Genre = "thriller"
	GenreHorror      Genre = "horror"
	GenreFantasy     Genre = "fantasy"
	GenreSciFi       Genre = "sci-fi"
	GenreMystery     Genre = "mystery"
	GenreDocumentary Genre = "documentary"
)

// Genres lists every accepted genre in display order.
func Genres() []Genre {
	return []Genre{
		GenreRomance, GenreDrama, GenreComedy, GenreAction, GenreThriller,
		GenreHorror, GenreFantasy, GenreSciFi, GenreMystery, GenreDocumentary,
	}
}

type (
	Location      string
	TimeOfDay     string
	Weather       string
	CharacterRole string
	VisualStyle   string
	ArtStyle      string
	ColorPalette  string
	VisualMood    string
	AspectRatio   string
)

const (
	RoleProtagonist CharacterRole = "protagonist"
	RoleAntagonist  CharacterRole = "antagonist"
	RoleSupporting  CharacterRole = "supporting"
	RoleExtra       CharacterRole = "extra"
)

// StoryInput is the immutable request for one run.
type StoryInput struct {
	ID               string           `json:"id,omitempty"`
	Title            string           `json:"title" validate:"notblank,max=200"`
	Description      string           `json:"description,omitempty" validate:"max=5000"`
	Genre            Genre            `json:"genre" validate:"required,oneof=romance drama comedy action thriller horror fantasy sci-fi mystery documentary"`
	TargetDuration   int              `json:"targetDuration" validate:"gt=0,lte=3600"`
	Mood             string           `json:"mood,omitempty" validate:"max=100"`
	Setting          Setting          `json:"setting"`
	Characters       []Character      `json:"characters,omitempty" validate:"max=20,dive"`
	StylePreferences StylePreferences `json:"stylePreferences"`
}

// Setting describes where and when the story happens.
type Setting struct {
	Location   Location  `json:"location,omitempty" validate:"omitempty,oneof=indoor outdoor urban rural nature fantasy"`
	TimeOfDay  TimeOfDay `json:"timeOfDay,omitempty" validate:"omitempty,oneof=dawn morning afternoon evening night"`
	Weather    Weather   `json:"weather,omitempty" validate:"omitempty,oneof=sunny cloudy rainy snowy foggy stormy"`
	Atmosphere string    `json:"atmosphere,omitempty" validate:"max=200"`
}

// Character is one cast member, in input order.
type Character struct {
	Name        string        `json:"name" validate:"notblank,max=100"`
	Role        CharacterRole `json:"role" validate:"required,oneof=protagonist antagonist supporting extra"`
	Description string        `json:"description,omitempty" validate:"max=1000"`
	VisualStyle VisualStyle   `json:"visualStyle,omitempty" validate:"omitempty,oneof=realistic stylized anime cartoon"`
	Age         *int          `json:"age,omitempty" validate:"omitempty,gte=0,lte=150"`
}

// StylePreferences carries the caller's visual direction.
type StylePreferences struct {
	ArtStyle     ArtStyle     `json:"artStyle,omitempty" validate:"omitempty,oneof=photorealistic cinematic anime watercolor illustration 3d-render"`
	ColorPalette ColorPalette `json:"colorPalette,omitempty" validate:"omitempty,oneof=warm cool vibrant muted monochrome pastel"`
	VisualMood   VisualMood   `json:"visualMood,omitempty" validate:"omitempty,oneof=bright dark dreamy dramatic calm"`
	AspectRatio  AspectRatio  `json:"aspectRatio,omitempty" validate:"omitempty,oneof=16:9 9:16 1:1 4:3 21:9"`
}

// Style defaults applied when the caller leaves a preference blank.
const (
	DefaultArtStyle     ArtStyle     = "cinematic"
	DefaultColorPalette ColorPalette = "warm"
	DefaultVisualMood   VisualMood   = "dramatic"
	DefaultAspectRatio  AspectRatio  = "16:9"
	DefaultLocation     Location     = "indoor"
	DefaultTimeOfDay    TimeOfDay    = "afternoon"
)

// WithDefaults fills blank style preferences.
func (s StylePreferences) WithDefaults() StylePreferences {
	if s.ArtStyle == "" {
		s.ArtStyle = DefaultArtStyle
	}
	if s.ColorPalette == "" {
		s.ColorPalette = DefaultColorPalette
	}
	if s.VisualMood == "" {
		s.VisualMood = DefaultVisualMood
	}
	if s.AspectRatio == "" {
		s.AspectRatio = DefaultAspectRatio
	}
	return s
}

// WithDefaults fills blank setting fields. Weather stays optional.
func (s Setting) WithDefaults() Setting {
	if s.Location == "" {
		s.Location = DefaultLocation
	}
	if s.TimeOfDay == "" {
		s.TimeOfDay = DefaultTimeOfDay
	}
	return s
}

// CharacterNames returns character names in input order.
func (in StoryInput) CharacterNames() []string {
	names := make([]string, 0, len(in.Characters))
	for _, c := range in.Characters {
		names = append(names, c.Name)
	}
	return names
}
