package story

import "time"

// Pacing is the tempo classification of an analyzed story.
type Pacing string

const (
	PacingSlow   Pacing = "slow"
	PacingMedium Pacing = "medium"
	PacingFast   Pacing = "fast"
)

// AnalyzedStory is the output of the story analysis stage.
type AnalyzedStory struct {
	Themes            []string           `json:"themes"`
	KeyMoments        []KeyMoment        `json:"keyMoments"`
	EmotionalArc      EmotionalArc       `json:"emotionalArc"`
	CharacterDynamics []CharacterDynamic `json:"characterDynamics"`
	VisualKeywords    []string           `json:"visualKeywords"`
	Pacing            Pacing             `json:"pacing"`
}

// KeyMoment is a beat of the story placed on a 0..1 timeline.
type KeyMoment struct {
	Order       int     `json:"order"`
	Description string  `json:"description"`
	Position    float64 `json:"position"`
	Intensity   float64 `json:"intensity"`
}

// ArcPoint is one emotion with an intensity in [0,1].
type ArcPoint struct {
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
}

type EmotionalArc struct {
	Beginning  ArcPoint `json:"beginning"`
	Climax     ArcPoint `json:"climax"`
	Resolution ArcPoint `json:"resolution"`
}

type CharacterDynamic struct {
	Character     string        `json:"character"`
	Role          CharacterRole `json:"role"`
	Arc           string        `json:"arc"`
	Relationships []string      `json:"relationships,omitempty"`
}

// Act is one of the four narrative acts.
type Act struct {
	ID            string   `json:"id"`
	Order         int      `json:"order"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Duration      int      `json:"duration"`
	KeyEvents     []string `json:"keyEvents"`
	EmotionalTone string   `json:"emotionalTone"`
	VisualFocus   string   `json:"visualFocus"`
}

// FourActStructure holds exactly four acts whose durations sum to the
// target duration.
type FourActStructure struct {
	Acts          []Act `json:"acts"`
	TotalDuration int   `json:"totalDuration"`
}

// Sum returns the summed act durations.
func (f FourActStructure) Sum() int {
	total := 0
	for _, act := range f.Acts {
		total += act.Duration
	}
	return total
}

// CameraAngle is the framing of a shot.
type CameraAngle string

const (
	AngleWide            CameraAngle = "wide"
	AngleMedium          CameraAngle = "medium"
	AngleCloseUp         CameraAngle = "close-up"
	AngleExtremeCloseUp  CameraAngle = "extreme-close-up"
	AngleOverTheShoulder CameraAngle = "over-the-shoulder"
	AngleHighAngle       CameraAngle = "high-angle"
	AngleLowAngle        CameraAngle = "low-angle"
	AngleBirdsEye        CameraAngle = "birds-eye"
	AngleDutch           CameraAngle = "dutch"
	AnglePOV             CameraAngle = "pov"
)

type TechnicalSpecs struct {
	Movement     string `json:"movement,omitempty"`
	Lighting     string `json:"lighting,omitempty"`
	DepthOfField string `json:"depthOfField,omitempty"`
}

// Shot is one generated clip.
type Shot struct {
	Number           int             `json:"shotNumber"`
	ActID            string          `json:"actId"`
	Description      string          `json:"description"`
	CameraAngle      CameraAngle     `json:"cameraAngle"`
	Duration         float64         `json:"duration"`
	VisualElements   []string        `json:"visualElements"`
	GenerationPrompt string          `json:"generationPrompt"`
	TechnicalSpecs   *TechnicalSpecs `json:"technicalSpecs,omitempty"`
}

// ShotBreakdown holds the twelve shots of a run.
type ShotBreakdown struct {
	Shots         []Shot  `json:"shots"`
	TotalDuration float64 `json:"totalDuration"`
}

// ShotCount is the fixed number of shots in a breakdown.
const ShotCount = 12

// ShotsPerAct is the number of shots generated for each act.
const ShotsPerAct = 3

// Difficulty classifies how demanding a prompt is to generate.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// VideoPlanetPrompt is the terminal artifact handed to a generation provider.
type VideoPlanetPrompt struct {
	ID                 string              `json:"id"`
	Version            string              `json:"version"`
	CreatedAt          time.Time           `json:"createdAt"`
	Metadata           PromptMetadata      `json:"metadata"`
	PromptStructure    PromptStructure     `json:"promptStructure"`
	GenerationSettings *GenerationSettings `json:"generationSettings,omitempty"`
	QualityAssurance   QualityAssurance    `json:"qualityAssurance"`
}

type PromptMetadata struct {
	Title           string     `json:"title"`
	Category        string     `json:"category"`
	Tags            []string   `json:"tags"`
	Difficulty      Difficulty `json:"difficulty"`
	EstimatedTokens int        `json:"estimatedTokens"`
}

type PromptStructure struct {
	ShotBreakdown []Shot        `json:"shotBreakdown"`
	StyleGuide    *StyleGuide   `json:"styleGuide,omitempty"`
	NarrativeFlow NarrativeFlow `json:"narrativeFlow"`
}

type StyleGuide struct {
	ArtStyle             ArtStyle             `json:"artStyle"`
	ColorPalette         ColorPalette         `json:"colorPalette"`
	VisualMood           VisualMood           `json:"visualMood"`
	AspectRatio          AspectRatio          `json:"aspectRatio"`
	CharacterConsistency CharacterConsistency `json:"characterConsistency"`
	EnvironmentStyle     EnvironmentStyle     `json:"environmentStyle"`
}

type CharacterConsistency struct {
	Enabled             bool     `json:"enabled"`
	ReferenceCharacters []string `json:"referenceCharacters,omitempty"`
	Strength            float64  `json:"strength"`
}

type EnvironmentStyle struct {
	Location   Location  `json:"location"`
	TimeOfDay  TimeOfDay `json:"timeOfDay"`
	Weather    Weather   `json:"weather,omitempty"`
	Atmosphere string    `json:"atmosphere,omitempty"`
}

type NarrativeFlow struct {
	Pacing               Pacing   `json:"pacing"`
	ActBoundaries        []int    `json:"actBoundaries"`
	Transitions          []string `json:"transitions"`
	EmotionalProgression []string `json:"emotionalProgression"`
}

type GenerationSettings struct {
	Provider         string               `json:"provider"`
	Model            string               `json:"model"`
	Parameters       GenerationParameters `json:"parameters"`
	Batch            BatchSettings        `json:"batch"`
	FallbackProvider string               `json:"fallbackProvider,omitempty"`
}

type GenerationParameters struct {
	Resolution    string      `json:"resolution"`
	FPS           int         `json:"fps"`
	AspectRatio   AspectRatio `json:"aspectRatio"`
	Seed          int64       `json:"seed,omitempty"`
	Quality       string      `json:"quality"`
	GuidanceScale float64     `json:"guidanceScale"`
	Steps         int         `json:"steps"`
}

type BatchSettings struct {
	Enabled       bool `json:"enabled"`
	Concurrency   int  `json:"concurrency"`
	RetryAttempts int  `json:"retryAttempts"`
}

type QualityAssurance struct {
	Thresholds QualityThresholds `json:"thresholds"`
	Approval   ApprovalWorkflow  `json:"approval"`
}

type QualityThresholds struct {
	MinConsistencyScore  float64 `json:"minConsistencyScore"`
	MinCompletenessScore float64 `json:"minCompletenessScore"`
	MinTechnicalScore    float64 `json:"minTechnicalScore"`
}

type ApprovalWorkflow struct {
	RequireManualApproval   bool `json:"requireManualApproval"`
	MaxRegenerationAttempts int  `json:"maxRegenerationAttempts"`
}

// Clone returns a deep copy of the prompt.
func (p *VideoPlanetPrompt) Clone() *VideoPlanetPrompt {
	if p == nil {
		return nil
	}
	out := *p
	out.Metadata.Tags = cloneStrings(p.Metadata.Tags)
	out.PromptStructure.ShotBreakdown = CloneShots(p.PromptStructure.ShotBreakdown)
	if p.PromptStructure.StyleGuide != nil {
		guide := *p.PromptStructure.StyleGuide
		guide.CharacterConsistency.ReferenceCharacters = cloneStrings(guide.CharacterConsistency.ReferenceCharacters)
		out.PromptStructure.StyleGuide = &guide
	}
	flow := p.PromptStructure.NarrativeFlow
	flow.ActBoundaries = append([]int(nil), flow.ActBoundaries...)
	flow.Transitions = cloneStrings(flow.Transitions)
	flow.EmotionalProgression = cloneStrings(flow.EmotionalProgression)
	out.PromptStructure.NarrativeFlow = flow
	if p.GenerationSettings != nil {
		settings := *p.GenerationSettings
		out.GenerationSettings = &settings
	}
	return &out
}

// CloneShots deep-copies a shot list.
func CloneShots(shots []Shot) []Shot {
	if shots == nil {
		return nil
	}
	out := make([]Shot, len(shots))
	for i, shot := range shots {
		shot.VisualElements = cloneStrings(shot.VisualElements)
		if shot.TechnicalSpecs != nil {
			specs := *shot.TechnicalSpecs
			shot.TechnicalSpecs = &specs
		}
		out[i] = shot
	}
	return out
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string(nil), values...)
}

// IssueKind and Severity classify quality findings.
type (
	IssueKind string
	Severity  string
)

const (
	IssueError   IssueKind = "error"
	IssueWarning IssueKind = "warning"
	IssueInfo    IssueKind = "info"

	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Issue struct {
	Kind     IssueKind `json:"type"`
	Category string    `json:"category"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
}

// QualityReport scores a prompt. Scores are in [0,1].
type QualityReport struct {
	ConsistencyScore        float64  `json:"consistencyScore"`
	CompletenessScore       float64  `json:"completenessScore"`
	TechnicalScore          float64  `json:"technicalScore"`
	OverallScore            float64  `json:"overallScore"`
	Threshold               float64  `json:"threshold"`
	Issues                  []Issue  `json:"issues"`
	Suggestions             []string `json:"suggestions"`
	EstimatedCost           float64  `json:"estimatedCost"`
	EstimatedGenerationTime float64  `json:"estimatedGenerationTime"`
	Optimized               bool     `json:"optimized"`
	OptimizationPasses      int      `json:"optimizationPasses"`
	ManualApprovalRequired  bool     `json:"manualApprovalRequired"`
}

// Passed reports whether the overall score meets the threshold.
func (r QualityReport) Passed() bool {
	return r.OverallScore >= r.Threshold
}
