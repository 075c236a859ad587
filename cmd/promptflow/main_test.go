package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promptflow/internal/config"
	"promptflow/internal/execlog"
	"promptflow/internal/story"
	"promptflow/internal/workflow"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	cfg        *config.Config
}

func setupCLITestEnv(t *testing.T, mutate func(*config.Config)) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("PROMPTFLOW_TOKENIZER", config.TokenizerHeuristic)
	t.Setenv("PROMPTFLOW_LOG_LEVEL", "error")

	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Retry.BaseDelayMS = 10
	cfgVal.Optimization.Tokenizer = config.TokenizerHeuristic
	if mutate != nil {
		mutate(&cfgVal)
	}

	configPath := filepath.Join(base, "promptflow.toml")
	data, err := cfgVal.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath, cfg: &cfgVal}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliTestEnv) writeJSON(t *testing.T, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	path := filepath.Join(e.baseDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func cafeStory() story.StoryInput {
	return story.StoryInput{
		Title:          "카페에서의 운명적 만남",
		Description:    "비 오는 오후, 작은 카페에서 두 사람이 우연히 같은 책을 집어 든다.",
		Genre:          story.GenreRomance,
		TargetDuration: 180,
		Setting:        story.Setting{Location: "indoor", TimeOfDay: "afternoon", Weather: "rainy"},
		Characters: []story.Character{
			{Name: "지수", Role: story.RoleProtagonist},
			{Name: "민호", Role: story.RoleSupporting},
		},
	}
}

func TestRunCommandWritesArtifacts(t *testing.T) {
	env := setupCLITestEnv(t, nil)
	storyPath := env.writeJSON(t, "story.json", cafeStory())
	outDir := filepath.Join(env.baseDir, "artifacts")

	out, err := env.run(t, "run", storyPath, "--out", outDir)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{"카페에서의 운명적 만남", "[OK] done", "5/5", "storyAnalysis", "qualityValidation"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	data, err := os.ReadFile(filepath.Join(outDir, promptFile))
	if err != nil {
		t.Fatalf("read prompt: %v", err)
	}
	var prompt story.VideoPlanetPrompt
	if err := json.Unmarshal(data, &prompt); err != nil {
		t.Fatalf("decode prompt: %v", err)
	}
	if got := len(prompt.PromptStructure.ShotBreakdown); got != story.ShotCount {
		t.Fatalf("expected %d shots, got %d", story.ShotCount, got)
	}

	data, err = os.ReadFile(filepath.Join(outDir, executionLogFile))
	if err != nil {
		t.Fatalf("read execution log: %v", err)
	}
	var summary execlog.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("decode execution log: %v", err)
	}
	if summary.StepsCompleted != 5 {
		t.Fatalf("expected 5 completed steps, got %d", summary.StepsCompleted)
	}
	if _, err := os.Stat(filepath.Join(outDir, qualityFile)); err != nil {
		t.Fatalf("expected quality report: %v", err)
	}
}

func TestRunCommandJSONAndStats(t *testing.T) {
	env := setupCLITestEnv(t, nil)
	storyPath := env.writeJSON(t, "story.json", cafeStory())

	out, err := env.run(t, "run", storyPath, "--json")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	var decoded struct {
		Success bool `json:"success"`
		Log     struct {
			StepsCompleted int `json:"stepsCompleted"`
		} `json:"executionLog"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !decoded.Success || decoded.Log.StepsCompleted != 5 {
		t.Fatalf("unexpected result: %+v", decoded)
	}

	out, err = env.run(t, "run", storyPath, "--stats")
	if err != nil {
		t.Fatalf("run --stats: %v", err)
	}
	if !strings.Contains(out, "promptflow_runs_total") {
		t.Fatalf("expected metrics table in output:\n%s", out)
	}
}

func TestRunCommandReportsInvalidStory(t *testing.T) {
	env := setupCLITestEnv(t, nil)
	bad := cafeStory()
	bad.TargetDuration = 0
	storyPath := env.writeJSON(t, "story.json", bad)

	out, err := env.run(t, "run", storyPath)
	if err == nil {
		t.Fatal("expected error for invalid story")
	}
	if !strings.Contains(out, "VALIDATION_ERROR") && !strings.Contains(out, "WORKFLOW_ERROR") {
		t.Fatalf("expected error code in output:\n%s", out)
	}
}

func TestRunCommandRejectsStoryArrays(t *testing.T) {
	env := setupCLITestEnv(t, nil)
	storyPath := env.writeJSON(t, "stories.json", []story.StoryInput{cafeStory(), cafeStory()})

	if _, err := env.run(t, "run", storyPath); err == nil || !strings.Contains(err.Error(), "batch") {
		t.Fatalf("expected hint to use batch, got %v", err)
	}
}

func TestReadStoryInputsRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.json")
	if err := os.WriteFile(path, []byte(`{"title":"x","genre":"drama","targetDuration":10,"colour":"red"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readStoryInputs(path); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestBatchCommandContinuesPastFailures(t *testing.T) {
	env := setupCLITestEnv(t, func(c *config.Config) {
		c.Batch.Enabled = true
		c.Batch.BatchSize = 2
		c.Batch.FailureHandling = config.FailureContinueOnError
	})
	blank := cafeStory()
	blank.Title = " "
	storyPath := env.writeJSON(t, "stories.json", []story.StoryInput{cafeStory(), blank})
	outDir := filepath.Join(env.baseDir, "batch-out")

	out, err := env.run(t, "batch", storyPath, "--out", outDir)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 stories failed") {
		t.Fatalf("expected failure count error, got %v", err)
	}
	if !strings.Contains(out, "VALIDATION_ERROR") && !strings.Contains(out, "WORKFLOW_ERROR") {
		t.Fatalf("expected failed row in table:\n%s", out)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read batch output: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected one directory per story, got %d", len(entries))
	}
}

func TestStageCommandPrintsDelta(t *testing.T) {
	env := setupCLITestEnv(t, nil)
	contextPath := env.writeJSON(t, "context.json", story.NewRunContext(cafeStory()))

	out, err := env.run(t, "stage", story.StageStoryAnalysis, contextPath)
	if err != nil {
		t.Fatalf("stage: %v\n%s", err, out)
	}
	var decoded struct {
		Stage string `json:"stage"`
		Delta struct {
			AnalyzedStory *story.AnalyzedStory `json:"analyzedStory"`
		} `json:"delta"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if decoded.Stage != story.StageStoryAnalysis || decoded.Delta.AnalyzedStory == nil {
		t.Fatalf("unexpected stage result: %+v", decoded)
	}

	if _, err := env.run(t, "stage", "colorGrading", contextPath); err == nil {
		t.Fatal("expected unknown stage error")
	}
	if _, err := env.run(t, "stage", story.StageQualityValidation, contextPath); err == nil {
		t.Fatal("expected missing prompt error")
	}
}

func TestStagesCommandListsPipeline(t *testing.T) {
	env := setupCLITestEnv(t, func(c *config.Config) {
		c.Stages.QualityValidation.Enabled = false
	})
	out, err := env.run(t, "stages")
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	for _, name := range []string{"storyAnalysis", "fourActGeneration", "shotBreakdown", "promptGeneration", "qualityValidation"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output:\n%s", name, out)
		}
	}
	if !strings.Contains(out, "no") {
		t.Fatalf("expected disabled stage in output:\n%s", out)
	}
}

func TestConfigInitShowValidate(t *testing.T) {
	env := setupCLITestEnv(t, nil)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output: %s", out)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, err = env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, section := range []string{"[retry]", "[batch]", "base_delay_ms = 10"} {
		if !strings.Contains(out, section) {
			t.Fatalf("expected %q in config show output:\n%s", section, out)
		}
	}

	out, err = env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, env.configPath) || !strings.Contains(out, "[OK]") {
		t.Fatalf("unexpected validate output:\n%s", out)
	}
}

func TestBatchOutputDirUsesTitleSlug(t *testing.T) {
	res := &workflow.Result{RunID: "run-1", BatchIndex: 2, Context: story.NewRunContext(cafeStory())}
	got := batchOutputDir("/tmp/out", res)
	if want := filepath.Join("/tmp/out", "003-카페에서의-운명적-만남"); got != want {
		t.Fatalf("batchOutputDir = %q, want %q", got, want)
	}
	res.Context.Input.Title = "?!"
	if got := batchOutputDir("/tmp/out", res); got != filepath.Join("/tmp/out", "003-run-1") {
		t.Fatalf("expected run id fallback, got %q", got)
	}
	if batchOutputDir("", res) != "" {
		t.Fatal("expected empty dir without root")
	}
}

func TestMarshalJSONKeepsPromptPunctuation(t *testing.T) {
	data, err := marshalJSON(map[string]string{"prompt": "close-up <rain> & neon"})
	if err != nil {
		t.Fatalf("marshalJSON: %v", err)
	}
	if !strings.Contains(string(data), "close-up <rain> & neon") || !strings.HasSuffix(string(data), "}\n") {
		t.Fatalf("unexpected encoding: %q", data)
	}
}

func TestReportWriterPlainOutput(t *testing.T) {
	var out bytes.Buffer
	report := newReportWriter(&out)
	report.check("Output directory", outcomeFail, "missing")
	report.field("Run ID", "run-1")
	got := out.String()
	if strings.Contains(got, "\x1b[") {
		t.Fatalf("expected no colour for a buffer: %q", got)
	}
	if !strings.Contains(got, "[ERROR] missing") || !strings.Contains(got, "Run ID:") {
		t.Fatalf("unexpected report: %q", got)
	}
}
