package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"framelabel/internal/annotation"
	"framelabel/internal/matrix"
	"framelabel/internal/testsupport"
)

type cliTestEnv struct {
	base       string
	configPath string
	framesRoot string
	annots     string
	mapping    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("FRAMELABEL_LOG_LEVEL", "")

	env := &cliTestEnv{
		base:       base,
		configPath: filepath.Join(base, "config.toml"),
		framesRoot: filepath.Join(base, "frames"),
		annots:     filepath.Join(base, "annotations.json"),
		mapping:    filepath.Join(base, "classes.txt"),
	}
	cfg := testsupport.NewConfig(t,
		testsupport.WithFramesPerSecond(1),
		testsupport.WithBatchSize(4),
		testsupport.WithBackend("sqlite"),
	)
	cfg.Logging.Level = "warn"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	testsupport.WriteFile(t, env.configPath, string(data))
	testsupport.WriteFrames(t, env.framesRoot, map[string]int{"v1": 5, "v2": 3}, 4, 2)
	testsupport.WriteFile(t, env.mapping, "1 jump\n2 run\n")

	run, err := annotation.New("v1", "run", 1.0, 3.0, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := annotation.WriteJSON(env.annots, []annotation.Annotation{run}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func (e *cliTestEnv) datasetArgs(command, output string) []string {
	return []string{command,
		"--frames-root", e.framesRoot,
		"--annotations", e.annots,
		"--class-mapping", e.mapping,
		"--output", output,
		"--frames-per-second", "1",
	}
}

func TestRecordsThenInspect(t *testing.T) {
	for _, backend := range []string{"sqlite", "bolt"} {
		t.Run(backend, func(t *testing.T) {
			env := setupCLITestEnv(t)
			storePath := filepath.Join(env.base, "out", "records."+backend)

			args := append(env.datasetArgs("records", storePath),
				"--resize-height", "1", "--resize-width", "2", "--batch-size", "3", "--workers", "2", "--backend", backend)
			out, _, err := runCLI(t, args, env.configPath)
			if err != nil {
				t.Fatalf("records: %v", err)
			}
			requireContains(t, out, "Records")
			requireContains(t, out, "Labeled frames")

			out, _, err = runCLI(t, []string{"inspect", storePath, "--backend", backend, "--limit", "0"}, env.configPath)
			if err != nil {
				t.Fatalf("inspect: %v", err)
			}
			requireContains(t, out, "v1-3")
			requireContains(t, out, "run(1)")
			requireContains(t, out, "3x1x2")
			requireContains(t, out, "8 records")
		})
	}
}

func TestRecordsRejectsAsymmetricResize(t *testing.T) {
	env := setupCLITestEnv(t)
	storePath := filepath.Join(env.base, "records.sqlite")

	args := append(env.datasetArgs("records", storePath), "--resize-height", "224")
	if _, _, err := runCLI(t, args, env.configPath); err == nil {
		t.Fatal("expected error for resize height without width")
	}
	if _, err := os.Stat(storePath); !os.IsNotExist(err) {
		t.Fatalf("store created despite configuration error: %v", err)
	}
}

func TestRecordsRequiresFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"records", "--frames-root", env.framesRoot}, env.configPath)
	if err == nil {
		t.Fatal("expected missing flag error")
	}
	requireContains(t, err.Error(), "required flag")
}

func TestRecordsFailsPreflight(t *testing.T) {
	env := setupCLITestEnv(t)
	args := env.datasetArgs("records", filepath.Join(env.base, "records.sqlite"))
	args[2] = filepath.Join(env.base, "missing")
	_, _, err := runCLI(t, args, env.configPath)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, err.Error(), "Frames root")
}

func TestMatrixCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	output := filepath.Join(env.base, "labels.h5")

	out, _, err := runCLI(t, append(env.datasetArgs("matrix", output), "--verify"), env.configPath)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	requireContains(t, out, "Label matrices")

	f, err := matrix.Open(t.Context(), output)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	v1, err := f.Read(t.Context(), "v1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v1.Ones() != 1 || v1.At(2, 1) != 1 {
		t.Fatalf("unexpected v1 matrix %+v", v1)
	}
}

func TestAnnotationsParseAndSplit(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.base, "thumos")
	testsupport.WriteFile(t, filepath.Join(dir, "Run_val.txt"), "a  1.0 2.0\nb  0.5 4.0\n")
	testsupport.WriteFile(t, filepath.Join(dir, "Jump_val.txt"), "c 1.0 2.0\nd 3.0 5.5\n")
	info := filepath.Join(env.base, "video_frames_info.csv")
	testsupport.WriteFile(t, info, "video,fps,frames\na,30,300\nb,25,250\nc,30,90\nd,29.97,400\n")
	parsed := filepath.Join(env.base, "parsed", "annotations.json")

	out, _, err := runCLI(t, []string{"annotations", "parse", dir, info, parsed}, env.configPath)
	if err != nil {
		t.Fatalf("annotations parse: %v", err)
	}
	requireContains(t, out, "Wrote 4 annotations for 4 videos in 2 categories")

	idx, err := annotation.LoadJSON(parsed)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if got := idx.ForVideo("d"); len(got) != 1 || got[0].Category != "Jump" || got[0].FrameRate != 29.97 {
		t.Fatalf("unexpected annotations for d: %+v", got)
	}

	train := filepath.Join(env.base, "split", "trainval.txt")
	val := filepath.Join(env.base, "split", "valval.txt")
	out, _, err = runCLI(t, []string{"annotations", "split", parsed, train, val, "--val-portion", "0.5", "--seed", "3"}, env.configPath)
	if err != nil {
		t.Fatalf("annotations split: %v", err)
	}
	requireContains(t, out, "train videos: 2")
	requireContains(t, out, "validation videos: 2")

	data, err := os.ReadFile(val)
	if err != nil {
		t.Fatalf("read split: %v", err)
	}
	if lines := strings.Fields(string(data)); len(lines) != 2 {
		t.Fatalf("expected 2 held-out videos, got %v", lines)
	}
}

func TestAnnotationsTrimmed(t *testing.T) {
	env := setupCLITestEnv(t)
	info := filepath.Join(env.base, "train_info.csv")
	testsupport.WriteFile(t, info, "video,fps,frames\nv_Run_g01_c01,10,50\nv_Swim_g02_c01,10,40\nbadname,10,10\n")
	mapping := filepath.Join(env.base, "trimmed_classes.txt")
	testsupport.WriteFile(t, mapping, "7 Run\n")
	output := filepath.Join(env.base, "trimmed.json")

	out, _, err := runCLI(t, []string{"annotations", "trimmed", info, mapping, output}, env.configPath)
	if err != nil {
		t.Fatalf("annotations trimmed: %v", err)
	}
	requireContains(t, out, "Wrote 1 annotations")

	idx, err := annotation.LoadJSON(output)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	got := idx.ForVideo("v_Run_g01_c01")
	if len(got) != 1 || got[0].StartSeconds != 0 || got[0].EndSeconds != 5 {
		t.Fatalf("unexpected trimmed annotation %+v", got)
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check",
		"--frames-root", env.framesRoot,
		"--class-mapping", env.mapping,
		"--output", filepath.Join(env.base, "new", "records.sqlite"),
	}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "Preflight")
	requireContains(t, out, "Class mapping")

	_, _, err = runCLI(t, []string{"check", "--annotations", filepath.Join(env.base, "nope.json")}, env.configPath)
	if err == nil {
		t.Fatal("expected failure for missing annotations")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.base, "generated", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config already exists")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "loaded from "+target)
	requireContains(t, out, "batch_size")
}

func TestLogLevelOverrideIsValidated(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"--log-level", "loud", "config", "show"}, env.configPath); err == nil {
		t.Fatal("expected invalid log level error")
	}
}
