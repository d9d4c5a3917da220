package stages

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"oktabot/internal/assets"
	"oktabot/internal/config"
	"oktabot/internal/media/ffprobe"
	"oktabot/internal/retry"
	"oktabot/internal/services"
	"oktabot/internal/services/pollinations"
	"oktabot/internal/services/youtube"
	"oktabot/internal/testsupport"
)

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.RateLimits = config.RateLimits{}
	noSleep := func(context.Context, time.Duration) error { return nil }
	env := NewEnv(cfg, nil, retry.WithSleeper(noSleep))
	env.Inspect = func(context.Context, string) (ffprobe.Result, error) {
		return renderedVideo(), nil
	}
	return env
}

func renderedVideo() ffprobe.Result {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "video"}, {CodecType: "audio"}},
		Format:  ffprobe.Format{Duration: "61.5"},
	}
}

type fakeLLM struct {
	mu       sync.Mutex
	text     string
	json     string
	failures []error
	calls    int
	system   string
	user     string
}

func (f *fakeLLM) next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	return nil
}

func (f *fakeLLM) Complete(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	if err := f.next(); err != nil {
		return "", err
	}
	return f.text, nil
}

func (f *fakeLLM) CompleteJSON(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	if err := f.next(); err != nil {
		return "", err
	}
	return f.json, nil
}

// fileVerifier accepts any non-empty file.
type fileVerifier struct{}

func (fileVerifier) check(path string) assets.Result {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return assets.Result{Reason: "missing: " + path}
	}
	return assets.Result{Valid: true}
}

func (v fileVerifier) VerifyImage(path string) assets.Result { return v.check(path) }

func (v fileVerifier) VerifyAudio(_ context.Context, path string) assets.Result {
	return v.check(path)
}

func TestWriteScriptRetriesQuotaThenWrites(t *testing.T) {
	env := newTestEnv(t)
	client := &fakeLLM{
		text:     "  A story about tides.  ",
		failures: []error{errors.New("llm request: http 429 Too Many Requests")},
	}
	out := filepath.Join(t.TempDir(), "script.txt")

	err := env.WriteScript(context.Background(), client, ScriptRequest{Channel: "Test Channel", Topic: "tides", TargetLength: 20, Output: out})
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", client.calls)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "A story about tides.\n" {
		t.Fatalf("unexpected script %q", data)
	}
	if !strings.Contains(client.system, "be brief") || !strings.Contains(client.user, "tides") {
		t.Fatalf("prompts missing channel instruction or topic: %q / %q", client.system, client.user)
	}
}

func TestWriteScriptRejectsUnknownChannel(t *testing.T) {
	env := newTestEnv(t)
	err := env.WriteScript(context.Background(), &fakeLLM{text: "x"}, ScriptRequest{Channel: "Nope", Topic: "t", TargetLength: 10, Output: filepath.Join(t.TempDir(), "s.txt")})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWriteScriptEmptyResponseFails(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(t.TempDir(), "s.txt")
	if err := env.WriteScript(context.Background(), &fakeLLM{text: "   "}, ScriptRequest{Channel: "Test Channel", Topic: "t", TargetLength: 10, Output: out}); err == nil {
		t.Fatal("expected empty script error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("no script should be written")
	}
}

func planJSON(t *testing.T, ids ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.json")
	testsupport.WritePlan(t, path, ids...)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read plan: %v", err)
	}
	return string(data)
}

func TestDirectWritesCheckedPlan(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(scriptPath, []byte("Once the tide turned."), 0o644); err != nil {
		t.Fatal(err)
	}
	client := &fakeLLM{json: "```json\n" + planJSON(t, testsupport.SegmentIDs(3)...) + "\n```"}
	out := filepath.Join(dir, "project.json")

	if err := env.Direct(context.Background(), client, DirectRequest{Channel: "Test Channel", ScriptPath: scriptPath, Output: out}); err != nil {
		t.Fatalf("Direct: %v", err)
	}
	if !strings.Contains(client.user, "Once the tide turned.") {
		t.Fatalf("script not sent to the model: %q", client.user)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read plan: %v", err)
	}
	if strings.Contains(string(data), "```") || !strings.Contains(string(data), `"I-P1-S1"`) {
		t.Fatalf("unexpected plan file:\n%s", data)
	}
}

func TestDirectRejectsIncompletePlan(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(scriptPath, []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "project.json")
	client := &fakeLLM{json: `{"story_structure": {}}`}

	err := env.Direct(context.Background(), client, DirectRequest{Channel: "Test Channel", ScriptPath: scriptPath, Output: out})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("structural rejection must not be retried, got %d calls", client.calls)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("rejected plan must not be written")
	}
}

type fakeSynth struct {
	mu    sync.Mutex
	texts []string
	voice string
}

func (f *fakeSynth) Synthesize(_ context.Context, text, voice, output string) error {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.voice = voice
	f.mu.Unlock()
	return os.WriteFile(output, []byte("RIFF"), 0o644)
}

func TestNarrateSkipsVerifiedClips(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	planPath := filepath.Join(dir, "project.json")
	ids := testsupport.SegmentIDs(3)
	testsupport.WritePlan(t, planPath, ids...)
	audioDir := filepath.Join(dir, "audio")
	testsupport.WriteFile(t, filepath.Join(audioDir, ids[0]+".wav"), 64)

	synth := &fakeSynth{}
	summary, err := env.Narrate(context.Background(), synth, fileVerifier{}, NarrateRequest{PlanPath: planPath, OutputDir: audioDir, Voice: "en-gb"})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if summary != (Summary{Total: 3, Skipped: 1, Generated: 2}) {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(synth.texts) != 2 || synth.texts[0] != "narration for "+ids[1] || synth.voice != "en-gb" {
		t.Fatalf("unexpected synth calls %v voice %q", synth.texts, synth.voice)
	}
	for _, id := range ids {
		if _, err := os.Stat(filepath.Join(audioDir, id+".wav")); err != nil {
			t.Fatalf("missing clip for %s", id)
		}
	}
}

type fakeImages struct {
	mu       sync.Mutex
	requests map[string]pollinations.Request
	failFor  string
}

func (f *fakeImages) Generate(_ context.Context, req pollinations.Request, dst string) error {
	f.mu.Lock()
	if f.requests == nil {
		f.requests = map[string]pollinations.Request{}
	}
	f.requests[filepath.Base(dst)] = req
	f.mu.Unlock()
	if f.failFor != "" && strings.HasPrefix(filepath.Base(dst), f.failFor) {
		return errors.New("bad request for prompt")
	}
	return os.WriteFile(dst, []byte("png"), 0o644)
}

func TestImagesGeneratesMissingWithWorkers(t *testing.T) {
	env := newTestEnv(t)
	env.Config.Images.Workers = 3
	dir := t.TempDir()
	planPath := filepath.Join(dir, "project.json")
	ids := testsupport.SegmentIDs(5)
	testsupport.WritePlan(t, planPath, ids...)
	imageDir := filepath.Join(dir, "images")
	testsupport.WriteFile(t, filepath.Join(imageDir, ids[2]+".png"), 64)

	gen := &fakeImages{}
	summary, err := env.Images(context.Background(), gen, fileVerifier{}, ImagesRequest{PlanPath: planPath, OutputDir: imageDir})
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	if summary != (Summary{Total: 5, Skipped: 1, Generated: 4}) {
		t.Fatalf("unexpected summary %+v", summary)
	}
	req, ok := gen.requests[ids[0]+".png"]
	if !ok || req.Prompt != "picture of "+ids[0] || req.AspectRatio != "16:9" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Seed != seedFor(ids[0]) {
		t.Fatal("seed must be derived from the segment id")
	}
}

func TestImagesJoinsFailuresAndKeepsGoing(t *testing.T) {
	env := newTestEnv(t)
	env.Config.Images.Workers = 2
	dir := t.TempDir()
	planPath := filepath.Join(dir, "project.json")
	ids := testsupport.SegmentIDs(3)
	testsupport.WritePlan(t, planPath, ids...)
	imageDir := filepath.Join(dir, "images")

	gen := &fakeImages{failFor: ids[1]}
	summary, err := env.Images(context.Background(), gen, fileVerifier{}, ImagesRequest{PlanPath: planPath, OutputDir: imageDir})
	if err == nil || !strings.Contains(err.Error(), ids[1]) {
		t.Fatalf("expected failure naming %s, got %v", ids[1], err)
	}
	if summary.Generated != 2 {
		t.Fatalf("expected the other images to be generated, got %+v", summary)
	}
}

type fakePublisher struct {
	meta youtube.Metadata
	id   string
}

func (f *fakePublisher) Upload(_ context.Context, _ string, meta youtube.Metadata) (string, error) {
	f.meta = meta
	return f.id, nil
}

func TestUploadPublishesWithPlanMetadata(t *testing.T) {
	env := newTestEnv(t)
	env.Config.Upload.MinVideoSizeMB = 0
	dir := t.TempDir()
	planPath := filepath.Join(dir, "project.json")
	testsupport.WritePlan(t, planPath, testsupport.SegmentIDs(3)...)
	video := filepath.Join(dir, "final_video.mp4")
	testsupport.WriteFile(t, video, 2048)

	pub := &fakePublisher{id: " vid42\n"}
	id, err := env.Upload(context.Background(), pub, UploadRequest{VideoPath: video, PlanPath: planPath})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if id != "vid42" {
		t.Fatalf("unexpected id %q", id)
	}
	if pub.meta.Title != "Test video" || pub.meta.CategoryID != "27" || pub.meta.PrivacyStatus != "private" {
		t.Fatalf("unexpected metadata %+v", pub.meta)
	}
}

func TestUploadRejectsSmallVideo(t *testing.T) {
	env := newTestEnv(t)
	env.Config.Upload.MinVideoSizeMB = 1
	dir := t.TempDir()
	planPath := filepath.Join(dir, "project.json")
	testsupport.WritePlan(t, planPath, testsupport.SegmentIDs(3)...)
	video := filepath.Join(dir, "final_video.mp4")
	testsupport.WriteFile(t, video, 2048)

	pub := &fakePublisher{id: "x"}
	if _, err := env.Upload(context.Background(), pub, UploadRequest{VideoPath: video, PlanPath: planPath}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if pub.meta.Title != "" {
		t.Fatal("publisher must not be called")
	}
}

func TestUploadRejectsVideoWithoutPicture(t *testing.T) {
	env := newTestEnv(t)
	env.Config.Upload.MinVideoSizeMB = 0
	env.Inspect = func(context.Context, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "audio"}}, Format: ffprobe.Format{Duration: "10"}}, nil
	}
	dir := t.TempDir()
	planPath := filepath.Join(dir, "project.json")
	testsupport.WritePlan(t, planPath, testsupport.SegmentIDs(3)...)
	video := filepath.Join(dir, "final_video.mp4")
	testsupport.WriteFile(t, video, 2048)

	pub := &fakePublisher{id: "x"}
	_, err := env.Upload(context.Background(), pub, UploadRequest{VideoPath: video, PlanPath: planPath})
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "no video stream") {
		t.Fatalf("expected missing stream error, got %v", err)
	}
	if pub.meta.Title != "" {
		t.Fatal("publisher must not be called")
	}
}
