package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/capability/fetch"
	"github.com/kiranshivaraju/shortforge/internal/capability/mock"
	"github.com/kiranshivaraju/shortforge/internal/pipeline"
	"github.com/kiranshivaraju/shortforge/internal/store"
	"github.com/kiranshivaraju/shortforge/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver models.CapabilitySet

func (r staticResolver) Resolve() models.CapabilitySet { return models.CapabilitySet(r) }

type harness struct {
	store     *store.MemoryStore
	assembler *mock.Assembler
	orch      *pipeline.Orchestrator
	cfg       pipeline.Config
	registry  *prometheus.Registry
}

func newHarness(t *testing.T, set models.CapabilitySet, asm *mock.Assembler, opts ...pipeline.Option) *harness {
	t.Helper()
	root := t.TempDir()
	cfg := pipeline.Config{
		OutputDir:     filepath.Join(root, "output"),
		TempDir:       filepath.Join(root, "temp"),
		PublicBaseURL: "http://shorts.test",
	}
	reg := prometheus.NewRegistry()
	opts = append([]pipeline.Option{pipeline.WithMetrics(pipeline.MustNewMetrics(reg))}, opts...)
	st := store.NewMemoryStore(100)
	return &harness{
		store:     st,
		assembler: asm,
		orch:      pipeline.New(st, staticResolver(set), asm, cfg, opts...),
		cfg:       cfg,
		registry:  reg,
	}
}

func fullSet() models.CapabilitySet {
	return models.CapabilitySet{
		Scripts: []models.ScriptGenerator{mock.NewScriptGenerator()},
		Voices:  []models.VoiceSynthesizer{mock.NewVoiceSynthesizer()},
		Images:  []models.ImageSource{mock.NewImageSource(3)},
	}
}

func (h *harness) submit(t *testing.T, topic string, duration int, mode string, options string) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.New(),
		Topic:     topic,
		Duration:  duration,
		Mode:      mode,
		Status:    models.JobStatusPending,
		Progress:  "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if options != "" {
		job.Options = []byte(options)
	}
	require.NoError(t, h.store.CreateJob(context.Background(), job))
	return job.ID
}

func (h *harness) run(t *testing.T, id uuid.UUID) (*models.Job, error) {
	t.Helper()
	runErr := h.orch.Run(context.Background(), id)
	job, err := h.store.GetJob(context.Background(), id)
	require.NoError(t, err)
	return job, runErr
}

func (h *harness) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := h.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if match {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLog(job *models.Job, level, substr string) bool {
	for _, l := range job.Logs {
		if l.Level == level && strings.Contains(l.Message, substr) {
			return true
		}
	}
	return false
}

func TestRun_FinalModeAllAdaptersSucceed(t *testing.T) {
	h := newHarness(t, fullSet(), mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	job, err := h.run(t, id)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Nil(t, job.Error)
	require.NotNil(t, job.Result)

	r := job.Result
	assert.NotEmpty(t, r.Script)
	assert.NotEmpty(t, r.Hashtags)
	require.NotEmpty(t, r.Captions)
	assert.Equal(t, 0.0, r.Captions[0].Start)
	assert.InDelta(t, 30, r.Captions[len(r.Captions)-1].End(), 0.01)
	assert.NotNil(t, r.Warnings)
	assert.Empty(t, r.Warnings)

	artifacts := r.Artifacts()
	require.Len(t, artifacts, 1)
	assert.Equal(t, models.ArtifactFinal, artifacts[0].Category)
	assert.Equal(t, "video_"+id.String()+".mp4", artifacts[0].Filename)
	assert.Equal(t, "http://shorts.test/api/v1/downloads/final/video_"+id.String()+".mp4", artifacts[0].URL)
	assert.FileExists(t, filepath.Join(h.cfg.OutputDir, "videos", artifacts[0].Filename))

	assert.Equal(t, []string{mock.OpSlideshow, mock.OpMux}, h.assembler.Calls())
	assert.NoDirExists(t, pipeline.WorkspaceDir(h.cfg.TempDir, id))
	assert.Equal(t, 1.0, h.counter(t, "shortforge_pipeline_jobs_total", map[string]string{"status": "completed"}))
}

func TestRun_SlideshowPlan(t *testing.T) {
	h := newHarness(t, fullSet(), mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	_, err := h.run(t, id)
	require.NoError(t, err)

	req, ok := h.assembler.Requests()[0].(models.SlideshowRequest)
	require.True(t, ok)
	require.Len(t, req.Segments, 3)
	assert.Equal(t, 30.0, req.TotalDuration)
	for i, seg := range req.Segments {
		assert.Equal(t, models.Effects[i], seg.Effect)
		assert.InDelta(t, 10, seg.Duration, 0.001)
	}
}

func TestRun_ScriptFailureIsFatal(t *testing.T) {
	set := fullSet()
	set.Scripts = []models.ScriptGenerator{mock.NewFailingScriptGenerator(
		capability.NewProviderError(capability.ErrGenerationFailed, "mock", capability.ReasonUpstream, "model refused", nil))}
	h := newHarness(t, set, mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	job, err := h.run(t, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, capability.ErrGenerationFailed)

	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.JobStatusScripting, se.Stage)
	assert.True(t, se.Fatal)

	assert.Equal(t, models.JobStatusError, job.Status)
	assert.Nil(t, job.Result)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "model refused")
	assert.Empty(t, h.assembler.Calls())
	assert.NoDirExists(t, pipeline.WorkspaceDir(h.cfg.TempDir, id))
	assert.Equal(t, 1.0, h.counter(t, "shortforge_pipeline_stage_failures_total",
		map[string]string{"stage": models.JobStatusScripting, "reason": "upstream"}))
}

func TestRun_NoScriptGeneratorConfigured(t *testing.T) {
	set := fullSet()
	set.Scripts = nil
	h := newHarness(t, set, mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	job, err := h.run(t, id)
	assert.ErrorIs(t, err, capability.ErrNotConfigured)
	assert.Equal(t, models.JobStatusError, job.Status)
}

func TestRun_NoVoiceConfigured(t *testing.T) {
	set := fullSet()
	set.Voices = nil
	h := newHarness(t, set, mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	job, err := h.run(t, id)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	require.NotNil(t, job.Result.Video)
	require.NotEmpty(t, job.Result.Warnings)
	assert.Contains(t, job.Result.Warnings[0], "Voice skipped")
	assert.True(t, hasLog(job, models.LogLevelWarn, "Voice skipped"))
	assert.NotContains(t, h.assembler.Calls(), mock.OpMux)
	assert.Contains(t, h.assembler.Calls(), mock.OpCaptions)
}

func TestRun_VoiceFailureDegrades(t *testing.T) {
	set := fullSet()
	set.Voices = []models.VoiceSynthesizer{mock.NewFailingVoiceSynthesizer(
		capability.NewProviderError(capability.ErrSynthesisFailed, "mock", capability.ReasonQuota, "quota exceeded", nil))}
	h := newHarness(t, set, mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	job, err := h.run(t, id)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.Len(t, job.Result.Warnings, 1)
	assert.Contains(t, job.Result.Warnings[0], "quota exceeded")
	assert.Equal(t, []string{mock.OpSlideshow, mock.OpCaptions}, h.assembler.Calls())
	assert.Equal(t, 1.0, h.counter(t, "shortforge_pipeline_stage_fallbacks_total",
		map[string]string{"stage": models.JobStatusVoicing}))
}

func TestRun_NoImagesUsesPlaceholder(t *testing.T) {
	set := fullSet()
	images := mock.NewEmptyImageSource()
	set.Images = []models.ImageSource{images}
	h := newHarness(t, set, mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	job, err := h.run(t, id)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, []string{mock.OpPlaceholder, mock.OpMux}, h.assembler.Calls())

	reqs := images.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, []string{"planting a tree", "nature"}, reqs[0].Keywords)
	assert.Equal(t, []string{"planting a tree"}, reqs[1].Keywords)
	assert.True(t, hasLog(job, models.LogLevelWarn, "placeholder"))
}

func TestRun_NoImageSourceConfigured(t *testing.T) {
	set := fullSet()
	set.Images = nil
	h := newHarness(t, set, mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	job, err := h.run(t, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, mock.OpPlaceholder, h.assembler.Calls()[0])
}

func TestRun_DraftModeWithVoice(t *testing.T) {
	h := newHarness(t, fullSet(), mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeDraft, "")

	job, err := h.run(t, id)
	require.NoError(t, err)

	r := job.Result
	require.NotNil(t, r)
	assert.Nil(t, r.Video)
	require.NotNil(t, r.Draft)
	require.NotNil(t, r.NoVoice)
	require.NotNil(t, r.Transcript)

	artifacts := r.Artifacts()
	require.Len(t, artifacts, 3)
	names := map[string]bool{}
	for _, a := range artifacts {
		names[a.Filename] = true
		assert.FileExists(t, a.Path)
	}
	assert.Len(t, names, 3)

	transcript, err := os.ReadFile(r.Transcript.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(transcript), "[00:00-"))
	assert.Equal(t, []string{mock.OpSlideshow, mock.OpMux, mock.OpCaptions}, h.assembler.Calls())
}

func TestRun_DraftModeWithoutVoice(t *testing.T) {
	set := fullSet()
	set.Voices = nil
	h := newHarness(t, set, mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeDraft, "")

	job, err := h.run(t, id)
	require.NoError(t, err)

	r := job.Result
	assert.Nil(t, r.Draft)
	require.NotNil(t, r.NoVoice)
	require.NotNil(t, r.Transcript)
	assert.Len(t, r.Artifacts(), 2)
}

func TestRun_DraftMuxFailureKeepsNoVoice(t *testing.T) {
	h := newHarness(t, fullSet(), mock.NewFailingAssembler(mock.OpMux))
	id := h.submit(t, "planting a tree", 30, models.ModeDraft, "")

	job, err := h.run(t, id)
	require.NoError(t, err)

	r := job.Result
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Nil(t, r.Draft)
	assert.Len(t, r.Artifacts(), 2)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "no-voice")
	assert.NoFileExists(t, filepath.Join(h.cfg.OutputDir, "draft", "video_"+id.String()+"_draft.mp4"))
}

func TestRun_FinalMuxFailureFallsBackToCaptions(t *testing.T) {
	h := newHarness(t, fullSet(), mock.NewFailingAssembler(mock.OpMux))
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	job, err := h.run(t, id)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result.Video)
	require.Len(t, job.Result.Warnings, 1)
	assert.Contains(t, job.Result.Warnings[0], "captions only")
	assert.Equal(t, []string{mock.OpSlideshow, mock.OpMux, mock.OpCaptions}, h.assembler.Calls())
}

func TestRun_CaptionFailureIsFatal(t *testing.T) {
	set := fullSet()
	set.Voices = nil
	h := newHarness(t, set, mock.NewFailingAssembler(mock.OpCaptions))
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	job, err := h.run(t, id)
	assert.ErrorIs(t, err, capability.ErrAssemblyFailed)
	assert.Equal(t, models.JobStatusError, job.Status)
	assert.Nil(t, job.Result)
}

func TestRun_AssemblyFallbackUsesFirstImage(t *testing.T) {
	asm := &mock.Assembler{Fail: func(op string, call int) error {
		if op == mock.OpSlideshow && call == 0 {
			return &capability.AssemblyError{Stage: "concat", Message: "boom"}
		}
		return nil
	}}
	h := newHarness(t, fullSet(), asm)
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	job, err := h.run(t, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	reqs := asm.Requests()
	require.GreaterOrEqual(t, len(reqs), 2)
	fallback, ok := reqs[1].(models.SlideshowRequest)
	require.True(t, ok)
	require.Len(t, fallback.Segments, 1)
	assert.Equal(t, 30.0, fallback.Segments[0].Duration)
	require.Len(t, job.Result.Warnings, 1)
	assert.Contains(t, job.Result.Warnings[0], "assembly failed")
}

func TestRun_AssemblyFailsTwice(t *testing.T) {
	h := newHarness(t, fullSet(), mock.NewFailingAssembler(mock.OpSlideshow))
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	job, err := h.run(t, id)
	require.Error(t, err)

	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.JobStatusAssembling, se.Stage)
	assert.Equal(t, models.JobStatusError, job.Status)
	assert.Equal(t, []string{mock.OpSlideshow, mock.OpSlideshow}, h.assembler.Calls())
}

func TestRun_SuppliedScriptSkipsGenerator(t *testing.T) {
	set := fullSet()
	gen := mock.NewScriptGenerator()
	set.Scripts = []models.ScriptGenerator{gen}
	h := newHarness(t, set, mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeFinal,
		`{"script":{"hook":"Trees matter.","body":"Dig a hole. Plant the sapling. Water it daily.","keywords":["sapling"]}}`)

	job, err := h.run(t, id)
	require.NoError(t, err)

	assert.Zero(t, gen.Calls())
	assert.Contains(t, job.Result.Script, "Plant the sapling")
	assert.Equal(t, []string{"sapling"}, job.Result.Keywords)
	assert.NotEmpty(t, job.Result.Captions)
}

func suppliedImageHarness(t *testing.T, srv *httptest.Server) (*harness, *mock.ImageSource) {
	t.Helper()
	set := fullSet()
	images := mock.NewImageSource(3)
	set.Images = []models.ImageSource{images}
	h := newHarness(t, set, mock.NewAssembler(),
		pipeline.WithDownloader(fetch.New(fetch.WithHTTPClient(srv.Client()), fetch.WithRetryPolicy(capability.NoRetry()))))
	return h, images
}

func TestRun_SuppliedImageURLsSkipSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	h, images := suppliedImageHarness(t, srv)
	id := h.submit(t, "planting a tree", 30, models.ModeFinal,
		`{"image_urls":["`+srv.URL+`/a.jpg","`+srv.URL+`/b.jpg"]}`)

	_, err := h.run(t, id)
	require.NoError(t, err)

	assert.Empty(t, images.Requests())
	req, ok := h.assembler.Requests()[0].(models.SlideshowRequest)
	require.True(t, ok)
	assert.Len(t, req.Segments, 2)
}

func TestRun_SuppliedImagesAllFailUsesPlaceholderWithWarning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	h, images := suppliedImageHarness(t, srv)
	id := h.submit(t, "planting a tree", 30, models.ModeFinal,
		`{"image_urls":["`+srv.URL+`/a.jpg","`+srv.URL+`/b.jpg"]}`)

	job, err := h.run(t, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Empty(t, images.Requests())

	_, ok := h.assembler.Requests()[0].(models.PlaceholderRequest)
	assert.True(t, ok, "expected a placeholder background, got %T", h.assembler.Requests()[0])

	require.NotNil(t, job.Result)
	require.Len(t, job.Result.Warnings, 1)
	assert.Contains(t, job.Result.Warnings[0], "No supplied image could be downloaded")
	assert.True(t, hasLog(job, models.LogLevelWarn, "placeholder background"))
}

func TestRun_SuppliedImagesPartialFailureWarns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing.jpg") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	h, _ := suppliedImageHarness(t, srv)
	id := h.submit(t, "planting a tree", 30, models.ModeFinal,
		`{"image_urls":["`+srv.URL+`/a.jpg","`+srv.URL+`/missing.jpg"]}`)

	job, err := h.run(t, id)
	require.NoError(t, err)

	req, ok := h.assembler.Requests()[0].(models.SlideshowRequest)
	require.True(t, ok)
	assert.Len(t, req.Segments, 1)

	require.Len(t, job.Result.Warnings, 1)
	assert.Contains(t, job.Result.Warnings[0], "1 of 2 supplied images could not be downloaded")
}

func TestRun_InvalidOptions(t *testing.T) {
	h := newHarness(t, fullSet(), mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, `{"script":"not an object"}`)

	job, err := h.run(t, id)
	require.Error(t, err)
	assert.Equal(t, models.JobStatusError, job.Status)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "invalid options")
}

func TestRun_Cancellation(t *testing.T) {
	set := fullSet()
	set.Scripts = []models.ScriptGenerator{mock.NewBlockingScriptGenerator()}
	h := newHarness(t, set, mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.orch.Run(ctx, id) }()

	require.Eventually(t, func() bool {
		job, err := h.store.GetJob(context.Background(), id)
		return err == nil && job.Status == models.JobStatusScripting
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, pipeline.ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	job, err := h.store.GetJob(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusError, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "job cancelled", *job.Error)
	assert.NoDirExists(t, pipeline.WorkspaceDir(h.cfg.TempDir, id))
}

func TestRun_StatusObserverSeesEveryStage(t *testing.T) {
	var (
		mu       sync.Mutex
		statuses []string
	)
	h := newHarness(t, fullSet(), mock.NewAssembler(),
		pipeline.WithStatusObserver(func(_ context.Context, _ uuid.UUID, status string) {
			mu.Lock()
			statuses = append(statuses, status)
			mu.Unlock()
		}))
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")

	_, err := h.run(t, id)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		models.JobStatusScripting,
		models.JobStatusVoicing,
		models.JobStatusImaging,
		models.JobStatusAssembling,
		models.JobStatusMuxing,
		models.JobStatusCompleted,
	}, statuses)
}

func (h *harness) gauge(t *testing.T, name string) float64 {
	t.Helper()
	families, err := h.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}

func TestRun_JobFinalisedElsewhereIsNotCountedAgain(t *testing.T) {
	h := newHarness(t, fullSet(), mock.NewAssembler())
	id := h.submit(t, "planting a tree", 30, models.ModeFinal, "")
	require.NoError(t, h.store.UpdateJob(context.Background(), id,
		store.WithStatus(models.JobStatusError),
		store.WithError("job cancelled"),
	))

	job, err := h.run(t, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	assert.Equal(t, models.JobStatusError, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "job cancelled", *job.Error)

	assert.Zero(t, h.counter(t, "shortforge_pipeline_jobs_total", map[string]string{"status": models.JobStatusError}))
	assert.Zero(t, h.gauge(t, "shortforge_pipeline_jobs_active"))
}

func TestRun_UnknownJob(t *testing.T) {
	h := newHarness(t, fullSet(), mock.NewAssembler())
	err := h.orch.Run(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRun_ConcurrentJobsUseSeparateWorkspaces(t *testing.T) {
	h := newHarness(t, fullSet(), mock.NewAssembler())
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = h.submit(t, "planting a tree", 30, models.ModeDraft, "")
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.orch.Run(context.Background(), id))
		}()
	}
	wg.Wait()

	for _, id := range ids {
		job, err := h.store.GetJob(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCompleted, job.Status)
		assert.Len(t, job.Result.Artifacts(), 3)
	}
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "job cancelled", pipeline.FailureMessage(context.Canceled))
	assert.Equal(t, "boom", pipeline.FailureMessage(&pipeline.StageError{Stage: "x", Err: errors.New("boom")}))
	assert.Equal(t, "plain", pipeline.FailureMessage(errors.New("plain")))
}
