// Package pipeline drives a job through scripting, voicing, imaging, assembling and
// muxing. Script and assembly failures are fatal; voice, image and audio-mux failures
// degrade the job and are recorded as warnings on the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/capability/fetch"
	"github.com/kiranshivaraju/shortforge/internal/capability/imagesearch"
	"github.com/kiranshivaraju/shortforge/internal/config"
	"github.com/kiranshivaraju/shortforge/internal/script"
	"github.com/kiranshivaraju/shortforge/internal/store"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// ErrCancelled is the cause of a job stopped through its context.
var ErrCancelled = errors.New("job cancelled")

// StageError is a failure attributed to one pipeline stage. Fatal errors end the job;
// degraded ones are logged and the job continues.
type StageError struct {
	Stage string
	Fatal bool
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Resolver yields the capability adapters for one job.
type Resolver interface {
	Resolve() models.CapabilitySet
}

// StatusObserver is told about every status a job enters.
type StatusObserver func(ctx context.Context, id uuid.UUID, status string)

// Config holds the orchestrator's filesystem layout and limits.
type Config struct {
	OutputDir        string
	TempDir          string
	PublicBaseURL    string
	Timeouts         config.TimeoutsConfig
	MaxImages        int
	ImagesPerKeyword int
	PlaceholderColor string
}

// ConfigFrom derives the orchestrator config from the service config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		OutputDir:     cfg.Paths.OutputDir,
		TempDir:       cfg.Paths.TempDir,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		Timeouts:      cfg.Timeouts,
	}
}

const (
	defaultMaxImages        = 10
	defaultImagesPerKeyword = 2
)

type Orchestrator struct {
	store      store.JobStore
	resolver   Resolver
	assembler  models.MediaAssembler
	downloader *fetch.Downloader
	cache      *imagesearch.ResultCache
	metrics    *Metrics
	observer   StatusObserver
	logger     *slog.Logger
	cfg        Config
}

type Option func(*Orchestrator)

func WithImageCache(c *imagesearch.ResultCache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithDownloader sets the downloader used for client-supplied image URLs.
func WithDownloader(d *fetch.Downloader) Option {
	return func(o *Orchestrator) { o.downloader = d }
}

func WithStatusObserver(fn StatusObserver) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

func New(st store.JobStore, resolver Resolver, assembler models.MediaAssembler, cfg Config, opts ...Option) *Orchestrator {
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = defaultMaxImages
	}
	if cfg.ImagesPerKeyword <= 0 {
		cfg.ImagesPerKeyword = defaultImagesPerKeyword
	}
	o := &Orchestrator{
		store:     st,
		resolver:  resolver,
		assembler: assembler,
		logger:    slog.Default(),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.downloader == nil {
		o.downloader = fetch.New()
	}
	return o
}

// Run drives job id to a terminal status. The returned error is the fatal failure, if
// any; it has already been recorded on the job. Cancelling ctx stops the job at the next
// suspension point and records "job cancelled".
func (o *Orchestrator) Run(ctx context.Context, id uuid.UUID) error {
	storeCtx := context.WithoutCancel(ctx)

	job, err := o.store.GetJob(storeCtx, id)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	o.metrics.JobStarted()
	logger := o.logger.With("job_id", id, "mode", job.Mode)

	ws, err := NewWorkspace(o.cfg.TempDir, id)
	if err != nil {
		o.fail(storeCtx, logger, job, &StageError{Stage: models.JobStatusPending, Fatal: true, Err: err})
		return err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			logger.Warn("failed to remove job workspace", "dir", ws.Dir(), "error", err)
		}
	}()

	if err := EnsureOutputDirs(o.cfg.OutputDir); err != nil {
		serr := &StageError{Stage: models.JobStatusPending, Fatal: true, Err: err}
		o.fail(storeCtx, logger, job, serr)
		return serr
	}

	opts, err := models.ParseJobOptions(job.Options)
	if err != nil {
		serr := &StageError{Stage: models.JobStatusPending, Fatal: true, Err: fmt.Errorf("invalid options: %w", err)}
		o.fail(storeCtx, logger, job, serr)
		return serr
	}

	r := &run{
		o:        o,
		job:      job,
		opts:     opts,
		ws:       ws,
		set:      o.resolver.Resolve(),
		storeCtx: storeCtx,
		logger:   logger,
		warnings: []string{},
	}

	result, err := r.execute(ctx)
	if err != nil {
		o.fail(storeCtx, logger, job, err)
		return err
	}

	if err := o.store.UpdateJob(storeCtx, id,
		store.WithStatus(models.JobStatusCompleted),
		store.WithProgress("Video created successfully"),
		store.WithResult(result),
	); err != nil {
		logger.Error("failed to record job completion", "error", err)
		o.finishMetrics(err, models.JobStatusError)
		return err
	}
	o.appendLog(storeCtx, id, models.LogLevelInfo, "Job completed")
	o.notify(storeCtx, id, models.JobStatusCompleted)
	o.metrics.JobFinished(models.JobStatusCompleted)
	logger.Info("job completed", "warnings", len(result.Warnings))
	return nil
}

// fail records err as the job's terminal error. Only the message is exposed. A job that
// some other writer already finalised keeps its status and is not counted again.
func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, job *models.Job, err error) {
	msg := FailureMessage(err)
	uerr := o.store.UpdateJob(ctx, job.ID,
		store.WithStatus(models.JobStatusError),
		store.WithProgress("Failed: "+msg),
		store.WithError(msg),
	)
	if errors.Is(uerr, store.ErrInvalidTransition) {
		logger.Warn("job was finalised elsewhere, stopping", "error", err)
		o.metrics.JobAbandoned()
		return
	}
	if uerr != nil {
		logger.Error("failed to record job failure", "error", uerr, "cause", err)
	}
	o.appendLog(ctx, job.ID, models.LogLevelError, msg)
	o.notify(ctx, job.ID, models.JobStatusError)
	o.metrics.JobFinished(models.JobStatusError)
	logger.Error("job failed", "error", err)
}

// finishMetrics counts a terminal status unless err shows the job was already terminal.
func (o *Orchestrator) finishMetrics(err error, status string) {
	if errors.Is(err, store.ErrInvalidTransition) {
		o.metrics.JobAbandoned()
		return
	}
	o.metrics.JobFinished(status)
}

// FailureMessage is the user-visible message for a fatal pipeline error.
func FailureMessage(err error) string {
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return ErrCancelled.Error()
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}

func (o *Orchestrator) appendLog(ctx context.Context, id uuid.UUID, level, msg string) {
	if err := o.store.AppendLog(ctx, id, level, msg); err != nil {
		o.logger.Warn("failed to append job log", "job_id", id, "error", err)
	}
}

func (o *Orchestrator) notify(ctx context.Context, id uuid.UUID, status string) {
	if o.observer != nil {
		o.observer(ctx, id, status)
	}
}

// withTimeout bounds one adapter call. A non-positive d leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// run is the state of one job execution.
type run struct {
	o        *Orchestrator
	job      *models.Job
	opts     models.JobOptions
	ws       *Workspace
	set      models.CapabilitySet
	storeCtx context.Context
	logger   *slog.Logger

	script   models.Script
	audio    string
	images   []string
	video    string
	warnings []string
	degraded bool
}

type stage struct {
	name string
	fn   func(ctx context.Context) error
}

func (r *run) execute(ctx context.Context) (models.Result, error) {
	var result models.Result
	stages := []stage{
		{models.JobStatusScripting, r.scripting},
		{models.JobStatusVoicing, r.voicing},
		{models.JobStatusImaging, r.imaging},
		{models.JobStatusAssembling, r.assembling},
		{models.JobStatusMuxing, func(ctx context.Context) error {
			var err error
			result, err = r.muxing(ctx)
			return err
		}},
	}

	for _, s := range stages {
		if err := r.checkCancelled(ctx, s.name); err != nil {
			return models.Result{}, err
		}
		r.degraded = false
		start := time.Now()
		err := s.fn(ctx)

		status := "ok"
		switch {
		case err != nil:
			status = "error"
			r.o.metrics.IncStageFailure(s.name, failureReason(err))
		case r.degraded:
			status = "degraded"
		}
		r.o.metrics.ObserveStage(s.name, status, time.Since(start))
		if err != nil {
			return models.Result{}, err
		}
	}
	return result, nil
}

// enter moves the job into stage and records the progress message.
func (r *run) enter(stage, progress string) error {
	if err := r.o.store.UpdateJob(r.storeCtx, r.job.ID,
		store.WithStatus(stage),
		store.WithProgress(progress),
	); err != nil {
		return &StageError{Stage: stage, Fatal: true, Err: err}
	}
	r.info(progress)
	r.o.notify(r.storeCtx, r.job.ID, stage)
	r.logger.Info("stage started", "stage", stage)
	return nil
}

func (r *run) progress(msg string) {
	if err := r.o.store.UpdateJob(r.storeCtx, r.job.ID, store.WithProgress(msg)); err != nil {
		r.logger.Warn("failed to update progress", "error", err)
	}
}

func (r *run) info(msg string) {
	r.o.appendLog(r.storeCtx, r.job.ID, models.LogLevelInfo, msg)
}

// warn logs a degraded outcome and adds it to the result warnings.
func (r *run) warn(stage, msg string, err error) {
	r.degraded = true
	full := msg
	if err != nil {
		full = fmt.Sprintf("%s: %v", msg, err)
		r.o.metrics.IncStageFailure(stage, failureReason(err))
	}
	r.warnings = append(r.warnings, full)
	r.o.appendLog(r.storeCtx, r.job.ID, models.LogLevelWarn, full)
	r.logger.Warn(msg, "stage", stage, "error", err)
}

func (r *run) checkCancelled(ctx context.Context, stage string) error {
	if ctx.Err() != nil {
		return &StageError{Stage: stage, Fatal: true, Err: ErrCancelled}
	}
	return nil
}

func (r *run) scripting(ctx context.Context) error {
	const stage = models.JobStatusScripting
	if err := r.enter(stage, "Generating script..."); err != nil {
		return err
	}

	if r.opts.Script != nil {
		r.script = script.Normalize(*r.opts.Script, r.job.Topic, r.job.Duration)
		r.info("Using supplied script")
		return nil
	}

	if len(r.set.Scripts) == 0 {
		return &StageError{Stage: stage, Fatal: true, Err: capability.NewProviderError(
			capability.ErrNotConfigured, "script", capability.ReasonAuth, "no script generator configured", nil)}
	}
	gen := r.set.Scripts[0]

	callCtx, cancel := withTimeout(ctx, r.o.cfg.Timeouts.Script)
	s, err := gen.Generate(callCtx, r.job.Topic, r.job.Duration)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return &StageError{Stage: stage, Fatal: true, Err: ErrCancelled}
		}
		return &StageError{Stage: stage, Fatal: true, Err: err}
	}

	r.script = script.Normalize(s, r.job.Topic, r.job.Duration)
	r.info(fmt.Sprintf("Script generated by %s (%d captions)", gen.Name(), len(r.script.Captions)))
	return nil
}

func (r *run) voicing(ctx context.Context) error {
	const stage = models.JobStatusVoicing
	if err := r.enter(stage, "Synthesizing voice..."); err != nil {
		return err
	}

	if len(r.set.Voices) == 0 {
		r.warn(stage, "Voice skipped: no voice service configured", nil)
		return nil
	}
	if r.script.FullText == "" {
		r.warn(stage, "Voice skipped: script has no narration text", nil)
		return nil
	}

	voice := r.set.Voices[0]
	callCtx, cancel := withTimeout(ctx, r.o.cfg.Timeouts.Voice)
	path, err := voice.Synthesize(callCtx, r.script.FullText, r.ws.Dir())
	cancel()
	if err != nil {
		if cerr := r.checkCancelled(ctx, stage); cerr != nil {
			return cerr
		}
		r.o.metrics.IncFallback(stage)
		r.warn(stage, fmt.Sprintf("Voice synthesis with %s failed, continuing without audio", voice.Name()), err)
		return nil
	}

	r.audio = path
	r.info(fmt.Sprintf("Voice synthesized with %s", voice.Name()))
	return nil
}

func (r *run) imaging(ctx context.Context) error {
	const stage = models.JobStatusImaging
	if err := r.enter(stage, "Searching images..."); err != nil {
		return err
	}

	if len(r.opts.ImageURLs) > 0 {
		r.info(fmt.Sprintf("Using %d supplied images", len(r.opts.ImageURLs)))
		failed := r.download(ctx, stage, r.opts.ImageURLs, func(ctx context.Context, url string) (string, error) {
			return r.o.downloader.Download(ctx, "supplied", url, r.ws.Dir())
		})
		if err := r.checkCancelled(ctx, stage); err != nil {
			return err
		}
		r.warnDownloads(stage, "supplied image", failed)
		return nil
	}

	if len(r.set.Images) == 0 {
		r.warn(stage, "Images skipped: no image service configured", nil)
		return nil
	}

	composite := imagesearch.New(r.set.Images,
		imagesearch.WithCache(r.o.cache), imagesearch.WithLogger(r.logger))

	hits := r.search(ctx, composite, r.script.Keywords)
	if len(hits) == 0 && len(r.script.Keywords) > 0 {
		if err := r.checkCancelled(ctx, stage); err != nil {
			return err
		}
		first := r.script.Keywords[0]
		r.info(fmt.Sprintf("No images found, retrying with keyword %q", first))
		r.o.metrics.IncFallback(stage)
		hits = r.search(ctx, composite, []string{first})
	}
	if err := r.checkCancelled(ctx, stage); err != nil {
		return err
	}
	if len(hits) == 0 {
		r.warn(stage, "No images found, using a placeholder background", nil)
		return nil
	}

	urls := make([]string, len(hits))
	for i, h := range hits {
		urls[i] = h.URL
	}
	r.progress(fmt.Sprintf("Downloading %d images...", len(urls)))
	failed := r.download(ctx, stage, urls, func(ctx context.Context, url string) (string, error) {
		return composite.Download(ctx, url, r.ws.Dir())
	})
	if err := r.checkCancelled(ctx, stage); err != nil {
		return err
	}
	r.warnDownloads(stage, "image", failed)
	return nil
}

// warnDownloads records a warning when some or all downloads of the imaging stage failed.
func (r *run) warnDownloads(stage, what string, failed int) {
	switch {
	case failed == 0:
	case len(r.images) == 0:
		r.o.metrics.IncFallback(stage)
		r.warn(stage, fmt.Sprintf("No %s could be downloaded, using a placeholder background", what), nil)
	default:
		r.warn(stage, fmt.Sprintf("%d of %d %ss could not be downloaded", failed, failed+len(r.images), what), nil)
	}
}

// search runs one composite search. Failures degrade to an empty result.
func (r *run) search(ctx context.Context, src models.ImageSource, keywords []string) []models.ImageInfo {
	callCtx, cancel := withTimeout(ctx, r.o.cfg.Timeouts.ImageSearch)
	defer cancel()

	hits, err := src.Search(callCtx, models.SearchRequest{
		Keywords:   keywords,
		Topic:      r.job.Topic,
		PerKeyword: r.o.cfg.ImagesPerKeyword,
		Max:        r.o.cfg.MaxImages,
	})
	if err != nil {
		if ctx.Err() == nil {
			r.warn(models.JobStatusImaging, "Image search failed", err)
		}
		return nil
	}
	return hits
}

// download fetches urls into the workspace and returns how many failed.
func (r *run) download(ctx context.Context, stage string, urls []string, get func(ctx context.Context, url string) (string, error)) int {
	if len(urls) > r.o.cfg.MaxImages {
		urls = urls[:r.o.cfg.MaxImages]
	}
	failed := 0
	for _, url := range urls {
		if ctx.Err() != nil {
			return failed
		}
		callCtx, cancel := withTimeout(ctx, r.o.cfg.Timeouts.Download)
		path, err := get(callCtx, url)
		cancel()
		if err != nil {
			failed++
			r.logger.Warn("image download failed", "url", url, "error", err)
			r.o.metrics.IncStageFailure(stage, failureReason(err))
			continue
		}
		r.images = append(r.images, path)
	}
	r.info(fmt.Sprintf("Downloaded %d of %d images", len(r.images), len(urls)))
	return failed
}

func (r *run) assembling(ctx context.Context) error {
	const stage = models.JobStatusAssembling
	if err := r.enter(stage, "Creating video..."); err != nil {
		return err
	}
	total := float64(r.job.Duration)

	path, err := r.assemble(ctx, r.images, total, "video.mp4")
	if err == nil {
		r.video = path
		r.info("Video assembled")
		return nil
	}
	if cerr := r.checkCancelled(ctx, stage); cerr != nil {
		return cerr
	}

	r.o.metrics.IncFallback(stage)
	r.warn(stage, "Video assembly failed, retrying with a simpler video", err)

	var fallback []string
	if len(r.images) > 0 {
		fallback = r.images[:1]
	}
	path, err = r.assemble(ctx, fallback, total, "video_fallback.mp4")
	if err != nil {
		if cerr := r.checkCancelled(ctx, stage); cerr != nil {
			return cerr
		}
		return &StageError{Stage: stage, Fatal: true, Err: err}
	}
	r.video = path
	r.info("Video assembled with fallback")
	return nil
}

// assemble renders a Ken Burns slideshow of images, or a placeholder when there are none.
func (r *run) assemble(ctx context.Context, images []string, total float64, name string) (string, error) {
	callCtx, cancel := withTimeout(ctx, r.o.cfg.Timeouts.Assembly)
	defer cancel()

	if len(images) == 0 {
		return r.o.assembler.Placeholder(callCtx, models.PlaceholderRequest{
			Duration: total,
			Color:    r.o.cfg.PlaceholderColor,
			Output:   r.ws.Path(name),
		})
	}
	return r.o.assembler.AssembleSlideshow(callCtx, models.SlideshowRequest{
		Segments:      PlanSegments(images, total),
		TotalDuration: total,
		Output:        r.ws.Path(name),
	})
}

// PlanSegments gives each image an equal share of total, cycling effects round-robin.
func PlanSegments(images []string, total float64) []models.Segment {
	if len(images) == 0 {
		return nil
	}
	per := total / float64(len(images))
	segments := make([]models.Segment, len(images))
	for i, img := range images {
		segments[i] = models.Segment{
			Image:    img,
			Effect:   models.Effects[i%len(models.Effects)],
			Duration: per,
		}
	}
	return segments
}

func (r *run) muxing(ctx context.Context) (models.Result, error) {
	const stage = models.JobStatusMuxing
	if err := r.enter(stage, "Adding audio and captions..."); err != nil {
		return models.Result{}, err
	}

	result := models.Result{
		Script:   r.script.FullText,
		Hook:     r.script.Hook,
		MidHook:  r.script.MidHook,
		CTA:      r.script.CTA,
		Hashtags: r.script.Hashtags,
		Keywords: r.script.Keywords,
		Captions: r.script.Captions,
	}

	var err error
	if r.job.Mode == models.ModeDraft {
		err = r.muxDraft(ctx, &result)
	} else {
		err = r.muxFinal(ctx, &result)
	}
	if err != nil {
		return models.Result{}, err
	}
	result.Warnings = r.warnings
	return result, nil
}

func (r *run) muxFinal(ctx context.Context, result *models.Result) error {
	const stage = models.JobStatusMuxing
	out := r.o.artifact(models.ArtifactFinal, finalFilename(r.job.ID))

	if r.audio != "" {
		err := r.mux(ctx, out.Path)
		if err == nil {
			result.Video = &out
			r.info("Audio and captions added")
			return nil
		}
		if cerr := r.checkCancelled(ctx, stage); cerr != nil {
			return cerr
		}
		_ = os.Remove(out.Path)
		r.o.metrics.IncFallback(stage)
		r.warn(stage, "Could not add audio, video has captions only", err)
	}

	if err := r.burn(ctx, out.Path); err != nil {
		if cerr := r.checkCancelled(ctx, stage); cerr != nil {
			return cerr
		}
		return &StageError{Stage: stage, Fatal: true, Err: err}
	}
	result.Video = &out
	r.info("Captions added")
	return nil
}

func (r *run) muxDraft(ctx context.Context, result *models.Result) error {
	const stage = models.JobStatusMuxing
	draft := r.o.artifact(models.ArtifactDraft, draftFilename(r.job.ID))
	noVoice := r.o.artifact(models.ArtifactNoVoice, noVoiceFilename(r.job.ID))
	transcript := r.o.artifact(models.ArtifactScripts, transcriptFilename(r.job.ID))

	if r.audio != "" {
		if err := r.mux(ctx, draft.Path); err != nil {
			if cerr := r.checkCancelled(ctx, stage); cerr != nil {
				return cerr
			}
			_ = os.Remove(draft.Path)
			r.o.metrics.IncFallback(stage)
			r.warn(stage, "Could not add audio to the draft, only the no-voice video was produced", err)
		} else {
			result.Draft = &draft
			r.info("Draft video with voice created")
		}
	}

	if err := r.burn(ctx, noVoice.Path); err != nil {
		if cerr := r.checkCancelled(ctx, stage); cerr != nil {
			return cerr
		}
		return &StageError{Stage: stage, Fatal: true, Err: err}
	}
	result.NoVoice = &noVoice
	r.info("No-voice video created")

	if err := writeTranscript(transcript.Path, r.script.Captions); err != nil {
		return &StageError{Stage: stage, Fatal: true, Err: err}
	}
	result.Transcript = &transcript
	r.info("Timed script written")
	return nil
}

func (r *run) mux(ctx context.Context, output string) error {
	callCtx, cancel := withTimeout(ctx, r.o.cfg.Timeouts.Assembly)
	defer cancel()
	_, err := r.o.assembler.MuxAudioVideo(callCtx, models.MuxRequest{
		Video:    r.video,
		Audio:    r.audio,
		Captions: r.script.Captions,
		Output:   output,
	})
	return err
}

func (r *run) burn(ctx context.Context, output string) error {
	callCtx, cancel := withTimeout(ctx, r.o.cfg.Timeouts.Assembly)
	defer cancel()
	_, err := r.o.assembler.BurnCaptions(callCtx, models.CaptionRequest{
		Video:    r.video,
		Captions: r.script.Captions,
		Output:   output,
	})
	return err
}

func writeTranscript(path string, captions []models.Caption) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(script.FormatTranscript(captions)), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// failureReason is the metrics label for err.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, capability.ErrAssemblyFailed):
		return "assembly"
	case errors.Is(err, capability.ErrNotConfigured):
		return "not_configured"
	}
	if reason := capability.ReasonOf(err); reason != "" {
		return string(reason)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(capability.ReasonTimeout)
	}
	return "internal"
}
