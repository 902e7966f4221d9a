// Package mock provides deterministic capability doubles for tests. Every double writes
// real files where the interface promises a path, so pipeline cleanup can be asserted.
package mock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/script"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// ScriptGenerator satisfies models.ScriptGenerator for testing.
type ScriptGenerator struct {
	Name_        string
	GenerateFunc func(ctx context.Context, topic string, duration int) (models.Script, error)

	mu    sync.Mutex
	calls int
}

func (m *ScriptGenerator) Name() string { return m.Name_ }

func (m *ScriptGenerator) Generate(ctx context.Context, topic string, duration int) (models.Script, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, topic, duration)
	}
	return models.Script{}, nil
}

// Calls returns how many times Generate ran.
func (m *ScriptGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SampleScript returns a normalised script whose captions cover [0, duration).
func SampleScript(topic string, duration int) models.Script {
	return script.Normalize(models.Script{
		Hook:     "Did you know this about " + topic + "?",
		Body:     "Here is the first fact. Here is the second fact. And here is one more thing to remember.",
		MidHook:  "Wait for it.",
		CTA:      "Follow for more!",
		Hashtags: []string{"shorts", "#learn"},
		Keywords: []string{topic, "nature"},
	}, topic, duration)
}

// NewScriptGenerator returns a generator that always yields SampleScript.
func NewScriptGenerator() *ScriptGenerator {
	return &ScriptGenerator{
		Name_: "mock-script",
		GenerateFunc: func(_ context.Context, topic string, duration int) (models.Script, error) {
			return SampleScript(topic, duration), nil
		},
	}
}

// NewFailingScriptGenerator returns a generator that always fails with err.
func NewFailingScriptGenerator(err error) *ScriptGenerator {
	return &ScriptGenerator{
		Name_: "mock-script-failing",
		GenerateFunc: func(context.Context, string, int) (models.Script, error) {
			return models.Script{}, err
		},
	}
}

// NewBlockingScriptGenerator returns a generator that blocks until ctx is done.
func NewBlockingScriptGenerator() *ScriptGenerator {
	return &ScriptGenerator{
		Name_: "mock-script-blocking",
		GenerateFunc: func(ctx context.Context, _ string, _ int) (models.Script, error) {
			<-ctx.Done()
			return models.Script{}, capability.ClassifyTransport(capability.ErrGenerationFailed, "mock", ctx.Err())
		},
	}
}

// VoiceSynthesizer satisfies models.VoiceSynthesizer for testing.
type VoiceSynthesizer struct {
	Name_          string
	SynthesizeFunc func(ctx context.Context, text, outputDir string) (string, error)

	mu    sync.Mutex
	texts []string
}

func (m *VoiceSynthesizer) Name() string { return m.Name_ }

func (m *VoiceSynthesizer) Synthesize(ctx context.Context, text, outputDir string) (string, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text, outputDir)
	}
	return "", nil
}

// Texts returns every text passed to Synthesize.
func (m *VoiceSynthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// NewVoiceSynthesizer returns a synthesizer that writes a small placeholder mp3.
func NewVoiceSynthesizer() *VoiceSynthesizer {
	return &VoiceSynthesizer{
		Name_: "mock-voice",
		SynthesizeFunc: func(_ context.Context, text, outputDir string) (string, error) {
			return capability.WriteFile(outputDir, "voice", ".mp3", []byte("audio:"+text))
		},
	}
}

// NewFailingVoiceSynthesizer returns a synthesizer that always fails with err.
func NewFailingVoiceSynthesizer(err error) *VoiceSynthesizer {
	return &VoiceSynthesizer{
		Name_: "mock-voice-failing",
		SynthesizeFunc: func(context.Context, string, string) (string, error) {
			return "", err
		},
	}
}

// ImageSource satisfies models.ImageSource for testing.
type ImageSource struct {
	Name_        string
	SearchFunc   func(ctx context.Context, req models.SearchRequest) ([]models.ImageInfo, error)
	DownloadFunc func(ctx context.Context, url, outputDir string) (string, error)

	mu       sync.Mutex
	requests []models.SearchRequest
}

func (m *ImageSource) Name() string { return m.Name_ }

func (m *ImageSource) Search(ctx context.Context, req models.SearchRequest) ([]models.ImageInfo, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, req)
	}
	return nil, nil
}

func (m *ImageSource) Download(ctx context.Context, url, outputDir string) (string, error) {
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, url, outputDir)
	}
	return writeImage(outputDir)
}

// Requests returns every search request received.
func (m *ImageSource) Requests() []models.SearchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SearchRequest(nil), m.requests...)
}

// NewImageSource returns a source that yields count hits per search, capped at req.Max.
func NewImageSource(count int) *ImageSource {
	return &ImageSource{
		Name_: "mock-images",
		SearchFunc: func(_ context.Context, req models.SearchRequest) ([]models.ImageInfo, error) {
			n := count
			if req.Max > 0 && n > req.Max {
				n = req.Max
			}
			out := make([]models.ImageInfo, n)
			for i := range out {
				out[i] = models.ImageInfo{
					URL:          fmt.Sprintf("https://images.test/%d.jpg", i),
					ThumbnailURL: fmt.Sprintf("https://images.test/%d_thumb.jpg", i),
					Source:       "mock-images",
				}
			}
			return out, nil
		},
	}
}

// NewEmptyImageSource returns a source whose searches never find anything.
func NewEmptyImageSource() *ImageSource {
	return &ImageSource{
		Name_: "mock-images-empty",
		SearchFunc: func(context.Context, models.SearchRequest) ([]models.ImageInfo, error) {
			return nil, nil
		},
	}
}

func writeImage(outputDir string) (string, error) {
	return capability.WriteFile(outputDir, "image", ".jpg", []byte("jpeg"))
}

// Assembler satisfies models.MediaAssembler for testing. Each operation writes its
// output file unless the matching Fail hook returns an error.
type Assembler struct {
	// Fail, when set, is consulted before every operation with the operation name.
	Fail func(op string, call int) error

	mu    sync.Mutex
	calls []string
	reqs  []any
}

const (
	OpSlideshow    = "slideshow"
	OpPlaceholder  = "placeholder"
	OpMux          = "mux"
	OpCaptions     = "captions"
	OpReplaceAudio = "replace_audio"
	OpPiP          = "pip"
)

func NewAssembler() *Assembler {
	return &Assembler{}
}

// NewFailingAssembler returns an assembler whose listed operations always fail.
func NewFailingAssembler(ops ...string) *Assembler {
	failing := make(map[string]bool, len(ops))
	for _, op := range ops {
		failing[op] = true
	}
	return &Assembler{Fail: func(op string, _ int) error {
		if failing[op] {
			return &capability.AssemblyError{Stage: op, Message: "mock failure"}
		}
		return nil
	}}
}

// Calls returns the operation names invoked, in order.
func (m *Assembler) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Requests returns the typed requests received, in call order.
func (m *Assembler) Requests() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.reqs...)
}

func (m *Assembler) record(op string, req any, output string) (string, error) {
	m.mu.Lock()
	n := 0
	for _, c := range m.calls {
		if c == op {
			n++
		}
	}
	m.calls = append(m.calls, op)
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()

	if m.Fail != nil {
		if err := m.Fail(op, n); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(output, []byte(op), 0o644); err != nil {
		return "", err
	}
	return output, nil
}

func (m *Assembler) AssembleSlideshow(_ context.Context, req models.SlideshowRequest) (string, error) {
	return m.record(OpSlideshow, req, req.Output)
}

func (m *Assembler) Placeholder(_ context.Context, req models.PlaceholderRequest) (string, error) {
	return m.record(OpPlaceholder, req, req.Output)
}

func (m *Assembler) MuxAudioVideo(_ context.Context, req models.MuxRequest) (string, error) {
	return m.record(OpMux, req, req.Output)
}

func (m *Assembler) BurnCaptions(_ context.Context, req models.CaptionRequest) (string, error) {
	return m.record(OpCaptions, req, req.Output)
}

func (m *Assembler) ReplaceAudio(_ context.Context, req models.ReplaceAudioRequest) (string, error) {
	return m.record(OpReplaceAudio, req, req.Output)
}

func (m *Assembler) PictureInPicture(_ context.Context, req models.PictureInPictureRequest) (string, error) {
	return m.record(OpPiP, req, req.Output)
}

// Compile-time checks.
var (
	_ models.ScriptGenerator  = (*ScriptGenerator)(nil)
	_ models.VoiceSynthesizer = (*VoiceSynthesizer)(nil)
	_ models.ImageSource      = (*ImageSource)(nil)
	_ models.MediaAssembler   = (*Assembler)(nil)
)
