// Package selector picks capability adapters from a credentials snapshot. A capability is
// available exactly when its credential is set; there are no enable flags.
package selector

import (
	"net/http"

	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/capability/elevenlabs"
	"github.com/kiranshivaraju/shortforge/internal/capability/fetch"
	"github.com/kiranshivaraju/shortforge/internal/capability/googletts"
	"github.com/kiranshivaraju/shortforge/internal/capability/openai"
	"github.com/kiranshivaraju/shortforge/internal/capability/pexels"
	"github.com/kiranshivaraju/shortforge/internal/capability/unsplash"
	"github.com/kiranshivaraju/shortforge/internal/config"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// Capability kinds.
const (
	KindScript = "script"
	KindVoice  = "voice"
	KindImages = "images"
)

// Descriptor names one candidate adapter. Adapter is nil when Configured is false.
type Descriptor struct {
	Kind       string
	Name       string
	Configured bool
	Adapter    any
}

// Deps are the shared clients handed to every adapter the selector builds.
type Deps struct {
	HTTPClient *http.Client
	Retry      capability.RetryPolicy
	Downloader *fetch.Downloader
}

// Describe lists every known adapter in priority order per kind:
// script [openai], voice [elevenlabs, google-tts, openai-tts], images [unsplash, pexels].
func Describe(cfg config.CapabilitiesConfig, deps Deps) []Descriptor {
	hc := deps.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	dl := deps.Downloader
	if dl == nil {
		dl = fetch.New(fetch.WithRetryPolicy(deps.Retry))
	}

	var out []Descriptor
	add := func(kind, name string, configured bool, build func() any) {
		d := Descriptor{Kind: kind, Name: name, Configured: configured}
		if configured {
			d.Adapter = build()
		}
		out = append(out, d)
	}

	add(KindScript, "openai", cfg.OpenAI.APIKey != "", func() any {
		return openai.NewScriptGenerator(cfg.OpenAI, cfg.ScriptLanguage,
			openai.WithHTTPClient(hc), openai.WithRetryPolicy(deps.Retry))
	})

	add(KindVoice, "elevenlabs", cfg.ElevenLabs.APIKey != "", func() any {
		return elevenlabs.NewSynthesizer(cfg.ElevenLabs,
			elevenlabs.WithHTTPClient(hc), elevenlabs.WithRetryPolicy(deps.Retry))
	})
	add(KindVoice, "google-tts", cfg.GoogleTTS.APIKey != "", func() any {
		return googletts.NewSynthesizer(cfg.GoogleTTS,
			googletts.WithHTTPClient(hc), googletts.WithRetryPolicy(deps.Retry))
	})
	add(KindVoice, "openai-tts", cfg.OpenAI.APIKey != "", func() any {
		return openai.NewSynthesizer(cfg.OpenAI,
			openai.WithHTTPClient(hc), openai.WithRetryPolicy(deps.Retry))
	})

	add(KindImages, "unsplash", cfg.Unsplash.AccessKey != "", func() any {
		return unsplash.New(cfg.Unsplash,
			unsplash.WithHTTPClient(hc), unsplash.WithRetryPolicy(deps.Retry), unsplash.WithDownloader(dl))
	})
	add(KindImages, "pexels", cfg.Pexels.APIKey != "", func() any {
		return pexels.New(cfg.Pexels,
			pexels.WithHTTPClient(hc), pexels.WithRetryPolicy(deps.Retry), pexels.WithDownloader(dl))
	})
	return out
}

// Build returns the configured adapters of cfg, each list in priority order. It never
// fails; an empty list means the capability is unavailable.
func Build(cfg config.CapabilitiesConfig, deps Deps) models.CapabilitySet {
	var set models.CapabilitySet
	for _, d := range Describe(cfg, deps) {
		if !d.Configured {
			continue
		}
		switch d.Kind {
		case KindScript:
			if g, ok := d.Adapter.(models.ScriptGenerator); ok {
				set.Scripts = append(set.Scripts, g)
			}
		case KindVoice:
			if v, ok := d.Adapter.(models.VoiceSynthesizer); ok {
				set.Voices = append(set.Voices, v)
			}
		case KindImages:
			if src, ok := d.Adapter.(models.ImageSource); ok {
				set.Images = append(set.Images, src)
			}
		}
	}
	return set
}

// Selector re-reads the credential source on every call so credential changes take
// effect for the next job without a restart.
type Selector struct {
	source func() config.CapabilitiesConfig
	deps   Deps
}

type Option func(*Selector)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Selector) { s.deps.HTTPClient = hc }
}

func WithRetryPolicy(p capability.RetryPolicy) Option {
	return func(s *Selector) { s.deps.Retry = p }
}

func WithDownloader(d *fetch.Downloader) Option {
	return func(s *Selector) { s.deps.Downloader = d }
}

// New returns a Selector over source. A nil source reads the process environment.
func New(source func() config.CapabilitiesConfig, opts ...Option) *Selector {
	if source == nil {
		source = config.LoadCapabilities
	}
	s := &Selector{source: source, deps: Deps{Retry: capability.DefaultRetryPolicy()}}
	for _, opt := range opts {
		opt(s)
	}
	if s.deps.Downloader == nil {
		s.deps.Downloader = fetch.New(fetch.WithRetryPolicy(s.deps.Retry))
	}
	return s
}

// Resolve builds a fresh CapabilitySet from the current credentials.
func (s *Selector) Resolve() models.CapabilitySet {
	return Build(s.source(), s.deps)
}

// Describe lists every known adapter against the current credentials.
func (s *Selector) Describe() []Descriptor {
	return Describe(s.source(), s.deps)
}

// Snapshot returns the current credential snapshot.
func (s *Selector) Snapshot() config.CapabilitiesConfig {
	return s.source()
}
