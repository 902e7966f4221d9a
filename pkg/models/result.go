package models

const (
	ArtifactFinal   = "final"
	ArtifactDraft   = "draft"
	ArtifactNoVoice = "no_voice"
	ArtifactScripts = "scripts"
)

// ArtifactCategories lists every downloadable output category.
var ArtifactCategories = []string{ArtifactFinal, ArtifactDraft, ArtifactNoVoice, ArtifactScripts}

// Artifact references a retained pipeline output. Path is server-local and never serialised.
type Artifact struct {
	Category string `json:"category"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Path     string `json:"-"`
}

// Result is populated once a job completes. Video is set for single-artifact modes;
// Draft, NoVoice and Transcript are set for draft mode.
type Result struct {
	Script     string    `json:"script"`
	Hook       string    `json:"hook"`
	MidHook    string    `json:"mid_hook"`
	CTA        string    `json:"cta"`
	Hashtags   []string  `json:"hashtags"`
	Keywords   []string  `json:"keywords"`
	Captions   []Caption `json:"captions"`
	Video      *Artifact `json:"video,omitempty"`
	Draft      *Artifact `json:"draft,omitempty"`
	NoVoice    *Artifact `json:"no_voice,omitempty"`
	Transcript *Artifact `json:"transcript,omitempty"`
	Warnings   []string  `json:"warnings"`
}

// Artifacts returns every non-nil artifact reference.
func (r *Result) Artifacts() []Artifact {
	if r == nil {
		return nil
	}
	var out []Artifact
	for _, a := range []*Artifact{r.Video, r.Draft, r.NoVoice, r.Transcript} {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out
}

func (r Result) Clone() Result {
	cp := r
	cp.Hashtags = append([]string(nil), r.Hashtags...)
	cp.Keywords = append([]string(nil), r.Keywords...)
	cp.Captions = append([]Caption(nil), r.Captions...)
	cp.Warnings = append([]string(nil), r.Warnings...)
	for _, p := range []**Artifact{&cp.Video, &cp.Draft, &cp.NoVoice, &cp.Transcript} {
		if *p != nil {
			a := **p
			*p = &a
		}
	}
	return cp
}
