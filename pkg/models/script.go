package models

// Script is the narration produced by a ScriptGenerator. FullText is what gets voiced:
// hook, body, mid-hook and call-to-action joined into one narration.
type Script struct {
	Hook     string    `json:"hook"`
	Body     string    `json:"body"`
	MidHook  string    `json:"mid_hook,omitempty"`
	CTA      string    `json:"cta"`
	FullText string    `json:"full_text"`
	Captions []Caption `json:"captions"`
	Hashtags []string  `json:"hashtags"`
	Keywords []string  `json:"keywords"`
}

// Caption is one timed subtitle. Start and Duration are in seconds.
type Caption struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

func (c Caption) End() float64 { return c.Start + c.Duration }

// Clone returns a deep copy of the script.
func (s Script) Clone() Script {
	cp := s
	cp.Captions = append([]Caption(nil), s.Captions...)
	cp.Hashtags = append([]string(nil), s.Hashtags...)
	cp.Keywords = append([]string(nil), s.Keywords...)
	return cp
}
