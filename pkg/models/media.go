package models

// ImageInfo describes one image search hit.
type ImageInfo struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Source       string `json:"source"`
	Author       string `json:"author,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

// SearchRequest parameterises an image search. PerKeyword bounds the hits requested per
// keyword; Max bounds the total returned.
type SearchRequest struct {
	Keywords   []string
	Topic      string
	PerKeyword int
	Max        int
}

// Effect is a Ken Burns camera move applied to a still image.
type Effect string

const (
	EffectZoomIn   Effect = "zoom_in"
	EffectZoomOut  Effect = "zoom_out"
	EffectPanLeft  Effect = "pan_left"
	EffectPanRight Effect = "pan_right"
)

// Effects is the fixed round-robin order used when planning slideshow segments.
var Effects = []Effect{EffectZoomIn, EffectZoomOut, EffectPanLeft, EffectPanRight}

// Segment is one still image shown for Duration seconds with an effect.
type Segment struct {
	Image    string
	Effect   Effect
	Duration float64
}

type SlideshowRequest struct {
	Segments      []Segment
	TotalDuration float64
	Output        string
}

type MuxRequest struct {
	Video    string
	Audio    string
	Captions []Caption
	Output   string
}

type CaptionRequest struct {
	Video    string
	Captions []Caption
	Output   string
}

type PlaceholderRequest struct {
	Duration float64
	Color    string
	Output   string
}

type ReplaceAudioRequest struct {
	Video  string
	Audio  string
	Output string
}

const (
	PositionBottomRight  = "bottom-right"
	PositionBottomLeft   = "bottom-left"
	PositionTopRight     = "top-right"
	PositionTopLeft      = "top-left"
	PositionCenterBottom = "center-bottom"
)

// RegenerateRequest rebuilds a video from edited inputs. Audio and Captions are optional;
// Duration is the slideshow length in seconds.
type RegenerateRequest struct {
	Images   []string
	Audio    string
	Captions []Caption
	Duration float64
}

type PictureInPictureRequest struct {
	Background string
	Overlay    string
	Position   string
	Scale      float64
	ChromaKey  bool
	Output     string
}
