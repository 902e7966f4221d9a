package ffgraph

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// Builder constructs ffmpeg filter expressions for a fixed output frame.
// All methods are pure functions with no side effects.
type Builder struct {
	Width  int
	Height int
}

// CaptionStyle controls burned-in caption rendering. The zero value uses defaults.
type CaptionStyle struct {
	FontFile  string
	FontSize  int
	FontColor string
	// BottomMargin is the gap in pixels between the caption baseline box and the frame bottom.
	BottomMargin int
}

// OverlayParams describes a picture-in-picture overlay.
type OverlayParams struct {
	Position  string
	Scale     float64
	ChromaKey bool
}

const (
	DefaultPlaceholderColor = "#1a1a2e"
	defaultFontSize         = 60
	defaultFontColor        = "white"
	defaultBottomMargin     = 100
	defaultOverlayScale     = 0.3
	overlayMargin           = 20
)

// KenBurns returns the video filter that frames a still image with the given effect.
// Unknown effects fall back to a letterboxed fit.
func (b Builder) KenBurns(effect models.Effect) string {
	w, h := b.Width, b.Height
	switch effect {
	case models.EffectZoomIn:
		return fmt.Sprintf("scale=iw*1.5:ih*1.5,crop=%d:%d:(iw-%d)/2:(ih-%d)/2", w, h, w, h)
	case models.EffectPanLeft:
		return fmt.Sprintf("scale=iw*1.3:ih*1.3,crop=%d:%d:0:(ih-%d)/2", w, h, h)
	case models.EffectPanRight:
		return fmt.Sprintf("scale=iw*1.3:ih*1.3,crop=%d:%d:(iw-%d):(ih-%d)/2", w, h, w, h)
	default:
		return b.fit()
	}
}

// fit scales the input inside the frame and pads the remainder black.
func (b Builder) fit() string {
	w, h := b.Width, b.Height
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", w, h, w, h)
}

// ColorSource returns a lavfi source producing a solid colour clip.
func (b Builder) ColorSource(color string, duration float64, fps int) string {
	if color == "" {
		color = DefaultPlaceholderColor
	}
	return fmt.Sprintf("color=c=%s:size=%dx%d:duration=%s:rate=%d", color, b.Width, b.Height, FormatSeconds(duration), fps)
}

// Captions returns a comma-joined drawtext chain, one filter per caption, or "" when
// there are no captions.
func (b Builder) Captions(captions []models.Caption, style CaptionStyle) string {
	if len(captions) == 0 {
		return ""
	}
	filters := make([]string, 0, len(captions))
	for _, c := range captions {
		filters = append(filters, b.Drawtext(c, style))
	}
	return strings.Join(filters, ",")
}

// Drawtext returns one drawtext filter showing c.Text between its start and end.
func (b Builder) Drawtext(c models.Caption, style CaptionStyle) string {
	size := style.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	color := style.FontColor
	if color == "" {
		color = defaultFontColor
	}
	margin := style.BottomMargin
	if margin <= 0 {
		margin = defaultBottomMargin
	}

	parts := []string{"drawtext=text='" + EscapeText(c.Text) + "'"}
	if style.FontFile != "" {
		parts = append(parts, "fontfile='"+EscapeText(style.FontFile)+"'")
	}
	parts = append(parts,
		fmt.Sprintf("fontsize=%d", size),
		"fontcolor="+color,
		"x=(w-text_w)/2",
		fmt.Sprintf("y=h-th-%d", margin),
		fmt.Sprintf("enable='between(t,%s,%s)'", FormatSeconds(c.Start), FormatSeconds(c.End())),
	)
	return strings.Join(parts, ":")
}

// OverlayPosition maps a named position to overlay x/y expressions. Unknown names
// resolve to bottom-right.
func OverlayPosition(position string) (x, y string) {
	m := strconv.Itoa(overlayMargin)
	switch position {
	case models.PositionBottomLeft:
		return m, "main_h-overlay_h-" + m
	case models.PositionTopRight:
		return "main_w-overlay_w-" + m, m
	case models.PositionTopLeft:
		return m, m
	case models.PositionCenterBottom:
		return "(main_w-overlay_w)/2", "main_h-overlay_h-" + m
	default:
		return "main_w-overlay_w-" + m, "main_h-overlay_h-" + m
	}
}

// Overlay returns a filter_complex that scales input 1, optionally keys out green, and
// places it over input 0. The composed stream is labelled [outv].
func (b Builder) Overlay(p OverlayParams) string {
	scale := p.Scale
	if scale <= 0 || scale > 1 {
		scale = defaultOverlayScale
	}
	s := FormatSeconds(scale)

	overlay := fmt.Sprintf("[1:v]scale=iw*%s:ih*%s", s, s)
	if p.ChromaKey {
		overlay += ",chromakey=color=0x00ff00:similarity=0.3:blend=0.1"
	}
	x, y := OverlayPosition(p.Position)
	return fmt.Sprintf("%s[overlay];[0:v][overlay]overlay=%s:%s[outv]", overlay, x, y)
}

// PadAudio returns a filter_complex that extends input 1's audio with silence, labelled
// [outa]. Paired with -shortest it pads short narration and trims long narration to the
// video length.
func (b Builder) PadAudio() string {
	return "[1:a]apad[outa]"
}

// FormatSeconds renders seconds compactly with at most three decimals.
func FormatSeconds(f float64) string {
	return strconv.FormatFloat(math.Round(f*1000)/1000, 'f', -1, 64)
}

// EscapeText escapes characters that are significant inside a quoted drawtext value.
func EscapeText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `'\''`,
		`:`, `\:`,
		`%`, `\%`,
		"\n", " ",
	)
	return r.Replace(s)
}
