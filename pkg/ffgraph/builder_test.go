package ffgraph

import (
	"testing"

	"github.com/kiranshivaraju/shortforge/pkg/models"
)

func TestKenBurns(t *testing.T) {
	b := Builder{Width: 1080, Height: 1920}

	tests := []struct {
		name     string
		effect   models.Effect
		expected string
	}{
		{
			name:     "zoom in crops the centre of an enlarged frame",
			effect:   models.EffectZoomIn,
			expected: "scale=iw*1.5:ih*1.5,crop=1080:1920:(iw-1080)/2:(ih-1920)/2",
		},
		{
			name:     "zoom out letterboxes",
			effect:   models.EffectZoomOut,
			expected: "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2:color=black",
		},
		{
			name:     "pan left anchors the left edge",
			effect:   models.EffectPanLeft,
			expected: "scale=iw*1.3:ih*1.3,crop=1080:1920:0:(ih-1920)/2",
		},
		{
			name:     "pan right anchors the right edge",
			effect:   models.EffectPanRight,
			expected: "scale=iw*1.3:ih*1.3,crop=1080:1920:(iw-1080):(ih-1920)/2",
		},
		{
			name:     "unknown effect fits the frame",
			effect:   models.Effect("spin"),
			expected: "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2:color=black",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.KenBurns(tt.effect)
			if got != tt.expected {
				t.Errorf("got:\n  %s\nwant:\n  %s", got, tt.expected)
			}
		})
	}
}

func TestColorSource(t *testing.T) {
	b := Builder{Width: 720, Height: 1280}

	got := b.ColorSource("", 30, 30)
	want := "color=c=#1a1a2e:size=720x1280:duration=30:rate=30"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = b.ColorSource("red", 12.5, 24)
	want = "color=c=red:size=720x1280:duration=12.5:rate=24"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDrawtext(t *testing.T) {
	b := Builder{Width: 1080, Height: 1920}

	got := b.Drawtext(models.Caption{Text: "it's 5:00", Start: 1.5, Duration: 2}, CaptionStyle{})
	want := `drawtext=text='it'\''s 5\:00':fontsize=60:fontcolor=white:x=(w-text_w)/2:y=h-th-100:enable='between(t,1.5,3.5)'`
	if got != want {
		t.Errorf("got:\n  %s\nwant:\n  %s", got, want)
	}
}

func TestDrawtext_CustomStyle(t *testing.T) {
	b := Builder{Width: 1080, Height: 1920}

	got := b.Drawtext(models.Caption{Text: "hi", Start: 0, Duration: 1},
		CaptionStyle{FontFile: "/fonts/Sans.ttf", FontSize: 48, FontColor: "yellow", BottomMargin: 200})
	want := `drawtext=text='hi':fontfile='/fonts/Sans.ttf':fontsize=48:fontcolor=yellow:x=(w-text_w)/2:y=h-th-200:enable='between(t,0,1)'`
	if got != want {
		t.Errorf("got:\n  %s\nwant:\n  %s", got, want)
	}
}

func TestCaptions(t *testing.T) {
	b := Builder{Width: 1080, Height: 1920}

	if got := b.Captions(nil, CaptionStyle{}); got != "" {
		t.Errorf("expected empty chain, got %q", got)
	}

	got := b.Captions([]models.Caption{
		{Text: "a", Start: 0, Duration: 1},
		{Text: "b", Start: 1, Duration: 1},
	}, CaptionStyle{})
	want := `drawtext=text='a':fontsize=60:fontcolor=white:x=(w-text_w)/2:y=h-th-100:enable='between(t,0,1)',` +
		`drawtext=text='b':fontsize=60:fontcolor=white:x=(w-text_w)/2:y=h-th-100:enable='between(t,1,2)'`
	if got != want {
		t.Errorf("got:\n  %s\nwant:\n  %s", got, want)
	}
}

func TestOverlayPosition(t *testing.T) {
	tests := []struct {
		position string
		x, y     string
	}{
		{models.PositionBottomRight, "main_w-overlay_w-20", "main_h-overlay_h-20"},
		{models.PositionBottomLeft, "20", "main_h-overlay_h-20"},
		{models.PositionTopRight, "main_w-overlay_w-20", "20"},
		{models.PositionTopLeft, "20", "20"},
		{models.PositionCenterBottom, "(main_w-overlay_w)/2", "main_h-overlay_h-20"},
		{"nowhere", "main_w-overlay_w-20", "main_h-overlay_h-20"},
	}
	for _, tt := range tests {
		t.Run(tt.position, func(t *testing.T) {
			x, y := OverlayPosition(tt.position)
			if x != tt.x || y != tt.y {
				t.Errorf("got (%s, %s), want (%s, %s)", x, y, tt.x, tt.y)
			}
		})
	}
}

func TestOverlay(t *testing.T) {
	b := Builder{}

	got := b.Overlay(OverlayParams{Position: models.PositionTopLeft, Scale: 0.25})
	want := "[1:v]scale=iw*0.25:ih*0.25[overlay];[0:v][overlay]overlay=20:20[outv]"
	if got != want {
		t.Errorf("got:\n  %s\nwant:\n  %s", got, want)
	}

	got = b.Overlay(OverlayParams{ChromaKey: true})
	want = "[1:v]scale=iw*0.3:ih*0.3,chromakey=color=0x00ff00:similarity=0.3:blend=0.1[overlay];" +
		"[0:v][overlay]overlay=main_w-overlay_w-20:main_h-overlay_h-20[outv]"
	if got != want {
		t.Errorf("got:\n  %s\nwant:\n  %s", got, want)
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := map[float64]string{
		30:        "30",
		7.5:       "7.5",
		3.3333333: "3.333",
		0:         "0",
	}
	for in, want := range tests {
		if got := FormatSeconds(in); got != want {
			t.Errorf("FormatSeconds(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestEscapeText(t *testing.T) {
	got := EscapeText("50% off: don't\nmiss")
	want := `50\% off\: don'\''t miss`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
