package ffmpeg

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultPresetName is used when no preset is named.
const DefaultPresetName = "default"

// Preset holds the encoder settings applied to every re-encoding command.
type Preset struct {
	VideoCodec   string   `yaml:"video_codec"`
	Speed        string   `yaml:"speed"`
	CRF          int      `yaml:"crf"`
	PixelFormat  string   `yaml:"pixel_format"`
	AudioCodec   string   `yaml:"audio_codec"`
	AudioBitrate string   `yaml:"audio_bitrate"`
	ExtraArgs    []string `yaml:"extra_args"`
}

type presetFile struct {
	Presets map[string]Preset `yaml:"presets"`
}

// DefaultPreset matches libx264 medium at CRF 23 with yuv420p output and AAC audio.
func DefaultPreset() Preset {
	return Preset{
		VideoCodec:  "libx264",
		Speed:       "medium",
		CRF:         23,
		PixelFormat: "yuv420p",
		AudioCodec:  "aac",
	}
}

// LoadPresetFile parses a YAML file of named presets. Fields left out of a preset take
// the DefaultPreset value.
func LoadPresetFile(path string) (map[string]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}

	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse preset file %s: %w", path, err)
	}
	if len(f.Presets) == 0 {
		return nil, fmt.Errorf("preset file %s defines no presets", path)
	}

	presets := make(map[string]Preset, len(f.Presets))
	for name, p := range f.Presets {
		presets[name] = p.withDefaults()
	}
	return presets, nil
}

// SelectPreset resolves name from the preset file at path. An empty path only knows the
// default preset.
func SelectPreset(path, name string) (Preset, error) {
	if name == "" {
		name = DefaultPresetName
	}
	if path == "" {
		if name != DefaultPresetName {
			return Preset{}, fmt.Errorf("unknown media preset %q (no preset file configured)", name)
		}
		return DefaultPreset(), nil
	}

	presets, err := LoadPresetFile(path)
	if err != nil {
		return Preset{}, err
	}
	p, ok := presets[name]
	if !ok {
		if name == DefaultPresetName {
			return DefaultPreset(), nil
		}
		return Preset{}, fmt.Errorf("unknown media preset %q in %s", name, path)
	}
	return p, nil
}

func (p Preset) withDefaults() Preset {
	d := DefaultPreset()
	if p.VideoCodec == "" {
		p.VideoCodec = d.VideoCodec
	}
	if p.Speed == "" {
		p.Speed = d.Speed
	}
	if p.CRF <= 0 {
		p.CRF = d.CRF
	}
	if p.PixelFormat == "" {
		p.PixelFormat = d.PixelFormat
	}
	if p.AudioCodec == "" {
		p.AudioCodec = d.AudioCodec
	}
	return p
}

func (p Preset) videoArgs() []string {
	args := []string{
		"-c:v", p.VideoCodec,
		"-preset", p.Speed,
		"-crf", strconv.Itoa(p.CRF),
		"-pix_fmt", p.PixelFormat,
	}
	return append(args, p.ExtraArgs...)
}

func (p Preset) audioArgs() []string {
	args := []string{"-c:a", p.AudioCodec}
	if p.AudioBitrate != "" {
		args = append(args, "-b:a", p.AudioBitrate)
	}
	return args
}
