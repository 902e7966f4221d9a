// Package script normalises generated narration scripts: it composes the voiced full
// text, cleans keyword and hashtag lists, repairs the caption timeline and renders the
// plain-text transcript.
package script

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/shortforge/pkg/models"
)

var (
	reSentence   = regexp.MustCompile(`[^.!?。！？\n]+[.!?。！？]*`)
	reWhitespace = regexp.MustCompile(`\s+`)
	reHashtagBad = regexp.MustCompile(`[\s#]+`)
)

const (
	// midHookPosition is the fraction of the narration after which the mid-hook is spoken.
	midHookPosition = 0.6

	maxCaptionWords = 8
	maxCaptionRunes = 40
	maxCaptionBytes = 300
	maxKeywords     = 10
)

// Normalize returns a cleaned copy of s sized for a video of duration seconds.
// FullText is recomposed from the parts unless the body is empty and a FullText exists;
// a hook or CTA alone still becomes the narration.
func Normalize(s models.Script, topic string, duration int) models.Script {
	out := s.Clone()
	out.Hook = collapse(s.Hook)
	out.Body = collapse(s.Body)
	out.MidHook = collapse(s.MidHook)
	out.CTA = collapse(s.CTA)

	supplied := collapse(s.FullText)
	if full := ComposeFullText(out.Hook, out.Body, out.MidHook, out.CTA); full != "" && (out.Body != "" || supplied == "") {
		out.FullText = full
	} else {
		out.FullText = supplied
	}

	out.Keywords = NormalizeKeywords(s.Keywords, topic)
	out.Hashtags = NormalizeHashtags(s.Hashtags)
	out.Captions = NormalizeCaptions(s.Captions, out.FullText, float64(duration))
	return out
}

// ComposeFullText joins hook and body, inserts the mid-hook at 60% of the text and appends
// the call-to-action.
func ComposeFullText(hook, body, midHook, cta string) string {
	full := strings.TrimSpace(strings.TrimSpace(hook) + " " + strings.TrimSpace(body))
	if midHook = strings.TrimSpace(midHook); midHook != "" {
		runes := []rune(full)
		mid := int(float64(len(runes)) * midHookPosition)
		full = string(runes[:mid]) + " " + midHook + " " + string(runes[mid:])
	}
	if cta = strings.TrimSpace(cta); cta != "" {
		full += " " + cta
	}
	return collapse(full)
}

// NormalizeKeywords trims, lowercases and deduplicates keywords in order. An empty result
// falls back to the topic.
func NormalizeKeywords(keywords []string, topic string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(collapse(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
		if len(out) == maxKeywords {
			break
		}
	}
	if len(out) == 0 {
		if t := strings.ToLower(collapse(topic)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeHashtags strips whitespace, ensures a single leading '#' and deduplicates
// case-insensitively. Never returns nil.
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = reHashtagBad.ReplaceAllString(tag, "")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, "#"+tag)
	}
	return out
}

// NormalizeCaptions orders captions by start time, clamps them to [0, duration), trims
// overlaps and drops empty entries. When nothing usable remains the captions are
// synthesised from fullText, spread evenly over the whole duration.
func NormalizeCaptions(captions []models.Caption, fullText string, duration float64) []models.Caption {
	if duration <= 0 {
		return []models.Caption{}
	}

	sorted := make([]models.Caption, 0, len(captions))
	for _, c := range captions {
		c.Text = truncateString(collapse(c.Text), maxCaptionBytes)
		if c.Text == "" || c.Duration <= 0 || math.IsNaN(c.Start) || math.IsNaN(c.Duration) {
			continue
		}
		sorted = append(sorted, c)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := make([]models.Caption, 0, len(sorted))
	prevEnd := 0.0
	for _, c := range sorted {
		start := math.Max(c.Start, prevEnd)
		end := math.Min(c.End(), duration)
		if start >= duration || end <= start {
			continue
		}
		out = append(out, models.Caption{Text: c.Text, Start: round3(start), Duration: round3(end - start)})
		prevEnd = end
	}

	if len(out) == 0 {
		return SynthesizeCaptions(fullText, duration)
	}
	return out
}

// SynthesizeCaptions splits text into short phrases and spreads them evenly across
// [0, duration).
func SynthesizeCaptions(text string, duration float64) []models.Caption {
	chunks := chunkText(text)
	if len(chunks) == 0 || duration <= 0 {
		return []models.Caption{}
	}

	step := duration / float64(len(chunks))
	out := make([]models.Caption, len(chunks))
	for i, chunk := range chunks {
		start := step * float64(i)
		end := step * float64(i+1)
		if i == len(chunks)-1 {
			end = duration
		}
		out[i] = models.Caption{Text: chunk, Start: round3(start), Duration: round3(end - start)}
	}
	return out
}

// FormatTranscript renders one "[MM:SS-MM:SS] text" line per caption.
func FormatTranscript(captions []models.Caption) string {
	var b strings.Builder
	for _, c := range captions {
		fmt.Fprintf(&b, "[%s-%s] %s\n", clock(c.Start), clock(c.End()), c.Text)
	}
	return b.String()
}

func clock(seconds float64) string {
	total := int(math.Floor(seconds))
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func chunkText(text string) []string {
	var chunks []string
	for _, sentence := range reSentence.FindAllString(text, -1) {
		sentence = collapse(sentence)
		if sentence == "" {
			continue
		}
		chunks = append(chunks, splitLong(sentence)...)
	}
	return chunks
}

// splitLong breaks a sentence into caption-sized pieces, by words when the text has
// spaces and by runes otherwise.
func splitLong(sentence string) []string {
	if utf8.RuneCountInString(sentence) <= maxCaptionRunes {
		return []string{sentence}
	}

	words := strings.Fields(sentence)
	if len(words) > 1 {
		var out []string
		for i := 0; i < len(words); i += maxCaptionWords {
			end := i + maxCaptionWords
			if end > len(words) {
				end = len(words)
			}
			out = append(out, strings.Join(words[i:end], " "))
		}
		return out
	}

	runes := []rune(sentence)
	var out []string
	for i := 0; i < len(runes); i += maxCaptionRunes {
		end := i + maxCaptionRunes
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

func collapse(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
