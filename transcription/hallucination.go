package transcription

import (
	"regexp"
	"strings"
	"unicode"
)

// hallucinationPatterns match stock text that speech models emit for
// near-silent or noise-only audio. They are applied to the normalized text
// (see normalizeCandidate), so each pattern describes the whole output.
var hallucinationPatterns = []*regexp.Regexp{
	// English
	regexp.MustCompile(`(?i)^(no|without) (speech|audio|voice|sound)( (was |is )?(detected|found|present|recognized|available))?$`),
	regexp.MustCompile(`(?i)^(there is|there's|there was) no (speech|audio|voice|sound)( in (this|the) (audio|recording|clip))?$`),
	regexp.MustCompile(`(?i)^(silence|silent|inaudible|blank[ _]audio|no audio|music|music playing|background (music|noise)|noise)$`),
	regexp.MustCompile(`(?i)^(the )?(audio|recording|clip) (is|was|appears to be|seems to be) (silent|empty|blank|inaudible|unclear)$`),
	regexp.MustCompile(`(?i)^thanks?( you)?( so much)? for (watching|listening)$`),
	regexp.MustCompile(`(?i)^(please )?(like and )?subscribe( to (my|the|our) channel)?$`),
	regexp.MustCompile(`(?i)^subtitles by `),

	// Chinese
	regexp.MustCompile(`^(没有|无|未)(检测到|识别到|听到)?(任何)?(有效)?(语音|说话声|人声|声音|内容)(内容)?$`),
	regexp.MustCompile(`^(静音|沉默|无声|空白|音乐|纯音乐|背景音乐|噪音)$`),
	regexp.MustCompile(`^(该|这段)?(音频|录音)中?(没有|无|不含)(任何)?(语音|声音|内容|人声)$`),
	regexp.MustCompile(`^(谢谢|感谢)(大家|各位)?的?(观看|收看|收听)$`),
	regexp.MustCompile(`^请不吝点赞`),
	regexp.MustCompile(`^字幕(由|提供|by)`),
}

// IsHallucination reports whether text is boilerplate describing absent
// audio rather than a transcription of it. Empty or whitespace-only text is
// never flagged.
func IsHallucination(text string) bool {
	candidate := normalizeCandidate(text)
	if candidate == "" {
		return false
	}
	for _, re := range hallucinationPatterns {
		if re.MatchString(candidate) {
			return true
		}
	}
	return false
}

// Sanitize returns "" for hallucinated text and text unchanged otherwise.
func Sanitize(text string) string {
	if IsHallucination(text) {
		return ""
	}
	return text
}

// normalizeCandidate trims surrounding whitespace, punctuation and brackets
// and collapses inner whitespace, so "[BLANK_AUDIO]" and "（静音）。" reduce
// to their bare phrase.
func normalizeCandidate(text string) string {
	trimmed := strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	return strings.Join(strings.Fields(trimmed), " ")
}
