// Package transcription defines the backend interface, request and result
// types, error mapping and output sanitization shared by speech-to-text
// backends.
//
// Backends implement provider.RequestResponse[Request, *Outcome] and are
// selected by name through a provider registry:
//
//	reg := transcription.NewRegistry()
//	reg.RegisterFactory(glm.ProviderName, glm.Factory())
//	backend, err := reg.Create(glm.ProviderName, cfg)
//	out, err := backend.Execute(ctx, transcription.Request{Audio: wavBytes})
package transcription

import "github.com/kbukum/asrkit/media"

// Request is one transcription call for a single chunk of audio.
type Request struct {
	// Audio is the encoded audio payload, normally a mono 16 kHz WAV.
	Audio []byte `json:"-"`
	// FileName is the upload name. Defaults to "audio.<format>".
	FileName string `json:"file_name,omitempty"`
	// Format is the audio format name (wav, mp3, ...). Defaults to wav.
	Format string `json:"format,omitempty"`
	// Context is prior transcript text used to bias the model toward continuity.
	Context string `json:"context,omitempty"`
	// Language is the expected language of the audio (e.g. "zh", "en").
	Language string `json:"language,omitempty"`
	// Model overrides the backend's configured model.
	Model string `json:"model,omitempty"`
}

// Resolve fills an empty Model and Language from the backend defaults and
// an empty Format and FileName from the media defaults.
func (r Request) Resolve(model, language string) Request {
	if r.Model == "" {
		r.Model = model
	}
	if r.Language == "" {
		r.Language = language
	}
	if r.Format == "" {
		r.Format = media.DefaultFormat
	}
	if r.FileName == "" {
		r.FileName = "audio." + r.Format
	}
	return r
}

// Outcome is the normalized result of one transcription call.
type Outcome struct {
	// Text is the full transcription text.
	Text string `json:"text"`
	// Segments are time-aligned pieces relative to the start of the audio
	// that was sent. May be empty when the backend returned flat text.
	Segments []Segment `json:"segments,omitempty"`
	// Language is the detected or requested language, if reported.
	Language string `json:"language,omitempty"`
}

// Segment represents a time-aligned portion of a transcript.
type Segment struct {
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
	// Text is the transcribed text for this segment.
	Text string `json:"text"`
	// Speaker is the identified speaker label, if available.
	Speaker string `json:"speaker,omitempty"`
}

// Shift returns a copy of segs moved later by offset seconds.
func Shift(segs []Segment, offset float64) []Segment {
	if len(segs) == 0 {
		return nil
	}
	out := make([]Segment, len(segs))
	for i, s := range segs {
		s.Start += offset
		s.End += offset
		out[i] = s
	}
	return out
}
