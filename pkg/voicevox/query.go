package voicevox

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Mora is one phonetic timing unit: an optional consonant followed by a
// vowel, each with a duration in seconds, plus a pitch in Hz (0 means
// unvoiced). Consonant and ConsonantLength are jointly present or jointly
// absent.
type Mora struct {
	// Text is the display form of the mora (kana).
	Text string `json:"text"`

	Consonant       *string  `json:"consonant"`
	ConsonantLength *float64 `json:"consonant_length"`
	Vowel           string   `json:"vowel"`
	VowelLength     float64  `json:"vowel_length"`

	// Pitch is the fundamental frequency in Hz; 0 for unvoiced moras.
	Pitch float64 `json:"pitch"`
}

// AccentPhrase is a run of moras sharing one pitch-accent pattern. Mora
// order is the temporal order of speech and is preserved exactly through
// every transformation.
type AccentPhrase struct {
	Moras []Mora `json:"moras"`

	// Accent is the 1-based index of the accented mora; 0 means no
	// perceptual accent.
	Accent int `json:"accent"`

	// PauseMora is the trailing pause, when the phrase ends at punctuation.
	PauseMora *Mora `json:"pause_mora"`

	// IsInterrogative shapes the final pitch contour for questions.
	IsInterrogative bool `json:"is_interrogative"`
}

// AudioQuery is the full synthesis contract between text analysis and
// waveform rendering. It round-trips losslessly through JSON using the
// engine's exact field names: nested objects use snake_case, top-level
// scalars use camelCase. The casing mismatch is part of the established
// wire contract and must not be normalised.
type AudioQuery struct {
	AccentPhrases []AccentPhrase `json:"accent_phrases"`

	SpeedScale      float64 `json:"speedScale"`
	PitchScale      float64 `json:"pitchScale"`
	IntonationScale float64 `json:"intonationScale"`
	VolumeScale     float64 `json:"volumeScale"`

	// PrePhonemeLength and PostPhonemeLength are silence paddings in
	// seconds before and after the utterance.
	PrePhonemeLength  float64 `json:"prePhonemeLength"`
	PostPhonemeLength float64 `json:"postPhonemeLength"`

	OutputSamplingRate int  `json:"outputSamplingRate"`
	OutputStereo       bool `json:"outputStereo"`

	// Kana is a diagnostic reading annotation; it is not consumed by
	// synthesis.
	Kana *string `json:"kana"`
}

// Default scalar controls for a freshly assembled query.
const (
	DefaultSpeedScale        = 1.0
	DefaultPitchScale        = 0.0
	DefaultIntonationScale   = 1.0
	DefaultVolumeScale       = 1.0
	DefaultPrePhonemeLength  = 0.1
	DefaultPostPhonemeLength = 0.1
	DefaultSamplingRate      = 24000
)

// NewAudioQuery assembles a query around the given accent phrases with the
// standard scalar defaults. Pure data construction; it cannot fail.
func NewAudioQuery(phrases []AccentPhrase) *AudioQuery {
	return &AudioQuery{
		AccentPhrases:      phrases,
		SpeedScale:         DefaultSpeedScale,
		PitchScale:         DefaultPitchScale,
		IntonationScale:    DefaultIntonationScale,
		VolumeScale:        DefaultVolumeScale,
		PrePhonemeLength:   DefaultPrePhonemeLength,
		PostPhonemeLength:  DefaultPostPhonemeLength,
		OutputSamplingRate: DefaultSamplingRate,
	}
}

// JSON encodes the query in the engine's wire shape. Encoding failures are
// internal faults, not engine errors.
func (q *AudioQuery) JSON() ([]byte, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return nil, &InternalError{Op: "encode audio query", Err: err}
	}
	return data, nil
}

// ParseAudioQuery decodes and validates an audio query from its JSON form.
// Malformed documents and missing required fields are data-contract
// violations, reported as a decode-stage *SynthesisError and never retried.
func ParseAudioQuery(data []byte) (*AudioQuery, error) {
	// Probe for field presence: every key except the nullable kana is
	// required, and a zero value is not a substitute for an absent key.
	var probe struct {
		AccentPhrases      *json.RawMessage `json:"accent_phrases"`
		SpeedScale         *json.RawMessage `json:"speedScale"`
		PitchScale         *json.RawMessage `json:"pitchScale"`
		IntonationScale    *json.RawMessage `json:"intonationScale"`
		VolumeScale        *json.RawMessage `json:"volumeScale"`
		PrePhonemeLength   *json.RawMessage `json:"prePhonemeLength"`
		PostPhonemeLength  *json.RawMessage `json:"postPhonemeLength"`
		OutputSamplingRate *json.RawMessage `json:"outputSamplingRate"`
		OutputStereo       *json.RawMessage `json:"outputStereo"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&probe); err != nil {
		return nil, &SynthesisError{Stage: "decode", Reason: err.Error()}
	}
	for _, f := range []struct {
		name string
		raw  *json.RawMessage
	}{
		{"accent_phrases", probe.AccentPhrases},
		{"speedScale", probe.SpeedScale},
		{"pitchScale", probe.PitchScale},
		{"intonationScale", probe.IntonationScale},
		{"volumeScale", probe.VolumeScale},
		{"prePhonemeLength", probe.PrePhonemeLength},
		{"postPhonemeLength", probe.PostPhonemeLength},
		{"outputSamplingRate", probe.OutputSamplingRate},
		{"outputStereo", probe.OutputStereo},
	} {
		if f.raw == nil {
			return nil, &SynthesisError{Stage: "decode", Reason: "missing " + f.name}
		}
	}

	var q AudioQuery
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, &SynthesisError{Stage: "decode", Reason: err.Error()}
	}
	if err := validateQuery(&q); err != nil {
		return nil, &SynthesisError{Stage: "decode", Reason: err.Error()}
	}
	return &q, nil
}

func validateQuery(q *AudioQuery) error {
	for i, ap := range q.AccentPhrases {
		if ap.Accent < 0 || ap.Accent > len(ap.Moras) {
			return fmt.Errorf("accent_phrases[%d]: accent %d out of range for %d moras", i, ap.Accent, len(ap.Moras))
		}
		for j, m := range ap.Moras {
			if err := validateMora(m); err != nil {
				return fmt.Errorf("accent_phrases[%d].moras[%d]: %w", i, j, err)
			}
		}
		if ap.PauseMora != nil {
			if err := validateMora(*ap.PauseMora); err != nil {
				return fmt.Errorf("accent_phrases[%d].pause_mora: %w", i, err)
			}
		}
	}
	if q.OutputSamplingRate < 0 {
		return fmt.Errorf("outputSamplingRate %d is negative", q.OutputSamplingRate)
	}
	return nil
}

func validateMora(m Mora) error {
	if m.Vowel == "" {
		return fmt.Errorf("missing vowel")
	}
	if (m.Consonant == nil) != (m.ConsonantLength == nil) {
		return fmt.Errorf("consonant and consonant_length must be jointly present or absent")
	}
	return nil
}

// parseAccentPhrases decodes the engine's bare accent-phrase array.
func parseAccentPhrases(data []byte) ([]AccentPhrase, error) {
	var phrases []AccentPhrase
	if err := json.Unmarshal(data, &phrases); err != nil {
		return nil, &SynthesisError{Stage: "decode", Reason: err.Error()}
	}
	return phrases, nil
}
