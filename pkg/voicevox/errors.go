package voicevox

import (
	"fmt"

	"github.com/tattn/voicevox-client/pkg/voicevox/core"
)

// maxTextSnippet bounds how much of the offending input text an error
// carries, so logs stay readable for long inputs.
const maxTextSnippet = 32

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTextSnippet {
		return text
	}
	return string(runes[:maxTextSnippet]) + "…"
}

// InitializationError reports a failure to bring up the native engine or
// its inference runtime.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("voicevox: engine initialisation failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// DictionaryLoadError reports that the morphological analyzer could not be
// set up from the configured dictionary directory.
type DictionaryLoadError struct {
	DictDir string
	Err     error
}

func (e *DictionaryLoadError) Error() string {
	return fmt.Sprintf("voicevox: load dictionary %q: %v", e.DictDir, e.Err)
}

func (e *DictionaryLoadError) Unwrap() error { return e.Err }

// SynthesizerCreationError reports that the native synthesizer could not be
// constructed after the runtime and analyzer came up.
type SynthesizerCreationError struct {
	Err error
}

func (e *SynthesizerCreationError) Error() string {
	return fmt.Sprintf("voicevox: create synthesizer: %v", e.Err)
}

func (e *SynthesizerCreationError) Unwrap() error { return e.Err }

// VoiceModelLoadError reports a failure to open, parse, register, or unload
// a voice model file.
type VoiceModelLoadError struct {
	// Path is the model file path, when the failing operation had one.
	Path string

	// Op is the failing operation: "open", "register", or "unload".
	Op string

	// Status is the engine status code.
	Status core.Status
}

func (e *VoiceModelLoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("voicevox: %s voice model %q: %s", e.Op, e.Path, e.Status)
	}
	return fmt.Sprintf("voicevox: %s voice model: %s", e.Op, e.Status)
}

// TextAnalysisError reports that the morphological analyzer rejected an
// input. Text is truncated to a bounded snippet.
type TextAnalysisError struct {
	Text   string
	Status core.Status
}

func (e *TextAnalysisError) Error() string {
	return fmt.Sprintf("voicevox: analyze %q: %s", snippet(e.Text), e.Status)
}

// SynthesisError reports a pipeline failure after analysis: mora
// refinement, query encoding/decoding, or waveform rendering.
type SynthesisError struct {
	// Stage names the failing pipeline stage: "mora_refinement", "encode",
	// "decode", or "render".
	Stage string

	// StyleID is the requested style, when the stage had one.
	StyleID StyleID

	// Status is the engine status code; zero for wrapper-side failures.
	Status core.Status

	// Reason carries stage-specific detail (e.g. the decode error).
	Reason string
}

func (e *SynthesisError) Error() string {
	msg := fmt.Sprintf("voicevox: synthesis failed at %s (style %d)", e.Stage, e.StyleID)
	if e.Status != core.StatusOK {
		msg += ": " + e.Status.String()
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// InvalidStyleIDError reports a style id not exposed by any loaded voice
// model. The request is never silently redirected to another style.
type InvalidStyleIDError struct {
	StyleID StyleID

	// Known enumerates the style ids valid at the time of the call.
	Known []StyleID
}

func (e *InvalidStyleIDError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("voicevox: style %d is not provided by any loaded voice model (none loaded)", e.StyleID)
	}
	return fmt.Sprintf("voicevox: style %d is not provided by any loaded voice model (known: %v)", e.StyleID, e.Known)
}

// UserDictError reports a failed user-dictionary operation, tagged with the
// verb that failed.
type UserDictError struct {
	// Op is the failing verb: "add", "update", "remove", "load", "save",
	// "import", or "use".
	Op  string
	Err error
}

func (e *UserDictError) Error() string {
	return fmt.Sprintf("voicevox: user dictionary %s: %v", e.Op, e.Err)
}

func (e *UserDictError) Unwrap() error { return e.Err }

// InternalError wraps unexpected native or encoding failures that should
// not occur under correct use.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("voicevox: internal error in %s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }
