// Package core defines the boundary between the Go wrapper and the native
// VOICEVOX synthesis engine (the C library, its ONNX inference runtime, and
// the OpenJTalk morphological dictionary).
//
// The native engine is consumed as an opaque capability through the [Engine]
// interface. All payloads crossing the boundary are the engine's own JSON
// representations (accent-phrase arrays, audio queries, speaker metas, user
// dictionaries); the higher-level value types live in the parent voicevox
// package. Every call returns a [Status]; nonzero statuses are mapped to
// typed errors by the caller, never retried here.
//
// The real binding is CGO-backed and compiled only under the "voicevoxcore"
// build tag (the native library and headers must be available at link time).
// Builds without the tag get an [Open] that fails with [ErrUnavailable];
// tests use the deterministic fake in the mock subpackage.
package core

import (
	"errors"
	"fmt"
)

// Status is a raw result code returned by the native engine.
//
// Code 1 is interpreted as "invalid style" everywhere it appears; this
// conflates a rejected style with other single-code failures but matches the
// engine's observed behaviour and is relied upon by the wrapper's error
// mapping.
type Status int32

const (
	StatusOK                  Status = 0
	StatusInvalidStyle        Status = 1
	StatusModelOpenFailed     Status = 2
	StatusModelFormatRejected Status = 3
	StatusModelNotLoaded      Status = 4
	StatusAnalysisFailed      Status = 5
	StatusDictLoadFailed      Status = 6
	StatusRuntimeInitFailed   Status = 7
	StatusSynthesizerFailed   Status = 8
	StatusUserDictFailed      Status = 9
	StatusRenderFailed        Status = 10
)

// OK reports whether s indicates success.
func (s Status) OK() bool { return s == StatusOK }

// String returns a short description of the status code.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidStyle:
		return "invalid style id"
	case StatusModelOpenFailed:
		return "voice model open failed"
	case StatusModelFormatRejected:
		return "voice model format rejected"
	case StatusModelNotLoaded:
		return "voice model not loaded"
	case StatusAnalysisFailed:
		return "text analysis failed"
	case StatusDictLoadFailed:
		return "dictionary load failed"
	case StatusRuntimeInitFailed:
		return "inference runtime initialisation failed"
	case StatusSynthesizerFailed:
		return "synthesizer construction failed"
	case StatusUserDictFailed:
		return "user dictionary operation failed"
	case StatusRenderFailed:
		return "waveform rendering failed"
	default:
		return fmt.Sprintf("engine status %d", int32(s))
	}
}

// ModelID is the 16-byte content-derived identifier the engine assigns to an
// opened voice model file. Equality and map keying are byte-exact.
type ModelID [16]byte

// CallError reports a failed native call together with the operation name,
// so callers can map open-stage failures to the right error kind.
type CallError struct {
	// Op is the native operation that failed (e.g. "load_onnxruntime").
	Op string

	// Status is the nonzero code returned by the engine.
	Status Status
}

func (e *CallError) Error() string {
	return fmt.Sprintf("voicevox/core: %s: %s", e.Op, e.Status)
}

// ErrUnavailable is returned by [Open] when the binary was built without the
// voicevoxcore build tag.
var ErrUnavailable = errors.New("voicevox/core: built without native engine support (requires the voicevoxcore build tag)")

// Options configures the bring-up of the native engine.
type Options struct {
	// DictDir is the path to the OpenJTalk dictionary directory. Required;
	// validated by the engine at open time, not before.
	DictDir string

	// CPUNumThreads is the inference thread-count hint. 0 lets the runtime
	// decide.
	CPUNumThreads int

	// RuntimePath locates the ONNX runtime shared library on platforms where
	// it is not bundled. Empty uses the platform default search path.
	RuntimePath string
}

// Engine is the narrow contract of the native engine. Implementations are
// NOT safe for concurrent use; the wrapper serializes all calls on one
// instance. Close must be idempotent and must release the synthesizer, the
// analyzer, and the runtime in reverse acquisition order.
type Engine interface {
	// AnalyzeText runs morphological analysis and returns the engine's
	// accent-phrase JSON array. Empty text succeeds with an empty array.
	// The analysis consults whichever user dictionary was last attached via
	// UseUserDict.
	AnalyzeText(text string) ([]byte, Status)

	// ReplaceMoraData regenerates per-mora pitch and phoneme lengths for the
	// given style, preserving phrase topology. Returns status 1 when the
	// style is not exposed by any loaded model.
	ReplaceMoraData(accentPhrasesJSON []byte, styleID uint32) ([]byte, Status)

	// Render synthesizes a waveform from an audio-query JSON document and
	// returns raw mono 16-bit little-endian PCM at the query's output
	// sampling rate. The container is the caller's business.
	Render(audioQueryJSON []byte, styleID uint32) ([]byte, Status)

	// OpenVoiceModel opens a model file without loading its weights and
	// returns the content-derived id plus the speaker metas JSON. The open
	// handle stays cached inside the engine until RegisterVoiceModel or
	// DiscardVoiceModel consumes it.
	OpenVoiceModel(path string) (ModelID, []byte, Status)

	// RegisterVoiceModel loads the weights of a previously opened model into
	// the inference session and releases the file handle.
	RegisterVoiceModel(id ModelID) Status

	// DiscardVoiceModel releases an opened-but-unregistered model file
	// handle. Used when the wrapper detects the model is already loaded.
	DiscardVoiceModel(id ModelID)

	// UnloadVoiceModel removes a registered model from the inference
	// session.
	UnloadVoiceModel(id ModelID) Status

	// UseUserDict replaces the analyzer's pronunciation-override table with
	// the given dictionary JSON. Affects only subsequent AnalyzeText calls.
	UseUserDict(dictJSON []byte) Status

	// Close tears the engine down. Safe to call more than once.
	Close()
}
