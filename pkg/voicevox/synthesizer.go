package voicevox

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tattn/voicevox-client/pkg/voicevox/core"
)

// ErrClosed is returned by every operation on a closed Synthesizer.
var ErrClosed = errors.New("voicevox: synthesizer is closed")

// Options configures the construction of a Synthesizer.
type Options struct {
	// DictDir is the OpenJTalk dictionary directory. Required. The path is
	// validated by the engine during New, not earlier.
	DictDir string

	// CPUNumThreads is the inference thread-count hint; 0 lets the runtime
	// choose.
	CPUNumThreads int

	// RuntimePath locates the ONNX runtime shared library on platforms
	// where it is not bundled alongside the engine.
	RuntimePath string
}

// SynthesisOptions controls a single synthesis request.
type SynthesisOptions struct {
	// EnableInterrogativeUpspeak raises the final pitch of interrogative
	// accent phrases so questions sound like questions.
	EnableInterrogativeUpspeak bool
}

// DefaultSynthesisOptions returns the standard request options.
func DefaultSynthesisOptions() SynthesisOptions {
	return SynthesisOptions{EnableInterrogativeUpspeak: true}
}

// Option is a functional option for configuring a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) { s.logger = logger }
}

// WithEngine injects a core.Engine instead of opening the native one. This
// is the seam tests use to substitute the mock engine.
func WithEngine(engine core.Engine) Option {
	return func(s *Synthesizer) { s.engine = engine }
}

// loadedModel tracks one registered voice model: its identity, its speaker
// projection, and the style-id set used for call-time validation.
type loadedModel struct {
	id       VoiceModelID
	path     string
	speakers []Speaker
	styles   map[StyleID]bool
}

// Synthesizer is the concurrency-safe entry point to the synthesis engine.
//
// All operations on one instance are serialized under a single lock, so
// concurrent callers observe sequential execution in issue order and a
// model can never be unloaded mid-synthesis. Independent instances share no
// mutable state and may run concurrently.
//
// Pipeline calls cross into native inference and may take milliseconds to
// seconds; there is no internal timeout or cancellation — a native call
// that has started always runs to completion.
type Synthesizer struct {
	mu     sync.Mutex
	engine core.Engine
	logger *slog.Logger
	models []*loadedModel
	closed bool
}

// New brings up the engine (inference runtime, then the morphological
// analyzer from opts.DictDir, then the native synthesizer) and returns the
// facade. The caller must Close it to release the native handles.
func New(opts Options, options ...Option) (*Synthesizer, error) {
	s := &Synthesizer{}
	for _, o := range options {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slog.String("component", "voicevox-synthesizer"))

	if s.engine == nil {
		engine, err := core.Open(core.Options{
			DictDir:       opts.DictDir,
			CPUNumThreads: opts.CPUNumThreads,
			RuntimePath:   opts.RuntimePath,
		})
		if err != nil {
			return nil, mapOpenError(opts, err)
		}
		s.engine = engine
	}

	s.logger.Debug("engine initialised", "dict_dir", opts.DictDir, "cpu_num_threads", opts.CPUNumThreads)
	return s, nil
}

func mapOpenError(opts Options, err error) error {
	var callErr *core.CallError
	if errors.As(err, &callErr) {
		switch callErr.Status {
		case core.StatusDictLoadFailed:
			return &DictionaryLoadError{DictDir: opts.DictDir, Err: err}
		case core.StatusSynthesizerFailed:
			return &SynthesizerCreationError{Err: err}
		}
	}
	return &InitializationError{Err: err}
}

// Close releases the native handles in reverse acquisition order. Safe to
// call more than once; operations after Close fail with [ErrClosed].
func (s *Synthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.models = nil
	s.engine.Close()
	s.logger.Debug("engine closed")
	return nil
}

// LoadVoiceModel opens the model file at path, derives its identifier, and
// registers it with the engine unless that content is already loaded.
// Loading the same file twice returns the same id without re-registering —
// callers may load speculatively at every use site.
func (s *Synthesizer) LoadVoiceModel(path string) (VoiceModelID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return VoiceModelID{}, ErrClosed
	}

	rawID, metas, st := s.engine.OpenVoiceModel(path)
	if !st.OK() {
		return VoiceModelID{}, &VoiceModelLoadError{Path: path, Op: "open", Status: st}
	}
	id := VoiceModelID(rawID)

	if s.findModel(id) != nil {
		s.engine.DiscardVoiceModel(rawID)
		s.logger.Debug("voice model already loaded", "model_id", id.String())
		return id, nil
	}

	speakers, err := parseSpeakerMetas(metas)
	if err != nil {
		s.engine.DiscardVoiceModel(rawID)
		s.logger.Warn("voice model metas rejected", "path", path, "err", err)
		return VoiceModelID{}, &VoiceModelLoadError{Path: path, Op: "open", Status: core.StatusModelFormatRejected}
	}

	if st := s.engine.RegisterVoiceModel(rawID); !st.OK() {
		return VoiceModelID{}, &VoiceModelLoadError{Path: path, Op: "register", Status: st}
	}

	styles := make(map[StyleID]bool)
	for _, sp := range speakers {
		for _, style := range sp.Styles {
			styles[style.ID] = true
		}
	}
	s.models = append(s.models, &loadedModel{id: id, path: path, speakers: speakers, styles: styles})

	s.logger.Info("voice model loaded", "model_id", id.String(), "path", path, "styles", len(styles))
	return id, nil
}

// UnloadVoiceModel removes a loaded model from the engine. Unloading an id
// that is not loaded is a successful no-op.
func (s *Synthesizer) UnloadVoiceModel(id VoiceModelID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if s.findModel(id) == nil {
		return nil
	}
	if st := s.engine.UnloadVoiceModel(core.ModelID(id)); !st.OK() {
		return &VoiceModelLoadError{Op: "unload", Status: st}
	}
	for i, m := range s.models {
		if m.id == id {
			s.models = append(s.models[:i], s.models[i+1:]...)
			break
		}
	}
	s.logger.Info("voice model unloaded", "model_id", id.String())
	return nil
}

// IsLoaded reports whether the model with the given id is currently loaded.
// Pure query, no side effects.
func (s *Synthesizer) IsLoaded(id VoiceModelID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.findModel(id) != nil
}

// Speakers returns the speaker metadata of all currently loaded models.
// The projection is recomputed on every call and reflects loads and
// unloads immediately.
func (s *Synthesizer) Speakers() ([]Speaker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	perModel := make([][]Speaker, 0, len(s.models))
	for _, m := range s.models {
		perModel = append(perModel, m.speakers)
	}
	return mergeSpeakers(perModel), nil
}

// CreateAccentPhrases runs morphological analysis on text. Empty text
// yields an empty phrase list, not an error. Pitch and phoneme lengths are
// zero until refined against a style.
func (s *Synthesizer) CreateAccentPhrases(text string) ([]AccentPhrase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.analyzeLocked(text)
}

// MakeAudioQuery analyzes text, refines mora data for the given style, and
// assembles an AudioQuery with the default scalar controls. The caller may
// edit the query before rendering it with [Synthesizer.SynthesizeQuery].
func (s *Synthesizer) MakeAudioQuery(text string, styleID StyleID) (*AudioQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.makeAudioQueryLocked(text, styleID)
}

// ReplaceMoraData re-runs mora refinement on an existing query's phrase
// structure, producing a new query with identical scalar controls and
// topology but pitch and length values regenerated for styleID. Useful to
// reset prosody after manual edits.
func (s *Synthesizer) ReplaceMoraData(query *AudioQuery, styleID StyleID) (*AudioQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	refined, err := s.refineLocked(query.AccentPhrases, styleID)
	if err != nil {
		return nil, err
	}
	out := *query
	out.AccentPhrases = refined
	return &out, nil
}

// Synthesize runs the full text → accent phrases → mora refinement → query
// → waveform pipeline and returns WAV bytes.
func (s *Synthesizer) Synthesize(text string, styleID StyleID, opts SynthesisOptions) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	start := time.Now()
	query, err := s.makeAudioQueryLocked(text, styleID)
	if err != nil {
		return nil, err
	}
	wav, err := s.renderLocked(query, styleID, opts)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("synthesis complete",
		"style_id", uint32(styleID),
		"text_len", len(text),
		"wav_bytes", len(wav),
		"duration", time.Since(start),
	)
	return wav, nil
}

// SynthesizeQuery renders a caller-supplied (possibly edited) audio query
// into WAV bytes.
func (s *Synthesizer) SynthesizeQuery(query *AudioQuery, styleID StyleID, opts SynthesisOptions) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.renderLocked(query, styleID, opts)
}

// UseUserDictionary serialises dict into the engine's native schema and
// attaches it to the morphological analyzer, replacing any previously
// attached table. Only analyses performed after it returns observe the new
// table; later edits to dict require another call.
func (s *Synthesizer) UseUserDictionary(dict *UserDictionary) error {
	data, err := dict.ToJSON()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if st := s.engine.UseUserDict(data); !st.OK() {
		return &UserDictError{Op: "use", Err: &core.CallError{Op: "use_user_dict", Status: st}}
	}
	s.logger.Debug("user dictionary attached", "words", len(dict.Words()))
	return nil
}

// ---- pipeline stages (callers hold s.mu) ----

func (s *Synthesizer) analyzeLocked(text string) ([]AccentPhrase, error) {
	data, st := s.engine.AnalyzeText(text)
	if !st.OK() {
		return nil, &TextAnalysisError{Text: text, Status: st}
	}
	phrases, err := parseAccentPhrases(data)
	if err != nil {
		return nil, err
	}
	if phrases == nil {
		phrases = []AccentPhrase{}
	}
	return phrases, nil
}

func (s *Synthesizer) refineLocked(phrases []AccentPhrase, styleID StyleID) ([]AccentPhrase, error) {
	if !s.styleKnownLocked(styleID) {
		return nil, &InvalidStyleIDError{StyleID: styleID, Known: s.knownStylesLocked()}
	}

	data, err := marshalAccentPhrases(phrases)
	if err != nil {
		return nil, err
	}
	refined, st := s.engine.ReplaceMoraData(data, uint32(styleID))
	switch {
	case st == core.StatusInvalidStyle:
		return nil, &InvalidStyleIDError{StyleID: styleID, Known: s.knownStylesLocked()}
	case !st.OK():
		return nil, &SynthesisError{Stage: "mora_refinement", StyleID: styleID, Status: st}
	}
	return parseAccentPhrases(refined)
}

func (s *Synthesizer) makeAudioQueryLocked(text string, styleID StyleID) (*AudioQuery, error) {
	phrases, err := s.analyzeLocked(text)
	if err != nil {
		return nil, err
	}
	refined, err := s.refineLocked(phrases, styleID)
	if err != nil {
		return nil, err
	}
	return NewAudioQuery(refined), nil
}

func (s *Synthesizer) renderLocked(query *AudioQuery, styleID StyleID, opts SynthesisOptions) ([]byte, error) {
	if !s.styleKnownLocked(styleID) {
		return nil, &InvalidStyleIDError{StyleID: styleID, Known: s.knownStylesLocked()}
	}

	rendered := query
	if opts.EnableInterrogativeUpspeak {
		rendered = applyInterrogativeUpspeak(query)
	}

	data, err := rendered.JSON()
	if err != nil {
		return nil, err
	}
	pcm, st := s.engine.Render(data, uint32(styleID))
	switch {
	case st == core.StatusInvalidStyle:
		// Indistinguishable from a rejected style at this layer.
		return nil, &InvalidStyleIDError{StyleID: styleID, Known: s.knownStylesLocked()}
	case !st.OK():
		return nil, &SynthesisError{Stage: "render", StyleID: styleID, Status: st}
	}
	if len(pcm) == 0 {
		return nil, &SynthesisError{Stage: "render", StyleID: styleID, Reason: "engine returned an empty audio buffer"}
	}

	rate := query.OutputSamplingRate
	if rate <= 0 {
		rate = DefaultSamplingRate
	}
	return encodeWAV(pcm, rate, query.OutputStereo), nil
}

// applyInterrogativeUpspeak appends a short rising mora to the end of each
// interrogative phrase. The input query is not modified.
func applyInterrogativeUpspeak(query *AudioQuery) *AudioQuery {
	const (
		upspeakStep   = 0.3
		upspeakCeil   = 6.5
		upspeakLength = 0.15
	)

	out := *query
	out.AccentPhrases = append([]AccentPhrase(nil), query.AccentPhrases...)
	for i, ap := range out.AccentPhrases {
		if !ap.IsInterrogative || len(ap.Moras) == 0 {
			continue
		}
		last := ap.Moras[len(ap.Moras)-1]
		if last.Pitch == 0 {
			continue // unvoiced ending stays flat
		}
		pitch := last.Pitch + upspeakStep
		if pitch > upspeakCeil {
			pitch = upspeakCeil
		}
		rise := Mora{Text: last.Text, Vowel: last.Vowel, VowelLength: upspeakLength, Pitch: pitch}
		moras := append(append([]Mora(nil), ap.Moras...), rise)
		out.AccentPhrases[i].Moras = moras
	}
	return &out
}

func marshalAccentPhrases(phrases []AccentPhrase) ([]byte, error) {
	if phrases == nil {
		phrases = []AccentPhrase{}
	}
	data, err := json.Marshal(phrases)
	if err != nil {
		return nil, &InternalError{Op: "encode accent phrases", Err: err}
	}
	return data, nil
}

func (s *Synthesizer) findModel(id VoiceModelID) *loadedModel {
	for _, m := range s.models {
		if m.id == id {
			return m
		}
	}
	return nil
}

func (s *Synthesizer) styleKnownLocked(styleID StyleID) bool {
	for _, m := range s.models {
		if m.styles[styleID] {
			return true
		}
	}
	return false
}

func (s *Synthesizer) knownStylesLocked() []StyleID {
	seen := make(map[StyleID]bool)
	var known []StyleID
	for _, m := range s.models {
		for id := range m.styles {
			if !seen[id] {
				seen[id] = true
				known = append(known, id)
			}
		}
	}
	sort.Slice(known, func(i, j int) bool { return known[i] < known[j] })
	return known
}
