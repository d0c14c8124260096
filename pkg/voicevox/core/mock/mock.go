// Package mock provides a deterministic test double for the core.Engine
// interface.
//
// The fake engine performs a real (if crude) version of every pipeline
// stage: kana-aware mora segmentation for analysis, hash-derived pitch and
// phoneme lengths for mora refinement, and waveform rendering whose PCM is a
// pure function of the query JSON and style id. Identical inputs therefore
// produce byte-identical outputs, matching the determinism guarantee of the
// real engine.
//
// Model files are plain speaker-metas JSON documents; the content-derived
// model id is the MD5 of the file bytes. Scripted failures are injected via
// the exported Status fields:
//
//	eng := mock.New()
//	eng.RenderStatus = core.StatusRenderFailed
package mock

import (
	"crypto/md5"
	"encoding/json"
	"hash/fnv"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/tattn/voicevox-client/pkg/voicevox/core"
)

// Compile-time assertion that Engine satisfies core.Engine.
var _ core.Engine = (*Engine)(nil)

// Engine is a scripted, deterministic implementation of core.Engine.
type Engine struct {
	mu sync.Mutex

	// --- Scripted failures ---
	// When nonzero, the corresponding call returns that status instead of
	// performing its default behaviour.

	AnalyzeStatus  core.Status
	RefineStatus   core.Status
	RenderStatus   core.Status
	OpenStatus     core.Status
	RegisterStatus core.Status
	UnloadStatus   core.Status
	UserDictStatus core.Status

	// --- Call records ---

	// RegisterCalls lists every id passed to RegisterVoiceModel, in order.
	RegisterCalls []core.ModelID

	// UnloadCalls lists every id passed to UnloadVoiceModel, in order.
	UnloadCalls []core.ModelID

	// RenderStyles lists the style id of every Render call, in order.
	RenderStyles []uint32

	// CloseCount is the number of Close calls.
	CloseCount int

	pending map[core.ModelID]modelEntry
	loaded  map[core.ModelID]modelEntry
	dict    []dictEntry
}

type modelEntry struct {
	metas  []byte
	styles map[uint32]bool
}

type dictEntry struct {
	surface       string
	pronunciation string
	priority      int
}

// New returns an empty fake engine with no models loaded.
func New() *Engine {
	return &Engine{
		pending: make(map[core.ModelID]modelEntry),
		loaded:  make(map[core.ModelID]modelEntry),
	}
}

// ---- wire shapes (subset of the engine JSON the fake needs) ----

type mora struct {
	Text            string   `json:"text"`
	Consonant       *string  `json:"consonant"`
	ConsonantLength *float64 `json:"consonant_length"`
	Vowel           string   `json:"vowel"`
	VowelLength     float64  `json:"vowel_length"`
	Pitch           float64  `json:"pitch"`
}

type accentPhrase struct {
	Moras           []mora `json:"moras"`
	Accent          int    `json:"accent"`
	PauseMora       *mora  `json:"pause_mora"`
	IsInterrogative bool   `json:"is_interrogative"`
}

type audioQuery struct {
	AccentPhrases      []accentPhrase `json:"accent_phrases"`
	SpeedScale         float64        `json:"speedScale"`
	PrePhonemeLength   float64        `json:"prePhonemeLength"`
	PostPhonemeLength  float64        `json:"postPhonemeLength"`
	OutputSamplingRate int            `json:"outputSamplingRate"`
}

type speakerMeta struct {
	Name        string `json:"name"`
	SpeakerUUID string `json:"speaker_uuid"`
	Styles      []struct {
		ID uint32 `json:"id"`
	} `json:"styles"`
}

type userDictWord struct {
	Surface       string `json:"surface"`
	Pronunciation string `json:"pronunciation"`
	Priority      int    `json:"priority"`
}

// ---- Engine implementation ----

func (e *Engine) AnalyzeText(text string) ([]byte, core.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.AnalyzeStatus.OK() {
		return nil, e.AnalyzeStatus
	}

	phrases := analyze(applyDict(text, e.dict))
	data, err := json.Marshal(phrases)
	if err != nil {
		return nil, core.StatusAnalysisFailed
	}
	return data, core.StatusOK
}

func (e *Engine) ReplaceMoraData(accentPhrasesJSON []byte, styleID uint32) ([]byte, core.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.RefineStatus.OK() {
		return nil, e.RefineStatus
	}
	if !e.styleLoaded(styleID) {
		return nil, core.StatusInvalidStyle
	}

	var phrases []accentPhrase
	if err := json.Unmarshal(accentPhrasesJSON, &phrases); err != nil {
		return nil, core.StatusAnalysisFailed
	}
	for i := range phrases {
		for j := range phrases[i].Moras {
			refineMora(&phrases[i].Moras[j], styleID)
		}
		if phrases[i].PauseMora != nil {
			p := *phrases[i].PauseMora
			refineMora(&p, styleID)
			p.Pitch = 0
			phrases[i].PauseMora = &p
		}
	}
	data, err := json.Marshal(phrases)
	if err != nil {
		return nil, core.StatusAnalysisFailed
	}
	return data, core.StatusOK
}

func (e *Engine) Render(audioQueryJSON []byte, styleID uint32) ([]byte, core.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.RenderStyles = append(e.RenderStyles, styleID)
	if !e.RenderStatus.OK() {
		return nil, e.RenderStatus
	}
	if !e.styleLoaded(styleID) {
		return nil, core.StatusInvalidStyle
	}

	var q audioQuery
	if err := json.Unmarshal(audioQueryJSON, &q); err != nil {
		return nil, core.StatusRenderFailed
	}

	speed := q.SpeedScale
	if speed <= 0 {
		speed = 1
	}
	seconds := q.PrePhonemeLength + q.PostPhonemeLength
	for _, ap := range q.AccentPhrases {
		for _, m := range ap.Moras {
			seconds += m.VowelLength / speed
			if m.ConsonantLength != nil {
				seconds += *m.ConsonantLength / speed
			}
		}
		if ap.PauseMora != nil {
			seconds += ap.PauseMora.VowelLength / speed
		}
	}

	rate := q.OutputSamplingRate
	if rate <= 0 {
		rate = 24000
	}
	samples := int(seconds*float64(rate) + 0.5)

	// Mono 16-bit LE PCM, seeded by the query bytes and style so identical
	// requests render identical waveforms.
	h := fnv.New64a()
	h.Write(audioQueryJSON)
	state := h.Sum64() ^ uint64(styleID)
	pcm := make([]byte, 2*samples)
	for i := 0; i < samples; i++ {
		state = state*6364136223846793005 + 1442695040888963407
		s := int16(state >> 48)
		pcm[2*i] = byte(s)
		pcm[2*i+1] = byte(uint16(s) >> 8)
	}
	return pcm, core.StatusOK
}

func (e *Engine) OpenVoiceModel(path string) (core.ModelID, []byte, core.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.OpenStatus.OK() {
		return core.ModelID{}, nil, e.OpenStatus
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return core.ModelID{}, nil, core.StatusModelOpenFailed
	}
	var metas []speakerMeta
	if err := json.Unmarshal(data, &metas); err != nil || len(metas) == 0 {
		return core.ModelID{}, nil, core.StatusModelFormatRejected
	}

	styles := make(map[uint32]bool)
	for _, sp := range metas {
		for _, st := range sp.Styles {
			styles[st.ID] = true
		}
	}

	id := core.ModelID(md5.Sum(data))
	e.pending[id] = modelEntry{metas: data, styles: styles}
	return id, data, core.StatusOK
}

func (e *Engine) RegisterVoiceModel(id core.ModelID) core.Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.RegisterCalls = append(e.RegisterCalls, id)
	if !e.RegisterStatus.OK() {
		delete(e.pending, id)
		return e.RegisterStatus
	}
	entry, ok := e.pending[id]
	if !ok {
		return core.StatusModelOpenFailed
	}
	delete(e.pending, id)
	e.loaded[id] = entry
	return core.StatusOK
}

func (e *Engine) DiscardVoiceModel(id core.ModelID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, id)
}

func (e *Engine) UnloadVoiceModel(id core.ModelID) core.Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.UnloadCalls = append(e.UnloadCalls, id)
	if !e.UnloadStatus.OK() {
		return e.UnloadStatus
	}
	if _, ok := e.loaded[id]; !ok {
		return core.StatusModelNotLoaded
	}
	delete(e.loaded, id)
	return core.StatusOK
}

func (e *Engine) UseUserDict(dictJSON []byte) core.Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.UserDictStatus.OK() {
		return e.UserDictStatus
	}
	var words map[string]userDictWord
	if err := json.Unmarshal(dictJSON, &words); err != nil {
		return core.StatusUserDictFailed
	}

	keys := make([]string, 0, len(words))
	for k := range words {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e.dict = e.dict[:0]
	for _, k := range keys {
		w := words[k]
		e.dict = append(e.dict, dictEntry{surface: w.Surface, pronunciation: w.Pronunciation, priority: w.Priority})
	}
	// Higher priority first, then longer surfaces, so overrides apply the
	// same way on every run.
	sort.SliceStable(e.dict, func(i, j int) bool {
		if e.dict[i].priority != e.dict[j].priority {
			return e.dict[i].priority > e.dict[j].priority
		}
		return len(e.dict[i].surface) > len(e.dict[j].surface)
	})
	return core.StatusOK
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CloseCount++
	e.pending = make(map[core.ModelID]modelEntry)
	e.loaded = make(map[core.ModelID]modelEntry)
}

// LoadedModels returns the ids currently registered, for test assertions.
func (e *Engine) LoadedModels() []core.ModelID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]core.ModelID, 0, len(e.loaded))
	for id := range e.loaded {
		ids = append(ids, id)
	}
	return ids
}

func (e *Engine) styleLoaded(styleID uint32) bool {
	for _, entry := range e.loaded {
		if entry.styles[styleID] {
			return true
		}
	}
	return false
}

func applyDict(text string, dict []dictEntry) string {
	for _, d := range dict {
		if d.surface != "" {
			text = strings.ReplaceAll(text, d.surface, d.pronunciation)
		}
	}
	return text
}
