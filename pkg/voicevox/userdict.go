package voicevox

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// WordType categorises a user-dictionary word for the morphological
// analyzer.
type WordType string

const (
	WordTypeProperNoun WordType = "PROPER_NOUN"
	WordTypeCommonNoun WordType = "COMMON_NOUN"
	WordTypeVerb       WordType = "VERB"
	WordTypeAdjective  WordType = "ADJECTIVE"
	WordTypeSuffix     WordType = "SUFFIX"
)

// DefaultWordPriority is applied when a word is added with a nil Priority.
// Higher priority wins ties during analysis.
const DefaultWordPriority = 5

// Word is one pronunciation override.
type Word struct {
	// ID identifies the word within its dictionary. Zero on Add means a
	// fresh id is assigned.
	ID uuid.UUID

	// Surface is the written form as it appears in input text.
	Surface string

	// Pronunciation is the katakana reading.
	Pronunciation string

	// AccentType is the 1-based index of the accent-falling mora.
	AccentType int

	WordType WordType

	// Priority breaks ties against the built-in dictionary; 0..10. Nil
	// means [DefaultWordPriority]; an explicit 0 is the lowest priority,
	// not the default.
	Priority *int
}

// UserDictionary is a mutable table of pronunciation overrides. The zero
// value is an empty, usable dictionary. All operations are serialized under
// one per-instance lock, independent of any engine's serialization, so
// dictionary edits never contend with unrelated synthesis.
//
// Mutations do not propagate to an analyzer automatically: after editing,
// re-attach the dictionary with [Synthesizer.UseUserDictionary].
type UserDictionary struct {
	mu    sync.Mutex
	words map[uuid.UUID]Word
}

// NewUserDictionary returns an empty dictionary.
func NewUserDictionary() *UserDictionary {
	return &UserDictionary{words: make(map[uuid.UUID]Word)}
}

// Add inserts a word and returns its id, generating one when w.ID is zero.
func (d *UserDictionary) Add(w Word) (uuid.UUID, error) {
	if err := validateWord(w); err != nil {
		return uuid.Nil, &UserDictError{Op: "add", Err: err}
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.words == nil {
		d.words = make(map[uuid.UUID]Word)
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	} else if _, exists := d.words[w.ID]; exists {
		return uuid.Nil, &UserDictError{Op: "add", Err: fmt.Errorf("word %s already exists", w.ID)}
	}
	d.words[w.ID] = normalizeWord(w)
	return w.ID, nil
}

// Update replaces the word stored under id.
func (d *UserDictionary) Update(id uuid.UUID, w Word) error {
	if err := validateWord(w); err != nil {
		return &UserDictError{Op: "update", Err: err}
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.words[id]; !exists {
		return &UserDictError{Op: "update", Err: fmt.Errorf("word %s not found", id)}
	}
	w.ID = id
	d.words[id] = normalizeWord(w)
	return nil
}

// Remove deletes the word stored under id.
func (d *UserDictionary) Remove(id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.words[id]; !exists {
		return &UserDictError{Op: "remove", Err: fmt.Errorf("word %s not found", id)}
	}
	delete(d.words, id)
	return nil
}

// Words lists all words, ordered by surface then id for stable output.
func (d *UserDictionary) Words() []Word {
	d.mu.Lock()
	defer d.mu.Unlock()

	words := make([]Word, 0, len(d.words))
	for _, w := range d.words {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Surface != words[j].Surface {
			return words[i].Surface < words[j].Surface
		}
		return words[i].ID.String() < words[j].ID.String()
	})
	return words
}

// Import copies every word from other into d, overwriting ids present in
// both.
func (d *UserDictionary) Import(other *UserDictionary) error {
	if other == nil {
		return &UserDictError{Op: "import", Err: fmt.Errorf("nil dictionary")}
	}
	words := other.Words()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.words == nil {
		d.words = make(map[uuid.UUID]Word)
	}
	for _, w := range words {
		d.words[w.ID] = w
	}
	return nil
}

// ToJSON serialises the dictionary in the engine's native schema: an object
// keyed by word uuid.
func (d *UserDictionary) ToJSON() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]nativeWord, len(d.words))
	for id, w := range d.words {
		out[id.String()] = toNativeWord(w)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, &UserDictError{Op: "save", Err: err}
	}
	return data, nil
}

// Save writes the dictionary to path in the native schema.
func (d *UserDictionary) Save(path string) error {
	data, err := d.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &UserDictError{Op: "save", Err: err}
	}
	return nil
}

// Load replaces the dictionary contents with the file at path. The native
// representation does not store the original word category; it is inferred
// from the part-of-speech strings, which is lossy (see inferWordType).
func (d *UserDictionary) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &UserDictError{Op: "load", Err: err}
	}

	var raw map[string]nativeWord
	if err := json.Unmarshal(data, &raw); err != nil {
		return &UserDictError{Op: "load", Err: err}
	}

	words := make(map[uuid.UUID]Word, len(raw))
	for key, nw := range raw {
		id, err := uuid.Parse(key)
		if err != nil {
			return &UserDictError{Op: "load", Err: fmt.Errorf("word key %q: %w", key, err)}
		}
		words[id] = fromNativeWord(id, nw)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.words = words
	return nil
}

func normalizeWord(w Word) Word {
	if w.Priority == nil {
		p := DefaultWordPriority
		w.Priority = &p
	}
	if w.WordType == "" {
		w.WordType = WordTypeProperNoun
	}
	return w
}

func validateWord(w Word) error {
	if w.Surface == "" {
		return fmt.Errorf("surface must not be empty")
	}
	if w.Pronunciation == "" {
		return fmt.Errorf("pronunciation must not be empty")
	}
	if !isKatakana(w.Pronunciation) {
		return fmt.Errorf("pronunciation %q must be katakana", w.Pronunciation)
	}
	moras := countMoras(w.Pronunciation)
	if w.AccentType < 1 || w.AccentType > moras {
		return fmt.Errorf("accent type %d out of range for %d moras", w.AccentType, moras)
	}
	if w.Priority != nil && (*w.Priority < 0 || *w.Priority > 10) {
		return fmt.Errorf("priority %d out of range 0..10", *w.Priority)
	}
	switch w.WordType {
	case "", WordTypeProperNoun, WordTypeCommonNoun, WordTypeVerb, WordTypeAdjective, WordTypeSuffix:
	default:
		return fmt.Errorf("unknown word type %q", w.WordType)
	}
	return nil
}

func isKatakana(s string) bool {
	for _, r := range s {
		if (r < 'ァ' || r > 'ヶ') && r != 'ー' && r != 'ヷ' && r != 'ヺ' {
			return false
		}
	}
	return true
}

// countMoras counts timing units in a katakana reading. Small glide kana
// merge into the preceding mora; ッ and ー count on their own.
func countMoras(s string) int {
	small := map[rune]bool{
		'ャ': true, 'ュ': true, 'ョ': true,
		'ァ': true, 'ィ': true, 'ゥ': true, 'ェ': true, 'ォ': true, 'ヮ': true,
	}
	n := 0
	for _, r := range s {
		if small[r] && n > 0 {
			continue
		}
		n++
	}
	return n
}
