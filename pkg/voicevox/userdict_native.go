package voicevox

import "github.com/google/uuid"

// nativeWord is the engine's on-disk word schema. The file is a JSON object
// keyed by word uuid with these values; the wrapper consumes it read-only
// apart from (de)serialising its own words into it.
type nativeWord struct {
	Surface               string `json:"surface"`
	Priority              int    `json:"priority"`
	ContextID             int    `json:"context_id"`
	PartOfSpeech          string `json:"part_of_speech"`
	PartOfSpeechDetail1   string `json:"part_of_speech_detail_1"`
	PartOfSpeechDetail2   string `json:"part_of_speech_detail_2"`
	PartOfSpeechDetail3   string `json:"part_of_speech_detail_3"`
	InflectionalType      string `json:"inflectional_type"`
	InflectionalForm      string `json:"inflectional_form"`
	Stem                  string `json:"stem"`
	Yomi                  string `json:"yomi"`
	Pronunciation         string `json:"pronunciation"`
	AccentType            int    `json:"accent_type"`
	MoraCount             int    `json:"mora_count"`
	AccentAssociativeRule string `json:"accent_associative_rule"`
}

// posEntry is the fixed part-of-speech tuple the analyzer expects per word
// category.
type posEntry struct {
	contextID int
	pos       string
	detail1   string
	detail2   string
	detail3   string
}

var wordTypePOS = map[WordType]posEntry{
	WordTypeProperNoun: {1348, "名詞", "固有名詞", "一般", "*"},
	WordTypeCommonNoun: {1345, "名詞", "一般", "*", "*"},
	WordTypeVerb:       {642, "動詞", "自立", "*", "*"},
	WordTypeAdjective:  {19, "形容詞", "自立", "*", "*"},
	WordTypeSuffix:     {1358, "名詞", "接尾", "一般", "*"},
}

func toNativeWord(w Word) nativeWord {
	pos := wordTypePOS[w.WordType]
	priority := DefaultWordPriority
	if w.Priority != nil {
		priority = *w.Priority
	}
	return nativeWord{
		Surface:               w.Surface,
		Priority:              priority,
		ContextID:             pos.contextID,
		PartOfSpeech:          pos.pos,
		PartOfSpeechDetail1:   pos.detail1,
		PartOfSpeechDetail2:   pos.detail2,
		PartOfSpeechDetail3:   pos.detail3,
		InflectionalType:      "*",
		InflectionalForm:      "*",
		Stem:                  w.Surface,
		Yomi:                  w.Pronunciation,
		Pronunciation:         w.Pronunciation,
		AccentType:            w.AccentType,
		MoraCount:             countMoras(w.Pronunciation),
		AccentAssociativeRule: "*",
	}
}

func fromNativeWord(id uuid.UUID, nw nativeWord) Word {
	priority := nw.Priority
	return Word{
		ID:            id,
		Surface:       nw.Surface,
		Pronunciation: nw.Pronunciation,
		AccentType:    nw.AccentType,
		WordType:      inferWordType(nw.PartOfSpeech, nw.PartOfSpeechDetail1),
		Priority:      &priority,
	}
}

// inferWordType recovers a word category from the two part-of-speech
// strings using a fixed precedence: proper noun, common noun, verb,
// adjective, suffix, then proper noun as the default. The mapping is lossy:
// a round trip through the native format is not guaranteed to preserve the
// original category.
func inferWordType(pos, detail1 string) WordType {
	switch {
	case pos == "名詞" && detail1 == "固有名詞":
		return WordTypeProperNoun
	case pos == "名詞" && detail1 == "一般":
		return WordTypeCommonNoun
	case pos == "動詞":
		return WordTypeVerb
	case pos == "形容詞":
		return WordTypeAdjective
	case pos == "名詞" && detail1 == "接尾":
		return WordTypeSuffix
	default:
		return WordTypeProperNoun
	}
}
