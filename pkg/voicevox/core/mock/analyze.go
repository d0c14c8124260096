package mock

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// kanaRows maps katakana rows to their onset consonant. Row runes line up
// with the a/i/u/e/o nucleus order.
var kanaRows = []struct {
	cons string
	kana string
}{
	{"", "アイウエオ"},
	{"k", "カキクケコ"},
	{"g", "ガギグゲゴ"},
	{"s", "サシスセソ"},
	{"z", "ザジズゼゾ"},
	{"t", "タチツテト"},
	{"d", "ダヂヅデド"},
	{"n", "ナニヌネノ"},
	{"h", "ハヒフヘホ"},
	{"b", "バビブベボ"},
	{"p", "パピプペポ"},
	{"m", "マミムメモ"},
	{"r", "ラリルレロ"},
}

type kanaSound struct {
	cons  string
	vowel string
}

var kanaTable = buildKanaTable()

func buildKanaTable() map[rune]kanaSound {
	vowels := []string{"a", "i", "u", "e", "o"}
	t := make(map[rune]kanaSound)
	for _, row := range kanaRows {
		for i, r := range []rune(row.kana) {
			t[r] = kanaSound{cons: row.cons, vowel: vowels[i]}
		}
	}
	// Irregular onsets.
	t['シ'] = kanaSound{"sh", "i"}
	t['チ'] = kanaSound{"ch", "i"}
	t['ツ'] = kanaSound{"ts", "u"}
	t['フ'] = kanaSound{"f", "u"}
	t['ジ'] = kanaSound{"j", "i"}
	t['ヂ'] = kanaSound{"j", "i"}
	t['ヅ'] = kanaSound{"z", "u"}
	// Semivowel rows.
	t['ヤ'] = kanaSound{"y", "a"}
	t['ユ'] = kanaSound{"y", "u"}
	t['ヨ'] = kanaSound{"y", "o"}
	t['ワ'] = kanaSound{"w", "a"}
	t['ヲ'] = kanaSound{"", "o"}
	t['ヴ'] = kanaSound{"v", "u"}
	// Special moras.
	t['ン'] = kanaSound{"", "N"}
	t['ッ'] = kanaSound{"", "cl"}
	return t
}

var smallKanaVowels = map[rune]string{
	'ャ': "a", 'ュ': "u", 'ョ': "o",
	'ァ': "a", 'ィ': "i", 'ゥ': "u", 'ェ': "e", 'ォ': "o",
}

// analyze splits text into accent phrases at punctuation and whitespace and
// segments each phrase into moras. Pitch and phoneme lengths are left at
// zero; ReplaceMoraData fills them per style.
func analyze(text string) []accentPhrase {
	phrases := make([]accentPhrase, 0)
	var segment []rune

	flush := func(delim rune) {
		moras := segmentMoras(segment)
		segment = segment[:0]
		if len(moras) == 0 {
			return
		}
		ap := accentPhrase{
			Moras:  moras,
			Accent: 1 + int(hash32(morasText(moras))%uint32(len(moras))),
		}
		switch delim {
		case '？', '?':
			ap.IsInterrogative = true
			ap.PauseMora = pauseMora()
		case '。', '．', '.', '！', '!', '、', '，', ',':
			ap.PauseMora = pauseMora()
		}
		phrases = append(phrases, ap)
	}

	for _, r := range text {
		switch {
		case strings.ContainsRune("。．.！!？?、，,", r):
			flush(r)
		case unicode.IsSpace(r):
			flush(0)
		default:
			segment = append(segment, r)
		}
	}
	flush(0)
	return phrases
}

// segmentMoras turns a run of text into timing units. Katakana (and
// hiragana, folded to katakana) follow the kana table with small-kana
// merging; anything else becomes a single hash-derived mora per rune.
func segmentMoras(runes []rune) []mora {
	moras := make([]mora, 0, len(runes))
	for _, r := range runes {
		if r >= 'ぁ' && r <= 'ゖ' {
			r += 0x60 // fold hiragana to katakana
		}

		if v, ok := smallKanaVowels[r]; ok && len(moras) > 0 {
			// Merge into the preceding mora: キ+ャ → キャ (ky, a).
			last := &moras[len(moras)-1]
			last.Text += string(r)
			last.Vowel = v
			if last.Consonant != nil {
				c := palatalize(*last.Consonant, r)
				last.Consonant = &c
			}
			continue
		}

		if r == 'ー' && len(moras) > 0 {
			prev := moras[len(moras)-1].Vowel
			moras = append(moras, mora{Text: "ー", Vowel: prev})
			continue
		}

		s, ok := kanaTable[r]
		if !ok {
			h := hash32(string(r))
			s = kanaSound{
				cons:  []string{"", "k", "s", "t", "n", "m", "r"}[h%7],
				vowel: []string{"a", "i", "u", "e", "o"}[h%5],
			}
		}
		m := mora{Text: string(r), Vowel: s.vowel}
		if s.cons != "" {
			c := s.cons
			m.Consonant = &c
		}
		moras = append(moras, m)
	}
	return moras
}

// palatalize adjusts an onset for a merged small kana. sh/ch/j absorb the
// glide; everything else gains a y for ャュョ and keeps its onset for the
// small vowel series (ファ, ティ).
func palatalize(cons string, small rune) string {
	switch small {
	case 'ャ', 'ュ', 'ョ':
		switch cons {
		case "sh", "ch", "j":
			return cons
		}
		return cons + "y"
	}
	return cons
}

func pauseMora() *mora {
	return &mora{Text: "、", Vowel: "pau"}
}

// refineMora fills pitch and phoneme lengths as a pure function of the
// style id and the mora's phonemes.
func refineMora(m *mora, styleID uint32) {
	h := hash32(m.Vowel) ^ styleID*2654435761
	m.VowelLength = 0.05 + float64(h%50)/1000
	if m.Consonant != nil {
		ch := hash32(*m.Consonant) ^ styleID*2654435761
		l := 0.02 + float64(ch%30)/1000
		m.ConsonantLength = &l
	}
	switch m.Vowel {
	case "cl", "pau":
		m.Pitch = 0 // unvoiced
	default:
		m.Pitch = 3 + float64(h%200)/100
	}
}

func morasText(moras []mora) string {
	var b strings.Builder
	for _, m := range moras {
		b.WriteString(m.Text)
	}
	return b.String()
}

func hash32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
