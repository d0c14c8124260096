package voicevox_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/tattn/voicevox-client/pkg/voicevox"
)

func sampleQuery() *voicevox.AudioQuery {
	ky := "ky"
	kyLen := 0.031
	query := voicevox.NewAudioQuery([]voicevox.AccentPhrase{
		{
			Moras: []voicevox.Mora{
				{Text: "キョ", Consonant: &ky, ConsonantLength: &kyLen, Vowel: "o", VowelLength: 0.08, Pitch: 5.2},
				{Text: "ウ", Vowel: "u", VowelLength: 0.07, Pitch: 5.0},
			},
			Accent: 1,
			PauseMora: &voicevox.Mora{
				Text: "、", Vowel: "pau", VowelLength: 0.3,
			},
		},
		{
			Moras: []voicevox.Mora{
				{Text: "ネ", Vowel: "e", VowelLength: 0.09, Pitch: 5.5},
			},
			Accent:          1,
			IsInterrogative: true,
		},
	})
	query.OutputStereo = true
	return query
}

func TestAudioQuery_RoundTrip(t *testing.T) {
	t.Parallel()
	query := sampleQuery()

	data, err := query.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	back, err := voicevox.ParseAudioQuery(data)
	if err != nil {
		t.Fatalf("ParseAudioQuery: %v", err)
	}
	if !reflect.DeepEqual(query, back) {
		t.Errorf("round trip changed the query:\n  in:  %+v\n  out: %+v", query, back)
	}
}

func TestAudioQuery_WireFieldNames(t *testing.T) {
	t.Parallel()
	data, err := sampleQuery().JSON()
	if err != nil {
		t.Fatal(err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		t.Fatal(err)
	}
	// Top-level scalars are camelCase; the phrase list and kana are not.
	for _, key := range []string{
		"accent_phrases", "speedScale", "pitchScale", "intonationScale",
		"volumeScale", "prePhonemeLength", "postPhonemeLength",
		"outputSamplingRate", "outputStereo", "kana",
	} {
		if _, ok := top[key]; !ok {
			t.Errorf("top-level key %q missing; have %v", key, keysOf(top))
		}
	}
	if _, ok := top["speed_scale"]; ok {
		t.Error("found snake_case speed_scale at top level")
	}

	var phrases []map[string]json.RawMessage
	if err := json.Unmarshal(top["accent_phrases"], &phrases); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"moras", "accent", "pause_mora", "is_interrogative"} {
		if _, ok := phrases[0][key]; !ok {
			t.Errorf("phrase key %q missing", key)
		}
	}

	var moras []map[string]json.RawMessage
	if err := json.Unmarshal(phrases[0]["moras"], &moras); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"text", "consonant", "consonant_length", "vowel", "vowel_length", "pitch"} {
		if _, ok := moras[0][key]; !ok {
			t.Errorf("mora key %q missing", key)
		}
	}
	// Absent optionals serialise as explicit nulls.
	if string(moras[1]["consonant"]) != "null" {
		t.Errorf("vowel-only mora consonant = %s, want null", moras[1]["consonant"])
	}
}

func keysOf(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestParseAudioQuery_MissingAccentPhrases(t *testing.T) {
	t.Parallel()
	_, err := voicevox.ParseAudioQuery([]byte(`{"speedScale": 1.0}`))
	var synthErr *voicevox.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("err = %v, want *SynthesisError", err)
	}
	if synthErr.Stage != "decode" {
		t.Errorf("stage = %q, want decode", synthErr.Stage)
	}
}

func TestParseAudioQuery_MissingScalarKey(t *testing.T) {
	t.Parallel()
	full, err := sampleQuery().JSON()
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(full, &doc); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{
		"speedScale", "pitchScale", "intonationScale", "volumeScale",
		"prePhonemeLength", "postPhonemeLength", "outputSamplingRate", "outputStereo",
	} {
		key := key
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			partial := make(map[string]json.RawMessage, len(doc))
			for k, v := range doc {
				partial[k] = v
			}
			delete(partial, key)
			data, err := json.Marshal(partial)
			if err != nil {
				t.Fatal(err)
			}

			_, err = voicevox.ParseAudioQuery(data)
			var synthErr *voicevox.SynthesisError
			if !errors.As(err, &synthErr) {
				t.Fatalf("err = %v, want *SynthesisError", err)
			}
			if !strings.Contains(synthErr.Reason, key) {
				t.Errorf("reason = %q, should name the missing key %q", synthErr.Reason, key)
			}
		})
	}

	// kana is nullable and may be absent entirely.
	partial := make(map[string]json.RawMessage, len(doc))
	for k, v := range doc {
		partial[k] = v
	}
	delete(partial, "kana")
	data, err := json.Marshal(partial)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := voicevox.ParseAudioQuery(data); err != nil {
		t.Errorf("query without kana rejected: %v", err)
	}
}

func TestParseAudioQuery_Malformed(t *testing.T) {
	t.Parallel()
	_, err := voicevox.ParseAudioQuery([]byte(`{"accent_phrases": [`))
	var synthErr *voicevox.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("err = %v, want *SynthesisError", err)
	}
}

func TestParseAudioQuery_ConsonantWithoutLength(t *testing.T) {
	t.Parallel()
	doc := `{
	  "accent_phrases": [
	    {"moras": [{"text": "カ", "consonant": "k", "consonant_length": null, "vowel": "a", "vowel_length": 0.1, "pitch": 5.0}], "accent": 1, "pause_mora": null, "is_interrogative": false}
	  ],
	  "speedScale": 1, "pitchScale": 0, "intonationScale": 1, "volumeScale": 1,
	  "prePhonemeLength": 0.1, "postPhonemeLength": 0.1,
	  "outputSamplingRate": 24000, "outputStereo": false, "kana": null
	}`
	_, err := voicevox.ParseAudioQuery([]byte(doc))
	var synthErr *voicevox.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("err = %v, want *SynthesisError", err)
	}
}

func TestParseAudioQuery_AccentOutOfRange(t *testing.T) {
	t.Parallel()
	doc := `{
	  "accent_phrases": [
	    {"moras": [{"text": "ア", "consonant": null, "consonant_length": null, "vowel": "a", "vowel_length": 0.1, "pitch": 5.0}], "accent": 2, "pause_mora": null, "is_interrogative": false}
	  ],
	  "speedScale": 1, "pitchScale": 0, "intonationScale": 1, "volumeScale": 1,
	  "prePhonemeLength": 0.1, "postPhonemeLength": 0.1,
	  "outputSamplingRate": 24000, "outputStereo": false, "kana": null
	}`
	_, err := voicevox.ParseAudioQuery([]byte(doc))
	if err == nil {
		t.Fatal("accent 2 with a single mora parsed without error")
	}
}

func TestNewAudioQuery_Defaults(t *testing.T) {
	t.Parallel()
	query := voicevox.NewAudioQuery(nil)
	if query.SpeedScale != 1.0 || query.IntonationScale != 1.0 || query.VolumeScale != 1.0 {
		t.Errorf("scale defaults = %v/%v/%v, want 1/1/1", query.SpeedScale, query.IntonationScale, query.VolumeScale)
	}
	if query.PitchScale != 0.0 {
		t.Errorf("pitchScale = %v, want 0", query.PitchScale)
	}
	if query.PrePhonemeLength != 0.1 || query.PostPhonemeLength != 0.1 {
		t.Errorf("padding = %v/%v, want 0.1/0.1", query.PrePhonemeLength, query.PostPhonemeLength)
	}
	if query.OutputSamplingRate != 24000 || query.OutputStereo {
		t.Errorf("output = %d/%v, want 24000/mono", query.OutputSamplingRate, query.OutputStereo)
	}
	if query.Kana != nil {
		t.Errorf("kana = %v, want nil", *query.Kana)
	}
}
