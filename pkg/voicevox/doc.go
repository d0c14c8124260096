// Package voicevox wraps the native VOICEVOX speech synthesis engine in an
// idiomatic Go API.
//
// The central type is [Synthesizer], which owns the native inference
// runtime and morphological analyzer and exposes the synthesis pipeline:
// text is analyzed into accent phrases, per-mora pitch and phoneme lengths
// are refined against a voice style, the result is assembled into an
// editable [AudioQuery], and the query is rendered into a RIFF/WAVE byte
// slice. Voice models are loaded by file path, identified by a 16-byte
// content-derived [VoiceModelID], and load/unload are idempotent.
//
// Typical usage:
//
//	synth, err := voicevox.New(voicevox.Options{DictDir: "open_jtalk_dic"})
//	if err != nil { ... }
//	defer synth.Close()
//
//	id, err := synth.LoadVoiceModel("zundamon.vvm")
//	if err != nil { ... }
//
//	wav, err := synth.Synthesize("こんにちは", 3, voicevox.DefaultSynthesisOptions())
//
// For prosody control, split the pipeline at the query boundary:
//
//	query, err := synth.MakeAudioQuery("こんにちは", 3)
//	query.SpeedScale = 1.2
//	wav, err := synth.SynthesizeQuery(query, 3, voicevox.DefaultSynthesisOptions())
//
// All operations on one Synthesizer are serialized; calls are processed in
// issue order and block for the duration of the underlying native work, so
// invoke them off any latency-sensitive context. [UserDictionary] carries
// its own lock and may be edited concurrently, but edits take effect only
// after an explicit [Synthesizer.UseUserDictionary].
package voicevox
