// This file contains the CGO-backed Engine implementation. The VOICEVOX core
// shared library (libvoicevox_core) and its header (voicevox_core.h) must be
// available at link time via LIBRARY_PATH and C_INCLUDE_PATH.

//go:build voicevoxcore && cgo

package core

/*
 #cgo LDFLAGS: -lvoicevox_core

 #include <stdint.h>
 #include <stdlib.h>
 #include <voicevox_core.h>
*/
import "C"

import (
	"unsafe"
)

// nativeEngine owns the three native handles for one synthesizer instance.
// Acquisition order: runtime, analyzer, synthesizer; Close unwinds in
// reverse.
type nativeEngine struct {
	runtime     *C.VoicevoxOnnxruntime
	openJTalk   *C.VoicevoxOpenJtalkRc
	synthesizer *C.VoicevoxSynthesizer

	// Opened-but-unregistered model file handles, keyed by model id.
	pending map[ModelID]*C.VoicevoxVoiceModelFile

	closed bool
}

// Open initialises the native engine: ONNX runtime first, then the
// OpenJTalk analyzer from opts.DictDir, then the synthesizer itself.
// Each stage failure is reported as a *CallError naming the stage, with any
// earlier handles released before returning.
func Open(opts Options) (Engine, error) {
	e := &nativeEngine{pending: make(map[ModelID]*C.VoicevoxVoiceModelFile)}

	var runtimePath *C.char
	if opts.RuntimePath != "" {
		runtimePath = C.CString(opts.RuntimePath)
		defer C.free(unsafe.Pointer(runtimePath))
	}
	if st := Status(C.voicevox_onnxruntime_load_once(runtimePath, &e.runtime)); !st.OK() {
		return nil, &CallError{Op: "load_onnxruntime", Status: StatusRuntimeInitFailed}
	}

	dictDir := C.CString(opts.DictDir)
	defer C.free(unsafe.Pointer(dictDir))
	if st := Status(C.voicevox_open_jtalk_rc_new(dictDir, &e.openJTalk)); !st.OK() {
		return nil, &CallError{Op: "load_openjtalk_dict", Status: StatusDictLoadFailed}
	}

	initOpts := C.voicevox_make_default_initialize_options()
	initOpts.cpu_num_threads = C.uint16_t(opts.CPUNumThreads)
	if st := Status(C.voicevox_synthesizer_new(e.runtime, e.openJTalk, initOpts, &e.synthesizer)); !st.OK() {
		C.voicevox_open_jtalk_rc_delete(e.openJTalk)
		return nil, &CallError{Op: "new_synthesizer", Status: StatusSynthesizerFailed}
	}

	return e, nil
}

func (e *nativeEngine) AnalyzeText(text string) ([]byte, Status) {
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	var out *C.char
	st := Status(C.voicevox_synthesizer_create_accent_phrases(e.synthesizer, ctext, &out))
	if !st.OK() {
		return nil, st
	}
	defer C.voicevox_json_free(out)
	return []byte(C.GoString(out)), StatusOK
}

func (e *nativeEngine) ReplaceMoraData(accentPhrasesJSON []byte, styleID uint32) ([]byte, Status) {
	cjson := C.CString(string(accentPhrasesJSON))
	defer C.free(unsafe.Pointer(cjson))

	var out *C.char
	st := Status(C.voicevox_synthesizer_replace_mora_data(e.synthesizer, cjson, C.uint32_t(styleID), &out))
	if !st.OK() {
		return nil, st
	}
	defer C.voicevox_json_free(out)
	return []byte(C.GoString(out)), StatusOK
}

func (e *nativeEngine) Render(audioQueryJSON []byte, styleID uint32) ([]byte, Status) {
	cjson := C.CString(string(audioQueryJSON))
	defer C.free(unsafe.Pointer(cjson))

	var pcm *C.uint8_t
	var pcmLen C.uintptr_t
	st := Status(C.voicevox_synthesizer_render(e.synthesizer, cjson, C.uint32_t(styleID), &pcmLen, &pcm))
	if !st.OK() {
		return nil, st
	}
	defer C.voicevox_pcm_free(pcm)
	return C.GoBytes(unsafe.Pointer(pcm), C.int(pcmLen)), StatusOK
}

func (e *nativeEngine) OpenVoiceModel(path string) (ModelID, []byte, Status) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	var model *C.VoicevoxVoiceModelFile
	if st := Status(C.voicevox_voice_model_file_open(cpath, &model)); !st.OK() {
		return ModelID{}, nil, st
	}

	var id ModelID
	C.voicevox_voice_model_file_id(model, (*C.uint8_t)(unsafe.Pointer(&id[0])))

	metas := C.voicevox_voice_model_file_create_metas_json(model)
	defer C.voicevox_json_free(metas)

	e.pending[id] = model
	return id, []byte(C.GoString(metas)), StatusOK
}

func (e *nativeEngine) RegisterVoiceModel(id ModelID) Status {
	model, ok := e.pending[id]
	if !ok {
		return StatusModelOpenFailed
	}
	delete(e.pending, id)
	defer C.voicevox_voice_model_file_delete(model)

	return Status(C.voicevox_synthesizer_load_voice_model(e.synthesizer, model))
}

func (e *nativeEngine) DiscardVoiceModel(id ModelID) {
	if model, ok := e.pending[id]; ok {
		delete(e.pending, id)
		C.voicevox_voice_model_file_delete(model)
	}
}

func (e *nativeEngine) UnloadVoiceModel(id ModelID) Status {
	return Status(C.voicevox_synthesizer_unload_voice_model(e.synthesizer, (*C.uint8_t)(unsafe.Pointer(&id[0]))))
}

func (e *nativeEngine) UseUserDict(dictJSON []byte) Status {
	cjson := C.CString(string(dictJSON))
	defer C.free(unsafe.Pointer(cjson))
	return Status(C.voicevox_open_jtalk_rc_use_user_dict_json(e.openJTalk, cjson))
}

func (e *nativeEngine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	for id, model := range e.pending {
		delete(e.pending, id)
		C.voicevox_voice_model_file_delete(model)
	}
	// Reverse acquisition order: synthesizer, analyzer, runtime.
	C.voicevox_synthesizer_delete(e.synthesizer)
	C.voicevox_open_jtalk_rc_delete(e.openJTalk)
	// The runtime handle is process-wide and owned by the library.
}
