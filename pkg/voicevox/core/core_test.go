//go:build !voicevoxcore || !cgo

package core_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/tattn/voicevox-client/pkg/voicevox/core"
)

func TestOpen_WithoutNativeSupport(t *testing.T) {
	t.Parallel()
	_, err := core.Open(core.Options{DictDir: "/nonexistent"})
	if !errors.Is(err, core.ErrUnavailable) {
		t.Fatalf("Open without build tag: %v, want ErrUnavailable", err)
	}
}

func TestStatus_OK(t *testing.T) {
	t.Parallel()
	if !core.StatusOK.OK() {
		t.Error("StatusOK.OK() = false")
	}
	if core.StatusInvalidStyle.OK() {
		t.Error("StatusInvalidStyle.OK() = true")
	}
}

func TestStatus_String(t *testing.T) {
	t.Parallel()
	if got := core.StatusInvalidStyle.String(); got != "invalid style id" {
		t.Errorf("StatusInvalidStyle = %q", got)
	}
	if got := core.Status(99).String(); !strings.Contains(got, "99") {
		t.Errorf("unknown status string %q does not carry the code", got)
	}
}

func TestCallError_Error(t *testing.T) {
	t.Parallel()
	err := &core.CallError{Op: "load_onnxruntime", Status: core.StatusRuntimeInitFailed}
	msg := err.Error()
	if !strings.Contains(msg, "load_onnxruntime") || !strings.Contains(msg, "runtime") {
		t.Errorf("message %q missing op or status text", msg)
	}
}
