package config_test

import (
	"strings"
	"testing"

	"github.com/tattn/voicevox-client/internal/config"
)

func TestLoadFromReader_Minimal(t *testing.T) {
	t.Parallel()
	yaml := `
engine:
  dict_dir: /opt/open_jtalk_dic
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Engine.DictDir != "/opt/open_jtalk_dic" {
		t.Errorf("dict_dir = %q, want /opt/open_jtalk_dic", cfg.Engine.DictDir)
	}
	if cfg.LogLevel != config.LogInfo {
		t.Errorf("log_level default = %q, want info", cfg.LogLevel)
	}
	if cfg.Output.Dir != "." {
		t.Errorf("output.dir default = %q, want .", cfg.Output.Dir)
	}
}

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
engine:
  dict_dir: ./dic
  cpu_num_threads: 4
  runtime_path: /usr/lib/libonnxruntime.so
  voice_models:
    - a.vvm
    - b.vvm
output:
  dir: ./out
observe:
  listen_addr: ":9090"
log_level: debug
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Engine.CPUNumThreads != 4 {
		t.Errorf("cpu_num_threads = %d, want 4", cfg.Engine.CPUNumThreads)
	}
	if len(cfg.Engine.VoiceModels) != 2 {
		t.Errorf("voice_models = %v, want 2 entries", cfg.Engine.VoiceModels)
	}
	if cfg.Observe.ListenAddr != ":9090" {
		t.Errorf("observe.listen_addr = %q, want :9090", cfg.Observe.ListenAddr)
	}
}

func TestValidate_MissingDictDir(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader(`log_level: info`))
	if err == nil {
		t.Fatal("expected error for missing dict_dir, got nil")
	}
	if !strings.Contains(err.Error(), "dict_dir") {
		t.Errorf("error should mention dict_dir, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
engine:
  dict_dir: ./dic
log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_NegativeThreads(t *testing.T) {
	t.Parallel()
	yaml := `
engine:
  dict_dir: ./dic
  cpu_num_threads: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative cpu_num_threads, got nil")
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
engine:
  dict_dir: ./dic
  gpu: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}
