package voicevox_test

import (
	"encoding/json"
	"testing"

	"github.com/tattn/voicevox-client/pkg/voicevox"
)

func TestVoiceModelID_HexRoundTrip(t *testing.T) {
	t.Parallel()
	id := voicevox.VoiceModelID{0x00, 0x01, 0xAB, 0xCD, 0xEF, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 0xFF}

	s := id.String()
	if len(s) != 32 {
		t.Fatalf("hex form length = %d, want 32", len(s))
	}
	back, err := voicevox.ParseVoiceModelID(s)
	if err != nil {
		t.Fatalf("ParseVoiceModelID: %v", err)
	}
	if back != id {
		t.Errorf("round trip changed id: %s vs %s", back, id)
	}
}

func TestParseVoiceModelID_Invalid(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"", "abcd", "zz0102030405060708090a0b0c0d0e0f", "000102030405060708090a0b0c0d0e0f00"} {
		if _, err := voicevox.ParseVoiceModelID(s); err == nil {
			t.Errorf("ParseVoiceModelID(%q) succeeded", s)
		}
	}
}

func TestVoiceModelID_JSONText(t *testing.T) {
	t.Parallel()
	id := voicevox.VoiceModelID{1, 2, 3}

	data, err := json.Marshal(id)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"01020300000000000000000000000000"` {
		t.Errorf("marshaled form = %s", data)
	}

	var back voicevox.VoiceModelID
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != id {
		t.Errorf("round trip changed id: %s vs %s", back, id)
	}
}
