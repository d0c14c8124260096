package voicevox

import (
	"encoding/hex"
	"fmt"
)

// VoiceModelID is the 16-byte identifier the engine derives from a voice
// model file's contents. Two files with identical bytes yield identical
// ids; equality and hashing are structural over all 16 bytes.
type VoiceModelID [16]byte

// String renders the id as 32 lowercase hex digits.
func (id VoiceModelID) String() string {
	return hex.EncodeToString(id[:])
}

// ParseVoiceModelID parses the hex form produced by [VoiceModelID.String].
func ParseVoiceModelID(s string) (VoiceModelID, error) {
	var id VoiceModelID
	if hex.DecodedLen(len(s)) != len(id) {
		return id, fmt.Errorf("voicevox: model id must be %d hex digits, got %d characters", hex.EncodedLen(len(id)), len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("voicevox: parse model id: %w", err)
	}
	return id, nil
}

// MarshalText implements encoding.TextMarshaler.
func (id VoiceModelID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *VoiceModelID) UnmarshalText(text []byte) error {
	parsed, err := ParseVoiceModelID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
