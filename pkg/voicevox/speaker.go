package voicevox

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// StyleID selects a voice/speaking-manner variant exposed by a loaded voice
// model. Style ids are only meaningful against the currently loaded model
// set and are validated at call time.
type StyleID uint32

// StyleType classifies what a style can be used for.
type StyleType string

const (
	StyleTypeTalk           StyleType = "talk"
	StyleTypeSingingTeacher StyleType = "singing_teacher"
	StyleTypeFrameDecode    StyleType = "frame_decode"
	StyleTypeSing           StyleType = "sing"
)

// Style is one selectable voice variant of a speaker.
type Style struct {
	ID    StyleID
	Name  string
	Order *int
	Type  StyleType
}

// Speaker is read-only metadata about one voice bundled in a loaded model.
// It is a projection over the loaded model set, recomputed fresh on each
// request and never cached by the wrapper.
type Speaker struct {
	// ID is the stable speaker identity across models and versions.
	ID uuid.UUID

	Name    string
	Version string
	Order   *int
	Styles  []Style
}

// speakerMeta mirrors the engine's metas JSON.
type speakerMeta struct {
	Name        string `json:"name"`
	SpeakerUUID string `json:"speaker_uuid"`
	Version     string `json:"version"`
	Order       *int   `json:"order"`
	Styles      []struct {
		Name  string `json:"name"`
		ID    uint32 `json:"id"`
		Type  string `json:"type"`
		Order *int   `json:"order"`
	} `json:"styles"`
}

// parseSpeakerMetas decodes one model's metas JSON into Speakers.
func parseSpeakerMetas(data []byte) ([]Speaker, error) {
	var metas []speakerMeta
	if err := json.Unmarshal(data, &metas); err != nil {
		return nil, fmt.Errorf("decode speaker metas: %w", err)
	}

	speakers := make([]Speaker, 0, len(metas))
	for _, m := range metas {
		id, err := uuid.Parse(m.SpeakerUUID)
		if err != nil {
			return nil, fmt.Errorf("speaker %q: parse uuid %q: %w", m.Name, m.SpeakerUUID, err)
		}
		sp := Speaker{ID: id, Name: m.Name, Version: m.Version, Order: m.Order}
		for _, st := range m.Styles {
			styleType := StyleType(st.Type)
			if styleType == "" {
				styleType = StyleTypeTalk
			}
			sp.Styles = append(sp.Styles, Style{
				ID:    StyleID(st.ID),
				Name:  st.Name,
				Order: st.Order,
				Type:  styleType,
			})
		}
		speakers = append(speakers, sp)
	}
	return speakers, nil
}

// mergeSpeakers combines the per-model projections into one list. A speaker
// appearing in several models keeps one entry with the union of its styles.
// Ordering is deterministic: explicit order hints first, then name, then
// uuid; no locale-sensitive collation.
func mergeSpeakers(perModel [][]Speaker) []Speaker {
	byID := make(map[uuid.UUID]*Speaker)
	var order []uuid.UUID

	for _, speakers := range perModel {
		for _, sp := range speakers {
			existing, ok := byID[sp.ID]
			if !ok {
				cp := sp
				cp.Styles = append([]Style(nil), sp.Styles...)
				byID[sp.ID] = &cp
				order = append(order, sp.ID)
				continue
			}
			for _, st := range sp.Styles {
				if !hasStyle(existing.Styles, st.ID) {
					existing.Styles = append(existing.Styles, st)
				}
			}
		}
	}

	merged := make([]Speaker, 0, len(order))
	for _, id := range order {
		sp := *byID[id]
		sort.SliceStable(sp.Styles, func(i, j int) bool {
			return styleLess(sp.Styles[i], sp.Styles[j])
		})
		merged = append(merged, sp)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return speakerLess(merged[i], merged[j])
	})
	return merged
}

func hasStyle(styles []Style, id StyleID) bool {
	for _, st := range styles {
		if st.ID == id {
			return true
		}
	}
	return false
}

func styleLess(a, b Style) bool {
	if c := compareOrder(a.Order, b.Order); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

func speakerLess(a, b Speaker) bool {
	if c := compareOrder(a.Order, b.Order); c != 0 {
		return c < 0
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID.String() < b.ID.String()
}

// compareOrder sorts explicit order hints ascending, with absent hints
// after all present ones.
func compareOrder(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}
