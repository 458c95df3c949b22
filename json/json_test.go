package json

import (
	"bytes"
	"strings"
	"testing"
)

type testMark struct {
	Text     string  `json:"text"`
	Position string  `json:"position" default:"bottom-right"`
	Opacity  float64 `json:"opacity" default:"0.5"`
	Angle    *int    `json:"angle,omitempty"`
}

func TestUnmarshalAppliesDefaultsForMissingFields(t *testing.T) {
	var m testMark
	if err := Unmarshal([]byte(`{"text":"draft"}`), &m); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	if m.Text != "draft" {
		t.Errorf("expected text 'draft', got %q", m.Text)
	}
	if m.Position != "bottom-right" {
		t.Errorf("expected default position, got %q", m.Position)
	}
	if m.Opacity != 0.5 {
		t.Errorf("expected default opacity 0.5, got %v", m.Opacity)
	}
	if m.Angle != nil {
		t.Errorf("expected nil angle, got %v", *m.Angle)
	}
}

func TestUnmarshalKeepsExplicitValues(t *testing.T) {
	var m testMark
	if err := Unmarshal([]byte(`{"text":"x","position":"top-left","opacity":0.2,"angle":45}`), &m); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if m.Position != "top-left" || m.Opacity != 0.2 || m.Angle == nil || *m.Angle != 45 {
		t.Errorf("unexpected decode result: %+v", m)
	}
}

func TestUnmarshalNonStruct(t *testing.T) {
	var m map[string]any
	if err := Unmarshal([]byte(`{"a":1}`), &m); err != nil {
		t.Fatalf("Unmarshal into map returned error: %v", err)
	}
	if m["a"] != float64(1) {
		t.Errorf("unexpected map value: %v", m["a"])
	}
}

func TestDecoderAppliesDefaults(t *testing.T) {
	var m testMark
	if err := NewDecoder(strings.NewReader(`{"text":"y"}`)).Decode(&m); err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if m.Position != "bottom-right" {
		t.Errorf("expected default position, got %q", m.Position)
	}
}

func TestEncoderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(testMark{Text: "z", Position: "center"}); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(buf.String(), `"position":"center"`) {
		t.Errorf("unexpected encoding: %s", buf.String())
	}
}
