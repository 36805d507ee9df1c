package nullable

import (
	"encoding/json"
	"testing"
)

type body struct {
	Min   Value[float64] `json:"min"`
	Max   Value[float64] `json:"max"`
	Notes Value[string]  `json:"notes"`
}

func TestUnmarshal_ThreeStates(t *testing.T) {
	var b body
	if err := json.Unmarshal([]byte(`{"min": 1.5, "max": null}`), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !b.Min.Set || b.Min.Ptr == nil || *b.Min.Ptr != 1.5 {
		t.Errorf("expected min set to 1.5, got %+v", b.Min)
	}
	if !b.Max.Set || b.Max.Ptr != nil {
		t.Errorf("expected max explicitly null, got %+v", b.Max)
	}
	if b.Notes.Set {
		t.Errorf("expected notes absent, got %+v", b.Notes)
	}
}

func TestUnmarshal_TypeError(t *testing.T) {
	var b body
	if err := json.Unmarshal([]byte(`{"min": "low"}`), &b); err == nil {
		t.Error("expected type error")
	}
}

func TestApplyTo(t *testing.T) {
	old := 10.0
	dst := &old

	Value[float64]{}.ApplyTo(&dst)
	if dst == nil || *dst != 10 {
		t.Error("absent value must not change destination")
	}

	Of(20.0).ApplyTo(&dst)
	if dst == nil || *dst != 20 {
		t.Error("expected destination 20")
	}

	Null[float64]().ApplyTo(&dst)
	if dst != nil {
		t.Error("expected destination cleared")
	}
}

func TestMarshal(t *testing.T) {
	raw, _ := json.Marshal(body{Min: Of(2.0), Max: Null[float64]()})
	if string(raw) != `{"min":2,"max":null,"notes":null}` {
		t.Errorf("unexpected json: %s", raw)
	}
}
