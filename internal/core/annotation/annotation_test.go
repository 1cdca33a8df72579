package annotation

import (
	"encoding/json"
	"testing"

	"aidetect/internal/core/geometry"
	"aidetect/internal/core/heuristic"
)

func TestBatch_WireShape(t *testing.T) {
	b := Batch{
		Boxes:  []Box{NewBox(geometry.Region{X: 1, Y: 2, W: 3, H: 4}, heuristic.Score{Value: 0.5, Label: heuristic.Flagged})},
		FrameW: 640,
		FrameH: 360,
	}
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"boxes":[{"x":1,"y":2,"w":3,"h":4,"score":0.5,"label":"AI?"}],"frameW":640,"frameH":360}`
	if string(raw) != want {
		t.Fatalf("wire = %s\nwant  %s", raw, want)
	}

	var back Batch
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.Boxes[0].Region() != (geometry.Region{X: 1, Y: 2, W: 3, H: 4}) || back.Size() != (geometry.Size{W: 640, H: 360}) {
		t.Fatalf("decoded = %+v", back)
	}
	if back.Boxes[0].ScoreOf().Label != heuristic.Flagged {
		t.Fatal("label lost")
	}
}

func TestBatch_EmptyBoxesIsArray(t *testing.T) {
	raw, _ := json.Marshal(Batch{FrameW: 1, FrameH: 1})
	if string(raw) != `{"boxes":[],"frameW":1,"frameH":1}` {
		t.Fatalf("wire = %s", raw)
	}
}
