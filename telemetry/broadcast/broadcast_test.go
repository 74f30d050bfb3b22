package broadcast

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/b-samee/MaximumTakeOffMassOptimizer/telemetry"
)

func TestPublishAndSnapshotRoundTrip(t *testing.T) {
	s := NewServer()
	doc := Document{
		Epoch:     4,
		MassLower: 1.0,
		MassUpper: 2.0,
		Masses:    []float64{1.0, 1.5, 2.0},
		Cells:     []telemetry.Snapshot{{Status: 7, T: 1}},
	}
	s.Publish(doc)

	got := s.snapshot()
	if got.Epoch != 4 || got.MassLower != 1.0 || len(got.Masses) != 3 {
		t.Fatalf("snapshot() = %+v, want %+v", got, doc)
	}
}

func TestHandleSnapshotServesJSON(t *testing.T) {
	s := NewServer()
	s.Publish(Document{Epoch: 9, Masses: []float64{3.3}})

	req := httptest.NewRequest("GET", "/snapshot", nil)
	w := httptest.NewRecorder()
	s.handleSnapshot(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var doc Document
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON response: %s", err)
	}
	if doc.Epoch != 9 {
		t.Fatalf("doc.Epoch = %d, want 9", doc.Epoch)
	}
}
