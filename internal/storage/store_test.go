package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/qlab/internal/quantum"
)

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	run := &Run{
		Meta: RunMetadata{
			Kind:    KindSample,
			Circuit: "bell",
			Backend: "statevector",
			Seed:    42,
			Shots:   128,
			Qubits:  2,
			Metrics: map[string]float64{"fidelity": 0.97},
		},
		Counts: quantum.Counts{"00": 60, "11": 68},
	}

	runID, err := st.Save(run)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}
	if run.Meta.ID != runID {
		t.Errorf("expected run metadata to carry id %s, got %s", runID, run.Meta.ID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if meta.Kind != KindSample {
		t.Errorf("expected kind 'sample', got '%s'", meta.Kind)
	}

	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}

	if meta.Metrics["fidelity"] != 0.97 {
		t.Errorf("expected fidelity 0.97, got %f", meta.Metrics["fidelity"])
	}

	counts, err := st.LoadCounts(runID)
	if err != nil {
		t.Fatalf("load counts failed: %v", err)
	}

	if counts["00"] != 60 || counts["11"] != 68 || len(counts) != 2 {
		t.Errorf("expected counts to round trip, got %v", counts)
	}
}

func TestStoreValues(t *testing.T) {
	st := New(t.TempDir())
	run := &Run{
		Meta: RunMetadata{Kind: KindEstimate, Backend: "statevector", Precision: 0.01},
		Values: []Value{
			{Label: "psi1 H1", Value: 1.556, Std: 0.01},
			{Label: "psi1 H3", Value: -0.25},
		},
	}
	runID, err := st.Save(run)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := st.LoadRun(runID)
	if err != nil {
		t.Fatalf("load run failed: %v", err)
	}
	if len(loaded.Values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(loaded.Values))
	}
	if loaded.Values[0].Label != "psi1 H1" || loaded.Values[0].Value != 1.556 || loaded.Values[0].Std != 0.01 {
		t.Errorf("unexpected first value %+v", loaded.Values[0])
	}
	if loaded.Counts != nil {
		t.Errorf("expected no counts, got %v", loaded.Counts)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	now := time.Now()
	for i, kind := range []Kind{KindGrover, KindShor} {
		meta := RunMetadata{Kind: kind, Backend: "statevector", Timestamp: now.Add(time.Duration(-i) * time.Hour)}
		if _, err := st.Save(&Run{Meta: meta, Counts: quantum.Counts{"1": 1}}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Kind != KindShor {
		t.Errorf("expected oldest run first, got %s", runs[0].Kind)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(&Run{Meta: RunMetadata{Kind: KindSample}, Counts: quantum.Counts{"0": 3}})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "counts.csv")); os.IsNotExist(err) {
		t.Error("counts.csv not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "values.csv")); !os.IsNotExist(err) {
		t.Error("values.csv should not exist without values")
	}
}

func TestStoreMissingRun(t *testing.T) {
	_, err := New(t.TempDir()).Load("nope")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}
