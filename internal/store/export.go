package store

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/san-kum/qlab/internal/storage"
)

type ExportData struct {
	ID            string             `json:"id"`
	Kind          storage.Kind       `json:"kind"`
	Circuit       string             `json:"circuit,omitempty"`
	Backend       string             `json:"backend"`
	Timestamp     time.Time          `json:"timestamp"`
	Seed          int64              `json:"seed"`
	Shots         int                `json:"shots,omitempty"`
	Qubits        int                `json:"qubits"`
	Parameters    []float64          `json:"parameters,omitempty"`
	Counts        map[string]int     `json:"counts,omitempty"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	Values        []storage.Value    `json:"values,omitempty"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
}

func newExportData(run *storage.Run) ExportData {
	data := ExportData{
		ID:         run.Meta.ID,
		Kind:       run.Meta.Kind,
		Circuit:    run.Meta.Circuit,
		Backend:    run.Meta.Backend,
		Timestamp:  run.Meta.Timestamp,
		Seed:       run.Meta.Seed,
		Shots:      run.Meta.Shots,
		Qubits:     run.Meta.Qubits,
		Parameters: run.Meta.Parameters,
		Values:     run.Values,
		Metrics:    run.Meta.Metrics,
	}
	if len(run.Counts) > 0 {
		data.Counts = run.Counts
		data.Probabilities = run.Counts.Probabilities()
	}
	return data
}

func ExportJSON(path string, run *storage.Run) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, run)
}

func ExportJSONStdout(run *storage.Run) error {
	return WriteJSON(os.Stdout, run)
}

func WriteJSON(w io.Writer, run *storage.Run) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(run))
}

// WriteCSV writes counts when the run has them, values otherwise.
func WriteCSV(w io.Writer, run *storage.Run) error {
	records := storage.ValueRecords(run.Values)
	if len(run.Counts) > 0 {
		records = storage.CountsRecords(run.Counts)
	}
	cw := csv.NewWriter(w)
	return cw.WriteAll(records)
}

func ExportCSV(path string, run *storage.Run) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteCSV(file, run)
}
