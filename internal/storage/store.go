package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/qlab/internal/quantum"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Kind string

const (
	KindSample   Kind = "sample"
	KindEstimate Kind = "estimate"
	KindSweep    Kind = "sweep"
	KindGrover   Kind = "grover"
	KindShor     Kind = "shor"
	KindHardware Kind = "hardware"
	KindMinimize Kind = "minimize"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Kind       Kind               `json:"kind"`
	Circuit    string             `json:"circuit,omitempty"`
	Backend    string             `json:"backend"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Shots      int                `json:"shots,omitempty"`
	Precision  float64            `json:"precision,omitempty"`
	Qubits     int                `json:"qubits"`
	Parameters []float64          `json:"parameters,omitempty"`
	JobID      string             `json:"job_id,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// Value is one labelled scalar result such as an expectation value.
type Value struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Std   float64 `json:"std"`
}

// Run is everything persisted for one execution. Counts go to
// counts.csv, Values to values.csv.
type Run struct {
	Meta   RunMetadata
	Counts quantum.Counts
	Values []Value
}

func (s *Store) Save(run *Run) (string, error) {
	meta := run.Meta
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d", meta.Kind, meta.Timestamp.UnixNano())
	}
	runDir := s.Dir(meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if len(run.Counts) > 0 {
		if err := writeCSV(filepath.Join(runDir, "counts.csv"), CountsRecords(run.Counts)); err != nil {
			return "", err
		}
	}
	if len(run.Values) > 0 {
		if err := writeCSV(filepath.Join(runDir, "values.csv"), ValueRecords(run.Values)); err != nil {
			return "", err
		}
	}

	run.Meta = meta
	return meta.ID, nil
}

// CountsRecords renders counts as CSV rows sorted by bitstring.
func CountsRecords(counts quantum.Counts) [][]string {
	records := [][]string{{"bitstring", "count"}}
	for _, k := range counts.Keys() {
		records = append(records, []string{k, strconv.Itoa(counts[k])})
	}
	return records
}

func ValueRecords(values []Value) [][]string {
	records := [][]string{{"label", "value", "std"}}
	for _, v := range values {
		records = append(records, []string{
			v.Label,
			strconv.FormatFloat(v.Value, 'f', 6, 64),
			strconv.FormatFloat(v.Std, 'f', 6, 64),
		})
	}
	return records
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return f.Close()
}

// List returns every run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadRun reads the metadata and whichever result files exist.
func (s *Store) LoadRun(runID string) (*Run, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	run := &Run{Meta: *meta}
	if run.Counts, err = s.LoadCounts(runID); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if run.Values, err = s.LoadValues(runID); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return run, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, nil
	}
	return records[1:], nil
}

func (s *Store) LoadCounts(runID string) (quantum.Counts, error) {
	records, err := readCSV(filepath.Join(s.Dir(runID), "counts.csv"))
	if err != nil {
		return nil, err
	}
	counts := make(quantum.Counts, len(records))
	for _, record := range records {
		if len(record) < 2 {
			continue
		}
		n, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("counts.csv: %w", err)
		}
		counts[record[0]] = n
	}
	return counts, nil
}

func (s *Store) LoadValues(runID string) ([]Value, error) {
	records, err := readCSV(filepath.Join(s.Dir(runID), "values.csv"))
	if err != nil {
		return nil, err
	}
	values := make([]Value, 0, len(records))
	for _, record := range records {
		if len(record) < 2 {
			continue
		}
		v := Value{Label: record[0]}
		if v.Value, err = strconv.ParseFloat(record[1], 64); err != nil {
			return nil, fmt.Errorf("values.csv: %w", err)
		}
		if len(record) > 2 {
			v.Std, _ = strconv.ParseFloat(record[2], 64)
		}
		values = append(values, v)
	}
	return values, nil
}
