// Package storage persists relaxation runs. Each run gets a directory
// holding metadata.json, points.csv (final mesh) and history.csv
// (per-iteration statistics).
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/msmseg/internal/config"
	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/relax"
	"gonum.org/v1/gonum/spatial/r3"
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

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	State      string             `json:"state"`
	Iterations int                `json:"iterations"`
	Points     int                `json:"points"`
	Error      string             `json:"error,omitempty"`
	Config     *config.Config     `json:"config"`
	Metrics    map[string]float64 `json:"metrics"`
}

// PointRecord is one row of points.csv.
type PointRecord struct {
	ID           int
	Ring, Lon    int
	X, Y, Z      float64
	Displacement float64
	OutOfBounds  int
}

var (
	pointsHeader  = []string{"id", "ring", "lon", "x", "y", "z", "displacement", "out_of_bounds"}
	historyHeader = []string{"iteration", "max_displacement", "mean_displacement", "kinetic_energy", "out_of_bounds", "total_out_of_bounds"}
)

func (s *Store) Save(name string, cfg *config.Config, result *relax.Result) (string, error) {
	if result == nil || result.Mesh == nil {
		return "", fmt.Errorf("storage: nothing to save")
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Name:       name,
		Timestamp:  now,
		State:      result.State.String(),
		Iterations: result.Iterations,
		Points:     result.Mesh.Len(),
		Config:     cfg,
		Metrics:    result.Metrics,
	}
	if result.Err != nil {
		meta.Error = result.Err.Error()
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	rows := make([][]string, 0, result.Mesh.Len())
	for i, p := range result.Mesh.Points {
		disp := 0.0
		if i < len(result.Displacement) {
			disp = result.Displacement[i]
		}
		rows = append(rows, []string{
			strconv.Itoa(p.ID),
			strconv.Itoa(p.Ring),
			strconv.Itoa(p.Lon),
			formatFloat(p.Pos.X),
			formatFloat(p.Pos.Y),
			formatFloat(p.Pos.Z),
			formatFloat(disp),
			strconv.Itoa(result.OutOfBounds[p.ID]),
		})
	}
	if err := writeCSV(filepath.Join(runDir, "points.csv"), pointsHeader, rows); err != nil {
		return "", err
	}

	rows = rows[:0]
	for _, h := range result.History {
		rows = append(rows, []string{
			strconv.Itoa(h.Iteration),
			formatFloat(h.MaxDisplacement),
			formatFloat(h.MeanDisplacement),
			formatFloat(h.KineticEnergy),
			strconv.Itoa(h.OutOfBounds),
			strconv.Itoa(h.TotalOutOfBounds),
		})
	}
	if err := writeCSV(filepath.Join(runDir, "history.csv"), historyHeader, rows); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns the metadata of every readable run, oldest first.
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
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadPoints(runID string) ([]PointRecord, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, "points.csv"))
	if err != nil {
		return nil, err
	}

	points := make([]PointRecord, 0, len(records))
	for line, rec := range records {
		if len(rec) < len(pointsHeader) {
			return nil, fmt.Errorf("storage: points.csv line %d has %d fields", line+2, len(rec))
		}
		var p PointRecord
		ints := []*int{&p.ID, &p.Ring, &p.Lon}
		for i, dst := range ints {
			if *dst, err = strconv.Atoi(rec[i]); err != nil {
				return nil, fmt.Errorf("storage: points.csv line %d: %w", line+2, err)
			}
		}
		floats := []*float64{&p.X, &p.Y, &p.Z, &p.Displacement}
		for i, dst := range floats {
			if *dst, err = strconv.ParseFloat(rec[3+i], 64); err != nil {
				return nil, fmt.Errorf("storage: points.csv line %d: %w", line+2, err)
			}
		}
		if p.OutOfBounds, err = strconv.Atoi(rec[7]); err != nil {
			return nil, fmt.Errorf("storage: points.csv line %d: %w", line+2, err)
		}
		points = append(points, p)
	}
	return points, nil
}

// LoadMesh rebuilds the final mesh of a run: the spring topology is
// regenerated from the stored configuration and the positions come from
// points.csv.
func (s *Store) LoadMesh(runID string) (*mesh.Mesh, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	if meta.Config == nil {
		return nil, fmt.Errorf("storage: run %s has no configuration", runID)
	}
	params, err := meta.Config.MeshParams()
	if err != nil {
		return nil, err
	}
	m, err := mesh.Generate(params)
	if err != nil {
		return nil, err
	}

	points, err := s.LoadPoints(runID)
	if err != nil {
		return nil, err
	}
	if len(points) != m.Len() {
		return nil, fmt.Errorf("storage: run %s has %d points, configuration gives %d", runID, len(points), m.Len())
	}
	pos := m.Positions()
	for _, p := range points {
		if p.ID < 0 || p.ID >= len(pos) {
			return nil, fmt.Errorf("storage: run %s: point id %d out of range", runID, p.ID)
		}
		pos[p.ID] = r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
	}
	if err := m.SetState(pos, m.Velocities()); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) LoadHistory(runID string) ([]relax.IterationStats, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, "history.csv"))
	if err != nil {
		return nil, err
	}

	history := make([]relax.IterationStats, 0, len(records))
	for line, rec := range records {
		if len(rec) < len(historyHeader) {
			return nil, fmt.Errorf("storage: history.csv line %d has %d fields", line+2, len(rec))
		}
		var h relax.IterationStats
		var err error
		if h.Iteration, err = strconv.Atoi(rec[0]); err != nil {
			return nil, fmt.Errorf("storage: history.csv line %d: %w", line+2, err)
		}
		floats := []*float64{&h.MaxDisplacement, &h.MeanDisplacement, &h.KineticEnergy}
		for i, dst := range floats {
			if *dst, err = strconv.ParseFloat(rec[1+i], 64); err != nil {
				return nil, fmt.Errorf("storage: history.csv line %d: %w", line+2, err)
			}
		}
		if h.OutOfBounds, err = strconv.Atoi(rec[4]); err != nil {
			return nil, fmt.Errorf("storage: history.csv line %d: %w", line+2, err)
		}
		if h.TotalOutOfBounds, err = strconv.Atoi(rec[5]); err != nil {
			return nil, fmt.Errorf("storage: history.csv line %d: %w", line+2, err)
		}
		history = append(history, h)
	}
	return history, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

// readCSV returns the data rows, header excluded.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]string{}, nil
	}
	return records[1:], nil
}
