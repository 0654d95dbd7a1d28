// Package storage persists run artifacts to the results directory as CSV
// files, alongside the database rows the repositories own.
package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"schedbench/core/dataset"
	"schedbench/core/models"
)

// CSVExporter writes result rows, worker dumps and training data under
// one directory. All methods serialize through a mutex so concurrent
// exports cannot interleave rows.
type CSVExporter struct {
	dir string
	mu  sync.Mutex
}

// NewCSVExporter creates an exporter rooted at dir.
func NewCSVExporter(dir string) *CSVExporter {
	return &CSVExporter{dir: dir}
}

// EnsureDir creates the results directory.
func (e *CSVExporter) EnsureDir() error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create results dir: %w", err)
	}
	return nil
}

// ResultsPath returns the aggregate results file location.
func (e *CSVExporter) ResultsPath() string {
	return filepath.Join(e.dir, "results.csv")
}

// WorkerDumpPath returns the per-experiment worker dump location.
func (e *CSVExporter) WorkerDumpPath(expID string) string {
	return filepath.Join(e.dir, "workers_"+expID+".csv")
}

// TrainingDataPath returns the training dataset location.
func (e *CSVExporter) TrainingDataPath() string {
	return filepath.Join(e.dir, "training_data.csv")
}

// AppendResult appends one flat row to results.csv, creating the file
// with a header on first write. On an existing file the row is projected
// onto the file's header so older files keep their column order; fields
// the header does not know are dropped rather than corrupting the file.
func (e *CSVExporter) AppendResult(row *models.ResultRow) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	path := e.ResultsPath()
	flat := row.Flatten()

	header, err := readHeader(path)
	if os.IsNotExist(err) || err == io.EOF {
		header = append(models.IdentityColumns(), row.MetricKeys()...)
		if err := writeHeader(path, header); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	record := make([]string, len(header))
	for i, col := range header {
		record[i] = flat[col]
	}
	w := csv.NewWriter(f)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("failed to append result row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// WriteWorkerDumps writes the per-pid lifecycle CSV for one experiment,
// replacing any previous dump. Censored fields stay empty.
func (e *CSVExporter) WriteWorkerDumps(expID string, dumps []models.WorkerDump) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := os.Create(e.WorkerDumpPath(expID))
	if err != nil {
		return fmt.Errorf("failed to create worker dump: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"pid", "arrival_time", "first_cpu_time", "completion_time",
		"turnaround_time", "response_time", "total_cpu_time",
	}); err != nil {
		return err
	}
	for _, d := range dumps {
		record := []string{
			strconv.Itoa(d.PID),
			formatFloat(d.Arrival),
			formatFloatPtr(d.FirstCPU),
			formatFloatPtr(d.Completion),
			formatFloatPtr(d.Turnaround),
			formatFloatPtr(d.Response),
			formatFloat(d.TotalCPUTime),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteTrainingData writes the full training dataset, replacing any
// previous file, and returns its path.
func (e *CSVExporter) WriteTrainingData(rows []dataset.TrainingRow, featureKeys []string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	path := e.TrainingDataPath()
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create training data file: %w", err)
	}
	defer f.Close()

	header := []string{"config_key", "current_policy", "target_policy", "differential_cost"}
	for _, k := range featureKeys {
		header = append(header, "current_"+k)
	}
	for _, k := range featureKeys {
		header = append(header, "target_"+k)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, row := range rows {
		record := []string{
			row.ConfigKey,
			row.CurrentPolicy,
			row.TargetPolicy,
			formatFloat(row.DifferentialCost),
		}
		for _, k := range featureKeys {
			record = append(record, formatFloat(row.CurrentFeatures[k]))
		}
		for _, k := range featureKeys {
			record = append(record, formatFloat(row.TargetFeatures[k]))
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return path, w.Error()
}

func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).Read()
}

func writeHeader(path string, header []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
