package storage

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"schedbench/core/dataset"
	"schedbench/core/models"
)

func sampleRow(expID, policy string, metrics map[string]float64) *models.ResultRow {
	return &models.ResultRow{
		ExperimentID: expID,
		Policy:       policy,
		Request: models.Request{
			PolicyName:            policy,
			CPUWorkers:            4,
			CPUMethod:             "matrixprod",
			DurationSeconds:       30,
			SampleIntervalSeconds: 1,
		},
		Metrics:    metrics,
		RecordedAt: time.Now(),
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}

func TestAppendResultCreatesAndAppends(t *testing.T) {
	e := NewCSVExporter(t.TempDir())
	if err := e.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}

	metrics := map[string]float64{
		"average_turnaround_time": 4.5,
		"cpu_percent_avg":         62.5,
	}
	if err := e.AppendResult(sampleRow("exp-1", "CFS", metrics)); err != nil {
		t.Fatalf("first AppendResult: %v", err)
	}
	if err := e.AppendResult(sampleRow("exp-2", "bpfland", metrics)); err != nil {
		t.Fatalf("second AppendResult: %v", err)
	}

	records := readCSV(t, e.ResultsPath())
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}

	header := records[0]
	// Identity columns lead, metric columns follow sorted.
	if header[0] != "exp_id" || header[1] != "policy" {
		t.Errorf("header starts %v, want exp_id, policy", header[:2])
	}
	wantCols := len(models.IdentityColumns()) + len(metrics)
	if len(header) != wantCols {
		t.Errorf("header has %d columns, want %d", len(header), wantCols)
	}

	col := indexOf(header, "average_turnaround_time")
	if col < 0 {
		t.Fatal("metric column missing from header")
	}
	if records[1][col] != "4.5" {
		t.Errorf("metric cell = %q, want 4.5", records[1][col])
	}
	if records[2][0] != "exp-2" {
		t.Errorf("second row exp_id = %q, want exp-2", records[2][0])
	}
}

// A row carrying a metric the existing header does not know must not
// corrupt the file; the unknown column is dropped.
func TestAppendResultProjectsOntoExistingHeader(t *testing.T) {
	e := NewCSVExporter(t.TempDir())
	if err := e.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}

	if err := e.AppendResult(sampleRow("exp-1", "CFS", map[string]float64{"cv_fairness": 0.1})); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}
	if err := e.AppendResult(sampleRow("exp-2", "CFS", map[string]float64{
		"cv_fairness": 0.2,
		"novel_key":   99,
	})); err != nil {
		t.Fatalf("AppendResult with extra key: %v", err)
	}

	records := readCSV(t, e.ResultsPath())
	width := len(records[0])
	for i, rec := range records {
		if len(rec) != width {
			t.Errorf("row %d has %d cells, want %d", i, len(rec), width)
		}
	}
	if indexOf(records[0], "novel_key") != -1 {
		t.Error("novel_key leaked into the header")
	}
}

func TestWriteWorkerDumps(t *testing.T) {
	e := NewCSVExporter(t.TempDir())
	if err := e.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}

	first := 1.5
	completion := 3.5
	tat := 2.5
	dumps := []models.WorkerDump{
		{PID: 10, Arrival: 1.0, FirstCPU: &first, Completion: &completion, Turnaround: &tat, TotalCPUTime: 0.8},
		{PID: 11, Arrival: 2.0, TotalCPUTime: 0},
	}
	if err := e.WriteWorkerDumps("exp-1", dumps); err != nil {
		t.Fatalf("WriteWorkerDumps: %v", err)
	}

	records := readCSV(t, e.WorkerDumpPath("exp-1"))
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}
	if records[1][0] != "10" || records[1][1] != "1" || records[1][4] != "2.5" {
		t.Errorf("complete row = %v", records[1])
	}
	// Censored worker: empty first_cpu/completion/turnaround/response.
	if records[2][2] != "" || records[2][3] != "" || records[2][4] != "" || records[2][5] != "" {
		t.Errorf("censored row has non-empty derived cells: %v", records[2])
	}
}

func TestWriteTrainingData(t *testing.T) {
	e := NewCSVExporter(t.TempDir())
	if err := e.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}

	rows := []dataset.TrainingRow{
		{
			ConfigKey:        "4_matrixprod_0_0_0_30",
			CurrentPolicy:    "CFS",
			TargetPolicy:     "bpfland",
			DifferentialCost: -1.5,
			CurrentFeatures:  map[string]float64{"cpu_percent_avg": 80},
			TargetFeatures:   map[string]float64{"cpu_percent_avg": 60},
		},
	}
	path, err := e.WriteTrainingData(rows, []string{"cpu_percent_avg"})
	if err != nil {
		t.Fatalf("WriteTrainingData: %v", err)
	}

	records := readCSV(t, path)
	wantHeader := []string{
		"config_key", "current_policy", "target_policy", "differential_cost",
		"current_cpu_percent_avg", "target_cpu_percent_avg",
	}
	if len(records[0]) != len(wantHeader) {
		t.Fatalf("header = %v, want %v", records[0], wantHeader)
	}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}
	if records[1][3] != "-1.5" || records[1][4] != "80" || records[1][5] != "60" {
		t.Errorf("data row = %v", records[1])
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
