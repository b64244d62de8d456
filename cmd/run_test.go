package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ransacfit/internal/config"
	"github.com/cwbudde/ransacfit/internal/fit"
	"github.com/cwbudde/ransacfit/internal/models"
	"github.com/cwbudde/ransacfit/internal/ransac"
	"github.com/cwbudde/ransacfit/internal/store"
)

// writePoints writes ten points on y = 2x + 1 and three outliers.
func writePoints(t *testing.T, dir string) string {
	t.Helper()

	var sb strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, "%d %d\n", i, 2*i+1)
	}
	sb.WriteString("3 20\n7 -5\n1 15\n")

	path := filepath.Join(dir, "points.txt")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("Failed to write points: %v", err)
	}
	return path
}

func fitPoints(t *testing.T, path string, rc config.RunConfig) *fit.Result {
	t.Helper()

	spec, err := models.Lookup(rc.Model)
	if err != nil {
		t.Fatal(err)
	}
	ds, err := loadData(path, spec.DataDim)
	if err != nil {
		t.Fatal(err)
	}
	res, err := fit.Fit(context.Background(), ds, spec, fitOptions(rc))
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	return res
}

func lineRunConfig() config.RunConfig {
	return config.RunConfig{Model: "line", Trials: 50, MaxError: 0.01, MinInliers: 5, Seed: 42, Workers: 1}
}

func TestRunSettings_FlagsOverrideFile(t *testing.T) {
	c := &cobra.Command{}
	c.Flags().IntVar(&trials, "trials", 0, "")
	c.Flags().StringVar(&modelName, "model", "", "")
	c.Flags().Float64Var(&maxError, "max-error", 0, "")

	if err := c.Flags().Set("trials", "7"); err != nil {
		t.Fatal(err)
	}

	file := config.RunConfig{Model: "hom", Trials: 500, MaxError: 2, Workers: 3}
	rc := runSettings(c, file)

	if rc.Trials != 7 {
		t.Errorf("Explicit flag should win, got %d trials", rc.Trials)
	}
	if rc.Model != "hom" || rc.MaxError != 2 || rc.Workers != 3 {
		t.Errorf("Unset flags should keep file values, got %+v", rc)
	}
}

func TestReport(t *testing.T) {
	res := fitPoints(t, writePoints(t, t.TempDir()), lineRunConfig())

	var buf bytes.Buffer
	if err := report(&buf, res); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %q", buf.String())
	}
	if lines[0] != "RANSAC found a model with 10 inliers" {
		t.Errorf("Unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "parameters = ") || len(strings.Fields(lines[1])) != 5 {
		t.Errorf("Expected three parameters, got %q", lines[1])
	}
}

func TestReport_NoModel(t *testing.T) {
	rc := lineRunConfig()
	rc.MinInliers = 100
	res := fitPoints(t, writePoints(t, t.TempDir()), rc)

	var buf bytes.Buffer
	if err := report(&buf, res); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "RANSAC found no model\n" {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestFormatParams(t *testing.T) {
	if got := formatParams([]float64{1, -0.5, 2e-10}); got != "1 -0.5 2e-10" {
		t.Errorf("formatParams = %q", got)
	}
	if got := formatParams(nil); got != "" {
		t.Errorf("formatParams(nil) = %q", got)
	}
}

func TestSaveRunAndScore(t *testing.T) {
	dir := t.TempDir()
	path := writePoints(t, dir)
	rc := lineRunConfig()
	res := fitPoints(t, path, rc)

	dataDir := filepath.Join(dir, "data")
	jobID, err := saveRun(dataDir, rc, path, 13, res)
	if err != nil {
		t.Fatalf("saveRun failed: %v", err)
	}

	resultStore, _ := store.NewFSStore(dataDir)
	record, err := resultStore.LoadResult(jobID)
	if err != nil {
		t.Fatalf("Saved result should load: %v", err)
	}
	if record.Inliers != 10 || record.Points != 13 {
		t.Errorf("Unexpected record counts %d/%d", record.Inliers, record.Points)
	}

	sc, err := scoreRecord(record, path, 0)
	if err != nil {
		t.Fatalf("scoreRecord failed: %v", err)
	}
	if sc.count != 10 || len(sc.mask) != 13 {
		t.Errorf("Rescoring should reproduce the fit, got %d of %d", sc.count, len(sc.mask))
	}
	if !sc.compared || sc.stored != 10 || sc.kept != 10 {
		t.Errorf("Stored consensus should be kept, got compared=%v %d/%d", sc.compared, sc.kept, sc.stored)
	}

	// A looser threshold admits no fewer points
	loose, err := scoreRecord(record, path, 100)
	if err != nil {
		t.Fatal(err)
	}
	if loose.count < sc.count {
		t.Errorf("Looser threshold lost inliers: %d < %d", loose.count, sc.count)
	}

	var buf bytes.Buffer
	if err := printScore(&buf, sc); err != nil {
		t.Fatal(err)
	}
	want := "10 of 13 points are inliers\n10 of 10 stored inliers are still inliers\n"
	if buf.String() != want {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestScoreRecord_TighterThreshold(t *testing.T) {
	dir := t.TempDir()
	path := writePoints(t, dir)
	rc := lineRunConfig()
	res := fitPoints(t, path, rc)

	dataDir := filepath.Join(dir, "data")
	jobID, err := saveRun(dataDir, rc, path, 13, res)
	if err != nil {
		t.Fatal(err)
	}
	resultStore, _ := store.NewFSStore(dataDir)
	record, err := resultStore.LoadResult(jobID)
	if err != nil {
		t.Fatal(err)
	}

	// A vanishing threshold can only shrink the stored consensus
	sc, err := scoreRecord(record, path, 1e-300)
	if err != nil {
		t.Fatal(err)
	}
	if !sc.compared || sc.stored != 10 {
		t.Fatalf("Expected comparison against 10 stored inliers, got %v/%d", sc.compared, sc.stored)
	}
	if sc.kept > sc.count || sc.kept > sc.stored {
		t.Errorf("Kept inliers %d exceed new %d or stored %d", sc.kept, sc.count, sc.stored)
	}
}

func TestPrintScore_NoComparison(t *testing.T) {
	var buf bytes.Buffer
	sc := &scoreResult{data: ransac.NewDataset([]float64{0, 0, 1, 1}, 2), mask: []bool{true, false}, count: 1}
	if err := printScore(&buf, sc); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "1 of 2 points are inliers\n" {
		t.Errorf("Unexpected output %q", buf.String())
	}
}

func TestScoreRecord_Incompatible(t *testing.T) {
	dir := t.TempDir()
	path := writePoints(t, dir)

	record, err := store.NewRecord("job", []float64{1, 2}, []bool{true}, 0, 1, store.RunConfig{Model: "line", Trials: 1, MaxError: 1})
	if err != nil {
		t.Fatal(err)
	}
	_, err = scoreRecord(record, path, 0)

	var compat *store.CompatibilityError
	if !errors.As(err, &compat) {
		t.Errorf("Expected CompatibilityError, got %v", err)
	}

	empty := &store.Record{JobID: "none", Model: "line"}
	if _, err := scoreRecord(empty, path, 0); err == nil {
		t.Error("Expected error for a record without a model")
	}
}

func TestPrintModels(t *testing.T) {
	var buf bytes.Buffer
	if err := printModels(&buf); err != nil {
		t.Fatal(err)
	}
	for _, name := range models.Names() {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("Model %s missing from listing", name)
		}
	}
}

func TestGetJobStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/jobs/abc/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"abc","state":"completed","params":[2,-1,1],"inliers":10,"points":13,"trialsDone":50,"elapsed":0.5,"config":{"model":"line","dataPath":"p.txt","trials":50}}`)
	}))
	defer ts.Close()

	var buf bytes.Buffer
	if err := getJobStatus(&buf, ts.URL+"/api/v1/jobs/abc/status", "abc"); err != nil {
		t.Fatalf("getJobStatus failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Inliers: 10 / 13") || !strings.Contains(out, "Parameters: 2 -1 1") {
		t.Errorf("Unexpected status output:\n%s", out)
	}

	err := getJobStatus(&buf, ts.URL+"/api/v1/jobs/missing/status", "missing")
	if err == nil || !strings.Contains(err.Error(), "job not found") {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestListJobs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer ts.Close()

	var buf bytes.Buffer
	if err := listJobs(&buf, ts.URL); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "No jobs found\n" {
		t.Errorf("Unexpected output %q", buf.String())
	}
}
