package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/ransacfit/internal/store"
)

func testInfos(now time.Time) []store.RecordInfo {
	return []store.RecordInfo{
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -10)}, // 10 days old
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -5)},  // 5 days old
		{JobID: "job3", Timestamp: now.AddDate(0, 0, -1)},  // 1 day old
		{JobID: "job4", Timestamp: now.AddDate(0, 0, -30)}, // 30 days old
	}
}

func jobIDs(infos []store.RecordInfo) map[string]bool {
	ids := make(map[string]bool)
	for _, info := range infos {
		ids[info.JobID] = true
	}
	return ids
}

func TestSelectResultsForDeletion_ByAge(t *testing.T) {
	now := time.Now()

	toDelete := selectResultsForDeletion(testInfos(now), 0, 7, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 results to delete, got %d", len(toDelete))
	}
	ids := jobIDs(toDelete)
	if !ids["job1"] || !ids["job4"] {
		t.Error("Expected job1 and job4 to be selected for deletion")
	}
}

func TestSelectResultsForDeletion_ByCount(t *testing.T) {
	now := time.Now()

	toDelete := selectResultsForDeletion(testInfos(now), 2, 0, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 results to delete, got %d", len(toDelete))
	}
	ids := jobIDs(toDelete)
	if !ids["job4"] || !ids["job1"] {
		t.Error("Expected job4 and job1 to be selected for deletion (oldest)")
	}
}

func TestSelectResultsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := append(testInfos(now), store.RecordInfo{JobID: "job5", Timestamp: now.AddDate(0, 0, -2)})

	// job4 and job1 are both too old and beyond the newest three
	toDelete := selectResultsForDeletion(infos, 3, 7, now)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 results to delete without duplicates, got %d", len(toDelete))
	}
}

func TestSelectResultsForDeletion_NothingToDo(t *testing.T) {
	now := time.Now()

	if toDelete := selectResultsForDeletion(testInfos(now), 10, 0, now); len(toDelete) != 0 {
		t.Errorf("Expected nothing to delete, got %d", len(toDelete))
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	content := []byte("Hello, World!")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}

	if size < int64(len(content)) {
		t.Errorf("Expected size >= %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func saveTestRecord(t *testing.T, dir, jobID string, age time.Duration) {
	t.Helper()

	resultStore, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	record, err := store.NewRecord(jobID, []float64{2, -1, 1}, []bool{true, true, false}, 0.1, 10, store.RunConfig{
		Model:    "line",
		DataPath: "points.txt",
		Trials:   10,
		MaxError: 0.5,
	})
	if err != nil {
		t.Fatalf("Failed to build record: %v", err)
	}
	record.Timestamp = time.Now().Add(-age)

	if err := resultStore.SaveResult(jobID, record); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}
}

func TestResultsListCommand(t *testing.T) {
	tmpDir := t.TempDir()

	originalDataDir := resultsDataDir
	resultsDataDir = tmpDir
	defer func() { resultsDataDir = originalDataDir }()

	if err := runListResults(nil, nil); err != nil {
		t.Errorf("Expected no error on empty store, got %v", err)
	}

	saveTestRecord(t, tmpDir, "test-job-id", 0)
	if err := runListResults(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestResultsCleanCommand_NoFlags(t *testing.T) {
	tmpDir := t.TempDir()

	originalDataDir := resultsDataDir
	resultsDataDir = tmpDir
	defer func() { resultsDataDir = originalDataDir }()

	keepLast = 0
	olderThanDays = 0

	if err := runCleanResults(nil, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestResultsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()

	saveTestRecord(t, tmpDir, "old-job", 30*24*time.Hour)
	saveTestRecord(t, tmpDir, "new-job", 0)

	originalDataDir := resultsDataDir
	resultsDataDir = tmpDir
	defer func() { resultsDataDir = originalDataDir }()

	keepLast = 0
	olderThanDays = 7
	forceClean = true
	defer func() {
		olderThanDays = 0
		forceClean = false
	}()

	if err := runCleanResults(nil, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	resultStore, _ := store.NewFSStore(tmpDir)
	if _, err := resultStore.LoadResult("old-job"); err == nil {
		t.Error("Expected old result to be deleted")
	}
	if _, err := resultStore.LoadResult("new-job"); err != nil {
		t.Errorf("New result should survive: %v", err)
	}
}
