package store

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewRecord(t *testing.T) {
	mask := make([]bool, 1000)
	for i := 100; i < 400; i++ {
		mask[i] = true
	}
	mask[999] = true

	record, err := NewRecord("job", []float64{1, 2, 3}, mask, 0.5, 10, RunConfig{Model: "line", Trials: 10, MaxError: 1})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}

	if record.Inliers != 301 {
		t.Errorf("Expected 301 inliers, got %d", record.Inliers)
	}
	if record.Points != 1000 {
		t.Errorf("Expected 1000 points, got %d", record.Points)
	}
	if record.Model != "line" {
		t.Errorf("Model = %q, want line", record.Model)
	}
	if record.InlierSet == "" {
		t.Fatal("InlierSet should be encoded")
	}
	if err := record.Validate(); err != nil {
		t.Errorf("New record should validate: %v", err)
	}

	idx, err := record.Indices()
	if err != nil {
		t.Fatalf("Indices failed: %v", err)
	}
	if idx[0] != 100 || idx[len(idx)-1] != 999 {
		t.Errorf("Unexpected index range %d..%d", idx[0], idx[len(idx)-1])
	}
}

func TestNewRecord_NoModel(t *testing.T) {
	record, err := NewRecord("job", nil, nil, 0, 10, RunConfig{Model: "hom", Trials: 10, MaxError: 1})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if record.Found() {
		t.Error("Record without params should not be found")
	}
	if record.InlierSet != "" {
		t.Error("Empty inlier set should not be encoded")
	}
	mask, err := record.Mask()
	if err != nil || len(mask) != 0 {
		t.Errorf("Expected empty mask, got %v (%v)", mask, err)
	}
	if err := record.Validate(); err != nil {
		t.Errorf("Record without a model should validate: %v", err)
	}
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	original := createTestRecord(t, "json-job")

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.InlierSet != original.InlierSet {
		t.Error("InlierSet changed through JSON")
	}
	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp mismatch: %v vs %v", decoded.Timestamp, original.Timestamp)
	}
	if err := decoded.Validate(); err != nil {
		t.Errorf("Decoded record should validate: %v", err)
	}
}

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Record)
		field  string
	}{
		{name: "empty job id", modify: func(r *Record) { r.JobID = "" }, field: "JobID"},
		{name: "empty model", modify: func(r *Record) { r.Model = "" }, field: "Model"},
		{name: "negative inliers", modify: func(r *Record) { r.Inliers = -1 }, field: "Inliers"},
		{name: "too many inliers", modify: func(r *Record) { r.Inliers = 6 }, field: "Inliers"},
		{name: "missing params", modify: func(r *Record) { r.Params = nil }, field: "Params"},
		{name: "zero timestamp", modify: func(r *Record) { r.Timestamp = time.Time{} }, field: "Timestamp"},
		{name: "zero trials", modify: func(r *Record) { r.Config.Trials = 0 }, field: "Config.Trials"},
		{name: "zero max error", modify: func(r *Record) { r.Config.MaxError = 0 }, field: "Config.MaxError"},
		{name: "corrupt inlier set", modify: func(r *Record) { r.InlierSet = "!!!" }, field: "InlierSet"},
		{name: "inlier count mismatch", modify: func(r *Record) { r.Inliers = 2 }, field: "InlierSet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := createTestRecord(t, "job")
			tt.modify(record)

			err := record.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %s, want %s", verr.Field, tt.field)
			}
		})
	}
}

func TestRecord_MaskOutOfRange(t *testing.T) {
	record := createTestRecord(t, "job")
	record.Points = 2

	if _, err := record.Mask(); err == nil {
		t.Error("Expected error for index beyond point count")
	}
}

func TestRecord_IsCompatible(t *testing.T) {
	record := createTestRecord(t, "job")

	if err := record.IsCompatible("line", 3); err != nil {
		t.Errorf("Expected compatible, got %v", err)
	}

	var cerr *CompatibilityError
	if err := record.IsCompatible("hom", 3); !errors.As(err, &cerr) || cerr.Field != "Model" {
		t.Errorf("Expected Model mismatch, got %v", err)
	}
	if err := record.IsCompatible("line", 9); !errors.As(err, &cerr) || cerr.Field != "Params" {
		t.Errorf("Expected Params mismatch, got %v", err)
	}
}

func TestRecord_ToInfo(t *testing.T) {
	record := createTestRecord(t, "info-job")
	info := record.ToInfo()

	if info.JobID != "info-job" || info.Model != "line" {
		t.Errorf("Unexpected info identity: %+v", info)
	}
	if info.Inliers != 3 || info.Points != 5 || !info.Found {
		t.Errorf("Unexpected info counts: %+v", info)
	}
	if info.DataPath != "testdata/points.txt" {
		t.Errorf("DataPath = %s", info.DataPath)
	}
}
