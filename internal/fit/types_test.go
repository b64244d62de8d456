package fit

import "testing"

func TestDefaultRefineOptions(t *testing.T) {
	ro := DefaultRefineOptions()
	if ro.Enabled {
		t.Error("Refinement should be disabled by default")
	}
	if ro.PopSize < 20 {
		t.Errorf("Population %d is below the optimizer minimum", ro.PopSize)
	}

	ro.Enabled = true
	if err := (Options{Refine: ro}).Validate(); err != nil {
		t.Errorf("Default refine options should validate: %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*RefineOptions)
		wantErr bool
	}{
		{name: "valid", modify: func(*RefineOptions) {}},
		{name: "zero passes", modify: func(r *RefineOptions) { r.Passes = 0 }, wantErr: true},
		{name: "negative radius", modify: func(r *RefineOptions) { r.Radius = -1 }, wantErr: true},
		{name: "zero iters", modify: func(r *RefineOptions) { r.Iters = 0 }, wantErr: true},
		{name: "disabled ignores fields", modify: func(r *RefineOptions) { r.Enabled = false; r.Passes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ro := DefaultRefineOptions()
			ro.Enabled = true
			tt.modify(&ro)
			err := Options{Refine: ro}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
