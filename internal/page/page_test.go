package page

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		first, after string
		last, before string
		wantErr      bool
		backward     bool
		anchor       uint
		limit        int
	}{
		{"forward with anchor", "30", "12", "", "", false, false, 12, 30},
		{"forward without anchor", "30", "", "", "", false, false, 0, 30},
		{"backward with anchor", "", "", "30", "6", false, true, 6, 30},
		{"backward without anchor", "", "", "30", "", false, true, 0, 30},
		{"neither mode", "", "", "", "", true, false, 0, 0},
		{"both modes", "30", "", "30", "", true, false, 0, 0},
		{"after with last", "", "5", "30", "", true, false, 0, 0},
		{"before with first", "30", "", "", "5", true, false, 0, 0},
		{"non-numeric count", "abc", "", "", "", true, false, 0, 0},
		{"zero count", "0", "", "", "", true, false, 0, 0},
		{"non-numeric anchor", "30", "xyz", "", "", true, false, 0, 0},
		{"zero anchor", "", "", "30", "0", true, false, 0, 0},
		{"count above cap is clamped", "500", "", "", "", false, false, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.first, tt.after, tt.last, tt.before)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if q.Backward() != tt.backward {
				t.Errorf("Backward() = %v, want %v", q.Backward(), tt.backward)
			}
			if q.Anchor() != tt.anchor {
				t.Errorf("Anchor() = %d, want %d", q.Anchor(), tt.anchor)
			}
			if q.Limit() != tt.limit {
				t.Errorf("Limit() = %d, want %d", q.Limit(), tt.limit)
			}
		})
	}
}

func TestConstructors_ClampLimit(t *testing.T) {
	if got := First(0, 0).Limit(); got != DefaultSize {
		t.Errorf("First(0) Limit() = %d, want %d", got, DefaultSize)
	}
	if got := Last(1000, 0).Limit(); got != 100 {
		t.Errorf("Last(1000) Limit() = %d, want 100", got)
	}
	if got := Last(5, 3).Limit(); got != 5 {
		t.Errorf("Last(5) Limit() = %d, want 5", got)
	}
}

func TestReverseInPlace(t *testing.T) {
	s := []int{1, 2, 3, 4}
	ReverseInPlace(s)
	for i, want := range []int{4, 3, 2, 1} {
		if s[i] != want {
			t.Fatalf("ReverseInPlace() = %v", s)
		}
	}

	var empty []int
	ReverseInPlace(empty) // must not panic
}
