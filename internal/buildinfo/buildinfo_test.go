package buildinfo

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantMajor int
		wantMinor int
		wantID    string
		wantTS    time.Time
		wantDate  string
	}{
		{
			name:      "full label",
			raw:       "simplefx-1842-202406010000 v2.0 June 1 2024",
			wantMajor: 2, wantMinor: 0,
			wantID:   "202406010000",
			wantTS:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			wantDate: "June 1 2024",
		},
		{
			name:      "two digit minor",
			raw:       "app-7-202301151230 v2.10 January 15 2023",
			wantMajor: 2, wantMinor: 10,
			wantID: "202301151230",
			wantTS: time.Date(2023, 1, 15, 12, 30, 0, 0, time.UTC),
			wantDate: "January 15 2023",
		},
		{
			name:      "major only",
			raw:       "app-7-202301010000 v3",
			wantMajor: 3, wantMinor: 0,
			wantID: "202301010000",
			wantTS: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "seconds precision",
			raw:       "tool-99-20240601101530 v1.4 June 1 2024",
			wantMajor: 1, wantMinor: 4,
			wantID: "20240601101530",
			wantTS: time.Date(2024, 6, 1, 10, 15, 30, 0, time.UTC),
			wantDate: "June 1 2024",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if v.Major != tt.wantMajor || v.Minor != tt.wantMinor {
				t.Errorf("version = %d.%d, want %d.%d", v.Major, v.Minor, tt.wantMajor, tt.wantMinor)
			}
			if v.BuildID != tt.wantID {
				t.Errorf("BuildID = %q, want %q", v.BuildID, tt.wantID)
			}
			if !v.Timestamp.Equal(tt.wantTS) {
				t.Errorf("Timestamp = %v, want %v", v.Timestamp, tt.wantTS)
			}
			if v.Date != tt.wantDate {
				t.Errorf("Date = %q, want %q", v.Date, tt.wantDate)
			}
			if v.Raw != tt.raw {
				t.Errorf("Raw = %q, want %q", v.Raw, tt.raw)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"empty", "", ErrNoDash},
		{"no dash", "202406010000 v2.0 June 1 2024", ErrNoDash},
		{"no space", "app-1-202406010000", ErrNoSpace},
		{"dash after space", "app-1 v2.0 June-1", ErrBadSegments},
		{"no version token", "app-1-202406010000 June 1 2024", ErrNoVersion},
		{"non numeric version", "app-1-202406010000 vX.Y June 1 2024", nil},
		{"non timestamp build id", "app-1-abc v2.0 June 1 2024", nil},
		{"three part version", "app-1-202406010000 v2.0.1 June 1 2024", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", tt.raw)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		candidate string
		want      bool
	}{
		{
			name:      "later timestamp same version",
			current:   "app-1-202301010000 v2.0 January 1 2023",
			candidate: "app-2-202406010000 v2.0 June 1 2024",
			want:      true,
		},
		{
			name:      "older version but later timestamp",
			current:   "app-1-202301010000 v2.1 January 1 2023",
			candidate: "app-2-202406010000 v2.0 June 1 2024",
			want:      true,
		},
		{
			name:      "greater version with older timestamp",
			current:   "app-1-202406010000 v2.0 June 1 2024",
			candidate: "app-2-202301010000 v2.1 January 1 2023",
			want:      true,
		},
		{
			name:      "numeric not lexicographic",
			current:   "app-1-202406010000 v2.9 June 1 2024",
			candidate: "app-2-202406010000 v2.10 June 1 2024",
			want:      true,
		},
		{
			name:      "identical",
			current:   "app-1-202406010000 v2.0 June 1 2024",
			candidate: "app-1-202406010000 v2.0 June 1 2024",
			want:      false,
		},
		{
			name:      "older in both",
			current:   "app-1-202406010000 v2.1 June 1 2024",
			candidate: "app-2-202301010000 v2.0 January 1 2023",
			want:      false,
		},
		{
			name:      "malformed candidate",
			current:   "app-1-202301010000 v2.0 January 1 2023",
			candidate: "garbage",
			want:      false,
		},
		{
			name:      "malformed current",
			current:   "no-version-here",
			candidate: "app-2-202406010000 v3.0 June 1 2024",
			want:      false,
		},
		{
			name:      "non numeric major minor",
			current:   "app-1-202301010000 v2.0 January 1 2023",
			candidate: "app-2-202406010000 vtwo.zero June 1 2024",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNewer(tt.current, tt.candidate); got != tt.want {
				t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.current, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestNewerThan_Ordering(t *testing.T) {
	older, err := Parse("app-1-202301010000 v2.0 January 1 2023")
	if err != nil {
		t.Fatal(err)
	}
	newer, err := Parse("app-2-202406010000 v2.0 June 1 2024")
	if err != nil {
		t.Fatal(err)
	}
	if !newer.NewerThan(older) {
		t.Error("expected newer build to be newer than older build")
	}
	if older.NewerThan(newer) {
		t.Error("expected older build not to be newer than newer build")
	}
}

func TestCompareMajorMinor(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"v2.10", "v2.9", 1},
		{"2.9", "v2.10", -1},
		{"v1", "v1.0", 0},
		{"v3.0", "v2.99", 1},
	}
	for _, tt := range tests {
		if got := CompareMajorMinor(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareMajorMinor(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestBuildVersionString(t *testing.T) {
	v, err := Parse("app-1-202406010000 v2.0 June 1 2024")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v.String(), "v2.0 (June 1 2024)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	v, err = Parse("app-1-202406010930 v2.0")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v.String(), "v2.0 (2024-06-01 09:30)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
