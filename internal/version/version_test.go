package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestBanner(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	origNoColor := color.NoColor
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
		color.NoColor = origNoColor
	})
	color.NoColor = true

	tests := []struct {
		version, commit, date string
		want                  string
	}{
		{version: "0.1.0-dev", want: "patchwork 0.1.0-dev"},
		{version: "1.2.3", commit: "abc123", want: "patchwork 1.2.3 (abc123)"},
		{version: "1.2.3+build.7", date: "2026-01-15", want: "patchwork 1.2.3+build.7 built 2026-01-15"},
		{version: "nightly", want: "patchwork nightly"},
	}
	for _, tt := range tests {
		Version, GitCommit, BuildDate = tt.version, tt.commit, tt.date
		if got := Banner(); got != tt.want {
			t.Errorf("Banner() = %q, want %q", got, tt.want)
		}
	}
}
