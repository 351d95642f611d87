// SPDX-License-Identifier: MIT
package build

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	origName, origTime, origCommit, origVersion := buildName, buildTime, buildCommit, buildVersion
	origFlags := buildFlags

	exitCode := m.Run()

	buildName, buildTime, buildCommit, buildVersion = origName, origTime, origCommit, origVersion
	buildFlags = origFlags

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantMissing string
		want        Info
	}{
		{
			"Missing BuildName",
			"",
			"2025-04-13",
			"abcdef123",
			"v1.0.0",
			"BuildName",
			Info{Name: "visaudio", Time: "2025-04-13", Commit: "abcdef123", Version: "v1.0.0"},
		},
		{
			"Missing BuildCommit and BuildVersion",
			"testapp",
			"2025-04-13",
			"",
			"",
			"BuildCommit, BuildVersion",
			Info{Name: "testapp", Time: "2025-04-13", Commit: "unknown", Version: "dev"},
		},
		{
			"Nothing set",
			"", "", "", "",
			"BuildName, BuildTime, BuildCommit, BuildVersion",
			defaults,
		},
		{
			"Success Case",
			"testapp",
			"2025-04-13",
			"abcdef123",
			"v1.0.0",
			"",
			Info{Name: "testapp", Time: "2025-04-13", Commit: "abcdef123", Version: "v1.0.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantMissing != "" {
				if !errors.Is(err, ErrMissingFlags) {
					t.Fatalf("Initialize() error = %v, want ErrMissingFlags", err)
				}
				if !strings.HasSuffix(err.Error(), tt.wantMissing) {
					t.Errorf("Initialize() error = %q, want it to end with %q", err, tt.wantMissing)
				}
			} else if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}

			if got := GetBuildFlags(); got != tt.want {
				t.Errorf("GetBuildFlags() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Name: "visaudio", Time: "2025-04-13", Commit: "abcdef1", Version: "v0.3.0"}
	want := "visaudio v0.3.0 (commit abcdef1, built 2025-04-13)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
