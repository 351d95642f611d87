// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded at link time:
//
//	go build -ldflags "-X visaudio/pkg/build.buildName=visaudio \
//	  -X visaudio/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds run with the defaults below.
package build

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingFlags is returned by Initialize when some link-time values are unset.
var ErrMissingFlags = errors.New("build flags missing")

// Info describes the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats the info for version output and the startup log line.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string

	defaults = Info{
		Name:    "visaudio",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
	buildFlags = defaults
)

// Initialize copies every link-time value that is set over the defaults. If
// any are missing the error names them; the remaining defaults stay usable.
func Initialize() error {
	var missing []string
	set := func(dst *string, val, name string) {
		if val == "" {
			missing = append(missing, name)
			return
		}
		*dst = val
	}

	info := defaults
	set(&info.Name, buildName, "BuildName")
	set(&info.Time, buildTime, "BuildTime")
	set(&info.Commit, buildCommit, "BuildCommit")
	set(&info.Version, buildVersion, "BuildVersion")
	buildFlags = info

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFlags, strings.Join(missing, ", "))
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() Info {
	return buildFlags
}
