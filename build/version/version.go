// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package version provides information about mongohelper version and build configuration.
//
// Version information is read from the Go build info,
// so it is accurate for "go install ...@version" builds and for builds within a VCS checkout.
package version

import (
	"runtime"
	runtimedebug "runtime/debug"

	"github.com/FerretDB/mongohelper/internal/util/debugbuild"
)

// Info provides details about the current build.
type Info struct {
	Version          string
	Commit           string
	Dirty            bool
	DebugBuild       bool
	BuildEnvironment map[string]string
}

// unknown is a placeholder for unknown version and commit values.
const unknown = "unknown"

// module is the module path from go.mod.
const module = "github.com/FerretDB/mongohelper"

// info singleton instance set by init().
var info *Info

// Get returns current build's info.
//
// It returns a shared instance without any synchronization.
// If caller needs to modify the instance, it should make sure there is no concurrent accesses.
func Get() *Info {
	return info
}

func init() {
	info = &Info{
		Version:    unknown,
		Commit:     unknown,
		DebugBuild: debugbuild.Enabled,
		BuildEnvironment: map[string]string{
			"go.runtime": runtime.Version(),
		},
	}

	buildInfo, ok := runtimedebug.ReadBuildInfo()
	if !ok {
		return
	}

	info.BuildEnvironment["go.version"] = buildInfo.GoVersion

	switch {
	case buildInfo.Main.Path == module:
		if v := buildInfo.Main.Version; v != "" && v != "(devel)" {
			info.Version = v
		}

	default:
		// embedded into another program
		for _, dep := range buildInfo.Deps {
			if dep.Path == module && dep.Version != "" {
				info.Version = dep.Version
			}
		}
	}

	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "-race", "-tags", "CGO_ENABLED", "GOARCH", "GOOS":
			info.BuildEnvironment[s.Key] = s.Value
		}
	}
}
