package version

import "runtime/debug"

// Version is the version of this module, as recorded in the binary's build
// information.
var Version = "0.0.0-dev"

// ModulePath is the import path of this module.
const ModulePath = "github.com/dogmatiq/transmission"

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Path == ModulePath && info.Main.Version != "(devel)" && info.Main.Version != "" {
			Version = info.Main.Version
		}

		for _, dep := range info.Deps {
			if dep.Path == ModulePath {
				Version = dep.Version
			}
		}
	}
}
