package version

import "runtime/debug"

var version = "devel"

func Version() string {
	if version == "devel" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if v := info.Main.Version; v != "" && v != "(devel)" {
				return v
			}
		}
	}
	return version
}
