package version

import (
	"runtime/debug"
)

type Info struct {
	Commit   string `json:"commit"`
	Time     string `json:"time"`
	Modified bool   `json:"modified,omitempty"`
}

// Version is the short form of the build info used in logs and published state.
var Version = func() string {
	i := Get()
	if i.Commit == "" {
		return "devel"
	}
	v := i.Commit
	if len(v) > 12 {
		v = v[:12]
	}
	if i.Modified {
		v += "-dirty"
	}
	return v
}()

func Get() Info {
	v := Info{}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				v.Commit = setting.Value
			case "vcs.time":
				v.Time = setting.Value
			case "vcs.modified":
				v.Modified = setting.Value == "true"
			}
		}
	}
	return v
}
