package system

import (
	"runtime"

	"github.com/acobaugh/osrelease"
)

type Information struct {
	Version      string `json:"version"`
	OS           string `json:"os"`
	OSRelease    string `json:"os_release"`
	Architecture string `json:"architecture"`
	CpuCount     int    `json:"cpu_count"`
}

// GetSystemInformation returns basic details about the host that hangar is
// running on. Hosts without an os-release file (such as macOS) report an
// empty release name.
func GetSystemInformation() *Information {
	s := &Information{
		Version:      Version,
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		CpuCount:     runtime.NumCPU(),
	}
	if release, err := osrelease.Read(); err == nil {
		s.OSRelease = FirstNotEmpty(release["PRETTY_NAME"], release["NAME"])
	}
	return s
}
