// Package build provides build-time information about the application.
package build

import (
	"encoding/json"
	"strconv"

	"lastautoindex/pkg/x"
)

// DevVersion marks a build without an injected version. Update checks are skipped for it.
const DevVersion = "vX.X.X"

// set by build.sh
var (
	name               string
	version            string
	repoOwner          string
	repoName           string
	contactURL         string
	defaultLogLevel    string
	serviceEnabled     string
	serviceDefaultPort string
)

type BuildInfo struct {
	Name               string `json:"name"`
	Version            string `json:"version"`
	RepoOwner          string `json:"repoOwner"`
	RepoName           string `json:"repoName"`
	ContactURL         string `json:"contactURL"`
	DefaultLogLevel    string `json:"defaultLogLevel"`
	ServiceEnabled     bool   `json:"serviceEnabled"`
	ServiceDefaultPort int    `json:"serviceDefaultPort"`
}

// PrintJSON prints the build info as JSON to stdout
func (b BuildInfo) PrintJSON() string {
	data, err := json.Marshal(b)
	if err != nil {
		return ""
	}
	return string(data)
}

// IsDev reports whether this is a development build.
func (b BuildInfo) IsDev() bool {
	return b.Version == "" || b.Version == DevVersion
}

func Info() BuildInfo {
	port, err := strconv.Atoi(serviceDefaultPort)
	if err != nil {
		// fallback to 8080
		port = 8080
	}
	return BuildInfo{
		Name:               x.FirstNonEmpty(name, "lastautoindex"),
		Version:            x.FirstNonEmpty(version, DevVersion),
		RepoOwner:          x.FirstNonEmpty(repoOwner, "project-cleverweb"),
		RepoName:           x.FirstNonEmpty(repoName, "LastAutoIndex"),
		ContactURL:         x.FirstNonEmpty(contactURL, "https://github.com/project-cleverweb/LastAutoIndex"),
		DefaultLogLevel:    x.FirstNonEmpty(defaultLogLevel, "WARN"),
		ServiceEnabled:     serviceEnabled != "false",
		ServiceDefaultPort: port,
	}
}
