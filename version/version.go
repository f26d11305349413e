package version

import (
	"fmt"
	"strings"
	"sync"
)

// validCharacters is a list of characters valid in the appBuild string
const validCharacters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."

const (
	appMajor uint = 0
	appMinor uint = 1
	appPatch uint = 0
)

// appBuild can be set at build time with
// '-ldflags "-X github.com/lucasbalieiro/cpuminer-stratum-v2/version.appBuild=foo"'.
// It MUST only contain characters from validCharacters.
var appBuild string

var (
	version     string
	versionOnce sync.Once
)

// Version returns the application version as a semantic version string,
// followed by the build metadata when it is valid.
func Version() string {
	versionOnce.Do(func() {
		version = formatVersion(appMajor, appMinor, appPatch, appBuild)
	})
	return version
}

func formatVersion(major, minor, patch uint, build string) string {
	formatted := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if build = checkAppBuild(build); build != "" {
		formatted = fmt.Sprintf("%s-%s", formatted, build)
	}
	return formatted
}

// checkAppBuild returns str unless it contains a character outside
// validCharacters, in which case it returns an empty string.
func checkAppBuild(str string) string {
	for _, r := range str {
		if !strings.ContainsRune(validCharacters, r) {
			return ""
		}
	}
	return str
}
