package system

import (
	"regexp"
)

var ipTrimRegex = regexp.MustCompile(`(:\d*)?$`)

// TrimIPSuffix removes the internal port value from an IP address to ensure we're only
// ever working directly with the IP address.
func TrimIPSuffix(s string) string {
	return ipTrimRegex.ReplaceAllString(s, "")
}
