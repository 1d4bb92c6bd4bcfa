// Package device derives a human-readable device name from the User-Agent
// header, stored on sessions so users can tell their logins apart.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent returns a display name such as "Chrome on Intel Mac OS X".
// Unknown or empty agents yield "Unknown Device".
func ParseUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)
	browser, _ := ua.Browser()

	location := ua.OS()
	if location == "" {
		location = ua.Platform()
	} else if platform := ua.Platform(); platform != "" && !strings.Contains(location, platform) {
		location = platform + " " + location
	}

	switch {
	case browser != "" && location != "":
		return browser + " on " + location
	case browser != "":
		return browser
	case location != "":
		return location
	default:
		return "Unknown Device"
	}
}
