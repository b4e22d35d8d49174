package pipeutil

import (
	"net/url"
	"strings"
)

// IsValidURL reports whether id is an absolute URL with both a scheme and a
// host. Bare pipe names and filesystem paths are not URLs.
func IsValidURL(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	u, err := url.Parse(id)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}
