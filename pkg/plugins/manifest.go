package plugins

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/platinummonkey/flint/pkg/script"
)

var pluginIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// manifestFields are the keys a Details table must define
var manifestFields = []string{"id", "extensions", "version", "author"}

// DecodeManifest converts the value returned by a Details entry point
func DecodeManifest(raw interface{}) (Manifest, error) {
	var m Manifest
	if err := script.Decode(raw, &m, manifestFields...); err != nil {
		return Manifest{}, fmt.Errorf("invalid Details result: %w", err)
	}
	if m.Extensions == nil {
		m.Extensions = []string{}
	}
	return m, nil
}

// IsValidVersion reports whether v is a full semantic version. A leading
// "v" is accepted.
func IsValidVersion(v string) bool {
	_, err := semver.StrictNewVersion(strings.TrimPrefix(v, "v"))
	return err == nil
}
