// Package plugintest writes plugin directories for tests.
package plugintest

import (
	"os"
	"path/filepath"
	"testing"
)

// Details returns a details.lua body for the given id and extensions
func Details(id string, extensions ...string) string {
	exts := ""
	for i, ext := range extensions {
		if i > 0 {
			exts += ", "
		}
		exts += `"` + ext + `"`
	}
	return `function Details()
	return { id = "` + id + `", extensions = { ` + exts + ` }, version = "1.0.0", author = "flint" }
end
`
}

// AlwaysValid is a validate.lua body accepting any config
const AlwaysValid = `function Validate(config) return true end
`

// Write creates <root>/<kindDir>/<dir> with the given scripts, keyed by file
// name without the .lua extension. It returns the plugin directory.
func Write(t testing.TB, root, kindDir, dir string, scripts map[string]string) string {
	t.Helper()

	pluginDir := filepath.Join(root, kindDir, dir)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("create plugin dir: %v", err)
	}
	for name, body := range scripts {
		if err := os.WriteFile(filepath.Join(pluginDir, name+".lua"), []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return pluginDir
}
