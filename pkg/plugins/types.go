package plugins

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the category of a plugin. It decides which lifecycle entry points
// the plugin must provide and how its configuration is composed.
type Kind int

const (
	KindLint Kind = iota
	KindTest
	KindCI
	KindReport
)

// Kinds lists every plugin kind in discovery order
var Kinds = []Kind{KindLint, KindTest, KindCI, KindReport}

func (k Kind) String() string {
	switch k {
	case KindLint:
		return "lint"
	case KindTest:
		return "test"
	case KindCI:
		return "ci"
	case KindReport:
		return "report"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Dir returns the directory under the plugins root holding plugins of kind k
func (k Kind) Dir() string {
	return k.String()
}

// ParseKind parses a kind name as used in directory names and CLI flags
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "lint":
		return KindLint, nil
	case "test":
		return KindTest, nil
	case "ci":
		return KindCI, nil
	case "report":
		return KindReport, nil
	default:
		return 0, fmt.Errorf("unknown plugin kind: %q", s)
	}
}

// Script names of the lifecycle files inside a plugin directory
const (
	ScriptDetails  = "details"
	ScriptGenerate = "generate"
	ScriptRun      = "run"
	ScriptValidate = "validate"

	// ScriptExt is the extension of plugin script files
	ScriptExt = ".lua"
)

// RequiredScripts returns the scripts a plugin of kind k must ship
func (k Kind) RequiredScripts() []string {
	switch k {
	case KindCI:
		return []string{ScriptDetails, ScriptGenerate, ScriptValidate}
	case KindReport:
		return []string{ScriptDetails, ScriptRun, ScriptValidate}
	default:
		return []string{ScriptDetails, ScriptGenerate, ScriptRun, ScriptValidate}
	}
}

// Manifest describes plugin metadata, as returned by the Details entry point
type Manifest struct {
	ID         string   `mapstructure:"id" yaml:"id" json:"id"`
	Extensions []string `mapstructure:"extensions" yaml:"extensions" json:"extensions"`
	Version    string   `mapstructure:"version" yaml:"version" json:"version"`
	Author     string   `mapstructure:"author" yaml:"author" json:"author"`
}

// Plugin is a discovered plugin. Plugins are created by discovery and never
// mutated afterwards, so they are shared freely between workers.
type Plugin struct {
	Manifest Manifest `yaml:"manifest" json:"manifest"`
	Kind     Kind     `yaml:"-" json:"-"`
	Root     string   `yaml:"root" json:"root"`
}

// ID returns the plugin id
func (p *Plugin) ID() string {
	return p.Manifest.ID
}

// Script returns the path of the named lifecycle script
func (p *Plugin) Script(name string) string {
	return filepath.Join(p.Root, name+ScriptExt)
}

// Less orders plugins by id, then kind
func (p *Plugin) Less(other *Plugin) bool {
	if p.Manifest.ID != other.Manifest.ID {
		return p.Manifest.ID < other.Manifest.ID
	}
	return p.Kind < other.Kind
}

func (p *Plugin) String() string {
	return p.Kind.String() + "/" + p.Manifest.ID
}

// HasExtension reports whether the plugin handles files with extension ext
func (p *Plugin) HasExtension(ext string) bool {
	ext = normalizeExt(ext)
	for _, e := range p.Manifest.Extensions {
		if normalizeExt(e) == ext {
			return true
		}
	}
	return false
}
