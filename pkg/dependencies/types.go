package dependencies

import (
	"fmt"
	"sort"

	"github.com/platinummonkey/flint/pkg/plugins"
)

// Latest is the version sentinel that beats every concrete version
const Latest = "latest"

// Dependency is a third-party package a plugin needs installed
type Dependency struct {
	Name    string `mapstructure:"name" json:"name" yaml:"name"`
	Version string `mapstructure:"version" json:"version" yaml:"version"`
}

func (d Dependency) String() string {
	return d.Name + "@" + d.Version
}

// Table maps a package manager name (npm, cargo, pip, ...) to its dependencies
type Table map[string][]Dependency

// Managers returns the package manager names, sorted
func (t Table) Managers() []string {
	managers := make([]string, 0, len(t))
	for m := range t {
		managers = append(managers, m)
	}
	sort.Strings(managers)
	return managers
}

// Len returns the total number of dependencies across managers
func (t Table) Len() int {
	n := 0
	for _, deps := range t {
		n += len(deps)
	}
	return n
}

// Merge appends every dependency of other to t, manager by manager
func (t Table) Merge(other Table) {
	for _, manager := range other.Managers() {
		if _, ok := t[manager]; !ok {
			t[manager] = []Dependency{}
		}
		t[manager] = append(t[manager], other[manager]...)
	}
}

// ParseError records a conflict that no precedence rule could decide. The
// first-seen declaration was kept.
type ParseError struct {
	Manager   string
	Name      string
	Kept      string
	Discarded string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: cannot compare versions of %s (%q vs %q), keeping %q",
		e.Manager, e.Name, e.Kept, e.Discarded, e.Kept)
}

func (e *ParseError) Unwrap() error {
	return plugins.ErrDependencyParse
}
