package dependencies

import "sort"

// Resolve deduplicates a raw dependency table so that each manager lists
// every package name once. Lists are sorted by name. Resolve is pure and
// deterministic.
func Resolve(raw Table) Table {
	resolved, _ := ResolveWithDiagnostics(raw)
	return resolved
}

// ResolveWithDiagnostics is Resolve, also returning one ParseError for every
// conflict that fell back to the first-seen declaration
func ResolveWithDiagnostics(raw Table) (Table, []*ParseError) {
	resolved := make(Table, len(raw))
	var diags []*ParseError

	for _, manager := range raw.Managers() {
		winners := make(map[string]Dependency)

		for _, dep := range raw[manager] {
			current, seen := winners[dep.Name]
			if !seen {
				winners[dep.Name] = dep
				continue
			}

			switch compare(current.Version, dep.Version) {
			case replace:
				winners[dep.Name] = dep
			case undecided:
				diags = append(diags, &ParseError{
					Manager:   manager,
					Name:      dep.Name,
					Kept:      current.Version,
					Discarded: dep.Version,
				})
			}
		}

		deps := make([]Dependency, 0, len(winners))
		for _, dep := range winners {
			deps = append(deps, dep)
		}
		sort.Slice(deps, func(i, j int) bool {
			return deps[i].Name < deps[j].Name
		})
		resolved[manager] = deps
	}

	return resolved, diags
}

// Conflicts counts, per manager, how many declarations Resolve collapsed
func Conflicts(raw, resolved Table) map[string]int {
	out := make(map[string]int)
	for manager, deps := range raw {
		if n := len(deps) - len(resolved[manager]); n > 0 {
			out[manager] = n
		}
	}
	return out
}
