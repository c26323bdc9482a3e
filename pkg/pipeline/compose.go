package pipeline

import (
	"github.com/platinummonkey/flint/pkg/config"
	"github.com/platinummonkey/flint/pkg/plugins"
)

// SectionName returns the config table that holds settings for kind
func SectionName(kind plugins.Kind) string {
	switch kind {
	case plugins.KindLint:
		return "rules"
	case plugins.KindTest:
		return "tests"
	case plugins.KindCI:
		return "ci"
	default:
		return "report"
	}
}

func section(cfg *config.Config, kind plugins.Kind) map[string]interface{} {
	switch kind {
	case plugins.KindLint:
		return cfg.Rules
	case plugins.KindTest:
		return cfg.Tests
	case plugins.KindCI:
		return cfg.CI
	default:
		return cfg.Report
	}
}

// Compose builds the config value passed to the lifecycle calls of p: a
// copy of the plugin's own section with "common" set from the shared common
// table and, for lint plugins with an entry in the extra table, "config" set
// from that entry. The result never aliases cfg.
func Compose(cfg *config.Config, p *plugins.Plugin) (map[string]interface{}, error) {
	raw, ok := section(cfg, p.Kind)[p.ID()]
	if !ok {
		return nil, plugins.Errorf(p, plugins.StageCompose, plugins.ErrConfigMissing,
			"no [%s.%s] section in config", SectionName(p.Kind), p.ID())
	}

	own, ok := raw.(map[string]interface{})
	if !ok {
		return nil, plugins.Errorf(p, plugins.StageCompose, plugins.ErrConfigMissing,
			"[%s.%s] is not a table", SectionName(p.Kind), p.ID())
	}

	composed := deepCopyMap(own)
	composed["common"] = deepCopyMap(cfg.Common)

	if p.Kind == plugins.KindLint {
		if extra, ok := cfg.Extra[p.ID()]; ok {
			composed["config"] = deepCopy(extra)
		}
	}

	return composed, nil
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyMap(item)
		}
		return out
	default:
		// scalars and TOML date/time values are immutable
		return val
	}
}
