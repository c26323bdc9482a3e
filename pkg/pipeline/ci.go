package pipeline

import (
	"fmt"

	"github.com/platinummonkey/flint/pkg/config"
	"github.com/platinummonkey/flint/pkg/plugins"
)

// CollectEnv merges the "env" tables of the composed configs of active.
// Plugins are visited in registry order and the first plugin to set a
// variable wins. Plugins without a config section are skipped.
func CollectEnv(cfg *config.Config, active []*plugins.Plugin) map[string]string {
	env := make(map[string]string)
	for _, p := range active {
		composed, err := Compose(cfg, p)
		if err != nil {
			continue
		}

		vars, ok := composed["env"].(map[string]interface{})
		if !ok {
			continue
		}
		for name, value := range vars {
			if _, set := env[name]; set {
				continue
			}
			env[name] = stringify(value)
		}
	}
	return env
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
