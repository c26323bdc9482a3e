package script

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Decode converts a value returned by a script into out, which must be a
// pointer. Type mismatches fail instead of being coerced. Every key named in
// required must be present in raw.
//
// Empty Lua tables convert to empty maps; Decode accepts them wherever a
// slice is expected.
func Decode(raw interface{}, out interface{}, required ...string) error {
	if raw == nil {
		return fmt.Errorf("expected a table, got nil")
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: emptyTableToSlice,
		Metadata:   &md,
		Result:     out,
		TagName:    "mapstructure",
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(raw); err != nil {
		return err
	}

	if len(required) == 0 {
		return nil
	}

	unset := make(map[string]bool, len(md.Unset))
	for _, name := range md.Unset {
		unset[name] = true
	}

	var missing []string
	for _, name := range required {
		if unset[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}

	return nil
}

func emptyTableToSlice(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.Map || (to.Kind() != reflect.Slice && to.Kind() != reflect.Array) {
		return data, nil
	}
	if m, ok := data.(map[string]interface{}); ok && len(m) == 0 {
		return []interface{}{}, nil
	}
	return data, nil
}
