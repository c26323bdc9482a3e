package script

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"
)

// openModules registers the helper modules scripts can require. The json,
// yaml and toml modules expose parse and stringify, with decode and encode
// kept as aliases.
func openModules(L *lua.LState, logFn LogFunc) {
	L.PreloadModule("log", logModule(logFn))
	L.PreloadModule("json", moduleLoader(jsonFuncs))
	L.PreloadModule("yaml", moduleLoader(yamlFuncs))
	L.PreloadModule("toml", moduleLoader(tomlFuncs))
	L.PreloadModule("path", moduleLoader(pathFuncs))
	L.PreloadModule("env", moduleLoader(envFuncs))
	L.PreloadModule("js", jsModule)
	L.PreloadModule("eval", evalModule)
}

func moduleLoader(funcs map[string]lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(L.SetFuncs(L.NewTable(), funcs))
		return 1
	}
}

func logModule(logFn LogFunc) lua.LGFunction {
	emit := func(level string) lua.LGFunction {
		return func(L *lua.LState) int {
			logFn(level, L.CheckString(1))
			return 0
		}
	}

	return moduleLoader(map[string]lua.LGFunction{
		"info":    emit("info"),
		"warn":    emit("warn"),
		"error":   emit("error"),
		"success": emit("success"),
		"debug": func(L *lua.LState) int {
			v := NewBridge(L).ToGoValue(L.CheckAny(1))
			if s, ok := v.(string); ok {
				logFn("debug", s)
				return 0
			}
			data, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				L.RaiseError("log.debug: %v", err)
				return 0
			}
			logFn("debug", string(data))
			return 0
		},
	})
}

var jsonFuncs = withAliases(map[string]lua.LGFunction{
	// stringify(value) is indented; encode(value, pretty) is compact unless
	// pretty is true
	"stringify": func(L *lua.LState) int {
		return pushJSON(L, "json.stringify", true)
	},
	"encode": func(L *lua.LState) int {
		return pushJSON(L, "json.encode", L.OptBool(2, false))
	},
	"parse": func(L *lua.LState) int {
		var v interface{}
		if err := json.Unmarshal([]byte(L.CheckString(1)), &v); err != nil {
			L.RaiseError("json.parse: %v", err)
			return 0
		}
		L.Push(NewBridge(L).ToLuaValue(v))
		return 1
	},
	"get": func(L *lua.LState) int {
		r := gjson.Get(L.CheckString(1), L.CheckString(2))
		if !r.Exists() {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(NewBridge(L).ToLuaValue(r.Value()))
		return 1
	},
	"set": func(L *lua.LState) int {
		b := NewBridge(L)
		out, err := sjson.Set(L.CheckString(1), L.CheckString(2), b.ToGoValue(L.CheckAny(3)))
		if err != nil {
			L.RaiseError("json.set: %v", err)
			return 0
		}
		L.Push(lua.LString(out))
		return 1
	},
}, "parse", "decode")

func pushJSON(L *lua.LState, name string, pretty bool) int {
	v := NewBridge(L).ToGoValue(L.CheckAny(1))
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		L.RaiseError("%s: %v", name, err)
		return 0
	}
	L.Push(lua.LString(data))
	return 1
}

// withAliases adds alias as a second name for the function registered
// under name
func withAliases(funcs map[string]lua.LGFunction, pairs ...string) map[string]lua.LGFunction {
	for i := 0; i+1 < len(pairs); i += 2 {
		funcs[pairs[i+1]] = funcs[pairs[i]]
	}
	return funcs
}

var yamlFuncs = withAliases(map[string]lua.LGFunction{
	"stringify": func(L *lua.LState) int {
		data, err := yaml.Marshal(NewBridge(L).ToGoValue(L.CheckAny(1)))
		if err != nil {
			L.RaiseError("yaml.stringify: %v", err)
			return 0
		}
		L.Push(lua.LString(data))
		return 1
	},
	"parse": func(L *lua.LState) int {
		var v interface{}
		if err := yaml.Unmarshal([]byte(L.CheckString(1)), &v); err != nil {
			L.RaiseError("yaml.parse: %v", err)
			return 0
		}
		L.Push(NewBridge(L).ToLuaValue(v))
		return 1
	},
}, "parse", "decode", "stringify", "encode")

var tomlFuncs = withAliases(map[string]lua.LGFunction{
	"stringify": func(L *lua.LState) int {
		m, ok := NewBridge(L).ToGoValue(L.CheckTable(1)).(map[string]interface{})
		if !ok {
			L.ArgError(1, "toml.stringify expects a table with string keys")
			return 0
		}
		data, err := toml.Marshal(m)
		if err != nil {
			L.RaiseError("toml.stringify: %v", err)
			return 0
		}
		L.Push(lua.LString(data))
		return 1
	},
	"parse": func(L *lua.LState) int {
		var v map[string]interface{}
		if err := toml.Unmarshal([]byte(L.CheckString(1)), &v); err != nil {
			L.RaiseError("toml.parse: %v", err)
			return 0
		}
		L.Push(NewBridge(L).ToLuaValue(v))
		return 1
	},
}, "parse", "decode", "stringify", "encode")

var pathFuncs = map[string]lua.LGFunction{
	"join": func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.CheckString(i))
		}
		L.Push(lua.LString(filepath.Join(parts...)))
		return 1
	},
	"exists": func(L *lua.LState) int {
		_, err := os.Stat(L.CheckString(1))
		L.Push(lua.LBool(err == nil))
		return 1
	},
	"basename": func(L *lua.LState) int {
		L.Push(lua.LString(filepath.Base(L.CheckString(1))))
		return 1
	},
	"dirname": func(L *lua.LState) int {
		L.Push(lua.LString(filepath.Dir(L.CheckString(1))))
		return 1
	},
	"ext": func(L *lua.LState) int {
		L.Push(lua.LString(filepath.Ext(L.CheckString(1))))
		return 1
	},
	"abs": func(L *lua.LState) int {
		p, err := filepath.Abs(L.CheckString(1))
		if err != nil {
			L.RaiseError("path.abs: %v", err)
			return 0
		}
		L.Push(lua.LString(p))
		return 1
	},
	"cwd": func(L *lua.LState) int {
		dir, err := os.Getwd()
		if err != nil {
			L.RaiseError("path.cwd: %v", err)
			return 0
		}
		L.Push(lua.LString(dir))
		return 1
	},
	// resolve works like node's path.resolve: segments are applied left to
	// right from the working directory, an absolute or ~ segment restarts
	// the path, and existing paths have symlinks resolved
	"resolve": func(L *lua.LState) int {
		dir, err := os.Getwd()
		if err != nil {
			L.RaiseError("path.resolve: %v", err)
			return 0
		}
		result := dir
		for i := 1; i <= L.GetTop(); i++ {
			seg := L.CheckString(i)
			switch {
			case filepath.IsAbs(seg):
				result = seg
			case seg == "~" || strings.HasPrefix(seg, "~/"):
				home, err := os.UserHomeDir()
				if err != nil {
					L.RaiseError("path.resolve: %v", err)
					return 0
				}
				result = filepath.Join(home, strings.TrimPrefix(seg[1:], "/"))
			default:
				result = filepath.Join(result, seg)
			}
		}
		result = filepath.Clean(result)
		if resolved, err := filepath.EvalSymlinks(result); err == nil {
			result = resolved
		}
		L.Push(lua.LString(result))
		return 1
	},
	// ls lists entry names of a directory, the working directory by default
	"ls": func(L *lua.LState) int {
		dir := L.OptString(1, ".")
		entries, err := os.ReadDir(dir)
		if err != nil {
			L.RaiseError("failed to read directory: %v", err)
			return 0
		}
		t := L.CreateTable(len(entries), 0)
		for _, e := range entries {
			t.Append(lua.LString(e.Name()))
		}
		L.Push(t)
		return 1
	},
	// relative("/a/b/c.txt", "/a") returns "b/c.txt"; file must be inside dir
	"relative": func(L *lua.LState) int {
		if L.GetTop() != 2 {
			L.RaiseError("expected exactly two arguments: file_path and current_dir")
			return 0
		}
		file, dir := L.CheckString(1), L.CheckString(2)
		rel, err := filepath.Rel(dir, file)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			L.RaiseError("could not determine relative path of %s from %s", file, dir)
			return 0
		}
		if rel == "." {
			rel = ""
		}
		L.Push(lua.LString(rel))
		return 1
	},
}

// Eval output type markers returned by eval.test_type
const (
	evalTypeLint = "__test_type_lint"
	evalTypeTest = "__test_type_test"
)

// evalModule helps report plugins tell lint and test output apart. Output
// tables carry a kind tag; tables wrapped as { Lint = ... } or
// { Test = ... } are accepted too.
func evalModule(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"test_type": func(L *lua.LState) int {
			t := L.CheckTable(1)
			if lua.LVAsString(t.RawGetString("kind")) == "lint" || t.RawGetString("Lint") != lua.LNil {
				L.Push(lua.LString(evalTypeLint))
			} else {
				L.Push(lua.LString(evalTypeTest))
			}
			return 1
		},
		"get_output": func(L *lua.LState) int {
			t := L.CheckTable(1)
			for _, key := range []string{"Lint", "Test"} {
				if inner, ok := t.RawGetString(key).(*lua.LTable); ok {
					L.Push(inner)
					return 1
				}
			}
			if t.RawGetString("kind") != lua.LNil {
				L.Push(t)
				return 1
			}
			L.RaiseError("no output found")
			return 0
		},
	})
	mod.RawSetString("lint", lua.LString(evalTypeLint))
	mod.RawSetString("test", lua.LString(evalTypeTest))
	L.Push(mod)
	return 1
}

var envFuncs = map[string]lua.LGFunction{
	"var": func(L *lua.LState) int {
		name := L.CheckString(1)
		v, ok := os.LookupEnv(name)
		if !ok {
			L.RaiseError("environment variable %s is not set", name)
			return 0
		}
		L.Push(lua.LString(v))
		return 1
	},
	"var_unsafe": func(L *lua.LState) int {
		if v, ok := os.LookupEnv(L.CheckString(1)); ok {
			L.Push(lua.LString(v))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	},
	// var_name("secret:GITHUB_TOKEN") returns "GITHUB_TOKEN"
	"var_name": func(L *lua.LState) int {
		parts := strings.Split(L.CheckString(1), ":")
		if len(parts) != 2 {
			L.RaiseError("invalid format: expected <kind>:<NAME>")
			return 0
		}
		L.Push(lua.LString(parts[1]))
		return 1
	},
}
