package script

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	lua "github.com/yuin/gopher-lua"
)

// The js module builds JavaScript source from Lua values, for plugins that
// emit config files such as eslint.config.js. Values it creates carry a
// metatable tagged with __js_kind and render through tostring.

const (
	jsKindField   = "__js_kind"
	jsImportField = "__js_import"
	jsIndentUnit  = "    "
)

type jsKind string

const (
	jsImport    jsKind = "import"
	jsImports   jsKind = "imports"
	jsArray     jsKind = "array"
	jsObject    jsKind = "object"
	jsCall      jsKind = "call"
	jsNull      jsKind = "null"
	jsUndefined jsKind = "undefined"
)

func jsModule(L *lua.LState) int {
	metas := make(map[jsKind]*lua.LTable)
	for _, k := range []jsKind{jsImport, jsImports, jsArray, jsObject, jsCall, jsNull, jsUndefined} {
		mt := L.NewTable()
		mt.RawSetString(jsKindField, lua.LString(k))
		mt.RawSetString("__tostring", L.NewFunction(jsToString))
		if k == jsImport {
			mt.RawSetString(jsImportField, lua.LTrue)
		}
		metas[k] = mt
	}
	tag := func(L *lua.LState, t *lua.LTable, k jsKind) *lua.LTable {
		L.SetMetatable(t, metas[k])
		return t
	}

	imports := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		// named("defineConfig", "eslint/config") renders as defineConfig
		"named": func(L *lua.LState) int {
			name, from := L.CheckString(1), L.CheckString(2)
			L.Push(tag(L, newImport(L, "named", from, name, ""), jsImport))
			return 1
		},
		// alias("default", "js", "@eslint/js") renders as js
		"alias": func(L *lua.LState) int {
			name, alias, from := L.CheckString(1), L.CheckString(2), L.CheckString(3)
			L.Push(tag(L, newImport(L, "alias", from, name, alias), jsImport))
			return 1
		},
		"default": func(L *lua.LState) int {
			name, from := L.CheckString(1), L.CheckString(2)
			t := L.NewTable()
			t.RawSetString("type", lua.LString("default"))
			t.RawSetString("name", lua.LString(name))
			t.RawSetString("from", lua.LString(from))
			L.Push(tag(L, t, jsImport))
			return 1
		},
		"merge": func(L *lua.LState) int {
			L.Push(tag(L, mergeImports(L), jsImports))
			return 1
		},
	})

	exports := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"default": func(L *lua.LState) int {
			L.Push(lua.LString("export default " + jsSerialize(L, L.CheckAny(1))))
			return 1
		},
		"named": func(L *lua.LState) int {
			t := L.CheckTable(1)
			names := stringKeys(t)
			width := 0
			for _, name := range names {
				width = max(width, len(name))
			}
			lines := make([]string, len(names))
			for i, name := range names {
				lines[i] = "export const " + padRight(name, width) + " = " + jsSerialize(L, t.RawGetString(name))
			}
			L.Push(lua.LString(strings.Join(lines, "\n")))
			return 1
		},
	})

	fn := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"call": func(L *lua.LState) int {
			n := L.GetTop()
			if n == 0 {
				L.RaiseError("js.fn.call requires at least a function argument")
				return 0
			}
			t := L.NewTable()
			t.RawSetString("function", L.Get(1))
			args := L.CreateTable(n-1, 0)
			for i := 2; i <= n; i++ {
				args.RawSetInt(i-1, L.Get(i))
			}
			t.RawSetString("args", args)
			t.RawSetString("argc", lua.LNumber(n-1))
			L.Push(tag(L, t, jsCall))
			return 1
		},
	})

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"array": func(L *lua.LState) int {
			n := L.GetTop()
			t := L.CreateTable(n, 0)
			for i := 1; i <= n; i++ {
				t.RawSetInt(i, L.Get(i))
			}
			L.Push(tag(L, t, jsArray))
			return 1
		},
		"object": func(L *lua.LState) int {
			src := L.OptTable(1, L.NewTable())
			t := L.NewTable()
			src.ForEach(func(k, v lua.LValue) {
				t.RawSet(k, v)
			})
			L.Push(tag(L, t, jsObject))
			return 1
		},
		"indent": func(L *lua.LState) int {
			L.Push(lua.LString(indentJS(L.CheckString(1))))
			return 1
		},
	})
	mod.RawSetString("imports", imports)
	mod.RawSetString("exports", exports)
	mod.RawSetString("fn", fn)
	mod.RawSetString("null", tag(L, L.NewTable(), jsNull))
	mod.RawSetString("undefined", tag(L, L.NewTable(), jsUndefined))

	L.Push(mod)
	return 1
}

func newImport(L *lua.LState, typ, from, name, alias string) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("type", lua.LString(typ))
	t.RawSetString("from", lua.LString(from))

	items := L.NewTable()
	items.Append(lua.LString(name))
	entry := L.NewTable()
	entry.RawSetString("name", lua.LString(name))
	if alias != "" {
		items.Append(lua.LString(alias))
		entry.RawSetString("alias", lua.LString(alias))
	}
	t.RawSetString("items", items)

	list := L.NewTable()
	list.Append(entry)
	t.RawSetString("imports", list)
	return t
}

// mergeImports groups the import values passed as arguments by module.
// Identical specifiers from the same module collapse into one.
func mergeImports(L *lua.LState) *lua.LTable {
	byModule := L.NewTable()
	defaults := L.NewTable()

	for i := 1; i <= L.GetTop(); i++ {
		imp := L.CheckTable(i)
		from := lua.LVAsString(imp.RawGetString("from"))
		if lua.LVAsString(imp.RawGetString("type")) == "default" {
			defaults.RawSetString(from, imp.RawGetString("name"))
			continue
		}

		list, ok := byModule.RawGetString(from).(*lua.LTable)
		if !ok {
			list = L.NewTable()
			byModule.RawSetString(from, list)
		}
		entries, _ := imp.RawGetString("imports").(*lua.LTable)
		if entries == nil {
			continue
		}
		for j := 1; j <= entries.Len(); j++ {
			entry, ok := entries.RawGetInt(j).(*lua.LTable)
			if ok && !hasSpecifier(list, entry) {
				list.Append(entry)
			}
		}
	}

	merged := L.NewTable()
	merged.RawSetString("byModule", byModule)
	merged.RawSetString("defaults", defaults)
	return merged
}

func hasSpecifier(list, entry *lua.LTable) bool {
	for i := 1; i <= list.Len(); i++ {
		if e, ok := list.RawGetInt(i).(*lua.LTable); ok &&
			lua.LVAsString(e.RawGetString("name")) == lua.LVAsString(entry.RawGetString("name")) &&
			lua.LVAsString(e.RawGetString("alias")) == lua.LVAsString(entry.RawGetString("alias")) {
			return true
		}
	}
	return false
}

func jsToString(L *lua.LState) int {
	L.Push(lua.LString(jsSerialize(L, L.CheckTable(1))))
	return 1
}

// jsSerialize renders a Lua value as a JavaScript expression
func jsSerialize(L *lua.LState, lv lua.LValue) string {
	switch v := lv.(type) {
	case lua.LString:
		return jsQuote(string(v))
	case lua.LNumber:
		return jsNumber(float64(v))
	case lua.LBool:
		return strconv.FormatBool(bool(v))
	case *lua.LTable:
		if mt, ok := L.GetMetatable(v).(*lua.LTable); ok {
			if kind, ok := mt.RawGetString(jsKindField).(lua.LString); ok {
				return jsRender(L, v, jsKind(kind))
			}
			if fn, ok := mt.RawGetString("__tostring").(*lua.LFunction); ok {
				return callToString(L, fn, v)
			}
		}
		return jsPlain(L, v)
	default:
		return "null"
	}
}

func jsRender(L *lua.LState, t *lua.LTable, kind jsKind) string {
	switch kind {
	case jsNull:
		return "null"
	case jsUndefined:
		return "undefined"
	case jsImport:
		return importIdent(t)
	case jsImports:
		return renderImports(t)
	case jsArray:
		parts := arrayParts(L, t)
		short := len(parts) <= 3
		for _, p := range parts {
			short = short && len(p) < 30
		}
		switch {
		case len(parts) == 0:
			return "[]"
		case short:
			return "[ " + strings.Join(parts, ", ") + " ]"
		default:
			return "[\n  " + strings.Join(parts, ",\n  ") + "\n]"
		}
	case jsObject:
		keys := stringKeys(t)
		if len(keys) == 0 {
			return "{}"
		}
		width := 0
		for _, k := range keys {
			width = max(width, len(k))
		}
		lines := make([]string, len(keys))
		for i, k := range keys {
			lines[i] = "  " + padRight(jsKey(k), width) + ": " + jsSerialize(L, t.RawGetString(k))
		}
		return "{\n" + strings.Join(lines, ",\n") + "\n}"
	case jsCall:
		return renderCall(L, t)
	default:
		return jsPlain(L, t)
	}
}

// jsPlain renders a table without a js metatable: a sequence becomes an
// array literal, anything else an object literal with sorted keys
func jsPlain(L *lua.LState, t *lua.LTable) string {
	if t.Len() > 0 {
		return "[" + strings.Join(arrayParts(L, t), ", ") + "]"
	}
	keys := stringKeys(t)
	if len(keys) == 0 {
		return "{}"
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = jsKey(k) + ": " + jsSerialize(L, t.RawGetString(k))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func importIdent(t *lua.LTable) string {
	switch lua.LVAsString(t.RawGetString("type")) {
	case "default":
		return lua.LVAsString(t.RawGetString("name"))
	case "alias":
		if items, ok := t.RawGetString("items").(*lua.LTable); ok {
			return lua.LVAsString(items.RawGetInt(2))
		}
	default:
		if items, ok := t.RawGetString("items").(*lua.LTable); ok {
			return lua.LVAsString(items.RawGetInt(1))
		}
	}
	return ""
}

func renderImports(t *lua.LTable) string {
	var lines []string

	if byModule, ok := t.RawGetString("byModule").(*lua.LTable); ok {
		for _, from := range stringKeys(byModule) {
			list, ok := byModule.RawGetString(from).(*lua.LTable)
			if !ok {
				continue
			}
			var specs []string
			for i := 1; i <= list.Len(); i++ {
				entry, ok := list.RawGetInt(i).(*lua.LTable)
				if !ok {
					continue
				}
				spec := lua.LVAsString(entry.RawGetString("name"))
				if alias := lua.LVAsString(entry.RawGetString("alias")); alias != "" {
					spec += " as " + alias
				}
				specs = append(specs, spec)
			}
			if len(specs) > 0 {
				lines = append(lines, "import { "+strings.Join(specs, ", ")+" } from "+jsQuote(from))
			}
		}
	}

	if defaults, ok := t.RawGetString("defaults").(*lua.LTable); ok {
		for _, from := range stringKeys(defaults) {
			lines = append(lines, "import "+lua.LVAsString(defaults.RawGetString(from))+" from "+jsQuote(from))
		}
	}

	return strings.Join(lines, "\n")
}

func renderCall(L *lua.LState, t *lua.LTable) string {
	var name string
	switch f := t.RawGetString("function").(type) {
	case lua.LString:
		name = string(f)
	case *lua.LTable:
		name = "function"
		if mt, ok := L.GetMetatable(f).(*lua.LTable); ok {
			if kind, ok := mt.RawGetString(jsKindField).(lua.LString); ok {
				name = jsRender(L, f, jsKind(kind))
			} else if fn, ok := mt.RawGetString("__tostring").(*lua.LFunction); ok {
				name = callToString(L, fn, f)
			}
		}
	default:
		name = "function"
	}

	args, _ := t.RawGetString("args").(*lua.LTable)
	argc := int(lua.LVAsNumber(t.RawGetString("argc")))
	parts := make([]string, 0, argc)
	for i := 1; i <= argc && args != nil; i++ {
		parts = append(parts, jsSerialize(L, args.RawGetInt(i)))
	}

	switch {
	case len(parts) == 0:
		return name + "()"
	case len(parts) == 1 && len(parts[0]) < 60:
		return name + "(" + parts[0] + ")"
	default:
		return name + "(\n  " + strings.Join(parts, ",\n  ") + "\n)"
	}
}

func callToString(L *lua.LState, fn *lua.LFunction, v lua.LValue) string {
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, v); err != nil {
		L.RaiseError("js: __tostring failed: %v", err)
		return ""
	}
	ret := L.Get(-1)
	L.Pop(1)
	return lua.LVAsString(ret)
}

func arrayParts(L *lua.LState, t *lua.LTable) []string {
	n := t.Len()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = jsSerialize(L, t.RawGetInt(i))
	}
	return parts
}

// stringKeys returns the string keys of t, sorted
func stringKeys(t *lua.LTable) []string {
	var keys []string
	t.ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			keys = append(keys, string(s))
		}
	})
	sort.Strings(keys)
	return keys
}

func jsKey(k string) string {
	if isJSIdent(k) {
		return k
	}
	return `"` + strings.ReplaceAll(k, `"`, `\"`) + `"`
}

func isJSIdent(s string) bool {
	for i, r := range s {
		if i == 0 && !unicode.IsLetter(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return s != ""
}

var jsEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func jsQuote(s string) string {
	return `"` + jsEscaper.Replace(s) + `"`
}

func jsNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// indentJS reflows a one-line JavaScript literal: one entry per line, four
// spaces per nesting level, empty braces kept inline. Quoted text is copied
// unchanged.
func indentJS(src string) string {
	runes := []rune(src)
	out := make([]rune, 0, len(runes)*2)
	level := 0
	var quote rune
	escaped := false

	newline := func() {
		for len(out) > 0 && out[len(out)-1] == ' ' {
			out = out[:len(out)-1]
		}
		out = append(out, '\n')
		out = append(out, []rune(strings.Repeat(jsIndentUnit, level))...)
	}

	for i, c := range runes {
		if quote != 0 {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'', '`':
			quote = c
			out = append(out, c)
		case '{', '[':
			out = append(out, c)
			level++
			if next := nextNonSpace(runes[i+1:]); next != '}' && next != ']' {
				newline()
			}
		case '}', ']':
			level = max(level-1, 0)
			if last := lastNonSpace(out); last != '{' && last != '[' {
				newline()
			}
			out = append(out, c)
		case ',':
			out = append(out, c)
			newline()
		case ':':
			out = append(out, ':', ' ')
		default:
			if unicode.IsSpace(c) {
				if n := len(out); n > 0 && out[n-1] != ' ' && out[n-1] != '\n' {
					out = append(out, ' ')
				}
				continue
			}
			out = append(out, c)
		}
	}

	return strings.TrimRight(string(out), " ")
}

func nextNonSpace(rs []rune) rune {
	for _, r := range rs {
		if !unicode.IsSpace(r) {
			return r
		}
	}
	return 0
}

func lastNonSpace(rs []rune) rune {
	for i := len(rs) - 1; i >= 0; i-- {
		if !unicode.IsSpace(rs[i]) {
			return rs[i]
		}
	}
	return 0
}
