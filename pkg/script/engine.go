package script

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

// DefaultCacheSize is the number of compiled scripts kept in memory
const DefaultCacheSize = 256

// Engine loads plugin scripts into fresh interpreters
type Engine interface {
	// Load executes the given files, in order, inside one new interpreter
	Load(ctx context.Context, paths ...string) (Handle, error)
}

// Handle is a loaded interpreter. A Handle must only be used by one goroutine
// at a time; Close releases the interpreter.
type Handle interface {
	// Function looks up a global function. The bool is false when the global
	// is absent or is not a function.
	Function(name string) (Function, bool)
	Close()
}

// Function is a callable script global
type Function interface {
	Call(ctx context.Context, args ...interface{}) (interface{}, error)
}

// LogFunc receives messages written by scripts through the log module
type LogFunc func(level, message string)

// LuaEngine implements Engine on top of gopher-lua
type LuaEngine struct {
	cache *protoCache
	logFn LogFunc
	log   *logrus.Logger
}

// Option configures a LuaEngine
type Option func(*engineOptions)

type engineOptions struct {
	cacheSize int
	logFn     LogFunc
	log       *logrus.Logger
}

// WithCacheSize sets the compiled script cache size. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(o *engineOptions) {
		o.cacheSize = n
	}
}

// WithLogFunc routes the log module of every interpreter to fn
func WithLogFunc(fn LogFunc) Option {
	return func(o *engineOptions) {
		o.logFn = fn
	}
}

// WithLogger sets the engine's own diagnostic logger
func WithLogger(log *logrus.Logger) Option {
	return func(o *engineOptions) {
		o.log = log
	}
}

// NewLuaEngine creates a new Lua script engine
func NewLuaEngine(opts ...Option) (*LuaEngine, error) {
	o := &engineOptions{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logrus.New()
	}
	if o.logFn == nil {
		log := o.log
		o.logFn = func(level, message string) {
			log.WithField("source", "script").Info(fmt.Sprintf("[%s] %s", level, message))
		}
	}

	cache, err := newProtoCache(o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create script cache: %w", err)
	}

	return &LuaEngine{
		cache: cache,
		logFn: o.logFn,
		log:   o.log,
	}, nil
}

// Load implements Engine
func (e *LuaEngine) Load(ctx context.Context, paths ...string) (Handle, error) {
	L := lua.NewState()
	openModules(L, e.logFn)

	h := &luaHandle{L: L, bridge: NewBridge(L)}

	for _, path := range paths {
		proto, err := e.cache.compile(path)
		if err != nil {
			L.Close()
			return nil, err
		}

		err = h.protected(ctx, func() error {
			L.Push(L.NewFunctionFromProto(proto))
			return L.PCall(0, lua.MultRet, nil)
		})
		if err != nil {
			L.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, path, err)
		}
		L.SetTop(0)
		e.log.Debugf("Loaded script %s", path)
	}

	return h, nil
}

type luaHandle struct {
	mu     sync.Mutex
	L      *lua.LState
	bridge *Bridge
	closed bool
}

func (h *luaHandle) Function(name string) (Function, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, false
	}

	fn, ok := h.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, false
	}
	return &luaFunction{h: h, fn: fn, name: name}, true
}

func (h *luaHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.closed {
		h.L.Close()
		h.closed = true
	}
}

// protected runs fn with the context installed and converts panics to errors
func (h *luaHandle) protected(ctx context.Context, fn func() error) (err error) {
	if ctx != nil && ctx.Done() != nil {
		h.L.SetContext(ctx)
		defer h.L.RemoveContext()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

type luaFunction struct {
	h    *luaHandle
	fn   *lua.LFunction
	name string
}

func (f *luaFunction) Call(ctx context.Context, args ...interface{}) (interface{}, error) {
	h := f.h
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHandleClosed
	}

	largs := make([]lua.LValue, len(args))
	for i, arg := range args {
		largs[i] = h.bridge.ToLuaValue(arg)
	}

	var result interface{}
	err := h.protected(ctx, func() error {
		if err := h.L.CallByParam(lua.P{Fn: f.fn, NRet: 1, Protect: true}, largs...); err != nil {
			return err
		}
		ret := h.L.Get(-1)
		h.L.Pop(1)
		result = h.bridge.ToGoValue(ret)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}

	return result, nil
}
