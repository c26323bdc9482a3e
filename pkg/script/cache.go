package script

import (
	"bufio"
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// cachedProto is a compiled chunk plus the file identity it was built from.
// FunctionProto values are immutable and safe to share between states.
type cachedProto struct {
	modTime time.Time
	size    int64
	proto   *lua.FunctionProto
}

type protoCache struct {
	lru *lru.Cache[string, cachedProto]
}

func newProtoCache(size int) (*protoCache, error) {
	if size <= 0 {
		return &protoCache{}, nil
	}

	c, err := lru.New[string, cachedProto](size)
	if err != nil {
		return nil, err
	}
	return &protoCache{lru: c}, nil
}

func (c *protoCache) compile(path string) (*lua.FunctionProto, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	if c.lru != nil {
		if hit, ok := c.lru.Get(path); ok && hit.size == info.Size() && hit.modTime.Equal(info.ModTime()) {
			return hit.proto, nil
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer file.Close()

	chunk, err := parse.Parse(bufio.NewReader(file), path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, path, err)
	}

	proto, err := lua.Compile(chunk, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, path, err)
	}

	if c.lru != nil {
		c.lru.Add(path, cachedProto{
			modTime: info.ModTime(),
			size:    info.Size(),
			proto:   proto,
		})
	}

	return proto, nil
}

// Len returns the number of cached prototypes
func (c *protoCache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
