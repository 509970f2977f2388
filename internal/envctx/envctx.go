// Package envctx holds the process-wide build environment as an explicit
// value.
//
// A [Builder] is filled during bootstrap, seeded from the inherited process
// environment. Once bootstrap completes, [Builder.Context] freezes the
// variables into a read-only [Context] that is handed to every downstream
// component and rendered into child process environments.
//
// Windows variable names are case-insensitive: a Builder created with
// [NewHostBuilder] for windows matches names without regard to case and
// keeps the spelling the variable was first given, so "Path" inherited from
// the host and "PATH" set by bootstrap are one variable.
//
// Neither type is safe for concurrent mutation. Bootstrap is single-threaded
// and the frozen Context is never written.
package envctx

import (
	"sort"
	"strings"
)

// A variable with the name spelling it was first given.
type entry struct {
	name  string
	value string
}

// Builder accumulates environment variables during bootstrap.
type Builder struct {
	vars map[string]entry
	fold bool
}

// NewBuilder creates a Builder with case-sensitive names seeded from
// KEY=VALUE entries, typically os.Environ(). Malformed entries are skipped;
// later duplicates win.
func NewBuilder(environ []string) *Builder {
	return newBuilder(environ, false)
}

// NewHostBuilder is NewBuilder with the name rules of goos. Windows names
// are matched case-insensitively.
func NewHostBuilder(goos string, environ []string) *Builder {
	return newBuilder(environ, goos == "windows")
}

func newBuilder(environ []string, fold bool) *Builder {
	b := &Builder{vars: make(map[string]entry, len(environ)), fold: fold}
	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok && k != "" {
			b.Set(k, v)
		}
	}
	return b
}

func canonical(key string, fold bool) string {
	if fold {
		return strings.ToUpper(key)
	}
	return key
}

// Set assigns a variable, replacing any previous value. An existing
// variable keeps its name spelling.
func (b *Builder) Set(key, value string) {
	k := canonical(key, b.fold)
	e, ok := b.vars[k]
	if !ok {
		e.name = key
	}
	e.value = value
	b.vars[k] = e
}

// SetDefault assigns a variable only if it is not already set.
// Returns true if the value was assigned.
func (b *Builder) SetDefault(key, value string) bool {
	if _, ok := b.Lookup(key); ok {
		return false
	}
	b.Set(key, value)
	return true
}

// Lookup returns a variable and whether it is set.
func (b *Builder) Lookup(key string) (string, bool) {
	e, ok := b.vars[canonical(key, b.fold)]
	return e.value, ok
}

// Get returns a variable, or "" if unset.
func (b *Builder) Get(key string) string {
	v, _ := b.Lookup(key)
	return v
}

// Append adds elem to the end of a list variable such as PATH, using sep
// between entries. An unset or empty variable becomes elem.
func (b *Builder) Append(key, elem, sep string) {
	if cur := b.Get(key); cur != "" {
		b.Set(key, cur+sep+elem)
		return
	}
	b.Set(key, elem)
}

// Context freezes the current variables into a read-only Context. Later
// changes to the Builder do not affect the returned value.
func (b *Builder) Context() *Context {
	vars := make(map[string]entry, len(b.vars))
	for k, e := range b.vars {
		vars[k] = e
	}
	return &Context{vars: vars, fold: b.fold}
}

// Context is the frozen build environment.
type Context struct {
	vars map[string]entry
	fold bool
}

// Lookup returns a variable and whether it is set.
func (c *Context) Lookup(key string) (string, bool) {
	e, ok := c.vars[canonical(key, c.fold)]
	return e.value, ok
}

// Get returns a variable, or "" if unset.
func (c *Context) Get(key string) string {
	v, _ := c.Lookup(key)
	return v
}

// Len returns the number of variables.
func (c *Context) Len() int {
	return len(c.vars)
}

// Keys returns all variable names, as first spelled, in sorted order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.vars))
	for _, e := range c.vars {
		keys = append(keys, e.name)
	}
	sort.Strings(keys)
	return keys
}

// Environ renders the variables as sorted KEY=VALUE entries suitable for
// exec.Cmd.Env.
func (c *Context) Environ() []string {
	keys := c.Keys()
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+c.Get(k))
	}
	return env
}
