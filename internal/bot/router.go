package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
)

// RawHandlerFunc handles one protocol line. Handlers registered for a verb
// run in registration order after the wildcard handlers; a failure in one
// never stops the others.
type RawHandlerFunc func(ctx context.Context, env *Env) error

type rawHandler struct {
	name string
	fn   RawHandlerFunc
}

// Handlers is the explicit handler registry, built once at startup and passed
// into the session. There is no ambient process-wide registration.
type Handlers struct {
	raw      map[string][]rawHandler
	commands map[string]*CommandDef
}

func NewHandlers() *Handlers {
	return &Handlers{
		raw:      map[string][]rawHandler{},
		commands: map[string]*CommandDef{},
	}
}

// Raw registers fn for the given verbs. An empty verb list registers a
// wildcard handler that sees every line.
func (h *Handlers) Raw(name string, fn RawHandlerFunc, verbs ...string) {
	if len(verbs) == 0 {
		verbs = []string{""}
	}
	for _, verb := range verbs {
		h.raw[verb] = append(h.raw[verb], rawHandler{name: name, fn: fn})
	}
}

// Command registers def under its canonical name and each alias.
func (h *Handlers) Command(def CommandDef, aliases ...string) {
	d := def
	h.commands[strings.ToLower(def.Name)] = &d
	for _, alias := range aliases {
		h.commands[strings.ToLower(alias)] = &d
	}
}

// Lookup resolves a command token, case-insensitively, by name or alias.
func (h *Handlers) Lookup(token string) *CommandDef {
	return h.commands[strings.ToLower(token)]
}

// VisibleCommands returns the sorted command names (including aliases)
// available at the given privilege level.
func (h *Handlers) VisibleCommands(admin bool) []string {
	var names []string
	for alias, def := range h.commands {
		if def.Admin && !admin {
			continue
		}
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

// dispatchLine routes a parsed line: wildcard handlers first, then the
// handlers registered for the line's verb, in registration order.
func (s *Session) dispatchLine(ctx context.Context, env *Env) {
	for _, h := range s.handlers.raw[""] {
		s.invoke(ctx, h.name, h.fn, env)
	}
	for _, h := range s.handlers.raw[env.Raw.Command] {
		s.invoke(ctx, h.name, h.fn, env)
	}
}

// invoke runs one handler in isolation. A returned error or a panic is
// logged with the handler's identity and summarized to the operations
// channel; it never propagates to the router.
func (s *Session) invoke(ctx context.Context, name string, fn RawHandlerFunc, env *Env) bool {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
			}
		}()
		return fn(ctx, env)
	}()

	if err != nil {
		s.log.Error("handler failed", "handler", name, "error", err)
		s.ChanLog(fmt.Sprintf("Error occurred in hook %s '%v'", name, firstLine(err.Error())))
		return false
	}
	return true
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
