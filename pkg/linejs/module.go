package linejs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dop251/goja"
	"github.com/pkg/errors"
)

var ErrNoRegister = errors.New("linejs: script did not call register()")
var ErrHookTimeout = errors.New("linejs: js hook timeout")

// Module wraps a user script that decides which generator commentary lines
// get surfaced in the wizard and how they are labeled. The script calls
// register({ name, classify }) where classify(line, ctx) returns null to
// drop, a string or true to keep, or { text, level, tag }.
type Module struct {
	mu sync.Mutex

	vm     *goja.Runtime
	config *goja.Object

	scriptPath string
	name       string

	hookTimeout time.Duration

	classifyFn goja.Callable
	initFn     goja.Callable
	onErrorFn  goja.Callable

	state *goja.Object
	stats Stats
}

func parseOptions(opts Options) (time.Duration, error) {
	if opts.HookTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(opts.HookTimeout)
	if err != nil {
		return 0, errors.Wrap(err, "parse hook timeout")
	}
	return d, nil
}

func LoadFromFile(scriptPath string, opts Options) (*Module, error) {
	b, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, errors.Wrap(err, "read line script")
	}
	m, err := LoadFromSource(scriptPath, string(b), opts)
	if err != nil {
		return nil, err
	}
	m.scriptPath = scriptPath
	return m, nil
}

func LoadFromSource(name, src string, opts Options) (*Module, error) {
	timeout, err := parseOptions(opts)
	if err != nil {
		return nil, err
	}

	m := &Module{
		vm:          goja.New(),
		hookTimeout: timeout,
	}

	enableConsole(m.vm)
	m.state = m.vm.NewObject()

	if err := m.vm.Set("register", func(config goja.Value) error {
		if m.config != nil {
			return errors.New("register() called more than once")
		}
		if goja.IsNull(config) || goja.IsUndefined(config) {
			return errors.New("register(config) requires a config object")
		}
		m.config = config.ToObject(m.vm)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "set register")
	}

	if _, err := m.vm.RunScript("linejs:helpers", helpersJS); err != nil {
		return nil, errors.Wrap(err, "load helpers")
	}
	if err := injectGoHelpers(m); err != nil {
		return nil, err
	}

	prog, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, errors.Wrap(err, "compile line script")
	}
	if _, err := m.vm.RunProgram(prog); err != nil {
		return nil, errors.Wrap(err, "run line script")
	}

	if m.config == nil {
		return nil, ErrNoRegister
	}

	nameVal := m.config.Get("name")
	if isNullish(nameVal) || strings.TrimSpace(nameVal.String()) == "" {
		return nil, errors.New("register({ name: string, ... }): name is required")
	}
	m.name = nameVal.String()

	classifyFn, ok := goja.AssertFunction(m.config.Get("classify"))
	if !ok {
		return nil, errors.New("register({ classify: function(line, ctx), ... }): classify is required")
	}
	m.classifyFn = classifyFn

	if fn, ok := goja.AssertFunction(m.config.Get("init")); ok {
		m.initFn = fn
	}
	if fn, ok := goja.AssertFunction(m.config.Get("onError")); ok {
		m.onErrorFn = fn
	}

	if m.initFn != nil {
		ctxObj := m.buildContext("init", 0)
		if _, err := m.callHook(m.initFn, ctxObj); err != nil {
			m.stats.HookErrors++
			m.callOnError(err, goja.Undefined(), ctxObj)
		}
	}

	return m, nil
}

func (m *Module) Name() string { return m.name }

func (m *Module) ScriptPath() string { return m.scriptPath }

func (m *Module) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Classify runs the script on one line. The second return is false when the
// script drops it; hook errors drop too, after notifying onError.
func (m *Module) Classify(line string, lineNumber int64) (Verdict, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.LinesSeen++
	trimmed := strings.TrimRight(line, "\r\n")
	ctxObj := m.buildContext("classify", lineNumber)

	v, err := m.callHook(m.classifyFn, m.vm.ToValue(trimmed), ctxObj)
	if err != nil {
		m.stats.HookErrors++
		m.callOnError(err, m.vm.ToValue(trimmed), ctxObj)
		m.stats.LinesDropped++
		return Verdict{}, false
	}

	verdict, keep := m.normalizeVerdict(v, trimmed)
	if !keep {
		m.stats.LinesDropped++
		return Verdict{}, false
	}
	m.stats.LinesKept++
	return verdict, true
}

// Surface adapts the module to the execution surface's line filter contract.
func (m *Module) Surface(line string) (string, bool) {
	verdict, keep := m.Classify(line, 0)
	if !keep {
		return "", false
	}
	return verdict.Text, true
}

func (m *Module) normalizeVerdict(v goja.Value, raw string) (Verdict, bool) {
	if isNullish(v) {
		return Verdict{}, false
	}
	switch exported := v.Export().(type) {
	case bool:
		if !exported {
			return Verdict{}, false
		}
		return Verdict{Text: raw, Level: "info"}, true
	case string:
		if strings.TrimSpace(exported) == "" {
			return Verdict{}, false
		}
		return Verdict{Text: exported, Level: "info"}, true
	}

	obj := v.ToObject(m.vm)
	out := Verdict{Text: raw, Level: "info"}
	if tv := obj.Get("text"); !isNullish(tv) {
		out.Text = tv.String()
	}
	if lv := obj.Get("level"); !isNullish(lv) {
		out.Level = strings.ToLower(lv.String())
	}
	if tv := obj.Get("tag"); !isNullish(tv) {
		out.Tag = tv.String()
	}
	if strings.TrimSpace(out.Text) == "" {
		return Verdict{}, false
	}
	return out, true
}

func (m *Module) buildContext(hook string, lineNumber int64) *goja.Object {
	obj := m.vm.NewObject()
	_ = obj.Set("hook", hook)
	_ = obj.Set("lineNumber", lineNumber)
	_ = obj.Set("state", m.state)
	_ = obj.Set("now", m.newDate(time.Now().UTC()))
	return obj
}

func (m *Module) newDate(t time.Time) goja.Value {
	ctor := m.vm.Get("Date")
	o, err := m.vm.New(ctor, m.vm.ToValue(t.UnixMilli()))
	if err != nil {
		return goja.Undefined()
	}
	return o
}

func (m *Module) callHook(fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	if fn == nil {
		return goja.Undefined(), nil
	}

	if m.hookTimeout > 0 {
		timer := time.AfterFunc(m.hookTimeout, func() {
			m.vm.Interrupt(ErrHookTimeout)
		})
		defer timer.Stop()
		defer m.vm.ClearInterrupt()
	}

	v, err := fn(goja.Undefined(), args...)
	if err != nil {
		if isInterruptedByTimeout(err) {
			m.stats.HookTimeouts++
		}
		return nil, err
	}
	return v, nil
}

func (m *Module) callOnError(err error, payload goja.Value, ctxObj *goja.Object) {
	if m.onErrorFn == nil {
		return
	}
	_, _ = m.onErrorFn(goja.Undefined(), m.vm.ToValue(err.Error()), payload, ctxObj)
}

func enableConsole(vm *goja.Runtime) {
	obj := vm.NewObject()

	_ = obj.Set("log", func(call goja.FunctionCall) goja.Value {
		_, _ = fmt.Fprintln(os.Stdout, exportArgs(call.Arguments)...)
		return goja.Undefined()
	})
	_ = obj.Set("warn", func(call goja.FunctionCall) goja.Value {
		_, _ = fmt.Fprintln(os.Stderr, exportArgs(call.Arguments)...)
		return goja.Undefined()
	})
	_ = obj.Set("error", func(call goja.FunctionCall) goja.Value {
		_, _ = fmt.Fprintln(os.Stderr, exportArgs(call.Arguments)...)
		return goja.Undefined()
	})

	_ = vm.Set("console", obj)
}

func exportArgs(args []goja.Value) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		out = append(out, a.Export())
	}
	return out
}

func isNullish(v goja.Value) bool {
	if v == nil {
		return true
	}
	return goja.IsUndefined(v) || goja.IsNull(v)
}

func isInterruptedByTimeout(err error) bool {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if v, ok := interrupted.Value().(error); ok && errors.Is(v, ErrHookTimeout) {
			return true
		}
	}
	return errors.Is(err, ErrHookTimeout)
}

// injectGoHelpers adds lines.parseTimestamp(value, formats?): explicit Go
// time layouts when formats is given, best-effort dateparse otherwise.
// Returns a JS Date or null.
func injectGoHelpers(m *Module) error {
	linesVal := m.vm.Get("lines")
	if isNullish(linesVal) {
		return errors.New("linejs: helpers did not define globalThis.lines")
	}
	linesObj := linesVal.ToObject(m.vm)

	if err := linesObj.Set("parseTimestamp", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 || isNullish(call.Arguments[0]) {
			return goja.Null()
		}

		parseNumeric := func(i int64) time.Time {
			// Values below 1e12 look like seconds rather than millis.
			if i > 0 && i < 1_000_000_000_000 {
				return time.Unix(i, 0).UTC()
			}
			return time.UnixMilli(i).UTC()
		}

		var t time.Time
		var ok bool
		switch vv := call.Arguments[0].Export().(type) {
		case time.Time:
			t, ok = vv, true
		case int64:
			t, ok = parseNumeric(vv), true
		case float64:
			t, ok = parseNumeric(int64(vv)), true
		case string:
			s := strings.TrimSpace(vv)
			if s == "" {
				return goja.Null()
			}
			if len(call.Arguments) >= 2 && !isNullish(call.Arguments[1]) {
				if formats, ok2 := call.Arguments[1].Export().([]any); ok2 {
					for _, it := range formats {
						layout, ok3 := it.(string)
						if !ok3 || strings.TrimSpace(layout) == "" {
							continue
						}
						if tt, e := time.Parse(layout, s); e == nil {
							t, ok = tt, true
							break
						}
					}
				}
			}
			if !ok {
				tt, e := dateparse.ParseAny(s)
				if e != nil {
					return goja.Null()
				}
				t, ok = tt, true
			}
		default:
			s := strings.TrimSpace(call.Arguments[0].String())
			if s == "" {
				return goja.Null()
			}
			if i, e := strconv.ParseInt(s, 10, 64); e == nil {
				t, ok = parseNumeric(i), true
			} else {
				tt, e := dateparse.ParseAny(s)
				if e != nil {
					return goja.Null()
				}
				t, ok = tt, true
			}
		}

		if !ok {
			return goja.Null()
		}
		return m.newDate(t.UTC())
	}); err != nil {
		return errors.Wrap(err, "set lines.parseTimestamp")
	}

	return nil
}
