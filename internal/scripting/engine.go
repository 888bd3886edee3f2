package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for server-side event scripts.
// Callers may run on any update goroutine, so every bridge call takes the
// mutex; scripts are expected to be short.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. A missing directory is fine: the engine then answers every
// hook with its default.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// PlayerEvent is the context table passed to login/logout hooks.
type PlayerEvent struct {
	AccountID uint32
	GUID      uint64
	Name      string
	Level     int
	Map       uint32
	Zone      uint32
}

func (e *Engine) playerTable(ev PlayerEvent) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("account", lua.LNumber(ev.AccountID))
	t.RawSetString("guid", lua.LNumber(ev.GUID))
	t.RawSetString("name", lua.LString(ev.Name))
	t.RawSetString("level", lua.LNumber(ev.Level))
	t.RawSetString("map", lua.LNumber(ev.Map))
	t.RawSetString("zone", lua.LNumber(ev.Zone))
	return t
}

// OnPlayerLogin calls the on_player_login hook, if defined.
func (e *Engine) OnPlayerLogin(ev PlayerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callHook("on_player_login", e.playerTable(ev))
}

// OnPlayerLogout calls the on_player_logout hook, if defined.
func (e *Engine) OnPlayerLogout(ev PlayerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callHook("on_player_logout", e.playerTable(ev))
}

// OnUnknownPacket reports an out-of-range or unregistered opcode to the
// on_unknown_packet hook, for live protocol archaeology.
func (e *Engine) OnUnknownPacket(opcode uint32, size int, account string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callHook("on_unknown_packet",
		lua.LNumber(opcode), lua.LNumber(size), lua.LString(account))
}

func (e *Engine) callHook(name string, args ...lua.LValue) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua hook error", zap.String("hook", name), zap.Error(err))
	}
}

// Motd lets scripts override the configured message of the day. Returns
// the default when the get_motd hook is absent or misbehaves.
func (e *Engine) Motd(def string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("get_motd")
	if fn == lua.LNil {
		return def
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(def)); err != nil {
		e.log.Error("lua get_motd error", zap.Error(err))
		return def
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	if s, ok := result.(lua.LString); ok && s != "" {
		return string(s)
	}
	return def
}

// NameAllowed gives scripts a veto over character names, on top of the
// static reserved list. Absent hook means allowed.
func (e *Engine) NameAllowed(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("is_name_allowed")
	if fn == lua.LNil {
		return true
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(name)); err != nil {
		e.log.Error("lua is_name_allowed error", zap.Error(err))
		return true
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return result != lua.LFalse
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
