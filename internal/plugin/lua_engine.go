// Copyright 2026 The sqlbridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package plugin provides Lua-based rewrite plugins. Scripts in the plugin
// directory expose a rewrite(sql) function that runs between normalization
// and validation; a failing script is logged and skipped, never fatal.
package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// LuaEngine compiles each script once and runs rewrites on pooled
// interpreter states.
type LuaEngine struct {
	pool      sync.Pool
	scriptsMu sync.RWMutex
	scripts   []compiledScript
	enabled   bool
}

type compiledScript struct {
	name  string
	proto *lua.FunctionProto
}

// NewLuaEngine loads and compiles every .lua file in dir. A disabled or
// empty engine is valid and rewrites nothing.
func NewLuaEngine(enabled bool, dir string) (*LuaEngine, error) {
	e := &LuaEngine{enabled: enabled}
	e.pool.New = func() interface{} {
		return lua.NewState(lua.Options{SkipOpenLibs: false})
	}
	if !enabled || dir == "" {
		return e, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("plugin: failed to read plugin dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".lua" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		proto, err := compileScript(filepath.Join(dir, name))
		if err != nil {
			log.WithFields(log.Fields{"script": name, "error": err}).Warn("plugin: skipping script that failed to compile")
			continue
		}
		e.scripts = append(e.scripts, compiledScript{name: name, proto: proto})
		log.WithFields(log.Fields{"script": name}).Info("plugin: script loaded")
	}
	return e, nil
}

// compileScript parses and compiles one Lua file to a FunctionProto so the
// source is only parsed once per process.
func compileScript(path string) (*lua.FunctionProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	chunk, err := parse.Parse(strings.NewReader(string(data)), path)
	if err != nil {
		return nil, err
	}
	return lua.Compile(chunk, path)
}

// Rewrite runs every script's rewrite(sql) in filename order, threading the
// statement through. A script that errors, returns a non-string, or returns
// an empty string leaves the statement unchanged.
func (e *LuaEngine) Rewrite(sql string) (string, error) {
	if !e.enabled {
		return sql, nil
	}
	e.scriptsMu.RLock()
	scripts := e.scripts
	e.scriptsMu.RUnlock()
	if len(scripts) == 0 {
		return sql, nil
	}

	state := e.pool.Get().(*lua.LState)
	defer e.pool.Put(state)

	for _, script := range scripts {
		rewritten, err := runScript(state, script, sql)
		if err != nil {
			log.WithFields(log.Fields{"script": script.name, "error": err}).Warn("plugin: rewrite script failed")
			continue
		}
		if rewritten != "" {
			sql = rewritten
		}
	}
	return sql, nil
}

func runScript(state *lua.LState, script compiledScript, sql string) (string, error) {
	fn := state.NewFunctionFromProto(script.proto)
	state.Push(fn)
	if err := state.PCall(0, lua.MultRet, nil); err != nil {
		return "", fmt.Errorf("load: %w", err)
	}

	rewrite := state.GetGlobal("rewrite")
	if rewrite.Type() != lua.LTFunction {
		return "", fmt.Errorf("script defines no rewrite function")
	}
	if err := state.CallByParam(lua.P{Fn: rewrite, NRet: 1, Protect: true}, lua.LString(sql)); err != nil {
		return "", fmt.Errorf("call: %w", err)
	}
	ret := state.Get(-1)
	state.Pop(1)

	str, ok := ret.(lua.LString)
	if !ok {
		return "", fmt.Errorf("rewrite returned %s, want string", ret.Type())
	}
	return string(str), nil
}
