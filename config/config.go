/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package config loads the relay's INI-style configuration file using
// the same gcfg-based shape SimpleRelay's config loader uses.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/gcfg.v1"
)

// MaxConfigSize is a sanity bound on the config file; even this is
// crazy large for an INI file.
const MaxConfigSize int64 = 1024 * 1024 * 2

const (
	DefaultPort           = 8080
	DefaultMaxClients     = 100
	DefaultLogFile        = "server.log"
	DefaultRequireAuth    = true
	DefaultEnableEncrypt  = false
	DefaultIdleTimeout    = "0"
	defaultScanBufferSize = 64 * 1024
)

// cfgType mirrors SimpleRelay's Global-section-plus-map shape: scalar
// server settings live under [Global], and initial users are
// declared as repeated [User "name"] sections so an operator can seed
// accounts without a registration record type in scope.
type cfgType struct {
	Global struct {
		Port             int
		Max_Clients      int
		Log_File         string
		Log_Level        string
		Require_Auth     bool
		Enable_Encrypt   bool
		Idle_Timeout     string
		Connection_Limit int
	}
	User map[string]*struct {
		Credential string
	}
}

// Config is the resolved, validated configuration consumed by the
// server package.
type Config struct {
	Port          int
	MaxClients    int
	LogFile       string
	LogLevel      string
	RequireAuth   bool
	EnableEncrypt bool
	IdleTimeout   time.Duration
	SeedUsers     map[string]string // username -> credential
}

// Load reads path, parses it with gcfg, applies defaults, and returns
// the resolved Config.
func Load(path string) (Config, error) {
	var c cfgType
	c.Global.Port = DefaultPort
	c.Global.Max_Clients = DefaultMaxClients
	c.Global.Log_File = DefaultLogFile
	c.Global.Require_Auth = DefaultRequireAuth
	c.Global.Enable_Encrypt = DefaultEnableEncrypt
	c.Global.Idle_Timeout = DefaultIdleTimeout

	fin, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer fin.Close()
	fi, err := fin.Stat()
	if err != nil {
		return Config{}, err
	}
	if fi.Size() > MaxConfigSize {
		return Config{}, errors.New("config: file far too large")
	}
	content := make([]byte, fi.Size())
	if _, err := fin.Read(content); err != nil {
		return Config{}, err
	}

	if err := gcfg.ReadStringInto(&c, string(content)); err != nil {
		return Config{}, err
	}
	return resolve(c)
}

func resolve(c cfgType) (Config, error) {
	if c.Global.Port <= 0 || c.Global.Port > 65535 {
		return Config{}, errors.New("config: invalid Port")
	}
	if c.Global.Max_Clients <= 0 {
		return Config{}, errors.New("config: Max-Clients must be positive")
	}
	idle, err := parseIdleTimeout(c.Global.Idle_Timeout)
	if err != nil {
		return Config{}, err
	}
	seed := make(map[string]string, len(c.User))
	for name, u := range c.User {
		if u.Credential == "" {
			return Config{}, errors.New("config: seed user " + name + " has no Credential")
		}
		seed[name] = u.Credential
	}
	return Config{
		Port:          c.Global.Port,
		MaxClients:    c.Global.Max_Clients,
		LogFile:       c.Global.Log_File,
		LogLevel:      c.Global.Log_Level,
		RequireAuth:   c.Global.Require_Auth,
		EnableEncrypt: c.Global.Enable_Encrypt,
		IdleTimeout:   idle,
		SeedUsers:     seed,
	}, nil
}

func parseIdleTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Default returns the configuration the server runs with when no
// config file is supplied, matching spec.md's documented defaults.
func Default() Config {
	return Config{
		Port:          DefaultPort,
		MaxClients:    DefaultMaxClients,
		LogFile:       DefaultLogFile,
		RequireAuth:   DefaultRequireAuth,
		EnableEncrypt: DefaultEnableEncrypt,
		SeedUsers:     map[string]string{},
	}
}
