// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command handler.
//
// Command: config [subcommand]
//
// Subcommands:
//
//	show (default)          Print the effective configuration
//	path                    Print the config file location
//	get KEY                 Print one value
//	keys                    List every settable key
//	set KEY VALUE           Change one value and save
//	init [--force]          Write a starter config file
//	     [--styles FILE]    Also write the default style table to FILE
//
// Examples:
//
//	rigmark config set server.port 9000
//	rigmark config get render.highlight
//	rigmark config init --styles ~/.rigmark/styles.toml
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jeranaias/rigmark/internal/config"
	"github.com/jeranaias/rigmark/internal/markup"
	"github.com/jeranaias/rigmark/internal/theme"
)

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	return runConfig(args, os.Stdout)
}

func runConfig(args Args, w io.Writer) error {
	p := NewArgParser(args.Raw, "force")
	path, err := configFilePath(args)
	if err != nil {
		return err
	}

	switch p.Subcommand() {
	case "", "show":
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config show", cfg).Print(w)
		}
		fmt.Fprintln(w, cfg.String())
		return nil

	case "path":
		if args.JSON {
			_, statErr := os.Stat(path)
			return NewJSONResponse("config path", map[string]interface{}{
				"path":   path,
				"exists": statErr == nil,
			}).Print(w)
		}
		fmt.Fprintln(w, path)
		return nil

	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("KEY", "rigmark config get KEY  (see: rigmark config keys)")
		}
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		value, err := cfg.Get(key)
		if err != nil {
			return NewValidationErrorWithExample("key", key, err.Error(), "rigmark config get server.port")
		}
		if args.JSON {
			return NewJSONResponse("config get", map[string]interface{}{"key": key, "value": value}).Print(w)
		}
		fmt.Fprintln(w, formatConfigValue(value))
		return nil

	case "keys":
		keys := config.GetAllKeys()
		sort.Strings(keys)
		if args.JSON {
			return NewJSONResponse("config keys", keys).Print(w)
		}
		for _, key := range keys {
			fmt.Fprintln(w, key)
		}
		return nil

	case "set":
		key, value := p.Positional(1), strings.Join(p.PositionalFrom(2), " ")
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("KEY VALUE", "rigmark config set server.port 9000")
		}
		if err := setConfigValue(path, key, value); err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config set", map[string]string{"key": key, "value": value, "path": path}).Print(w)
		}
		fmt.Fprintf(w, "%s %s = %s (%s)\n", SuccessStyle.Render("[OK]"), key, value, path)
		return nil

	case "init":
		return initConfig(path, p.BoolFlag("force"), p.Flag("styles"), args.JSON, w)

	default:
		return NewValidationErrorWithExample("subcommand", p.Subcommand(),
			"unknown config subcommand", "rigmark config [show|path|get|keys|set|init]")
	}
}

// configFilePath is --config when given, else the default TOML location.
func configFilePath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}

// readConfigFile loads path over the defaults without environment
// overrides, so that saving does not capture RIGMARK_* values.
func readConfigFile(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	var err error
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		err = config.LoadJSON(cfg, path)
	} else {
		err = config.LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, NewCommandError("config", "read "+path, err.Error(), err)
	}
	return cfg, nil
}

func writeConfigFile(cfg *config.Config, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

// setConfigValue changes one key in the file at path. The file is only
// written when the result validates.
func setConfigValue(path, key, value string) error {
	cfg, err := readConfigFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(), "rigmark config set server.port 9000")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	return writeConfigFile(cfg, path)
}

// initConfig writes a default config to path, and optionally the default
// style table to stylesPath, which is then recorded in render.styles_file.
func initConfig(path string, force bool, stylesPath string, jsonMode bool, w io.Writer) error {
	if _, err := os.Stat(path); err == nil && !force {
		return NewValidationErrorWithExample("path", path, "config file already exists", "rigmark config init --force")
	}

	cfg := config.Default()
	written := []string{}
	if stylesPath != "" {
		if err := theme.Save(stylesPath, markup.DefaultStyles()); err != nil {
			return WrapError(err, "failed to write style table")
		}
		cfg.Render.StylesFile = stylesPath
		written = append(written, stylesPath)
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	if err := writeConfigFile(cfg, path); err != nil {
		return err
	}
	written = append([]string{path}, written...)

	if jsonMode {
		return NewJSONResponse("config init", map[string][]string{"written": written}).Print(w)
	}
	for _, f := range written {
		fmt.Fprintf(w, "%s Wrote %s\n", SuccessStyle.Render("[OK]"), f)
	}
	return nil
}

func ensureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}

func formatConfigValue(v interface{}) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ",")
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
