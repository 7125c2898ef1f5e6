// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation.
//
// Command: config [subcommand]
//
// Subcommands:
//
//	show (default)      Display the current configuration
//	get KEY             Display one value
//	set KEY VALUE       Set one value and save config.toml
//	keys                List settable keys
//	path                Show the configuration file path
//
// Keys use dot notation, e.g. server.chat_url or ui.theme.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/ztachat-tui/internal/config"
	"github.com/jeranaias/ztachat-tui/internal/ui/styles"
)

// HandleConfig handles the "config" command. Set saves through save, which
// is config.Save outside tests.
func HandleConfig(cfg *config.Config, args Args, out io.Writer, save func(*config.Config) error) error {
	sub := strings.ToLower(args.Subcommand)
	if sub == "" {
		sub = "show"
	}

	switch sub {
	case "show", "list":
		return OutputJSON(out, args.JSON, "config show", func() (any, error) {
			if !args.JSON {
				showConfig(out, cfg)
			}
			return cfg, nil
		})

	case "get":
		if args.ConfigKey == "" {
			return ErrMissingArgument("key", "ztachat config get server.chat_url")
		}
		return OutputJSON(out, args.JSON, "config get", func() (any, error) {
			v, err := cfg.Get(args.ConfigKey)
			if err != nil {
				return nil, NewValidationError("key", args.ConfigKey, err.Error())
			}
			if !args.JSON {
				fmt.Fprintln(out, v)
			}
			return map[string]any{"key": args.ConfigKey, "value": v}, nil
		})

	case "set":
		if args.ConfigKey == "" || args.ConfigVal == "" {
			return ErrMissingArgument("key and value", "ztachat config set ui.theme dark")
		}
		return OutputJSON(out, args.JSON, "config set", func() (any, error) {
			next := cfg.Clone()
			if err := next.Set(args.ConfigKey, args.ConfigVal); err != nil {
				return nil, NewValidationError(args.ConfigKey, args.ConfigVal, err.Error())
			}
			if err := next.Validate(); err != nil {
				return nil, err
			}
			if err := save(next); err != nil {
				return nil, NewCommandError("config", "save", err)
			}
			*cfg = *next
			if !args.JSON {
				fmt.Fprintln(out, styles.RenderSuccess(args.ConfigKey+" = "+args.ConfigVal))
			}
			return map[string]any{"key": args.ConfigKey, "value": args.ConfigVal}, nil
		})

	case "keys":
		return OutputJSON(out, args.JSON, "config keys", func() (any, error) {
			keys := config.GetAllKeys()
			if !args.JSON {
				for _, k := range keys {
					fmt.Fprintln(out, k)
				}
			}
			return keys, nil
		})

	case "path":
		return OutputJSON(out, args.JSON, "config path", func() (any, error) {
			path, err := config.ConfigPathTOML()
			if err != nil {
				return nil, err
			}
			if !args.JSON {
				fmt.Fprintln(out, path)
			}
			return map[string]string{"path": path}, nil
		})
	}

	return NewValidationErrorWithExample("subcommand", sub, "unknown config subcommand", "ztachat config show")
}

func showConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, TitleStyle.Render("Configuration"))
	section := ""
	for _, key := range config.GetAllKeys() {
		if head, _, ok := strings.Cut(key, "."); ok && head != section {
			section = head
			fmt.Fprintln(w)
			fmt.Fprintln(w, TitleStyle.Render("["+section+"]"))
		}
		v, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Fprintln(w, RenderField(key, fmt.Sprint(v)))
	}
}
