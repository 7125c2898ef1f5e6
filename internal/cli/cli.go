// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing for ztachat.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdLogin
	CmdLogout
	CmdWhoami
	CmdFriends
	CmdExport
	CmdConfig
	CmdServeDev
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdLogin:
		return "login"
	case CmdLogout:
		return "logout"
	case CmdWhoami:
		return "whoami"
	case CmdFriends:
		return "friends"
	case CmdExport:
		return "export"
	case CmdConfig:
		return "config"
	case CmdServeDev:
		return "serve-dev"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool // Output in JSON format

	// Command-specific
	Peer       string // friend username for tui/chat
	Subcommand string
	ConfigKey  string
	ConfigVal  string
	Addr       string // listen address for serve-dev
	Format     string // export format
	Output     string // export directory, "-" for stdout
	NoTimes    bool   // export without message times

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `ztachat - terminal client for ztaChat

Usage:
  ztachat [tui] [FRIEND]           Start the TUI, optionally with FRIEND's conversation
  ztachat chat FRIEND              Line-mode chat with FRIEND
  ztachat login [EMAIL]            Log in with a mailed one-time code and a password
  ztachat logout                   Forget the stored session
  ztachat whoami                   Show the logged-in account
  ztachat friends [subcommand]     Friends and friend requests
  ztachat export FRIEND            Save the conversation with FRIEND
  ztachat config [subcommand]      Configuration
  ztachat serve-dev [--addr ADDR]  Run a local fake backend
  ztachat version                  Show version information

Friends Commands:
  ztachat friends list             List friends (default)
  ztachat friends search PREFIX    Find users by username prefix
  ztachat friends users            List every user
  ztachat friends request USER     Send a friend request to USER
  ztachat friends requests         List pending requests sent to you
  ztachat friends accept ID USER   Accept request ID from USER

Export Flags:
  --format md|json                 Output format (default md)
  --output DIR                     Output directory, - for stdout (default .)
  --no-timestamps                  Leave out message times

Config Commands:
  ztachat config show              Show the current configuration (default)
  ztachat config get KEY           Show one value, e.g. server.chat_url
  ztachat config set KEY VALUE     Set and save one value
  ztachat config keys              List settable keys
  ztachat config path              Show the config file location

Line-mode Chat Commands:
  /reload                          Reload history
  /history                         Print the whole conversation
  /status                          Show the channel state
  /reconnect                       Reopen the channel
  /help                            Show these commands
  /quit                            Leave (also Ctrl+D)

Global Flags:
  -q, --quiet     Minimal output
  -v, --verbose   Mirror log entries to stderr (line mode only)
  --json          Output in JSON format

Environment:
  ZTACHAT_HOME              Config directory (default ~/.ztachat)
  ZTACHAT_AUTH_URL          Auth service base URL
  ZTACHAT_USER_URL          User service base URL
  ZTACHAT_CHAT_URL          Chat websocket URL
  ZTACHAT_STORE_PASSPHRASE  Passphrase sealing the stored session

Examples:
  ztachat serve-dev                   Start the fake backend on 127.0.0.1:8080
  ztachat config set server.auth_url http://127.0.0.1:8080/v1/auth
  ztachat login alice@example.com     Log in (the code is printed by serve-dev)
  ztachat friends request bob         Ask bob to be friends
  ztachat bob                         Open the conversation with bob

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("ztachat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses os.Args and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name).
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	first := remaining[0]
	cmd := strings.ToLower(first)
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		parsePeerArgs(&parsedArgs, remaining)
		return CmdTUI, parsedArgs

	case "chat":
		parsePeerArgs(&parsedArgs, remaining)
		return CmdChat, parsedArgs

	case "login":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdLogin, parsedArgs

	case "logout":
		return CmdLogout, parsedArgs

	case "whoami", "me":
		return CmdWhoami, parsedArgs

	case "friends", "friend", "f":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdFriends, parsedArgs

	case "export":
		parseExportArgs(&parsedArgs, remaining)
		return CmdExport, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "serve-dev", "dev":
		parseServeArgs(&parsedArgs, remaining)
		return CmdServeDev, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		if strings.HasPrefix(cmd, "-") {
			parsedArgs.Raw = append([]string{first}, remaining...)
			return CmdUnknown, parsedArgs
		}
		// A bare name opens that friend's conversation in the TUI.
		parsedArgs.Peer = strings.TrimPrefix(first, "@")
		return CmdTUI, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for _, arg := range args {
		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsedArgs
}

// parsePeerArgs takes the first positional argument as the friend's username.
func parsePeerArgs(args *Args, remaining []string) {
	for _, arg := range remaining {
		if !strings.HasPrefix(arg, "-") {
			args.Peer = strings.TrimPrefix(arg, "@")
			return
		}
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = strings.Join(remaining[2:], " ")
		}
	}
}

// parseExportArgs parses export arguments.
func parseExportArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Peer = strings.TrimPrefix(p.Positional(0), "@")
	args.Format = p.FlagOrDefault("format", "md")
	args.Output = p.FlagOrDefault("output", p.Flag("o"))
	args.NoTimes = p.BoolFlag("no-timestamps")
}

// parseServeArgs parses serve-dev arguments.
func parseServeArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Addr = p.FlagOrDefault("addr", "")
	if args.Addr == "" {
		args.Addr = p.Positional(0)
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// VersionData is the JSON form of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// HandleVersion handles the "version" command with JSON output support.
func HandleVersion(args Args) {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		NewJSONResponse("version", data).Print()
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}

// HandleUnknown reports an unrecognized flag and suggests a command.
func HandleUnknown(args Args) error {
	var first string
	if len(args.Raw) > 0 {
		first = args.Raw[0]
	}
	err := NewValidationError("command", first, "unknown command or flag")
	if s := SuggestCommand(strings.TrimLeft(first, "-")); s != "" {
		return NewValidationErrorWithExample("command", first, "unknown command or flag", "ztachat "+s)
	}
	return err
}
