package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"kioskpad/internal/ipc"
	"kioskpad/internal/navigator"
	"kioskpad/internal/service"
)

// ============================================================================
// kioskpad-ctl - Command-line IPC Client
// ============================================================================
// Sends navigation and configurator commands to the kioskpad daemon.
//
// Usage:
//   kioskpad-ctl move left
//   kioskpad-ctl activate
//   kioskpad-ctl configure 0
//   kioskpad-ctl state
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/kioskpad.sock)
// ============================================================================

const defaultSocket = "/tmp/kioskpad.sock"

func main() {
	socketPath := defaultSocket
	if env := os.Getenv("KIOSKPAD_SOCKET"); env != "" {
		socketPath = env
	}

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		os.Exit(0)
	}

	if args[0] == "state" {
		st, err := ipc.State(socketPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		printJSON(st)
		return
	}

	ev, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	data, err := ipc.Send(socketPath, ev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(data) > 0 && string(data) != "null" {
		var v any
		if json.Unmarshal(data, &v) == nil {
			printJSON(v)
			return
		}
	}
	fmt.Println("ok")
}

func parseCommand(args []string) (service.Event, error) {
	need := func(what string) (string, error) {
		if len(args) < 2 {
			return "", fmt.Errorf("%s requires %s", args[0], what)
		}
		return args[1], nil
	}

	switch args[0] {
	case "move":
		dir, err := need("a direction")
		if err != nil {
			return nil, err
		}
		if _, err := navigator.ParseDirection(dir); err != nil {
			return nil, err
		}
		return service.Move{Direction: strings.ToLower(dir)}, nil

	case "left", "right", "up", "down":
		return service.Move{Direction: args[0]}, nil

	case "activate", "enter":
		return service.Activate{}, nil

	case "back":
		return service.Back{}, nil

	case "show":
		return service.SetVisible{Visible: true}, nil

	case "hide":
		return service.SetVisible{Visible: false}, nil

	case "focus":
		item, err := need("an item id")
		if err != nil {
			return nil, err
		}
		return service.Focus{Item: item}, nil

	case "scope":
		scope, err := need("a scope name")
		if err != nil {
			return nil, err
		}
		return service.SetScope{Scope: scope}, nil

	case "configure":
		arg, err := need("a controller slot")
		if err != nil {
			return nil, err
		}
		slot, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid slot %q", arg)
		}
		return service.StartConfigurator{Slot: slot}, nil

	case "abort":
		return service.AbortConfigurator{}, nil

	case "reset":
		return service.ResetConfigurator{}, nil

	case "rescan":
		return service.Rescan{}, nil

	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `kioskpad-ctl - Control the kioskpad daemon via IPC

Usage:
  kioskpad-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: %s, or $KIOSKPAD_SOCKET)

Commands:
  move <dir>              Move focus left, right, up or down
  left, right, up, down   Shorthand for move
  activate, enter         Activate the focused item
  back                    Ask the launcher to go back
  show, hide              Report UI visibility
  focus <item>            Focus an item by id
  scope <name>            Switch the navigation scope
  configure <slot>        Start the mapping wizard for a controller
  abort                   Close the mapping wizard without saving
  reset                   Restart the mapping wizard
  rescan                  Look for added or removed controllers
  state                   Print the daemon state
  help, -h, --help        Show this help message

Examples:
  kioskpad-ctl move down
  kioskpad-ctl configure 0
  kioskpad-ctl -socket /run/kioskpad.sock state
`, defaultSocket)
}
