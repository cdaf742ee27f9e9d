// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hackystat-go/sensorshell/internal/shell"
)

const replHelp = `commands, one per line, fields delimited by '#':
  add#k=v[#k=v...]             queue one record
  send                         flush the buffer now
  ping                         report server reachability
  statechange#<checksum>[#k=v...]      add iff (resource, checksum) changed
  autosend#<minutes>           informational; the interval is fixed at startup
  help                         print this message
  quit                         flush, close, and exit`

// runREPL implements the spec's line-oriented '#'-delimited protocol
// over stdin/stdout: one shell is constructed for the session's
// lifetime and every line drives one operation against it, until
// 'quit' or EOF.
func runREPL(_ *cobra.Command, _ []string) error {
	sh, _, err := openShell()
	if err != nil {
		fmt.Fprintln(os.Stderr, "sensorshell: startup failed:", err)
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit, err := dispatchREPLLine(sh, line, os.Stdout)
		if err != nil {
			fmt.Fprintln(os.Stdout, "error:", err)
		}
		if quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		fmt.Fprintln(os.Stderr, "sensorshell: stdin read error:", err)
	}

	// EOF without an explicit quit still flushes and closes cleanly.
	return sh.Quit(context.Background())
}

// dispatchREPLLine executes one REPL command line. The bool return
// reports whether the session should end (true for 'quit').
func dispatchREPLLine(sh shell.Shell, line string, out io.Writer) (bool, error) {
	ctx := context.Background()
	parts := strings.Split(line, "#")
	switch parts[0] {
	case "add":
		fields, err := parseFields(parts[1:])
		if err != nil {
			return false, err
		}
		if err := sh.AddFields(ctx, fields); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "ok")

	case "send":
		n, err := sh.Send(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, n)

	case "ping":
		if sh.Ping(ctx) {
			fmt.Fprintln(out, "reachable")
		} else {
			fmt.Fprintln(out, "unreachable")
		}

	case "statechange":
		if len(parts) < 2 {
			return false, fmt.Errorf("statechange requires a checksum: statechange#<checksum>[#k=v...]")
		}
		checksum, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid checksum %q: %w", parts[1], err)
		}
		fields, err := parseFields(parts[2:])
		if err != nil {
			return false, err
		}
		if err := sh.StateChange(ctx, checksum, fields); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "ok")

	case "autosend":
		fmt.Fprintln(out, "autosend interval is fixed at startup; use the 'sensorshell autosend <minutes>' subcommand instead")

	case "help":
		fmt.Fprintln(out, replHelp)

	case "quit":
		if err := sh.Quit(ctx); err != nil {
			return true, err
		}
		fmt.Fprintln(out, "ok")
		return true, nil

	default:
		return false, fmt.Errorf("unrecognized command %q (try 'help')", parts[0])
	}
	return false, nil
}
