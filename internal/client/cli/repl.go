package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Setup(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Today(ctx context.Context) error
	Goto(ctx context.Context, arg string) error
	Write(ctx context.Context) error
	Show(ctx context.Context) error
	Month(ctx context.Context, arg string) error
	Meta(ctx context.Context) error
	Pages(ctx context.Context) error
	Goals(ctx context.Context) error
	AddGoal(ctx context.Context) error
	DeleteGoal(ctx context.Context, id string) error
	LinkGoal(ctx context.Context, goalID string) error
	Prompt(ctx context.Context) error
	Share(ctx context.Context, professionalID string) error
	Revoke(ctx context.Context, professionalID string) error
	Shares(ctx context.Context) error
	Professionals(ctx context.Context) error
	Sync(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the Quietpage CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help           — show available commands
//	  - register       — create an account
//	  - login          — authenticate
//	  - exit | quit    — leave the program
//
//	Logged in:
//	  - setup | unlock | lock           — master key lifecycle
//	  - today | goto <date|index>       — open a page
//	  - write | show | meta             — edit / display the open entry
//	  - month [YYYY-MM] | pages         — calendar and page index views
//	  - goals | addgoal | delgoal <id>  — goal management
//	  - link <goalID>                   — attach the open entry to a goal
//	  - prompt                          — draw a writing prompt
//	  - share <proID> | revoke <proID>  — entry sharing
//	  - shares | pros                   — share and directory listings
//	  - sync | logout | exit            — housekeeping
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("qp> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		arg := ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: setup, unlock, lock, today, goto, write, show, meta, month, pages, goals, addgoal, delgoal, link, prompt, share, revoke, shares, pros, sync, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "setup":
			_ = a.Setup(ctx)

		case "unlock":
			_ = a.Unlock(ctx)

		case "lock":
			_ = a.Lock(ctx)

		case "today":
			_ = a.Today(ctx)

		case "goto":
			if arg == "" {
				printlnFn("Usage: goto <YYYY-MM-DD | page index>")
				continue
			}
			_ = a.Goto(ctx, arg)

		case "write":
			_ = a.Write(ctx)

		case "show":
			_ = a.Show(ctx)

		case "month":
			_ = a.Month(ctx, arg)

		case "meta":
			_ = a.Meta(ctx)

		case "pages":
			_ = a.Pages(ctx)

		case "goals":
			_ = a.Goals(ctx)

		case "addgoal":
			_ = a.AddGoal(ctx)

		case "delgoal":
			if arg == "" {
				printlnFn("Usage: delgoal <goal id>")
				continue
			}
			_ = a.DeleteGoal(ctx, arg)

		case "link":
			if arg == "" {
				printlnFn("Usage: link <goal id>")
				continue
			}
			_ = a.LinkGoal(ctx, arg)

		case "prompt":
			_ = a.Prompt(ctx)

		case "share":
			if arg == "" {
				printlnFn("Usage: share <professional id>")
				continue
			}
			_ = a.Share(ctx, arg)

		case "revoke":
			if arg == "" {
				printlnFn("Usage: revoke <professional id>")
				continue
			}
			_ = a.Revoke(ctx, arg)

		case "shares":
			_ = a.Shares(ctx)

		case "pros":
			_ = a.Professionals(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
