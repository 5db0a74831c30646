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
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error

	List(ctx context.Context) error
	Open(ctx context.Context, args []string) error
	View(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Upload(ctx context.Context) error

	Checkout(ctx context.Context, args []string) error
	Checkin(ctx context.Context) error

	History(ctx context.Context) error
	Select(ctx context.Context, args []string) error
	ClearSelection(ctx context.Context) error
	Compare(ctx context.Context, args []string) error

	Tasks(ctx context.Context) error
	AddTask(ctx context.Context) error
	Task(ctx context.Context, args []string) error
}

const (
	guestHelp = "Available commands: register, login, exit"
	userHelp  = "Available commands: (l)ist, open <id>, view [v], download [v], upload, " +
		"checkout [comments], checkin, history, select <v>, clear, compare [unified|split], " +
		"tasks, addtask, task <id> <start|complete|reject>, whoami, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the doccontrol CLI.
//
// It reads a line from the provided scanner, splits it into a command and
// its arguments, and dispatches to methods on 'a'. Unknown commands are
// reported back to the user. The loop exits on scanner EOF, when ctx is
// done, or when the user types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn). Logged out, only
// help, register, login and exit are accepted; everything else asks the
// user to log in first.
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("dc> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(userHelp)
			} else {
				printlnFn(guestHelp)
			}
			continue

		case "register":
			_ = a.Register(ctx)
			continue

		case "login":
			_ = a.Login(ctx)
			continue

		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		if !a.isLoggedIn() {
			if knownCommand(cmd) {
				printlnFn("Please login first")
			} else {
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "logout":
			_ = a.Logout(ctx)
		case "whoami":
			_ = a.WhoAmI(ctx)
		case "l", "list":
			_ = a.List(ctx)
		case "open":
			_ = a.Open(ctx, args)
		case "view":
			_ = a.View(ctx, args)
		case "download":
			_ = a.Download(ctx, args)
		case "upload":
			_ = a.Upload(ctx)
		case "checkout":
			_ = a.Checkout(ctx, args)
		case "checkin":
			_ = a.Checkin(ctx)
		case "history":
			_ = a.History(ctx)
		case "select":
			_ = a.Select(ctx, args)
		case "clear":
			_ = a.ClearSelection(ctx)
		case "compare":
			_ = a.Compare(ctx, args)
		case "tasks":
			_ = a.Tasks(ctx)
		case "addtask":
			_ = a.AddTask(ctx)
		case "task":
			_ = a.Task(ctx, args)
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

var userCommands = map[string]struct{}{
	"logout": {}, "whoami": {}, "l": {}, "list": {}, "open": {}, "view": {},
	"download": {}, "upload": {}, "checkout": {}, "checkin": {}, "history": {},
	"select": {}, "clear": {}, "compare": {}, "tasks": {}, "addtask": {}, "task": {},
}

func knownCommand(cmd string) bool {
	_, ok := userCommands[cmd]
	return ok
}
