package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// handler runs one command with the words following the command name.
type handler func(ctx context.Context, args []string) error

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool

	Login(ctx context.Context, args []string) error
	Unlock(ctx context.Context, args []string) error
	Lock(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error

	List(ctx context.Context, args []string) error
	More(ctx context.Context, args []string) error
	Filter(ctx context.Context, args []string) error
	Sort(ctx context.Context, args []string) error
	Thumbs(ctx context.Context, args []string) error

	View(ctx context.Context, args []string) error
	Next(ctx context.Context, args []string) error
	Prev(ctx context.Context, args []string) error
	CloseView(ctx context.Context, args []string) error
	Save(ctx context.Context, args []string) error

	Favorite(ctx context.Context, args []string) error
	Rename(ctx context.Context, args []string) error
	Move(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Comments(ctx context.Context, args []string) error
	Comment(ctx context.Context, args []string) error
	Versions(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: login, exit"
	helpLoggedIn  = `Available commands:
  list | more | filter <all|images|videos|favorites> | sort <date|name|size> [asc|desc]
  thumbs [retry <n>]
  view <n> | next (n) | prev (p) | close | save <path>
  fav [n] | rename [n] <name> | move [n] <folder|-> | delete [n]
  comments [n] | comment add [n] <text> | comment edit [n] <id> <text> | comment rm [n] <id>
  versions [n] | upload [-e] <path>
  unlock | lock | logout | exit`
)

func commandTable(a execIface) map[string]handler {
	return map[string]handler{
		"unlock":   a.Unlock,
		"lock":     a.Lock,
		"logout":   a.Logout,
		"l":        a.List,
		"list":     a.List,
		"more":     a.More,
		"filter":   a.Filter,
		"sort":     a.Sort,
		"thumbs":   a.Thumbs,
		"view":     a.View,
		"n":        a.Next,
		"next":     a.Next,
		"p":        a.Prev,
		"prev":     a.Prev,
		"close":    a.CloseView,
		"save":     a.Save,
		"fav":      a.Favorite,
		"rename":   a.Rename,
		"move":     a.Move,
		"delete":   a.Delete,
		"comments": a.Comments,
		"comment":  a.Comment,
		"versions": a.Versions,
		"upload":   a.Upload,
	}
}

// runREPL starts the read–eval–print loop of the gallery CLI.
//
// It reads a line from reader, takes the first word as the command and
// dispatches to a. Commands other than help, login and exit require a
// session. Handler errors are printed and the loop goes on. The loop exits
// on EOF or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	commands := commandTable(a)

	for {
		printlnFn(fmt.Sprintf("gg %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "login":
			printError(a.Login(ctx, args))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			h, ok := commands[cmd]
			if !ok {
				printlnFn("Unknown command:", cmd)
				continue
			}
			if !a.isLoggedIn() {
				printlnFn("Please login first")
				continue
			}
			printError(h(ctx, args))
		}

		if ctx.Err() != nil {
			return
		}
	}
}

func printError(err error) {
	if err != nil {
		printlnFn("Error:", describe(err))
	}
}
