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

// execIface is the command surface the REPL drives. The real App satisfies
// it; tests provide a lightweight stub.
type execIface interface {
	Status(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Reset(ctx context.Context) error
	Users(ctx context.Context) error
	AddUser(ctx context.Context, name, feeds string) error
	RemoveUser(ctx context.Context, name string) error
	Friends(ctx context.Context, on bool) error
	ClientID(ctx context.Context, id string) error
	ClientSecret(ctx context.Context) error
	Authorize(ctx context.Context) error
	Backup(ctx context.Context) error
	Restore(ctx context.Context) error
}

const helpText = `Available commands:
  status                              show vault and authorization state
  unlock | lock | reset               manage the passphrase
  users                               list tracked users
  add <name> [comments|submitted|both] track a user (default both)
  remove <name>                       stop tracking a user
  friends on|off                      track the friends feed
  client-id <id>                      set the OAuth client id
  client-secret                       set the OAuth client secret
  authorize                           run the Reddit authorization
  backup | restore                    export or import the store
  exit`

// runREPL reads commands from reader until EOF or "exit"/"quit" and
// dispatches them to a. Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("notifier (%s)> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "status":
			cmdErr = a.Status(ctx)
		case "unlock":
			cmdErr = a.Unlock(ctx)
		case "lock":
			cmdErr = a.Lock(ctx)
		case "reset":
			cmdErr = a.Reset(ctx)
		case "users":
			cmdErr = a.Users(ctx)
		case "add":
			switch len(args) {
			case 1:
				cmdErr = a.AddUser(ctx, args[0], "both")
			case 2:
				cmdErr = a.AddUser(ctx, args[0], args[1])
			default:
				printlnFn("Usage: add <name> [comments|submitted|both]")
			}
		case "remove":
			if len(args) != 1 {
				printlnFn("Usage: remove <name>")
				continue
			}
			cmdErr = a.RemoveUser(ctx, args[0])
		case "friends":
			if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
				printlnFn("Usage: friends on|off")
				continue
			}
			cmdErr = a.Friends(ctx, args[0] == "on")
		case "client-id":
			if len(args) != 1 {
				printlnFn("Usage: client-id <id>")
				continue
			}
			cmdErr = a.ClientID(ctx, args[0])
		case "client-secret":
			cmdErr = a.ClientSecret(ctx)
		case "authorize":
			cmdErr = a.Authorize(ctx)
		case "backup":
			cmdErr = a.Backup(ctx)
		case "restore":
			cmdErr = a.Restore(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
		if errors.Is(err, io.EOF) {
			return
		}
	}
}
