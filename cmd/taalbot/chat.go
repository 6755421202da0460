package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// chatConversationID identifies the local REPL conversation in the message
// log, so history survives across runs.
const chatConversationID = "local"

// runChat is the interactive tutoring loop on stdin/stdout.
func runChat(ctx context.Context) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Println(app.relay.HandleStart(chatConversationID))
	fmt.Println("Commands: /word [model], /subscribe, /unsubscribe, /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, app, line); quit {
				return nil
			}
			continue
		}

		fmt.Println(app.relay.HandleUserText(ctx, chatConversationID, line))
	}
}

// runCommand handles a slash command. Returns true when the session should
// end.
func runCommand(ctx context.Context, app *app, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		fmt.Println("Tot ziens!")
		return true
	case "/word":
		model := ""
		if len(fields) > 1 {
			model = fields[1]
		}
		fmt.Println(app.relay.HandleGenerateNow(ctx, model))
	case "/subscribe":
		fmt.Println(app.relay.HandleSubscribe(ctx, chatConversationID))
	case "/unsubscribe":
		fmt.Println(app.relay.HandleUnsubscribe(ctx, chatConversationID))
	default:
		fmt.Printf("Unknown command %s\n", fields[0])
	}
	return false
}
