// carebot-cli is a terminal chat client for a running carebot daemon. It
// drives the conversation sync client the same way the mobile app does:
// optimistic echo, identifier discovery on first send, and list refreshes.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/tinysteps/carebot/internal/chat"
	"github.com/tinysteps/carebot/internal/chatclient"
	"github.com/tinysteps/carebot/internal/config"
	"github.com/tinysteps/carebot/internal/logger"
)

var (
	botStyle  = color.New(color.FgCyan)
	userStyle = color.New(color.FgGreen)
	sysStyle  = color.New(color.FgYellow)
	errStyle  = color.New(color.FgRed)
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		errStyle.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	logger.SetLevel("error")

	token := os.Getenv("CAREBOT_TOKEN")
	client := chatclient.New(chatclient.Config{
		BaseURL: cfg.Client.BaseURL,
		Timeout: cfg.Client.Timeout,
		Tokens:  chatclient.StaticToken(token),
	})

	ctx := context.Background()
	if err := client.Ping(ctx); err != nil {
		errStyle.Println("backend unreachable:", err)
		os.Exit(1)
	}
	if err := client.VerifyAuth(ctx); err != nil {
		errStyle.Println("authentication failed (set CAREBOT_TOKEN):", err)
		os.Exit(1)
	}

	sysStyle.Println("Connected. Commands: /list, /open <n>, /new, /delete <n>, /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit":
			return
		case line == "/new":
			client.NewConversation()
			sysStyle.Println("started a new conversation")
		case line == "/list":
			listConversations(ctx, client)
		case strings.HasPrefix(line, "/open "):
			openConversation(ctx, client, strings.TrimPrefix(line, "/open "))
		case strings.HasPrefix(line, "/delete "):
			deleteConversation(ctx, client, strings.TrimPrefix(line, "/delete "))
		case line == "":
			continue
		default:
			send(ctx, client, line)
		}
	}
}

func listConversations(ctx context.Context, client *chatclient.Client) {
	convs, err := client.ListConversations(ctx)
	if err != nil {
		errStyle.Println(lastNotice(client))
		return
	}
	if len(convs) == 0 {
		sysStyle.Println("no conversations yet — just start typing")
		return
	}
	for i, c := range convs {
		fmt.Printf("%2d. %s (%d messages, updated %s)\n", i+1, c.Title, c.MessageCount, c.UpdatedAt.Local().Format("Jan 2 15:04"))
	}
}

func pick(ctx context.Context, client *chatclient.Client, arg string) (string, bool) {
	convs := client.Conversations()
	if len(convs) == 0 {
		var err error
		convs, err = client.ListConversations(ctx)
		if err != nil {
			return "", false
		}
	}
	var n int
	if _, err := fmt.Sscanf(arg, "%d", &n); err != nil || n < 1 || n > len(convs) {
		errStyle.Println("no such conversation; try /list first")
		return "", false
	}
	return convs[n-1].ID, true
}

func openConversation(ctx context.Context, client *chatclient.Client, arg string) {
	id, ok := pick(ctx, client, arg)
	if !ok {
		return
	}
	msgs, err := client.LoadConversation(ctx, id)
	if err != nil {
		errStyle.Println(lastNotice(client))
		return
	}
	for _, m := range msgs {
		printMessage(m)
	}
}

func deleteConversation(ctx context.Context, client *chatclient.Client, arg string) {
	id, ok := pick(ctx, client, arg)
	if !ok {
		return
	}
	if err := client.DeleteConversation(ctx, id); err != nil {
		errStyle.Println(lastNotice(client))
		return
	}
	sysStyle.Println("deleted")
}

func send(ctx context.Context, client *chatclient.Client, text string) {
	_, reply, err := client.SendMessage(ctx, text)
	if err != nil {
		errStyle.Println(lastNotice(client))
		return
	}
	printMessage(reply)
}

func printMessage(m chat.Message) {
	switch m.Role {
	case chat.RoleUser:
		userStyle.Printf("you: %s\n", m.Content)
	case chat.RoleSystem:
		sysStyle.Printf("-- %s\n", m.Content)
	default:
		botStyle.Printf("bot: %s\n", m.Content)
	}
}

// lastNotice returns the synthetic message the client appended for the most
// recent failure, falling back to a generic line.
func lastNotice(client *chatclient.Client) string {
	msgs := client.Messages()
	if len(msgs) == 0 {
		return "something went wrong"
	}
	return msgs[len(msgs)-1].Content
}
