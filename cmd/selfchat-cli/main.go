package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"SelfChat/internal/chatbot"
)

func main() {
	var (
		server    string
		sessionID string
		debug     bool
	)
	flag.StringVar(&server, "server", "http://127.0.0.1:5001", "SelfChat server base URL")
	flag.StringVar(&sessionID, "session-id", "jim", "Session to show with /history")
	flag.BoolVar(&debug, "debug", false, "Log client errors to stderr")
	flag.Parse()

	var logger *slog.Logger
	if debug {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	bot := chatbot.NewChatBot(server, sessionID, logger, os.Stdin, os.Stdout)
	if err := bot.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
