// Command careerchat is a terminal client for the career bot API.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mayank-dotcom/career-bot/internal/util"
	"github.com/mayank-dotcom/career-bot/pkg/rpcclient"
)

func main() {
	_ = godotenv.Load()

	defaultAPI := os.Getenv("CAREERBOT_API_URL")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:8080"
	}
	defaultSession, err := rpcclient.DefaultSessionPath()
	if err != nil {
		defaultSession = ".careerbot-session.json"
	}
	apiURL := flag.String("api", defaultAPI, "API base URL")
	sessionPath := flag.String("session", defaultSession, "session cache file")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	// Logs go to stderr so they do not interleave with the conversation.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: util.ParseLevel(*logLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newREPL(rpcclient.New(*apiURL), rpcclient.NewSessionCache(*sessionPath), os.Stdin, os.Stdout, logger)
	defer r.close()
	if err := r.run(ctx); err != nil && err != io.EOF && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newScanner(in io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 64*1024), 1<<20)
	return s
}
