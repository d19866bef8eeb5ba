package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mayank-dotcom/career-bot/pkg/domain"
	"github.com/mayank-dotcom/career-bot/pkg/rpcclient"
)

const helpText = `commands:
  /chats              list your chats
  /open <n|id>        open a chat from the list
  /new [title]        start a new chat
  /attach <file.pdf>  add a résumé to your next message
  /logout             sign out and forget the cached session
  /quit               exit
anything else is sent as a message`

type repl struct {
	client  *rpcclient.Client
	cache   *rpcclient.SessionCache
	in      *bufio.Scanner
	logger  *slog.Logger
	tracker *rpcclient.StatusTracker

	outMu sync.Mutex
	out   io.Writer

	user    domain.User
	chatID  string
	chats   []domain.Chat
	pending *rpcclient.ParsedDocument
	seq     int
}

func newREPL(client *rpcclient.Client, cache *rpcclient.SessionCache, in io.Reader, out io.Writer, logger *slog.Logger, opts ...rpcclient.TrackerOption) *repl {
	r := &repl{client: client, cache: cache, in: newScanner(in), out: out, logger: logger}
	opts = append([]rpcclient.TrackerOption{
		rpcclient.WithTrackerLogger(logger),
		rpcclient.OnStatusChange(func(_ string, s domain.MessageStatus) {
			r.printf("  · %s\n", s)
		}),
	}, opts...)
	r.tracker = rpcclient.NewStatusTracker(client, opts...)
	return r
}

func (r *repl) close() { r.tracker.Close() }

func (r *repl) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) prompt(label string) (string, error) {
	r.printf("%s", label)
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(r.in.Text()), nil
}

func (r *repl) run(ctx context.Context) error {
	if err := r.login(ctx); err != nil {
		return err
	}
	r.printf("signed in as %s. type /help for commands.\n", r.user.Email)
	for ctx.Err() == nil {
		line, err := r.prompt("> ")
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		quit, err := r.handle(ctx, line)
		if err != nil {
			r.printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
	return ctx.Err()
}

// login restores the cached session without asking the server, or signs in.
func (r *repl) login(ctx context.Context) error {
	if s, ok, err := r.cache.Load(); err != nil {
		r.logger.Warn("session cache unreadable", "path", r.cache.Path(), "err", err)
	} else if ok {
		r.client.SetToken(s.Token)
		r.user = s.User
		return nil
	}
	for {
		choice, err := r.prompt("(1) sign in  (2) sign up: ")
		if err != nil {
			return err
		}
		email, err := r.prompt("email: ")
		if err != nil {
			return err
		}
		password, err := r.prompt("password: ")
		if err != nil {
			return err
		}
		var res rpcclient.AuthResult
		if choice == "2" {
			name, perr := r.prompt("name (optional): ")
			if perr != nil {
				return perr
			}
			res, err = r.client.SignUp(ctx, email, password, name)
		} else {
			res, err = r.client.SignIn(ctx, email, password)
		}
		if err != nil {
			r.printf("error: %v\n", err)
			continue
		}
		r.user = res.User
		if err := r.cache.Save(rpcclient.Session{Token: res.Token, User: res.User}); err != nil {
			r.logger.Warn("could not cache session", "err", err)
		}
		return nil
	}
}

func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, r.send(ctx, line)
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/help":
		r.printf("%s\n", helpText)
	case "/quit", "/exit":
		return true, nil
	case "/chats":
		return false, r.listChats(ctx)
	case "/open":
		return false, r.openChat(ctx, arg)
	case "/new":
		chat, err := r.client.CreateChat(ctx, r.user.ID, arg)
		if err != nil {
			return false, err
		}
		r.chatID = chat.ID
		r.printf("started %q\n", chat.Title)
	case "/attach":
		return false, r.attach(ctx, arg)
	case "/logout":
		if err := r.client.SignOut(ctx); err != nil {
			r.logger.Warn("sign out failed", "err", err)
		}
		if err := r.cache.Clear(); err != nil {
			return true, err
		}
		r.printf("signed out.\n")
		return true, nil
	default:
		r.printf("unknown command %s\n%s\n", cmd, helpText)
	}
	return false, nil
}

func (r *repl) listChats(ctx context.Context) error {
	chats, err := r.client.GetChats(ctx, r.user.ID)
	if err != nil {
		return err
	}
	r.chats = chats
	if len(chats) == 0 {
		r.printf("no chats yet. just type to start one.\n")
		return nil
	}
	for i, c := range chats {
		r.printf("%2d. %s (%d messages, %s)\n", i+1, c.Title, len(c.Messages), c.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func (r *repl) openChat(ctx context.Context, arg string) error {
	if arg == "" {
		return errors.New("usage: /open <n|id>")
	}
	id := arg
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(r.chats) {
			return fmt.Errorf("no chat %d; run /chats first", n)
		}
		id = r.chats[n-1].ID
	}
	msgs, err := r.client.GetMessages(ctx, id)
	if err != nil {
		return err
	}
	r.chatID = id
	for _, m := range msgs {
		r.printMessage(m)
	}
	return nil
}

func (r *repl) attach(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("usage: /attach <file.pdf>")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	doc, err := r.client.ParsePDF(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	r.pending = &doc
	r.printf("attached %s (%d characters). it will be sent with your next message.\n", doc.FileName, len([]rune(doc.Text)))
	return nil
}

func (r *repl) send(ctx context.Context, content string) error {
	if r.chatID == "" {
		chat, err := r.client.CreateChat(ctx, r.user.ID, rpcclient.TitleFromPrompt(content))
		if err != nil {
			return err
		}
		r.chatID = chat.ID
	}
	payload := content
	if r.pending != nil {
		payload = rpcclient.ComposeWithDocument(r.pending.Text, content)
		r.pending = nil
	}

	r.seq++
	localID := fmt.Sprintf("local-%d", r.seq)
	r.tracker.Track(localID)
	res, err := r.client.SendMessage(ctx, r.chatID, r.user.ID, payload)
	if err != nil {
		r.tracker.Fail(localID)
		return err
	}
	r.tracker.Reconcile(localID, res.UserMessage.ID)
	r.printMessage(res.AIMessage)
	return nil
}

func (r *repl) printMessage(m domain.Message) {
	who := "you"
	if m.Role == domain.RoleAssistant {
		who = "sam"
	}
	r.printf("%s: %s\n", who, m.Content)
}
