package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/upb/intent-chatbot/app"
	"github.com/upb/intent-chatbot/config"
	"github.com/upb/intent-chatbot/internal/observability"
	"github.com/upb/intent-chatbot/services"
	"github.com/upb/intent-chatbot/services/chat"
	"go.uber.org/zap"
)

const genericFailure = "Something went wrong while generating the response."

var cli struct {
	Dataset   string  `help:"Path to the intent dataset (overrides DATASET_PATH)" type:"path"`
	TopK      int     `help:"Number of nearest utterances to consider" default:"-1"`
	Threshold float64 `help:"Exclusive distance cutoff for a match" default:"0"`
	LogLevel  string  `help:"Log level written to stderr" default:"error" enum:"debug,info,warn,error"`

	Repl replCmd `cmd:"" default:"1" help:"Start an interactive chat session"`
	Ask  askCmd  `cmd:"" help:"Ask a single question and print the answer"`
}

// chatter answers one message
type chatter interface {
	Chat(ctx context.Context, query string, opts ...chat.Option) (string, error)
}

type session struct {
	ctx    context.Context
	chat   chatter
	opts   []chat.Option
	in     io.Reader
	out    io.Writer
	logger *zap.Logger
}

type replCmd struct{}

func (c *replCmd) Run(s *session) error {
	return repl(s)
}

type askCmd struct {
	Question []string `arg:"" help:"Question to ask"`
}

func (c *askCmd) Run(s *session) error {
	answer, err := s.chat.Chat(s.ctx, strings.Join(c.Question, " "), s.opts...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, answer)
	return err
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("chatbot-cli"),
		kong.Description("Ask the intent-grounded assistant from the terminal."),
		kong.UsageOnError())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, closeFn, err := newSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatbot-cli: %v\n", err)
		os.Exit(1)
	}
	defer closeFn()

	kctx.FatalIfErrorf(kctx.Run(s))
}

func newSession(ctx context.Context) (*session, func(), error) {
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	if cli.Dataset != "" {
		cfg.Dataset.Path = cli.Dataset
	}
	// The audit log and auth only apply to the HTTP server
	cfg.Audit.Enabled = false
	cfg.Auth.Enabled = false

	logger, err := observability.NewLogger(cli.LogLevel, "console")
	if err != nil {
		return nil, nil, err
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	s := &session{
		ctx:    ctx,
		chat:   deps.Chat,
		opts:   requestOptions(cli.TopK, cli.Threshold),
		in:     os.Stdin,
		out:    os.Stdout,
		logger: logger,
	}
	closeFn := func() { _ = deps.Close(context.Background()) }
	return s, closeFn, nil
}

// requestOptions turns the flags into per-request overrides. Negative topK
// and a zero threshold keep the configured values.
func requestOptions(topK int, threshold float64) []chat.Option {
	var opts []chat.Option
	if topK >= 0 {
		opts = append(opts, chat.WithTopK(topK))
	}
	if threshold > 0 {
		opts = append(opts, chat.WithThreshold(threshold))
	}
	return opts
}

// repl reads questions line by line until exit, quit or end of input
func repl(s *session) error {
	fmt.Fprintln(s.out, "=== Expert Soft Chatbot ===")
	fmt.Fprintln(s.out, `Type "exit" or "quit" to leave.`)

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "exit", "quit":
			fmt.Fprintln(s.out, "Exiting...")
			return nil
		}

		answer, err := s.chat.Chat(s.ctx, input, s.opts...)
		if err != nil {
			s.logger.Warn("chat failed", zap.Error(err))
			answer = genericFailure
			if services.IsClientInputError(err) {
				answer = services.ErrEmptyQuery.Message
			}
		}
		fmt.Fprintf(s.out, "Bot: %s\n", answer)
	}
}
