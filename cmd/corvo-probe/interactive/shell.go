// Package interactive provides the interactive command loop for
// corvo-probe's watch mode.
package interactive

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/corvo-protocol/corvo-go/pkg/connection"
	"github.com/corvo-protocol/corvo-go/pkg/wire"
)

// Shell drives a supervised broker connection from the terminal.
type Shell struct {
	sup      *connection.Supervisor
	nodename string
	rl       *readline.Instance
}

// New creates a shell over the supervised connection.
func New(sup *connection.Supervisor, nodename string) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "corvo> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{
		sup:      sup,
		nodename: nodename,
		rl:       rl,
	}, nil
}

// Stdout returns a writer that coordinates with the prompt. Use it for
// asynchronous output so incoming messages do not garble the input line.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the command loop. It returns when the user exits or the
// context ends; cancel is invoked on exit.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "exiting")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.SplitN(input, " ", 2)
		cmd := strings.ToLower(parts[0])
		arg := ""
		if len(parts) == 2 {
			arg = parts[1]
		}

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "status", "s":
			s.cmdStatus()

		case "send":
			s.cmdSend(arg)

		case "ping", "p":
			s.cmdPing()

		case "exit", "quit", "q":
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "unknown command %q, try help\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), "commands:")
	fmt.Fprintln(s.rl.Stdout(), "  status (s)     connection state and TLS parameters")
	fmt.Fprintln(s.rl.Stdout(), "  send <text>    send an application message")
	fmt.Fprintln(s.rl.Stdout(), "  ping (p)       send a keep-alive ping")
	fmt.Fprintln(s.rl.Stdout(), "  exit (q)       close the connection and quit")
}

func (s *Shell) cmdStatus() {
	out := s.rl.Stdout()
	fmt.Fprintf(out, "broker:  %s\n", s.nodename)
	fmt.Fprintf(out, "state:   %s\n", s.sup.State())

	conn := s.sup.Conn()
	if conn == nil || s.sup.State() != connection.StateConnected {
		if attempts := s.sup.Attempts(); attempts > 0 {
			fmt.Fprintf(out, "retries: %d\n", attempts)
		}
		return
	}

	fmt.Fprintf(out, "remote:  %s\n", conn.RemoteAddr())
	if state, ok := conn.TLSConnectionState(); ok {
		fmt.Fprintf(out, "tls:     %s, %s\n", tls.VersionName(state.Version), tls.CipherSuiteName(state.CipherSuite))
	}
}

func (s *Shell) cmdSend(arg string) {
	if arg == "" {
		fmt.Fprintln(s.rl.Stdout(), "usage: send <text>")
		return
	}
	if err := s.sup.Send([]byte(arg)); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "send failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "sent %d bytes\n", len(arg))
}

func (s *Shell) cmdPing() {
	conn := s.sup.Conn()
	if conn == nil || s.sup.State() != connection.StateConnected {
		fmt.Fprintln(s.rl.Stdout(), "not connected")
		return
	}
	if err := conn.SendControlMessage(wire.ControlPing, conn.NextSeq()); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "ping failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "ping sent")
}
