package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmcleod/pinlock/session"
)

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage the local PIN",
	Long: `Manage the local PIN directly against the configured store.
Do not run these while a server holds the same store open.`,
}

var pinStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a PIN is set",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocalSession(cmd, func(s *session.LocalSession) error {
			fmt.Fprintf(cmd.OutOrStdout(), "pin: %s\n", s.State())
			return nil
		})
	},
}

var pinRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Set the first PIN",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocalSession(cmd, func(s *session.LocalSession) error {
			if s.HasPin() {
				return errors.New("a PIN is already set; run 'pinlock pin reset' first")
			}
			in := newPromptReader(cmd)
			pin, err := in.secret("New PIN: ")
			if err != nil {
				return err
			}
			confirm, err := in.secret("Repeat PIN: ")
			if err != nil {
				return err
			}
			if pin != confirm {
				return errors.New("PINs do not match")
			}
			if err := s.Register(cmd.Context(), pin); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PIN registered")
			return nil
		})
	},
}

var pinUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Check the PIN and optionally print a protected state entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		show, _ := cmd.Flags().GetString("show")
		return withLocalSession(cmd, func(s *session.LocalSession) error {
			pin, err := newPromptReader(cmd).secret("PIN: ")
			if err != nil {
				return err
			}
			if _, err := s.Login(cmd.Context(), pin); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "PIN accepted")
			if show == "" {
				return nil
			}
			p, err := s.Load(cmd.Context(), show)
			if err != nil {
				return err
			}
			if text, err := p.Text(); err == nil {
				fmt.Fprintln(out, text)
				return nil
			}
			fmt.Fprintln(out, string(p.Value))
			return nil
		})
	},
}

var pinResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the PIN and every protected state entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		return withLocalSession(cmd, func(s *session.LocalSession) error {
			if !yes {
				answer, err := newPromptReader(cmd).line("This permanently deletes all locally protected data. Type RESET to continue: ")
				if err != nil {
					return err
				}
				if answer != "RESET" {
					return errors.New("reset cancelled")
				}
			}
			if err := s.ResetPin(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PIN reset")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(pinCmd)
	pinCmd.AddCommand(pinStatusCmd, pinRegisterCmd, pinUnlockCmd, pinResetCmd)
	pinUnlockCmd.Flags().String("show", "", "Name of a protected state entry to print after unlocking")
	pinResetCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
}

func withLocalSession(cmd *cobra.Command, fn func(*session.LocalSession) error) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	s, err := newLocalSession(cmd.Context(), cfg, store, log)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(s); err != nil {
		if session.KindOf(err) != "" {
			return errors.New(session.MessageOf(err))
		}
		return err
	}
	return nil
}

// promptReader reads secrets without echo from a terminal and falls back
// to plain lines when input is piped.
type promptReader struct {
	out io.Writer
	in  io.Reader
	buf *bufio.Reader
}

func newPromptReader(cmd *cobra.Command) *promptReader {
	return &promptReader{out: cmd.ErrOrStderr(), in: cmd.InOrStdin()}
}

func (p *promptReader) secret(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("reading PIN: %w", err)
		}
		return string(b), nil
	}
	return p.readLine()
}

func (p *promptReader) line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	return p.readLine()
}

func (p *promptReader) readLine() (string, error) {
	if p.buf == nil {
		p.buf = bufio.NewReader(p.in)
	}
	s, err := p.buf.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}
