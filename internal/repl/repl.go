package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

var ErrExit = errors.New("exit requested")

// REPL implements the Read-Eval-Print-Loop for interactive mode
type REPL struct {
	backend Backend
	in      io.Reader
	out     io.Writer

	// selectModel is swapped in tests; defaults to the bubbletea selector
	selectModel func([]ModelChoice, string) (string, error)
}

// Option configures a REPL
type Option func(*REPL)

// WithIO replaces stdin and stdout
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.in = in
		r.out = out
	}
}

// New creates a new REPL over the given backend
func New(backend Backend, opts ...Option) *REPL {
	r := &REPL{
		backend:     backend,
		in:          os.Stdin,
		out:         os.Stdout,
		selectModel: RunModelSelector,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the REPL loop
// Prints welcome message, then loops reading input and sending it to the backend
// Exits on "/exit", "/quit", or Ctrl+D (EOF)
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, "toolrouter is ready. Type /help for commands.")
	fmt.Fprintln(r.out)

	scanner := bufio.NewScanner(r.in)

	for {
		fmt.Fprint(r.out, "> ")

		if !scanner.Scan() {
			// EOF (Ctrl+D) or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if err := r.handleCommand(ctx, input); err != nil {
				if errors.Is(err, ErrExit) {
					fmt.Fprintln(r.out, "Goodbye.")
					break
				}
				fmt.Fprintf(r.out, "Error: %v\n", err)
			}
			fmt.Fprintln(r.out)
			continue
		}

		reply, err := r.backend.Send(ctx, input)
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n\n", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		r.printReply(reply)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	return nil
}

func (r *REPL) printReply(reply *Reply) {
	for _, d := range reply.Dispatches {
		if d.Error != "" {
			fmt.Fprintf(r.out, "  [%s] %s failed (%s): %s\n", d.Tool, formatArgs(d.Args), d.Kind, d.Error)
			continue
		}
		fmt.Fprintf(r.out, "  [%s] %s = %v\n", d.Tool, formatArgs(d.Args), d.Result)
	}
	fmt.Fprintln(r.out, reply.Answer)
	fmt.Fprintln(r.out)
}

// formatArgs renders arguments in key order, e.g. "a=3, b=4"
func formatArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, args[k])
	}
	return strings.Join(parts, ", ")
}

// handleCommand processes REPL commands starting with /
func (r *REPL) handleCommand(ctx context.Context, input string) error {
	parts := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "model":
		return r.handleModelCommand(ctx)
	case "reset":
		r.backend.Reset()
		fmt.Fprintln(r.out, "Conversation cleared.")
		return nil
	case "tools":
		names, err := r.backend.Tools(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tools: %w", err)
		}
		fmt.Fprintf(r.out, "Tools: %s\n", strings.Join(names, ", "))
		return nil
	case "help":
		return r.handleHelpCommand()
	case "exit", "quit":
		return ErrExit
	default:
		return fmt.Errorf("unknown command: /%s. Type /help for available commands", parts[0])
	}
}

// handleModelCommand shows an interactive model selector and switches models
func (r *REPL) handleModelCommand(ctx context.Context) error {
	switcher, ok := r.backend.(ModelSwitcher)
	if !ok {
		return fmt.Errorf("model switching is only available in local mode")
	}

	choices, current := switcher.Models()
	switch len(choices) {
	case 0:
		fmt.Fprintln(r.out, "No models configured in config.yaml")
		return nil
	case 1:
		fmt.Fprintf(r.out, "Only one model configured: %s\n", current)
		return nil
	}

	selected, err := r.selectModel(choices, current)
	if err != nil {
		return fmt.Errorf("failed to run selector: %w", err)
	}
	if selected == "" {
		fmt.Fprintln(r.out, "Cancelled")
		return nil
	}
	if selected == current {
		fmt.Fprintf(r.out, "Already using %s\n", current)
		return nil
	}

	if err := switcher.SwitchModel(ctx, selected); err != nil {
		return fmt.Errorf("failed to switch model: %w", err)
	}
	fmt.Fprintf(r.out, "\nSwitched to %s\n", selected)
	return nil
}

// handleHelpCommand displays available commands
func (r *REPL) handleHelpCommand() error {
	help := `Available commands:
  /model    - Switch LLM model (local mode)
  /reset    - Start a new conversation
  /tools    - List the tools offered to the model
  /help     - Show this help
  /exit     - Exit (or use Ctrl+D)
`
	fmt.Fprint(r.out, help)
	return nil
}
