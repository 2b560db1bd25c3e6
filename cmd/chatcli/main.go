// chatcli is the standalone chat mode: one always-open conversation with
// no persona step, driven from the terminal.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	termutil "github.com/andrew-d/go-termutil"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hayasaka/p-tavern/internal/config"
	"github.com/hayasaka/p-tavern/internal/service/ai"
)

var rootCmd = &cobra.Command{
	Use:   "chatcli [prompt]",
	Short: "Chat with the model from the terminal",
	Long: `chatcli opens a single conversation with the configured model and keeps
it alive across turns. Type "stop" to end the conversation. Piped stdin is
sent as a one-shot prompt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: run,
}

func run(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := ai.NewClient(ctx, cfg.AI)
	if err != nil {
		return err
	}
	defer client.Close()

	conv := client.NewConversation("")

	// Piped stdin (or a prompt argument): one-shot mode.
	if !termutil.Isatty(os.Stdin.Fd()) || len(args) > 0 {
		prompt := ""
		if len(args) > 0 {
			prompt = args[0]
		}
		if !termutil.Isatty(os.Stdin.Fd()) {
			piped, err := io.ReadAll(bufio.NewReader(os.Stdin))
			if err == nil && len(piped) > 0 {
				if prompt != "" {
					prompt += "\n\n"
				}
				prompt += string(piped)
			}
		}
		return oneShot(ctx, conv, prompt, os.Stdout)
	}

	return chatLoop(ctx, conv, os.Stdin, os.Stdout)
}

func chatLoop(ctx context.Context, conv conversation, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	replyColor := color.New(color.FgCyan)
	s := spinner.New(spinner.CharSets[19], 100*time.Millisecond)
	s.Prefix = "… "

	for {
		fmt.Fprint(out, "\n≫ ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read stdin: %w", err)
		}

		s.Start()
		printed := false
		_, stopped, err := runTurn(ctx, conv, line, func(fragment string) {
			// The first fragment ends the wait; everything after renders
			// as it arrives.
			if !printed {
				s.Stop()
				printed = true
			}
			replyColor.Fprint(out, fragment)
		})
		s.Stop()

		if stopped {
			fmt.Fprintln(out, "conversation over, see you!")
			return nil
		}
		if err != nil {
			if printed {
				fmt.Fprintln(out)
			}
			// Terminal for this turn only; the user types the next attempt.
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if printed {
			fmt.Fprintln(out)
		}
	}
}

func oneShot(ctx context.Context, conv conversation, prompt string, out io.Writer) error {
	printed := false
	_, stopped, err := runTurn(ctx, conv, prompt, func(fragment string) {
		printed = true
		fmt.Fprint(out, fragment)
	})
	if err != nil {
		return err
	}
	if stopped || !printed {
		return nil
	}
	fmt.Fprintln(out)
	return nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
