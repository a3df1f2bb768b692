package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-assistant/internal/assistant"
)

const (
	examples = "날씨 질문 예시: '내일 서울 날씨 어때?', '오늘 부산 날씨는?', '모레 하와이 날씨 어때?'"
	prompt   = "날씨에 대해 질문해보세요: "
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask about the weather interactively. Type 'exit' to quit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadServices()
			if err != nil {
				return err
			}
			conv := rt.assistant.NewConversation()
			return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), conv, func(outcome string) {
				rt.metrics.ObserveTurn("cli", outcome)
			})
		},
	}
}

// runREPL answers one line at a time until "exit" or end of input.
// onTurn may be nil.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, conv *assistant.Conversation, onTurn func(outcome string)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Fprintln(out, examples)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" {
			break
		}

		turn := conv.Ask(ctx, text)
		if onTurn != nil {
			onTurn(turn.Outcome)
		}
		fmt.Fprintf(out, "\nAI 응답: %s\n\n", turn.Reply)
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
