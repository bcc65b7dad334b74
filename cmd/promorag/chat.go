package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fyrsmithlabs/promorag/internal/llm"
	"github.com/fyrsmithlabs/promorag/internal/pipeline"
)

// maxChatTurns bounds the history sent with each question.
const maxChatTurns = 6

type asker interface {
	Ask(ctx context.Context, question string, history ...llm.Turn) (*pipeline.Answer, error)
}

// runChat answers questions read line by line from in until EOF or an exit
// word. Earlier turns are passed along as history.
func runChat(ctx context.Context, r asker, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	var history []llm.Turn

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit", "выход":
			return nil
		}

		answer, err := r.Ask(ctx, question, history...)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, answer.Text)

		history = append(history,
			llm.Turn{Role: llm.RoleUser, Content: question},
			llm.Turn{Role: llm.RoleAssistant, Content: answer.Text},
		)
		if len(history) > maxChatTurns {
			history = history[len(history)-maxChatTurns:]
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
	}
}
