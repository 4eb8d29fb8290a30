package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/edtools/proctor/internal/workflow"
	"github.com/edtools/proctor/pkg/lifecycle"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive grading conversation",
	Long: `Opens a readline chat session against the grading workflow. Each line
is dispatched as one turn. Use /attach <path> to queue a file for the
next message and /exit to quit.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lc := lifecycle.New()
	defer func() {
		if err := lc.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
			logger.Error("shutdown incomplete", "error", err)
		}
	}()

	rt, err := buildRuntime(cmd.Context(), cfg, logger, lc)
	if err != nil {
		return err
	}
	lc.WaitForStartup()

	rl, err := readline.New("you> ")
	if err != nil {
		return fmt.Errorf("open readline: %w", err)
	}
	defer rl.Close()

	threadID := uuid.New()
	fmt.Println("proctor ready. Describe what you'd like to grade, /attach <path> to add files, /exit to quit.")

	var attachments []string
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue

		case line == "/exit" || line == "/quit":
			return nil

		case line == "/new":
			threadID = uuid.New()
			attachments = nil
			fmt.Println("Started a new conversation.")
			continue

		case strings.HasPrefix(line, "/attach "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/attach "))
			if path == "" {
				fmt.Println("Usage: /attach <path>")
				continue
			}
			attachments = append(attachments, path)
			fmt.Printf("Attached %s (%d queued). It will be sent with your next message.\n", path, len(attachments))
			continue
		}

		message := line
		if len(attachments) > 0 {
			message = fmt.Sprintf("%s\n[User attached files: %s]", message, strings.Join(attachments, ", "))
			attachments = nil
		}

		if err := dispatchTurn(cmd.Context(), rt, threadID, message); err != nil {
			logger.Error("turn failed", "error", err)
			fmt.Println("Something went wrong handling that turn; please try again.")
		}
	}
}

func dispatchTurn(ctx context.Context, rt *workflow.Runtime, threadID uuid.UUID, message string) error {
	result, err := rt.Turn(ctx, threadID, message)
	if err != nil {
		return err
	}

	for _, reply := range result.Replies {
		fmt.Printf("\nproctor> %s\n", reply)
	}
	return nil
}
