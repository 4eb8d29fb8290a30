package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edtools/proctor/internal/config"
	"github.com/edtools/proctor/internal/grading"
	"github.com/edtools/proctor/internal/llm"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify credentials, grading service, and configuration",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ok := true

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("[fail] configuration: %s\n", err)
		return fmt.Errorf("setup verification failed")
	}
	fmt.Printf("[ ok ] configuration loaded (env %s, version %s)\n", cfg.Env(), cfg.Version)

	if _, err := os.Stat(".env"); err == nil {
		fmt.Println("[ ok ] .env file present")
	} else {
		fmt.Println("[warn] no .env file; using shell environment only")
	}

	client, err := llm.Resolve(cfg.Agent.Overrides(), logger)
	if err != nil {
		fmt.Printf("[fail] model provider: %s\n", err)
		ok = false
	} else {
		fmt.Printf("[ ok ] model provider %s (%s)\n", client.Provider(), client.Model())
	}

	if !cfg.Service.Configured() {
		fmt.Printf("[fail] grading service: set %s or the [service] config section\n", config.EnvMCPServerPath)
		ok = false
	} else if cfg.Service.ServerPath != "" {
		if _, err := os.Stat(cfg.Service.ServerPath); err != nil {
			fmt.Printf("[fail] grading service script not found: %s\n", cfg.Service.ServerPath)
			ok = false
		} else {
			fmt.Printf("[ ok ] grading service script: %s\n", cfg.Service.ServerPath)
		}
	}

	if ok && cfg.Service.Configured() {
		service, err := grading.Connect(cmd.Context(), cfg.Service.Command, cfg.Service.Args, logger)
		if err != nil {
			fmt.Printf("[fail] grading service connection: %s\n", err)
			ok = false
		} else {
			defer service.Close()
			specs, err := service.Tools(cmd.Context())
			if err != nil {
				fmt.Printf("[fail] grading service tools: %s\n", err)
				ok = false
			} else {
				fmt.Printf("[ ok ] grading service reachable, %d tools declared\n", len(specs))
			}
		}
	}

	fmt.Printf("[ ok ] checkpoint backend: %s\n", cfg.Checkpoint.Backend)

	if !ok {
		return fmt.Errorf("setup verification failed")
	}

	fmt.Println("\nSetup complete. Run: proctor chat")
	return nil
}
