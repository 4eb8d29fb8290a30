package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edtools/proctor/internal/grading"
)

var showSchemas bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the operations declared by the grading service",
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&showSchemas, "schemas", false, "include argument schemas")
}

func runTools(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Service.Configured() {
		return fmt.Errorf("grading service not configured")
	}

	service, err := grading.Connect(cmd.Context(), cfg.Service.Command, cfg.Service.Args, logger)
	if err != nil {
		return fmt.Errorf("connect grading service: %w", err)
	}
	defer service.Close()

	specs, err := service.Tools(cmd.Context())
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}

	fmt.Printf("Available tools (%d):\n", len(specs))
	for _, spec := range specs {
		fmt.Printf("- %s: %s\n", spec.Name, spec.Description)
		if showSchemas && spec.Parameters != nil {
			schema, err := json.MarshalIndent(spec.Parameters, "  ", "  ")
			if err == nil {
				fmt.Printf("  %s\n", schema)
			}
		}
	}
	return nil
}
