package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	evalhandler "shiftguard/internal/evaluation/handler"
	"shiftguard/internal/platform/config"
	"shiftguard/internal/platform/logger"
	id "shiftguard/pkg/domain"
)

var evaluateTenant string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one evaluation pass and print its summary",
	Long: `evaluate runs a single pass outside the scheduler window, waits for
queued notifications to be delivered, and prints the pass summary as JSON.`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateTenant, "tenant", "", "Evaluate only this tenant ID (default: all active tenants)")
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	var tenantID *id.TenantID
	if evaluateTenant != "" {
		t, err := id.ParseTenantID(evaluateTenant)
		if err != nil {
			return fmt.Errorf("invalid --tenant: %w", err)
		}
		tenantID = &t
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	a.queue.Start(ctx)

	result, err := a.evaluation.RunEvaluationPass(ctx, tenantID)
	if closeErr := a.Close(); closeErr != nil {
		log.Error("shutdown failed", "error", closeErr)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(evalhandler.FromPassResult(result))
}
