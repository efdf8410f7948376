package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/unifiedsync/syncd"
	"github.com/unifiedsync/syncd/application/service"
	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/internal/config"
	"github.com/unifiedsync/syncd/internal/log"
)

type syncFlags struct {
	tenantID        string
	projectID       string
	linkedAccountID string
	provider        string
	scopeID         string
}

func syncCmd() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "sync <vertical.entity>",
		Short: "Run one sync in the foreground and report the outcome",
		Long: `Run one sync in the foreground and report the outcome.

With --linked-account and --provider a single connection is synced and any
failure is returned. Otherwise every linked account matching the filters is
synced for every provider of the entity type, and the command fails when any
pipeline failed.`,
		Example: `  syncd sync ats.attachment
  syncd sync crm.deal --project 2f0c... --provider hubspot
  syncd sync crm.stage --linked-account 7a1b... --provider hubspot --scope 93cd...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := entity.ParseType(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runSync(cmd, cfg, t, flags)
		},
	}

	cmd.Flags().StringVar(&flags.tenantID, "tenant", "", "Only sync this tenant")
	cmd.Flags().StringVar(&flags.projectID, "project", "", "Only sync this project")
	cmd.Flags().StringVar(&flags.linkedAccountID, "linked-account", "", "Only sync this linked account")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "Only sync this provider")
	cmd.Flags().StringVar(&flags.scopeID, "scope", "", "Parent record id for scoped entity types")

	return cmd
}

func runSync(cmd *cobra.Command, cfg config.AppConfig, t entity.Type, flags syncFlags) error {
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	logger := log.Configure(cfg)

	client, err := syncd.New(
		syncd.WithAppConfig(cfg),
		syncd.WithLogger(logger),
		syncd.WithScheduler(cfg.Scheduler().WithEnabled(false)),
	)
	if err != nil {
		return fmt.Errorf("create syncd client: %w", err)
	}
	defer func() { _ = client.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if flags.linkedAccountID != "" && flags.provider != "" {
		if err := client.Syncs.SyncConnection(ctx, t, flags.linkedAccountID, flags.provider, flags.scopeID); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "synced %s for %s/%s\n", t, flags.linkedAccountID, flags.provider)
		return nil
	}
	if flags.scopeID != "" {
		return fmt.Errorf("--scope requires --linked-account and --provider")
	}

	report, err := client.Syncs.SyncAll(ctx, t, service.TenantFilter{
		TenantID:        flags.tenantID,
		ProjectID:       flags.projectID,
		LinkedAccountID: flags.linkedAccountID,
		Provider:        flags.provider,
	})
	_, _ = fmt.Fprintf(out, "%s: %d jobs, %d succeeded, %d skipped, %d failed\n",
		t, report.Jobs, report.Succeeded, report.Skipped, report.Failed)
	return err
}
