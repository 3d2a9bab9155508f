package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/garyjia/kyc-review/internal/application/workflow"
	"github.com/garyjia/kyc-review/internal/config"
	"github.com/garyjia/kyc-review/internal/container"
	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/pkg/utils"
)

var rootCmd = &cobra.Command{
	Use:   "audit-export",
	Short: "KYC audit trail tooling",
	Long: `audit-export reads the KYC review database directly.
It exports an application's audit trail to .xlsx for compliance,
prints trails on the terminal, purges entries past retention and
lists the workflow transition catalog.`,
	SilenceUsage: true,
}

var (
	configPath string
	jsonOutput bool
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(trailCmd())
	rootCmd.AddCommand(purgeCmd())
	rootCmd.AddCommand(transitionsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// session holds the services opened for one command
type session struct {
	services *container.ServiceBundle
	close    func() error
}

func openSession() (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      "warn",
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return nil, err
	}

	cc := cfg.ToContainerConfig()

	db, err := container.ProvideDatabase(&cc.Database, logger)
	if err != nil {
		return nil, err
	}

	repos, err := container.ProvideRepositories(db.SqlDB, logger)
	if err != nil {
		_ = db.SqlDB.Close()
		return nil, err
	}

	services, err := container.ProvideServices(&container.ServiceDeps{
		Repos:     repos,
		TxManager: db.TransactionMgr,
		Workflow:  &cc.Workflow,
		Audit:     &cc.Audit,
		Logger:    logger,
	})
	if err != nil {
		_ = db.SqlDB.Close()
		return nil, err
	}

	return &session{
		services: services,
		close: func() error {
			_ = logger.Sync()
			return db.SqlDB.Close()
		},
	}, nil
}

func exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <application-id>",
		Short: "Export an application's audit trail to an .xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			if output == "" {
				output = fmt.Sprintf("audit_%s_%s.xlsx", args[0], time.Now().UTC().Format("20060102"))
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}

			if err := s.services.Audit.ExportTrail(cmd.Context(), f, args[0]); err != nil {
				f.Close()
				_ = os.Remove(output)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default audit_<id>_<date>.xlsx)")
	return cmd
}

func trailCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "trail <application-id>",
		Short: "Print an application's audit trail, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			entries, err := s.services.Audit.Trail(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd, entries)
			}
			printTrail(cmd, entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum entries, 0 for all")
	return cmd
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete audit entries past their retention date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.close()

			n, err := s.services.Audit.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d audit entries\n", n)
			return nil
		},
	}
}

func transitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transitions",
		Short: "List the workflow transition catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := workflow.BuildEngine()
			if err != nil {
				return err
			}
			transitions := engine.Catalog().Transitions()

			if jsonOutput {
				return printJSON(cmd, transitions)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"From", "To", "Conditions", "Roles"})
			for _, tr := range transitions {
				conds := make([]string, 0, len(tr.RequiredConditions))
				for _, c := range tr.RequiredConditions {
					conds = append(conds, string(c))
				}
				roles := make([]string, 0, len(tr.AllowedRoles))
				for _, r := range tr.AllowedRoles {
					roles = append(roles, string(r))
				}
				t.AppendRow(table.Row{tr.From, tr.To, strings.Join(conds, ", "), strings.Join(roles, ", ")})
			}
			t.Render()
			return nil
		},
	}
}

func printTrail(cmd *cobra.Command, entries []*entity.AuditEntry) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Timestamp", "Actor", "Role", "Action", "From", "To", "Description"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Timestamp.UTC().Format(time.RFC3339),
			e.ActorUsername,
			e.ActorRole,
			e.Action,
			e.FromState,
			e.ToState,
			e.Description,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(entries)})
	t.Render()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
