package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"hdbsearch/internal/app"
	"hdbsearch/internal/config"
	"hdbsearch/internal/model"
	"hdbsearch/internal/repository"
	"hdbsearch/internal/service"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "hdbsearch",
		Short: "Search HDB resale flats in plain English",
		Long: `hdbsearch turns a natural-language housing request into a district,
flat type and budget, lists matching resale flats, tags each with its
nearest MRT station and replies with a short summary.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	askCmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Run one query through the pipeline and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	askCmd.Flags().Bool("json", false, "Print the full response as JSON")
	askCmd.Flags().Bool("stream", false, "Print the summary as it is generated")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools served by the configured tool gateway",
		RunE:  runTools,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL tables used by the postgres gateway and run log",
		RunE:  runMigrate,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hdbsearch %s\n", version)
		},
	}

	rootCmd.AddCommand(askCmd, toolsCmd, migrateCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, version, cfg.Logging.NewLogger())
}

func runAsk(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	stream, _ := cmd.Flags().GetBool("stream")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	req := &model.QueryRequest{Query: strings.Join(args, " ")}
	out := cmd.OutOrStdout()

	var resp *model.QueryResponse
	if stream && !asJSON {
		resp, err = a.Pipeline.QueryStream(cmd.Context(), req, func(event string, data any) error {
			if event != service.EventDelta {
				return nil
			}
			if m, ok := data.(map[string]any); ok {
				fmt.Fprint(out, m["content"])
			}
			return nil
		})
		fmt.Fprintln(out)
	} else {
		resp, err = a.Pipeline.Query(cmd.Context(), req)
	}
	if err != nil {
		return err
	}
	return printResponse(out, resp, asJSON)
}

// printResponse writes the final assistant reply, or the whole response as JSON
func printResponse(w io.Writer, resp *model.QueryResponse, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	final, ok := service.FinalMessage(resp.Conversation)
	if !ok {
		final = "No output extracted."
	}
	_, err := fmt.Fprintf(w, "\n=== FINAL RESPONSE ===\n%s\n", final)
	return err
}

func runTools(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	names, err := a.Gateway.ToolNames(cmd.Context())
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Migrate(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✅ Schema applied")
	return nil
}
