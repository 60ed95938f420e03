package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leadgenius-engine/internal/backup"
	"leadgenius-engine/internal/config"
	"leadgenius-engine/internal/domain"
	"leadgenius-engine/internal/leads"
	"leadgenius-engine/internal/secrets"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write a snapshot of the lead store to a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			blob, err := e.store.ExportSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			out := backup.ExportFilename(time.Now())
			if len(args) == 1 {
				out = args[0]
			}
			if err := os.WriteFile(out, blob, 0o644); err != nil {
				return err
			}
			logger.Info("exported", zap.String("file", out), zap.Int("bytes", len(blob)))
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the lead store with a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			e, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.store.ImportSnapshot(cmd.Context(), blob); err != nil {
				return err
			}
			all, err := e.repo.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("imported", zap.String("file", args[0]), zap.Int("leads", len(all)))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d leads\n", len(all))
			return nil
		},
	}
}

func scoutCmd() *cobra.Command {
	var (
		params    domain.SearchParams
		savedOnly bool
	)
	cmd := &cobra.Command{
		Use:   "scout",
		Short: "Run one scouting pass and print the leads as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			found, err := e.scout.Scout(cmd.Context(), params)
			if err != nil {
				if domain.IsUnauthorized(err) {
					return fmt.Errorf("%w; run `%s key set` first", err, appName)
				}
				return err
			}
			f := leads.FilterFromSearch(params)
			f.SavedOnly = savedOnly
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(f.Apply(found))
		},
	}
	cmd.Flags().StringVar(&params.Industry, "industry", "", "Industry to scout (required)")
	cmd.Flags().StringVar(&params.Location, "location", "", "Location to scout (required)")
	cmd.Flags().Float64Var(&params.MinRating, "min-rating", 3.0, "Minimum rating")
	cmd.Flags().Float64Var(&params.MaxRating, "max-rating", 4.7, "Maximum rating")
	cmd.Flags().BoolVar(&params.FilterChatbot, "chatbot", false, "Only print leads with a chatbot")
	cmd.Flags().BoolVar(&params.FilterBooking, "booking", false, "Only print leads with online booking")
	cmd.Flags().StringVar(&params.FilterSentiment, "sentiment", "all", "Only print leads with this sentiment")
	cmd.Flags().BoolVar(&savedOnly, "saved", false, "Only print leads already saved")
	_ = cmd.MarkFlagRequired("industry")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

// apiKeys resolves the key store using the env var named in config.
func apiKeys() (*secrets.APIKeys, error) {
	path, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return secrets.NewAPIKeys(cfg.AI.APIKeyEnv), nil
}

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the AI API key in the OS keychain",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set [key]",
			Short: "Store the API key (reads stdin when no argument is given)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				keys, err := apiKeys()
				if err != nil {
					return err
				}
				var key string
				if len(args) == 1 {
					key = args[0]
				} else {
					line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					if err != nil && line == "" {
						return fmt.Errorf("read key: %w", err)
					}
					key = strings.TrimSpace(line)
				}
				if err := keys.Set(key); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "api key stored")
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the stored API key",
			RunE: func(cmd *cobra.Command, args []string) error {
				keys, err := apiKeys()
				if err != nil {
					return err
				}
				if err := keys.Delete(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "api key removed")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether an API key is available and where it comes from",
			RunE: func(cmd *cobra.Command, args []string) error {
				keys, err := apiKeys()
				if err != nil {
					return err
				}
				_, src, err := keys.Lookup()
				if errors.Is(err, secrets.ErrNoAPIKey) {
					fmt.Fprintln(cmd.OutOrStdout(), "api key: not configured")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "api key: configured (%s)\n", src)
				return nil
			},
		},
	)
	return cmd
}
