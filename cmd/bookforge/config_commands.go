package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"bookforge/internal/config"
	"bookforge/internal/preflight"
)

const redacted = "********"

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set llm.api_key and gemini.api_key (or export OPENROUTER_API_KEY and GEMINI_API_KEY) before producing books.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var showSecrets bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			effective := *cfg
			if !showSecrets {
				redact(&effective.LLM.APIKey)
				redact(&effective.Gemini.APIKey)
				redact(&effective.Storage.AccessKey)
				redact(&effective.Storage.SecretKey)
			}
			data, err := toml.Marshal(effective)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			out := cmd.OutOrStdout()
			source := ctx.configPath
			if !ctx.configSeen {
				source += " (not found; defaults)"
			}
			fmt.Fprintf(out, "# source: %s\n", source)
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print API keys and storage credentials verbatim")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	var online bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validate configuration file

With --online, also check directory access, LLM reachability, the storage
bucket, and the ntfy topic (a test notification is sent).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configSeen {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			if err := cfg.RequireGeneration(); err != nil {
				fmt.Fprintln(out, renderStatusLine("Generation", statusWarn, err.Error(), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Generation", statusOK, cfg.LLM.Model+" / "+cfg.Gemini.Model, colorize))
			}
			if cfg.Storage.Enabled {
				fmt.Fprintln(out, renderStatusLine("Storage", statusOK, cfg.Storage.Endpoint+"/"+cfg.Storage.Bucket, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Storage", statusInfo, "disabled", colorize))
			}
			if _, err := ctx.loadCatalog(); err != nil {
				fmt.Fprintln(out, renderStatusLine("Catalog", statusError, err.Error(), colorize))
				return err
			}
			fmt.Fprintln(out, renderStatusLine("Catalog", statusOK, cfg.Paths.CatalogPath, colorize))
			if cfg.Notifications.NtfyTopic != "" {
				fmt.Fprintln(out, renderStatusLine("Notifications", statusOK, cfg.Notifications.NtfyTopic, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, "disabled", colorize))
			}
			if online {
				failures := 0
				for _, result := range preflight.RunAll(cmd.Context(), cfg) {
					status := statusOK
					if !result.Passed {
						status = statusError
						failures++
					}
					fmt.Fprintln(out, renderStatusLine(result.Name, status, result.Detail, colorize))
				}
				if failures > 0 {
					return fmt.Errorf("%d preflight check(s) failed", failures)
				}
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&online, "online", false, "Also run directory and network preflight checks")
	return cmd
}

func redact(value *string) {
	if strings.TrimSpace(*value) != "" {
		*value = redacted
	}
}
