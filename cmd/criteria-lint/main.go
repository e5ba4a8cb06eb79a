package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	goStudyAuth "github.com/MrEthical07/goStudyAuth"
	"github.com/MrEthical07/goStudyAuth/criteria"
	"github.com/MrEthical07/goStudyAuth/subpop"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	envFiles   []string
	subsPath   string
	out        string
}

func main() {
	opts := &options{
		configPath: envOr("STUDYAUTH_CONFIG", ""),
		subsPath:   envOr("STUDYAUTH_SUBPOPULATIONS_FILE", ""),
		out:        "text",
	}

	root := &cobra.Command{
		Use:           "criteria-lint",
		Short:         "Check studyauth configuration and subpopulation criteria before deploying",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "YAML engine configuration (env STUDYAUTH_CONFIG)")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files applied before STUDYAUTH_* overrides")
	root.PersistentFlags().StringVar(&opts.subsPath, "subpopulations", opts.subsPath, "YAML subpopulations file (env STUDYAUTH_SUBPOPULATIONS_FILE)")
	root.PersistentFlags().StringVar(&opts.out, "out", opts.out, "output format: text|json")

	root.AddCommand(configCmd(opts), subpopulationsCmd(opts), matchCmd(opts))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func configCmd(opts *options) *cobra.Command {
	var failOn string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate the configuration and list lint findings",
		RunE: func(cmd *cobra.Command, args []string) error {
			floor, err := parseSeverity(failOn)
			if err != nil {
				return err
			}
			cfg, err := goStudyAuth.LoadConfig(opts.configPath, opts.envFiles...)
			if err != nil {
				return err
			}
			findings := cfg.Lint()
			if opts.out == "json" {
				printJSON(findings)
			} else {
				for _, w := range findings {
					fmt.Printf("%-5s %-32s %s\n", w.Severity, w.Code, w.Message)
				}
				if len(findings) == 0 {
					fmt.Println("ok")
				}
			}
			return findings.AsError(floor)
		},
	}
	cmd.Flags().StringVar(&failOn, "fail-on", "high", "lowest severity that fails the run: info|warn|high")
	return cmd
}

func subpopulationsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "subpopulations",
		Short: "Check every subpopulation against its tenant's data groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, static, err := load(opts)
			if err != nil {
				return err
			}

			var errs []error
			checked := 0
			for _, tenantID := range static.Tenants() {
				tenant, ok := cfg.Tenants[tenantID]
				if !ok && len(cfg.Tenants) > 0 {
					errs = append(errs, fmt.Errorf("tenant %q is not configured", tenantID))
					continue
				}
				subs, err := static.Load(cmd.Context(), tenantID)
				if err != nil {
					return err
				}
				checked += len(subs)
				if err := subpop.Validate(subs, tenant.DataGroups); err != nil {
					errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
				}
			}
			if err := errors.Join(errs...); err != nil {
				return err
			}
			fmt.Printf("ok: %d subpopulations in %d tenants\n", checked, len(static.Tenants()))
			return nil
		},
	}
}

func matchCmd(opts *options) *cobra.Command {
	var (
		tenantID  string
		groups    []string
		languages []string
		osName    string
		version   string
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Show which subpopulation a participant would be assigned",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}
			cfg, static, err := load(opts)
			if err != nil {
				return err
			}

			cctx := criteria.Context{
				Languages:  languages,
				OSName:     osName,
				DataGroups: groups,
			}
			if version != "" {
				v, err := strconv.Atoi(version)
				if err != nil {
					return fmt.Errorf("--app-version: %w", err)
				}
				cctx.AppVersion = criteria.Version(v)
			}

			registry := subpop.NewCached(static, subpop.CacheConfig{CreateDefault: cfg.Subpopulations.CreateDefault})
			sp, ok, err := registry.ForUser(cmd.Context(), tenantID, cctx)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("no match")
				return nil
			}
			if opts.out == "json" {
				printJSON(sp)
				return nil
			}
			fmt.Printf("%s (%s) required=%t\n", sp.ID, sp.Name, sp.Required)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant (study) id")
	cmd.Flags().StringSliceVar(&groups, "groups", nil, "participant data groups")
	cmd.Flags().StringSliceVar(&languages, "languages", nil, "participant languages, most preferred first")
	cmd.Flags().StringVar(&osName, "os", "", "client operating system name")
	cmd.Flags().StringVar(&version, "app-version", "", "client app version number")
	return cmd
}

func load(opts *options) (goStudyAuth.Config, *subpop.Static, error) {
	cfg, err := goStudyAuth.LoadConfig(opts.configPath, opts.envFiles...)
	if err != nil {
		return goStudyAuth.Config{}, nil, err
	}
	path := opts.subsPath
	if path == "" {
		path = cfg.Subpopulations.StaticFile
	}
	if path == "" {
		return goStudyAuth.Config{}, nil, fmt.Errorf("no subpopulations file (--subpopulations or subpopulations.staticFile)")
	}
	static, err := subpop.LoadStaticFile(path)
	if err != nil {
		return goStudyAuth.Config{}, nil, err
	}
	return cfg, static, nil
}

func parseSeverity(s string) (goStudyAuth.LintSeverity, error) {
	levels := map[string]goStudyAuth.LintSeverity{
		"info": goStudyAuth.LintInfo,
		"warn": goStudyAuth.LintWarn,
		"high": goStudyAuth.LintHigh,
	}
	if sev, ok := levels[strings.ToLower(s)]; ok {
		return sev, nil
	}
	names := make([]string, 0, len(levels))
	for k := range levels {
		names = append(names, k)
	}
	sort.Strings(names)
	return 0, fmt.Errorf("--fail-on must be one of %s", strings.Join(names, "|"))
}

func printJSON(v any) {
	p, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(p))
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
