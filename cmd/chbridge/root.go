package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"chbridge/internal/client"
	"chbridge/internal/config"
	"chbridge/internal/metrics"
	"chbridge/internal/metrics/datadog"
	"chbridge/internal/metrics/prompush"
)

var formats = []string{"text", "json"}

// rootOptions holds the global flags and the state built from them.
type rootOptions struct {
	configPath string
	overrides  []string
	verbose    bool
	format     string

	getenv func(string) string
	cfg    *config.Config
	client *client.Client
}

func newRootCommand(getenv func(string) string) *cobra.Command {
	o := &rootOptions{getenv: getenv}

	cmd := &cobra.Command{
		Use:   "chbridge",
		Short: "Browse and write ClickHouse tables through canonical engine types",
		Long: `chbridge reads ClickHouse catalog metadata, maps native column types to
canonical engine types and back, and runs the DDL and staged writes the
engine would issue.

Catalog properties come from a YAML file (--config), CHBRIDGE_* environment
variables and --set key=value overrides, in increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.load(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "", "YAML catalog file")
	pf.StringArrayVarP(&o.overrides, "set", "s", nil, "catalog property as key=value (repeatable)")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "log progress to stderr")
	pf.StringVar(&o.format, "format", "text", "output format (text|json)")

	cmd.AddCommand(
		newSchemasCommand(o),
		newTablesCommand(o),
		newDescribeCommand(o),
		newScanCommand(o),
		newLoadCommand(o),
		newDDLCommand(o),
		newCanonJSONCommand(o),
		newReadTypeCommand(o),
		newWriteTypeCommand(o),
		newLimitCommand(o),
		newValidateCommand(o),
	)
	return cmd
}

// load resolves the catalog config. It does not connect; commands that
// need the store call connect.
func (o *rootOptions) load(cmd *cobra.Command) error {
	if o.verbose {
		log.SetOutput(cmd.ErrOrStderr())
	} else {
		log.SetOutput(io.Discard)
	}
	if !slices.Contains(formats, o.format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.format, formats)
	}

	args, err := o.configArgs()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("chbridge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg, err := config.LoadFromArgs(fs, o.getenv, args)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	o.cfg = cfg
	return nil
}

// configArgs turns --config and --set into the flag syntax config expects.
func (o *rootOptions) configArgs() ([]string, error) {
	var args []string
	if o.configPath != "" {
		args = append(args, "-config="+o.configPath)
	}
	for _, kv := range o.overrides {
		k, _, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("--set %q: want key=value", kv)
		}
		args = append(args, "-"+kv)
	}
	return args, nil
}

// connect validates the config, installs the metrics backend and builds
// the client. It runs once per process.
func (o *rootOptions) connect(cmd *cobra.Command, opts ...client.Option) (*client.Client, error) {
	if o.client != nil {
		return o.client, nil
	}
	if err := reportIssues(cmd.ErrOrStderr(), o.cfg.Validate()); err != nil {
		return nil, err
	}
	setupMetrics(*o.cfg)

	c, err := client.FromConfig(*o.cfg, opts...)
	if err != nil {
		return nil, err
	}
	o.client = c
	return c, nil
}

// offlineClient maps types with the configured session and no store.
func (o *rootOptions) offlineClient() (*client.Client, error) {
	s, err := o.cfg.Session()
	if err != nil {
		return nil, err
	}
	return client.New(o.cfg.Catalog, nil, s), nil
}

// emit writes v as JSON, or calls text when the format is text.
func (o *rootOptions) emit(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if o.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func reportIssues(w io.Writer, issues []config.Issue) error {
	for _, iss := range issues {
		fmt.Fprintln(w, iss.Error())
	}
	if config.HasErrors(issues) {
		return errors.New("config: invalid configuration")
	}
	return nil
}

// setupMetrics picks the backend named by metrics.kind. A backend that
// cannot start is logged and the nop backend stays.
func setupMetrics(cfg config.Config) {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.MetricsKind {
	case "prompush":
		b, err = prompush.NewBackend(cfg.MetricsJob, cfg.MetricsGateway)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.MetricsDatadog,
			Namespace:  cfg.MetricsNamespace,
			GlobalTags: []string{"catalog:" + cfg.Catalog},
		})
	case "", "none":
		return
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.MetricsKind)
		return
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", cfg.MetricsKind, err)
		return
	}
	log.Printf("metrics: backend=%s catalog=%s", cfg.MetricsKind, cfg.Catalog)
	metrics.SetBackend(b)
}
