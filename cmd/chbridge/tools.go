package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"chbridge/internal/jsoncanon"
	"chbridge/internal/mapping"
	"chbridge/internal/query"
	"chbridge/internal/storage"
	"chbridge/internal/storage/clickhouse"
	"chbridge/internal/types"
)

func newCanonJSONCommand(o *rootOptions) *cobra.Command {
	var fingerprint bool
	cmd := &cobra.Command{
		Use:   "canon-json [text]",
		Short: "Print the canonical form of a JSON document",
		Long: `Reads the document from the argument, or from stdin when it is omitted or
"-". Object keys are sorted and insignificant whitespace is removed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in []byte
			if len(args) == 1 && args[0] != "-" {
				in = []byte(args[0])
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				in = b
			}
			out, err := jsoncanon.CanonicalizeBytes(in)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if fingerprint {
				fmt.Fprintf(w, "%016x\t", jsoncanon.Fingerprint(out))
			}
			_, err = fmt.Fprintln(w, string(out))
			return err
		},
	}
	cmd.Flags().BoolVar(&fingerprint, "fingerprint", false, "prefix the output with its xxh3 fingerprint")
	return cmd
}

type typeRow struct {
	Input     string `json:"input"`
	Canonical string `json:"canonical,omitempty"`
	Native    string `json:"native,omitempty"`
	Pushdown  bool   `json:"pushdown"`
	Supported bool   `json:"supported"`
}

func newReadTypeCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read-type <clickhouse-type>...",
		Short: "Show the canonical type a ClickHouse column type reads as",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.offlineClient()
			if err != nil {
				return err
			}
			rows := make([]typeRow, 0, len(args))
			for _, native := range args {
				m, ok, err := c.ToCanonical(clickhouse.Describe(native))
				if err != nil {
					return fmt.Errorf("%s: %w", native, err)
				}
				row := typeRow{Input: native, Supported: ok}
				if ok {
					row.Canonical = m.Type.String()
					row.Pushdown = m.Pushdown == mapping.PushdownEnabled
				}
				rows = append(rows, row)
			}
			return o.emit(cmd, rows, func(w io.Writer) {
				for _, r := range rows {
					if !r.Supported {
						fmt.Fprintf(w, "%s\tunsupported\n", r.Input)
						continue
					}
					fmt.Fprintf(w, "%s\t%s\n", r.Input, r.Canonical)
				}
			})
		},
	}
}

func newWriteTypeCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "write-type <type>...",
		Short: "Show the ClickHouse type created for a canonical type",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.offlineClient()
			if err != nil {
				return err
			}
			rows := make([]typeRow, 0, len(args))
			for _, in := range args {
				t, err := types.Parse(in)
				if err != nil {
					return err
				}
				row := typeRow{Input: in, Canonical: t.String()}
				wm, err := c.ToWriteMapping(t)
				switch {
				case err == nil:
					row.Native, row.Supported = wm.TypeName, true
				case !errors.Is(err, mapping.ErrUnsupportedColumnType):
					return err
				}
				rows = append(rows, row)
			}
			return o.emit(cmd, rows, func(w io.Writer) {
				for _, r := range rows {
					native := r.Native
					if !r.Supported {
						native = "unsupported"
					}
					fmt.Fprintf(w, "%s\t%s\n", r.Canonical, native)
				}
			})
		},
	}
}

func newLimitCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "limit <sql> <n>",
		Short: "Apply the pushed-down row limit to a query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || n < 0 {
				return fmt.Errorf("limit %q: want a non-negative integer", args[1])
			}
			out := struct {
				SQL        string `json:"sql"`
				Guaranteed bool   `json:"guaranteed"`
			}{query.ApplyLimit(args[0], n), query.IsLimitGuaranteed()}
			return o.emit(cmd, out, func(w io.Writer) {
				fmt.Fprintln(w, out.SQL)
			})
		},
	}
}

func newValidateCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the catalog configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues := o.cfg.Validate()
			w := cmd.OutOrStdout()
			if err := reportIssues(w, issues); err != nil {
				return err
			}
			fmt.Fprintf(w, "configuration is valid: catalog=%s storage=%s (known: %s)\n",
				o.cfg.Catalog, o.cfg.StorageKind, strings.Join(storage.ListKinds(), ", "))
			return nil
		},
	}
}

