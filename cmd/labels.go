package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lehigh-university-libraries/solarlabel/internal/export"
	"github.com/lehigh-university-libraries/solarlabel/internal/label"
	"github.com/lehigh-university-libraries/solarlabel/internal/watch"
	"github.com/spf13/cobra"
)

func newLabelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Inspect the label log",
	}

	cmd.AddCommand(
		newLabelsListCmd(a),
		newLabelsExportCmd(a),
		newLabelsTailCmd(a),
	)

	return cmd
}

func newLabelsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print recorded labels as a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := label.ReadLog(a.cfg.Paths.LabelLog)
			if err != nil {
				return err
			}
			if len(labels) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "No labels in %s\n", a.cfg.Paths.LabelLog)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), labelTable(labels))
			return nil
		},
	}
}

// labelTable renders one row per label with coordinates right-aligned
func labelTable(labels []label.Label) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Date/Time", "Wavelength", "Comment", "Top-left", "Bottom-right", "Size"})

	for i, l := range labels {
		wavelength := l.Wavelength
		if wavelength == "" {
			wavelength = "-"
		}
		tw.AppendRow(table.Row{
			i + 1,
			l.Timestamp,
			wavelength,
			l.Comment,
			fmt.Sprintf("(%.2f, %.2f)", l.Rect.X0, l.Rect.Y0),
			fmt.Sprintf("(%.2f, %.2f)", l.Rect.X1, l.Rect.Y1),
			fmt.Sprintf("%.2f x %.2f", l.Rect.Width(), l.Rect.Height()),
		})
	}

	// comments can be long; wrap them instead of stretching the table
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, WidthMax: 48},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	tw.SetTitle("%d labels", len(labels))

	return tw.Render()
}

func newLabelsExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the label log as YAML, JSON Lines or Parquet",
		Example: `  solarlabel labels export --format yaml
  solarlabel labels export --format parquet --output labels.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := label.ReadLog(a.cfg.Paths.LabelLog)
			if err != nil {
				return err
			}

			source := a.cfg.Paths.LabelLog
			if output == "" || output == "-" {
				if strings.EqualFold(format, "parquet") {
					return fmt.Errorf("parquet export requires --output")
				}
				return export.Write(cmd.OutOrStdout(), format, source, labels)
			}

			if err := export.WriteFile(output, format, source, labels); err != nil {
				return err
			}
			slog.Info("Exported labels", "format", format, "count", len(labels), "output", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Export format: "+strings.Join(export.Formats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	return cmd
}

func newLabelsTailCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Print labels as they are appended to the log",
		RunE: func(cmd *cobra.Command, args []string) error {
			tailer, err := watch.NewTailer(a.cfg.Paths.LabelLog)
			if err != nil {
				return err
			}

			slog.Info("Following label log", "path", a.cfg.Paths.LabelLog)
			out := cmd.OutOrStdout()
			return tailer.Run(cmd.Context(), func(l label.Label) {
				printLine(out, label.FormatLine(l))
			})
		},
	}
}

func printLine(w io.Writer, line string) {
	if _, err := fmt.Fprintln(w, line); err != nil {
		slog.Error("Unable to write output", "err", err)
	}
}
