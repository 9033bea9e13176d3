package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/solarlabel/internal/label"
	"github.com/spf13/cobra"
)

func newLabelCmd(a *app) *cobra.Command {
	var (
		timestamp  string
		wavelength string
		from       string
		to         string
		comment    string
	)

	cmd := &cobra.Command{
		Use:   "label",
		Short: "Append one labeled region to the label log",
		Long: `Records a rectangle given by two opposite corners in image pixel coordinates.
Corners are normalized so the first point is the top-left. A blank comment
records nothing.`,
		Example: `  solarlabel label --timestamp "2023-01-10 07:30" --from 12.345,80.7 --to 3.2,50 --comment flare`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parsePoint(from)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			end, err := parsePoint(to)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			recorder := label.NewRecorder(a.cfg.Paths.LabelLog)
			recorded, err := recorder.Record(start, end, comment, label.Metadata{
				Timestamp:  timestamp,
				Wavelength: wavelength,
			})
			if err != nil {
				return err
			}
			if recorded == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Empty comment, nothing recorded")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), label.FormatLine(*recorded))
			return nil
		},
	}

	cmd.Flags().StringVar(&timestamp, "timestamp", "", "Observation date/time of the labeled image")
	cmd.Flags().StringVarP(&wavelength, "wavelength", "w", "", "Wavelength in Å, omitted from the line when empty")
	cmd.Flags().StringVar(&from, "from", "", "Drag start as X,Y")
	cmd.Flags().StringVar(&to, "to", "", "Drag end as X,Y")
	cmd.Flags().StringVarP(&comment, "comment", "c", "", "Label comment")
	_ = cmd.MarkFlagRequired("timestamp")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// parsePoint reads "X,Y"
func parsePoint(value string) (label.Point, error) {
	xs, ys, ok := strings.Cut(value, ",")
	if !ok {
		return label.Point{}, fmt.Errorf("expected X,Y, got %q", value)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return label.Point{}, fmt.Errorf("bad x coordinate %q: %w", xs, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return label.Point{}, fmt.Errorf("bad y coordinate %q: %w", ys, err)
	}
	return label.Point{X: x, Y: y}, nil
}
