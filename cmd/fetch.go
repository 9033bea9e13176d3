package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/solarlabel/internal/archive"
	"github.com/lehigh-university-libraries/solarlabel/internal/config"
	"github.com/lehigh-university-libraries/solarlabel/internal/images"
	"github.com/spf13/cobra"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		dates      []string
		clock      string
		instrument string
		wavelength string
		outputDir  string
		infoFiles  bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download one observation per day from the archive",
		Long: `Searches the archive for each --date at --time (UTC) and downloads the first
observation found within a one minute window. Days without data are skipped
with a warning.`,
		Example: `  # Two days of AIA 171
  solarlabel fetch --date 2023-01-10 --date 2023-01-30 --time 07:30

  # 304 Å with info files next to each image
  solarlabel fetch --date 2023-02-15 --time 07:30 --wavelength 304 --info-files`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(dates) == 0 {
				return errors.New("at least one --date is required")
			}

			cfg := a.cfg
			if instrument == "" {
				instrument = cfg.Archive.Instrument
			}
			if wavelength == "" {
				wavelength = cfg.Archive.Wavelength
			}
			dir := cfg.Paths.DownloadDir
			if outputDir != "" {
				var err error
				if dir, err = config.ExpandPath(outputDir); err != nil {
					return err
				}
			}

			client := archive.NewHelioviewer(cfg.Archive.BaseURL, cfg.ArchiveTimeout())
			downloader := images.NewDownloader(client, dir, instrument, wavelength)

			fetched, fetchErr := downloader.DownloadDays(cmd.Context(), dates, clock)
			if errors.Is(fetchErr, images.ErrInvalidDateTime) {
				return fetchErr
			}

			out := cmd.OutOrStdout()
			for _, img := range fetched {
				fmt.Fprintf(out, "%s\t%s\n", img.Timestamp(), img.Path)
				if !infoFiles {
					continue
				}
				if _, err := images.WriteInfoFile(img); err != nil {
					slog.Error("Unable to write info file", "path", img.Path, "err", err)
				}
			}

			slog.Info("Fetch complete", "requested", len(dates), "downloaded", len(fetched))

			if fetchErr != nil {
				return fmt.Errorf("some days failed to download: %w", fetchErr)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&dates, "date", "d", nil, "Observation day as YYYY-MM-DD (repeatable)")
	cmd.Flags().StringVarP(&clock, "time", "t", "07:30", "Time of day as HH:MM (UTC)")
	cmd.Flags().StringVar(&instrument, "instrument", "", "Instrument (default from config)")
	cmd.Flags().StringVarP(&wavelength, "wavelength", "w", "", "Wavelength in Å (default from config)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Download directory (default paths.download_dir)")
	cmd.Flags().BoolVar(&infoFiles, "info-files", false, "Write a .txt info file next to each image")

	return cmd
}
