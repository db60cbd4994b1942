package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/notegenie/internal/uploader"
)

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Compress and upload a meeting recording",
		Long:  "Validate a recording (at most 100MB, 30 seconds to 5 minutes), compress it to the low-bandwidth profile and upload it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := a.session()
			if err != nil {
				return err
			}

			pipeline := uploader.NewPipeline(uploader.PipelineConfig{
				Prober:     a.prober,
				Transcoder: a.transcoder,
				Sender:     a.client(creds.Token),
				Cache:      a.cache(),
				Profile:    a.settings.Profile,
				Logger:     a.logger,
			})
			session := uploader.NewSession(creds.UserID)

			progress := newProgressPrinter(cmd.ErrOrStderr())
			rec, err := pipeline.Run(cmd.Context(), session, args[0], progress.report)
			if err != nil {
				return uploadError(err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderUpload(*rec, newStyles()))
			return nil
		},
	}
}

func newLatestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent upload from the last 23 hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := a.session()
			if err != nil {
				return err
			}

			rec, err := a.cache().Restore(cmd.Context(), creds.UserID)
			if err != nil {
				return fmt.Errorf("read cached upload: %w", err)
			}
			if rec == nil {
				fmt.Fprintln(cmd.OutOrStdout(), newStyles().empty.Render("No recent upload."))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderUpload(*rec, newStyles()))
			return nil
		},
	}
}

// progressPrinter writes a line per new percentage.
type progressPrinter struct {
	w    io.Writer
	last int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, last: -1}
}

func (p *progressPrinter) report(percent int) {
	if percent == p.last {
		return
	}
	p.last = percent
	fmt.Fprintf(p.w, "progress: %3d%%\n", percent)
}

func uploadError(err error) error {
	if errors.Is(err, uploader.ErrVideoTooShort) || errors.Is(err, uploader.ErrVideoTooLong) {
		return fmt.Errorf("video duration must be between 30 seconds and 5 minutes: %w", err)
	}
	return err
}
