package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/notegenie/internal/domain"
	"github.com/DukeRupert/notegenie/internal/uploader"
)

func newVideosCmd(a *app) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List uploaded videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := domain.Period(period)
			if _, _, ok := p.Bounds(a.now()); !ok {
				return fmt.Errorf("period must be today, yesterday or week, got %q", period)
			}

			creds, err := a.session()
			if err != nil {
				return err
			}

			videos, err := a.client(creds.Token).Videos(cmd.Context(), p)
			if err != nil {
				return fmt.Errorf("list videos: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderVideos(videos, newStyles()))
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "Only show today, yesterday or week")

	return cmd
}

func newProcessCmd(a *app) *cobra.Command {
	var acceptReduced bool

	cmd := &cobra.Command{
		Use:   "process [videoId]",
		Short: "Generate notes for a video (default: the latest upload)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := a.session()
			if err != nil {
				return err
			}

			videoID, err := a.resolveVideoID(cmd, creds.UserID, args)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Processing video, this can take a few minutes...")
			notes, err := a.client(creds.Token).Process(cmd.Context(), videoID, acceptReduced)
			if err != nil {
				if uploader.ErrorCode(err) == domain.EOVERDRAFT {
					return fmt.Errorf("%w\nrerun with --accept-reduced-accuracy to continue", err)
				}
				return fmt.Errorf("process video: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderNotes(notes, newStyles()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&acceptReduced, "accept-reduced-accuracy", false, "Process even when today's runs are used up")

	return cmd
}

func newNotesCmd(a *app) *cobra.Command {
	var pdfPath string

	cmd := &cobra.Command{
		Use:   "notes [videoId]",
		Short: "Show saved notes for a video (default: the latest upload)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := a.session()
			if err != nil {
				return err
			}

			videoID, err := a.resolveVideoID(cmd, creds.UserID, args)
			if err != nil {
				return err
			}

			client := a.client(creds.Token)
			if pdfPath != "" {
				return downloadNotesPDF(cmd, client, videoID, pdfPath)
			}

			notes, err := client.Notes(cmd.Context(), videoID)
			if err != nil {
				return fmt.Errorf("fetch notes: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderNotes(notes, newStyles()))
			return nil
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Save the notes as a PDF file instead of printing them")

	return cmd
}

// downloadNotesPDF writes to a temp file next to path and renames it into place.
func downloadNotesPDF(cmd *cobra.Command, client *uploader.Client, videoID, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".notes-*.pdf.tmp")
	if err != nil {
		return fmt.Errorf("create pdf file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := client.NotesPDF(cmd.Context(), videoID, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("download notes pdf: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("save notes pdf: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved notes to %s (%d bytes)\n", path, n)
	return nil
}

var errNoRecentUpload = errors.New("no recent upload; pass a video id or run `notegenie upload` first")

// resolveVideoID falls back to the cached latest upload.
func (a *app) resolveVideoID(cmd *cobra.Command, userID string, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	rec, err := a.cache().Restore(cmd.Context(), userID)
	if err != nil {
		return "", fmt.Errorf("read cached upload: %w", err)
	}
	if rec == nil {
		return "", errNoRecentUpload
	}
	return rec.ID, nil
}
