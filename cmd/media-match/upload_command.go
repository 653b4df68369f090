package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ripixel/fitglue-media/pkg/bootstrap"
	apperrors "github.com/ripixel/fitglue-media/pkg/errors"
	infrapubsub "github.com/ripixel/fitglue-media/pkg/infrastructure/pubsub"
	"github.com/ripixel/fitglue-media/pkg/reconciliation"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var selections []string

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload GIFs and point their catalog entries at them",
		Long: "Upload matches every file against the live catalog, applies any --select\n" +
			"overrides and uploads the matched files one at a time.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.catalogPath != "" {
				return apperrors.ErrValidation.WithMessage("upload always uses the live catalog; drop --catalog")
			}
			overrides, err := parseSelections(selections)
			if err != nil {
				return err
			}
			files, err := statFiles(args)
			if err != nil {
				return err
			}

			svc, err := ctx.ensureService(cmd.Context())
			if err != nil {
				return err
			}
			return runUpload(cmd, svc, files, overrides)
		},
	}
	cmd.Flags().StringArrayVar(&selections, "select", nil, "Pick the entry for a file, as file=entryID (repeatable)")
	return cmd
}

func runUpload(cmd *cobra.Command, svc *bootstrap.Service, files []reconciliation.File, overrides map[string]string) error {
	runCtx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	cfg := svc.Config

	opts := []reconciliation.Option{
		reconciliation.WithLogger(svc.Logger),
		reconciliation.WithStepTimeout(cfg.UploadStepTimeout),
		reconciliation.WithKeyPrefix(cfg.MediaPrefix),
		reconciliation.WithCompletion(func(summary reconciliation.Summary) {
			publishSummary(cmd, svc, summary)
		}),
	}
	var session *reconciliation.Session
	if isTerminal(out) {
		opts = append(opts, reconciliation.WithObserver(func(c reconciliation.Candidate) {
			fmt.Fprintln(out, renderProgressLine(c, session.Progress().Percent, true))
		}))
	}

	session = reconciliation.NewSession(runCtx, reconciliation.Deps{Catalog: svc.DB, Media: svc.Media}, opts...)
	if err := session.CatalogError(); err != nil {
		return err
	}

	byName := make(map[string]string, len(files))
	for _, f := range files {
		added, err := session.Add([]reconciliation.File{f})
		if err != nil {
			fmt.Fprintf(errOut, "skipping %s: not a GIF\n", f.Name)
			continue
		}
		byName[f.Name] = added[0].ID
	}
	if len(byName) == 0 {
		return apperrors.ErrNoMediaFiles
	}

	for name, entryID := range overrides {
		candidateID, ok := byName[name]
		if !ok {
			return apperrors.ErrValidation.WithMessage("--select " + name + " does not name an uploaded GIF")
		}
		if err := session.Select(candidateID, entryID); err != nil {
			return err
		}
	}

	for _, c := range session.Candidates() {
		if c.MatchedEntryID == "" {
			fmt.Fprintf(errOut, "no match for %s, it will not be uploaded\n", c.FileName)
		}
	}

	summary, err := session.Upload(runCtx)
	if err != nil && summary.Attempted == 0 {
		return err
	}

	fmt.Fprintln(out, renderSummary(summary))
	fmt.Fprintf(out, "%d uploaded, %d failed\n", summary.Succeeded, summary.Failed)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", summary.Failed, summary.Attempted)
	}
	return nil
}

func renderSummary(summary reconciliation.Summary) string {
	rows := make([][]string, 0, len(summary.Results))
	for _, r := range summary.Results {
		detail := r.MediaURL
		if r.Status == reconciliation.StatusError {
			detail = r.ErrorMessage
		}
		rows = append(rows, []string{r.FileName, r.EntryID, string(r.Status), detail})
	}
	return renderTable([]string{"File", "Entry", "Status", "Detail"}, rows, nil)
}

func publishSummary(cmd *cobra.Command, svc *bootstrap.Service, summary reconciliation.Summary) {
	e, err := infrapubsub.NewCloudEvent(infrapubsub.EventSourceExerciseMedia, infrapubsub.EventTypeMediaUpdated, summary)
	if err != nil {
		svc.Logger.Warn("Failed to build completion event", "error", err)
		return
	}
	if _, err := svc.Pub.PublishCloudEvent(cmd.Context(), svc.Config.TopicMediaUpdated, e); err != nil {
		svc.Logger.Warn("Failed to publish completion event", "error", apperrors.ErrPubSub.WithCause(err))
	}
}

// parseSelections turns "file=entryID" flags into a map keyed by file base
// name.
func parseSelections(values []string) (map[string]string, error) {
	overrides := make(map[string]string, len(values))
	for _, v := range values {
		name, entryID, ok := strings.Cut(v, "=")
		name = filepath.Base(strings.TrimSpace(name))
		entryID = strings.TrimSpace(entryID)
		if !ok || name == "" || name == "." || entryID == "" {
			return nil, apperrors.ErrValidation.WithMessage("invalid --select " + v + ", want file=entryID")
		}
		overrides[name] = entryID
	}
	return overrides, nil
}

func statFiles(paths []string) ([]reconciliation.File, error) {
	files := make([]reconciliation.File, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
		name := filepath.Base(p)
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("%s and %s share the file name %s", prev, p, name)
		}
		seen[name] = p
		files = append(files, reconciliation.File{
			Name:    name,
			Size:    info.Size(),
			Payload: reconciliation.FilePayload(p),
		})
	}
	return files, nil
}
