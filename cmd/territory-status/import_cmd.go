package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/iota-uz/utils/fs"
	"github.com/spf13/cobra"

	"github.com/iota-uz/territory-status/modules/territory/services"
)

type importOptions struct {
	file        string
	profilePath string
	outputDir   string
	importID    string
	apply       bool
	codeOnly    bool
	strict      bool

	profile services.ImportProfile
}

func newImportCmd(g *globalOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import status periods from a DOCX, XLSX or HTML order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, g, func(ctx context.Context, a *app) error {
				return runImport(ctx, cmd.OutOrStdout(), a, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Source document (required)")
	cmd.Flags().StringVar(&opts.profilePath, "profile", "", "YAML import profile")
	cmd.Flags().StringVar(&opts.profile.DocumentName, "document-name", "", "Source document name (default: file name)")
	cmd.Flags().StringVar(&opts.profile.DocumentDate, "document-date", "", "Document date, DD.MM.YYYY")
	cmd.Flags().StringVar(&opts.profile.DocumentDateISO, "document-date-iso", "", "Document date, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.profile.ImportVersion, "import-version", "", "Free-form import version tag")
	cmd.Flags().StringVar(&opts.profile.Description, "description", "", "Import description")
	cmd.Flags().StringVar(&opts.importID, "import-id", "", "Override the content-derived import id")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Write merged histories (default is dry-run)")
	cmd.Flags().BoolVar(&opts.codeOnly, "code-only", false, "Resolve territories by code only")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when any row could not be imported")
	cmd.Flags().StringVar(&opts.outputDir, "output", "", "Directory for the JSON import manifest")
	_ = cmd.MarkFlagRequired("file")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		opts.file = strings.TrimSpace(opts.file)
		if !fs.FileExists(opts.file) {
			return withCode(exitUsage, fmt.Errorf("--file %q does not exist", opts.file))
		}
		if opts.profilePath == "" {
			return nil
		}
		p, err := services.LoadProfile(opts.profilePath)
		if err != nil {
			return withCode(exitUsage, err)
		}
		opts.profile = mergeProfile(p, opts.profile)
		return nil
	}

	return cmd
}

// mergeProfile lets non-empty flag values override the profile file.
func mergeProfile(base, flags services.ImportProfile) services.ImportProfile {
	if flags.DocumentName != "" {
		base.DocumentName = flags.DocumentName
	}
	if flags.DocumentDate != "" {
		base.DocumentDate = flags.DocumentDate
	}
	if flags.DocumentDateISO != "" {
		base.DocumentDateISO = flags.DocumentDateISO
	}
	if flags.ImportVersion != "" {
		base.ImportVersion = flags.ImportVersion
	}
	if flags.Description != "" {
		base.Description = flags.Description
	}
	return base
}

type importSummary struct {
	Status     string `json:"status"`
	RunID      string `json:"run_id"`
	ImportID   string `json:"import_id"`
	Storage    string `json:"storage"`
	Apply      bool   `json:"apply"`
	File       string `json:"file"`
	Manifest   string `json:"manifest,omitempty"`
	ArchiveKey string `json:"archive_key,omitempty"`
	Counts     struct {
		Tables     int `json:"tables"`
		Rows       int `json:"rows"`
		Processed  int `json:"processed"`
		Imported   int `json:"imported"`
		Duplicates int `json:"duplicates"`
		Errors     int `json:"errors"`
		Warnings   int `json:"warnings"`
		Unresolved int `json:"unresolved"`
	} `json:"counts"`
}

func runImport(ctx context.Context, w io.Writer, a *app, opts importOptions) error {
	svc, err := a.importService(ctx)
	if err != nil {
		return err
	}
	report, runErr := svc.Import(ctx, services.ImportRequest{
		Path:     opts.file,
		Profile:  opts.profile,
		ImportID: opts.importID,
		Apply:    opts.apply,
		CodeOnly: opts.codeOnly,
	})
	if report == nil {
		return runErr
	}
	a.logger.WithField("run_id", report.RunID).Info(report.Summary())

	var s importSummary
	s.Status = string(report.State)
	s.RunID = report.RunID
	s.ImportID = report.ImportID
	s.Storage = a.conf.StorageDriver
	s.Apply = report.Applied
	s.File = opts.file
	s.ArchiveKey = report.ArchiveKey
	s.Counts.Tables = len(report.Tables)
	s.Counts.Rows = report.TotalRows
	s.Counts.Processed = report.Processed
	s.Counts.Imported = report.Imported
	s.Counts.Duplicates = report.Duplicates
	s.Counts.Errors = report.Errors
	s.Counts.Warnings = report.Warnings
	s.Counts.Unresolved = len(report.Unresolved)

	if opts.outputDir != "" {
		path, err := writeManifest(opts.outputDir, report.RunID, report)
		if err != nil {
			return err
		}
		s.Manifest = path
	}
	if err := writeJSONLine(w, s); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if opts.strict && report.Errors > 0 {
		return withCode(exitValidation, fmt.Errorf("strict: %d rows were not imported", report.Errors))
	}
	return nil
}
