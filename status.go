package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/minios-linux/loksync/config"
	"github.com/minios-linux/loksync/i18n"
	"github.com/minios-linux/loksync/langmeta"
	"github.com/minios-linux/loksync/translate"
)

// ---------------------------------------------------------------------------
// status (read-only: documents + per-language completeness)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var f projectFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which outputs exist and which keys they are missing",
		Long: `Show every source document with its key and unique string counts, and
for each target language whether the output exists and carries exactly the
source keys. Does not contact the backend or modify any files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runStatus(cfg, cmd.OutOrStdout())
		},
	}

	addLayoutFlags(cmd, &f)
	return cmd
}

func runStatus(cfg config.Config, out io.Writer) error {
	docs, err := findDocuments(cfg)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		logWarning(i18n.T("No JSON documents found in %s"), cfg.Source)
		return nil
	}

	fmt.Fprintf(out, "%s\n", colorInfo.Sprint(i18n.T("Translation status")))
	fmt.Fprintf(out, "  %-10s %s\n", "Source:", cfg.Source)
	fmt.Fprintf(out, "  %-10s %s\n", "Output:", cfg.Output)
	fmt.Fprintf(out, "  %-10s %s\n\n", "Languages:", langLabels(cfg.Languages))

	width := langColumnWidth(cfg.Languages)
	incomplete := 0
	failed := 0

	for _, plan := range translate.PlanDocuments(docs) {
		rel := relPath(cfg.Source, plan.Path)
		if plan.Err != nil {
			fmt.Fprintf(out, "%s  %s\n", rel, colorError.Sprint(plan.Err))
			failed++
			continue
		}
		fmt.Fprintf(out, "%s  %s\n", color.New(color.Bold).Sprint(rel),
			fmt.Sprintf(i18n.T("%d keys, %d unique strings"), plan.Keys(), plan.Unique))

		for _, st := range translate.InspectOutputs(cfg.Source, cfg.Output, plan, cfg.Languages) {
			if !st.Complete() {
				incomplete++
			}
			fmt.Fprintf(out, "  %s %s\n", langCell(st.Lang, width), statusDetail(st, plan.Keys()))
		}
	}

	fmt.Fprintln(out)
	if failed > 0 {
		return &exitError{code: exitFailure}
	}
	if incomplete > 0 {
		logWarning(i18n.N("%d output needs a sync", "%d outputs need a sync", incomplete), incomplete)
	} else {
		logSuccess("%s", i18n.T("All outputs are up to date"))
	}
	return nil
}

func statusDetail(st translate.OutputStatus, keys int) string {
	switch {
	case st.Err != nil:
		return colorError.Sprint(st.Err)
	case !st.Exists:
		return progressBar(0, 20) + "  " + colorWarn.Sprint(i18n.T("output missing"))
	}

	present := keys - st.Missing
	percent := 100
	if keys > 0 {
		percent = present * 100 / keys
	}
	detail := fmt.Sprintf("%d/%d", present, keys)
	if st.Extra > 0 {
		detail += fmt.Sprintf(", %s", fmt.Sprintf(i18n.T("%d stale"), st.Extra))
	}
	return progressBar(percent, 20) + "  " + detail
}

// progressBar renders a colored bar with a right-aligned percentage.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100

	c := colorOK
	switch {
	case percent < 50:
		c = colorError
	case percent < 100:
		c = colorWarn
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return c.Sprint(bar) + fmt.Sprintf(" %3d%%", percent)
}

func langColumnWidth(langs []string) int {
	width := 0
	for _, lang := range langs {
		if len(lang) > width {
			width = len(lang)
		}
	}
	return width
}

// langCell renders a padded language code followed by its native name and,
// when different, its English name.
func langCell(lang string, width int) string {
	meta := langmeta.Resolve(lang)
	cell := fmt.Sprintf("%-*s", width, lang)
	if meta.Name == meta.Code {
		return cell
	}
	name := meta.Name
	if meta.English != meta.Name {
		name += " / " + meta.English
	}
	return cell + " " + color.New(color.Faint).Sprintf("%-20s", name)
}
