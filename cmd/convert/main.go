package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"scribeflow/internal/gcp"
	"scribeflow/internal/models"
	"scribeflow/internal/recognize"
	"scribeflow/internal/services"
)

var (
	flagKind          string
	flagLanguage      string
	flagDPI           int
	flagFormat        string
	flagOut           string
	flagDeterministic bool
)

func main() {
	root := &cobra.Command{
		Use:   "convert [files...]",
		Short: "Convert scanned PDFs or call recordings into a merged table artifact",
		Long: `convert runs the full pipeline over the given files: recognition
(OCR for PDFs, ASR for audio), structuring or classification, ordered
aggregation, and export to a spreadsheet or CSV.

All files of one invocation form a single batch and must share one media
kind; the merged artifact is written to --out (default: current directory).`,
		Args: cobra.MinimumNArgs(1),
		RunE: runConvert,
	}

	root.Flags().StringVar(&flagKind, "kind", "auto", "media kind: document, audio, or auto (detect from extension)")
	root.Flags().StringVar(&flagLanguage, "lang", recognize.DefaultLanguage, "OCR language (tesseract traineddata tag)")
	root.Flags().IntVar(&flagDPI, "dpi", recognize.DefaultDPI, "resolution hint handed to the OCR engine")
	root.Flags().StringVar(&flagFormat, "format", "", "artifact format: xlsx or csv (default: xlsx for documents, csv for audio)")
	root.Flags().StringVar(&flagOut, "out", ".", "directory the artifact is written to")
	root.Flags().BoolVar(&flagDeterministic, "deterministic", true, "force temperature-zero inference on engines that sample")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	kind, items, err := loadItems(args)
	if err != nil {
		return err
	}

	adapter, err := recognize.Default(cmd.Context(), recognize.EngineConfig{
		ProjectID: gcp.GetEnv("PROJECT_ID", ""),
		Region:    gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
	})
	if err != nil {
		return err
	}

	runner := &services.Runner{
		Adapter: adapter,
		Opts:    recognize.Options{Language: flagLanguage, DPI: flagDPI, Deterministic: flagDeterministic},
		Progress: func(fraction float64) {
			fmt.Fprintf(cmd.ErrOrStderr(), "\rprocessed %3.0f%%", fraction*100)
		},
	}
	result, err := runner.Run(cmd.Context(), kind, items)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	for _, status := range result.Statuses {
		if status.Outcome != models.OutcomeOK {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s %s\n", status.Item, status.Outcome, status.Detail)
		}
	}

	format := services.DefaultFormat(kind)
	if flagFormat != "" {
		format = services.Format(flagFormat)
	}
	artifact, err := services.Export(result.Table, format)
	if errors.Is(err, services.ErrEmptyAggregate) {
		fmt.Fprintln(cmd.OutOrStdout(), "no data extracted")
		return nil
	}
	if err != nil {
		return err
	}

	dest := filepath.Join(flagOut, artifact.Filename)
	if err := os.WriteFile(dest, artifact.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d rows)\n", dest, len(result.Table.Rows)+len(result.Table.Records))
	return nil
}

// loadItems reads the input files and settles the batch's media kind.
func loadItems(paths []string) (models.MediaKind, []models.InputItem, error) {
	var kind models.MediaKind
	switch flagKind {
	case "auto":
		// Settled by the first file below.
	case string(models.KindDocument), string(models.KindAudio):
		kind = models.MediaKind(flagKind)
	default:
		return "", nil, fmt.Errorf("unsupported --kind %q", flagKind)
	}

	items := make([]models.InputItem, 0, len(paths))
	for _, path := range paths {
		itemKind, ok := models.KindForFile(path)
		if !ok {
			return "", nil, fmt.Errorf("%s: unsupported file type (want .pdf, .mp3 or .wav)", path)
		}
		if kind == "" {
			kind = itemKind
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		items = append(items, models.InputItem{
			Name: filepath.Base(path),
			Data: data,
			Kind: itemKind,
		})
	}
	return kind, items, nil
}
