package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"choukai/internal/corpus"
	"choukai/internal/domain"
	"choukai/internal/extract"
	"choukai/internal/merge"
	"choukai/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	root := &cobra.Command{
		Use:           "choukai",
		Short:         "Extract, index and retrieve listening-comprehension questions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "",
		"path to YAML config (default: ./config.yaml, then ~/.config/choukai/config.yaml)")

	root.AddCommand(
		newExtractCommand(&cfgPath),
		newMergeCommand(&cfgPath),
		newIndexCommand(&cfgPath),
		newQueryCommand(&cfgPath),
		newBrowseCommand(&cfgPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newExtractCommand(cfgPath *string) *cobra.Command {
	var transcriptFile, promptFile string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract structured questions from a transcript",
		Long: "Send a transcript plus the instruction template to the generation backend\n" +
			"and save the validated questions as a timestamped run artifact.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			transcript, err := os.ReadFile(transcriptFile)
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			if promptFile == "" {
				promptFile = app.cfg.Corpus.PromptFile
			}
			instructions, err := os.ReadFile(promptFile)
			if err != nil {
				return fmt.Errorf("read prompt template: %w", err)
			}

			gen, err := app.generator()
			if err != nil {
				return err
			}
			extractor := extract.New(gen, app.log, app.generatorTimeout())
			run, err := extractor.Extract(cmd.Context(), string(transcript), string(instructions))
			if err != nil {
				return err
			}
			path, err := corpus.SaveRun(app.cfg.Corpus.Dir, run)
			if err != nil {
				return err
			}
			app.log.Info("run saved", "records", len(run.Records), "path", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&transcriptFile, "file", "f", "", "transcript text file")
	cmd.Flags().StringVar(&promptFile, "prompt", "", "instruction template (default from config)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newMergeCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge all extraction runs into a deduplicated corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			runs, err := corpus.LoadRuns(app.cfg.Corpus.Dir)
			if err != nil {
				return err
			}
			merged, err := merge.Merge(runs)
			if err != nil {
				return err
			}
			path, err := corpus.SaveMerged(app.cfg.Corpus.Dir, merged)
			if err != nil {
				return err
			}
			app.log.Info("corpus merged", "runs", len(runs), "records", len(merged.Records), "path", path)
			return nil
		},
	}
}

func newIndexCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Embed the latest merged corpus into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer app.close()

			merged, err := corpus.LatestMerged(app.cfg.Corpus.Dir)
			if err != nil {
				return err
			}
			retriever, err := app.retriever()
			if err != nil {
				return err
			}
			written, err := retriever.Index(cmd.Context(), merged)
			if err != nil {
				return err
			}
			app.log.Info("index written", "entries", written)
			return nil
		},
	}
}

func newQueryCommand(cfgPath *string) *cobra.Command {
	var k int
	var types []int
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Retrieve the most similar indexed questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer app.close()

			retriever, err := app.queryRetriever()
			if err != nil {
				return err
			}
			if k <= 0 {
				k = app.cfg.Retrieval.TopK
			}
			results, err := retriever.Query(cmd.Context(), args[0], k, typeFilter(types))
			if err != nil {
				return err
			}
			printResults(cmd, results)
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "top", "k", 0, "number of results (default from config)")
	cmd.Flags().IntSliceVar(&types, "type", nil, "restrict to question types (e.g. --type 2,4)")
	return cmd
}

func newBrowseCommand(cfgPath *string) *cobra.Command {
	var types []int
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the index interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer app.close()

			retriever, err := app.queryRetriever()
			if err != nil {
				return err
			}
			m := tui.New(retriever, app.cfg.Retrieval.TopK, typeFilter(types))
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().IntSliceVar(&types, "type", nil, "restrict to question types (e.g. --type 2,4)")
	return cmd
}

func typeFilter(types []int) *domain.SearchFilter {
	if len(types) == 0 {
		return nil
	}
	f := &domain.SearchFilter{}
	for _, t := range types {
		f.QuestionTypes = append(f.QuestionTypes, domain.QuestionType(t))
	}
	return f
}

func printResults(cmd *cobra.Command, results []domain.RankedRecord) {
	if len(results) == 0 {
		cmd.Println("No results.")
		return
	}
	for i, r := range results {
		cmd.Printf("%d. distance=%.4f  type=%d\n", i+1, r.Distance, int(r.Record.QuestionType))
		cmd.Printf("   Introduction: %s\n", indent(r.Record.Introduction))
		cmd.Printf("   Conversation: %s\n", indent(r.Record.Conversation))
		cmd.Printf("   Question:     %s\n\n", indent(r.Record.Question))
	}
}

func indent(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n   ")
}
