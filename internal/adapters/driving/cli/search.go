package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

var (
	searchLimit      int
	searchJSON       bool
	searchReportType string
	searchMode       string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search guideline documents",
	Long: `Performs hybrid search across the ingested guideline documents.
Combines keyword (full text) and semantic (vector) ranking, then removes
excerpts that are not appropriate for the selected audience.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVarP(&searchReportType, "report-type", "t", "", "restrict to a report type (xray, ct, mri, ultrasound, lab)")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "patient", "audience: patient or clinician")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return fmt.Errorf("search %w", errNotConfigured)
	}

	reportType := domain.ReportType(strings.ToLower(strings.TrimSpace(searchReportType)))
	results, err := searchService.Search(cmd.Context(), query, reportType, domain.ParseMode(searchMode))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchLimit > 0 && len(results) > searchLimit {
		results = results[:searchLimit]
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SafeContext) error {
	if results == nil {
		results = []domain.SafeContext{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SafeContext) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Title.Render("Results:"))
	cmd.Println()
	for i := range results {
		title := results[i].DocumentTitle
		if title == "" {
			title = domain.DefaultDocumentTitle
		}

		cmd.Printf("  [%d] %s %s\n", i+1, st.Label.Render(title), st.Muted.Render("("+results[i].Category+")"))
		if results[i].Source != "" {
			cmd.Printf("      Source: %s\n", results[i].Source)
		}
		cmd.Printf("      %s\n", snippet(results[i].Content, 200))
		cmd.Println()
	}

	return nil
}

// snippet collapses whitespace and truncates s to at most n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
