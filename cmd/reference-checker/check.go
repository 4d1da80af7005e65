package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
	"golang.org/x/time/rate"

	"github.com/AeroFlaire/reference-checker/internal/catalog"
	"github.com/AeroFlaire/reference-checker/internal/parse"
	"github.com/AeroFlaire/reference-checker/internal/secrets"
	"github.com/AeroFlaire/reference-checker/internal/sniper"
	"github.com/AeroFlaire/reference-checker/internal/verify"
	"github.com/AeroFlaire/reference-checker/pkg/types"
)

const (
	defaultParserTimeout  = 30 * time.Second
	defaultCatalogTimeout = 5 * time.Second
	defaultUserAgent      = "reference-checker/0.1"
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Verify a batch of citations",
	Long: `Check reads citations from a file (or stdin with "-"), one per line or
as a JSON array, verifies each against scholarly databases, and prints
the bucketed report. Structured hints can be supplied via JSON input:
[{"text": "...", "hints": {"title": "...", "author": "...", "year": 2014}}].`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Int("workers", 0, "worker pool size (default 5)")
	checkCmd.Flags().Duration("timeout", 0, "generative parser request timeout (default 30s)")
	checkCmd.Flags().String("ollama-url", "", "generative parser base URL (default http://localhost:11434)")
	checkCmd.Flags().String("ollama-model", "llama3", "generative parser model")
	checkCmd.Flags().String("email", "", "contact email for polite API access")
	checkCmd.Flags().String("cache-dir", "", "directory for the lookup cache (disabled when empty)")
	checkCmd.Flags().Bool("json", false, "output the report as JSON")
	checkCmd.Flags().Bool("yaml", false, "output the report as YAML")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	citations, err := readCitations(args)
	if err != nil {
		return err
	}
	if len(citations) == 0 {
		return fmt.Errorf("no citations to check")
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultParserTimeout
	}
	workers, _ := cmd.Flags().GetInt("workers")
	ollamaURL, _ := cmd.Flags().GetString("ollama-url")
	ollamaModel, _ := cmd.Flags().GetString("ollama-model")
	emailFlag, _ := cmd.Flags().GetString("email")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")

	cfg := types.DefaultVerifyConfig()
	applyConfigOverrides(&cfg)
	if workers > 0 {
		cfg.Workers = workers
	}
	email := secretDefault(secrets.KeyOpenAlexEmail, emailFlag)
	apiKey := secretDefault(secrets.KeySemanticScholar, "")

	// Catalog calls are kept on a short leash; generation is the only
	// request that legitimately takes tens of seconds.
	client := &http.Client{Timeout: defaultCatalogTimeout}
	parserClient := &http.Client{Timeout: timeout}

	var cache *catalog.Cache
	if cacheDir != "" {
		cache, err = catalog.OpenCache(cacheDir)
		if err != nil {
			return fmt.Errorf("opening lookup cache: %w", err)
		}
		defer cache.Close()
	}

	index := &catalog.OpenAlex{Client: client, Email: email, UserAgent: defaultUserAgent, Cache: cache}
	secondary := &catalog.SemanticScholar{
		Client:    client,
		APIKey:    apiKey,
		UserAgent: defaultUserAgent,
		Limiter:   rate.NewLimiter(rate.Every(cfg.GreyLitDelay), 1),
	}
	biblio := &catalog.Crossref{Client: client, Email: email, UserAgent: defaultUserAgent}
	books := &catalog.OpenLibrary{Client: client, UserAgent: defaultUserAgent}
	standards := &catalog.Standards{Client: client, UserAgent: defaultUserAgent}

	parser := &parse.OllamaBackend{
		Client:  parserClient,
		BaseURL: ollamaURL,
		Model:   ollamaModel,
		Limiter: rate.NewLimiter(rate.Every(cfg.ParserDelay), 1),
	}

	checker := &verify.Checker{
		Sniper:  sniper.New(standards, books, index, secondary),
		Index:   index,
		Parser:  parser,
		Biblio:  biblio,
		GreyLit: secondary,
		Config:  cfg,
	}
	coordinator := &verify.Coordinator{Checker: checker, Workers: cfg.Workers}

	report, runErr := coordinator.Run(cmd.Context(), citations, os.Stderr)

	switch {
	case asJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
	case asYAML:
		data, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		os.Stdout.Write(data)
	default:
		printReport(os.Stdout, report)
	}

	return runErr
}

// applyConfigOverrides layers values from the config file or environment
// over the built-in defaults. Flags still win over both.
func applyConfigOverrides(cfg *types.VerifyConfig) {
	if v := viper.GetInt("verify.workers"); v > 0 {
		cfg.Workers = v
	}
	if v := viper.GetInt("verify.max_candidates"); v > 0 {
		cfg.MaxCandidates = v
	}
	if v := viper.GetInt("thresholds.verified"); v > 0 {
		cfg.Thresholds.Verified = v
	}
	if v := viper.GetInt("thresholds.flawed"); v > 0 {
		cfg.Thresholds.Flawed = v
	}
	if v := viper.GetInt("thresholds.discard"); v > 0 {
		cfg.Thresholds.Discard = v
	}
	if v := viper.GetInt("thresholds.rescue"); v > 0 {
		cfg.Thresholds.Rescue = v
	}
	if v := viper.GetInt("thresholds.preprint_lag_years"); v > 0 {
		cfg.Thresholds.PreprintLagYears = v
	}
	if v := viper.GetInt("thresholds.backstop"); v > 0 {
		cfg.Thresholds.Backstop = v
	}
}

// readCitations loads the batch from the file argument or stdin. A JSON
// array may hold bare strings or {text, hints} objects; any other content
// is treated as one citation per line.
func readCitations(args []string) ([]types.Citation, error) {
	var r io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("opening citations file: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading citations: %w", err)
	}

	return parseCitations(data)
}

func parseCitations(data []byte) ([]types.Citation, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var citations []types.Citation
		if err := json.Unmarshal([]byte(trimmed), &citations); err == nil {
			return citations, nil
		}
		var texts []string
		if err := json.Unmarshal([]byte(trimmed), &texts); err != nil {
			return nil, fmt.Errorf("parsing citations JSON: %w", err)
		}
		citations = make([]types.Citation, 0, len(texts))
		for _, t := range texts {
			citations = append(citations, types.Citation{Text: t})
		}
		return citations, nil
	}

	var citations []types.Citation
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		citations = append(citations, types.Citation{Text: line})
	}
	return citations, nil
}

// printReport writes the human-readable bucketed report.
func printReport(w io.Writer, rep *types.Report) {
	buckets := []struct {
		name    string
		results []types.Result
	}{
		{"VERIFIED", rep.Verified},
		{"YEAR_MISMATCH", rep.YearMismatch},
		{"FLAWED_REFERENCE", rep.Flawed},
		{"NOT_FOUND", rep.NotFound},
		{"NOT_A_REFERENCE", rep.NotAReference},
	}

	for _, b := range buckets {
		if len(b.results) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%d):\n", b.name, len(b.results))
		for _, r := range b.results {
			fmt.Fprintf(w, "  %s\n", r.Citation.Text)
			if r.Match != nil {
				fmt.Fprintf(w, "    -> %s (%d) %s\n", r.Match.Title, r.Match.Year, r.Match.Note)
			}
			if r.Note != "" {
				fmt.Fprintf(w, "    note: %s\n", r.Note)
			}
		}
	}

	if rep.Dropped > 0 {
		fmt.Fprintf(w, "Dropped: %d\n", rep.Dropped)
	}
	fmt.Fprintf(w, "Checked %d citation(s) in %dms (%.0fms avg)\n",
		rep.Total(), rep.TotalDurationMs, rep.AverageMsPerCitation)
}
