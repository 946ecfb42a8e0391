// Package eval measures persona-selection quality against a labeled
// corpus and emits machine-readable and human-readable reports.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ragscout/ragscout/internal/persona"
	"github.com/ragscout/ragscout/pkg/models"
)

// CaseResult is the graded outcome of one case.
type CaseResult struct {
	Case          Case             `json:"case"`
	ActualPersona models.PersonaID `json:"actual_persona"`
	Correct       bool             `json:"correct"`
	Confidence    float64          `json:"confidence"`
	Method        string           `json:"method"`
	DurationMs    int64            `json:"duration_ms"`
}

// Metrics aggregates a full run.
type Metrics struct {
	Timestamp      time.Time          `json:"timestamp"`
	TotalCases     int                `json:"total_cases"`
	Correct        int                `json:"correct"`
	Accuracy       float64            `json:"accuracy"`
	MeanConfidence float64            `json:"mean_confidence"`
	MeanDurationMs float64            `json:"mean_duration_ms"`
	ByCategory     map[string]float64 `json:"by_category"`
	ByDifficulty   map[string]float64 `json:"by_difficulty"`
	MethodCounts   map[string]int     `json:"method_counts"`
}

// Report is the full output of one evaluation run.
type Report struct {
	Results []CaseResult `json:"results"`
	Metrics Metrics      `json:"metrics"`
}

// Runner evaluates a selector against a corpus.
type Runner struct {
	selector *persona.Selector
	cases    []Case
	outDir   string
}

// NewRunner uses the built-in corpus. outDir may be empty to skip
// report files.
func NewRunner(selector *persona.Selector, outDir string) *Runner {
	return &Runner{selector: selector, cases: Corpus, outDir: outDir}
}

// WithCases substitutes a custom corpus.
func (r *Runner) WithCases(cases []Case) *Runner {
	r.cases = cases
	return r
}

// Run grades every case and writes the timestamped report files.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		Metrics: Metrics{
			Timestamp:    time.Now().UTC(),
			TotalCases:   len(r.cases),
			ByCategory:   map[string]float64{},
			ByDifficulty: map[string]float64{},
			MethodCounts: map[string]int{},
		},
	}

	categoryTotals := map[string]int{}
	difficultyTotals := map[string]int{}

	for _, c := range r.cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		sel := r.selector.Select(ctx, c.Request)
		elapsed := time.Since(start).Milliseconds()

		result := CaseResult{
			Case:          c,
			ActualPersona: sel.Persona,
			Correct:       sel.Persona == c.ExpectedPersona,
			Confidence:    sel.Confidence,
			Method:        string(sel.Method),
			DurationMs:    elapsed,
		}
		report.Results = append(report.Results, result)

		categoryTotals[c.Category]++
		difficultyTotals[c.Difficulty]++
		if result.Correct {
			report.Metrics.Correct++
			report.Metrics.ByCategory[c.Category]++
			report.Metrics.ByDifficulty[c.Difficulty]++
		}
		report.Metrics.MeanConfidence += sel.Confidence
		report.Metrics.MeanDurationMs += float64(elapsed)
		report.Metrics.MethodCounts[string(sel.Method)]++
	}

	if n := len(r.cases); n > 0 {
		report.Metrics.Accuracy = float64(report.Metrics.Correct) / float64(n)
		report.Metrics.MeanConfidence /= float64(n)
		report.Metrics.MeanDurationMs /= float64(n)
	}
	for cat, total := range categoryTotals {
		report.Metrics.ByCategory[cat] /= float64(total)
	}
	for diff, total := range difficultyTotals {
		report.Metrics.ByDifficulty[diff] /= float64(total)
	}

	if r.outDir != "" {
		if err := r.write(report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// write emits eval-results-<TS>.json and eval-metrics-<TS>.json.
func (r *Runner) write(report *Report) error {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return fmt.Errorf("create eval dir: %w", err)
	}
	ts := report.Metrics.Timestamp.Format("20060102-150405")

	if err := writeJSON(filepath.Join(r.outDir, "eval-results-"+ts+".json"), report.Results); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(r.outDir, "eval-metrics-"+ts+".json"), report.Metrics); err != nil {
		return err
	}
	log.Info().Str("dir", r.outDir).Str("ts", ts).Msg("evaluation reports written")
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Render formats the report for a terminal, listing every wrong case
// with expected versus actual persona.
func (rep *Report) Render() string {
	var b strings.Builder
	m := rep.Metrics

	fmt.Fprintf(&b, "Persona selection evaluation: %d/%d correct (%.1f%%)\n",
		m.Correct, m.TotalCases, m.Accuracy*100)
	fmt.Fprintf(&b, "Mean confidence %.2f, mean duration %.0f ms\n", m.MeanConfidence, m.MeanDurationMs)

	fmt.Fprintf(&b, "\nBy category:\n")
	for _, k := range sortedKeys(m.ByCategory) {
		fmt.Fprintf(&b, "  %-16s %.1f%%\n", k, m.ByCategory[k]*100)
	}
	fmt.Fprintf(&b, "By difficulty:\n")
	for _, k := range sortedKeys(m.ByDifficulty) {
		fmt.Fprintf(&b, "  %-16s %.1f%%\n", k, m.ByDifficulty[k]*100)
	}
	fmt.Fprintf(&b, "Selection method:\n")
	for method, count := range m.MethodCounts {
		fmt.Fprintf(&b, "  %-16s %d\n", method, count)
	}

	incorrect := 0
	for _, res := range rep.Results {
		if res.Correct {
			continue
		}
		if incorrect == 0 {
			fmt.Fprintf(&b, "\nIncorrect cases:\n")
		}
		incorrect++
		fmt.Fprintf(&b, "  %-10s expected=%s actual=%s conf=%.2f  %q\n",
			res.Case.ID, res.Case.ExpectedPersona, res.ActualPersona, res.Confidence, res.Case.Request)
	}
	if incorrect == 0 {
		fmt.Fprintf(&b, "\nAll cases correct.\n")
	}
	return b.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
