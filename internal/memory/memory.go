// Package memory persists agent experiences to the RAG backend and
// retrieves them by similarity. Experiences are stored as markdown
// documents under the experiences/ namespace so retrieval can filter on
// the file-path metadata prefix.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ragscout/ragscout/pkg/contracts"
	"github.com/ragscout/ragscout/pkg/models"
)

// namespacePrefix keys every experience document for filtered retrieval.
const namespacePrefix = "experiences/"

// defaultRetrieveLimit bounds retrieve_similar when the caller passes 0.
const defaultRetrieveLimit = 5

// Store is the experience memory over a RAG backend.
type Store struct {
	backend contracts.Backend
}

func NewStore(be contracts.Backend) *Store {
	return &Store{backend: be}
}

// Store persists one experience and returns its assigned ID. A missing
// ID or timestamp is filled in before writing.
func (s *Store) Store(ctx context.Context, exp models.Experience) (string, error) {
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	if exp.Timestamp.IsZero() {
		exp.Timestamp = time.Now().UTC()
	}

	meta, err := experienceMetadata(exp)
	if err != nil {
		return "", fmt.Errorf("encode experience metadata: %w", err)
	}

	req := models.IngestRequest{
		Chunks: []models.IngestChunk{{
			Text:     renderMarkdown(exp),
			Metadata: meta,
		}},
	}
	if _, err := s.backend.Ingest(ctx, req); err != nil {
		return "", fmt.Errorf("store experience: %w", err)
	}

	log.Debug().
		Str("experience_id", exp.ID).
		Str("outcome", string(exp.Outcome)).
		Msg("experience stored")
	return exp.ID, nil
}

// RetrieveSimilar runs a hybrid search over the experiences namespace.
// Tags, when given, must all be present on a hit; minConfidence filters
// out low-confidence records.
func (s *Store) RetrieveSimilar(ctx context.Context, query string, tags []string, minConfidence float64, limit int) ([]models.Experience, error) {
	if limit <= 0 {
		limit = defaultRetrieveLimit
	}

	hits, err := s.backend.Search(ctx, models.SearchRequest{
		Query:      query,
		SearchMode: models.SearchModeHybrid,
		// Over-fetch so post-filtering still fills the limit.
		Limit: limit * 3,
		Filters: map[string]interface{}{
			"file_path": map[string]interface{}{"$like": namespacePrefix + "%"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve experiences: %w", err)
	}

	var out []models.Experience
	for _, hit := range hits {
		exp, ok := experienceFromMetadata(hit.Metadata)
		if !ok {
			continue
		}
		if minConfidence > 0 && exp.Confidence < minConfidence {
			continue
		}
		if !hasAllTags(exp.Tags, tags) {
			continue
		}
		out = append(out, exp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Reflect runs a RAG query over accumulated experiences and extracts
// recurring patterns plus a free-form insight summary. The output is
// advisory; nothing in the store changes.
func (s *Store) Reflect(ctx context.Context, focus string) ([]string, string, error) {
	query := "Review the stored experiences and identify recurring patterns, " +
		"common failure modes, and lessons worth reusing."
	if focus != "" {
		query += " Focus on: " + focus
	}

	res, err := s.backend.RAG(ctx, models.RAGRequest{
		Query: query,
		GenerationConfig: models.GenerationConfig{
			Model:             "claude-sonnet-4-20250514",
			Temperature:       0.5,
			MaxTokensToSample: 2048,
		},
		SearchSettings: models.SearchSettings{
			UseHybridSearch: true,
			Limit:           10,
			Filters: map[string]interface{}{
				"file_path": map[string]interface{}{"$like": namespacePrefix + "%"},
			},
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("reflect on experiences: %w", err)
	}

	return extractPatterns(res.Answer), res.Answer, nil
}

// Stats aggregates stored experiences by outcome and reports the ten
// most frequent tags.
func (s *Store) Stats(ctx context.Context) (map[string]interface{}, error) {
	hits, err := s.backend.Search(ctx, models.SearchRequest{
		Query:      "experience",
		SearchMode: models.SearchModeKeyword,
		Limit:      100,
		Filters: map[string]interface{}{
			"file_path": map[string]interface{}{"$like": namespacePrefix + "%"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("experience stats: %w", err)
	}

	byOutcome := map[string]int{}
	tagCounts := map[string]int{}
	total := 0
	for _, hit := range hits {
		exp, ok := experienceFromMetadata(hit.Metadata)
		if !ok {
			continue
		}
		total++
		byOutcome[string(exp.Outcome)]++
		for _, tag := range exp.Tags {
			tagCounts[tag]++
		}
	}

	return map[string]interface{}{
		"total_experiences": total,
		"by_outcome":        byOutcome,
		"top_tags":          topTags(tagCounts, 10),
	}, nil
}

// ── Encoding ─────────────────────────────────────────────────

// experienceMetadata round-trips the full record through the backend so
// retrieval does not depend on parsing the markdown body.
func experienceMetadata(exp models.Experience) (map[string]interface{}, error) {
	raw, err := json.Marshal(exp)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"file_path":  namespacePrefix + exp.ID + ".md",
		"experience": string(raw),
		"outcome":    string(exp.Outcome),
	}, nil
}

func experienceFromMetadata(meta map[string]interface{}) (models.Experience, bool) {
	raw, ok := meta["experience"].(string)
	if !ok {
		return models.Experience{}, false
	}
	var exp models.Experience
	if err := json.Unmarshal([]byte(raw), &exp); err != nil {
		log.Warn().Err(err).Msg("skipping unparseable experience record")
		return models.Experience{}, false
	}
	return exp, true
}

func renderMarkdown(exp models.Experience) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Experience %s\n\n", exp.ID)
	fmt.Fprintf(&b, "**Task:** %s\n\n", exp.Context.Task)
	if len(exp.Context.FilePaths) > 0 {
		fmt.Fprintf(&b, "**Files:** %s\n\n", strings.Join(exp.Context.FilePaths, ", "))
	}
	if len(exp.Context.Technologies) > 0 {
		fmt.Fprintf(&b, "**Technologies:** %s\n\n", strings.Join(exp.Context.Technologies, ", "))
	}
	if exp.Context.ErrorType != "" {
		fmt.Fprintf(&b, "**Error type:** %s\n\n", exp.Context.ErrorType)
	}
	fmt.Fprintf(&b, "**Action taken:** %s\n\n", exp.ActionTaken)
	fmt.Fprintf(&b, "**Outcome:** %s\n\n", exp.Outcome)
	if exp.LearnedPattern != "" {
		fmt.Fprintf(&b, "**Learned pattern:** %s\n\n", exp.LearnedPattern)
	}
	if exp.CodeSnippet != "" {
		fmt.Fprintf(&b, "```\n%s\n```\n\n", exp.CodeSnippet)
	}
	if len(exp.Tags) > 0 {
		fmt.Fprintf(&b, "**Tags:** %s\n", strings.Join(exp.Tags, ", "))
	}
	return b.String()
}

// ── Helpers ──────────────────────────────────────────────────

func hasAllTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, t := range want {
		if !set[t] {
			return false
		}
	}
	return true
}

// extractPatterns pulls bullet lines out of the reflection answer.
func extractPatterns(answer string) []string {
	var patterns []string
	for _, line := range strings.Split(answer, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
			patterns = append(patterns, strings.TrimSpace(trimmed[2:]))
		}
	}
	return patterns
}

type tagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func topTags(counts map[string]int, n int) []tagCount {
	out := make([]tagCount, 0, len(counts))
	for tag, c := range counts {
		out = append(out, tagCount{Tag: tag, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
