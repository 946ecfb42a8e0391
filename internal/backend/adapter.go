package backend

import (
	"encoding/json"
	"fmt"

	"github.com/ragscout/ragscout/pkg/models"
)

// envelope covers both backend generations. A v2 response carries
// success/data/error; a v3 response carries results. Exactly one of data
// and results is populated on a well-formed response.
type envelope struct {
	Success *bool           `json:"success,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *envelopeError  `json:"error,omitempty"`
	Results json.RawMessage `json:"results,omitempty"`
}

type envelopeError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// unwrap extracts the payload from either envelope generation. A raw body
// that is neither shape is returned as-is, which covers backends that skip
// the envelope entirely.
func unwrap(raw json.RawMessage) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw, nil
	}
	if env.Error != nil {
		return nil, fmt.Errorf("backend error: %s", env.Error.Message)
	}
	if env.Success != nil && !*env.Success {
		return nil, fmt.Errorf("backend reported failure")
	}
	if len(env.Data) > 0 {
		return env.Data, nil
	}
	if len(env.Results) > 0 {
		return env.Results, nil
	}
	return raw, nil
}

// wireChunk covers the chunk result field names both generations use.
type wireChunk struct {
	ID         string                 `json:"id"`
	DocumentID string                 `json:"document_id"`
	Text       string                 `json:"text"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata"`
	Score      float64                `json:"score"`
}

type wireGraphHit struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata"`
	Score       float64                `json:"score"`
}

// normalizeSearchResults handles three payload shapes: a bare result array,
// and an object carrying chunk_search_results and/or graph_search_results.
// When both are present, chunk results win; when chunks are empty, graph
// results are surfaced instead so a partially populated response still
// yields usable data.
func normalizeSearchResults(raw json.RawMessage) ([]models.SearchResult, error) {
	payload, err := unwrap(raw)
	if err != nil {
		return nil, err
	}

	var grouped struct {
		ChunkSearchResults []wireChunk    `json:"chunk_search_results"`
		GraphSearchResults []wireGraphHit `json:"graph_search_results"`
	}
	if err := json.Unmarshal(payload, &grouped); err == nil {
		if len(grouped.ChunkSearchResults) > 0 {
			return chunksToResults(grouped.ChunkSearchResults), nil
		}
		if len(grouped.GraphSearchResults) > 0 {
			out := make([]models.SearchResult, 0, len(grouped.GraphSearchResults))
			for _, g := range grouped.GraphSearchResults {
				content := g.Description
				if content == "" {
					content = g.Name
				}
				out = append(out, models.SearchResult{
					DocumentID: g.ID,
					Content:    content,
					Metadata:   g.Metadata,
					Score:      g.Score,
				})
			}
			return out, nil
		}
	}

	var flat []wireChunk
	if err := json.Unmarshal(payload, &flat); err == nil {
		return chunksToResults(flat), nil
	}

	return nil, fmt.Errorf("unrecognized search result shape")
}

func chunksToResults(chunks []wireChunk) []models.SearchResult {
	out := make([]models.SearchResult, 0, len(chunks))
	for _, ch := range chunks {
		docID := ch.DocumentID
		if docID == "" {
			docID = ch.ID
		}
		content := ch.Text
		if content == "" {
			content = ch.Content
		}
		out = append(out, models.SearchResult{
			DocumentID: docID,
			Content:    content,
			Metadata:   ch.Metadata,
			Score:      ch.Score,
		})
	}
	return out
}

// normalizeRAGResult extracts the generated answer and citations.
func normalizeRAGResult(raw json.RawMessage) (*models.RAGResult, error) {
	payload, err := unwrap(raw)
	if err != nil {
		return nil, err
	}

	var body struct {
		Answer          string          `json:"answer"`
		GeneratedAnswer string          `json:"generated_answer"`
		Sources         []models.Source `json:"sources"`
		SearchResults   json.RawMessage `json:"search_results"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decode rag response: %w", err)
	}

	answer := body.Answer
	if answer == "" {
		answer = body.GeneratedAnswer
	}

	sources := body.Sources
	if len(sources) == 0 && len(body.SearchResults) > 0 {
		if hits, err := normalizeSearchResults(body.SearchResults); err == nil {
			for _, h := range hits {
				sources = append(sources, models.Source{Text: h.Content, Metadata: h.Metadata})
			}
		}
	}

	return &models.RAGResult{Answer: answer, Sources: sources}, nil
}

// normalizeIngestResult extracts document IDs from either generation.
func normalizeIngestResult(raw json.RawMessage) ([]string, error) {
	payload, err := unwrap(raw)
	if err != nil {
		return nil, err
	}

	var body struct {
		DocumentID  string   `json:"document_id"`
		DocumentIDs []string `json:"document_ids"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if len(body.DocumentIDs) > 0 {
			return body.DocumentIDs, nil
		}
		if body.DocumentID != "" {
			return []string{body.DocumentID}, nil
		}
	}

	var ids []string
	if err := json.Unmarshal(payload, &ids); err == nil {
		return ids, nil
	}
	return nil, fmt.Errorf("unrecognized ingest result shape")
}

// normalizeGraphResult maps entities into a flat arena and relationships
// into (source_index, target_index, type) tuples. Relationships that name
// entities missing from the arena get appended as bare entities so no edge
// is dropped.
func normalizeGraphResult(raw json.RawMessage) (*models.GraphResult, error) {
	payload, err := unwrap(raw)
	if err != nil {
		return nil, err
	}

	var body struct {
		Entities []struct {
			ID       string                 `json:"id"`
			Name     string                 `json:"name"`
			Category string                 `json:"category"`
			Metadata map[string]interface{} `json:"metadata"`
		} `json:"entities"`
		Relationships []struct {
			SourceID  string `json:"source_id"`
			Subject   string `json:"subject"`
			TargetID  string `json:"target_id"`
			Object    string `json:"object"`
			Type      string `json:"type"`
			Predicate string `json:"predicate"`
		} `json:"relationships"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decode graph response: %w", err)
	}

	result := &models.GraphResult{}
	index := make(map[string]int, len(body.Entities))

	// Edges may reference entities by id or by name, so both are indexed.
	for _, e := range body.Entities {
		pos := len(result.Entities)
		if e.ID != "" {
			index[e.ID] = pos
		}
		if e.Name != "" {
			index[e.Name] = pos
		}
		result.Entities = append(result.Entities, models.GraphEntity{
			ID:       e.ID,
			Name:     e.Name,
			Category: e.Category,
			Metadata: e.Metadata,
		})
	}

	resolve := func(id, name string) int {
		if idx, ok := index[id]; ok && id != "" {
			return idx
		}
		if idx, ok := index[name]; ok && name != "" {
			return idx
		}
		pos := len(result.Entities)
		if id != "" {
			index[id] = pos
		}
		if name != "" {
			index[name] = pos
		}
		result.Entities = append(result.Entities, models.GraphEntity{ID: id, Name: name})
		return pos
	}

	for _, r := range body.Relationships {
		relType := r.Type
		if relType == "" {
			relType = r.Predicate
		}
		src := resolve(r.SourceID, r.Subject)
		dst := resolve(r.TargetID, r.Object)
		result.Relationships = append(result.Relationships, models.GraphRelationship{
			SourceIndex: src,
			TargetIndex: dst,
			Type:        relType,
		})
	}

	return result, nil
}
