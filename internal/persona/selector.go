package persona

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ragscout/ragscout/pkg/contracts"
	"github.com/ragscout/ragscout/pkg/models"
	"github.com/rs/zerolog/log"
)

// Method records which strategy produced a selection.
type Method string

const (
	MethodLLM      Method = "llm"
	MethodKeywords Method = "keywords"
)

// Selection is the outcome of persona selection for one request.
type Selection struct {
	Persona    models.PersonaID `json:"persona"`
	Reasoning  string           `json:"reasoning"`
	Confidence float64          `json:"confidence"`
	Method     Method           `json:"method"`
}

// Selector chooses the persona for a request: LLM first, keyword fallback
// second. The selector owns the persistent selection history.
type Selector struct {
	classifier contracts.Classifier
	history    *History
}

// NewSelector creates a selector. A nil classifier disables the LLM path
// entirely; every selection then uses keyword scoring.
func NewSelector(classifier contracts.Classifier, history *History) *Selector {
	return &Selector{classifier: classifier, history: history}
}

// History exposes the selection history, read-only by convention.
func (s *Selector) History() *History {
	return s.history
}

// Select picks the persona for a request. LLM failures of any kind fall
// back silently to keyword scoring; the fallback ignores history.
func (s *Selector) Select(ctx context.Context, request string) Selection {
	if s.classifier != nil {
		sel, err := s.selectByLLM(ctx, request)
		if err == nil {
			s.history.Append(models.PersonaSelectionRecord{
				Request:         request,
				SelectedPersona: sel.Persona,
				Reasoning:       sel.Reasoning,
				Confidence:      sel.Confidence,
				Timestamp:       time.Now().UTC(),
			})
			return sel
		}
		log.Debug().Err(err).Msg("LLM persona selection failed, using keyword fallback")
	}
	return s.selectByKeywords(request)
}

func (s *Selector) selectByLLM(ctx context.Context, request string) (Selection, error) {
	classification, err := s.classifier.Classify(ctx, s.systemPrompt(), s.userPrompt(request))
	if err != nil {
		return Selection{}, err
	}
	return Selection{
		Persona:    classification.Persona,
		Reasoning:  classification.Reasoning,
		Confidence: classification.Confidence,
		Method:     MethodLLM,
	}, nil
}

func (s *Selector) selectByKeywords(request string) Selection {
	id, score := classifyByKeywords(request)

	reasoning := fmt.Sprintf("keyword score %d for %s", score, id)
	confidence := 0.5
	if score > 0 {
		// More matched signal means higher confidence, capped below the
		// LLM path's typical certainty.
		confidence = 0.5 + float64(score)*0.05
		if confidence > 0.85 {
			confidence = 0.85
		}
	} else {
		reasoning = "no keyword signal, defaulting to developer"
		confidence = 0.3
	}

	return Selection{
		Persona:    id,
		Reasoning:  reasoning,
		Confidence: confidence,
		Method:     MethodKeywords,
	}
}

// systemPrompt lists every persona with its strengths plus the recent
// selection history so the classifier can keep continuity.
func (s *Selector) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You classify coding-assistant requests into one of five personas.\n\nPersonas:\n")
	for _, p := range All() {
		fmt.Fprintf(&b, "- %s: %s\n", p.ID, p.Description)
	}
	b.WriteString("\nRecent selections (consider for continuity):\n")
	b.WriteString(s.history.Summary())
	return b.String()
}

func (s *Selector) userPrompt(request string) string {
	return fmt.Sprintf(
		"Request: %s\n\nChoose the best persona. Consider the recent selection history for continuity. "+
			"Respond with the persona id, your reasoning, and a confidence in [0,1].",
		request,
	)
}
