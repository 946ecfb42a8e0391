package contextlog_test

import (
	"fmt"
	"testing"

	"github.com/ragscout/ragscout/internal/contextlog"
	"github.com/ragscout/ragscout/pkg/models"
)

func addMessage(t *testing.T, s *contextlog.Store, text string) models.ContextEntry {
	t.Helper()
	return s.Add(models.ContextEntry{
		Type:    models.EntryUserMessage,
		Content: map[string]interface{}{"message": text},
	})
}

func TestAddAssignsIDAndTimestamp(t *testing.T) {
	s := contextlog.New(10)

	entry := addMessage(t, s, "hello")
	if entry.ID == "" {
		t.Error("Expected a generated entry ID")
	}
	if entry.Timestamp.IsZero() {
		t.Error("Expected a populated timestamp")
	}
}

func TestTrimmingKeepsNewestInOrder(t *testing.T) {
	s := contextlog.New(5)

	for i := 0; i < 12; i++ {
		addMessage(t, s, fmt.Sprintf("msg-%d", i))
	}

	if got := s.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}

	entries := s.GetRecent(5)
	for i, e := range entries {
		want := fmt.Sprintf("msg-%d", 7+i)
		if got := e.Content["message"]; got != want {
			t.Errorf("entry %d message = %v, want %s", i, got, want)
		}
	}
}

func TestGetByType(t *testing.T) {
	s := contextlog.New(10)
	addMessage(t, s, "hello")
	s.Add(models.ContextEntry{
		Type:    models.EntryToolCall,
		Content: map[string]interface{}{"tool": "search_documentation"},
	})
	s.Add(models.ContextEntry{
		Type:    models.EntryToolCall,
		Content: map[string]interface{}{"tool": "ask_documentation"},
	})

	calls := s.GetByType(models.EntryToolCall)
	if len(calls) != 2 {
		t.Fatalf("GetByType(tool_call) returned %d entries, want 2", len(calls))
	}
	if len(s.GetByType(models.EntryDecision)) != 0 {
		t.Error("Expected no decision entries")
	}
}

func TestSearchMatchesSerializedContent(t *testing.T) {
	s := contextlog.New(10)
	addMessage(t, s, "configure the JWT middleware")
	addMessage(t, s, "unrelated entry")

	hits := s.Search("jwt")
	if len(hits) != 1 {
		t.Fatalf("Search(jwt) returned %d hits, want 1", len(hits))
	}
	if len(s.Search("nonexistent-term")) != 0 {
		t.Error("Expected no hits for an absent term")
	}
}

func TestToolStats(t *testing.T) {
	s := contextlog.New(20)

	s.Add(models.ContextEntry{
		Type:    models.EntryToolCall,
		Content: map[string]interface{}{"tool": "search_documentation"},
	})
	s.Add(models.ContextEntry{
		Type: models.EntryToolResult,
		Content: map[string]interface{}{
			"tool": "search_documentation", "success": true, "execution_time_ms": 100,
		},
	})
	s.Add(models.ContextEntry{
		Type:    models.EntryToolCall,
		Content: map[string]interface{}{"tool": "debug_with_rag"},
	})
	s.Add(models.ContextEntry{
		Type: models.EntryToolResult,
		Content: map[string]interface{}{
			"tool": "debug_with_rag", "success": false, "execution_time_ms": 300,
		},
	})

	stats := s.ToolStats()
	if stats.TotalCalls != 2 {
		t.Errorf("TotalCalls = %d, want 2", stats.TotalCalls)
	}
	if stats.CallsPerTool["search_documentation"] != 1 {
		t.Errorf("CallsPerTool[search_documentation] = %d, want 1", stats.CallsPerTool["search_documentation"])
	}
	if stats.SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %v, want 0.5", stats.SuccessRate)
	}
	if stats.MeanExecutionMs != 200 {
		t.Errorf("MeanExecutionMs = %v, want 200", stats.MeanExecutionMs)
	}
}

func TestExportImportReappliesCap(t *testing.T) {
	s := contextlog.New(10)
	for i := 0; i < 8; i++ {
		addMessage(t, s, fmt.Sprintf("msg-%d", i))
	}
	exported := s.Export()

	small := contextlog.New(5)
	small.Import(exported)
	if got := small.Len(); got != 5 {
		t.Fatalf("Len() after import = %d, want 5", got)
	}
	newest := small.GetRecent(1)
	if got := newest[0].Content["message"]; got != "msg-7" {
		t.Errorf("newest entry = %v, want msg-7", got)
	}
}

func TestClear(t *testing.T) {
	s := contextlog.New(10)
	addMessage(t, s, "hello")
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", s.Len())
	}
}
