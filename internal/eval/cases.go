package eval

import "github.com/ragscout/ragscout/pkg/models"

// Case categories.
const (
	CategoryImplementation = "implementation"
	CategoryArchitecture   = "architecture"
	CategoryDebugging      = "debugging"
	CategoryLearning       = "learning"
	CategoryTesting        = "testing"
)

// Case difficulties.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyHard      = "hard"
	DifficultyAmbiguous = "ambiguous"
)

// Case is one labeled persona-selection example.
type Case struct {
	ID              string           `json:"id"`
	Request         string           `json:"request"`
	ExpectedPersona models.PersonaID `json:"expected_persona"`
	Category        string           `json:"category"`
	Difficulty      string           `json:"difficulty"`
	Notes           string           `json:"notes,omitempty"`
}

// Corpus is the built-in labeled dataset. Expected labels reflect the
// persona a competent human router would pick for each request.
var Corpus = []Case{
	{ID: "impl-01", Request: "Implement JWT authentication for API endpoints", ExpectedPersona: models.PersonaDeveloper, Category: CategoryImplementation, Difficulty: DifficultyEasy},
	{ID: "impl-02", Request: "Add a function to parse CSV files", ExpectedPersona: models.PersonaDeveloper, Category: CategoryImplementation, Difficulty: DifficultyEasy},
	{ID: "impl-03", Request: "How to build a REST API endpoint in this codebase", ExpectedPersona: models.PersonaDeveloper, Category: CategoryImplementation, Difficulty: DifficultyMedium, Notes: "question phrasing pulls toward learner"},
	{ID: "impl-04", Request: "Show me a code sample for the retry helper", ExpectedPersona: models.PersonaDeveloper, Category: CategoryImplementation, Difficulty: DifficultyEasy},
	{ID: "impl-05", Request: "Create a pagination component for the results page", ExpectedPersona: models.PersonaDeveloper, Category: CategoryImplementation, Difficulty: DifficultyEasy},
	{ID: "impl-06", Request: "Реализуй систему авторизации через OAuth2 api", ExpectedPersona: models.PersonaDeveloper, Category: CategoryImplementation, Difficulty: DifficultyHard, Notes: "non-ASCII request, keyword signal only from api token"},

	{ID: "arch-01", Request: "Show me the component hierarchy and module dependencies", ExpectedPersona: models.PersonaArchitect, Category: CategoryArchitecture, Difficulty: DifficultyEasy},
	{ID: "arch-02", Request: "Explain the overall system architecture", ExpectedPersona: models.PersonaArchitect, Category: CategoryArchitecture, Difficulty: DifficultyEasy},
	{ID: "arch-03", Request: "What design pattern is used for the storage module", ExpectedPersona: models.PersonaArchitect, Category: CategoryArchitecture, Difficulty: DifficultyMedium},
	{ID: "arch-04", Request: "How are the services connected to each other", ExpectedPersona: models.PersonaArchitect, Category: CategoryArchitecture, Difficulty: DifficultyHard, Notes: "weak signal, tie-priority decides"},
	{ID: "arch-05", Request: "Draw a dependency graph of the ingestion pipeline", ExpectedPersona: models.PersonaArchitect, Category: CategoryArchitecture, Difficulty: DifficultyEasy},

	{ID: "debug-01", Request: "Why is authentication failing with 401 error", ExpectedPersona: models.PersonaDebugger, Category: CategoryDebugging, Difficulty: DifficultyEasy},
	{ID: "debug-02", Request: "Fix the crash in the upload handler", ExpectedPersona: models.PersonaDebugger, Category: CategoryDebugging, Difficulty: DifficultyEasy},
	{ID: "debug-03", Request: "The request times out intermittently, diagnose it", ExpectedPersona: models.PersonaDebugger, Category: CategoryDebugging, Difficulty: DifficultyMedium},
	{ID: "debug-04", Request: "Something is wrong with session handling", ExpectedPersona: models.PersonaDebugger, Category: CategoryDebugging, Difficulty: DifficultyMedium},
	{ID: "debug-05", Request: "Troubleshoot the broken websocket connection", ExpectedPersona: models.PersonaDebugger, Category: CategoryDebugging, Difficulty: DifficultyEasy},

	{ID: "learn-01", Request: "What does dependency injection mean", ExpectedPersona: models.PersonaLearner, Category: CategoryLearning, Difficulty: DifficultyMedium},
	{ID: "learn-02", Request: "Explain the concept of vector embeddings", ExpectedPersona: models.PersonaLearner, Category: CategoryLearning, Difficulty: DifficultyEasy},
	{ID: "learn-03", Request: "Tell me about the event loop theory", ExpectedPersona: models.PersonaLearner, Category: CategoryLearning, Difficulty: DifficultyEasy},
	{ID: "learn-04", Request: "I want to understand how caching works here", ExpectedPersona: models.PersonaLearner, Category: CategoryLearning, Difficulty: DifficultyEasy},
	{ID: "learn-05", Request: "Where is the documentation for the config format", ExpectedPersona: models.PersonaLearner, Category: CategoryLearning, Difficulty: DifficultyMedium},

	{ID: "test-01", Request: "Check test coverage for API endpoints", ExpectedPersona: models.PersonaTester, Category: CategoryTesting, Difficulty: DifficultyEasy},
	{ID: "test-02", Request: "Write a unit test for the parser", ExpectedPersona: models.PersonaTester, Category: CategoryTesting, Difficulty: DifficultyEasy},
	{ID: "test-03", Request: "How do we verify input quality before release", ExpectedPersona: models.PersonaTester, Category: CategoryTesting, Difficulty: DifficultyMedium},
	{ID: "test-04", Request: "Is the payment module tested for edge cases", ExpectedPersona: models.PersonaTester, Category: CategoryTesting, Difficulty: DifficultyEasy},
	{ID: "test-05", Request: "Improve QA integration for the release pipeline", ExpectedPersona: models.PersonaTester, Category: CategoryTesting, Difficulty: DifficultyMedium},

	{ID: "ambig-01", Request: "Help me with the search feature", ExpectedPersona: models.PersonaDeveloper, Category: CategoryImplementation, Difficulty: DifficultyAmbiguous, Notes: "no strong keyword signal, default applies"},
	{ID: "ambig-02", Request: "Why does the architecture use message queues", ExpectedPersona: models.PersonaArchitect, Category: CategoryArchitecture, Difficulty: DifficultyAmbiguous, Notes: "debugging and architecture signals compete"},
}
