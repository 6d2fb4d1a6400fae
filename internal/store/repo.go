package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMissingCorrect is returned when a multiple-choice question is
	// saved without a correct answer key.
	ErrMissingCorrect = errors.New("multiple-choice question has no correct answer")
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	RequestID    string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEventRecord is a stored LLM request event.
type LLMRequestEventRecord struct {
	ID           int       `db:"id"`
	Sequence     int64     `db:"sequence"`
	Timestamp    time.Time `db:"timestamp"`
	RequestID    string    `db:"request_id"`
	Provider     string    `db:"provider"`
	Model        string    `db:"model"`
	Purpose      string    `db:"purpose"`
	InputTokens  int       `db:"input_tokens"`
	OutputTokens int       `db:"output_tokens"`
	LatencyMs    int64     `db:"latency_ms"`
	Success      bool      `db:"success"`
	ErrorMessage string    `db:"error_message"`
	RequestBody  string    `db:"request_body"`
	ResponseBody string    `db:"response_body"`
}

// LLMUsageStats aggregates LLM calls by purpose.
type LLMUsageStats struct {
	Purpose      string  `db:"purpose"`
	Calls        int     `db:"calls"`
	InputTokens  int     `db:"input_tokens"`
	OutputTokens int     `db:"output_tokens"`
	AvgLatencyMs float64 `db:"avg_latency_ms"`
}

// LLMModelUsage aggregates LLM calls by model.
type LLMModelUsage struct {
	Model        string `db:"model"`
	Calls        int    `db:"calls"`
	InputTokens  int    `db:"input_tokens"`
	OutputTokens int    `db:"output_tokens"`
}

// GenerationRun summarizes the LLM calls that share one request ID: a
// primary call and, when its output needed fixing, a repair call.
type GenerationRun struct {
	RequestID    string    `db:"request_id"`
	StartedAt    time.Time `db:"started_at"`
	Purpose      string    `db:"purpose"`
	Model        string    `db:"model"`
	Calls        int       `db:"calls"`
	RepairCalls  int       `db:"repair_calls"`
	InputTokens  int       `db:"input_tokens"`
	OutputTokens int       `db:"output_tokens"`
	LatencyMs    int64     `db:"latency_ms"`
	Succeeded    bool      `db:"succeeded"` // outcome of the last call
}

// Repaired reports whether the run made a repair call.
func (r GenerationRun) Repaired() bool { return r.RepairCalls > 0 }

// LLMRunStats aggregates generation runs by the purpose of their first call.
type LLMRunStats struct {
	Purpose      string `db:"purpose"`
	Runs         int    `db:"runs"`
	RepairedRuns int    `db:"repaired_runs"`
	FailedRuns   int    `db:"failed_runs"`
}

// RepairRate is the share of runs that needed a repair call.
func (s LLMRunStats) RepairRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.RepairedRuns) / float64(s.Runs)
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// EventQuerier reads back recorded events for the CLI.
type EventQuerier interface {
	EventRepo

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error)

	// GetLLMEvent returns a single event, or ErrNotFound.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEventRecord, error)

	// LLMUsageByPurpose aggregates calls per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error)

	// LLMUsageByModel aggregates calls per model.
	LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error)

	// QueryGenerationRuns groups events by request ID, newest run first.
	// Calls tagged repairPurpose count as repair calls.
	QueryGenerationRuns(ctx context.Context, repairPurpose string, limit int) ([]GenerationRun, error)

	// LLMEventsForRequest returns the calls of the run whose request ID
	// starts with prefix, oldest first.
	LLMEventsForRequest(ctx context.Context, prefix string) ([]LLMRequestEventRecord, error)

	// LLMRunStatsByPurpose aggregates runs by the purpose of their first call.
	LLMRunStatsByPurpose(ctx context.Context, repairPurpose string) ([]LLMRunStats, error)
}

// Question types accepted by the bank. They match the question type
// identifiers used by the generator.
const (
	QTypeShortAnswer    = "shortanswer"
	QTypeTrueFalse      = "truefalse"
	QTypeMultipleChoice = "multichoice"
)

// BankAnswer is one labelled answer of a question to be saved.
type BankAnswer struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// SaveInput is a single question to commit to a course's bank.
type SaveInput struct {
	CourseID  int64
	Type      string
	CreatedBy int64
	Text      string
	Answers   []BankAnswer
	Correct   string
}

// BankQuestion is a stored question.
type BankQuestion struct {
	ID           int64     `db:"id"`
	CategoryID   int64     `db:"category_id"`
	QType        string    `db:"qtype"`
	Name         string    `db:"name"`
	QuestionText string    `db:"questiontext"`
	DefaultMark  float64   `db:"defaultmark"`
	Penalty      float64   `db:"penalty"`
	Status       string    `db:"status"`
	Stamp        string    `db:"stamp"`
	CreatedBy    int64     `db:"created_by"`
	Form         string    `db:"form"`
	CreatedAt    time.Time `db:"created_at"`
}

// QuestionRepo commits generated questions to a course question bank.
type QuestionRepo interface {
	// EnsureCourse returns the course's default category, creating the
	// top category and its default child when missing.
	EnsureCourse(ctx context.Context, courseID int64) (int64, error)

	// Save stores one question in the course's default category and
	// returns its ID.
	Save(ctx context.Context, in SaveInput) (int64, error)

	// List returns a course's questions in insertion order.
	List(ctx context.Context, courseID int64) ([]BankQuestion, error)

	// Get returns a single question, or ErrNotFound.
	Get(ctx context.Context, id int64) (*BankQuestion, error)
}
