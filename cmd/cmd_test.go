package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizgen/internal/config"
	"github.com/abhisek/quizgen/internal/questiongen"
	"github.com/abhisek/quizgen/internal/store"
)

func testCommand(t *testing.T) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	c := &cobra.Command{}
	c.Flags().String("db", "", "")
	var out, errOut bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&errOut)
	c.SetContext(context.Background())
	return c, &out, &errOut
}

func TestResolveDBPath(t *testing.T) {
	dir := t.TempDir()
	c, _, _ := testCommand(t)

	cfg := &config.Config{DB: config.DBConfig{Path: filepath.Join(dir, "cfg", "q.db")}}
	p, err := resolveDBPath(c, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.DB.Path, p)

	flagPath := filepath.Join(dir, "flag", "q.db")
	require.NoError(t, c.Flags().Set("db", flagPath))
	p, err = resolveDBPath(c, cfg)
	require.NoError(t, err)
	assert.Equal(t, flagPath, p)
}

func TestToSaveInput(t *testing.T) {
	q := questiongen.Question{
		Text:    "Who?",
		Answers: []questiongen.Answer{{Key: "A", Text: "x"}, {Key: "B", Text: "y"}},
		Correct: "B",
	}
	in := toSaveInput(4, 9, questiongen.MultipleChoice, q)

	assert.Equal(t, store.SaveInput{
		CourseID:  4,
		Type:      "multichoice",
		CreatedBy: 9,
		Text:      "Who?",
		Answers:   []store.BankAnswer{{Key: "A", Text: "x"}, {Key: "B", Text: "y"}},
		Correct:   "B",
	}, in)
}

func TestSaveQuestions_SkipsMissingCorrect(t *testing.T) {
	s, err := store.Open("file:cmd_save_questions?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	questions, _, err := questiongen.ParseQuestions(questiongen.MultipleChoice, []byte(`[
		{"question":"Marked","answers":{"A":"1","B":"2"},"correct":"B"},
		{"question":"Unmarked","answers":{"A":"1","B":"2"}}
	]`))
	require.NoError(t, err)

	c, out, errOut := testCommand(t)
	require.NoError(t, saveQuestions(c, s.QuestionRepo(), 5, 1, questiongen.MultipleChoice, questions))

	assert.Contains(t, out.String(), "Saved 1 question(s) to course 5.")
	assert.Contains(t, errOut.String(), "no correct answer marked")

	saved, err := s.QuestionRepo().List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Marked", saved[0].Name)
}

func TestReadSource_Stdin(t *testing.T) {
	c, _, _ := testCommand(t)
	c.SetIn(strings.NewReader("from stdin"))

	got, err := readSource(c, "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	_, err = readSource(c, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestFormatCost(t *testing.T) {
	assert.Equal(t, "$0.0012", formatCost(0.0012))
	assert.Equal(t, "$1.50", formatCost(1.5))
	assert.Equal(t, "abc", truncate("abcdef", 3))
}

func TestPrintResult_JSONCountWarning(t *testing.T) {
	res := &questiongen.Result{
		Questions: []questiongen.Question{{
			Text:    "When did construction begin?",
			Answers: []questiongen.Answer{{Key: "A", Text: "1882"}},
		}},
		Requested: 3,
	}

	c, out, errOut := testCommand(t)
	require.NoError(t, printResult(c, questiongen.ShortAnswer, res, true))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "When did construction begin?", decoded[0]["question"])

	assert.Equal(t, 1, strings.Count(errOut.String(), "requested 3 questions, got 1"))
}

func TestPrintResult_NoWarningWhenCountMatches(t *testing.T) {
	res := &questiongen.Result{
		Questions: []questiongen.Question{{Text: "Q", Answers: []questiongen.Answer{{Key: "A", Text: "X"}}}},
		Requested: 1,
	}

	c, _, errOut := testCommand(t)
	require.NoError(t, printResult(c, questiongen.ShortAnswer, res, true))
	assert.Empty(t, errOut.String())
}

func TestRunOutcome(t *testing.T) {
	tests := []struct {
		run  store.GenerationRun
		want string
	}{
		{store.GenerationRun{Calls: 1, Succeeded: true}, "ok"},
		{store.GenerationRun{Calls: 2, RepairCalls: 1, Succeeded: true}, "repaired"},
		{store.GenerationRun{Calls: 2, RepairCalls: 1}, "repair failed"},
		{store.GenerationRun{Calls: 1}, "failed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, runOutcome(tt.run), "%+v", tt.run)
	}
}

func TestPrintRuns_GroupsCallsByRequest(t *testing.T) {
	s, err := store.Open("file:cmd_print_runs?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	repo := s.EventRepo()
	ctx := context.Background()
	for _, d := range []store.LLMRequestEventData{
		{RequestID: "11111111-aaaa", Model: "gpt-4", Purpose: questiongen.PurposeGenerate, InputTokens: 1000, OutputTokens: 500, LatencyMs: 800, Success: true},
		{RequestID: "22222222-bbbb", Model: "gpt-4", Purpose: questiongen.PurposeGenerate, InputTokens: 900, OutputTokens: 300, LatencyMs: 700, Success: true},
		{RequestID: "22222222-bbbb", Model: "gpt-4", Purpose: questiongen.PurposeRepair, InputTokens: 400, OutputTokens: 300, LatencyMs: 300, Success: true},
		{RequestID: "33333333-cccc", Model: "made-up-model", Purpose: questiongen.PurposeGenerate, Success: false, ErrorMessage: "boom"},
	} {
		require.NoError(t, repo.AppendLLMRequest(ctx, d))
	}

	runs, err := repo.QueryGenerationRuns(ctx, questiongen.PurposeRepair, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	var buf bytes.Buffer
	printRuns(&buf, runs)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5, buf.String())

	assert.Contains(t, lines[2], "33333333")
	assert.Contains(t, lines[2], "failed")
	assert.Contains(t, lines[2], "?")
	assert.Contains(t, lines[3], "22222222")
	assert.Contains(t, lines[3], "repaired")
	assert.Contains(t, lines[3], "1300")
	assert.Contains(t, lines[4], "11111111")
	assert.Contains(t, lines[4], " ok ")

	stats, err := repo.LLMRunStatsByPurpose(ctx, questiongen.PurposeRepair)
	require.NoError(t, err)
	buf.Reset()
	printRunStats(&buf, stats)
	assert.Contains(t, buf.String(), questiongen.PurposeGenerate)
	assert.Contains(t, buf.String(), "33.3%")
}

func TestPrintRuns_Empty(t *testing.T) {
	var buf bytes.Buffer
	printRuns(&buf, nil)
	assert.Equal(t, "No generate runs recorded.\n", buf.String())
}

func TestPrintCalls_FiltersByPurpose(t *testing.T) {
	events := []store.LLMRequestEventRecord{
		{ID: 2, RequestID: "abcdef123", Purpose: questiongen.PurposeRepair, Model: "gpt-4", Success: false},
		{ID: 1, RequestID: "abcdef123", Purpose: questiongen.PurposeGenerate, Model: "gpt-4", Success: true},
	}

	var buf bytes.Buffer
	printCalls(&buf, events, questiongen.PurposeRepair)
	out := buf.String()
	assert.Contains(t, out, questiongen.PurposeRepair)
	assert.NotContains(t, out, questiongen.PurposeGenerate)
	assert.Contains(t, out, "✗")

	buf.Reset()
	printCalls(&buf, events, "unknown")
	assert.Equal(t, "No LLM calls found.\n", buf.String())
}
