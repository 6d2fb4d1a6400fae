package questiongen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/quizgen/internal/llm"
)

const sourceText = "On 19 March 1882, construction of the Sagrada Família began under architect Francisco de Paula del Villar."

func newTestProcessor(responses ...llm.MockResponse) (*Processor, *llm.MockProvider) {
	mock := llm.NewMockProvider(responses...)
	return New(mock, DefaultConfig(), zap.NewNop()), mock
}

func TestGenerate_RoundTrip(t *testing.T) {
	p, mock := newTestProcessor(llm.MockResponse{
		Text: `[{"question":"Q1","answers":{"A":"19 March 1882"}}]`,
	})

	res, err := p.Generate(context.Background(), Request{SourceText: sourceText, Type: ShortAnswer, Count: 1})
	require.NoError(t, err)

	require.Len(t, res.Questions, 1)
	q := res.Questions[0]
	assert.Equal(t, "Q1", q.Text)
	assert.Equal(t, []Answer{{Key: "A", Text: "19 March 1882"}}, q.Answers)
	assert.Equal(t, AnswerKey(""), q.Correct)
	assert.False(t, res.Repaired)
	assert.False(t, res.CountMismatch())
	assert.Equal(t, 1, mock.CallCount())
}

func TestGenerate_SendsPromptAndSamplingParams(t *testing.T) {
	p, mock := newTestProcessor(llm.MockResponse{Text: `[]`})

	_, err := p.Generate(context.Background(), Request{SourceText: sourceText, Type: MultipleChoice, Count: 3})
	require.NoError(t, err)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Equal(t, BuildMessages(MultipleChoice, 3, sourceText), req.Messages)
	assert.Equal(t, 1.0, req.Temperature)
	assert.Equal(t, 0.5, req.TopP)
	assert.Equal(t, 0.25, req.FrequencyPenalty)
	assert.Equal(t, 0.0, req.PresencePenalty)
}

func TestGenerate_Envelope(t *testing.T) {
	bare, _ := newTestProcessor(llm.MockResponse{Text: `[{"question":"Q","answers":{"A":"X"}}]`})
	env, _ := newTestProcessor(llm.MockResponse{Text: `{"questions":[{"question":"Q","answers":{"A":"X"}}]}`})

	req := Request{SourceText: sourceText, Type: ShortAnswer, Count: 1}
	a, err := bare.Generate(context.Background(), req)
	require.NoError(t, err)
	b, err := env.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a.Questions, b.Questions)
	assert.False(t, b.Repaired)
}

func TestGenerate_FiltersMalformedElements(t *testing.T) {
	p, _ := newTestProcessor(llm.MockResponse{
		Text: `[{"question":"Valid","answers":{"A":"X"}},{"question":"Missing answers"}]`,
	})

	res, err := p.Generate(context.Background(), Request{SourceText: sourceText, Type: ShortAnswer, Count: 2})
	require.NoError(t, err)

	require.Len(t, res.Questions, 1)
	assert.Equal(t, "Valid", res.Questions[0].Text)
	assert.Equal(t, []Drop{{Index: 1, Reason: reasonInvalidElement}}, res.Dropped)
}

func TestGenerate_RepairSucceeds(t *testing.T) {
	prose := "Sure! Here are the questions:\n1. Q - A: X"
	p, mock := newTestProcessor(
		llm.MockResponse{Text: prose},
		llm.MockResponse{Text: `[{"question":"Q","answers":{"A":"X"}}]`},
	)

	res, err := p.Generate(context.Background(), Request{SourceText: sourceText, Type: ShortAnswer, Count: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, mock.CallCount())
	assert.Equal(t, BuildRepairMessages(prose), mock.Calls[1].Messages)
	assert.True(t, res.Repaired)
	require.Len(t, res.Questions, 1)
	assert.Equal(t, "Q", res.Questions[0].Text)
}

func TestGenerate_RepairFailsWithFormatError(t *testing.T) {
	p, mock := newTestProcessor(
		llm.MockResponse{Text: "no json here"},
		llm.MockResponse{Text: "still no json"},
		llm.MockResponse{Text: `[]`},
	)

	_, err := p.Generate(context.Background(), Request{SourceText: sourceText, Type: ShortAnswer, Count: 1})

	var fe *FormatError
	require.True(t, errors.As(err, &fe), "expected *FormatError, got %v", err)
	assert.Equal(t, "still no json", fe.Raw)
	assert.Equal(t, 2, mock.CallCount(), "exactly one repair attempt")
}

func TestGenerate_EmptyRepairKeepsPrimaryRaw(t *testing.T) {
	p, _ := newTestProcessor(
		llm.MockResponse{Text: "no json here"},
		llm.MockResponse{Text: "  "},
	)

	_, err := p.Generate(context.Background(), Request{SourceText: sourceText, Type: ShortAnswer, Count: 1})

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "no json here", fe.Raw)
}

func TestGenerate_CountMismatchIsNotAnError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mock := llm.NewMockProvider(llm.MockResponse{Text: `[
		{"question":"1","answers":{"A":"True"}},
		{"question":"2","answers":{"A":"false"}},
		{"question":"3","answers":{"A":"TRUE"}}
	]`})
	p := New(mock, DefaultConfig(), zap.New(core))

	res, err := p.Generate(context.Background(), Request{SourceText: sourceText, Type: TrueFalse, Count: 5})
	require.NoError(t, err)

	assert.Len(t, res.Questions, 3)
	assert.Equal(t, 5, res.Requested)
	assert.True(t, res.CountMismatch())
	assert.Equal(t, 1, logs.FilterMessage("question count differs from request").Len())
}

func TestGenerate_APIErrorPassesThrough(t *testing.T) {
	upstream := &llm.ErrAPI{Provider: "openai", StatusCode: 401, Message: "Incorrect API key provided"}
	p, mock := newTestProcessor(llm.MockResponse{Err: upstream})

	_, err := p.Generate(context.Background(), Request{SourceText: sourceText, Type: ShortAnswer, Count: 1})

	var apiErr *llm.ErrAPI
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.True(t, strings.Contains(err.Error(), "Incorrect API key provided"))
	assert.Equal(t, 1, mock.CallCount())
}

func TestGenerate_RepairCallAPIError(t *testing.T) {
	upstream := &llm.ErrAPI{Provider: "openai", StatusCode: 503, Message: "overloaded"}
	p, _ := newTestProcessor(
		llm.MockResponse{Text: "prose"},
		llm.MockResponse{Err: upstream},
	)

	_, err := p.Generate(context.Background(), Request{SourceText: sourceText, Type: ShortAnswer, Count: 1})

	var apiErr *llm.ErrAPI
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Unavailable())

	var fe *FormatError
	assert.False(t, errors.As(err, &fe))
}

func TestGenerate_CancelledContext(t *testing.T) {
	p, _ := newTestProcessor(llm.MockResponse{Text: `[]`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Generate(ctx, Request{SourceText: sourceText, Type: ShortAnswer, Count: 1})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_UnknownType(t *testing.T) {
	p, mock := newTestProcessor()
	_, err := p.Generate(context.Background(), Request{SourceText: sourceText, Type: "essay", Count: 1})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 0, mock.CallCount())
}

type purposeRecorder struct {
	inner    llm.Provider
	purposes []string
	ids      []string
}

func (r *purposeRecorder) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	r.purposes = append(r.purposes, llm.PurposeFrom(ctx))
	r.ids = append(r.ids, llm.RequestIDFrom(ctx))
	return r.inner.Generate(ctx, req)
}

func (r *purposeRecorder) ModelID() string { return r.inner.ModelID() }

func TestGenerate_TagsCallsWithPurposeAndRequestID(t *testing.T) {
	rec := &purposeRecorder{inner: llm.NewMockProvider(
		llm.MockResponse{Text: "prose"},
		llm.MockResponse{Text: `[]`},
	)}
	p := New(rec, DefaultConfig(), nil)

	_, err := p.Generate(context.Background(), Request{SourceText: sourceText, Type: ShortAnswer, Count: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{PurposeGenerate, PurposeRepair}, rec.purposes)
	require.Len(t, rec.ids, 2)
	assert.NotEmpty(t, rec.ids[0])
	assert.Equal(t, rec.ids[0], rec.ids[1])
}
