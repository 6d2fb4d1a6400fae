package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const statusReady = "ready"

// formText is a rich-text field in a question form.
type formText struct {
	Format string `json:"format"`
	Text   string `json:"text"`
}

func plainText(s string) formText { return formText{Format: "1", Text: s} }

// questionForm is the saved editing form of a question. Fields that do not
// apply to a question type are omitted from the stored JSON.
type questionForm struct {
	Category     int64    `json:"category"`
	QType        string   `json:"qtype"`
	Name         string   `json:"name"`
	QuestionText formText `json:"questiontext"`
	Penalty      float64  `json:"penalty"`
	Status       string   `json:"status"`
	DefaultMark  float64  `json:"defaultmark"`

	GeneralFeedback formText `json:"generalfeedback"`

	// truefalse
	CorrectAnswer *int      `json:"correctanswer,omitempty"`
	FeedbackTrue  *formText `json:"feedbacktrue,omitempty"`
	FeedbackFalse *formText `json:"feedbackfalse,omitempty"`

	// shortanswer
	UseCase *bool `json:"usecase,omitempty"`

	// shortanswer and multichoice
	Answer   []string   `json:"answer,omitempty"`
	Fraction []string   `json:"fraction,omitempty"`
	Feedback []formText `json:"feedback,omitempty"`
}

// multiChoiceKeys are the answer slots of a multiple-choice question.
var multiChoiceKeys = []string{"A", "B", "C", "D"}

// questionRepo implements QuestionRepo on sqlx.
type questionRepo struct {
	db *sqlx.DB
}

func (r *questionRepo) EnsureCourse(ctx context.Context, courseID int64) (int64, error) {
	var categoryID int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		categoryID, err = ensureDefaultCategory(ctx, tx, courseID)
		return err
	})
	return categoryID, err
}

func (r *questionRepo) Save(ctx context.Context, in SaveInput) (int64, error) {
	var id int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		categoryID, err := ensureDefaultCategory(ctx, tx, in.CourseID)
		if err != nil {
			return err
		}

		form, err := buildForm(categoryID, in)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(form)
		if err != nil {
			return fmt.Errorf("marshal question form: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO questions (
				category_id, qtype, name, questiontext, questiontextformat,
				defaultmark, penalty, status, stamp, created_by, form, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			categoryID, form.QType, form.Name, form.QuestionText.Text, form.QuestionText.Format,
			form.DefaultMark, form.Penalty, form.Status, uuid.NewString(), in.CreatedBy,
			string(raw), time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *questionRepo) List(ctx context.Context, courseID int64) ([]BankQuestion, error) {
	var qs []BankQuestion
	err := r.db.SelectContext(ctx, &qs, `
		SELECT q.id, q.category_id, q.qtype, q.name, q.questiontext, q.defaultmark,
		       q.penalty, q.status, q.stamp, q.created_by, q.form, q.created_at
		FROM questions q
		JOIN question_categories c ON c.id = q.category_id
		WHERE c.course_id = ?
		ORDER BY q.id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return qs, nil
}

func (r *questionRepo) Get(ctx context.Context, id int64) (*BankQuestion, error) {
	var q BankQuestion
	err := r.db.GetContext(ctx, &q, `
		SELECT id, category_id, qtype, name, questiontext, defaultmark,
		       penalty, status, stamp, created_by, form, created_at
		FROM questions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return &q, nil
}

// ensureDefaultCategory returns the first child of the course's top
// category, creating both when the course has none.
func ensureDefaultCategory(ctx context.Context, tx *sqlx.Tx, courseID int64) (int64, error) {
	var topID int64
	err := tx.GetContext(ctx, &topID,
		`SELECT id FROM question_categories WHERE course_id = ? AND parent = 0 ORDER BY id LIMIT 1`, courseID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		topID, err = insertCategory(ctx, tx, courseID, 0, "top")
		if err != nil {
			return 0, err
		}
	case err != nil:
		return 0, fmt.Errorf("find top category: %w", err)
	}

	var childID int64
	err = tx.GetContext(ctx, &childID,
		`SELECT id FROM question_categories WHERE parent = ? ORDER BY id LIMIT 1`, topID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return insertCategory(ctx, tx, courseID, topID, fmt.Sprintf("Default for course %d", courseID))
	case err != nil:
		return 0, fmt.Errorf("find default category: %w", err)
	}
	return childID, nil
}

func insertCategory(ctx context.Context, tx *sqlx.Tx, courseID, parent int64, name string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO question_categories (course_id, parent, name, stamp) VALUES (?, ?, ?, ?)`,
		courseID, parent, name, uuid.NewString())
	if err != nil {
		return 0, fmt.Errorf("insert category %q: %w", name, err)
	}
	return res.LastInsertId()
}

// buildForm fills in the per-type form record.
func buildForm(categoryID int64, in SaveInput) (*questionForm, error) {
	form := &questionForm{
		Category:        categoryID,
		QType:           in.Type,
		Name:            in.Text,
		QuestionText:    plainText(in.Text),
		Penalty:         1,
		Status:          statusReady,
		DefaultMark:     1,
		GeneralFeedback: plainText(""),
	}

	answers := make(map[string]string, len(in.Answers))
	var first string
	for i, a := range in.Answers {
		answers[a.Key] = a.Text
		if i == 0 {
			first = a.Text
		}
	}

	switch in.Type {
	case QTypeTrueFalse:
		correct := 0
		if first == "True" {
			correct = 1
		}
		form.CorrectAnswer = &correct
		empty := plainText("")
		form.FeedbackTrue = &empty
		form.FeedbackFalse = &empty

	case QTypeShortAnswer:
		useCase := false
		form.UseCase = &useCase
		form.Answer = []string{first}
		form.Fraction = []string{"1.0"}
		form.Feedback = []formText{plainText("")}

	case QTypeMultipleChoice:
		if in.Correct == "" || answers[in.Correct] == "" {
			return nil, ErrMissingCorrect
		}
		// Slots the question does not use are left out, not saved blank.
		for _, key := range multiChoiceKeys {
			if answers[key] == "" {
				continue
			}
			fraction := "0"
			if key == in.Correct {
				fraction = "1"
			}
			form.Answer = append(form.Answer, answers[key])
			form.Fraction = append(form.Fraction, fraction)
			form.Feedback = append(form.Feedback, plainText(""))
		}

	default:
		return nil, fmt.Errorf("unsupported question type %q", in.Type)
	}

	return form, nil
}

// withTx runs fn in a transaction, rolling back on error.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
