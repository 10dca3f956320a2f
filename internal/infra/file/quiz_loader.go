package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"quizmaster-service/internal/domain"
)

// QuizLoader reads quiz content from a directory of JSON files. Each
// <name>.json holds {"quiz": [{"question": ..., "answer": ...,
// "options": [...]}]} and the file stem becomes the quiz ID.
type QuizLoader struct {
	dir string
}

func NewQuizLoader(dir string) *QuizLoader {
	return &QuizLoader{dir: dir}
}

type quizFile struct {
	Quiz []domain.Question `json:"quiz"`
}

func (l *QuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quizID == "" || quizID != filepath.Base(quizID) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}

	raw, err := os.ReadFile(filepath.Join(l.dir, quizID+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("read quiz file: %w", err)
	}

	var parsed quizFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.Quiz{}, fmt.Errorf("parse quiz %q: %w", quizID, err)
	}

	questions := make([]domain.Question, 0, len(parsed.Quiz))
	for _, q := range parsed.Quiz {
		// entries without both prompt and answer are unplayable
		if strings.TrimSpace(q.Text) == "" || strings.TrimSpace(q.Answer) == "" {
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return domain.Quiz{}, fmt.Errorf("quiz %q: %w", quizID, domain.ErrEmptySource)
	}

	return domain.Quiz{ID: quizID, Questions: questions}, nil
}

func (l *QuizLoader) ListQuizzes(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read quiz dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}
