package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizmaster-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (files, SQL, etc).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]string, error)
}

// QuizRepository caches quizzes with TTL so every session start does
// not hit the backing store.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.quiz, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.quiz, nil
		}
		r.mu.RUnlock()

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// ListQuizzes defers to the loader; listings are cheap and change
// rarely enough that caching them buys nothing.
func (r *QuizRepository) ListQuizzes(ctx context.Context) ([]string, error) {
	return r.loader.ListQuizzes(ctx)
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader serves quizzes from an in-memory map (tests, demos,
// and the fallback when no other source is configured).
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (l *StaticQuizLoader) ListQuizzes(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(l.quizzes))
	for name := range l.quizzes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// BuiltinQuizzes returns the demo content served when no quiz directory
// or database is configured.
func BuiltinQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"general": {
			ID: "general",
			Questions: []domain.Question{
				{Text: "What is the capital of France?", Answer: "Paris"},
				{Text: "Which planet is known as the Red Planet?", Answer: "Mars"},
				{Text: "How many continents are there?", Answer: "7"},
				{Text: "What is the largest ocean on Earth?", Answer: "The Pacific Ocean"},
				{Text: "In which year did the Second World War end?", Answer: "1945"},
			},
		},
		"science": {
			ID: "science",
			Questions: []domain.Question{
				{Text: "What is the chemical symbol for gold?", Answer: "Au"},
				{Text: "What gas do plants absorb from the atmosphere?", Answer: "Carbon dioxide"},
				{Text: "What is the speed of light in a vacuum, in km/s?", Answer: "About 300,000"},
				{Text: "What particle carries a negative charge?", Answer: "The electron"},
			},
		},
	}
}
