package app

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"quizmaster-service/internal/domain"
)

func questionSet(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			Text:   fmt.Sprintf("question %d", i),
			Answer: fmt.Sprintf("answer %d", i),
		}
	}
	return qs
}

func TestBuildSequence_EmptySource(t *testing.T) {
	_, err := BuildSequence(nil, domain.QuizSettings{TimerSeconds: 30}, rand.New(rand.NewSource(1)))
	require.ErrorIs(t, err, domain.ErrEmptySource)
}

func TestBuildSequence_InvalidSettings(t *testing.T) {
	src := questionSet(3)

	_, err := BuildSequence(src, domain.QuizSettings{TimerSeconds: 2}, rand.New(rand.NewSource(1)))
	require.ErrorIs(t, err, domain.ErrInvalidSettings)

	_, err = BuildSequence(src, domain.QuizSettings{TimerSeconds: 30, QuestionCount: -1}, rand.New(rand.NewSource(1)))
	require.ErrorIs(t, err, domain.ErrInvalidSettings)
}

func TestBuildSequence_PreservesOrderWithoutShuffle(t *testing.T) {
	src := questionSet(4)
	seq, err := BuildSequence(src, domain.QuizSettings{TimerSeconds: 30}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, src, seq)
}

func TestBuildSequence_DoesNotMutateSource(t *testing.T) {
	src := questionSet(6)
	orig := make([]domain.Question, len(src))
	copy(orig, src)

	_, err := BuildSequence(src, domain.QuizSettings{TimerSeconds: 30, RandomOrder: true}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Equal(t, orig, src)
}

func TestBuildSequence_CountTruncates(t *testing.T) {
	src := questionSet(5)

	seq, err := BuildSequence(src, domain.QuizSettings{TimerSeconds: 30, QuestionCount: 2}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, src[:2], seq)

	// a count beyond the source size means "all of them"
	seq, err = BuildSequence(src, domain.QuizSettings{TimerSeconds: 30, QuestionCount: 9}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, seq, 5)

	// zero is the explicit "all questions" value
	seq, err = BuildSequence(src, domain.QuizSettings{TimerSeconds: 30}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, seq, 5)
}

func TestBuildSequence_DeterministicForSeed(t *testing.T) {
	src := questionSet(10)
	settings := domain.QuizSettings{TimerSeconds: 30, RandomOrder: true, QuestionCount: 4}

	a, err := BuildSequence(src, settings, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := BuildSequence(src, settings, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestBuildSequence_ShufflesBeforeTruncation(t *testing.T) {
	// If the cut happened before the shuffle, no seed could ever pick a
	// question from outside the first three.
	src := questionSet(10)
	settings := domain.QuizSettings{TimerSeconds: 30, RandomOrder: true, QuestionCount: 3}

	sawBeyondCut := false
	for seed := int64(0); seed < 30; seed++ {
		seq, err := BuildSequence(src, settings, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		require.Len(t, seq, 3)

		seen := make(map[string]bool, len(seq))
		for _, q := range seq {
			require.Contains(t, src, q)
			require.False(t, seen[q.Text], "question %q drawn twice", q.Text)
			seen[q.Text] = true
			if q.Text != src[0].Text && q.Text != src[1].Text && q.Text != src[2].Text {
				sawBeyondCut = true
			}
		}
	}
	require.True(t, sawBeyondCut)
}
