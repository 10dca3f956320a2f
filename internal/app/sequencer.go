package app

import (
	"math/rand"

	"quizmaster-service/internal/domain"
)

// BuildSequence derives the ordered question list a session will walk
// through. With RandomOrder set, the whole source is permuted before
// any count truncation, so a limited run is a true random subset rather
// than a shuffle of the first N items. rnd is only consulted when
// RandomOrder is set; a fixed seed reproduces the same sequence.
func BuildSequence(source []domain.Question, settings domain.QuizSettings, rnd *rand.Rand) ([]domain.Question, error) {
	if len(source) == 0 {
		return nil, domain.ErrEmptySource
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	sequence := make([]domain.Question, len(source))
	copy(sequence, source)

	if settings.RandomOrder {
		rnd.Shuffle(len(sequence), func(i, j int) {
			sequence[i], sequence[j] = sequence[j], sequence[i]
		})
	}

	if n := settings.QuestionCount; n > 0 && n < len(sequence) {
		sequence = sequence[:n]
	}
	return sequence, nil
}
