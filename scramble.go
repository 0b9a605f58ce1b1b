package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Derange returns a permutation of questions in which no element remains
// at its original index. Inputs of length 0 or 1 are returned unchanged,
// since no derangement of them exists.
//
// The permutation is built constructively: each slot picks uniformly among
// the not-yet-placed elements, excluding the element that originated at
// that slot. If the final slot is left with only its own element, that
// element is placed and then swapped with a random earlier slot, which
// restores the derangement without a retry loop. Later picks are
// constrained by earlier ones, so the result is not uniform over all
// derangements.
func Derange(questions []Question, rng *rand.Rand) []Question {
	n := len(questions)
	if n <= 1 {
		return questions
	}

	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}

	perm := make([]int, n)
	for i := 0; i < n; i++ {
		self := -1
		for idx, r := range remaining {
			if r == i {
				self = idx
				break
			}
		}

		if self >= 0 && len(remaining) == 1 {
			// Only this slot's own element is left, necessarily at the
			// final slot. Swapping with any earlier slot keeps both
			// slots deranged.
			j := rng.Intn(i)
			perm[i] = perm[j]
			perm[j] = i
			break
		}

		candidates := len(remaining)
		if self >= 0 {
			candidates--
		}
		pick := rng.Intn(candidates)
		if self >= 0 && pick >= self {
			pick++
		}

		perm[i] = remaining[pick]
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}

	out := make([]Question, n)
	for i, p := range perm {
		out[i] = questions[p]
	}
	return out
}

// Scramble recombines the round's questions for the reveal. Each output
// slot keeps its input slot's ID and author, takes its question text from
// one deranged pass and its answer text from a second derangement of the
// first pass, so question and answer reassignment stay decorrelated and no
// slot pairs a question with its own original answer.
func Scramble(questions []Question, rng *rand.Rand) []Question {
	if len(questions) == 0 {
		return nil
	}

	qs := Derange(questions, rng)
	as := Derange(qs, rng)

	out := make([]Question, len(questions))
	for i := range questions {
		slot := questions[i]

		qa := qs[i].Author
		slot.Question = qs[i].Question
		slot.QuestionAuthor = &qa

		aa := as[i].Author
		slot.Answer = as[i].Answer
		slot.AnswerAuthor = &aa

		out[i] = slot
	}
	return out
}

// newSeed generates a random RNG seed using crypto/rand.
func newSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
