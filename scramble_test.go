package main

import (
	"fmt"
	"math/rand"
	"testing"
)

func testQuestions(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		author := Player{UID: fmt.Sprintf("uid%d", i), Name: fmt.Sprintf("Player %d", i)}
		qs[i] = Question{
			ID:       fmt.Sprintf("%s-0", author.UID),
			Question: fmt.Sprintf("Q%d", i),
			Answer:   fmt.Sprintf("A%d", i),
			Author:   author,
		}
	}
	return qs
}

// TestDerangeDegenerateInputs ensures inputs too short to derange are
// returned unchanged.
func TestDerangeDegenerateInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(0))

	if out := Derange(nil, rng); len(out) != 0 {
		t.Fatalf("Derange(nil) = %v, want empty", out)
	}

	single := testQuestions(1)
	out := Derange(single, rng)
	if len(out) != 1 || out[0].ID != single[0].ID {
		t.Fatalf("Derange(single) = %v, want unchanged input", out)
	}
}

// TestDerangeProperty verifies, over many trials and sizes, that the
// result is a permutation of the input in which no element keeps its
// original index.
func TestDerangeProperty(t *testing.T) {
	for n := 2; n <= 8; n++ {
		for seed := int64(0); seed < 200; seed++ {
			rng := rand.New(rand.NewSource(seed))
			in := testQuestions(n)
			out := Derange(in, rng)

			if len(out) != n {
				t.Fatalf("n=%d seed=%d: got %d elements, want %d", n, seed, len(out), n)
			}

			seen := make(map[string]bool, n)
			for i := range out {
				if out[i].ID == in[i].ID {
					t.Fatalf("n=%d seed=%d: element %s stayed at index %d", n, seed, out[i].ID, i)
				}
				if seen[out[i].ID] {
					t.Fatalf("n=%d seed=%d: element %s appears twice", n, seed, out[i].ID)
				}
				seen[out[i].ID] = true
			}
		}
	}
}

// TestScramblePreservesTexts ensures scrambling permutes question and
// answer texts without mutating them.
func TestScramblePreservesTexts(t *testing.T) {
	in := testQuestions(6)
	out := Scramble(in, rand.New(rand.NewSource(3)))

	if len(out) != len(in) {
		t.Fatalf("got %d slots, want %d", len(out), len(in))
	}

	questions := make(map[string]int)
	answers := make(map[string]int)
	for _, q := range in {
		questions[q.Question]++
		answers[q.Answer]++
	}
	for _, q := range out {
		questions[q.Question]--
		answers[q.Answer]--
	}
	for text, count := range questions {
		if count != 0 {
			t.Fatalf("question text %q count off by %d", text, count)
		}
	}
	for text, count := range answers {
		if count != 0 {
			t.Fatalf("answer text %q count off by %d", text, count)
		}
	}
}

// TestScrambleIndexAlignment ensures each output slot keeps its input
// slot's ID and author, and records where the new texts came from.
func TestScrambleIndexAlignment(t *testing.T) {
	in := testQuestions(5)
	out := Scramble(in, rand.New(rand.NewSource(7)))

	for i := range out {
		if out[i].ID != in[i].ID {
			t.Fatalf("slot %d: ID = %s, want %s", i, out[i].ID, in[i].ID)
		}
		if out[i].Author != in[i].Author {
			t.Fatalf("slot %d: author = %+v, want %+v", i, out[i].Author, in[i].Author)
		}
		if out[i].QuestionAuthor == nil || out[i].AnswerAuthor == nil {
			t.Fatalf("slot %d: missing question/answer author after scramble", i)
		}
	}
}

// TestScrambleAvoidsOriginalPairings verifies that no slot keeps its own
// question, and that no slot pairs a question with that question's own
// original answer.
func TestScrambleAvoidsOriginalPairings(t *testing.T) {
	in := testQuestions(5)

	answerByQuestion := make(map[string]string, len(in))
	for _, q := range in {
		answerByQuestion[q.Question] = q.Answer
	}

	for seed := int64(0); seed < 200; seed++ {
		out := Scramble(in, rand.New(rand.NewSource(seed)))

		for i := range out {
			if out[i].Question == in[i].Question {
				t.Fatalf("seed=%d slot %d kept its own question", seed, i)
			}
			if answerByQuestion[out[i].Question] == out[i].Answer {
				t.Fatalf("seed=%d slot %d pairs question %q with its own answer", seed, i, out[i].Question)
			}
		}
	}
}

// TestScrambleTwoQuestions pins down the smallest interesting case: the
// only derangement of two entries is a swap, and the second derangement
// swaps back, so answers land at their original slots while questions
// trade places.
func TestScrambleTwoQuestions(t *testing.T) {
	p1 := Player{UID: "p1", Name: "One"}
	p2 := Player{UID: "p2", Name: "Two"}
	in := []Question{
		{ID: "a", Question: "Q1", Answer: "A1", Author: p1},
		{ID: "b", Question: "Q2", Answer: "A2", Author: p2},
	}

	out := Scramble(in, rand.New(rand.NewSource(11)))

	if len(out) != 2 {
		t.Fatalf("got %d slots, want 2", len(out))
	}
	if out[0].Question != "Q2" || out[1].Question != "Q1" {
		t.Fatalf("questions not swapped: %q, %q", out[0].Question, out[1].Question)
	}
	if out[0].Answer != "A1" || out[1].Answer != "A2" {
		t.Fatalf("unexpected answers: %q, %q", out[0].Answer, out[1].Answer)
	}
	if out[0].QuestionAuthor.UID != "p2" || out[0].AnswerAuthor.UID != "p1" {
		t.Fatalf("slot 0 authors wrong: %+v, %+v", out[0].QuestionAuthor, out[0].AnswerAuthor)
	}
	if out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("slot IDs changed: %q, %q", out[0].ID, out[1].ID)
	}
}

// TestScrambleSingleQuestion ensures a lone entry passes through with
// authors populated; no derangement of one element exists.
func TestScrambleSingleQuestion(t *testing.T) {
	in := testQuestions(1)
	out := Scramble(in, rand.New(rand.NewSource(0)))

	if len(out) != 1 {
		t.Fatalf("got %d slots, want 1", len(out))
	}
	if out[0].Question != in[0].Question || out[0].Answer != in[0].Answer {
		t.Fatalf("single entry was altered: %+v", out[0])
	}
	if out[0].QuestionAuthor == nil || out[0].QuestionAuthor.UID != in[0].Author.UID {
		t.Fatalf("single entry question author = %+v, want self", out[0].QuestionAuthor)
	}
}

// TestScrambleEmpty ensures an empty round scrambles to nothing.
func TestScrambleEmpty(t *testing.T) {
	if out := Scramble(nil, rand.New(rand.NewSource(0))); len(out) != 0 {
		t.Fatalf("Scramble(nil) = %v, want empty", out)
	}
}

// TestScrambleDeterministicSeed ensures the injected RNG makes results
// reproducible.
func TestScrambleDeterministicSeed(t *testing.T) {
	in := testQuestions(6)

	first := Scramble(in, rand.New(rand.NewSource(42)))
	second := Scramble(in, rand.New(rand.NewSource(42)))

	for i := range first {
		if first[i].Question != second[i].Question || first[i].Answer != second[i].Answer {
			t.Fatalf("slot %d differs across identical seeds: %+v vs %+v", i, first[i], second[i])
		}
	}
}
