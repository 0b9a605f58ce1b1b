package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Game lifecycle states. A session cycles STARTED -> OVER -> STARTED
// for as long as the host keeps starting new rounds on the same pin.
const (
	StatusStarted = "STARTED"
	StatusOver    = "OVER"
)

// Player identifies a participant. UID is the anonymous per-browser
// identity and stays stable across reloads; Name is mutable display text.
type Player struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// Question is one submitted question/answer pair. QuestionAuthor and
// AnswerAuthor are nil until the round is scrambled; afterwards they record
// whose original text ended up in this slot.
type Question struct {
	ID             string  `json:"id"`
	Question       string  `json:"question"`
	Answer         string  `json:"answer"`
	Author         Player  `json:"author"`
	QuestionAuthor *Player `json:"questionAuthor,omitempty"`
	AnswerAuthor   *Player `json:"answerAuthor,omitempty"`
}

// Game is the shared session document for one pin. All mutation happens
// inside a single hub loop, so none of these methods lock.
type Game struct {
	Status             string     `json:"status"`
	Host               Player     `json:"host"`
	Participants       []Player   `json:"participants"`
	Questions          []Question `json:"questions"`
	ScrambledQuestions []Question `json:"scrambledQuestions,omitempty"`
}

// NewGame creates a fresh session with the given host as its only
// participant. The host never changes for the life of the session.
func NewGame(host Player) *Game {
	return &Game{
		Status:       StatusStarted,
		Host:         host,
		Participants: []Player{host},
	}
}

// Join adds a player to the session unless their UID is already present.
// Joining is permitted even after the round is over, so latecomers can
// watch the reveal and take part in the next round. Reports whether the
// participant list changed.
func (g *Game) Join(p Player) bool {
	for _, existing := range g.Participants {
		if existing.UID == p.UID {
			return false
		}
	}
	g.Participants = append(g.Participants, p)
	return true
}

// Rename updates the display name recorded for a UID in the participant
// list (and host, if applicable). Question authorship keeps the name the
// player had when they submitted.
func (g *Game) Rename(uid, name string) {
	if g.Host.UID == uid {
		g.Host.Name = name
	}
	for i := range g.Participants {
		if g.Participants[i].UID == uid {
			g.Participants[i].Name = name
		}
	}
}

// QuestionCount returns how many questions the given UID has submitted
// this round.
func (g *Game) QuestionCount(uid string) int {
	count := 0
	for _, q := range g.Questions {
		if q.Author.UID == uid {
			count++
		}
	}
	return count
}

// QuestionsBy returns the questions submitted by the given UID, in
// submission order.
func (g *Game) QuestionsBy(uid string) []Question {
	var qs []Question
	for _, q := range g.Questions {
		if q.Author.UID == uid {
			qs = append(qs, q)
		}
	}
	return qs
}

// AddQuestion appends a new question/answer pair for the given author.
// The question ID is derived from the author's UID and their submission
// index, which keeps IDs unique without a central counter.
func (g *Game) AddQuestion(author Player, question, answer string, quota int) (Question, error) {
	if g.Status != StatusStarted {
		return Question{}, ErrRoundOver
	}
	if question == "" || answer == "" {
		return Question{}, ErrEmptyQuestion
	}
	if g.QuestionCount(author.UID) >= quota {
		return Question{}, ErrQuotaReached
	}

	q := Question{
		ID:       fmt.Sprintf("%s-%d", author.UID, g.QuestionCount(author.UID)),
		Question: question,
		Answer:   answer,
		Author:   author,
	}
	g.Questions = append(g.Questions, q)

	g.Join(author)

	return q, nil
}

// EndRound scrambles the submitted questions and marks the round over.
// Only the host may end a round, and only while one is in progress. The
// host may end the round before everyone has finished.
func (g *Game) EndRound(by Player, rng *rand.Rand) error {
	if by.UID != g.Host.UID {
		return ErrNotHost
	}
	if g.Status != StatusStarted {
		return ErrRoundOver
	}

	g.ScrambledQuestions = Scramble(g.Questions, rng)
	g.Status = StatusOver

	return nil
}

// StartNewRound resets the session for another round on the same pin,
// clearing questions and the reveal while keeping host and participants.
func (g *Game) StartNewRound(by Player) error {
	if by.UID != g.Host.UID {
		return ErrNotHost
	}
	if g.Status != StatusOver {
		return ErrRoundNotOver
	}

	g.Status = StatusStarted
	g.Questions = nil
	g.ScrambledQuestions = nil

	return nil
}

// FinishedPlayers reports how many participants have submitted their full
// quota of questions. Informational only; it never gates EndRound.
func (g *Game) FinishedPlayers(quota int) int {
	return len(g.Questions) / quota
}

// Complete reports whether every participant has submitted their full
// quota of questions.
func (g *Game) Complete(quota int) bool {
	return len(g.Participants) > 0 && g.FinishedPlayers(quota) == len(g.Participants)
}

// fmtPin renders a session number as a 4-digit zero-padded decimal pin.
func fmtPin(n int) string {
	return fmt.Sprintf("%04d", n%10000)
}

// randomPin generates a random pin. Rejection sampling keeps the
// distribution uniform across the 10000-pin space.
func randomPin() string {
	const limit = 60000 // largest multiple of 10000 below 2^16

	var b [2]byte
	for {
		if _, err := crand.Read(b[:]); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		v := int(binary.BigEndian.Uint16(b[:]))
		if v < limit {
			return fmtPin(v)
		}
	}
}
