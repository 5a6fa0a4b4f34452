package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"pocketmoney/internal/core"
	"pocketmoney/internal/log"
)

var DefaultMissions = []core.Mission{
	{ID: "m1", Title: "Inflation Fighter", Description: "Learn why prices go up", Reward: 2, Type: core.MissionLesson},
	{ID: "m2", Title: "Budget Boss", Description: "Pass the weekly budget quiz", Reward: 5, Type: core.MissionQuiz},
}

// MissionResult is the outcome of answering a mission quiz.
type MissionResult struct {
	Correct       bool `json:"correct"`
	CorrectAnswer int  `json:"correct_answer"`
	PointsAwarded int  `json:"points_awarded"`
	TotalPoints   int  `json:"total_points"`
}

// MissionProgress is a dependent's standing across missions.
type MissionProgress struct {
	Completed []string `json:"completed"`
	Points    int      `json:"points"`
}

type attemptKey struct {
	account core.AccountID
	mission string
}

// missionBook tracks the lesson each dependent is answering and the missions
// they completed. Points are awarded once per mission.
type missionBook struct {
	catalog []core.Mission

	mu        sync.Mutex
	attempts  map[attemptKey]core.Lesson
	completed map[core.AccountID]map[string]core.MissionCompletion
}

func newMissionBook(catalog []core.Mission) *missionBook {
	return &missionBook{
		catalog:   slices.Clone(catalog),
		attempts:  make(map[attemptKey]core.Lesson),
		completed: make(map[core.AccountID]map[string]core.MissionCompletion),
	}
}

func (b *missionBook) find(id string) (core.Mission, error) {
	for _, m := range b.catalog {
		if m.ID == id {
			return m, nil
		}
	}
	return core.Mission{}, fmt.Errorf("mission %q: %w", id, core.ErrUnknownMission)
}

func (b *missionBook) progress(id core.AccountID) MissionProgress {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := MissionProgress{Completed: []string{}}
	for _, m := range b.catalog {
		if c, ok := b.completed[id][m.ID]; ok {
			p.Completed = append(p.Completed, m.ID)
			p.Points += c.Points
		}
	}
	return p
}

func (b *missionBook) restore(all []core.MissionCompletion) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range all {
		if b.completed[c.AccountID] == nil {
			b.completed[c.AccountID] = make(map[string]core.MissionCompletion)
		}
		b.completed[c.AccountID][c.MissionID] = c
	}
}

func (h *Household) Missions() []core.Mission {
	return slices.Clone(h.missions.catalog)
}

func (h *Household) MissionProgress(id core.AccountID) (MissionProgress, error) {
	if !h.ledger.Exists(id) {
		return MissionProgress{}, fmt.Errorf("account %q: %w", id, core.ErrUnknownAccount)
	}
	return h.missions.progress(id), nil
}

// StartMission generates the lesson for a mission and remembers it so the
// answer can be graded. The content call runs without any lock held.
func (h *Household) StartMission(ctx context.Context, id core.AccountID, missionID string) (core.Lesson, error) {
	if !h.ledger.Exists(id) {
		return core.Lesson{}, fmt.Errorf("account %q: %w", id, core.ErrUnknownAccount)
	}
	m, err := h.missions.find(missionID)
	if err != nil {
		return core.Lesson{}, err
	}
	lesson, err := h.content.GenerateLesson(ctx, m.Title)
	if err != nil {
		return core.Lesson{}, err
	}

	h.missions.mu.Lock()
	h.missions.attempts[attemptKey{id, missionID}] = lesson
	h.missions.mu.Unlock()

	h.logger.InfoContext(ctx, "mission started", log.FieldAccountID, id, log.FieldMissionID, missionID)
	return lesson, nil
}

// AnswerMission grades the answer to a started mission. A correct answer
// completes the mission and awards its points the first time only.
func (h *Household) AnswerMission(ctx context.Context, id core.AccountID, missionID string, answer int) (MissionResult, error) {
	m, err := h.missions.find(missionID)
	if err != nil {
		return MissionResult{}, err
	}

	b := h.missions
	b.mu.Lock()
	key := attemptKey{id, missionID}
	lesson, ok := b.attempts[key]
	if !ok {
		b.mu.Unlock()
		return MissionResult{}, fmt.Errorf("mission %q not started: %w", missionID, core.ErrInvalidTransition)
	}
	delete(b.attempts, key)

	res := MissionResult{CorrectAnswer: lesson.CorrectAnswerIndex, Correct: answer == lesson.CorrectAnswerIndex}
	var done *core.MissionCompletion
	if _, already := b.completed[id][missionID]; res.Correct && !already {
		if b.completed[id] == nil {
			b.completed[id] = make(map[string]core.MissionCompletion)
		}
		c := core.MissionCompletion{AccountID: id, MissionID: missionID, Points: m.Reward, CompletedAt: h.now()}
		b.completed[id][missionID] = c
		res.PointsAwarded = m.Reward
		done = &c
	}
	b.mu.Unlock()

	res.TotalPoints = b.progress(id).Points
	if done != nil {
		h.persist(ctx, "mission", func(ctx context.Context) error { return h.journal.RecordMission(ctx, *done) })
		h.hub.broadcast(Change{Type: ChangeMission, AccountID: id, Mission: done})
	}
	return res, nil
}
