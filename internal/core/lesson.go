package core

import (
	"fmt"
	"strings"
	"time"
)

// LessonOptions is the number of answers every quiz question carries.
const LessonOptions = 3

const (
	MissionLesson MissionType = "lesson"
	MissionQuiz   MissionType = "quiz"
)

type (
	MissionType string

	// Lesson is generated content: a short explanation followed by a
	// multiple choice question.
	Lesson struct {
		Title              string   `json:"title"`
		Content            string   `json:"content"`
		QuizQuestion       string   `json:"quizQuestion"`
		Options            []string `json:"options"`
		CorrectAnswerIndex int      `json:"correctAnswer"`
	}

	// Mission is a learning task. Its reward is in points, not money.
	Mission struct {
		ID          string      `json:"id"`
		Title       string      `json:"title"`
		Description string      `json:"description"`
		Reward      int         `json:"reward"`
		Type        MissionType `json:"type"`
	}
)

// Validate checks the shape every Lesson must have.
func (l Lesson) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("lesson title: %w", ErrEmptyTitle)
	}
	if strings.TrimSpace(l.Content) == "" || strings.TrimSpace(l.QuizQuestion) == "" {
		return fmt.Errorf("lesson content and question are required")
	}
	if len(l.Options) != LessonOptions {
		return fmt.Errorf("lesson has %d options, want %d", len(l.Options), LessonOptions)
	}
	if l.CorrectAnswerIndex < 0 || l.CorrectAnswerIndex >= LessonOptions {
		return fmt.Errorf("correct answer index %d out of range", l.CorrectAnswerIndex)
	}
	return nil
}

// MissionCompletion records that a dependent passed a mission.
type MissionCompletion struct {
	AccountID   AccountID `json:"account_id"`
	MissionID   string    `json:"mission_id"`
	Points      int       `json:"points"`
	CompletedAt time.Time `json:"completed_at"`
}
