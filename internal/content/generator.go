// Package content produces chore suggestions and short financial lessons.
//
// Remote generation is best effort. Callers use Resilient, which always
// answers, falling back to a fixed local set when the remote side fails.
package content

import (
	"context"
	"slices"

	"pocketmoney/internal/core"
)

// MaxSuggestions caps the chore titles returned by any generator.
const MaxSuggestions = 5

type Generator interface {
	SuggestChores(ctx context.Context, age int, interests []string) ([]string, error)
	GenerateLesson(ctx context.Context, topic string) (core.Lesson, error)
}

// Static always returns the same content.
type Static struct {
	Chores []string
	Lesson core.Lesson
}

var _ Generator = Static{}

func (s Static) SuggestChores(context.Context, int, []string) ([]string, error) {
	return slices.Clone(s.Chores), nil
}

func (s Static) GenerateLesson(context.Context, string) (core.Lesson, error) {
	l := s.Lesson
	l.Options = slices.Clone(l.Options)
	return l, nil
}

// Offline is served when no remote generator is configured.
var Offline = Static{
	Chores: []string{"Clean your room", "Wash the dishes", "Walk the dog"},
	Lesson: core.Lesson{
		Title:              "Savings 101",
		Content:            "Saving money helps you buy big things later!",
		QuizQuestion:       "Why do we save?",
		Options:            []string{"To spend it all now", "To buy expensive things later", "To lose it"},
		CorrectAnswerIndex: 1,
	},
}

// Recovery replaces a failed remote call.
var Recovery = Static{
	Chores: []string{"Organize bookshelf", "Water the plants", "Set the table"},
	Lesson: core.Lesson{
		Title:              "Budgeting Basics",
		Content:            "A budget is a plan for your money. It helps you make sure you don't spend more than you have!",
		QuizQuestion:       "What is a budget?",
		Options:            []string{"A type of bird", "A plan for money", "A customized car"},
		CorrectAnswerIndex: 1,
	},
}
