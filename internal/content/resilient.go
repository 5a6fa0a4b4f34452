package content

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"pocketmoney/internal/cache"
	"pocketmoney/internal/core"
	"pocketmoney/internal/log"
)

// Resilient wraps a Generator so that callers always get content. Each call
// is bounded by a timeout; failures are logged and answered from the
// fallback. Lessons are cached per topic and concurrent requests for the same
// topic share one remote call.
type Resilient struct {
	primary  Generator
	fallback Generator
	timeout  time.Duration
	lessons  cache.Cache[core.Lesson]
	group    singleflight.Group
	logger   *log.Logger
}

var _ Generator = (*Resilient)(nil)

func NewResilient(primary, fallback Generator, timeout time.Duration, lessons cache.Cache[core.Lesson], logger *log.Logger) *Resilient {
	return &Resilient{
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
		lessons:  lessons,
		logger:   logger,
	}
}

func (r *Resilient) SuggestChores(ctx context.Context, age int, interests []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	titles, err := r.primary.SuggestChores(ctx, age, interests)
	if err == nil {
		return titles, nil
	}
	r.logger.WarnContext(ctx, "chore suggestions unavailable, using fallback", log.FieldOperation, log.OpGenerate, log.FieldError, err)
	return r.fallback.SuggestChores(ctx, age, interests)
}

func (r *Resilient) GenerateLesson(ctx context.Context, topic string) (core.Lesson, error) {
	key := strings.ToLower(strings.TrimSpace(topic))
	if l, ok := r.lessons.Get(key); ok {
		return cloneLesson(l), nil
	}

	// The shared call must outlive any single caller's cancellation.
	v, err, _ := r.group.Do(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		l, err := r.primary.GenerateLesson(ctx, topic)
		if err != nil {
			return nil, err
		}
		r.lessons.Set(key, l)
		return l, nil
	})
	if err == nil {
		return cloneLesson(v.(core.Lesson)), nil
	}
	r.logger.WarnContext(ctx, "lesson unavailable, using fallback", log.FieldOperation, log.OpGenerate, "topic", topic, log.FieldError, err)
	return r.fallback.GenerateLesson(ctx, topic)
}

func cloneLesson(l core.Lesson) core.Lesson {
	l.Options = append([]string(nil), l.Options...)
	return l
}
