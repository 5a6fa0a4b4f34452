package policy

import (
	"fmt"

	"pocketmoney/internal/core"
)

// Authorize decides whether a dependent may spend amount in category, given
// what was already spent today. It only reads settings.
func Authorize(settings core.PolicySettings, spentToday, amount core.Money, category string) error {
	if settings.Frozen {
		return core.ErrCardFrozen
	}
	if settings.Blocks(category) {
		return fmt.Errorf("%q: %w", category, core.ErrCategoryBlocked)
	}
	if total := spentToday.Add(amount); total.Cents > settings.DailyLimit.Cents {
		return fmt.Errorf("%s of %s: %w", total, settings.DailyLimit, core.ErrDailyLimitExceeded)
	}
	return nil
}
