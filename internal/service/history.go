package service

import (
	"bothub/internal/models"
)

// nearLimitMargin is how close (in turns) a premium conversation may get to
// its window before the response starts warning the client.
const nearLimitMargin = 4

// HistoryLimit returns the maximum number of stored conversation turns for
// a plan. Unknown plans get the smallest window.
func HistoryLimit(plan models.Plan) int {
	switch plan {
	case models.PlanPremium:
		return 100
	case models.PlanBasic:
		return 50
	default:
		return 20
	}
}

// AppendTurn appends a turn to a conversation window and trims it to the
// plan's limit, keeping the newest turns. nearLimit is reported only for
// premium conversations whose pre-trim length has entered the warning
// margin; lower tiers are silently trimmed.
func AppendTurn(history []models.Turn, turn models.Turn, plan models.Plan) (out []models.Turn, nearLimit bool) {
	max := HistoryLimit(plan)

	out = append(history, turn)

	if plan == models.PlanPremium && len(out) >= max-nearLimitMargin {
		nearLimit = true
	}

	if len(out) > max {
		out = out[len(out)-max:]
	}
	return out, nearLimit
}
