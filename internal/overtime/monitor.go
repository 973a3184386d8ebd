// Package overtime raises tiered alerts as an employee's daily working time
// crosses the tenant's thresholds.
package overtime

import (
	"fmt"
	"time"

	alertmodels "shiftguard/internal/alert/models"
	tenantmodels "shiftguard/internal/tenant/models"
	id "shiftguard/pkg/domain"
)

// Tier is one row of the threshold table.
type Tier struct {
	Name      string
	Type      alertmodels.Type
	Severity  alertmodels.Severity
	Threshold time.Duration
}

// Tiers returns the threshold table ordered from highest to lowest.
func Tiers(cfg tenantmodels.OvertimeConfig) []Tier {
	return []Tier{
		{Name: "legal_limit", Type: alertmodels.TypeOvertimeLegalLimit, Severity: alertmodels.SeverityCritical, Threshold: cfg.LegalLimit()},
		{Name: "critical", Type: alertmodels.TypeOvertimeCritical, Severity: alertmodels.SeverityHigh, Threshold: cfg.Critical()},
		{Name: "warning", Type: alertmodels.TypeOvertimeWarning, Severity: alertmodels.SeverityMedium, Threshold: cfg.Warning()},
	}
}

// IsOvertimeType reports whether t is one of the overtime tier types.
func IsOvertimeType(t alertmodels.Type) bool {
	switch t {
	case alertmodels.TypeOvertimeWarning, alertmodels.TypeOvertimeCritical, alertmodels.TypeOvertimeLegalLimit:
		return true
	}
	return false
}

type Input struct {
	UserID       id.UserID
	TenantID     id.TenantID
	TotalWorking time.Duration
	Config       tenantmodels.OvertimeConfig
	// AlertsToday are the user's alerts created since local midnight,
	// resolved or not.
	AlertsToday []*alertmodels.Alert
}

// Evaluate returns a candidate for the highest tier reached, or nil when no
// tier is reached or that tier already fired today. Lower tiers are never
// raised once a higher one applies.
func Evaluate(in Input) *alertmodels.Candidate {
	for _, tier := range Tiers(in.Config) {
		if in.TotalWorking < tier.Threshold {
			continue
		}
		if firedToday(in.AlertsToday, tier.Type) {
			return nil
		}
		return candidate(in, tier)
	}
	return nil
}

func firedToday(alerts []*alertmodels.Alert, typ alertmodels.Type) bool {
	for _, a := range alerts {
		if a != nil && a.Type == typ {
			return true
		}
	}
	return false
}

func candidate(in Input, tier Tier) *alertmodels.Candidate {
	worked := in.TotalWorking.Truncate(time.Minute)
	var title, message string
	switch tier.Type {
	case alertmodels.TypeOvertimeLegalLimit:
		title = "Legal working time limit reached"
		message = fmt.Sprintf("Employee has worked %s today and reached the legal limit of %s", formatHours(worked), formatHours(tier.Threshold))
	case alertmodels.TypeOvertimeCritical:
		title = "Excessive working time"
		message = fmt.Sprintf("Employee has worked %s today, beyond the %s critical threshold", formatHours(worked), formatHours(tier.Threshold))
	default:
		title = "Overtime warning"
		message = fmt.Sprintf("You have worked %s today, past the %s warning threshold", formatHours(worked), formatHours(tier.Threshold))
	}
	return &alertmodels.Candidate{
		UserID:   in.UserID,
		TenantID: in.TenantID,
		Type:     tier.Type,
		Severity: tier.Severity,
		Title:    title,
		Message:  message,
		Data: map[string]any{
			"tier":             tier.Name,
			"total_working_ms": in.TotalWorking.Milliseconds(),
			"threshold_hours":  tier.Threshold.Hours(),
		},
	}
}

// formatHours renders a duration as "9h30m".
func formatHours(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}
