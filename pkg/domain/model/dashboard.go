package model

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

const (
	// MaturingAfterDays is the age after which an open risk is "maturing"
	MaturingAfterDays = 60
	// AgedAfterDays is the age after which a risk counts as "aged"
	AgedAfterDays = 90
	// ReviewWindow is how far ahead upcoming reviews are listed
	ReviewWindow = 30 * 24 * time.Hour
)

// AgingStatus classifies how long a risk has been open
type AgingStatus string

const (
	AgingStatusNew      AgingStatus = "new"
	AgingStatusMaturing AgingStatus = "maturing"
	AgingStatusAged     AgingStatus = "aged"
)

// AgingOf returns the aging status of a risk at the given time
func AgingOf(r *Risk, now time.Time) AgingStatus {
	days := r.DaysOpen(now)
	switch {
	case days > AgedAfterDays:
		return AgingStatusAged
	case days > MaturingAfterDays:
		return AgingStatusMaturing
	default:
		return AgingStatusNew
	}
}

// ComplianceStats is the headline counter set of the compliance dashboard
type ComplianceStats struct {
	Total      int
	ByLevel    map[types.RiskLevel]int
	Open       int
	InProgress int
	Closed     int
	Board      int
	Aged       int
	Overdue    int
	Unassigned int
}

// BuildComplianceStats counts risks by level, status and deadline state
func BuildComplianceStats(risks []*Risk, now time.Time) *ComplianceStats {
	stats := &ComplianceStats{
		ByLevel: make(map[types.RiskLevel]int, len(types.AllRiskLevels())),
	}
	for _, level := range types.AllRiskLevels() {
		stats.ByLevel[level] = 0
	}

	for _, r := range risks {
		stats.Total++
		if r.Level.IsValid() {
			stats.ByLevel[r.Level]++
		}
		switch r.Status.Normalize() {
		case types.RiskStatusOpen:
			stats.Open++
		case types.RiskStatusInProgress:
			stats.InProgress++
		case types.RiskStatusClosed:
			stats.Closed++
		}
		if r.ReportToBoard {
			stats.Board++
		}
		if r.DaysOpen(now) > AgedAfterDays {
			stats.Aged++
		}
		if r.IsOverdue(now) {
			stats.Overdue++
		}
		if !r.IsAssigned() {
			stats.Unassigned++
		}
	}

	return stats
}

// DepartmentHealth is the compliance health of one department
type DepartmentHealth struct {
	Department      string
	Total           int
	Closed          int
	Overdue         int
	AverageResidual *float64 // over rated risks only; nil when none is rated
	Score           float64
}

// BuildDepartmentHealth aggregates risks per department, ordered by department
// name. Risks without a department are ignored.
//
// Score = (closureRate*40 + (100-avgResidual)*30 + (100-overdueRate)*30) / 100
// where the rates are percentages and unrated risks count as residual 0.
func BuildDepartmentHealth(risks []*Risk, now time.Time) []*DepartmentHealth {
	type acc struct {
		health     *DepartmentHealth
		ratedSum   int
		ratedCount int
	}
	index := make(map[string]*acc)

	for _, r := range risks {
		dept := strings.TrimSpace(r.Department)
		if dept == "" {
			continue
		}
		a, ok := index[dept]
		if !ok {
			a = &acc{health: &DepartmentHealth{Department: dept}}
			index[dept] = a
		}
		a.health.Total++
		if r.Status.IsClosed() {
			a.health.Closed++
		}
		if r.IsOverdue(now) {
			a.health.Overdue++
		}
		if r.ResidualRating != nil {
			a.ratedSum += *r.ResidualRating
			a.ratedCount++
		}
	}

	result := make([]*DepartmentHealth, 0, len(index))
	for _, a := range index {
		h := a.health
		total := float64(h.Total)
		if a.ratedCount > 0 {
			avg := float64(a.ratedSum) / float64(a.ratedCount)
			h.AverageResidual = &avg
		}
		closureRate := float64(h.Closed) / total * 100
		residual := float64(a.ratedSum) / total
		overdueRate := float64(h.Overdue) / total * 100
		score := (closureRate*40 + (100-residual)*30 + (100-overdueRate)*30) / 100
		h.Score = math.Round(score*100) / 100
		result = append(result, h)
	}

	slices.SortFunc(result, func(a, b *DepartmentHealth) int {
		return strings.Compare(a.Department, b.Department)
	})
	return result
}

// UpcomingReview is a risk whose planned completion falls inside the review window
type UpcomingReview struct {
	RiskID     RiskID
	Department string
	ReviewDate time.Time
	ReviewType string
}

// ReviewTypeRisk labels reviews driven by a planned completion date
const ReviewTypeRisk = "Risk Review"

// BuildUpcomingReviews lists non-closed risks with planned completion between
// now and now+window, earliest first.
func BuildUpcomingReviews(risks []*Risk, now time.Time, window time.Duration) []*UpcomingReview {
	end := now.Add(window)
	var reviews []*UpcomingReview
	for _, r := range risks {
		if r.PlannedCompletion == nil || r.Status.IsClosed() {
			continue
		}
		due := *r.PlannedCompletion
		if due.Before(now) || due.After(end) {
			continue
		}
		reviews = append(reviews, &UpcomingReview{
			RiskID:     r.ID,
			Department: r.Department,
			ReviewDate: due,
			ReviewType: ReviewTypeRisk,
		})
	}

	slices.SortStableFunc(reviews, func(a, b *UpcomingReview) int {
		return a.ReviewDate.Compare(b.ReviewDate)
	})
	return reviews
}

// MatrixEntry is one point of the live risk matrix
type MatrixEntry struct {
	ID         string
	RiskID     RiskID
	Title      string
	Categories []string
	Level      types.RiskLevel
	CreatedAt  time.Time
}

// MatrixEntryPrefix prefixes matrix display identifiers
const MatrixEntryPrefix = "RISK_"

const matrixTitleLength = 80

// BuildMatrix lists non-closed risks newest first. Each entry's categories are
// the risk categories followed by its department.
func BuildMatrix(risks []*Risk) []*MatrixEntry {
	entries := make([]*MatrixEntry, 0, len(risks))
	for _, r := range risks {
		if r.Status.IsClosed() {
			continue
		}
		categories := make([]string, 0, len(r.Categories)+1)
		for _, c := range r.Categories {
			if s := strings.TrimSpace(string(c)); s != "" {
				categories = append(categories, s)
			}
		}
		if dept := strings.TrimSpace(r.Department); dept != "" {
			categories = append(categories, dept)
		}
		entries = append(entries, &MatrixEntry{
			ID:         MatrixEntryPrefix + r.ID.String(),
			RiskID:     r.ID,
			Title:      truncate(r.Description, matrixTitleLength),
			Categories: categories,
			Level:      r.Level,
			CreatedAt:  r.CreatedAt,
		})
	}

	slices.SortStableFunc(entries, func(a, b *MatrixEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return entries
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// DashboardSummary is the compliance team's overview
type DashboardSummary struct {
	GeneratedAt      time.Time
	Stats            *ComplianceStats
	DepartmentHealth []*DepartmentHealth
	SimilarGroups    []*SimilarityGroup
	UpcomingReviews  []*UpcomingReview
	Aging            map[RiskID]AgingStatus

	// UnstaffedDepartments lists departments with unassigned risks but no
	// risk owner, i.e. risks that cannot be auto-assigned until one is designated
	UnstaffedDepartments []string
}

// BuildAging returns the aging status of every non-closed risk
func BuildAging(risks []*Risk, now time.Time) map[RiskID]AgingStatus {
	aging := make(map[RiskID]AgingStatus, len(risks))
	for _, r := range risks {
		if r.Status.IsClosed() {
			continue
		}
		aging[r.ID] = AgingOf(r, now)
	}
	return aging
}

// FindUnstaffedDepartments returns, in name order, departments that have
// unassigned non-closed risks and no user with the risk owner role
func FindUnstaffedDepartments(risks []*Risk, users []*User) []string {
	staffed := make(map[string]struct{})
	for _, u := range users {
		if u.Role.IsRiskOwner() {
			staffed[u.Department] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	var result []string
	for _, r := range risks {
		if r.IsAssigned() || r.Status.IsClosed() {
			continue
		}
		if _, ok := staffed[r.Department]; ok {
			continue
		}
		if _, ok := seen[r.Department]; ok {
			continue
		}
		seen[r.Department] = struct{}{}
		result = append(result, r.Department)
	}
	slices.Sort(result)
	return result
}
