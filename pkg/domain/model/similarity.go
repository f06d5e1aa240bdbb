package model

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

// similarityNamespace scopes the name-based UUIDs of similarity groups
var similarityNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("riskdesk/similarity-group"))

// SimilarityGroup is a transient set of risks sharing an identical category set
type SimilarityGroup struct {
	GroupID     string
	Key         string
	Categories  []types.Category
	Risks       []*Risk
	ReportCount int

	// DisplayID is a short number for dashboards: five digits for groups
	// reported more than once, four digits for single reports. It is derived
	// from Key so identical data always yields identical IDs.
	DisplayID int
}

// IsRecurring reports whether more than one risk shares this category set
func (g *SimilarityGroup) IsRecurring() bool {
	return g.ReportCount > 1
}

// GroupSimilarRisks groups risks whose normalized category sets are textually
// identical. Risks without categories are skipped. Groups keep the order in
// which their first member appears in risks, and members keep input order.
func GroupSimilarRisks(risks []*Risk) []*SimilarityGroup {
	var groups []*SimilarityGroup
	index := make(map[string]*SimilarityGroup)

	for _, risk := range risks {
		if risk == nil {
			continue
		}
		categories := NormalizeCategories(risk.Categories)
		if len(categories) == 0 {
			continue
		}

		key := CategoryKey(categories)
		group, ok := index[key]
		if !ok {
			group = &SimilarityGroup{
				GroupID:    uuid.NewSHA1(similarityNamespace, []byte(key)).String(),
				Key:        key,
				Categories: categories,
			}
			index[key] = group
			groups = append(groups, group)
		}
		group.Risks = append(group.Risks, risk)
		group.ReportCount++
	}

	for _, group := range groups {
		group.DisplayID = similarityDisplayID(group.Key, group.ReportCount)
	}

	return groups
}

func similarityDisplayID(key string, reportCount int) int {
	id := uuid.NewSHA1(similarityNamespace, []byte(key))
	n := binary.BigEndian.Uint64(id[:8])
	if reportCount > 1 {
		return 10000 + int(n%90000)
	}
	return 1000 + int(n%9000)
}
