package conflict

import (
	"fmt"
	"time"
)

type estimate struct {
	confidence float64
	duration   time.Duration
}

var estimates = map[Strategy]estimate{
	UseHigherProgress:   {confidence: 0.9, duration: time.Second},
	UseLatestTimestamp:  {confidence: 0.95, duration: time.Second},
	ResolveSequentially: {confidence: 0.75, duration: 5 * time.Second},
	ManualReview:        {confidence: 0.5, duration: 5 * time.Minute},
}

// recommend emits one recommendation per conflict, plus a bulk one when
// more items conflict than BatchResolutionThreshold.
func (d *Detector) recommend(items []ItemConflicts) []Recommendation {
	recs := make([]Recommendation, 0, len(items))
	var total time.Duration

	for _, item := range items {
		for _, c := range item.Conflicts {
			est := estimates[c.Strategy]
			if c.Type == CompositeConflict && !c.AutoResolvable {
				est = estimate{confidence: 0.3, duration: 15 * time.Minute}
			}
			total += est.duration
			recs = append(recs, Recommendation{
				RecordID:       item.RecordID,
				ConflictType:   c.Type,
				Strategy:       c.Strategy,
				AutoResolvable: c.AutoResolvable,
				Confidence:     est.confidence,
				EstimatedTime:  est.duration,
				Description:    c.Message,
			})
		}
	}

	if len(items) > d.cfg.BatchResolutionThreshold {
		recs = append(recs, Recommendation{
			Strategy:       BatchResolution,
			AutoResolvable: d.IsAutoResolvable(&Report{Items: items}),
			Confidence:     0.7,
			EstimatedTime:  total / 2,
			Description:    fmt.Sprintf("resolve %d conflicting records in one batch", len(items)),
		})
	}
	return recs
}
