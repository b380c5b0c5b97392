package claims

import (
	"context"
	"sort"
	"time"

	"github.com/erazemk/najdeno/internal/apperr"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// SeriesMonths is the length of the trailing monthly series.
const SeriesMonths = 6

// Range bounds claims by creation time. Zero bounds are open; To is exclusive.
type Range struct {
	From time.Time
	To   time.Time
}

// StatusCounts counts claims by review status.
type StatusCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

func (c *StatusCounts) add(s model.ClaimStatus) {
	c.Total++
	switch s {
	case model.ClaimStatusPending:
		c.Pending++
	case model.ClaimStatusApproved:
		c.Approved++
	case model.ClaimStatusRejected:
		c.Rejected++
	}
}

// Period is one month of the series.
type Period struct {
	Month string    `json:"month"`
	Start time.Time `json:"start"`
	StatusCounts
}

// CategoryCount counts claims against items of one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ReviewerLoad counts decisions made by one reviewer.
type ReviewerLoad struct {
	ReviewerID int64  `json:"reviewer_id"`
	Username   string `json:"username"`
	Approved   int    `json:"approved"`
	Rejected   int    `json:"rejected"`
	Total      int    `json:"total"`
}

// Analytics summarizes claims.
type Analytics struct {
	Totals              StatusCounts    `json:"totals"`
	Series              []Period        `json:"series"`
	Categories          []CategoryCount `json:"categories"`
	Reviewers           []ReviewerLoad  `json:"reviewers"`
	MeanResolutionHours float64         `json:"mean_resolution_hours"`
}

// Analytics aggregates the claims created in r, optionally narrowed to one
// status. The series covers the six months up to r.To, or up to now.
func (s *Service) Analytics(ctx context.Context, r Range, status model.ClaimStatus) (*Analytics, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("unknown claim status %q", status)
	}
	if !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To) {
		return nil, apperr.Validation("from must be before to")
	}

	list, err := store.ListClaims(ctx, s.DB, model.ClaimFilter{
		Status:      status,
		CreatedFrom: r.From,
		CreatedTo:   r.To,
	})
	if err != nil {
		return nil, apperr.Storage(err, "failed to load claims")
	}

	refs := make([]model.ItemRef, len(list))
	for i := range list {
		refs[i] = list[i].ItemRef()
	}
	categories, err := store.CategoriesFor(ctx, s.DB, refs)
	if err != nil {
		return nil, apperr.Storage(err, "failed to load item categories")
	}

	end := r.To
	if end.IsZero() {
		end = s.now()
	} else {
		// To is exclusive, so the last bucket is the month holding the instant before it.
		end = end.Add(-time.Nanosecond)
	}
	return Summarize(list, categories, end), nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Summarize aggregates list. categories maps item references to their
// category; end selects the last month of the series.
func Summarize(list []model.ClaimRequest, categories map[model.ItemRef]string, end time.Time) *Analytics {
	a := &Analytics{
		Series:     make([]Period, SeriesMonths),
		Categories: []CategoryCount{},
		Reviewers:  []ReviewerLoad{},
	}

	last := monthStart(end)
	for i := range a.Series {
		start := last.AddDate(0, i-(SeriesMonths-1), 0)
		a.Series[i] = Period{Month: start.Format("2006-01"), Start: start}
	}
	first := a.Series[0].Start

	byCategory := make(map[string]int)
	byReviewer := make(map[int64]*ReviewerLoad)
	var resolved int
	var latency time.Duration

	for i := range list {
		c := &list[i]
		a.Totals.add(c.Status)

		if m := monthStart(c.CreatedAt); !m.Before(first) && !m.After(last) {
			idx := (m.Year()-first.Year())*12 + int(m.Month()) - int(first.Month())
			a.Series[idx].add(c.Status)
		}

		cat, ok := categories[c.ItemRef()]
		if !ok {
			cat = model.DefaultCategory
		}
		byCategory[cat]++

		if c.Status == model.ClaimStatusPending {
			continue
		}
		if c.ReviewedAt != nil {
			resolved++
			latency += c.ReviewedAt.Sub(c.CreatedAt)
		}
		if c.ReviewerID != nil {
			load, ok := byReviewer[*c.ReviewerID]
			if !ok {
				load = &ReviewerLoad{ReviewerID: *c.ReviewerID, Username: c.ReviewerName}
				byReviewer[*c.ReviewerID] = load
			}
			load.Total++
			if c.Status == model.ClaimStatusApproved {
				load.Approved++
			} else {
				load.Rejected++
			}
		}
	}

	for cat, n := range byCategory {
		a.Categories = append(a.Categories, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(a.Categories, func(i, j int) bool {
		if a.Categories[i].Count != a.Categories[j].Count {
			return a.Categories[i].Count > a.Categories[j].Count
		}
		return a.Categories[i].Category < a.Categories[j].Category
	})

	for _, load := range byReviewer {
		a.Reviewers = append(a.Reviewers, *load)
	}
	sort.Slice(a.Reviewers, func(i, j int) bool {
		if a.Reviewers[i].Total != a.Reviewers[j].Total {
			return a.Reviewers[i].Total > a.Reviewers[j].Total
		}
		return a.Reviewers[i].ReviewerID < a.Reviewers[j].ReviewerID
	})

	if resolved > 0 {
		a.MeanResolutionHours = latency.Hours() / float64(resolved)
	}
	return a
}
