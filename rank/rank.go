// Package rank scores boarding options by wait and crowding. All
// functions are pure. Lower scores are better throughout.
package rank

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"campustransit.dev/transit/model"
)

// Wait at or beyond this scores 100.
const MaxWait = 30 * time.Minute

var occupancyScores = map[model.OccupancyStatus]float64{
	model.OccupancyEmpty:                   0,
	model.OccupancyManySeatsAvailable:      20,
	model.OccupancyFewSeatsAvailable:       40,
	model.OccupancyStandingRoomOnly:        60,
	model.OccupancyCrushedStandingRoomOnly: 80,
	model.OccupancyFull:                    95,
	model.OccupancyNotAcceptingPassengers:  100,
}

const unknownOccupancyScore = 50

func OccupancyScore(status model.OccupancyStatus) float64 {
	if score, ok := occupancyScores[status]; ok {
		return score
	}
	return unknownOccupancyScore
}

// Linear in wait over [0, MaxWait], clamped to [0, 100].
func TimeScore(wait time.Duration) float64 {
	score := wait.Seconds() / MaxWait.Seconds() * 100
	return math.Max(0, math.Min(100, score))
}

// Selects how time and occupancy scores are combined. A non-nil
// TimeWeight overrides the mode's preset split and is clamped to
// [0, 1].
type Policy struct {
	Mode       model.PriorityMode
	TimeWeight *float64
}

func (p Policy) timeWeight() float64 {
	if p.TimeWeight != nil {
		return math.Max(0, math.Min(1, *p.TimeWeight))
	}
	if p.Mode == model.PriorityOccupancy {
		return 0.3
	}
	return 0.7
}

func CombinedScore(timeScore float64, occupancyScore float64, policy Policy) float64 {
	w := policy.timeWeight()
	return timeScore*w + occupancyScore*(1-w)
}

// Scores options relative to now and returns them in a new slice,
// ordered by ascending combined score. Ties keep input order.
func Rank(options []model.RankedOption, policy Policy, now time.Time) []model.RankedOption {
	ranked := make([]model.RankedOption, len(options))
	copy(ranked, options)

	for i := range ranked {
		o := &ranked[i]
		o.OccupancyScore = OccupancyScore(o.Occupancy)
		o.TimeScore = TimeScore(o.EstimatedArrival.Sub(now))
		o.CombinedScore = CombinedScore(o.TimeScore, o.OccupancyScore, policy)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CombinedScore < ranked[j].CombinedScore
	})

	return ranked
}

// Keeps options arriving within [now, now+maxWait].
func FilterByMaxWait(options []model.RankedOption, maxWait time.Duration, now time.Time) []model.RankedOption {
	filtered := []model.RankedOption{}
	for _, o := range options {
		wait := o.EstimatedArrival.Sub(now)
		if wait >= 0 && wait <= maxWait {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// Keeps options whose occupancy score doesn't exceed maxScore.
func FilterByMaxOccupancy(options []model.RankedOption, maxScore float64) []model.RankedOption {
	filtered := []model.RankedOption{}
	for _, o := range options {
		if OccupancyScore(o.Occupancy) <= maxScore {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

const maxAlternatives = 3

// Picks the first of an already ranked list and explains the pick.
func Recommend(ranked []model.RankedOption, mode model.PriorityMode, now time.Time) model.Recommendation {
	if len(ranked) == 0 {
		return model.Recommendation{
			Alternatives: []model.RankedOption{},
			Reason:       "No routes available at this time.",
		}
	}

	best := ranked[0]
	end := 1 + maxAlternatives
	if end > len(ranked) {
		end = len(ranked)
	}
	alternatives := append([]model.RankedOption{}, ranked[1:end]...)

	waitMinutes := int(math.Floor(best.EstimatedArrival.Sub(now).Minutes() + 0.5))

	var reason string
	if mode == model.PriorityOccupancy {
		level := "moderate occupancy"
		if best.Occupancy.Known() {
			level = strings.ToLower(strings.ReplaceAll(best.Occupancy.String(), "_", " "))
		}
		reason = fmt.Sprintf("Best available capacity (%s), arrives in %d minutes", level, waitMinutes)
	} else {
		reason = fmt.Sprintf("Arrives in %d minutes", waitMinutes)
		if OccupancyScore(best.Occupancy) < 40 {
			reason += " with plenty of space available"
		}
	}

	return model.Recommendation{
		Best:         &best,
		Alternatives: alternatives,
		Reason:       reason,
	}
}
