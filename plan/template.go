package plan

import (
	"log"
	"math"
)

const (
	// DefaultMatchThreshold is the minimum template score accepted
	DefaultMatchThreshold = 0.6

	// MethodTemplateMatch tags plans produced by the template matcher
	MethodTemplateMatch = "template_match"
)

// Matcher recovers a verified plan from the template library when
// recognition is weak but the dwelling's total area is known.
type Matcher struct {
	Library   *Library
	Threshold float64
}

// NewMatcher returns a matcher over lib. A threshold <= 0 uses
// DefaultMatchThreshold.
func NewMatcher(lib *Library, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	return &Matcher{Library: lib, Threshold: threshold}
}

// Match scores every template whose area range holds knownArea against
// the recognized rooms and returns the best one at or above the threshold.
// The returned plan is always a fresh copy. knownArea <= 0 or an empty
// room list never matches. A rejected candidate still reports the best
// score seen, with no template id or plan.
func (m *Matcher) Match(rooms []Room, knownArea float64) TemplateMatchResult {
	noMatch := TemplateMatchResult{Method: MethodTemplateMatch}
	if m == nil || m.Library == nil || knownArea <= 0 || len(rooms) == 0 {
		return noMatch
	}
	threshold := m.Threshold
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}

	detected := make(map[RoomType]int)
	for _, r := range rooms {
		detected[r.Type]++
	}

	var best *TemplateInfo
	bestScore := 0.0
	for i, ti := range m.Library.Templates() {
		if !ti.Accepts(knownArea) {
			continue
		}
		score := 0.6*typeSimilarity(detected, ti.ExpectedRoomTypes) + 0.4*coreRoomScore(detected)
		if score > bestScore {
			best, bestScore = &m.Library.Templates()[i], score
		}
	}
	noMatch.Score = bestScore
	if best == nil || bestScore < threshold {
		return noMatch
	}

	p, err := m.Library.Load(best.ID)
	if err != nil {
		log.Printf("Warning: template %s matched but could not be loaded: %v", best.ID, err)
		return noMatch
	}

	id := best.ID
	return TemplateMatchResult{
		Matched:    true,
		TemplateID: &id,
		Score:      bestScore,
		FloorPlan:  p.Clone(),
		Method:     MethodTemplateMatch,
	}
}

// typeSimilarity compares room-type counts over the union of types,
// ignoring corridors. A type present on both sides scores 1, plus 0.3 when
// the counts differ by at most one; the sum is normalized and capped at 1.
func typeSimilarity(detected, expected map[RoomType]int) float64 {
	union := make(map[RoomType]struct{})
	for t := range detected {
		union[t] = struct{}{}
	}
	for t := range expected {
		union[t] = struct{}{}
	}
	delete(union, RoomCorridor)
	if len(union) == 0 {
		return 0
	}

	matches := 0.0
	for t := range union {
		d, e := detected[t], expected[t]
		if d > 0 && e > 0 {
			matches++
			if math.Abs(float64(d-e)) <= 1 {
				matches += 0.3
			}
		}
	}
	return math.Min(1, matches/float64(len(union)))
}

// coreRoomScore credits the living room, kitchen and at least one bedroom
func coreRoomScore(detected map[RoomType]int) float64 {
	score := 0.0
	if detected[RoomLiving] > 0 {
		score += 0.33
	}
	if detected[RoomKitchen] > 0 {
		score += 0.33
	}
	if detected[RoomMasterBed] > 0 || detected[RoomBed] > 0 {
		score += 0.34
	}
	return score
}
