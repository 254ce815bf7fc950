package plan

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DefaultSimilarityThreshold is the FindSimilar cut-off
const DefaultSimilarityThreshold = 0.85

// Fingerprint returns a coordinate-free structural signature of p. Plans
// with identical fingerprints are treated as the same document.
//
//	A<floor area>|R<rooms>|T[TYPE:n,...]|S[area,...]|W<walls>|D<doors>|WN<windows>[|F[type:n,...]]
func Fingerprint(p *FloorPlan) string {
	if p == nil {
		p = &FloorPlan{}
	}

	typeCounts := make(map[string]int)
	areas := make([]int, 0, len(p.Rooms))
	for _, r := range p.Rooms {
		typeCounts[string(r.Type)]++
		areas = append(areas, int(math.Floor(r.EffectiveArea())))
	}
	sort.Sort(sort.Reverse(sort.IntSlice(areas)))

	sizes := make([]string, len(areas))
	for i, a := range areas {
		sizes[i] = strconv.Itoa(a)
	}

	parts := []string{
		fmt.Sprintf("A%d", int(math.Floor(p.TotalArea))),
		fmt.Sprintf("R%d", len(p.Rooms)),
		"T[" + countPairs(typeCounts) + "]",
		"S[" + strings.Join(sizes, ",") + "]",
		fmt.Sprintf("W%d", len(p.Walls)),
		fmt.Sprintf("D%d", len(p.Doors)),
		fmt.Sprintf("WN%d", len(p.Windows)),
	}

	if len(p.Fixtures) > 0 {
		fixtureCounts := make(map[string]int)
		for _, f := range p.Fixtures {
			fixtureCounts[string(f.Type)]++
		}
		parts = append(parts, "F["+countPairs(fixtureCounts)+"]")
	}

	return strings.Join(parts, "|")
}

// countPairs renders key:count pairs sorted by key
func countPairs(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s:%d", k, counts[k])
	}
	return strings.Join(pairs, ",")
}

// Similarity scores two plans in [0,1] on area (25%), room count (20%),
// room-type set overlap (25%) and the sorted room-area profile (30%).
func Similarity(a, b *FloorPlan) float64 {
	if a == nil {
		a = &FloorPlan{}
	}
	if b == nil {
		b = &FloorPlan{}
	}

	score := 0.0

	if maxArea := math.Max(a.TotalArea, b.TotalArea); maxArea > 0 {
		score += 0.25 * (1 - math.Abs(a.TotalArea-b.TotalArea)/maxArea)
	}

	na, nb := float64(len(a.Rooms)), float64(len(b.Rooms))
	if maxRooms := math.Max(na, nb); maxRooms > 0 {
		score += 0.2 * (1 - math.Abs(na-nb)/maxRooms)
	}

	typesA, typesB := a.RoomTypeCounts(), b.RoomTypeCounts()
	union := len(typesA)
	shared := 0
	for t := range typesB {
		if _, ok := typesA[t]; ok {
			shared++
		} else {
			union++
		}
	}
	if union > 0 {
		score += 0.25 * float64(shared) / float64(union)
	}

	score += 0.3 * areaProfileSimilarity(sortedAreas(a), sortedAreas(b))

	return math.Max(0, math.Min(1, score))
}

// sortedAreas returns room areas largest first
func sortedAreas(p *FloorPlan) []float64 {
	areas := make([]float64, len(p.Rooms))
	for i, r := range p.Rooms {
		areas[i] = r.EffectiveArea()
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(areas)))
	return areas
}

// areaProfileSimilarity compares two descending area lists element-wise,
// averaging over the longer list so unmatched rooms count as misses.
func areaProfileSimilarity(a, b []float64) float64 {
	shorter, longer := len(a), len(b)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if shorter == 0 {
		return 0
	}

	total := 0.0
	for i := 0; i < shorter; i++ {
		maxArea := math.Max(a[i], b[i])
		if maxArea == 0 {
			total++
			continue
		}
		total += 1 - math.Abs(a[i]-b[i])/maxArea
	}
	return total / float64(longer)
}

// LibraryEntry is a stored plan that new documents are compared against
type LibraryEntry struct {
	ID        string     `json:"id"`
	FloorPlan *FloorPlan `json:"floorPlan"`
}

// SimilarMatch is one FindSimilar hit
type SimilarMatch struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

// FindSimilar returns candidates at or above threshold, most similar
// first. A threshold <= 0 uses DefaultSimilarityThreshold.
func FindSimilar(target *FloorPlan, candidates []LibraryEntry, threshold float64) []SimilarMatch {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	matches := []SimilarMatch{}
	for _, c := range candidates {
		s := Similarity(target, c.FloorPlan)
		if s >= threshold {
			matches = append(matches, SimilarMatch{ID: c.ID, Similarity: s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

// IsLikelyDuplicate reports whether fp exactly matches a known fingerprint
func IsLikelyDuplicate(fp string, existing []string) bool {
	for _, e := range existing {
		if e == fp {
			return true
		}
	}
	return false
}
