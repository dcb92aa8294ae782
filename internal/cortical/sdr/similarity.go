package sdr

import (
	"math"
)

// SimilarityCalculator provides the similarity/distance metrics exposed
// through the SDR comparison endpoint, on top of the core Overlap-based ops
// in operations.go.
type SimilarityCalculator struct{}

// NewSimilarityCalculator creates a new similarity calculator.
func NewSimilarityCalculator() *SimilarityCalculator {
	return &SimilarityCalculator{}
}

// SimilarityMetrics contains all computed similarity measures for a pair of SDRs.
type SimilarityMetrics struct {
	IsValid           bool    `json:"is_valid"`
	Error             string  `json:"error,omitempty"`
	OverlapSimilarity float64 `json:"overlap_similarity"`
	JaccardSimilarity float64 `json:"jaccard_similarity"`
	CosineSimilarity  float64 `json:"cosine_similarity"`
	DiceSimilarity    float64 `json:"dice_similarity"`
	HammingDistance   int     `json:"hamming_distance"`
	EuclideanDistance float64 `json:"euclidean_distance"`
	OverlapCount      int     `json:"overlap_count"`
}

// CalculateAllSimilarities computes every similarity metric the comparison
// endpoint reports.
func (sc *SimilarityCalculator) CalculateAllSimilarities(sdr1, sdr2 *SDR) *SimilarityMetrics {
	if sdr1 == nil || sdr2 == nil {
		return &SimilarityMetrics{IsValid: false, Error: "one or both SDRs are nil"}
	}
	if sdr1.Width != sdr2.Width {
		return &SimilarityMetrics{IsValid: false, Error: "SDRs must have same width"}
	}

	return &SimilarityMetrics{
		IsValid:           true,
		OverlapSimilarity: sc.OverlapSimilarity(sdr1, sdr2),
		JaccardSimilarity: sc.JaccardSimilarity(sdr1, sdr2),
		CosineSimilarity:  sc.CosineSimilarity(sdr1, sdr2),
		DiceSimilarity:    sc.DiceSimilarity(sdr1, sdr2),
		HammingDistance:   sc.HammingDistance(sdr1, sdr2),
		EuclideanDistance: sc.EuclideanDistance(sdr1, sdr2),
		OverlapCount:      sdr1.Overlap(sdr2),
	}
}

// OverlapSimilarity is the standard HTM similarity metric (0.0-1.0).
func (sc *SimilarityCalculator) OverlapSimilarity(sdr1, sdr2 *SDR) float64 {
	if sdr1 == nil || sdr2 == nil {
		return 0.0
	}
	return sdr1.OverlapRatio(sdr2)
}

// JaccardSimilarity calculates the Jaccard index (intersection/union).
func (sc *SimilarityCalculator) JaccardSimilarity(sdr1, sdr2 *SDR) float64 {
	if sdr1 == nil || sdr2 == nil {
		return 0.0
	}
	return sdr1.JaccardSimilarity(sdr2)
}

// CosineSimilarity calculates cosine similarity between SDRs.
func (sc *SimilarityCalculator) CosineSimilarity(sdr1, sdr2 *SDR) float64 {
	if sdr1 == nil || sdr2 == nil {
		return 0.0
	}
	return sdr1.CosineSimilarity(sdr2)
}

// DiceSimilarity calculates the Dice (Sorensen-Dice) coefficient.
func (sc *SimilarityCalculator) DiceSimilarity(sdr1, sdr2 *SDR) float64 {
	if sdr1 == nil || sdr2 == nil || sdr1.Width != sdr2.Width {
		return 0.0
	}
	if len(sdr1.ActiveBits) == 0 && len(sdr2.ActiveBits) == 0 {
		return 1.0
	}

	intersection := float64(sdr1.Overlap(sdr2))
	totalActiveBits := float64(len(sdr1.ActiveBits) + len(sdr2.ActiveBits))
	if totalActiveBits == 0 {
		return 0.0
	}

	return (2.0 * intersection) / totalActiveBits
}

// HammingDistance calculates the Hamming distance between two SDRs.
func (sc *SimilarityCalculator) HammingDistance(sdr1, sdr2 *SDR) int {
	if sdr1 == nil || sdr2 == nil || sdr1.Width != sdr2.Width {
		return -1
	}
	overlap := sdr1.Overlap(sdr2)
	return len(sdr1.ActiveBits) + len(sdr2.ActiveBits) - 2*overlap
}

// EuclideanDistance calculates the Euclidean distance for binary vectors,
// which reduces to sqrt(Hamming distance).
func (sc *SimilarityCalculator) EuclideanDistance(sdr1, sdr2 *SDR) float64 {
	if sdr1 == nil || sdr2 == nil || sdr1.Width != sdr2.Width {
		return -1.0
	}
	hammingDist := sc.HammingDistance(sdr1, sdr2)
	if hammingDist < 0 {
		return -1.0
	}
	return math.Sqrt(float64(hammingDist))
}
