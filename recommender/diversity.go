package recommender

import (
	"gonum.org/v1/gonum/stat"
)

// DiversityScore 用相似度的变异系数（总体标准差 / 均值，上限 1）衡量一组推荐的离散程度，
// 越大越分散。少于 2 条时返回 1；均值不为正时返回 0。
func DiversityScore(recs []Recommendation) float64 {
	if len(recs) < 2 {
		return 1
	}
	scores := make([]float64, len(recs))
	for i, rec := range recs {
		scores[i] = rec.SimilarityScore
	}
	mean, std := stat.PopMeanStdDev(scores, nil)
	if mean <= 0 {
		return 0
	}
	return min(std/mean, 1)
}
