package scoring

// BayesianRating shrinks rating toward globalMean by the strength of the
// prior m (in pseudo-jobs) and returns the result on the 0-10 scale.
// With zero jobs the result is exactly globalMean rescaled; as jobs grow it
// converges to the raw rating.
func BayesianRating(rating float64, jobs int64, globalMean, m float64) float64 {
	n := float64(jobs)
	adjusted := (globalMean*m + rating*n) / (m + n)
	return adjusted / MaxRating * ruleScale
}
