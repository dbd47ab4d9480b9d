package scoring

// ruleScale lifts the [0,1] weighted sum onto the 0-10 score scale.
const ruleScale = 10.0

// RuleScore returns the weighted sum of f scaled to [0,10].
func RuleScore(f Features, w Weights) float64 {
	sum := f.OnTime*w.OnTime +
		f.Completion*w.Completion +
		f.Rating*w.Rating +
		f.Complaints*w.Complaints +
		f.Experience*w.Experience +
		f.Salary*w.Salary +
		f.JobVolume*w.JobVolume
	return sum * ruleScale
}
