package seeder

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/workscore/internal/domain/model"
)

const randomFloatDivisor = 1_000_000

// Performance tiers. Average workers are the most common.
const (
	tierAverage = iota
	tierHigh
	tierLow
	tierElite
	tierNew
	tierAverage2
	tierCount
)

var skills = []string{"driver", "welding", "cleaning", "plumbing", "electrician", "carpentry"}

// randomFloat returns a value in [0,1) using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomIntn(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// between returns a value in [lo, hi) rounded to two decimals.
func between(lo, hi float64) float64 {
	v := lo + randomFloat()*(hi-lo)
	return float64(int64(v*100)) / 100
}

// generateProfiles creates n profiles with unique emails.
func generateProfiles(n int) []Profile {
	out := make([]Profile, n)
	for i := range out {
		id := uuid.NewString()
		out[i] = Profile{
			Name:         "seed-" + id[:8],
			Email:        id + "@seed.workscore.local",
			WorkerRecord: generateRecord(),
		}
	}
	return out
}

// generateEvents creates perWorker metrics events for every worker id.
func generateEvents(workerIDs []string, perWorker int) []Event {
	ts := time.Now().UTC().Format(time.RFC3339)
	out := make([]Event, 0, len(workerIDs)*perWorker)
	for _, id := range workerIDs {
		for j := range perWorker {
			out = append(out, Event{
				EventID:      "seed_" + id + "_" + strconv.Itoa(j) + "_" + uuid.NewString()[:8],
				WorkerID:     id,
				TS:           ts,
				WorkerRecord: generateRecord(),
			})
		}
	}
	return out
}

// generateRecord draws a record from a random performance tier.
func generateRecord() model.WorkerRecord {
	rec := model.WorkerRecord{
		Skill:  skills[randomIntn(int64(len(skills)))],
		Salary: model.Float(between(9_000, 45_000)),
	}
	switch randomIntn(tierCount) {
	case tierHigh:
		fill(&rec, 4.0, 4.8, 85, 97, 5, 12, 80, 250, 0, 4)
	case tierLow:
		fill(&rec, 1.0, 3.0, 40, 70, 0, 3, 5, 60, 5, 25)
	case tierElite:
		fill(&rec, 4.7, 5.0, 95, 100, 8, 20, 200, 500, 0, 1)
	case tierNew:
		fill(&rec, 3.5, 5.0, 60, 100, 0, 1, 0, 3, 0, 1)
		rec.ActiveDays = model.Int(randomIntn(2))
		return rec
	default:
		fill(&rec, 3.0, 4.3, 65, 90, 1, 8, 20, 120, 0, 8)
	}
	rec.ActiveDays = model.Int(30 + randomIntn(300))
	return rec
}

func fill(rec *model.WorkerRecord, rLo, rHi, pctLo, pctHi, expLo, expHi float64, jobsLo, jobsHi, compLo, compHi int64) {
	rec.Rating = model.Float(between(rLo, rHi))
	rec.OnTime = model.Float(between(pctLo, pctHi))
	rec.Completion = model.Float(between(pctLo, pctHi))
	rec.ExperienceYears = model.Float(between(expLo, expHi))
	rec.JobsCompleted = model.Int(jobsLo + randomIntn(jobsHi-jobsLo+1))
	rec.Complaints = model.Int(compLo + randomIntn(compHi-compLo+1))
}
