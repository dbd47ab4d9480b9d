package predictor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/workscore/internal/domain/model"
	"github.com/okian/workscore/internal/domain/predictor"
	"github.com/okian/workscore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

type stubSource struct {
	records []model.Metrics
	err     error
}

func (s stubSource) TrainingRecords(context.Context) ([]model.Metrics, error) {
	return s.records, s.err
}

// trainingSet returns five workers with distinct experience so a depth-4
// tree can separate all of them.
func trainingSet() []model.Metrics {
	return []model.Metrics{
		{ExperienceYears: 0.5, Rating: 2.1, OnTime: 60, Completion: 55, Complaints: 25, JobsCompleted: 3, Salary: 30000, Skill: "plumbing"},
		{ExperienceYears: 1.5, Rating: 3.6, OnTime: 80, Completion: 85, Complaints: 6, JobsCompleted: 20, Salary: 25000, Skill: "cleaning"},
		{ExperienceYears: 3, Rating: 4.0, OnTime: 92, Completion: 88, Complaints: 2, JobsCompleted: 60, Salary: 21000, Skill: "delivery"},
		{ExperienceYears: 6, Rating: 4.6, OnTime: 95, Completion: 97, Complaints: 0, JobsCompleted: 150, Salary: 18000, Skill: "driver"},
		{ExperienceYears: 8, Rating: 4.9, OnTime: 99, Completion: 99, Complaints: 1, JobsCompleted: 300, Salary: 40000, Skill: "electrician"},
	}
}

func TestPredictor_Unavailable(t *testing.T) {
	Convey("Given a predictor with no model", t, func() {
		ctx := context.Background()

		Convey("When it has no artifact path", func() {
			p := predictor.New()
			_, err := p.Predict(ctx, trainingSet()[0])

			Convey("Then prediction reports an unavailable model", func() {
				So(errors.Is(err, predictor.ErrModelUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the artifact file does not exist", func() {
			p := predictor.New(predictor.WithModelPath(filepath.Join(t.TempDir(), "missing.json")))
			_, err := p.PredictWorker(ctx, model.WorkerRecord{})

			Convey("Then prediction reports an unavailable model", func() {
				So(errors.Is(err, predictor.ErrModelUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the artifact is corrupt", func() {
			path := filepath.Join(t.TempDir(), "model.json")
			So(os.WriteFile(path, []byte("{not json"), 0o600), ShouldBeNil)
			p := predictor.New(predictor.WithModelPath(path))
			_, err := p.Predict(ctx, trainingSet()[0])

			Convey("Then the artifact is rejected", func() {
				So(errors.Is(err, predictor.ErrInvalidArtifact), ShouldBeTrue)
			})
		})
	})
}

func TestPredictor_MissingArtifactIsRemembered(t *testing.T) {
	Convey("Given a predictor whose artifact does not exist yet", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "model.json")
		p := predictor.New(predictor.WithModelPath(path), predictor.WithMissRecheck(time.Hour))

		_, err := p.Predict(ctx, trainingSet()[0])
		So(errors.Is(err, predictor.ErrModelUnavailable), ShouldBeTrue)

		Convey("When another process writes the artifact within the recheck interval", func() {
			_, err := predictor.New(predictor.WithModelPath(path)).Train(ctx, trainingSet())
			So(err, ShouldBeNil)

			Convey("Then the miss is served from memory without reading the file", func() {
				_, err := p.Model(ctx)
				So(errors.Is(err, predictor.ErrModelUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the predictor trains itself", func() {
			mdl, err := p.Train(ctx, trainingSet())
			So(err, ShouldBeNil)

			Convey("Then the published model is served immediately", func() {
				got, err := p.Model(ctx)
				So(err, ShouldBeNil)
				So(got.Version, ShouldEqual, mdl.Version)
			})
		})
	})

	Convey("Given a short recheck interval", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "model.json")
		p := predictor.New(predictor.WithModelPath(path), predictor.WithMissRecheck(time.Millisecond))

		_, err := p.Model(ctx)
		So(errors.Is(err, predictor.ErrModelUnavailable), ShouldBeTrue)

		mdl, err := predictor.New(predictor.WithModelPath(path)).Train(ctx, trainingSet())
		So(err, ShouldBeNil)
		time.Sleep(5 * time.Millisecond)

		Convey("Then the artifact is picked up once the interval passes", func() {
			got, err := p.Model(ctx)
			So(err, ShouldBeNil)
			So(got.Version, ShouldEqual, mdl.Version)
		})
	})
}

func TestPredictor_Train(t *testing.T) {
	Convey("Given a predictor", t, func() {
		ctx := context.Background()
		p := predictor.New()

		Convey("When trained on fewer than five records", func() {
			_, err := p.Train(ctx, trainingSet()[:4])

			Convey("Then training fails with insufficient data", func() {
				So(errors.Is(err, predictor.ErrInsufficientData), ShouldBeTrue)
			})

			Convey("And no model is published", func() {
				_, err := p.Model(ctx)
				So(errors.Is(err, predictor.ErrModelUnavailable), ShouldBeTrue)
			})
		})

		Convey("When trained on enough records", func() {
			mdl, err := p.Train(ctx, trainingSet())
			So(err, ShouldBeNil)

			Convey("Then the model carries provenance", func() {
				So(mdl.Version, ShouldNotBeEmpty)
				So(mdl.Samples, ShouldEqual, 5)
				So(mdl.Features, ShouldResemble, predictor.FeatureNames)
				So(mdl.Tree.Depth(), ShouldBeLessThanOrEqualTo, predictor.DefaultMaxDepth)
			})

			Convey("And it reproduces the employability labels it learned", func() {
				for _, m := range trainingSet() {
					want, _ := scoring.Employability(m)
					got, err := p.PredictScore(ctx, m)
					So(err, ShouldBeNil)
					So(got, ShouldEqual, want)
				}
			})

			Convey("And predictions stay in range with job-based confidence", func() {
				for _, m := range trainingSet() {
					pred, err := p.Predict(ctx, m)
					So(err, ShouldBeNil)
					So(pred.Quality, ShouldBeBetweenOrEqual, 0.0, 1.0)
					So(pred.Confidence, ShouldEqual, predictor.Confidence(m.JobsCompleted))
				}
			})
		})
	})
}

func TestPredictor_TrainFromStore(t *testing.T) {
	Convey("Given a training source", t, func() {
		ctx := context.Background()
		p := predictor.New(predictor.WithMinRecords(3))

		Convey("When the source succeeds", func() {
			mdl, err := p.TrainFromStore(ctx, stubSource{records: trainingSet()[:3]})

			Convey("Then the configured minimum applies", func() {
				So(err, ShouldBeNil)
				So(mdl.Samples, ShouldEqual, 3)
			})
		})

		Convey("When the source fails", func() {
			boom := errors.New("db down")
			_, err := p.TrainFromStore(ctx, stubSource{err: boom})

			Convey("Then the error is wrapped", func() {
				So(err, ShouldWrap, boom)
			})
		})

		Convey("When the source is nil", func() {
			_, err := p.TrainFromStore(ctx, nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPredictor_Artifact(t *testing.T) {
	Convey("Given a predictor persisting to disk", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "models", "model.json")
		trainer := predictor.New(predictor.WithModelPath(path))
		mdl, err := trainer.Train(ctx, trainingSet())
		So(err, ShouldBeNil)

		Convey("Then no temporary files are left behind", func() {
			entries, err := os.ReadDir(filepath.Dir(path))
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].Name(), ShouldEqual, "model.json")
		})

		Convey("When another predictor reads the same path", func() {
			reader := predictor.New(predictor.WithModelPath(path))
			loaded, err := reader.Model(ctx)

			Convey("Then it lazily loads the same model", func() {
				So(err, ShouldBeNil)
				So(loaded.Version, ShouldEqual, mdl.Version)
				for _, m := range trainingSet() {
					a, _ := trainer.Predict(ctx, m)
					b, _ := reader.Predict(ctx, m)
					So(b, ShouldResemble, a)
				}
			})
		})
	})
}

func TestPredictor_ConcurrentRetrain(t *testing.T) {
	Convey("Given a trained predictor", t, func() {
		ctx := context.Background()
		p := predictor.New()
		_, err := p.Train(ctx, trainingSet())
		So(err, ShouldBeNil)

		Convey("When predictions run while the model is retrained", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 200)
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 5; j++ {
						if _, err := p.Train(ctx, trainingSet()); err != nil {
							errs <- err
						}
					}
				}()
			}
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for _, m := range trainingSet() {
						if _, err := p.Predict(ctx, m); err != nil {
							errs <- err
						}
					}
				}()
			}
			wg.Wait()
			close(errs)

			Convey("Then every call succeeds", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
			})
		})
	})
}

func TestConfidence(t *testing.T) {
	Convey("Confidence grows with jobs and saturates at fifty", t, func() {
		So(predictor.Confidence(-3), ShouldEqual, 0.0)
		So(predictor.Confidence(0), ShouldEqual, 0.0)
		So(predictor.Confidence(25), ShouldEqual, 0.5)
		So(predictor.Confidence(50), ShouldEqual, 1.0)
		So(predictor.Confidence(5000), ShouldEqual, 1.0)
	})
}
