package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then metrics use the workscore namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.workerErrors.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "workscore_engine_"), ShouldBeTrue)
				}
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.scoringErrors.Inc()

			Convey("Then names and const labels follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() != "test_unit_scoring_errors_total" {
						continue
					}
					found = true
					labels := f.GetMetric()[0].GetLabel()
					So(labels, ShouldHaveLength, 1)
					So(labels[0].GetName(), ShouldEqual, "env")
					So(labels[0].GetValue(), ShouldEqual, "test")
				}
				So(found, ShouldBeTrue)
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})
		})

		Convey("When empty options are supplied", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "workscore")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestScoringMetrics(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording predictions", func() {
			okBefore := testutil.ToFloat64(globalManager.predictions.WithLabelValues("ok"))
			downBefore := testutil.ToFloat64(globalManager.predictions.WithLabelValues("unavailable"))
			RecordPrediction("ok")
			RecordPrediction("ok")
			RecordPrediction("unavailable")

			Convey("Then each outcome is counted separately", func() {
				So(testutil.ToFloat64(globalManager.predictions.WithLabelValues("ok")), ShouldEqual, okBefore+2)
				So(testutil.ToFloat64(globalManager.predictions.WithLabelValues("unavailable")), ShouldEqual, downBefore+1)
			})
		})

		Convey("When recording policies", func() {
			before := testutil.ToFloat64(globalManager.scoringPolicies.WithLabelValues("low_data_cap"))
			RecordScoringPolicy("low_data_cap")

			Convey("Then the policy counter increments", func() {
				So(testutil.ToFloat64(globalManager.scoringPolicies.WithLabelValues("low_data_cap")), ShouldEqual, before+1)
			})
		})

		Convey("When observing final scores", func() {
			So(func() {
				ObserveFinalScore(0)
				ObserveFinalScore(7.5)
				ObserveFinalScore(10)
			}, ShouldNotPanic)
		})

		Convey("When recording pipeline counters", func() {
			processed := testutil.ToFloat64(globalManager.eventsProcessed)
			dup := testutil.ToFloat64(globalManager.eventsDuplicate)
			upserts := testutil.ToFloat64(globalManager.leaderboardUpdate)
			RecordEventProcessed()
			RecordEventDuplicate()
			RecordLeaderboardUpdate()

			Convey("Then every counter moves by one", func() {
				So(testutil.ToFloat64(globalManager.eventsProcessed), ShouldEqual, processed+1)
				So(testutil.ToFloat64(globalManager.eventsDuplicate), ShouldEqual, dup+1)
				So(testutil.ToFloat64(globalManager.leaderboardUpdate), ShouldEqual, upserts+1)
			})
		})
	})
}

func TestModelMetrics(t *testing.T) {
	Convey("Given model training outcomes", t, func() {
		Convey("When a training run succeeds", func() {
			RecordModelTraining("ok", 12.5, 42, 1700000000)

			Convey("Then samples and timestamp are published", func() {
				So(testutil.ToFloat64(globalManager.modelSamples), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.modelLastTrainedUnix), ShouldEqual, 1700000000)
			})

			Convey("And a failed run does not overwrite them", func() {
				RecordModelTraining("insufficient_data", 0.1, 2, 1800000000)
				So(testutil.ToFloat64(globalManager.modelSamples), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.modelLastTrainedUnix), ShouldEqual, 1700000000)
			})
		})
	})
}

func TestOperationalMetrics(t *testing.T) {
	Convey("Given operational gauges", t, func() {
		Convey("When updating them", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(100)
			UpdateQueueUtilization(0.07)
			UpdateWorkerCount(4)
			UpdateWorkersTotal(12)
			UpdateRankedWorkers(9)
			UpdateSystemGoroutineCount(33)
			UpdateSystemMemoryUsage(2048)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.07)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.workersTotal), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.rankedWorkers), ShouldEqual, 9)
				So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 33)
				So(testutil.ToFloat64(globalManager.systemMemoryUsage), ShouldEqual, 2048)
			})
		})

		Convey("When recording counters and histograms", func() {
			rejected := testutil.ToFloat64(globalManager.queueRejected.WithLabelValues("full"))
			So(func() {
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueRejected("full")
				RecordWorkerProcessingLatency(1.2)
				RecordWorkerError()
				RecordScoringLatency(0.4)
				RecordScoringError()
				RecordLeaderboardError()
				RecordRepositoryLatency("upsert", 0.02)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.queueRejected.WithLabelValues("full")), ShouldEqual, rejected+1)
		})
	})
}

func TestHTTPAndErrorMetrics(t *testing.T) {
	Convey("Given HTTP traffic", t, func() {
		Convey("When a request is recorded", func() {
			before := testutil.ToFloat64(globalManager.httpRequests.WithLabelValues("/score", "POST", "200"))
			RecordHTTPRequest("/score", "POST", "200")
			RecordHTTPRequestDuration("/score", "POST", "200", 3.1)

			Convey("Then the request counter increments", func() {
				So(testutil.ToFloat64(globalManager.httpRequests.WithLabelValues("/score", "POST", "200")), ShouldEqual, before+1)
			})
		})

		Convey("When errors are recorded", func() {
			before := testutil.ToFloat64(globalManager.errorsByComponent.WithLabelValues("api", "validation"))
			RecordErrorByComponent("api", "validation")
			RecordErrorByType("validation", "warning")
			RecordErrorByEndpoint("/workers", "POST", "validation")

			Convey("Then the component counter increments", func() {
				So(testutil.ToFloat64(globalManager.errorsByComponent.WithLabelValues("api", "validation")), ShouldEqual, before+1)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordEventProcessed()
		families, err := GetRegistry().Gather()

		Convey("Then it exposes workscore metrics only", func() {
			So(err, ShouldBeNil)
			So(families, ShouldNotBeEmpty)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "workscore_"), ShouldBeTrue)
			}
		})
	})
}
