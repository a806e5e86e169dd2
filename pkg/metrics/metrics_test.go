package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register the session and leaderboard collectors", func() {
				So(manager, ShouldNotBeNil)
				manager.cardsServed.Inc()
				manager.leaderboardErrors.WithLabelValues("lock_timeout").Inc()

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				joined := strings.Join(names, ",")
				So(joined, ShouldContainSubstring, "flashquiz_cards_served_total")
				So(joined, ShouldContainSubstring, "flashquiz_leaderboard_errors_total")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("quiz"),
				WithSubsystem("test"),
				WithMetricPrefix("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names carry namespace, subsystem and prefix", func() {
				manager.sessionsStarted.Inc()
				So(testutil.ToFloat64(manager.sessionsStarted), ShouldEqual, float64(1))

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				So(families[0].GetName(), ShouldStartWith, "quiz_test_unit_")
			})
		})
	})
}

func TestMetricsOptionsValidation(t *testing.T) {
	Convey("Given options with empty or invalid values", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(
			WithNamespace(""),
			WithSubsystem(""),
			WithMetricPrefix(""),
			WithHistogramBuckets(nil),
			WithConstLabels(nil),
			WithRefreshInterval(-1*time.Second),
			WithPrometheusRegistry(registry),
		)

		Convey("Then defaults are kept", func() {
			So(manager.namespace, ShouldEqual, "flashquiz")
			So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			So(manager.customLabels, ShouldNotBeNil)
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording session metrics", func() {
			before := testutil.ToFloat64(globalManager.cardsServed)
			RecordCardServed()
			RecordCardServed()
			RecordPoolExhausted()
			RecordSessionStarted()
			RecordSessionsExpired(2)
			RecordSessionsExpired(0)
			RecordSessionBusy()
			RecordEmptyPool()
			UpdateSessionsActive(5)
			UpdateDecksLoaded(3)
			RecordAnswerChecked("multiple-choice", "correct")

			Convey("Then counters and gauges move", func() {
				So(testutil.ToFloat64(globalManager.cardsServed)-before, ShouldEqual, float64(2))
				So(testutil.ToFloat64(globalManager.sessionsActive), ShouldEqual, float64(5))
				So(testutil.ToFloat64(globalManager.decksLoaded), ShouldEqual, float64(3))
			})
		})

		Convey("When recording leaderboard metrics", func() {
			before := testutil.ToFloat64(globalManager.leaderboardErrors.WithLabelValues("persistence"))
			RecordLeaderboardSubmission()
			RecordLeaderboardSubmitLatency(1.5)
			RecordLeaderboardLockWait(0.2)
			RecordLeaderboardError("persistence")
			RecordLeaderboardMalformed()
			RecordLeaderboardRead()
			UpdateLeaderboardEntries(10)

			Convey("Then they are observable", func() {
				So(testutil.ToFloat64(globalManager.leaderboardErrors.WithLabelValues("persistence"))-before, ShouldEqual, float64(1))
				So(testutil.ToFloat64(globalManager.leaderboardEntries), ShouldEqual, float64(10))
			})
		})

		Convey("When recording HTTP, generation, error and system metrics", func() {
			So(func() {
				RecordGenerationLatency("offline", "fill-blank", 12)
				RecordGenerationError("openai", "multiple-choice")
				RecordHTTPRequest("leaderboard", "GET", "200")
				RecordHTTPRequestDuration("leaderboard", "GET", "200", 3)
				RecordErrorByComponent("leaderboard", "lock_timeout")
				RecordErrorByType("server_error", "high")
				RecordErrorByEndpoint("next", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 4)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given many goroutines recording at once", t, func() {
		before := testutil.ToFloat64(globalManager.leaderboardSubmissions)
		const goroutines = 50
		var wg sync.WaitGroup
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordLeaderboardSubmission()
				RecordHTTPRequest("submit", "POST", "200")
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(globalManager.leaderboardSubmissions)-before, ShouldEqual, float64(goroutines))
	})
}
