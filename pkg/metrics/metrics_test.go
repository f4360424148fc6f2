package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			registryOpt := WithRegistry(prometheus.NewRegistry())

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(registryOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager(WithRegistry(prometheus.NewRegistry()))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRegistry(prometheus.NewRegistry()),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording vote metrics", func() {
			Convey("Then it should record accepted votes", func() {
				So(func() {
					RecordVoteRecorded()
					RecordVoteUpdated()
				}, ShouldNotPanic)
			})

			Convey("And it should record rejections by reason", func() {
				So(func() {
					RecordVoteRejected("self_vote")
					RecordVoteRejected("score_out_of_range")
					RecordVoteRejected("revision_limit")
				}, ShouldNotPanic)
			})
		})

		Convey("When recording event metrics", func() {
			So(func() {
				RecordEventOpened()
				RecordEventSummarized()
				UpdateEventsTotal(3)
			}, ShouldNotPanic)
		})

		Convey("When recording persistence metrics", func() {
			So(func() {
				RecordPersistDuration(1.5)
				RecordPersistError()
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("votes", "POST", "200")
				RecordHTTPRequestDuration("votes", "POST", "200", 0.012)
			}, ShouldNotPanic)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the global registry", t, func() {
		Convey("When fetching it", func() {
			registry := GetRegistry()

			Convey("Then it should be gatherable", func() {
				So(registry, ShouldNotBeNil)
				_, err := registry.Gather()
				So(err, ShouldBeNil)
			})
		})
	})
}
