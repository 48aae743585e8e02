package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/gamx/internal/app"
	"github.com/okian/gamx/internal/adapters/repository"
	"github.com/okian/gamx/internal/domain/model"
	"github.com/okian/gamx/internal/domain/scoring"
)

// eventually polls cond until it holds or the timeout passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func seniorResult(athleteID string, total float64) model.LiftResult {
	return model.LiftResult{
		AthleteID: athleteID,
		Gender:    scoring.GenderMale,
		BodyMass:  81,
		Total:     total,
		Variant:   scoring.VariantSenior,
	}
}

func processed(svc *service.Service) int64 {
	n, _ := svc.GetStats()["processed"].(int64)
	return n
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newService(
			service.WithWorkerCount(2),
			service.WithQueueSize(1000),
			service.WithDedupeSize(500),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { stop(svc) })

		Convey("When submitting results for three athletes", func() {
			for _, r := range []model.LiftResult{
				seniorResult("athlete-c", 200),
				seniorResult("athlete-a", 300),
				seniorResult("athlete-b", 250),
				seniorResult("athlete-b", 150),
			} {
				dup, err := svc.Submit(ctx, r)
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
			}
			So(eventually(func() bool { return processed(svc) == 4 }), ShouldBeTrue)

			Convey("Then the standings should hold each athlete's best", func() {
				entries, err := svc.TopN(ctx, scoring.VariantSenior, 10)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 3)

				So(entries[0].AthleteID, ShouldEqual, "athlete-a")
				So(entries[0].Score, ShouldEqual, 977.15)
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].AthleteID, ShouldEqual, "athlete-b")
				So(entries[1].Score, ShouldEqual, 829.67)
				So(entries[1].Total, ShouldEqual, 250)
				So(entries[2].AthleteID, ShouldEqual, "athlete-c")
				So(entries[2].Score, ShouldEqual, 685.24)
				So(entries[2].Rank, ShouldEqual, 3)
				So(entries[2].Variant, ShouldEqual, "senior")
				So(entries[2].Gender, ShouldEqual, "M")
			})

			Convey("And individual ranks should be available", func() {
				entry, err := svc.Rank(ctx, scoring.VariantSenior, "athlete-b")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)

				_, err = svc.Rank(ctx, scoring.VariantSenior, "nobody")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				_, err = svc.Rank(ctx, scoring.VariantYouth, "athlete-b")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("And the target for second place should pass the leader", func() {
				target, err := svc.TargetFor(ctx, scoring.VariantSenior, "athlete-b")
				So(err, ShouldBeNil)
				So(target.OpponentID, ShouldEqual, "athlete-a")
				So(target.OpponentScore, ShouldEqual, 977.15)
				So(target.Rank, ShouldEqual, 2)
				So(target.Total, ShouldEqual, 301)
				So(target.Score, ShouldBeGreaterThan, 977.15)
			})

			Convey("And the leader should have no target", func() {
				_, err := svc.TargetFor(ctx, scoring.VariantSenior, "athlete-a")
				So(errors.Is(err, repository.ErrNoneAhead), ShouldBeTrue)
			})
		})

		Convey("When the same result is submitted twice", func() {
			r := seniorResult("athlete-a", 300)
			dup, err := svc.Submit(ctx, r)
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)

			dup, err = svc.Submit(ctx, r)

			Convey("Then the second submission should be a duplicate", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
			})
		})

		Convey("When a result id is reused for a different result", func() {
			first := seniorResult("athlete-a", 300)
			first.ResultID = "r-1"
			second := seniorResult("athlete-a", 320)
			second.ResultID = "r-1"

			_, err := svc.Submit(ctx, first)
			So(err, ShouldBeNil)
			dup, err := svc.Submit(ctx, second)

			Convey("Then the id decides", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
			})
		})

		Convey("When a result is missing its athlete", func() {
			_, err := svc.Submit(ctx, seniorResult("", 250))

			Convey("Then it should be rejected before queueing", func() {
				So(errors.Is(err, model.ErrInvalidResult), ShouldBeTrue)
			})
		})

		Convey("When the engine cannot score a result", func() {
			zeroMass := seniorResult("zero-mass", 200)
			zeroMass.BodyMass = 0
			zeroMass.ResultID = "r-zero-mass"
			_, massErr := svc.Submit(ctx, zeroMass)
			_, totalErr := svc.Submit(ctx, seniorResult("bad-total", -5))
			_, zeroErr := svc.Submit(ctx, seniorResult("zero-total", 0))

			Convey("Then it should be rejected before queueing", func() {
				So(errors.Is(massErr, scoring.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(totalErr, scoring.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(zeroErr, scoring.ErrUndefined), ShouldBeTrue)
				So(svc.GetStats()["seen_results"], ShouldEqual, int64(0))
				So(svc.GetStats()["queue_length"], ShouldEqual, 0)
			})

			Convey("And the corrected result should be accepted under the same id", func() {
				zeroMass.BodyMass = 81
				dup, err := svc.Submit(ctx, zeroMass)
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
				So(eventually(func() bool { return processed(svc) == 1 }), ShouldBeTrue)

				entry, err := svc.Rank(ctx, scoring.VariantSenior, "zero-mass")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
				_, err = svc.Rank(ctx, scoring.VariantSenior, "bad-total")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When results arrive for several variants", func() {
			masters := seniorResult("athlete-m", 140)
			masters.Variant = scoring.VariantMasters
			masters.BodyMass = 69
			masters.Age = 58
			youth := model.LiftResult{
				AthleteID: "athlete-y", Gender: scoring.GenderFemale, BodyMass: 55, Total: 120, Variant: scoring.VariantYouth,
			}
			for _, r := range []model.LiftResult{masters, youth, seniorResult("athlete-m", 140)} {
				_, err := svc.Submit(ctx, r)
				So(err, ShouldBeNil)
			}
			So(eventually(func() bool { return processed(svc) == 3 }), ShouldBeTrue)

			Convey("Then each variant should be ranked separately", func() {
				entry, err := svc.Rank(ctx, scoring.VariantMasters, "athlete-m")
				So(err, ShouldBeNil)
				So(entry.Score, ShouldEqual, 857.35)
				So(entry.Age, ShouldEqual, 58)

				entry, err = svc.Rank(ctx, scoring.VariantYouth, "athlete-y")
				So(err, ShouldBeNil)
				So(entry.Score, ShouldEqual, 910.56)

				stats := svc.GetStats()
				So(stats["total_athletes"], ShouldEqual, 3)
			})
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := newService(service.WithWorkerCount(4), service.WithQueueSize(10_000))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { stop(svc) })

		Convey("When many goroutines submit results", func() {
			const goroutines = 8
			const perGoroutine = 50

			var wg sync.WaitGroup
			errs := make(chan error, goroutines*perGoroutine)
			for g := 0; g < goroutines; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < perGoroutine; i++ {
						r := seniorResult(fmt.Sprintf("athlete-%02d", i), float64(150+g*10+i))
						if _, err := svc.Submit(ctx, r); err != nil {
							errs <- err
						}
					}
				}(g)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				So(err, ShouldBeNil)
			}

			So(eventually(func() bool { return processed(svc) == goroutines*perGoroutine }), ShouldBeTrue)

			Convey("Then every athlete should keep their best total", func() {
				entries, err := svc.TopN(ctx, scoring.VariantSenior, 100)
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, perGoroutine)
				for _, e := range entries {
					var i int
					_, err := fmt.Sscanf(e.AthleteID, "athlete-%02d", &i)
					So(err, ShouldBeNil)
					So(e.Total, ShouldEqual, float64(150+(goroutines-1)*10+i))
				}
				for i := 1; i < len(entries); i++ {
					So(entries[i-1].Score, ShouldBeGreaterThanOrEqualTo, entries[i].Score)
				}
			})
		})
	})
}
