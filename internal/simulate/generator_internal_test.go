package simulate

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/internal/domain/types"
)

func TestGenerateResults(t *testing.T) {
	Convey("Given a seeded configuration", t, func() {
		engine, err := scoring.Default()
		So(err, ShouldBeNil)
		cfg := (&Config{Athletes: 25, Seed: 99, Variant: scoring.VariantAgeAdjusted}).withDefaults()

		Convey("When results are generated twice", func() {
			a, err := generateResults(context.Background(), &cfg, engine)
			So(err, ShouldBeNil)
			b, err := generateResults(context.Background(), &cfg, engine)
			So(err, ShouldBeNil)

			Convey("Then the draws repeat while the ids stay unique", func() {
				So(len(a), ShouldEqual, 25)
				ids := map[string]bool{}
				for i := range a {
					So(a[i].BodyMass, ShouldEqual, b[i].BodyMass)
					So(a[i].Total, ShouldEqual, b[i].Total)
					So(a[i].Age, ShouldEqual, b[i].Age)
					So(ids[a[i].AthleteID], ShouldBeFalse)
					ids[a[i].AthleteID] = true
				}
			})

			Convey("Then every result is scoreable and in range", func() {
				for _, r := range a {
					So(r.Variant, ShouldEqual, "age")
					So(r.Age, ShouldBeBetweenOrEqual, scoring.AgeAdjustedMinAge, scoring.AgeAdjustedMaxAge)
					s, err := engine.Compute(scoring.Request{
						Gender: r.gender, Variant: scoring.VariantAgeAdjusted, BodyMass: r.BodyMass, Total: r.Total, Age: r.Age,
					})
					So(err, ShouldBeNil)
					So(scoring.Round2(s), ShouldEqual, r.expected)
				}
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := generateResults(ctx, &cfg, engine)

			Convey("Then generation stops", func() {
				So(err, ShouldEqual, context.Canceled)
			})
		})
	})

	Convey("Given defaults", t, func() {
		cfg := (&Config{Duplicates: 50, Athletes: 10}).withDefaults()

		Convey("Then zero fields are filled and duplicates are capped", func() {
			So(cfg.BaseURL, ShouldEqual, DefaultBaseURL)
			So(cfg.Variant, ShouldEqual, scoring.VariantSenior)
			So(cfg.Duplicates, ShouldEqual, 10)
			So(cfg.Seed, ShouldNotEqual, 0)
		})
	})
}

func TestCheckLeaderboard(t *testing.T) {
	Convey("Given locally scored results", t, func() {
		results := []Result{
			{AthleteID: "a", expected: 1000},
			{AthleteID: "b", expected: 1000},
			{AthleteID: "c", expected: 950.5},
		}

		Convey("When the leaderboard matches with a shared rank", func() {
			mm := &mismatches{}
			checkLeaderboard([]types.Entry{
				{Rank: 1, AthleteID: "a", Score: 1000},
				{Rank: 1, AthleteID: "b", Score: 1000},
				{Rank: 3, AthleteID: "c", Score: 950.5},
			}, results, 10, mm)

			Convey("Then nothing is reported", func() {
				So(mm.list, ShouldBeEmpty)
			})
		})

		Convey("When ranks are dense instead of competition ranks", func() {
			mm := &mismatches{}
			checkLeaderboard([]types.Entry{
				{Rank: 1, AthleteID: "a", Score: 1000},
				{Rank: 1, AthleteID: "b", Score: 1000},
				{Rank: 2, AthleteID: "c", Score: 950.5},
			}, results, 10, mm)

			Convey("Then the rank is reported", func() {
				So(len(mm.list), ShouldEqual, 1)
				So(mm.list[0], ShouldContainSubstring, "expected 3")
			})
		})

		Convey("When a tie is ordered by id descending", func() {
			mm := &mismatches{}
			checkLeaderboard([]types.Entry{
				{Rank: 1, AthleteID: "b", Score: 1000},
				{Rank: 1, AthleteID: "a", Score: 1000},
			}, results, 2, mm)

			Convey("Then the order is reported", func() {
				So(mm.list, ShouldNotBeEmpty)
			})
		})
	})

	Convey("Given rank entries", t, func() {
		Convey("When a lower score ranks ahead", func() {
			mm := &mismatches{}
			checkRankOrder([]types.Entry{
				{Rank: 2, AthleteID: "a", Score: 1000},
				{Rank: 1, AthleteID: "b", Score: 990},
			}, mm)

			Convey("Then it is reported", func() {
				So(len(mm.list), ShouldEqual, 1)
			})
		})
	})
}
