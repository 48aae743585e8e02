package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/gamx/internal/adapters/http/api"
	"github.com/okian/gamx/internal/adapters/mq/queue"
	"github.com/okian/gamx/internal/adapters/repository"
	"github.com/okian/gamx/internal/domain/model"
	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/internal/domain/types"
)

// mockDependencies scores with the real engine and keeps everything else in
// plain fields.
type mockDependencies struct {
	engine *scoring.Engine

	seen      map[string]bool
	submitted []model.LiftResult
	submitErr error

	entries []types.Entry
	rank    types.Entry
	rankErr error
	target  types.Target
	tgtErr  error

	lastVariant scoring.Variant
}

func newMockDependencies() *mockDependencies {
	e, err := scoring.NewEngine()
	So(err, ShouldBeNil)
	return &mockDependencies{engine: e, seen: make(map[string]bool)}
}

func (m *mockDependencies) DefaultVariant() scoring.Variant { return scoring.VariantSenior }

func (m *mockDependencies) Submit(_ context.Context, r model.LiftResult) (bool, error) {
	if m.submitErr != nil {
		return false, m.submitErr
	}
	if err := r.Validate(); err != nil {
		return false, err
	}
	if _, err := m.engine.Compute(r.Request()); err != nil {
		return false, err
	}
	if r.ResultID == "" {
		r.ResultID = r.DeriveID()
	}
	if m.seen[r.ResultID] {
		return true, nil
	}
	m.seen[r.ResultID] = true
	m.submitted = append(m.submitted, r)
	return false, nil
}

func (m *mockDependencies) Score(_ context.Context, req scoring.Request) (float64, error) {
	return m.engine.Compute(req)
}

func (m *mockDependencies) Target(_ context.Context, req scoring.TargetRequest) (scoring.Solution, error) {
	return m.engine.Solve(req)
}

func (m *mockDependencies) TargetFor(_ context.Context, v scoring.Variant, _ string) (types.Target, error) {
	m.lastVariant = v
	return m.target, m.tgtErr
}

func (m *mockDependencies) TopN(_ context.Context, v scoring.Variant, n int) ([]types.Entry, error) {
	m.lastVariant = v
	if n > len(m.entries) {
		return m.entries, nil
	}
	return m.entries[:n], nil
}

func (m *mockDependencies) Rank(_ context.Context, v scoring.Variant, _ string) (types.Entry, error) {
	m.lastVariant = v
	return m.rank, m.rankErr
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func setup() (*mockDependencies, *http.ServeMux) {
	deps := newMockDependencies()
	stats := &mockStatsProvider{stats: map[string]any{"started": true, "queue_length": 0}}
	server := api.NewServer(deps, stats, 100)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return deps, mux
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		_, mux := setup()

		Convey("Then health should expose Prometheus metrics", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "go_build_info")
		})

		Convey("And stats should return the provider's map", func() {
			w := serve(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("And wrong methods should be not found", func() {
			So(serve(mux, http.MethodGet, "/results", "").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodPost, "/leaderboard?limit=1", "").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodPost, "/stats", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestResultsHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps, mux := setup()
		body := `{"athlete_id":"a1","gender":"M","body_mass":81,"total":250,"variant":"senior","ts":"2026-03-01T10:00:00Z"}`

		Convey("When posting a valid result", func() {
			w := serve(mux, http.MethodPost, "/results", body)

			Convey("Then it should be accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
				So(len(deps.submitted), ShouldEqual, 1)
				So(deps.submitted[0].Gender, ShouldEqual, scoring.GenderMale)
				So(deps.submitted[0].TS.Year(), ShouldEqual, 2026)
			})

			Convey("And posting it again should be a duplicate", func() {
				w := serve(mux, http.MethodPost, "/results", body)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the variant is omitted", func() {
			w := serve(mux, http.MethodPost, "/results", `{"athlete_id":"a1","gender":"F","body_mass":55,"total":120}`)

			Convey("Then the default variant should be used", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.submitted[0].Variant, ShouldEqual, scoring.VariantSenior)
			})
		})

		Convey("When the request is malformed", func() {
			cases := []string{
				`{`,
				`{"gender":"M","body_mass":81,"total":250}`,
				`{"athlete_id":"a1","gender":"X","body_mass":81,"total":250}`,
				`{"athlete_id":"a1","gender":"M","body_mass":81,"total":250,"variant":"open"}`,
				`{"athlete_id":"a1","gender":"M","body_mass":81,"total":250,"ts":"yesterday"}`,
				`{"athlete_id":"a1","gender":"M","body_mass":81,"total":250,"variant":"masters"}`,
			}

			Convey("Then each should be a bad request", func() {
				for _, c := range cases {
					w := serve(mux, http.MethodPost, "/results", c)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(decodeError(w)["code"], ShouldEqual, "bad_request")
				}
			})
		})

		Convey("When the queue is full", func() {
			deps.submitErr = fmt.Errorf("enqueue: %w", queue.ErrFull)
			w := serve(mux, http.MethodPost, "/results", body)

			Convey("Then it should report backpressure", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				resp := decodeError(w)
				So(resp["code"], ShouldEqual, "backpressure")
				So(resp["message"], ShouldStartWith, "api.post_result: backpressure: ")
			})
		})

		Convey("When the queue is closed", func() {
			deps.submitErr = queue.ErrClosed
			w := serve(mux, http.MethodPost, "/results", body)

			Convey("Then it should report the service unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				resp := decodeError(w)
				So(resp["code"], ShouldEqual, "unavailable")
				So(resp["message"], ShouldStartWith, "api.post_result: service unavailable: ")
			})
		})

		Convey("When the engine cannot score the result", func() {
			cases := []string{
				`{"result_id":"r1","athlete_id":"a1","gender":"M","body_mass":0,"total":250}`,
				`{"result_id":"r1","athlete_id":"a1","gender":"M","body_mass":81,"total":-5}`,
				`{"result_id":"r1","athlete_id":"a1","gender":"M","body_mass":81,"total":0}`,
			}

			Convey("Then it should be unprocessable", func() {
				for _, c := range cases {
					w := serve(mux, http.MethodPost, "/results", c)
					So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
					So(decodeError(w)["code"], ShouldEqual, "invalid_input")
				}
				So(deps.submitted, ShouldBeEmpty)
			})

			Convey("And the corrected result should keep its id", func() {
				serve(mux, http.MethodPost, "/results", cases[0])
				w := serve(mux, http.MethodPost, "/results",
					`{"result_id":"r1","athlete_id":"a1","gender":"M","body_mass":81,"total":250}`)
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
				So(len(deps.submitted), ShouldEqual, 1)
				So(deps.submitted[0].ResultID, ShouldEqual, "r1")
			})
		})
	})
}

func TestScoreHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		_, mux := setup()

		Convey("When scoring a senior total", func() {
			w := serve(mux, http.MethodPost, "/score", `{"gender":"M","body_mass":55,"total":200}`)

			Convey("Then it should return the rounded and raw score", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Variant string  `json:"variant"`
					Score   float64 `json:"score"`
					Raw     float64 `json:"raw"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Variant, ShouldEqual, "senior")
				So(resp.Score, ShouldEqual, 827.08)
				So(resp.Raw, ShouldAlmostEqual, 827.08, 0.005)
			})
		})

		Convey("When scoring a masters total", func() {
			w := serve(mux, http.MethodPost, "/score", `{"gender":"M","body_mass":69,"total":140,"age":58,"variant":"masters"}`)

			Convey("Then the age should be used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"score":857.35`)
			})
		})

		Convey("When the body mass is invalid", func() {
			w := serve(mux, http.MethodPost, "/score", `{"gender":"M","body_mass":-1,"total":200}`)

			Convey("Then it should be unprocessable", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decodeError(w)["code"], ShouldEqual, "invalid_input")
			})
		})

		Convey("When the gender is unknown", func() {
			w := serve(mux, http.MethodPost, "/score", `{"gender":"?","body_mass":81,"total":200}`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestTargetHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps, mux := setup()

		Convey("When asking for the total that beats a score", func() {
			w := serve(mux, http.MethodPost, "/target", `{"gender":"M","body_mass":89,"score":1033.2419}`)

			Convey("Then it should return the minimal total", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Total int     `json:"total"`
					Score float64 `json:"score"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Total, ShouldEqual, 337)
				So(resp.Score, ShouldBeGreaterThan, 1033.24)
			})
		})

		Convey("When the target is out of reach", func() {
			w := serve(mux, http.MethodPost, "/target", `{"gender":"M","body_mass":89,"score":1800}`)

			Convey("Then it should report it as unreachable", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decodeError(w)["code"], ShouldEqual, "target_unreachable")
			})
		})

		Convey("When asking for an athlete's target", func() {
			deps.target = types.Target{AthleteID: "a2", Rank: 2, OpponentID: "a1", OpponentScore: 977.15, Total: 301, Score: 980.1}
			w := serve(mux, http.MethodGet, "/target/a2?variant=youth", "")

			Convey("Then it should return the target in the requested variant", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"opponent_id":"a1"`)
				So(deps.lastVariant, ShouldEqual, scoring.VariantYouth)
			})
		})

		Convey("When the athlete leads", func() {
			deps.tgtErr = repository.ErrNoneAhead
			w := serve(mux, http.MethodGet, "/target/a1", "")

			Convey("Then it should be a conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(w)["code"], ShouldEqual, "no_opponent")
			})
		})

		Convey("When the athlete path is empty", func() {
			w := serve(mux, http.MethodGet, "/target/", "")

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given a registered API server with entries", t, func() {
		deps, mux := setup()
		deps.entries = []types.Entry{
			{Rank: 1, AthleteID: "a1", Score: 977.15, Variant: "senior"},
			{Rank: 2, AthleteID: "a2", Score: 829.67, Variant: "senior"},
			{Rank: 2, AthleteID: "a3", Score: 829.67, Variant: "senior"},
		}

		Convey("When requesting the top two", func() {
			w := serve(mux, http.MethodGet, "/leaderboard?limit=2", "")

			Convey("Then it should return two entries", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var entries []types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[1].AthleteID, ShouldEqual, "a2")
				So(deps.lastVariant, ShouldEqual, scoring.VariantSenior)
			})
		})

		Convey("When requesting another variant", func() {
			w := serve(mux, http.MethodGet, "/leaderboard?limit=2&variant=gamx-m", "")

			Convey("Then the variant should be passed on", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastVariant, ShouldEqual, scoring.VariantMasters)
			})
		})

		Convey("When the limit is invalid", func() {
			for _, q := range []string{"", "?limit=0", "?limit=abc", "?limit=-3"} {
				w := serve(mux, http.MethodGet, "/leaderboard"+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the limit exceeds the maximum", func() {
			w := serve(mux, http.MethodGet, "/leaderboard?limit=101", "")

			Convey("Then it should say so", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "limit_exceeded")
			})
		})

		Convey("When the variant is unknown", func() {
			w := serve(mux, http.MethodGet, "/leaderboard?limit=2&variant=open", "")

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestRankHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps, mux := setup()

		Convey("When the athlete is ranked", func() {
			deps.rank = types.Entry{Rank: 3, AthleteID: "a3", Score: 685.24}
			w := serve(mux, http.MethodGet, "/rank/a3", "")

			Convey("Then the entry should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"athlete_id":"a3"`)
				So(w.Body.String(), ShouldContainSubstring, `"rank":3`)
			})
		})

		Convey("When the athlete is unknown", func() {
			deps.rankErr = repository.ErrNotFound
			w := serve(mux, http.MethodGet, "/rank/ghost", "")

			Convey("Then it should be not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w)["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When the path has extra segments", func() {
			w := serve(mux, http.MethodGet, "/rank/a/b", "")

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the store fails unexpectedly", func() {
			deps.rankErr = fmt.Errorf("boom")
			w := serve(mux, http.MethodGet, "/rank/a1", "")

			Convey("Then it should be an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeError(w)["code"], ShouldEqual, "internal_error")
			})
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given a wrapped kind", t, func() {
		cause := fmt.Errorf("missing athlete_id")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both kind and cause should match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: missing athlete_id")
			So(fmt.Sprint(api.NewKind("api.op", api.ErrBackpressure)), ShouldEqual, "api.op: backpressure")
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})
	})
}
