package env_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/env"
	"github.com/san-kum/conservation/internal/growth"
)

func zeroAction(e *env.Environment) ecology.Action {
	a := make(ecology.Action, e.ActionDim())
	for i := range a {
		a[i] = -1
	}
	return a
}

var allSpecs = map[string]func() env.Spec{
	"ricker":        func() env.Spec { return env.Stationary(growth.Ricker) },
	"beverton_holt": func() env.Spec { return env.Stationary(growth.BevertonHolt) },
	"allen":         func() env.Spec { return env.Stationary(growth.Allen) },
	"myers":         func() env.Spec { return env.Stationary(growth.Myers) },
	"may":           func() env.Spec { return env.Stationary(growth.May) },
	"harvest":       env.Harvest,
	"nonstationary": env.NonStationaryGrowth,
	"v3":            env.NonStationaryV3,
	"v4":            env.NonStationaryV4,
	"v5":            env.NonStationaryV5,
	"dual":          env.DualAction,
	"ensemble":      func() env.Spec { return env.Ensemble(4) },
	"uncertainty":   env.ModelUncertainty,
}

var _ = Describe("Environment", func() {
	Describe("Ricker with zero noise", func() {
		It("follows the deterministic map", func() {
			spec := env.Stationary(growth.Ricker)
			spec.Params.Sigma = 0
			e, err := spec.New(env.WithSeed(1))
			Expect(err).NotTo(HaveOccurred())

			e.Reset()
			obs, reward, done, _, err := e.Step(ecology.Action{-1})
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeFalse())

			want := 0.75 * math.Exp(0.075)
			Expect(e.Population()[0]).To(BeNumerically("~", want, 1e-12))
			Expect(want).To(BeNumerically("~", 0.8084, 1e-4))
			Expect(obs[0]).To(BeNumerically("~", want-1, 1e-12))
			Expect(reward).To(BeNumerically("~", want, 1e-12))
		})
	})

	Describe("Reset", func() {
		for name, mk := range allSpecs {
			It("starts "+name+" at the initial state", func() {
				spec := mk()
				e, err := spec.New(env.WithSeed(7))
				Expect(err).NotTo(HaveOccurred())

				obs := e.Reset()
				Expect(obs).To(HaveLen(spec.Replicates))
				for _, o := range obs {
					Expect(o).To(BeNumerically("~", spec.Params.X0/spec.Params.K-1, 1e-12))
				}
				Expect(e.Years()).To(Equal(0))
				Expect(e.Params()).To(Equal(e.Template()))
			})
		}

		It("restores drifted parameters", func() {
			e, err := env.NonStationaryV3().New(env.WithSeed(1))
			Expect(err).NotTo(HaveOccurred())
			e.Reset()
			for range 5 {
				_, _, _, _, err := e.Step(ecology.Action{-1})
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(e.Params().A).To(BeNumerically(">", 0.2))

			e.Reset()
			Expect(e.Params().A).To(Equal(0.2))
		})
	})

	Describe("stepping", func() {
		actions := []float64{-1, 0, 1, 2, -3, 0.5}

		for name, mk := range allSpecs {
			It("keeps "+name+" bounded and terminates", func() {
				e, err := mk().New(env.WithSeed(3), env.WithHorizon(40))
				Expect(err).NotTo(HaveOccurred())
				e.Reset()
				k := e.Params().K

				done := false
				steps := 0
				for !done {
					a := make(ecology.Action, e.ActionDim())
					for i := range a {
						a[i] = actions[(steps+i)%len(actions)]
					}
					var obs ecology.Observation
					obs, _, done, _, err = e.Step(a)
					Expect(err).NotTo(HaveOccurred())
					steps++

					pop := e.Population()
					for i, x := range e.UnscaleState(obs) {
						Expect(x).To(BeNumerically("~", pop[i], 1e-9))
						Expect(pop[i]).To(BeNumerically(">=", 0))
						Expect(pop[i]).To(BeNumerically("<=", 2*k))
					}
					Expect(steps).To(BeNumerically("<=", 41))
				}
			})
		}

		It("terminates exactly after the horizon", func() {
			spec := env.Stationary(growth.Ricker)
			spec.Params.Sigma = 0
			e, err := spec.New(env.WithHorizon(10))
			Expect(err).NotTo(HaveOccurred())
			e.Reset()

			for i := 1; i <= 10; i++ {
				_, _, done, _, err := e.Step(ecology.Action{-1})
				Expect(err).NotTo(HaveOccurred())
				Expect(done).To(BeFalse())
			}
			_, _, done, _, err := e.Step(ecology.Action{-1})
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeTrue())

			_, _, _, _, err = e.Step(ecology.Action{-1})
			Expect(err).To(MatchError(ecology.ErrTerminated))
		})

		It("rejects steps before reset", func() {
			e, err := env.Stationary(growth.Ricker).New()
			Expect(err).NotTo(HaveOccurred())
			_, _, _, _, err = e.Step(ecology.Action{0})
			Expect(err).To(MatchError(ecology.ErrNotReset))
		})

		It("rejects actions of the wrong length", func() {
			e, err := env.Stationary(growth.Ricker).New()
			Expect(err).NotTo(HaveOccurred())
			e.Reset()
			_, _, _, _, err = e.Step(ecology.Action{0, 0})
			Expect(err).To(MatchError(ecology.ErrDimensionMismatch))
			Expect(e.Years()).To(Equal(0))
		})
	})

	Describe("harvest", func() {
		It("pays the quota", func() {
			e, err := env.Harvest().New(env.WithSeed(2))
			Expect(err).NotTo(HaveOccurred())
			e.Reset()

			_, reward, done, info, err := e.Step(ecology.Action{10})
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeFalse())
			Expect(reward).To(BeNumerically("~", 0.15, 1e-12))
			Expect(info.Harvest).To(BeNumerically("~", 0.15, 1e-12))
		})

		It("collapses when the whole stock is taken", func() {
			e, err := env.Harvest().New(env.WithSeed(2))
			Expect(err).NotTo(HaveOccurred())
			e.Reset()

			_, reward, done, _, err := e.Step(ecology.Action{100})
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeTrue())
			Expect(reward).To(BeNumerically("~", 0.75, 1e-12))
			Expect(e.Population()[0]).To(Equal(0.0))
		})
	})

	Describe("tipping-point drift", func() {
		It("drifts a upward without control", func() {
			e, err := env.NonStationaryV3().New()
			Expect(err).NotTo(HaveOccurred())
			e.Reset()
			_, _, _, info, err := e.Step(ecology.Action{-1})
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Drift).To(BeNumerically("~", 0.201, 1e-12))
		})

		It("adds the action to the population before growth", func() {
			e, err := env.NonStationaryV3().New(env.WithSeed(1))
			Expect(err).NotTo(HaveOccurred())
			e.Reset()

			_, reward, _, info, err := e.Step(ecology.Action{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Drift).To(BeNumerically("~", 0.201, 1e-12))

			want := growth.May.Mean(0.8+1.5, e.Params())
			Expect(want).To(BeNumerically("<", growth.May.Mean(0.8, e.Params())))
			Expect(e.Population()[0]).To(BeNumerically("~", want, 1e-12))
			Expect(reward).To(BeNumerically("~", 15*want-10*1.5, 1e-9))
		})

		It("lets the action push a down", func() {
			e, err := env.NonStationaryV5().New()
			Expect(err).NotTo(HaveOccurred())
			e.Reset()
			_, _, _, info, err := e.Step(ecology.Action{1})
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Drift).To(BeNumerically("~", 0.191, 1e-12))
		})

		It("never pushes a below zero", func() {
			spec := env.NonStationaryV5()
			spec.Params.A = 0.001
			spec.Params.Alpha = 0
			e, err := spec.New()
			Expect(err).NotTo(HaveOccurred())
			e.Reset()
			_, _, _, _, err = e.Step(ecology.Action{1})
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Params().A).To(Equal(0.0))
		})

		It("drifts the growth rate", func() {
			e, err := env.NonStationaryGrowth().New()
			Expect(err).NotTo(HaveOccurred())
			e.Reset()
			_, _, _, info, err := e.Step(ecology.Action{-1})
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Drift).To(BeNumerically("~", 0.793, 1e-12))
		})
	})

	Describe("dual action", func() {
		It("charges both components", func() {
			e, err := env.DualAction().New()
			Expect(err).NotTo(HaveOccurred())
			e.Reset()
			Expect(e.ActionDim()).To(Equal(2))

			_, reward, _, _, err := e.Step(zeroAction(e))
			Expect(err).NotTo(HaveOccurred())
			x := e.Population()[0]
			Expect(reward).To(BeNumerically("~", x/(1+x)+x, 1e-12))
		})
	})

	Describe("ensemble", func() {
		It("averages the reward over independent replicates", func() {
			e, err := env.Ensemble(6).New(env.WithSeed(11))
			Expect(err).NotTo(HaveOccurred())
			obs := e.Reset()
			Expect(obs).To(HaveLen(6))

			_, reward, _, _, err := e.Step(ecology.Action{-1})
			Expect(err).NotTo(HaveOccurred())

			pop := e.Population()
			sum := 0.0
			for _, x := range pop {
				sum += x / (1 + x)
			}
			Expect(reward).To(BeNumerically("~", sum/float64(len(pop)), 1e-12))
			Expect(pop[0]).NotTo(Equal(pop[1]))
		})
	})

	Describe("model uncertainty", func() {
		It("draws different growth models across resets", func() {
			e, err := env.ModelUncertainty().New(env.WithSeed(5))
			Expect(err).NotTo(HaveOccurred())

			seen := map[growth.Model]bool{}
			for range 50 {
				e.Reset()
				seen[e.Model()] = true
			}
			Expect(len(seen)).To(BeNumerically(">", 1))
		})

		It("starts every model at the base initial state", func() {
			e, err := env.ModelUncertainty().New(env.WithSeed(9))
			Expect(err).NotTo(HaveOccurred())

			for range 10 {
				obs := e.Reset()
				Expect(e.Population()[0]).To(Equal(0.1))
				Expect(obs[0]).To(BeNumerically("~", 0.1-1, 1e-12))
			}
		})

	Describe("trajectory log", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "conservation-log")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)
		})

		It("truncates and appends one row per step", func() {
			path := filepath.Join(dir, "log.csv")
			Expect(os.WriteFile(path, []byte("stale\nstale\nstale\n"), 0o644)).To(Succeed())

			e, err := env.Stationary(growth.Ricker).New(env.WithLogFile(path), env.WithSeed(1))
			Expect(err).NotTo(HaveOccurred())
			e.Reset()
			for range 2 {
				_, _, _, _, err := e.Step(ecology.Action{0})
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(e.Close()).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			Expect(lines).To(HaveLen(3))
			Expect(lines[0]).To(Equal("years_passed,unscaled_state,unscaled_action,reward"))
			Expect(string(data)).NotTo(ContainSubstring("stale"))
		})

		It("writes a replicate column for ensembles", func() {
			path := filepath.Join(dir, "ensemble.csv")
			e, err := env.Ensemble(3).New(env.WithLogFile(path), env.WithSeed(1))
			Expect(err).NotTo(HaveOccurred())
			e.Reset()
			_, _, _, _, err = e.Step(ecology.Action{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Close()).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			Expect(lines).To(HaveLen(4))
			Expect(lines[0]).To(Equal("years_passed,replicate,unscaled_state,unscaled_action,reward"))
		})

		It("refuses to step after close", func() {
			path := filepath.Join(dir, "closed.csv")
			e, err := env.Stationary(growth.Ricker).New(env.WithLogFile(path))
			Expect(err).NotTo(HaveOccurred())
			e.Reset()
			Expect(e.Close()).To(Succeed())
			Expect(e.Close()).To(Succeed())

			_, _, _, _, err = e.Step(ecology.Action{0})
			Expect(err).To(MatchError(ecology.ErrLogClosed))
			Expect(e.Years()).To(Equal(0))
		})
	})

	Describe("construction", func() {
		It("rejects a non-positive carrying capacity", func() {
			spec := env.Stationary(growth.Ricker)
			spec.Params.K = 0
			_, err := spec.New()
			Expect(err).To(MatchError(ecology.ErrParameterBounds))
		})

		It("rejects a zero horizon", func() {
			_, err := env.Stationary(growth.Ricker).New(env.WithHorizon(0))
			Expect(err).To(HaveOccurred())
		})
	})
})
