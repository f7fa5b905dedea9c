package controller_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/natsel/internal/controller"
	"github.com/san-kum/natsel/internal/engine"
	"github.com/san-kum/natsel/internal/sim"
)

var refused = &engine.TransportError{Op: "step", Err: errors.New("connection refused")}

var _ = Describe("Controller", func() {
	var (
		ctx  context.Context
		fake *fakeEngine
		ctrl *controller.Controller
	)

	newController := func(initial *sim.Snapshot) {
		fake = newFakeEngine(initial)
		ctrl = controller.New(fake, controller.Options{
			PollInterval:      10 * time.Millisecond,
			AnimationInterval: 2 * time.Millisecond,
			DeathDuration:     60 * time.Millisecond,
		})
	}

	deadCount := func() int { return len(ctrl.Model().Dead) }
	running := func() bool { return ctrl.Model().Running }
	steps := func() int { return ctrl.Model().Steps }

	BeforeEach(func() {
		ctx = context.Background()
		newController(snapshot(true, sim.Grid{{3, 1}, {0, 2}}))
	})

	AfterEach(func() {
		fake.open()
		ctrl.Close()
	})

	Describe("loading", func() {
		It("starts idle with an empty snapshot", func() {
			m := ctrl.Model()
			Expect(m.Phase).To(Equal(controller.PhaseIdle))
			Expect(m.Snapshot.Height()).To(BeZero())
			Expect(m.Snapshot.Alive).To(BeFalse())
		})

		It("loads the current state paused", func() {
			ctrl.Load(ctx)
			m := ctrl.Model()
			Expect(m.Phase).To(Equal(controller.PhasePaused))
			Expect(m.Snapshot.Grid).To(Equal(sim.Grid{{3, 1}, {0, 2}}))
			Expect(m.Err).NotTo(HaveOccurred())
		})

		It("falls back to an empty snapshot when the engine is unreachable", func() {
			fake.stateErr = refused
			Expect(func() { ctrl.Load(ctx) }).NotTo(Panic())

			m := ctrl.Model()
			Expect(m.Loaded).To(BeTrue())
			Expect(m.Phase).To(Equal(controller.PhasePaused))
			Expect(m.Snapshot.Alive).To(BeFalse())
			Expect(m.Snapshot.Height()).To(BeZero())
			Expect(m.Snapshot.TraitLabels).To(Equal([]string{"Slow", "Medium", "Fast"}))
			Expect(m.Err).To(MatchError(engine.ErrTransport))
		})
	})

	Describe("stepping", func() {
		BeforeEach(func() {
			ctrl.Load(ctx)
		})

		It("creates a death event for a vanished organism and fades it out", func() {
			fake.then(snapshot(true, sim.Grid{{0, 1}, {0, 2}}))
			Expect(ctrl.Step(ctx)).To(Succeed())

			m := ctrl.Model()
			Expect(m.Steps).To(Equal(1))
			Expect(m.Dead).To(HaveLen(1))
			Expect(m.Dead).To(HaveKey(sim.Coord{X: 0, Y: 0}))
			ev := m.Dead[sim.Coord{X: 0, Y: 0}]
			Expect(ev.Trait).To(Equal(sim.Cell(3)))
			Expect(ev.Progress).To(BeNumerically("<", 1))

			last := ev.Progress
			Eventually(func() bool {
				ev, ok := ctrl.Model().Dead[sim.Coord{X: 0, Y: 0}]
				if !ok {
					return true
				}
				Expect(ev.Progress).To(BeNumerically(">=", last))
				last = ev.Progress
				return false
			}).Should(BeTrue())
		})

		It("cancels a death when the cell is reoccupied", func() {
			fake.then(
				snapshot(true, sim.Grid{{0, 1}, {0, 2}}),
				snapshot(true, sim.Grid{{2, 1}, {0, 2}}),
			)
			Expect(ctrl.Step(ctx)).To(Succeed())
			Expect(ctrl.Step(ctx)).To(Succeed())
			Expect(ctrl.Model().Dead).To(BeEmpty())
		})

		It("rejects a manual step while another is in flight", func() {
			fake.hold()
			done := make(chan error, 1)
			go func() { done <- ctrl.Step(ctx) }()

			Eventually(fake.Inflight).Should(Equal(1))
			Expect(ctrl.Model().Loading).To(BeTrue())
			Expect(ctrl.Step(ctx)).To(MatchError(controller.ErrBusy))
			Expect(ctrl.Run()).To(MatchError(controller.ErrBusy))

			fake.release()
			Eventually(done).Should(Receive(BeNil()))
			Expect(ctrl.Model().Loading).To(BeFalse())
		})

		It("degrades to the empty snapshot when a step fails", func() {
			fake.then(snapshot(true, sim.Grid{{0, 1}, {0, 2}}))
			Expect(ctrl.Step(ctx)).To(Succeed())
			Expect(deadCount()).To(Equal(1))

			fake.fail(refused)
			Expect(ctrl.Step(ctx)).To(MatchError(engine.ErrTransport))

			m := ctrl.Model()
			Expect(m.Snapshot.Alive).To(BeFalse())
			Expect(m.Snapshot.Height()).To(BeZero())
			Expect(m.Dead).To(BeEmpty())
			Expect(m.Phase).To(Equal(controller.PhasePaused))
		})

		It("requires a load first", func() {
			newController(snapshot(true, sim.Grid{{1}}))
			Expect(ctrl.Step(ctx)).To(MatchError(controller.ErrNotLoaded))
			Expect(ctrl.Run()).To(MatchError(controller.ErrNotLoaded))
		})
	})

	Describe("running", func() {
		BeforeEach(func() {
			ctrl.Load(ctx)
		})

		It("polls the engine until paused", func() {
			Expect(ctrl.Run()).To(Succeed())
			Expect(ctrl.Model().Phase).To(Equal(controller.PhaseRunning))
			Eventually(steps).Should(BeNumerically(">=", 3))

			Expect(ctrl.Step(ctx)).To(MatchError(controller.ErrRunning))

			ctrl.Pause()
			Expect(running()).To(BeFalse())
			Eventually(func() bool { return ctrl.Model().Loading }).Should(BeFalse())
			n := fake.Steps()
			Consistently(fake.Steps).Should(Equal(n))
		})

		It("keeps at most one step in flight and drops overlapping ticks", func() {
			fake.hold()
			Expect(ctrl.Run()).To(Succeed())

			Eventually(fake.Inflight).Should(Equal(1))
			Consistently(fake.Steps).Should(Equal(1))
			Expect(ctrl.Dropped()).To(BeNumerically(">", 0))

			for i := 0; i < 3; i++ {
				fake.release()
			}
			Eventually(steps).Should(BeNumerically(">=", 3))
			Expect(fake.MaxInflight()).To(Equal(1))
		})

		It("applies an in-flight step after pause but schedules nothing more", func() {
			fake.hold()
			fake.then(snapshot(true, sim.Grid{{0, 1}, {0, 2}}))
			Expect(ctrl.Run()).To(Succeed())
			Eventually(fake.Inflight).Should(Equal(1))

			ctrl.Pause()
			fake.release()

			Eventually(steps).Should(Equal(1))
			Expect(ctrl.Model().Dead).To(HaveLen(1))
			Consistently(fake.Steps).Should(Equal(1))
			Expect(running()).To(BeFalse())
		})

		It("pauses by itself when the population ends", func() {
			fake.then(
				snapshot(true, sim.Grid{{3, 1}, {0, 0}}),
				snapshot(true, sim.Grid{{3, 0}, {0, 0}}),
				snapshot(false, sim.Grid{{0, 0}, {0, 0}}),
			)
			Expect(ctrl.Run()).To(Succeed())

			Eventually(running).Should(BeFalse())
			Expect(ctrl.Model().Snapshot.Alive).To(BeFalse())
			Consistently(fake.Steps).Should(Equal(3))
			Expect(ctrl.Run()).To(MatchError(controller.ErrTerminated))
		})

		It("refuses to run a population that has already ended", func() {
			newController(snapshot(false, sim.Grid{{0}}))
			ctrl.Load(ctx)
			Expect(ctrl.Run()).To(MatchError(controller.ErrTerminated))
			Consistently(fake.Steps).Should(BeZero())
		})
	})

	Describe("reset", func() {
		BeforeEach(func() {
			ctrl.Load(ctx)
		})

		It("stops the loop and clears death overlays", func() {
			fake.resetSnap = snapshot(true, sim.Grid{{1, 1}, {1, 1}})
			fake.then(snapshot(true, sim.Grid{{0, 0}, {0, 2}}))
			Expect(ctrl.Step(ctx)).To(Succeed())
			Expect(deadCount()).To(Equal(2))

			Expect(ctrl.Run()).To(Succeed())
			Eventually(steps).Should(BeNumerically(">=", 2))

			Expect(ctrl.Reset(ctx)).To(Succeed())
			m := ctrl.Model()
			Expect(m.Running).To(BeFalse())
			Expect(m.Dead).To(BeEmpty())
			Eventually(func() controller.Phase { return ctrl.Model().Phase }).Should(Equal(controller.PhasePaused))
			Expect(m.Steps).To(BeZero())
			Expect(m.Snapshot.Grid).To(Equal(sim.Grid{{1, 1}, {1, 1}}))

			n := fake.Steps()
			Consistently(fake.Steps).Should(Equal(n))
		})

		It("retries once after a transport failure", func() {
			fake.resetErrs = []error{refused}
			Expect(ctrl.Reset(ctx)).To(Succeed())
			Expect(fake.Resets()).To(Equal(2))
			Expect(ctrl.Model().Err).NotTo(HaveOccurred())
		})

		It("reports a second failure and keeps the last snapshot", func() {
			before := ctrl.Model().Snapshot
			fake.resetErrs = []error{refused, refused}

			Expect(ctrl.Reset(ctx)).To(MatchError(engine.ErrTransport))
			Expect(fake.Resets()).To(Equal(2))

			m := ctrl.Model()
			Expect(m.Snapshot).To(BeIdenticalTo(before))
			Expect(m.Phase).To(Equal(controller.PhasePaused))
			Expect(m.Dead).To(BeEmpty())
			Expect(m.Err).To(MatchError(engine.ErrTransport))
		})

		It("does not retry a malformed response", func() {
			fake.resetErrs = []error{&engine.MalformedResponseError{Op: "reset", Field: "grid", Err: errors.New("missing")}}
			Expect(ctrl.Reset(ctx)).To(MatchError(engine.ErrMalformed))
			Expect(fake.Resets()).To(Equal(1))
		})

		It("discards a step result issued before the reset", func() {
			fake.resetSnap = snapshot(true, sim.Grid{{2, 2}, {2, 2}})
			fake.then(snapshot(true, sim.Grid{{0, 0}, {0, 0}}))
			fake.hold()

			done := make(chan error, 1)
			go func() { done <- ctrl.Step(ctx) }()
			Eventually(fake.Inflight).Should(Equal(1))

			Expect(ctrl.Reset(ctx)).To(Succeed())
			fake.release()
			Eventually(done).Should(Receive())

			m := ctrl.Model()
			Expect(m.Snapshot.Grid).To(Equal(sim.Grid{{2, 2}, {2, 2}}))
			Expect(m.Steps).To(BeZero())
			Expect(m.Dead).To(BeEmpty())
		})

		It("sends the last applied config", func() {
			cfg := sim.DefaultConfig()
			cfg.TraitName = "strength"
			Expect(ctrl.ApplyConfig(ctx, cfg)).To(Succeed())
			Expect(ctrl.Reset(ctx)).To(Succeed())

			Expect(fake.resetCfgs).NotTo(BeEmpty())
			sent := fake.resetCfgs[len(fake.resetCfgs)-1]
			Expect(sent).NotTo(BeNil())
			Expect(sent.TraitName).To(Equal("strength"))
		})
	})

	Describe("config", func() {
		BeforeEach(func() {
			ctrl.Load(ctx)
		})

		It("reads the engine config", func() {
			cfg, err := ctrl.Config(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(*cfg).To(Equal(sim.DefaultConfig()))
		})

		It("reports a rejected config without changing state", func() {
			fake.accept = false
			before := ctrl.Model()

			Expect(ctrl.ApplyConfig(ctx, sim.DefaultConfig())).To(MatchError(controller.ErrConfigRejected))

			after := ctrl.Model()
			Expect(after.Phase).To(Equal(before.Phase))
			Expect(after.Snapshot).To(BeIdenticalTo(before.Snapshot))
		})
	})

	Describe("observers", func() {
		It("sees the load, each step and each reset in order", func() {
			rec := &recorder{}
			ctrl.AddObserver(rec)

			ctrl.Load(ctx)
			Expect(ctrl.Step(ctx)).To(Succeed())
			Expect(ctrl.Step(ctx)).To(Succeed())
			Expect(ctrl.Reset(ctx)).To(Succeed())
			Expect(ctrl.Step(ctx)).To(Succeed())

			Expect(rec.Starts()).To(Equal(2))
			Expect(rec.Steps()).To(Equal([]int{1, 2, 1}))
		})
	})

	Describe("updates", func() {
		It("signals model changes", func() {
			ctrl.Load(ctx)
			Eventually(ctrl.Updates()).Should(Receive())
		})
	})

	Describe("close", func() {
		It("stops polling and rejects further commands", func() {
			ctrl.Load(ctx)
			Expect(ctrl.Run()).To(Succeed())
			Eventually(fake.Steps).Should(BeNumerically(">=", 1))

			ctrl.Close()
			n := fake.Steps()
			Consistently(fake.Steps).Should(Equal(n))
			Expect(ctrl.Step(ctx)).To(MatchError(controller.ErrClosed))
			Expect(ctrl.Run()).To(MatchError(controller.ErrClosed))
			Expect(ctrl.Reset(ctx)).To(MatchError(controller.ErrClosed))
		})
	})
})
