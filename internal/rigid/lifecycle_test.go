package rigid

import (
	"errors"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigidkit/internal/native"
	"github.com/san-kum/rigidkit/internal/native/nativetest"
	"github.com/san-kum/rigidkit/internal/native/planar"
)

var _ = Describe("System lifecycle", func() {
	var (
		engine *planar.Engine
		rec    *nativetest.Recorder
		f      *Foundation
		sys    *System
	)

	BeforeEach(func() {
		engine = planar.New()
		rec = nativetest.NewRecorder(engine)

		var err error
		f, err = NewFoundation(rec)
		Expect(err).NotTo(HaveOccurred())
		sys, err = NewSystem(f, DefaultSystemConfig())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(sys.Close()).To(Succeed())
		Expect(f.Close()).To(Succeed())
		Expect(engine.Counts()).To(Equal(planar.Counts{}))
	})

	It("releases each native object once however often Close is called", func() {
		sc, err := sys.CreateDefaultScene()
		Expect(err).NotTo(HaveOccurred())

		Expect(sc.Close()).To(Succeed())
		Expect(sc.Close()).To(Succeed())
		Expect(sys.Close()).To(Succeed())
		Expect(sys.Close()).To(Succeed())

		Expect(rec.Calls("ReleaseScene")).To(Equal(1))
		Expect(rec.Calls("ReleaseDispatcher")).To(Equal(1))
		Expect(rec.Calls("ReleasePhysics")).To(Equal(1))
	})

	It("closes scenes and their actors before the dispatcher and physics", func() {
		for i := 0; i < 2; i++ {
			sc, err := sys.CreateDefaultScene()
			Expect(err).NotTo(HaveOccurred())
			_, err = sc.AddDynamicSphere(0.5, mgl64.Vec3{0, 1, 0}, mgl64.QuatIdent(), 1, nil)
			Expect(err).NotTo(HaveOccurred())
		}

		var disposing []uint64
		sys.ForEachScene(func(sc *Scene) {
			sc.OnDisposing(func(s *Scene) { disposing = append(disposing, s.ID()) })
		})

		Expect(sys.Close()).To(Succeed())
		Expect(disposing).To(ConsistOf(uint64(1), uint64(2)))
		Expect(sys.SceneCount()).To(BeZero())

		log := rec.Log()
		lastScene := lastIndex(log, "ReleaseScene")
		Expect(lastIndex(log, "ReleaseActor")).To(BeNumerically("<", lastScene))
		Expect(lastScene).To(BeNumerically("<", slices.Index(log, "ReleaseDispatcher")))
		Expect(slices.Index(log, "ReleaseDispatcher")).To(BeNumerically("<", slices.Index(log, "ReleasePhysics")))
		Expect(rec.Calls("ReleaseActor")).To(Equal(2))
	})

	It("fails every call after dispose", func() {
		sc, err := sys.CreateDefaultScene()
		Expect(err).NotTo(HaveOccurred())
		rb, err := sc.AddDynamicBox(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}, mgl64.QuatIdent(), 1, nil)
		Expect(err).NotTo(HaveOccurred())
		box, err := GetComponent[*BoxCollider](rb)
		Expect(err).NotTo(HaveOccurred())

		Expect(sys.Close()).To(Succeed())

		_, err = rb.Mass()
		Expect(err).To(MatchError(ErrUseAfterDispose))
		_, err = box.Size()
		Expect(err).To(MatchError(ErrUseAfterDispose))
		Expect(sc.Step()).To(MatchError(ErrUseAfterDispose))
		_, err = sys.CreateScene(mgl64.Vec3{})
		Expect(err).To(MatchError(ErrUseAfterDispose))
	})

	It("maps a handle released underneath a wrapper to ErrUseAfterDispose", func() {
		sc, err := sys.CreateDefaultScene()
		Expect(err).NotTo(HaveOccurred())
		rb, err := sc.AddDynamicSphere(0.5, mgl64.Vec3{}, mgl64.QuatIdent(), 1, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.ReleaseActor(rb.Handle())).To(Succeed())
		_, err = rb.Velocity()
		Expect(err).To(MatchError(ErrUseAfterDispose))

		Expect(sc.Close()).To(MatchError(ErrUseAfterDispose))
		Expect(engine.Counts().Scenes).To(BeZero())
	})

	It("rejects an Update issued while the same scene is stepping", func() {
		sc, err := sys.CreateDefaultScene()
		Expect(err).NotTo(HaveOccurred())

		var nested error
		sc.OnUpdating(func(uint64) { nested = sc.Update(DefaultTimestep) })

		Expect(sc.Step()).To(Succeed())
		Expect(nested).To(MatchError(ErrStepInProgress))
		Expect(sc.FrameCount()).To(Equal(uint64(1)))
		Expect(rec.Calls("Simulate")).To(Equal(1))
	})

	It("reports a failed step as a NativeCallError and keeps the frame count", func() {
		sc, err := sys.CreateDefaultScene()
		Expect(err).NotTo(HaveOccurred())
		updated := 0
		sc.OnUpdated(func(uint64) { updated++ })

		rec.FetchCode(native.CodeUnstable)
		err = sc.Step()
		Expect(err).To(MatchError(ErrNativeCall))

		var nce *NativeCallError
		Expect(errors.As(err, &nce)).To(BeTrue())
		Expect(nce.Code).To(Equal(native.CodeUnstable))
		Expect(sc.FrameCount()).To(BeZero())
		Expect(updated).To(BeZero())

		rec.FetchCode(native.CodeOK)
		Expect(sc.Step()).To(Succeed())
		Expect(sc.FrameCount()).To(Equal(uint64(1)))
	})

	It("releases the shape when actor creation fails", func() {
		sc, err := sys.CreateDefaultScene()
		Expect(err).NotTo(HaveOccurred())

		rec.FailNext("CreateDynamicActor", native.ErrInvalidArgument)
		_, err = sc.AddDynamicSphere(0.5, mgl64.Vec3{}, mgl64.QuatIdent(), 1, nil)
		Expect(err).To(MatchError(ErrNativeCall))
		Expect(err).To(MatchError(native.ErrInvalidArgument))

		Expect(rec.Calls("ReleaseShape")).To(Equal(1))
		Expect(engine.Counts().Shapes).To(BeZero())
		Expect(sc.ActiveActorCount()).To(BeZero())
	})

	It("releases the actor when adding it to the scene fails", func() {
		sc, err := sys.CreateDefaultScene()
		Expect(err).NotTo(HaveOccurred())

		rec.FailNext("AddActor", native.ErrInvalidArgument)
		_, err = sc.AddStaticBox(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}, mgl64.QuatIdent(), nil)
		Expect(err).To(HaveOccurred())
		Expect(engine.Counts().Actors).To(BeZero())
		Expect(engine.Counts().Shapes).To(BeZero())
	})

	It("keeps an actor whose release failed and releases it on retry", func() {
		sc, err := sys.CreateDefaultScene()
		Expect(err).NotTo(HaveOccurred())
		rb, err := sc.AddDynamicSphere(0.5, mgl64.Vec3{}, mgl64.QuatIdent(), 1, nil)
		Expect(err).NotTo(HaveOccurred())

		rec.FailNext("ReleaseActor", native.ErrInvalidArgument)
		Expect(sc.Destroy(rb)).To(MatchError(ErrNativeCall))
		Expect(rb.Handle().IsNull()).To(BeFalse())
		Expect(rb.Collider().Shape().IsNull()).To(BeFalse())
		Expect(sc.ActiveActorCount()).To(Equal(1))
		_, err = rb.Mass()
		Expect(err).NotTo(HaveOccurred())

		Expect(sc.Destroy(rb)).To(Succeed())
		Expect(rb.Handle().IsNull()).To(BeTrue())
		Expect(sc.ActiveActorCount()).To(BeZero())
		Expect(rec.Calls("RemoveActor")).To(Equal(1))
		Expect(rec.Calls("ReleaseActor")).To(Equal(2))
		Expect(engine.Counts().Actors).To(BeZero())
	})

	It("keeps an actor in the scene when removing it fails", func() {
		sc, err := sys.CreateDefaultScene()
		Expect(err).NotTo(HaveOccurred())
		rb, err := sc.AddDynamicSphere(0.5, mgl64.Vec3{}, mgl64.QuatIdent(), 1, nil)
		Expect(err).NotTo(HaveOccurred())

		rec.FailNext("RemoveActor", native.ErrInvalidArgument)
		Expect(sc.Destroy(rb)).To(MatchError(ErrNativeCall))
		Expect(rec.Calls("ReleaseActor")).To(BeZero())
		Expect(sc.Step()).To(Succeed())

		Expect(sc.Destroy(rb)).To(Succeed())
		Expect(rec.Calls("RemoveActor")).To(Equal(2))
	})

	It("keeps the scene when its release fails and retries it on the next Close", func() {
		sc, err := sys.CreateDefaultScene()
		Expect(err).NotTo(HaveOccurred())
		_, err = sc.AddDynamicSphere(0.5, mgl64.Vec3{}, mgl64.QuatIdent(), 1, nil)
		Expect(err).NotTo(HaveOccurred())
		disposing := 0
		sc.OnDisposing(func(*Scene) { disposing++ })

		rec.FailNext("ReleaseScene", native.ErrInvalidArgument)
		Expect(sc.Close()).To(MatchError(ErrNativeCall))
		Expect(sc.Handle().IsNull()).To(BeFalse())
		Expect(sys.SceneCount()).To(Equal(1))
		Expect(engine.Counts().Scenes).To(Equal(1))

		Expect(sys.Close()).To(Succeed())
		Expect(sc.Handle().IsNull()).To(BeTrue())
		Expect(sys.SceneCount()).To(BeZero())
		Expect(disposing).To(Equal(1))
		Expect(rec.Calls("ReleaseScene")).To(Equal(2))
		Expect(rec.Calls("ReleaseActor")).To(Equal(1))
	})

	It("stays open when a scene cannot close and finishes on retry", func() {
		sc, err := sys.CreateDefaultScene()
		Expect(err).NotTo(HaveOccurred())
		_, err = sc.AddDynamicSphere(0.5, mgl64.Vec3{}, mgl64.QuatIdent(), 1, nil)
		Expect(err).NotTo(HaveOccurred())

		rec.FailNext("ReleaseActor", native.ErrInvalidArgument)
		Expect(sys.Close()).To(MatchError(ErrNativeCall))
		Expect(rec.Calls("ReleaseScene")).To(BeZero())
		Expect(rec.Calls("ReleasePhysics")).To(BeZero())
		_, err = sys.CreateScene(mgl64.Vec3{})
		Expect(err).To(MatchError(ErrUseAfterDispose))

		Expect(sys.Close()).To(Succeed())
		Expect(rec.Calls("ReleaseScene")).To(Equal(1))
		Expect(rec.Calls("ReleasePhysics")).To(Equal(1))
	})

	It("keeps the foundation when its release fails", func() {
		Expect(sys.Close()).To(Succeed())

		rec.FailNext("ReleaseFoundation", native.ErrInvalidArgument)
		Expect(f.Close()).To(MatchError(ErrNativeCall))
		_, err := f.native()
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("NewSystem", func() {
	It("releases the physics instance when the dispatcher cannot be created", func() {
		engine := planar.New()
		rec := nativetest.NewRecorder(engine)
		f, err := NewFoundation(rec)
		Expect(err).NotTo(HaveOccurred())

		rec.FailNext("CreateDispatcher", native.ErrInvalidArgument)
		_, err = NewSystem(f, DefaultSystemConfig())
		Expect(err).To(MatchError(ErrNativeCall))
		Expect(rec.Calls("ReleasePhysics")).To(Equal(1))

		Expect(f.Close()).To(Succeed())
		Expect(engine.Counts()).To(Equal(planar.Counts{}))
	})

	It("runs without a visualizer when the connection is refused", func() {
		f, err := NewFoundation(planar.New())
		Expect(err).NotTo(HaveOccurred())
		cfg := DefaultSystemConfig()
		cfg.PVD = &PVDConfig{Host: "127.0.0.1", Port: 1, Flags: TransmitAll}

		sys, err := NewSystem(f, cfg)
		Expect(err).NotTo(HaveOccurred())
		sc, err := sys.CreateDefaultScene()
		Expect(err).NotTo(HaveOccurred())
		Expect(sc.Step()).To(Succeed())
		Expect(sys.Close()).To(Succeed())
		Expect(f.Close()).To(Succeed())
	})
})

func lastIndex(log []string, op string) int {
	for i := len(log) - 1; i >= 0; i-- {
		if log[i] == op {
			return i
		}
	}
	return -1
}
