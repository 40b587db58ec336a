// Package rigid is a managed rigid-body toolkit over a [native.Engine].
//
// Objects form an ownership tree:
//
//   - [Foundation]: one per engine context; [SharedFoundation] keeps a
//     process-wide instance
//   - [System]: a physics instance with its dispatcher; owns its scenes
//   - [Scene]: a simulation world; owns the actors created in it
//   - [Rigidstatic], [Rigidbody]: actors, each with one [Collider]
//
// Close on a System closes its scenes, and Close on a Scene releases its
// actors, so releasing the root frees the whole tree. Every Close is
// idempotent. Objects that become unreachable without Close are released by
// a runtime cleanup; that path is a fallback and gives no ordering.
//
// # Example
//
//	f, _ := rigid.NewFoundation(planar.New())
//	sys, _ := rigid.NewSystem(f, rigid.DefaultSystemConfig())
//	defer sys.Close()
//	sc, _ := sys.CreateDefaultScene()
//	sc.AddStaticPlane(native.NewPlane(0, 1, 0, 0), mgl64.Vec3{}, mgl64.QuatIdent(), nil)
//	ball, _ := sc.AddDynamicSphere(0.5, mgl64.Vec3{0, 5, 0}, mgl64.QuatIdent(), 1, nil)
//	for i := 0; i < 120; i++ {
//		sc.Step()
//	}
//	pos, _ := ball.Position()
//
// # Thread Safety
//
// Registries, handles and observer lists are guarded, so actors may be
// created and destroyed from several goroutines. Update on one scene must
// not overlap itself; the second caller gets [ErrStepInProgress].
package rigid
