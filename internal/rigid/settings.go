package rigid

import (
	"fmt"

	"github.com/san-kum/rigidkit/internal/native"
)

// Transform is a world or local pose.
type Transform = native.Transform

type SolverType = native.SolverType

const (
	ProjectedGaussSeidel = native.SolverPGS
	TemporalGaussSeidel  = native.SolverTGS
)

type BroadphaseType int

const (
	SweepAndPruneBroadphase BroadphaseType = iota
	MultiboxPruningBroadphase
	AutomaticBoxPruning
)

type FrictionType int

const (
	PatchFrictionType FrictionType = iota
	OneDirectionalFrictionType
	TwoDirectionalFrictionType
)

type ContactsGeneration int

const (
	LegacyContactsGeneration ContactsGeneration = iota
	PersistentContactManifold
)

type ContactPairsMode int

const (
	DefaultContactPairs ContactPairsMode = iota
	EnableKinematicKinematicPairs
	EnableKinematicStaticPairs
	EnableAllContactPairs
)

// SceneSettings are the per-scene knobs a System applies to every scene it
// creates. Only the solver type reaches the engine; the rest are recorded
// and reported to the debug visualizer.
type SceneSettings struct {
	Solver             SolverType
	Broadphase         BroadphaseType
	Friction           FrictionType
	ContactsGeneration ContactsGeneration
	ContactPairs       ContactPairsMode
}

func DefaultSceneSettings() SceneSettings {
	return SceneSettings{
		Solver:             ProjectedGaussSeidel,
		Broadphase:         SweepAndPruneBroadphase,
		Friction:           PatchFrictionType,
		ContactsGeneration: PersistentContactManifold,
		ContactPairs:       DefaultContactPairs,
	}
}

// ForceMode values match the engine's numbering, including the gap before
// Acceleration.
type ForceMode int

const (
	Force          ForceMode = 0
	Impulse        ForceMode = 1
	VelocityChange ForceMode = 2
	Acceleration   ForceMode = 5
)

func (m ForceMode) native() (native.ForceMode, error) {
	switch m {
	case Force:
		return native.Force, nil
	case Impulse:
		return native.Impulse, nil
	case VelocityChange:
		return native.VelocityChange, nil
	case Acceleration:
		return native.Acceleration, nil
	}
	return 0, fmt.Errorf("rigid: force mode %d: %w", int(m), native.ErrInvalidArgument)
}

func (m ForceMode) String() string {
	switch m {
	case Force:
		return "force"
	case Impulse:
		return "impulse"
	case VelocityChange:
		return "velocity_change"
	case Acceleration:
		return "acceleration"
	}
	return fmt.Sprintf("ForceMode(%d)", int(m))
}

type CollisionDetectionMode int

const (
	Discrete CollisionDetectionMode = iota
	// Continuous turns on sweeping like ContinuousDynamic; the getter
	// reports ContinuousDynamic afterwards.
	Continuous
	ContinuousDynamic
	ContinuousSpeculative
)

// RigidbodyConstraints freezes degrees of freedom.
type RigidbodyConstraints int

const (
	ConstraintsNone RigidbodyConstraints = 0

	FreezePositionX RigidbodyConstraints = 2
	FreezePositionY RigidbodyConstraints = 4
	FreezePositionZ RigidbodyConstraints = 8
	FreezeRotationX RigidbodyConstraints = 16
	FreezeRotationY RigidbodyConstraints = 32
	FreezeRotationZ RigidbodyConstraints = 64

	FreezePosition = FreezePositionX | FreezePositionY | FreezePositionZ
	FreezeRotation = FreezeRotationX | FreezeRotationY | FreezeRotationZ
	FreezeAll      = FreezePosition | FreezeRotation
)

var constraintLocks = [...]struct {
	c RigidbodyConstraints
	l native.LockFlags
}{
	{FreezePositionX, native.LockLinearX},
	{FreezePositionY, native.LockLinearY},
	{FreezePositionZ, native.LockLinearZ},
	{FreezeRotationX, native.LockAngularX},
	{FreezeRotationY, native.LockAngularY},
	{FreezeRotationZ, native.LockAngularZ},
}

func (c RigidbodyConstraints) LockFlags() native.LockFlags {
	var out native.LockFlags
	for _, m := range constraintLocks {
		if c&m.c == m.c {
			out |= m.l
		}
	}
	return out
}

func ConstraintsFromLockFlags(f native.LockFlags) RigidbodyConstraints {
	var out RigidbodyConstraints
	for _, m := range constraintLocks {
		if f&m.l == m.l {
			out |= m.c
		}
	}
	return out
}

// SceneTransmitFlags select what a scene streams to the debug visualizer.
type SceneTransmitFlags uint8

const (
	TransmitConstraints SceneTransmitFlags = 1 << iota
	TransmitContacts
	TransmitSceneQueries

	TransmitAll = TransmitConstraints | TransmitContacts | TransmitSceneQueries
)

// PVDConfig enables the debug visualizer connection of a System.
type PVDConfig struct {
	Host  string
	Port  int
	Flags SceneTransmitFlags
}

func DefaultPVDConfig() PVDConfig {
	return PVDConfig{Host: "127.0.0.1", Port: 5425, Flags: TransmitAll}
}

func (c PVDConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
