// Package analysis post-processes recorded scene runs.
//
// The package works on [sim.Result] values, either fresh from a run or
// reloaded from storage:
//
//   - [PowerSpectrum]: windowed amplitude spectrum of a sampled signal
//   - [SettleTime], [Bounces]: when a pile comes to rest, how often a body bounced
//   - [Divergence], [DivergenceRate]: sensitivity to initial conditions
//   - [GeneratePhasePortrait]: one body's trajectory in a 2D state plane
//
// # Sensitivity
//
// Stacks and piles amplify small perturbations through contact ordering:
//
//	sep := analysis.Divergence(base, perturbed, 3)
//	if analysis.DivergenceRate(sep, dt) > 0 {
//	    // separation grows
//	}
package analysis
