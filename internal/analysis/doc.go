// Package analysis characterises how a relaxation run converged.
//
// The decay rate of the step size plays the role a Lyapunov exponent
// plays for a trajectory: a negative rate means successive iterations
// contract, and its magnitude says how fast.
//
//	rep := analysis.Analyze(result.History, cfg.ConvergenceEpsilon)
//	if rep.Rate >= 0 {
//	    // not contracting: raise damping or lower the timestep
//	}
package analysis
