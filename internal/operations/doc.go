// Package operations runs the forecasting pipeline as an ordered list of
// steps over an explicit RunState.
//
// Core Components:
//
// Step: one unit of work, such as loading records or evaluating models.
// A step reads what earlier steps left on the RunState and stores its own
// results there. It never mutates another step's output in place.
//
// Registry: keeps steps in registration order, which is execution order.
//
// Manager: executes the registered steps one by one inside a span per
// step, recording step metrics. The first failing step fails the run and
// every later step is marked skipped.
//
// Example usage:
//
//	deps := operations.Dependencies{Config: cfg, Paths: paths, Logger: logger}
//	manager, err := operations.NewAggregatePipeline(deps)
//	state := operations.NewRunState(runID, inputPath)
//	err = manager.Run(ctx, state)
package operations
