// Package orchestrator runs commands in a freshly built iRODS zone.
//
// A run moves through a fixed sequence of states:
//
//	Created -> TopologyUp -> PackagesInstalled -> CatalogReady ->
//	ProviderReady -> ConsumersReady -> Executing -> Collected -> TornDown
//
// Each state is entered when the step leading to it succeeded. When a step
// fails the run skips straight to cleanup: logs are collected and the
// topology, volumes included, is torn down before the error is returned.
// Cleanup happens exactly once on every path out of Run, including panics
// and cancellation of the run context.
//
// # Commands
//
// Commands run one after another on the target container, as the service
// account in its home directory, with their output streamed to the log.
// Under the default continue policy every command runs and the exit code of
// the last one is the result of the run. The abort policy stops at the first
// nonzero exit code and reports it.
//
// # State changes
//
// Callers follow a run with SetStateChangeCallback or
// SubscribeToStateChanges:
//
//	o := orchestrator.New(cfg)
//	events := o.SubscribeToStateChanges()
//	go func() {
//		for event := range events {
//			fmt.Printf("%s -> %s\n", event.OldState, event.NewState)
//		}
//	}()
//	outcome, err := o.Run(ctx, plan)
package orchestrator
