// Command safemarl trains and evaluates safe multi-agent policies.
//
// Usage:
//
//	# Train and evaluate with a configuration file
//	safemarl train --config config.yaml
//
//	# List stored runs, or show one run
//	safemarl inspect --db out/runs.db
//	safemarl inspect --db out/runs.db --run <id> --json
//
//	# Evaluate saved parameters again
//	safemarl replay --params output --output output/replay
//
//	# Serve the particle scenario over gRPC for a remote trainer
//	safemarl envserver --addr :50061
package main

func main() {
	Execute()
}
