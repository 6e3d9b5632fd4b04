// Package sim describes a spiking network model and the engine that runs it,
// without implementing the engine itself.
//
// # Reading Guide
//
// Start with these files:
//   - recipe.go: Recipe, the description of cells, connections and event generators
//   - partition.go: PartitionLoadBalance, which groups cells into a DomainDecomposition
//   - simulation.go: Engine and Simulation, the capability interface of an engine
//
// The orchestration pattern is always the same:
//
//	recipe → PartitionLoadBalance → Engine.NewSimulation → Run → collect spikes and samples
//
// # Architecture
//
// The sim package defines interfaces and plain data types; implementations live in
// sub-packages:
//   - sim/relay/: a deterministic event-relay engine
//   - sim/ring/: the ring network recipe and its run configuration
//   - sim/trace/: sampled traces (time, value), their reader and writer
//
// Engines register themselves via init() functions that call RegisterEngine.
// Import an engine package for its side effect to make it available by name.
package sim
