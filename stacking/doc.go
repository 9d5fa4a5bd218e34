// Package stacking provides the core track stacking and classification engine
// for the stacksim event loop.
//
// # Reading Guide
//
// Start with these three files to understand the stacking kernel:
//   - track.go: the Track and Trajectory handles the engine moves around
//   - stack.go: the LIFO TrackStack primitive (urgent, waiting tiers, postpone)
//   - coordinator.go: the StackCoordinator push/pop/promote state machine
//
// # Architecture
//
// The stacking package defines interfaces and the container machinery;
// collaborators live in sub-packages:
//   - stacking/gun/: synthetic primary generation and the transport stand-in
//   - stacking/dispatch/: worker pool consuming released sub-batches
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - Track: opaque simulation-track handle (category, parent id, energy, destroy)
//   - Trajectory: optional visualization record paired with a Track
//   - StackingPolicy: per-track classification plus stage/event callbacks
//
// One StackCoordinator instance belongs to exactly one worker; nothing in this
// package locks. Released sub-batches are the only cross-worker hand-off point.
package stacking
