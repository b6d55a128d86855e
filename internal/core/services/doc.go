// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The pipeline, generator and runner hold no adapter imports; every
// external system is reached through a port.
package services
