// Package storage defines the persistence interfaces for simulation records:
// scenario definitions, session progress, the append-only turn log, and
// grading reports. Implementations live in subpackages.
package storage
