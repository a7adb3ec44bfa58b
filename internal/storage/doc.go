// Package storage declares the persistence contracts shared by the
// goal-forge services. Implementations live in subpackages; sqlite is the
// production backend.
package storage
