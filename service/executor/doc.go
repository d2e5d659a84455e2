// Package executor defines the provider-selection layer that bridges
// approved action requests with the backing provider implementations.  It is
// effectively a glue layer between the approval loop and the concrete
// calendar/email backends.
package executor
