// Package policy provides optional declarative rules applied on top of the
// approval engine - for example to force or bypass human approval for
// selected actions, or to block actions outright.
package policy
