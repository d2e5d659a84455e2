// Package approvia is a human-in-the-loop approval and execution engine for
// LLM-driven email/calendar assistants.  It sits between an agent that
// proposes side-effecting actions and the provider backends that perform
// them: a router decides whether a conversation needs human sign-off, an
// approval orchestrator runs a suspend/resume review loop with bounded
// retries and reviewer edits, an executor layer picks a capable provider
// (direct API with per-user credentials, or a generic toolset), and an
// aggregator folds per-action results into one coherent outcome rendered as
// a single message.
//
// The package is consumed as a library by a hosting workflow engine.  The
// engine owns conversation transport and persistence of its own state;
// approvia owns the approval state machine, provider selection and result
// semantics.
package approvia
