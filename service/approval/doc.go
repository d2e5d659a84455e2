// Package approval implements the human-in-the-loop approval loop for
// side-effecting actions.  A request is rendered into a prompt, the calling
// workflow suspends, and every human response is validated and either
// terminates the loop (approve/reject) or re-renders the prompt.  The loop
// state is persisted per session so the process may restart between
// suspension and resumption.
package approval
