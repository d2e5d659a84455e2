// Package formatter turns aggregated execution outcomes into the message
// returned to the calling agent or supervisor.  User-visible failure is
// always a rendered text summary, never a raw error.
package formatter

import (
	"fmt"
	"strings"

	"github.com/arkadia-labs/approvia/model/outcome"
	"github.com/arkadia-labs/approvia/service/approval"
)

// Service renders final messages.
type Service struct{}

// New creates a formatter.
func New() *Service { return &Service{} }

// FormatAggregated renders the aggregate into one supervisor message.
func (s *Service) FormatAggregated(aggregated *outcome.Aggregated) string {
	if aggregated == nil {
		return "No result is available."
	}
	var sections []string
	switch aggregated.Status {
	case outcome.StatusSuccess:
		sections = append(sections, headline("✓", aggregated.Action, "completed"))
	case outcome.StatusPartialSuccess:
		sections = append(sections, headline("◐", aggregated.Action, "partially completed"))
	case outcome.StatusCancelled:
		sections = append(sections, headline("✕", aggregated.Action, "cancelled"))
	default:
		sections = append(sections, headline("✕", aggregated.Action, "failed"))
	}
	if aggregated.SuccessMsg != "" {
		sections = append(sections, aggregated.SuccessMsg)
	}
	if aggregated.ErrorMsg != "" {
		sections = append(sections, aggregated.ErrorMsg)
	}
	if aggregated.InfoMsg != "" {
		sections = append(sections, aggregated.InfoMsg)
	}
	return strings.Join(sections, "\n")
}

// FormatRejection renders the terminal message for a rejected approval.
func (s *Service) FormatRejection(rejected *approval.Outcome) string {
	if rejected == nil || rejected.Reason == "" {
		return approval.CancellationNotice
	}
	return rejected.Reason
}

func headline(mark, actionName, verdict string) string {
	if actionName == "" {
		return fmt.Sprintf("%s Request %s.", mark, verdict)
	}
	return fmt.Sprintf("%s Action %q %s.", mark, actionName, verdict)
}
