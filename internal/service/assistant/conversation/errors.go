package conversation

import (
	"errors"
	"fmt"
	"strings"

	"flowbot/internal/domain"
)

// ErrorClass buckets collaborator failures for the replacement message
type ErrorClass string

const (
	ClassCaseNotFound ErrorClass = "case_not_found"
	ClassServer       ErrorClass = "server"
	ClassGeneric      ErrorClass = "generic"
)

// Classify maps a query or hypothesis failure to its class.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassGeneric
	}
	if errors.Is(err, domain.ErrNotFound) || strings.Contains(strings.ToLower(err.Error()), "case not found") {
		return ClassCaseNotFound
	}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.IsServerError() {
		return ClassServer
	}
	return ClassGeneric
}

// ErrorMessage renders the assistant text that replaces a failed request.
func ErrorMessage(class ErrorClass, err error, query, caseID string, demo bool) string {
	raw := "unknown error"
	if err != nil {
		raw = err.Error()
	}

	switch class {
	case ClassCaseNotFound:
		if demo {
			return "The sample case could not be found. Reload the demo to restore the sample data, then try again."
		}
		return fmt.Sprintf("Case %q was not found. It may have been deleted or not finished uploading. "+
			"Go back to your cases to create one or upload an extraction, then ask again.", caseID)

	case ClassServer:
		if demo {
			return fmt.Sprintf("The sample data service had a server-side problem answering %q. "+
				"This is not something you did. Details: %s", query, raw)
		}
		return fmt.Sprintf("Server error: the analysis service failed while answering %q for case %s. "+
			"This is a server-side issue, please report it with these details: %s", query, caseID, raw)

	default:
		if demo {
			return fmt.Sprintf("Sorry, I couldn't answer that about the sample case. Details: %s", raw)
		}
		return fmt.Sprintf("Sorry, I ran into a problem answering your question. Details: %s", raw)
	}
}
