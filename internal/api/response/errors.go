package response

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

type fieldHint struct {
	match      []string
	suggestion string
}

var fieldHints = []fieldHint{
	{[]string{"email"}, "Ensure the email address is in a valid format (e.g., user@example.com)"},
	{[]string{"password"}, "Password must be at least 8 characters long and include a mix of letters and numbers"},
	{[]string{"phone"}, "Phone number should be in a valid format with area code"},
	{[]string{"date"}, "Date should be in YYYY-MM-DD format"},
	{[]string{"price", "amount"}, "Amount should be a positive number without currency symbols"},
}

// ValidationError reports per-field failures. Suggestions are derived from
// the field names and deduplicated.
func ValidationError(fieldErrors map[string][]string, operation string) *Problem {
	if operation == "" {
		operation = "operation"
	}
	fields := make([]string, 0, len(fieldErrors))
	for f := range fieldErrors {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	suggestions := []string{}
	for _, f := range fields {
		for _, h := range fieldHints {
			if !containsAny(f, h.match) || slices.Contains(suggestions, h.suggestion) {
				continue
			}
			suggestions = append(suggestions, h.suggestion)
		}
	}

	return New(
		fmt.Sprintf("Validation failed for %s. Please check the provided data and correct the errors.", operation),
		http.StatusUnprocessableEntity,
		"VALIDATION_ERROR",
		map[string]any{
			"failed_fields": fields,
			"field_errors":  fieldErrors,
			"suggestions":   suggestions,
			"total_errors":  len(fields),
		},
		nil,
	)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// NotFoundError is also used for rows that exist in another organization,
// so the message never confirms existence.
func NotFoundError(resourceType, id string, criteria map[string]any) *Problem {
	msg := fmt.Sprintf("The requested %s was not found or you don't have permission to access it.", resourceType)
	if id != "" {
		msg = fmt.Sprintf("The %s with ID '%s' was not found or you don't have permission to access it.", resourceType, id)
	}
	details := map[string]any{
		"resource_type": resourceType,
		"resource_id":   nilIfEmpty(id),
		"possible_reasons": []string{
			"The resource may have been deleted",
			"You may not have permission to access this resource",
			"The ID may be incorrect or invalid",
		},
	}
	if len(criteria) > 0 {
		details["search_criteria"] = criteria
	}
	return New(msg, http.StatusNotFound, "RESOURCE_NOT_FOUND", details, nil)
}

func UnauthorizedError(action string, context map[string]any) *Problem {
	if action == "" {
		action = "perform this action"
	}
	details := map[string]any{
		"required_action": action,
		"possible_solutions": []string{
			"Ensure you are logged in with a valid token",
			"Check if your session has expired",
			"Verify you have the correct permissions for this action",
		},
	}
	if len(context) > 0 {
		details["context"] = context
	}
	return New(fmt.Sprintf("You are not authorized to %s.", action),
		http.StatusUnauthorized, "UNAUTHORIZED_ACCESS", details, nil)
}

func ForbiddenError(action, requiredRole string, context map[string]any) *Problem {
	reasons := []string{
		"Your account role may not have sufficient privileges",
		"The resource may belong to another user",
		"Your account may be inactive or suspended",
	}
	details := map[string]any{"required_action": action}
	if requiredRole != "" {
		details["required_role"] = requiredRole
		reasons = append(reasons, fmt.Sprintf("This action requires '%s' role or higher", requiredRole))
	}
	details["possible_reasons"] = reasons
	if len(context) > 0 {
		details["context"] = context
	}
	return New(fmt.Sprintf("You don't have permission to %s.", action),
		http.StatusForbidden, "FORBIDDEN_ACCESS", details, nil)
}

// ServerError hides err unless debug is set. Debug info names the error
// type and the chain of wrapped causes; Go errors carry no source location.
func ServerError(operation string, err error, debug bool, context map[string]any) *Problem {
	details := map[string]any{
		"operation": operation,
		"suggestions": []string{
			"Please try again in a few moments",
			"If the problem persists, contact support",
			"Check if all required services are running",
		},
	}
	if debug && err != nil {
		info := map[string]any{
			"exception_type": fmt.Sprintf("%T", err),
			"message":        err.Error(),
		}
		if chain := errorChain(err); len(chain) > 1 {
			info["caused_by"] = chain[1:]
		}
		details["debug_info"] = info
	}
	if len(context) > 0 {
		details["context"] = context
	}
	return New(fmt.Sprintf("An internal server error occurred during %s. Our team has been notified.", operation),
		http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", details, nil)
}

func BusinessLogicError(message, code string, details map[string]any, suggestions []string) *Problem {
	merged := make(map[string]any, len(details)+1)
	for k, v := range details {
		merged[k] = v
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	merged["suggestions"] = suggestions
	return New(message, http.StatusBadRequest, code, merged, nil)
}

func RateLimitError(retryAfter int) *Problem {
	if retryAfter <= 0 {
		retryAfter = 60
	}
	return New("Too many requests. Please slow down and try again later.",
		http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
		map[string]any{
			"retry_after_seconds": retryAfter,
			"suggestions": []string{
				"Wait before making another request",
				"Consider implementing request throttling in your application",
				"Contact support if you need higher rate limits",
			},
		}, nil)
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// errorChain lists the type and message of err and each error it wraps.
func errorChain(err error) []map[string]any {
	var out []map[string]any
	for ; err != nil; err = errors.Unwrap(err) {
		out = append(out, map[string]any{
			"exception_type": fmt.Sprintf("%T", err),
			"message":        err.Error(),
		})
	}
	return out
}
