package response

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	violationUnique     = "unique_violation"
	violationForeignKey = "foreign_key_violation"
	violationNotNull    = "not_null_violation"
	violationLength     = "data_length_violation"
	violationRange      = "numeric_range_violation"
)

var (
	reDuplicateEntry = regexp.MustCompile(`Duplicate entry '(.+)' for key '(.+)'`)
	reForeignKey     = regexp.MustCompile("FOREIGN KEY \\(`(.+)`\\) REFERENCES `(.+)` \\(`(.+)`\\)")
	reNotNull        = regexp.MustCompile(`Column '(.+)' cannot be null`)

	// Postgres detail texts.
	rePgKeyValue = regexp.MustCompile(`Key \((.+)\)=\((.*)\)`)
	rePgRefTable = regexp.MustCompile(`is not present in table "(.+)"`)
)

// DatabaseError classifies a persistence failure into an actionable reply.
// Postgres errors are classified by SQLSTATE; anything else falls back to
// message matching.
func DatabaseError(err error, operation, resourceType string) *Problem {
	if operation == "" {
		operation = "operation"
	}
	if resourceType == "" {
		resourceType = "resource"
	}

	c := constraintInfo{
		message:     fmt.Sprintf("Database error occurred during %s.", operation),
		suggestions: []string{},
		extra:       map[string]any{},
	}
	var sqlCode any
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		sqlCode = pgErr.Code
		c.classifyPostgres(pgErr, operation, resourceType)
	case err != nil:
		sqlCode = 0
		c.classifyMessage(err.Error(), operation, resourceType)
	}

	details := map[string]any{
		"suggestions":   c.suggestions,
		"operation":     operation,
		"resource_type": resourceType,
	}
	if c.kind != "" {
		details["constraint_type"] = c.kind
	}
	for k, v := range c.extra {
		details[k] = v
	}

	return New(c.message, http.StatusConflict, "DATABASE_ERROR", details,
		map[string]any{"sql_error_code": sqlCode})
}

type constraintInfo struct {
	kind        string
	message     string
	suggestions []string
	extra       map[string]any
}

func (c *constraintInfo) unique(resourceType string) {
	c.kind = violationUnique
	c.message = fmt.Sprintf("A %s with this information already exists.", resourceType)
	c.suggestions = []string{
		"Please use different values for unique fields like email, phone, or reference numbers",
		"Check if a similar record already exists before creating a new one",
	}
}

func (c *constraintInfo) foreignKey(operation string) {
	c.kind = violationForeignKey
	c.message = fmt.Sprintf("Cannot complete %s due to related data constraints.", operation)
	c.suggestions = []string{
		"Ensure all referenced records exist (e.g., user_id, property_id)",
		"Check that related resources have not been deleted",
	}
}

func (c *constraintInfo) notNull(operation, column string) {
	c.kind = violationNotNull
	c.message = fmt.Sprintf("Required fields are missing for %s.", operation)
	c.suggestions = []string{
		"Please provide all required fields",
		"Check the API documentation for required field specifications",
	}
	if column != "" {
		c.extra["missing_field"] = column
		c.suggestions = append(c.suggestions, fmt.Sprintf("The field '%s' is required and cannot be empty", column))
	}
}

func (c *constraintInfo) tooLong() {
	c.kind = violationLength
	c.message = "Data provided exceeds maximum allowed length."
	c.suggestions = []string{
		"Reduce the length of text fields",
		"Check field length limits in the API documentation",
	}
}

func (c *constraintInfo) outOfRange() {
	c.kind = violationRange
	c.message = "Numeric value is out of acceptable range."
	c.suggestions = []string{
		"Ensure numeric values are within acceptable limits",
		"Check for negative values where only positive numbers are allowed",
	}
}

func (c *constraintInfo) classifyPostgres(e *pgconn.PgError, operation, resourceType string) {
	switch e.Code {
	case pgerrcode.UniqueViolation:
		c.unique(resourceType)
		if m := rePgKeyValue.FindStringSubmatch(e.Detail); m != nil {
			c.extra["duplicate_value"] = m[2]
			c.extra["duplicate_field"] = m[1]
		} else if e.ConstraintName != "" {
			c.extra["duplicate_field"] = e.ConstraintName
		}
	case pgerrcode.ForeignKeyViolation:
		c.foreignKey(operation)
		if m := rePgKeyValue.FindStringSubmatch(e.Detail); m != nil {
			c.extra["foreign_key_field"] = m[1]
			// Postgres does not name the referenced column; keys reference ids.
			c.extra["referenced_field"] = "id"
		}
		if m := rePgRefTable.FindStringSubmatch(e.Detail); m != nil {
			c.extra["referenced_table"] = m[1]
		}
	case pgerrcode.NotNullViolation:
		c.notNull(operation, e.ColumnName)
	case pgerrcode.StringDataRightTruncationDataException:
		c.tooLong()
	case pgerrcode.NumericValueOutOfRange:
		c.outOfRange()
	default:
		c.classifyMessage(e.Message, operation, resourceType)
	}
}

func (c *constraintInfo) classifyMessage(msg, operation, resourceType string) {
	switch {
	case strings.Contains(msg, "Duplicate entry"):
		c.unique(resourceType)
		if m := reDuplicateEntry.FindStringSubmatch(msg); m != nil {
			c.extra["duplicate_value"] = m[1]
			c.extra["duplicate_field"] = m[2]
		}
	case strings.Contains(msg, "foreign key constraint"):
		c.foreignKey(operation)
		if m := reForeignKey.FindStringSubmatch(msg); m != nil {
			c.extra["foreign_key_field"] = m[1]
			c.extra["referenced_table"] = m[2]
			c.extra["referenced_field"] = m[3]
		}
	case strings.Contains(msg, "cannot be null"):
		col := ""
		if m := reNotNull.FindStringSubmatch(msg); m != nil {
			col = m[1]
		}
		c.notNull(operation, col)
	case strings.Contains(msg, "Data too long"):
		c.tooLong()
	case strings.Contains(msg, "Out of range"):
		c.outOfRange()
	}
}
