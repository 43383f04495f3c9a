package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxCategoryLen and MaxDescriptionLen bound the free-text fields.
	MaxCategoryLen    = 50
	MaxDescriptionLen = 500
)

// Sort fields accepted by the list operation.
const (
	SortByDate      SortField = "date"
	SortByAmount    SortField = "amount"
	SortByCreatedAt SortField = "createdAt"
)

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

type (
	SortField string
	SortOrder string

	// Expense is a single persisted expense record. ID is assigned by the
	// store at creation and never changes afterwards.
	Expense struct {
		ID          string
		Amount      Money
		Category    string
		Description string
		Date        time.Time
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// Draft holds validated input for creating an expense. Category and
	// Description are already trimmed.
	Draft struct {
		Amount      Money
		Category    string
		Description string
		Date        time.Time
	}

	// Patch carries the fields supplied in a partial update. A nil field
	// was not supplied and must be left untouched.
	Patch struct {
		Amount      *Money
		Category    *string
		Description *string
		Date        *time.Time
	}

	// ListQuery selects, orders and pages the list operation. Zero Limit
	// means no limit, zero Skip means no offset.
	ListQuery struct {
		Category string
		SortBy   SortField
		Order    SortOrder
		Limit    int
		Skip     int
	}
)

// Tagged failure variants. Producers classify at the source so callers never
// have to sniff error strings or shapes.
var (
	ErrNotFound    = errors.New("expense not found")
	ErrInvalidID   = errors.New("invalid expense ID format")
	ErrDuplicateID = errors.New("duplicate expense ID")
	ErrInternal    = errors.New("internal error")
)

// FieldError reports one validation violation on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every violation found in a single input source.
// Validation never stops at the first failing field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
	}
	return fmt.Sprintf("validation failed on %d fields", len(e.Fields))
}

// NewListQuery returns a query with the default ordering (date descending).
func NewListQuery() ListQuery {
	return ListQuery{SortBy: SortByDate, Order: OrderDesc}
}

// Validate re-checks a draft against the field rules. The transport boundary
// has already validated request input; the store runs this again before
// writing so a draft built in code cannot bypass the constraints.
func (d Draft) Validate(now time.Time) error {
	var fields []FieldError
	if d.Amount.Cents <= 0 {
		fields = append(fields, FieldError{Field: "amount", Message: MsgAmountPositive})
	}
	switch n := len(strings.TrimSpace(d.Category)); {
	case n == 0:
		fields = append(fields, FieldError{Field: "category", Message: MsgCategoryEmpty})
	case n > MaxCategoryLen:
		fields = append(fields, FieldError{Field: "category", Message: MsgCategoryTooLong})
	}
	switch n := len(strings.TrimSpace(d.Description)); {
	case n == 0:
		fields = append(fields, FieldError{Field: "description", Message: MsgDescriptionEmpty})
	case n > MaxDescriptionLen:
		fields = append(fields, FieldError{Field: "description", Message: MsgDescriptionTooLong})
	}
	switch {
	case d.Date.IsZero():
		fields = append(fields, FieldError{Field: "date", Message: MsgDateRequired})
	case d.Date.After(now):
		fields = append(fields, FieldError{Field: "date", Message: MsgDateFuture})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// IsEmpty reports whether the patch carries no fields at all.
func (p Patch) IsEmpty() bool {
	return p.Amount == nil && p.Category == nil && p.Description == nil && p.Date == nil
}

// Apply overlays the supplied patch fields on an expense.
func (p Patch) Apply(e Expense) Expense {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	return e
}
