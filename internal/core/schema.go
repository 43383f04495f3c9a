package core

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Validation messages, kept in one place so the transport schemas and the
// storage-layer guard report identical text for the same violation.
const (
	MsgAmountRequired      = "Amount is required"
	MsgAmountNumber        = "Amount must be a number"
	MsgAmountPositive      = "Amount must be positive"
	MsgAmountFinite        = "Amount must be a finite number"
	MsgAmountPrecision     = "Amount must have at most 2 decimal places"
	MsgCategoryRequired    = "Category is required"
	MsgCategoryString      = "Category must be a string"
	MsgCategoryEmpty       = "Category cannot be empty"
	MsgCategoryTooLong     = "Category cannot exceed 50 characters"
	MsgDescriptionRequired = "Description is required"
	MsgDescriptionString   = "Description must be a string"
	MsgDescriptionEmpty    = "Description cannot be empty"
	MsgDescriptionTooLong  = "Description cannot exceed 500 characters"
	MsgDateRequired        = "Date is required"
	MsgDateFormat          = "Date must be a valid ISO 8601 datetime string"
	MsgDateFuture          = "Date cannot be in the future"
	MsgCategoryFilterEmpty = "Category filter cannot be empty"
	MsgSortByEnum          = "sortBy must be one of: date, amount, createdAt"
	MsgOrderEnum           = "order must be either asc or desc"
	MsgLimitDigits         = "limit must be a positive integer"
	MsgLimitRange          = "limit must be between 1 and 1000"
	MsgSkipDigits          = "skip must be a non-negative integer"
	MsgInvalidID           = "Invalid expense ID format"
)

// Patterns compiled once; applied uniformly wherever the shape is checked.
var (
	idPattern     = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
)

// dateLayouts are the accepted ISO 8601 spellings, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ValidateID checks the 24-hex-character identifier shape. Malformed ids
// fail here before ever reaching the store.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

// ValidateCreate applies the create schema: all business fields required,
// amount parsed through the canonical rule, category and description trimmed
// then length-checked, date parsed and rejected when after now. Violations
// are collected across every field rather than stopping at the first.
func ValidateCreate(fields map[string]any, now time.Time) (Draft, []FieldError) {
	var (
		draft Draft
		errs  []FieldError
	)

	if v, ok := fields["amount"]; !ok || v == nil {
		errs = append(errs, FieldError{Field: "amount", Message: MsgAmountRequired})
	} else if m, ferr := checkAmount(v); ferr != nil {
		errs = append(errs, *ferr)
	} else {
		draft.Amount = m
	}

	if v, ok := fields["category"]; !ok || v == nil {
		errs = append(errs, FieldError{Field: "category", Message: MsgCategoryRequired})
	} else if s, ferr := checkString(v, categoryRule); ferr != nil {
		errs = append(errs, *ferr)
	} else {
		draft.Category = s
	}

	if v, ok := fields["description"]; !ok || v == nil {
		errs = append(errs, FieldError{Field: "description", Message: MsgDescriptionRequired})
	} else if s, ferr := checkString(v, descriptionRule); ferr != nil {
		errs = append(errs, *ferr)
	} else {
		draft.Description = s
	}

	if v, ok := fields["date"]; !ok || v == nil {
		errs = append(errs, FieldError{Field: "date", Message: MsgDateRequired})
	} else if d, ferr := checkDate(v, now); ferr != nil {
		errs = append(errs, *ferr)
	} else {
		draft.Date = d
	}

	return draft, errs
}

// ValidateUpdate applies the update schema: identical field rules, every
// field optional. Only supplied fields are validated and carried in the
// returned patch.
func ValidateUpdate(fields map[string]any, now time.Time) (Patch, []FieldError) {
	var (
		patch Patch
		errs  []FieldError
	)

	if v, ok := fields["amount"]; ok && v != nil {
		if m, ferr := checkAmount(v); ferr != nil {
			errs = append(errs, *ferr)
		} else {
			patch.Amount = &m
		}
	}
	if v, ok := fields["category"]; ok && v != nil {
		if s, ferr := checkString(v, categoryRule); ferr != nil {
			errs = append(errs, *ferr)
		} else {
			patch.Category = &s
		}
	}
	if v, ok := fields["description"]; ok && v != nil {
		if s, ferr := checkString(v, descriptionRule); ferr != nil {
			errs = append(errs, *ferr)
		} else {
			patch.Description = &s
		}
	}
	if v, ok := fields["date"]; ok && v != nil {
		if d, ferr := checkDate(v, now); ferr != nil {
			errs = append(errs, *ferr)
		} else {
			patch.Date = &d
		}
	}

	return patch, errs
}

// ValidateQuery applies the list query schema. Numeric parameters arrive as
// strings and must be digit-only before conversion.
func ValidateQuery(values url.Values) (ListQuery, []FieldError) {
	q := NewListQuery()
	var errs []FieldError

	if values.Has("category") {
		c := strings.TrimSpace(values.Get("category"))
		if c == "" {
			errs = append(errs, FieldError{Field: "category", Message: MsgCategoryFilterEmpty})
		} else {
			q.Category = c
		}
	}
	if values.Has("sortBy") {
		switch v := values.Get("sortBy"); SortField(v) {
		case SortByDate, SortByAmount, SortByCreatedAt:
			q.SortBy = SortField(v)
		default:
			errs = append(errs, FieldError{Field: "sortBy", Message: MsgSortByEnum})
		}
	}
	if values.Has("order") {
		switch v := values.Get("order"); SortOrder(v) {
		case OrderAsc, OrderDesc:
			q.Order = SortOrder(v)
		default:
			errs = append(errs, FieldError{Field: "order", Message: MsgOrderEnum})
		}
	}
	if values.Has("limit") {
		v := values.Get("limit")
		if !digitsPattern.MatchString(v) {
			errs = append(errs, FieldError{Field: "limit", Message: MsgLimitDigits})
		} else if n, err := strconv.Atoi(v); err != nil || n < 1 || n > 1000 {
			errs = append(errs, FieldError{Field: "limit", Message: MsgLimitRange})
		} else {
			q.Limit = n
		}
	}
	if values.Has("skip") {
		v := values.Get("skip")
		if !digitsPattern.MatchString(v) {
			errs = append(errs, FieldError{Field: "skip", Message: MsgSkipDigits})
		} else if n, err := strconv.Atoi(v); err != nil {
			errs = append(errs, FieldError{Field: "skip", Message: MsgSkipDigits})
		} else {
			q.Skip = n
		}
	}

	return q, errs
}

// stringRule is the shared constraint description for the two free-text
// fields; the create and update schemas apply the same compiled rule.
type stringRule struct {
	field    string
	maxLen   int
	typeMsg  string
	emptyMsg string
	longMsg  string
}

var (
	categoryRule = stringRule{
		field:    "category",
		maxLen:   MaxCategoryLen,
		typeMsg:  MsgCategoryString,
		emptyMsg: MsgCategoryEmpty,
		longMsg:  MsgCategoryTooLong,
	}
	descriptionRule = stringRule{
		field:    "description",
		maxLen:   MaxDescriptionLen,
		typeMsg:  MsgDescriptionString,
		emptyMsg: MsgDescriptionEmpty,
		longMsg:  MsgDescriptionTooLong,
	}
)

func checkString(v any, rule stringRule) (string, *FieldError) {
	s, ok := v.(string)
	if !ok {
		return "", &FieldError{Field: rule.field, Message: rule.typeMsg}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &FieldError{Field: rule.field, Message: rule.emptyMsg}
	}
	if len(s) > rule.maxLen {
		return "", &FieldError{Field: rule.field, Message: rule.longMsg}
	}
	return s, nil
}

func checkAmount(v any) (Money, *FieldError) {
	var raw string
	switch n := v.(type) {
	case json.Number:
		raw = n.String()
	case float64:
		raw = strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return Money{}, &FieldError{Field: "amount", Message: MsgAmountNumber}
	}
	m, err := ParseAmount(raw)
	if err == nil {
		return m, nil
	}
	msg := MsgAmountNumber
	switch err {
	case ErrAmountRange:
		msg = MsgAmountPositive
	case ErrAmountFinite:
		msg = MsgAmountFinite
	case ErrAmountPrecision:
		msg = MsgAmountPrecision
	}
	return Money{}, &FieldError{Field: "amount", Message: msg}
}

func checkDate(v any, now time.Time) (time.Time, *FieldError) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, &FieldError{Field: "date", Message: MsgDateFormat}
	}
	var (
		parsed time.Time
		err    error
	)
	for _, layout := range dateLayouts {
		parsed, err = time.Parse(layout, s)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, &FieldError{Field: "date", Message: MsgDateFormat}
	}
	if parsed.After(now) {
		return time.Time{}, &FieldError{Field: "date", Message: MsgDateFuture}
	}
	return parsed.UTC(), nil
}
