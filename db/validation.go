package db

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// Organization, first and last names: letters, whitespace and hyphens
	nameRegex = regexp.MustCompile(`^[A-Za-z\s-]+$`)
	// Contract titles: 10-100 letters, digits, spaces or hyphens
	titleRegex = regexp.MustCompile(`^[A-Za-z0-9 \-]{10,100}$`)
)

// Field-level validation errors
var (
	ErrInvalidOrganizationName = errors.New("organization name can only contain letters, spaces, and hyphens")
	ErrInvalidFirstName        = errors.New("first name can only contain letters, spaces, and hyphens")
	ErrInvalidLastName         = errors.New("last name can only contain letters, spaces, and hyphens")
	ErrInvalidUsername         = errors.New("username is required")
	ErrInvalidJobTitle         = errors.New("job title must be one of GD, VD, MN, SP, AS")
	ErrInvalidRole             = errors.New("role must be one of GD, VD, MN, SP, AS")
	ErrInvalidOrganizationRef  = errors.New("organization reference is invalid")
	ErrInvalidTitle            = errors.New("title must be 10-100 characters long and contain only letters, digits, spaces, and hyphens")
	ErrPastStartDate           = errors.New("start date cannot be in the past")
	ErrInvalidDateRange        = errors.New("start date must be before end date")
	ErrInvalidStatus           = errors.New("status must be PD or UP")
	ErrMissingOrganization     = errors.New("contract requires both a subsidiary and a contractor")
)

// FieldError ties a validation failure to the field that caused it
type FieldError struct {
	Field string `json:"field"`
	Err   error  `json:"-"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

// ValidationError collects every violated field of one entity
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes every field error so errors.Is matches each sentinel
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		errs[i] = f.Err
	}
	return errs
}

func (e *ValidationError) add(field string, err error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Err: err})
}

// errOrNil returns nil when nothing was recorded
func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ValidateOrganizationName checks a subsidiary or contractor name
func ValidateOrganizationName(name string) error {
	verr := &ValidationError{}
	if !nameRegex.MatchString(name) {
		verr.add("name", ErrInvalidOrganizationName)
	}
	return verr.errOrNil()
}

// ValidateRole checks that role belongs to the job title enum
func ValidateRole(role Role) error {
	if !role.Valid() {
		return &ValidationError{Fields: []FieldError{{Field: "role", Err: ErrInvalidRole}}}
	}
	return nil
}

// Validate checks every user field and reports all violations at once
func (u User) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(u.Username) == "" {
		verr.add("username", ErrInvalidUsername)
	}
	if !nameRegex.MatchString(u.FirstName) {
		verr.add("first_name", ErrInvalidFirstName)
	}
	if !nameRegex.MatchString(u.LastName) {
		verr.add("last_name", ErrInvalidLastName)
	}
	if !u.JobTitle.Valid() {
		verr.add("job_title", ErrInvalidJobTitle)
	}
	if u.Organization != nil && (!u.Organization.Kind.Valid() || u.Organization.ID == "") {
		verr.add("organization", ErrInvalidOrganizationRef)
	}
	return verr.errOrNil()
}

// Validate checks the contract against today's date. The past start date
// rule only applies when the contract is being created.
func (c Contract) Validate(today Date, creating bool) error {
	verr := &ValidationError{}
	if !titleRegex.MatchString(c.Title) {
		verr.add("title", ErrInvalidTitle)
	}
	if creating && c.StartDate.Before(today) {
		verr.add("start_date", ErrPastStartDate)
	}
	if !c.StartDate.Before(c.EndDate) {
		verr.add("end_date", ErrInvalidDateRange)
	}
	if !c.Status.Valid() {
		verr.add("status", ErrInvalidStatus)
	}
	if c.OrganizationDO == "" || c.OrganizationPO == "" {
		verr.add("organization", ErrMissingOrganization)
	}
	return verr.errOrNil()
}
