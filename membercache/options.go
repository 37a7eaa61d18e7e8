package membercache

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ListOptions filters and pages a member-list query. The zero value asks for
// the default view: every member, first page, configured page size.
//
// Limit and Page are pointers so that "not requested" and an explicit value
// can be told apart: leaving both nil returns a default-sized page without
// computing a total, while setting either one marks the query as paginated
// and makes the remote execution count the full match set.
type ListOptions struct {
	// Search matches case-insensitively against member aliases.
	Search string

	// IncludeRole keeps only members carrying the role. When both role
	// filters are set, inclusion takes priority and the exclusion is
	// ignored.
	IncludeRole string

	// ExcludeRole drops members carrying the role.
	ExcludeRole string

	// Limit caps the page size. Values above the configured page-size
	// ceiling are clamped down to it.
	Limit *int

	// Page selects a zero-based page of the filtered, sorted result.
	Page *int
}

// IntPtr returns a pointer to v, for filling the optional ListOptions fields
// inline.
func IntPtr(v int) *int {
	return &v
}

// Validate checks the options before they reach the cache or the store.
func (o ListOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Search, validation.RuneLength(0, 120)),
		validation.Field(&o.IncludeRole, validation.By(roleIDIfSet)),
		validation.Field(&o.ExcludeRole, validation.By(roleIDIfSet)),
		validation.Field(&o.Limit, validation.By(atLeastIfSet(1))),
		validation.Field(&o.Page, validation.By(atLeastIfSet(0))),
	)
}

func roleIDIfSet(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !ValidRoleID(s) {
		return fmt.Errorf("must be in the %q namespace", RoleIDPrefix)
	}
	return nil
}

func atLeastIfSet(min int) validation.RuleFunc {
	return func(value interface{}) error {
		p, _ := value.(*int)
		if p == nil {
			return nil
		}
		if *p < min {
			return fmt.Errorf("must be no less than %d", min)
		}
		return nil
	}
}

// effectiveLimit resolves the page size actually used: the requested limit
// clamped to the configured ceiling, or the ceiling itself when no limit was
// requested.
func (o ListOptions) effectiveLimit(pageSize int) int {
	if o.Limit == nil || *o.Limit > pageSize {
		return pageSize
	}
	return *o.Limit
}

// pageIndex resolves the zero-based page, defaulting to the first one.
func (o ListOptions) pageIndex() int {
	if o.Page == nil {
		return 0
	}
	return *o.Page
}

// paginated reports whether the caller explicitly asked for pagination,
// which is what makes a remote execution compute the total match count.
func (o ListOptions) paginated() bool {
	return o.Limit != nil || o.Page != nil
}
