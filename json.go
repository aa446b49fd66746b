package transmission

import (
	"github.com/dogmatiq/transmission/internal/jsonx"
)

// UnmarshalOption is an option that changes the behavior of JSON unmarshaling.
type UnmarshalOption = jsonx.UnmarshalOption

// AllowUnknownFields is an UnmarshalOption that controls whether result
// arguments may contain fields that are not present in the target value.
//
// Unknown fields are disallowed by default.
func AllowUnknownFields(allow bool) UnmarshalOption {
	return func(opts *jsonx.UnmarshalOptions) {
		opts.AllowUnknownFields = allow
	}
}

// UseNumber is an UnmarshalOption that decodes numbers within interface values
// as json.Number instead of float64.
func UseNumber() UnmarshalOption {
	return func(opts *jsonx.UnmarshalOptions) {
		opts.UseNumber = true
	}
}
