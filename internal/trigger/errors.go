package trigger

import "errors"

// ErrBadConfiguration is returned by Configure when a maker is given a
// self-contradictory or unsupported parameter set. Makers wrap it with
// their name and the reason.
var ErrBadConfiguration = errors.New("bad trigger algorithm configuration")
