package allocator

import "errors"

var (
	// ErrPageSourceExhausted indicates that the page source could not supply a new page.
	ErrPageSourceExhausted = errors.New("allocator: page source exhausted")

	// ErrUnknownPage indicates a page handle that is not currently handed out.
	ErrUnknownPage = errors.New("allocator: unknown page")

	// ErrTooLarge indicates a request that does not fit in a single page.
	ErrTooLarge = errors.New("allocator: request larger than a page")

	// ErrZeroSize indicates a zero byte request.
	ErrZeroSize = errors.New("allocator: zero size request")
)
