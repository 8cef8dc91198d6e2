package util

// Pagination clamps page/size query values and returns the offset and limit
// to apply to a list query.
func Pagination(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 10
	}
	return (page - 1) * size, size
}
