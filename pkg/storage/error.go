package storage

// NotFoundError is returned when a query record doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "query not found"
	}

	return "query not found: " + e.ID
}
