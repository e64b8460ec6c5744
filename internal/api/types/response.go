// internal/api/types/response.go
package types

// PaginatedResponse wraps list endpoints that page through ledger history
// (commission records, withdrawal requests).
type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalCount int64 `json:"total_count"`
}
