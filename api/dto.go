/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's internal model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// StackDTO is one (item, count) pair in requests and responses. Requests
// to /stock/force may carry signed quantities; everywhere else quantities
// are positive.
type StackDTO struct {
	ID  string `json:"id"`
	Qty int64  `json:"qty"`
}

// MutateRequest is the body for add/remove/force endpoints.
type MutateRequest struct {
	Stacks []StackDTO `json:"stacks"`
}

// MutateResponse reports the all-or-nothing outcome of a checked batch.
type MutateResponse struct {
	Applied bool `json:"applied"`
}

// StockDTO is one stocked item in a snapshot response.
type StockDTO struct {
	ID  string `json:"id"`
	Qty int64  `json:"qty"`
	Tag string `json:"tag,omitempty"`
}

// SetTagsRequest wholesale-replaces the key->tag table.
type SetTagsRequest struct {
	Assignments map[string]string `json:"assignments"`
}

// TagDTO describes one tag group.
type TagDTO struct {
	Tag     string   `json:"tag"`
	Members []string `json:"members"`
	Total   int64    `json:"total"`
}

// StatusDTO is the admin status view.
type StatusDTO struct {
	Paused         bool   `json:"paused"`
	PendingChanges int    `json:"pending_changes"`
	Items          int    `json:"items"`
	Backend        string `json:"backend"`
}

// ErrorDTO is the uniform error body.
type ErrorDTO struct {
	Error string `json:"error"`
}
