package api

import "github.com/jonesrussell/north-cloud/catalog/internal/domain"

// ListObjectsResponse is one page of catalog entries.
type ListObjectsResponse struct {
	TotalRecords    int                  `json:"total_records"`
	CountInResponse int                  `json:"count_in_response"`
	LimitUsed       int                  `json:"limit_used"`
	OffsetUsed      int                  `json:"offset_used"`
	Data            []*domain.DataObject `json:"data"`
}

// DeleteObjectResponse confirms a deletion.
type DeleteObjectResponse struct {
	Message        string `json:"message"`
	ID             string `json:"id"`
	ChildrenPurged int    `json:"children_purged,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
