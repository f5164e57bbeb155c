package api

import (
	"encoding/json"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/storefront-labs/catalog-projections/internal/catalog"
)

// readAllQuery are the query parameters of the paginated read.
type readAllQuery struct {
	Limit               int        `form:"limit"`
	StartAfter          string     `form:"start_after"`
	ModifiedSince       *time.Time `form:"modified_since" time_format:"2006-01-02T15:04:05Z07:00"`
	ModifiedSinceOffset *int       `form:"modified_since_offset"`
}

func (q readAllQuery) validate(maxLimit int) error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Limit,
			validation.Min(0),
			validation.Max(maxLimit).Error("limit exceeds the configured maximum")),
		validation.Field(&q.ModifiedSinceOffset,
			validation.When(q.ModifiedSince == nil,
				validation.Nil.Error("modified_since_offset requires modified_since")),
			validation.When(q.ModifiedSinceOffset != nil,
				validation.Min(0))),
	)
}

// projectionBody is the write-path request body for one projection.
type projectionBody struct {
	Store           string          `json:"store"`
	Type            string          `json:"type"`
	Code            string          `json:"code"`
	GUID            string          `json:"guid"`
	SchemaVersion   int             `json:"schemaVersion"`
	Content         json.RawMessage `json:"content"`
	DisableDateTime *time.Time      `json:"disableDateTime,omitempty"`
}

func (b projectionBody) validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Store, validation.Required),
		validation.Field(&b.Type, validation.Required),
		validation.Field(&b.Code, validation.Required),
		validation.Field(&b.GUID, validation.Required),
		validation.Field(&b.SchemaVersion, validation.Min(1)),
		validation.Field(&b.Content, validation.Required),
	)
}

func (b projectionBody) toProjection() catalog.Projection {
	key := catalog.Key{Store: b.Store, Type: b.Type, Code: b.Code}
	return catalog.New(key, b.GUID, b.SchemaVersion, b.Content, time.Time{}, b.DisableDateTime)
}

// projectionResponse is the read-path JSON shape of one projection.
type projectionResponse struct {
	Store            string          `json:"store"`
	Type             string          `json:"type"`
	Code             string          `json:"code"`
	GUID             string          `json:"guid"`
	SchemaVersion    int             `json:"schemaVersion,omitempty"`
	ModifiedDateTime time.Time       `json:"modifiedDateTime"`
	Deleted          bool            `json:"deleted"`
	Content          json.RawMessage `json:"content,omitempty"`
}

func toProjectionResponse(projection catalog.Projection) projectionResponse {
	return projectionResponse{
		Store:            projection.Key.Store,
		Type:             projection.Key.Type,
		Code:             projection.Key.Code,
		GUID:             projection.GUID,
		SchemaVersion:    projection.SchemaVersion,
		ModifiedDateTime: projection.ProjectionDateTime,
		Deleted:          projection.Deleted,
		Content:          json.RawMessage(projection.Content),
	}
}

func toProjectionResponses(projections []catalog.Projection) []projectionResponse {
	responses := make([]projectionResponse, 0, len(projections))
	for _, projection := range projections {
		responses = append(responses, toProjectionResponse(projection))
	}
	return responses
}

// paginationResponse carries the cursor for the next page.
type paginationResponse struct {
	Limit          int    `json:"limit"`
	Next           string `json:"next,omitempty"`
	HasMoreResults bool   `json:"hasMoreResults"`
}

// readAllResponse is one page of a scan. CurrentDateTime is only present on
// the first page, as the caller's modified_since anchor for later polls.
type readAllResponse struct {
	Results         []projectionResponse `json:"results"`
	Pagination      paginationResponse   `json:"pagination"`
	CurrentDateTime *time.Time           `json:"currentDateTime,omitempty"`
}
