// Package entities describes the records this service reads from the
// platform's organization-scoped entity store.
package entities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Entity type names as stored by the platform.
const (
	TypePastPerformance      = "PastPerformance"
	TypeResource             = "ProposalResource"
	TypeContentChunk         = "ContentChunk"
	TypeProposal             = "Proposal"
	TypeQualityFeedback      = "ContentQualityFeedback"
	TypeSolicitationDocument = "SolicitationDocument"
)

// Proposal statuses relevant to ranking.
const (
	StatusWon       = "won"
	StatusSubmitted = "submitted"
	StatusLost      = "lost"
)

type PastPerformance struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Title          string    `json:"title"`
	ContractNumber string    `json:"contract_number,omitempty"`
	CustomerAgency string    `json:"customer_agency,omitempty"`
	PopStartDate   string    `json:"pop_start_date,omitempty"`
	PopEndDate     string    `json:"pop_end_date,omitempty"`
	ContractValue  float64   `json:"contract_value,omitempty"`
	Description    string    `json:"description,omitempty"`
	CreatedDate    time.Time `json:"created_date"`
}

type Resource struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Title          string    `json:"title"`
	FileName       string    `json:"file_name"`
	ResourceType   string    `json:"resource_type,omitempty"`
	FileSize       int64     `json:"file_size,omitempty"`
	UsageCount     int       `json:"usage_count"`
	CreatedDate    time.Time `json:"created_date"`
}

// ContentChunk is a paragraph-level excerpt of a proposal section.
type ContentChunk struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	ProposalID     string    `json:"proposal_id"`
	SectionID      string    `json:"section_id,omitempty"`
	SectionType    string    `json:"section_type,omitempty"`
	ChunkText      string    `json:"chunk_text"`
	Keywords       []string  `json:"keywords,omitempty"`
	ChunkIndex     int       `json:"chunk_index"`
	CreatedDate    time.Time `json:"created_date"`
}

type Proposal struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	ProposalName   string    `json:"proposal_name"`
	AgencyName     string    `json:"agency_name,omitempty"`
	ProjectType    string    `json:"project_type,omitempty"`
	Status         string    `json:"status"`
	CreatedDate    time.Time `json:"created_date"`
}

// QualityFeedback is a user rating of AI output that drew on reference proposals.
type QualityFeedback struct {
	ID                   string    `json:"id"`
	OrganizationID       string    `json:"organization_id"`
	ReferenceProposalIDs []string  `json:"reference_proposal_ids"`
	SectionType          string    `json:"section_type,omitempty"`
	QualityRating        float64   `json:"quality_rating"`
	CreatedDate          time.Time `json:"created_date"`
}

type SolicitationDocument struct {
	ID                string    `json:"id"`
	ProposalID        string    `json:"proposal_id"`
	FileName          string    `json:"file_name"`
	DocumentType      string    `json:"document_type,omitempty"`
	IsSupplementary   bool      `json:"is_supplementary"`
	SupplementaryType string    `json:"supplementary_type,omitempty"`
	AmendmentNumber   string    `json:"amendment_number,omitempty"`
	IsLatestVersion   bool      `json:"is_latest_version"`
	RAGIngested       bool      `json:"rag_ingested"`
	ExtractedText     string    `json:"extracted_text,omitempty"`
	CreatedDate       time.Time `json:"created_date"`
}

// UnmarshalJSON accepts amendment_number as either a string or a number.
func (d *SolicitationDocument) UnmarshalJSON(b []byte) error {
	type plain SolicitationDocument
	aux := struct {
		*plain
		AmendmentNumber json.RawMessage `json:"amendment_number,omitempty"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(aux.AmendmentNumber)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		d.AmendmentNumber = ""
	case raw[0] == '"':
		return json.Unmarshal(raw, &d.AmendmentNumber)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("amendment_number: %w", err)
		}
		d.AmendmentNumber = n.String()
	}
	return nil
}

// ChunkFilter narrows a content chunk fetch.
type ChunkFilter struct {
	OrganizationID    string
	ExcludeProposalID string
	SectionType       string
	Limit             int
}

// ProposalFilter narrows a proposal fetch.
type ProposalFilter struct {
	OrganizationID string
	Statuses       []string
	ExcludeID      string
	Limit          int
}

// Store is the read side of the entity store. Every list method returns the
// most recently created records first.
type Store interface {
	PastPerformance(ctx context.Context, organizationID string, limit int) ([]PastPerformance, error)
	Resources(ctx context.Context, organizationID string, limit int) ([]Resource, error)
	ContentChunks(ctx context.Context, filter ChunkFilter) ([]ContentChunk, error)
	Proposal(ctx context.Context, id string) (Proposal, error)
	Proposals(ctx context.Context, filter ProposalFilter) ([]Proposal, error)
	QualityFeedback(ctx context.Context, organizationID string, limit int) ([]QualityFeedback, error)
	IngestedDocuments(ctx context.Context, proposalID string, limit int) ([]SolicitationDocument, error)
}
