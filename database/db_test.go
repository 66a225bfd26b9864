package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"proposal-ranker/entities"
	apperrors "proposal-ranker/errors"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func TestPostgresStore_Proposals(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	statuses := []string{entities.StatusWon, entities.StatusSubmitted, entities.StatusLost}
	query := regexp.QuoteMeta("SELECT id, data, created_date FROM entities WHERE entity_type = $1 AND organization_id = $2 AND data->>'status' = ANY($3) AND id <> $4 ORDER BY created_date DESC, id ASC LIMIT $5")

	tests := []struct {
		name      string
		mockSetup func(pgxmock.PgxPoolIface)
		wantIDs   []string
		wantErr   bool
	}{
		{
			name: "decodes rows and takes id and created date from columns",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"id", "data", "created_date"}).
					AddRow("p2", []byte(`{"proposal_name":"Zero Trust Pilot","agency_name":"DHS","status":"won"}`), created).
					AddRow("p3", []byte(`{"id":"ignored","proposal_name":"Data Platform","status":"lost"}`), created)
				mock.ExpectQuery(query).
					WithArgs(entities.TypeProposal, "org-1", statuses, "p1", 500).
					WillReturnRows(rows)
			},
			wantIDs: []string{"p2", "p3"},
		},
		{
			name: "query error is surfaced as entity store failure",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(query).
					WithArgs(entities.TypeProposal, "org-1", statuses, "p1", 500).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("Failed to create mock database: %v", err)
			}
			defer mock.Close()
			tt.mockSetup(mock)

			store := NewStore(mock)
			got, err := store.Proposals(context.Background(), entities.ProposalFilter{
				OrganizationID: "org-1",
				Statuses:       statuses,
				ExcludeID:      "p1",
				Limit:          500,
			})

			if (err != nil) != tt.wantErr {
				t.Fatalf("Proposals() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrEntityStore) {
					t.Errorf("Proposals() error = %v, want ErrEntityStore", err)
				}
			} else {
				if len(got) != len(tt.wantIDs) {
					t.Fatalf("Proposals() got %d records, want %d", len(got), len(tt.wantIDs))
				}
				for i, p := range got {
					if p.ID != tt.wantIDs[i] {
						t.Errorf("record[%d].ID = %q, want %q", i, p.ID, tt.wantIDs[i])
					}
					if !p.CreatedDate.Equal(created) {
						t.Errorf("record[%d].CreatedDate = %v, want %v", i, p.CreatedDate, created)
					}
				}
				if got[0].AgencyName != "DHS" || got[0].Status != entities.StatusWon {
					t.Errorf("record[0] decoded as %+v", got[0])
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestPostgresStore_ContentChunksOptionalFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer mock.Close()

	query := regexp.QuoteMeta("SELECT id, data, created_date FROM entities WHERE entity_type = $1 AND organization_id = $2 AND data->>'proposal_id' <> $3 ORDER BY created_date DESC, id ASC LIMIT $4")
	rows := pgxmock.NewRows([]string{"id", "data", "created_date"}).
		AddRow("c1", []byte(`{"proposal_id":"p9","chunk_text":"Our approach","keywords":["cloud","migration"]}`), time.Now())
	mock.ExpectQuery(query).
		WithArgs(entities.TypeContentChunk, "org-1", "p1", 500).
		WillReturnRows(rows)

	got, err := NewStore(mock).ContentChunks(context.Background(), entities.ChunkFilter{
		OrganizationID:    "org-1",
		ExcludeProposalID: "p1",
		Limit:             500,
	})
	if err != nil {
		t.Fatalf("ContentChunks() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "c1" || len(got[0].Keywords) != 2 {
		t.Errorf("ContentChunks() = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_IngestedDocumentsWithoutLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer mock.Close()

	query := regexp.QuoteMeta("SELECT id, data, created_date FROM entities WHERE entity_type = $1 AND data->>'proposal_id' = $2 AND COALESCE((data->>'rag_ingested')::boolean, false) ORDER BY created_date DESC, id ASC")
	mock.ExpectQuery(query).
		WithArgs(entities.TypeSolicitationDocument, "p1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "data", "created_date"}))

	got, err := NewStore(mock).IngestedDocuments(context.Background(), "p1", 0)
	if err != nil {
		t.Fatalf("IngestedDocuments() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("IngestedDocuments() = %v, want empty", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_IngestedDocumentsDecoding(t *testing.T) {
	created := time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta("SELECT id, data, created_date FROM entities WHERE entity_type = $1 AND data->>'proposal_id' = $2 AND COALESCE((data->>'rag_ingested')::boolean, false) ORDER BY created_date DESC, id ASC LIMIT $3")

	tests := []struct {
		name          string
		data          string
		wantAmendment string
		wantErr       bool
	}{
		{
			name:          "numeric amendment number",
			data:          `{"proposal_id":"p1","file_name":"amendment.pdf","supplementary_type":"amendment","amendment_number":3,"rag_ingested":true}`,
			wantAmendment: "3",
		},
		{
			name:          "string amendment number",
			data:          `{"proposal_id":"p1","file_name":"amendment.pdf","amendment_number":"0004","rag_ingested":true}`,
			wantAmendment: "0004",
		},
		{
			name: "created date without zone inside data",
			data: `{"proposal_id":"p1","file_name":"rfp.pdf","rag_ingested":true,"created_date":"2024-01-15T10:30:00.000000"}`,
		},
		{
			name:    "malformed amendment number",
			data:    `{"proposal_id":"p1","file_name":"amendment.pdf","amendment_number":true}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("Failed to create mock database: %v", err)
			}
			defer mock.Close()

			rows := pgxmock.NewRows([]string{"id", "data", "created_date"}).
				AddRow("d1", []byte(tt.data), created)
			mock.ExpectQuery(query).
				WithArgs(entities.TypeSolicitationDocument, "p1", 100).
				WillReturnRows(rows)

			got, err := NewStore(mock).IngestedDocuments(context.Background(), "p1", 100)
			if (err != nil) != tt.wantErr {
				t.Fatalf("IngestedDocuments() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !strings.Contains(err.Error(), "failed to decode SolicitationDocument d1") {
					t.Errorf("IngestedDocuments() error = %v, want decode context", err)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("IngestedDocuments() got %d records, want 1", len(got))
			}
			if got[0].AmendmentNumber != tt.wantAmendment {
				t.Errorf("AmendmentNumber = %q, want %q", got[0].AmendmentNumber, tt.wantAmendment)
			}
			if got[0].ID != "d1" || !got[0].CreatedDate.Equal(created) {
				t.Errorf("record = %+v, want id d1 created %v", got[0], created)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestPostgresStore_ProposalIgnoresCreatedDateInData(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer mock.Close()

	created := time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta("SELECT id, data, created_date FROM entities WHERE entity_type = $1 AND id = $2")
	rows := pgxmock.NewRows([]string{"id", "data", "created_date"}).
		AddRow("p1", []byte(`{"proposal_name":"Cloud Migration","created_date":"2024-01-15T10:30:00.000000"}`), created)
	mock.ExpectQuery(query).
		WithArgs(entities.TypeProposal, "p1").
		WillReturnRows(rows)

	got, err := NewStore(mock).Proposal(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Proposal() error = %v", err)
	}
	if got.ProposalName != "Cloud Migration" || !got.CreatedDate.Equal(created) {
		t.Errorf("Proposal() = %+v", got)
	}
}

func TestPostgresStore_ProposalNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer mock.Close()

	query := regexp.QuoteMeta("SELECT id, data, created_date FROM entities WHERE entity_type = $1 AND id = $2")
	mock.ExpectQuery(query).
		WithArgs(entities.TypeProposal, "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewStore(mock).Proposal(context.Background(), "missing")
	if !apperrors.IsNotFound(err) {
		t.Errorf("Proposal() error = %v, want not found", err)
	}
}
