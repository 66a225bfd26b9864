package dedupe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"proposal-ranker/entities"
	apperrors "proposal-ranker/errors"
	"proposal-ranker/ranking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const org = "org-1"

type failingStore struct{}

func (failingStore) PastPerformance(context.Context, string, int) ([]entities.PastPerformance, error) {
	return nil, apperrors.ErrEntityStore
}

func (failingStore) Resources(context.Context, string, int) ([]entities.Resource, error) {
	return nil, apperrors.ErrEntityStore
}

func newTestDetector(fixtures entities.Fixtures) *Detector {
	return NewDetector(entities.NewMemoryStore(fixtures), Config{
		PastPerformance: DefaultPastPerformanceWeights(),
		Resource:        DefaultResourceWeights(),
		CandidateLimit:  1000,
	}, nil)
}

func created(days int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}

func TestTitleSimilarity(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		candidate string
		want      float64
	}{
		{
			name:      "boundary_reordered_title",
			input:     "Network Security Assessment for DoD",
			candidate: "DoD Network Security Assessment",
			want:      60,
		},
		{name: "identical", input: "Cloud Migration Services", candidate: "cloud migration services", want: 100},
		{name: "short_words_ignored", input: "IT for VA", candidate: "IT for VA", want: 0},
		{name: "empty", input: "", candidate: "", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TitleSimilarity(tt.input, tt.candidate), 1e-9)
		})
	}
}

func TestCheckPastPerformance_ContractNumberShortCircuits(t *testing.T) {
	d := newTestDetector(entities.Fixtures{PastPerformance: []entities.PastPerformance{
		{
			ID: "pp-1", OrganizationID: org, Title: "Unrelated Logistics Support",
			ContractNumber: "ABC-123", CustomerAgency: "DoD",
			PopStartDate: "2022-01-01", PopEndDate: "2024-01-01", CreatedDate: created(0),
		},
	}})

	report, err := d.CheckPastPerformance(context.Background(), PastPerformanceQuery{
		OrganizationID: org,
		Title:          "Unrelated Logistics Support",
		ContractNumber: " abc-123 ",
		CustomerAgency: "DoD",
		PopStartDate:   "2023-01-01",
		PopEndDate:     "2023-06-01",
	})
	require.NoError(t, err)
	require.Len(t, report.Duplicates, 1)

	match := report.Duplicates[0]
	assert.Equal(t, 100.0, match.MatchScore)
	assert.Equal(t, ranking.ConfidenceHigh, match.Confidence)
	assert.Equal(t, []string{"Exact contract number match"}, match.MatchReasons)
	assert.True(t, report.HasHighConfidenceDuplicate)
	assert.Equal(t, 1, report.TotalFound)
}

func TestCheckPastPerformance_Signals(t *testing.T) {
	tests := []struct {
		name       string
		record     entities.PastPerformance
		query      PastPerformanceQuery
		wantFound  bool
		wantScore  float64
		wantConf   ranking.Confidence
		wantReason []string
	}{
		{
			name:      "title_at_sixty_percent_adds_nothing",
			record:    entities.PastPerformance{Title: "DoD Network Security Assessment"},
			query:     PastPerformanceQuery{Title: "Network Security Assessment for DoD"},
			wantFound: false,
		},
		{
			name:       "title_and_exact_agency",
			record:     entities.PastPerformance{Title: "Enterprise Cloud Migration Services Support", CustomerAgency: "Department of Energy"},
			query:      PastPerformanceQuery{Title: "Enterprise Cloud Migration Services", CustomerAgency: "department of energy"},
			wantFound:  true,
			wantScore:  70,
			wantConf:   ranking.ConfidenceMedium,
			wantReason: []string{"Similar title (80% match)", "Same customer agency"},
		},
		{
			name:      "partial_agency_and_dates_is_exactly_forty",
			record:    entities.PastPerformance{Title: "Facilities", CustomerAgency: "US Army Corps", PopStartDate: "2021-01-01", PopEndDate: "2022-12-31"},
			query:     PastPerformanceQuery{Title: "Help Desk", CustomerAgency: "Army", PopStartDate: "2022-06-01", PopEndDate: "2023-06-01"},
			wantFound: false,
		},
		{
			name:       "exact_agency_and_dates",
			record:     entities.PastPerformance{Title: "Facilities", CustomerAgency: "Army", PopStartDate: "2021-01-01", PopEndDate: "2022-12-31"},
			query:      PastPerformanceQuery{Title: "Help Desk", CustomerAgency: "army", PopStartDate: "2022-12-31", PopEndDate: "2023-06-01"},
			wantFound:  true,
			wantScore:  50,
			wantConf:   ranking.ConfidenceLow,
			wantReason: []string{"Same customer agency", "Overlapping period of performance"},
		},
		{
			name:      "dates_need_both_bounds",
			record:    entities.PastPerformance{Title: "Facilities", CustomerAgency: "Army", PopStartDate: "2021-01-01"},
			query:     PastPerformanceQuery{Title: "Help Desk", CustomerAgency: "Army", PopStartDate: "2021-06-01", PopEndDate: "2023-06-01"},
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.record.ID = "pp-1"
			tt.record.OrganizationID = org
			tt.query.OrganizationID = org
			d := newTestDetector(entities.Fixtures{PastPerformance: []entities.PastPerformance{tt.record}})

			report, err := d.CheckPastPerformance(context.Background(), tt.query)
			require.NoError(t, err)

			if !tt.wantFound {
				assert.Empty(t, report.Duplicates)
				assert.False(t, report.HasHighConfidenceDuplicate)
				return
			}
			require.Len(t, report.Duplicates, 1)
			assert.InDelta(t, tt.wantScore, report.Duplicates[0].MatchScore, 1e-9)
			assert.Equal(t, tt.wantConf, report.Duplicates[0].Confidence)
			assert.Equal(t, tt.wantReason, report.Duplicates[0].MatchReasons)
		})
	}
}

func TestCheckPastPerformance_ExcludesCurrentAndCapsResults(t *testing.T) {
	var records []entities.PastPerformance
	for i := 0; i < 7; i++ {
		records = append(records, entities.PastPerformance{
			ID:             fmt.Sprintf("pp-%d", i),
			OrganizationID: org,
			Title:          "Cyber Range Operations",
			ContractNumber: "W91-0001",
			CreatedDate:    created(i),
		})
	}
	d := newTestDetector(entities.Fixtures{PastPerformance: records})

	query := PastPerformanceQuery{
		OrganizationID: org,
		Title:          "Cyber Range Operations",
		ContractNumber: "w91-0001",
		ExcludeID:      "pp-6",
	}
	report, err := d.CheckPastPerformance(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, report.Duplicates, 5)

	var ids []string
	for _, m := range report.Duplicates {
		ids = append(ids, m.Record.ID)
	}
	assert.Equal(t, []string{"pp-5", "pp-4", "pp-3", "pp-2", "pp-1"}, ids)
	assert.Equal(t, 6, report.Evaluated)

	again, err := d.CheckPastPerformance(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, report, again)
}

func TestCheckPastPerformance_Errors(t *testing.T) {
	d := newTestDetector(entities.Fixtures{})
	_, err := d.CheckPastPerformance(context.Background(), PastPerformanceQuery{OrganizationID: org})
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.EqualError(t, err, "title required")

	failing := NewDetector(failingStore{}, Config{PastPerformance: DefaultPastPerformanceWeights()}, nil)
	_, err = failing.CheckPastPerformance(context.Background(), PastPerformanceQuery{OrganizationID: org, Title: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrEntityStore))
}

func TestCheckResource(t *testing.T) {
	d := newTestDetector(entities.Fixtures{Resources: []entities.Resource{
		{
			ID: "r-exact", OrganizationID: org, Title: "Capability Statement",
			FileName: "capability statement.pdf", ResourceType: "capability_statement",
			FileSize: 1005, UsageCount: 4, CreatedDate: created(1),
		},
		{
			ID: "r-similar", OrganizationID: org, Title: "Past Performance Volumes",
			FileName: "final_ppvol.pdf", CreatedDate: created(2),
		},
		{
			ID: "r-weak", OrganizationID: org, Title: "Org Chart",
			FileName: "org-chart.png", ResourceType: "capability_statement", CreatedDate: created(3),
		},
		{
			ID: "r-other-org", OrganizationID: "org-2", Title: "Capability Statement",
			FileName: "capability_statement.pdf", CreatedDate: created(4),
		},
	}})

	report, err := d.CheckResource(context.Background(), ResourceQuery{
		OrganizationID: org,
		FileName:       "Capability_Statement.pdf",
		Title:          " capability statement ",
		ResourceType:   "capability_statement",
		FileSize:       1000,
	})
	require.NoError(t, err)
	assert.True(t, report.HasDuplicates)
	assert.Equal(t, 3, report.CheckedAgainst)
	require.Len(t, report.Duplicates, 1)
	assert.Equal(t, "r-exact", report.Duplicates[0].ID)
	assert.Equal(t, 100.0, report.Duplicates[0].SimilarityScore)
	assert.Equal(t, "Identical file name, Identical title, Same resource type, Nearly identical file size", report.Duplicates[0].MatchReason)
	assert.Equal(t, 4, report.Duplicates[0].UsageCount)

	report, err = d.CheckResource(context.Background(), ResourceQuery{
		OrganizationID: org,
		FileName:       "ppvol.pdf",
		Title:          "Past Performance Volume",
	})
	require.NoError(t, err)
	require.Len(t, report.Duplicates, 1)
	assert.Equal(t, "r-similar", report.Duplicates[0].ID)
	assert.Equal(t, 50.0, report.Duplicates[0].SimilarityScore)
	assert.Equal(t, "Similar file name, Similar title (96% similar)", report.Duplicates[0].MatchReason)
}

func TestCheckResource_BoundsAndValidation(t *testing.T) {
	var resources []entities.Resource
	for i := 0; i < 8; i++ {
		resources = append(resources, entities.Resource{
			ID: fmt.Sprintf("r-%d", i), OrganizationID: org, Title: "Resume",
			FileName: "resume.docx", ResourceType: "resume", FileSize: 2048, CreatedDate: created(i),
		})
	}
	d := newTestDetector(entities.Fixtures{Resources: resources})

	report, err := d.CheckResource(context.Background(), ResourceQuery{
		OrganizationID: org, FileName: "resume.docx", Title: "Resume", ResourceType: "resume", FileSize: 2048,
	})
	require.NoError(t, err)
	assert.Len(t, report.Duplicates, 5)
	assert.Equal(t, 8, report.CheckedAgainst)
	for _, dup := range report.Duplicates {
		assert.GreaterOrEqual(t, dup.SimilarityScore, 0.0)
		assert.LessOrEqual(t, dup.SimilarityScore, 100.0)
	}

	_, err = d.CheckResource(context.Background(), ResourceQuery{OrganizationID: org})
	assert.EqualError(t, err, "file_name, title required")
}
