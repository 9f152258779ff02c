package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iso27001/tracker/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", WithHTTPClient(srv.Client()))
}

func TestResource_List(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLen   int
		wantError error
	}{
		{"array", `[{"id":1,"standard_ref":"Clause-4.1"},{"id":2}]`, 2, nil},
		{"empty array", `[]`, 0, nil},
		{"null is empty", `null`, 0, nil},
		{"object rejected", `{"data":[]}`, 0, ErrMalformedResponse},
		{"string rejected", `"oops"`, 0, ErrMalformedResponse},
		{"empty body rejected", ``, 0, ErrMalformedResponse},
		{"wrong element type", `[1,2]`, 0, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/gap-assessments", r.URL.Path)
				assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
				_, _ = io.WriteString(w, tt.body)
			})

			items, err := c.GapAssessments().List(context.Background())
			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Len(t, items, tt.wantLen)
		})
	}
}

func TestResource_CreateAndUpdate(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody models.RiskRegister

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		gotBody.ID = 12
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(gotBody)
	})

	risk := &models.RiskRegister{RiskID: "RISK-1", Title: "Ransomware", Likelihood: models.RatingHigh}
	created, err := c.Risks().Create(context.Background(), risk)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/risks", gotPath)
	assert.Equal(t, int64(12), created.ID)
	assert.Equal(t, "Ransomware", gotBody.Title)

	_, err = c.Risks().Update(context.Background(), 12, created)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/risks/12", gotPath)
}

func TestResource_GetRejectsNonObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := c.ActionItems().Get(context.Background(), 3)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":{"code":"duplicate_risk_id","message":"risk_id already exists"}}`)
	})

	_, err := c.Risks().Create(context.Background(), &models.RiskRegister{Title: "x"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "duplicate_risk_id", apiErr.Code)
	assert.Contains(t, err.Error(), "risk_id already exists")
	assert.False(t, IsNotFound(err))
}

func TestAPIError_PlainBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	err := c.Evidence().Delete(context.Background(), 4)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":"not_found","message":"Risk not found"}}`)
	})

	_, err := c.Risks().Get(context.Background(), 99)
	assert.True(t, IsNotFound(err))
}

func TestTemplates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/templates/clauses", r.URL.Path)
		_, _ = io.WriteString(w, `{"clauses":["4.1","6.1.3"],"count":2}`)
	})

	got, err := c.Templates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"4.1", "6.1.3"}, got)
}

func TestDownload(t *testing.T) {
	tests := []struct {
		kind      DocumentKind
		clause    string
		wantPath  string
		wantQuery string
	}{
		{DocumentClause, "6.1.3", "/api/generate/clause/6.1.3", ""},
		{DocumentSoA, "", "/api/generate/soa", ""},
		{DocumentSoAPDF, "", "/api/generate/soa", "format=pdf"},
		{DocumentNotionExport, "", "/api/generate/notion-export", ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantPath, r.URL.Path)
				assert.Equal(t, tt.wantQuery, r.URL.RawQuery)
				w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
				w.Header().Set("Content-Disposition", `attachment; filename="ISO27001-Doc.md"`)
				_, _ = io.WriteString(w, "# Doc\n")
			})

			doc, err := c.Download(context.Background(), tt.kind, tt.clause)
			require.NoError(t, err)
			assert.Equal(t, "ISO27001-Doc.md", doc.Filename)
			assert.Equal(t, "# Doc\n", string(doc.Data))
			assert.Equal(t, "text/markdown; charset=utf-8", doc.ContentType)
		})
	}
}

func TestDownload_NamesDocumentWithoutDisposition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, "# Doc\n")
	}))
	t.Cleanup(srv.Close)
	day := time.Date(2026, 5, 20, 15, 4, 0, 0, time.UTC)
	c := New(srv.URL+"/api", WithHTTPClient(srv.Client()), WithClock(func() time.Time { return day }))

	tests := []struct {
		kind   DocumentKind
		clause string
		want   string
	}{
		{DocumentClause, "6.1", "ISO27001-Clause-6.1.md"},
		{DocumentSoA, "", "ISO27001-Statement-of-Applicability-2026-05-20.md"},
		{DocumentSoACSV, "", "ISO27001-Statement-of-Applicability-2026-05-20.csv"},
		{DocumentSoAPDF, "", "ISO27001-Statement-of-Applicability-2026-05-20.pdf"},
		{DocumentNotionExport, "", "ISO27001-Notion-Export-2026-05-20.md"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			doc, err := c.Download(context.Background(), tt.kind, tt.clause)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Filename)
			assert.Equal(t, "# Doc\n", string(doc.Data))
		})
	}
}

func TestDownload_Errors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"code":"db_error","message":"boom"}}`)
	})

	_, err := c.Download(context.Background(), DocumentSoA, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	_, err = c.Download(context.Background(), DocumentClause, " ")
	require.Error(t, err)

	_, err = c.Download(context.Background(), "bogus", "")
	require.Error(t, err)
}

func TestBaseURLFromEnv(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	assert.Equal(t, DefaultBaseURL, BaseURLFromEnv())

	t.Setenv(EnvBaseURL, "https://isms.internal/api")
	assert.Equal(t, "https://isms.internal/api", BaseURLFromEnv())

	assert.Equal(t, "https://isms.internal/api", New("https://isms.internal/api/").BaseURL())
}
