package opendatasoft

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitlab/transit-ratio/internal/model"
)

func TestRecords_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/records/1.0/download", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "worldcitiespop", q.Get("dataset"))
		assert.Equal(t, "city,population,geopoint", q.Get("fields"))
		assert.Equal(t, "population>0", q.Get("q"))
		assert.Equal(t, "gb", q.Get("refine.country"))

		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("city;population;geopoint\nlondon;7421209;\"51.514248,-0.093145\"\nbirmingham;984333;\"52.478699,-1.902691\"\n"))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	table, err := client.Records(context.Background(), Query{
		Dataset: "worldcitiespop",
		Fields:  []string{"city", "population", "geopoint"},
		Q:       "population>0",
		Refine:  map[string]string{"country": "gb"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"city", "population", "geopoint"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"london", "7421209", "51.514248,-0.093145"}, table.Rows[0])
	assert.Equal(t, 1, table.Column("population"))
	assert.Equal(t, -1, table.Column("elevation"))
}

func TestRecords_HeaderOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("iso;country\n"))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	table, err := client.Records(context.Background(), Query{Dataset: "geonames-country"})

	require.NoError(t, err)
	assert.Equal(t, []string{"iso", "country"}, table.Header)
	assert.Empty(t, table.Rows)
}

func TestRecords_DataSourceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	table, err := client.Records(context.Background(), Query{Dataset: "worldcitiespop"})

	require.Error(t, err)
	assert.Nil(t, table)
	assert.True(t, errors.Is(err, model.ErrDataSource))
	assert.Contains(t, err.Error(), "500")
}

func TestRecords_EmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		// 200 with empty body: no header row to parse.
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	table, err := client.Records(context.Background(), Query{Dataset: "worldcitiespop"})

	require.Error(t, err)
	assert.Nil(t, table)
	assert.True(t, errors.Is(err, model.ErrParse))
}

func TestRecords_MissingDataset(t *testing.T) {
	client := NewClient()
	table, err := client.Records(context.Background(), Query{})

	require.Error(t, err)
	assert.Nil(t, table)
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))
}

func TestRecords_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(WithBaseURL(srv.URL))
	table, err := client.Records(ctx, Query{Dataset: "worldcitiespop"})

	assert.Error(t, err)
	assert.Nil(t, table)
}
