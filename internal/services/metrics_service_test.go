package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brigada-mx/backend-sub000/internal/repository"
)

// fakeCounter serves canned grouped counts: the first call gets the base
// rows, the second the filtered rows.
type fakeCounter struct {
	base     []repository.GroupCount
	filtered []repository.GroupCount
	calls    int
	conds    [][]repository.Condition
}

func (f *fakeCounter) GroupedCounts(ctx context.Context, from string, conds []repository.Condition, dims []string) ([]repository.GroupCount, error) {
	f.calls++
	f.conds = append(f.conds, conds)
	if f.calls == 1 {
		return f.base, nil
	}
	return f.filtered, nil
}

func testDefinition() Definition {
	return Definition{
		From: "care_log_entries",
		Filters: map[string]Filter{
			"month":  EqualsFilter("month", true),
			"status": EqualsFilter("status", false),
		},
		GroupBy: map[string]string{"nurse": "nurse_id"},
	}
}

func TestComputeRatesPerGroup(t *testing.T) {
	counter := &fakeCounter{
		base: []repository.GroupCount{
			{Dims: []string{"1"}, Count: 10},
			{Dims: []string{"2"}, Count: 5},
		},
		filtered: []repository.GroupCount{
			{Dims: []string{"1"}, Count: 7},
		},
	}
	svc := NewMetricsService(counter)

	response, err := svc.Compute(context.Background(), testDefinition(), Query{
		Params:  map[string]string{"month": "2026-08", "status": "1"},
		GroupBy: []string{"nurse"},
	})
	require.NoError(t, err)
	require.Len(t, response.Results, 2)

	first := response.Results[0]
	assert.Equal(t, "1", first.Dims["nurse"])
	assert.Equal(t, int64(10), first.BaseCount)
	assert.Equal(t, int64(7), first.Count)
	require.NotNil(t, first.Rate)
	assert.InDelta(t, 0.7, *first.Rate, 1e-9)

	// A group missing from the filtered set counts as zero, rate 0.0.
	second := response.Results[1]
	assert.Equal(t, "2", second.Dims["nurse"])
	assert.Equal(t, int64(5), second.BaseCount)
	assert.Equal(t, int64(0), second.Count)
	require.NotNil(t, second.Rate)
	assert.Equal(t, 0.0, *second.Rate)

	assert.Equal(t, 2, response.Count)
}

func TestResponseWireShape(t *testing.T) {
	counter := &fakeCounter{
		base:     []repository.GroupCount{{Dims: []string{"1"}, Count: 10}},
		filtered: []repository.GroupCount{{Dims: []string{"1"}, Count: 7}},
	}
	svc := NewMetricsService(counter)

	response, err := svc.Compute(context.Background(), testDefinition(), Query{
		Params:  map[string]string{"status": "1"},
		GroupBy: []string{"nurse"},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(response)
	require.NoError(t, err)

	// Dimension values sit inline in each result, count is the filtered
	// count and base_count the base count.
	var decoded struct {
		Count   int                      `json:"count"`
		Results []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 1, decoded.Count)
	require.Len(t, decoded.Results, 1)

	row := decoded.Results[0]
	assert.Equal(t, "1", row["nurse"])
	assert.Equal(t, float64(7), row["count"])
	assert.Equal(t, float64(10), row["base_count"])
	assert.InDelta(t, 0.7, row["rate"].(float64), 1e-9)
	assert.NotContains(t, row, "values")
	assert.NotContains(t, row, "count_filtered")
}

func TestComputeUngroupedZeroBase(t *testing.T) {
	counter := &fakeCounter{
		base:     []repository.GroupCount{{Dims: []string{}, Count: 0}},
		filtered: nil,
	}
	svc := NewMetricsService(counter)

	response, err := svc.Compute(context.Background(), testDefinition(), Query{
		Params: map[string]string{"status": "1"},
	})
	require.NoError(t, err)
	require.Len(t, response.Results, 1)
	assert.Nil(t, response.Results[0].Rate, "zero base has no rate")
}

func TestComputeMinCountAppliedAfterRates(t *testing.T) {
	counter := &fakeCounter{
		base: []repository.GroupCount{
			{Dims: []string{"1"}, Count: 10},
			{Dims: []string{"2"}, Count: 3},
		},
		filtered: []repository.GroupCount{
			{Dims: []string{"1"}, Count: 7},
			{Dims: []string{"2"}, Count: 3},
		},
	}
	svc := NewMetricsService(counter)

	response, err := svc.Compute(context.Background(), testDefinition(), Query{
		Params:   map[string]string{"status": "1"},
		GroupBy:  []string{"nurse"},
		MinCount: 5,
	})
	require.NoError(t, err)
	require.Len(t, response.Results, 1)
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "1", response.Results[0].Dims["nurse"])
	assert.InDelta(t, 0.7, *response.Results[0].Rate, 1e-9)
}

func TestComputeGroupMismatch(t *testing.T) {
	counter := &fakeCounter{
		base:     []repository.GroupCount{{Dims: []string{"1"}, Count: 10}},
		filtered: []repository.GroupCount{{Dims: []string{"9"}, Count: 1}},
	}
	svc := NewMetricsService(counter)

	_, err := svc.Compute(context.Background(), testDefinition(), Query{
		GroupBy: []string{"nurse"},
		Params:  map[string]string{},
	})
	assert.ErrorIs(t, err, ErrGroupMismatch)
}

func TestComputeUnknownGroupDimension(t *testing.T) {
	svc := NewMetricsService(&fakeCounter{})

	_, err := svc.Compute(context.Background(), testDefinition(), Query{
		GroupBy: []string{"city"},
		Params:  map[string]string{},
	})
	assert.Error(t, err)
}

func TestDeriveBaseParams(t *testing.T) {
	def := testDefinition()
	params := map[string]string{"month": "2026-08", "status": "1"}

	base := DeriveBaseParams(def, params)
	assert.Equal(t, map[string]string{"month": "2026-08"}, base)

	// Pure: same inputs, same output, input untouched.
	assert.Equal(t, base, DeriveBaseParams(def, params))
	assert.Equal(t, map[string]string{"month": "2026-08", "status": "1"}, params)
}

func TestComputeBaseUsesOnlyBaseFilters(t *testing.T) {
	counter := &fakeCounter{
		base:     []repository.GroupCount{{Dims: []string{}, Count: 4}},
		filtered: []repository.GroupCount{{Dims: []string{}, Count: 2}},
	}
	svc := NewMetricsService(counter)

	_, err := svc.Compute(context.Background(), testDefinition(), Query{
		Params: map[string]string{"month": "2026-08", "status": "1"},
	})
	require.NoError(t, err)
	require.Len(t, counter.conds, 2)
	assert.Len(t, counter.conds[0], 1, "base query carries only the base filter")
	assert.Len(t, counter.conds[1], 2, "filtered query carries every filter")
}
