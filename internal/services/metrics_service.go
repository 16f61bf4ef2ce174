package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/brigada-mx/backend-sub000/internal/repository"
)

// ErrGroupMismatch reports a filtered group that has no base group. The
// filtered set is always a subset of the base set, so this only happens when
// an endpoint's definition is wrong; it is surfaced instead of silently
// misaligning counts.
var ErrGroupMismatch = errors.New("filtered group has no matching base group")

// Filter builds the WHERE fragment for one query parameter. Base filters
// narrow both the base and the filtered set; the rest narrow only the
// filtered set, which is what the rate measures.
type Filter struct {
	Base  bool
	Build func(value string) (repository.Condition, error)
}

// EqualsFilter matches a column against the raw parameter value.
func EqualsFilter(column string, base bool) Filter {
	return Filter{
		Base: base,
		Build: func(value string) (repository.Condition, error) {
			return repository.Condition{Clause: column + " = ?", Args: []interface{}{value}}, nil
		},
	}
}

// Definition is one metrics endpoint: the table it counts, the filters it
// accepts and the dimensions it can group by. Definitions are fixed at
// startup; request input only selects among them.
type Definition struct {
	From    string
	Filters map[string]Filter
	GroupBy map[string]string
}

// Query is the parsed request: filter parameter values, grouping dimensions
// in request order and the minimum base count a group needs to survive.
type Query struct {
	Params   map[string]string
	GroupBy  []string
	MinCount int64
}

// Result is one group's counts: Count is the filtered count, BaseCount the
// base count, and Rate their quotient, nil when the base count is zero.
// Dimension values marshal inline next to the counts.
type Result struct {
	Dims      map[string]string
	Count     int64
	BaseCount int64
	Rate      *float64
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Dims)+3)
	for name, value := range r.Dims {
		out[name] = value
	}
	out["count"] = r.Count
	out["base_count"] = r.BaseCount
	out["rate"] = r.Rate
	return json.Marshal(out)
}

// Response carries both parameter sets, the number of surviving groups and
// the groups themselves.
type Response struct {
	Params     map[string]string `json:"params"`
	ParamsBase map[string]string `json:"params_base"`
	Count      int               `json:"count"`
	Results    []Result          `json:"results"`
}

// GroupedCounter is the slice of the metrics repository the service needs.
type GroupedCounter interface {
	GroupedCounts(ctx context.Context, from string, conds []repository.Condition, dims []string) ([]repository.GroupCount, error)
}

type MetricsService struct {
	repo GroupedCounter
}

func NewMetricsService(repo GroupedCounter) *MetricsService {
	return &MetricsService{repo: repo}
}

// DeriveBaseParams computes the base set's parameters from the request
// parameters. It is a pure function of its inputs: the base set is always
// the filtered set minus the non-base filters, never an independently
// assembled query.
func DeriveBaseParams(def Definition, params map[string]string) map[string]string {
	base := make(map[string]string)
	for name, value := range params {
		if filter, ok := def.Filters[name]; ok && filter.Base {
			base[name] = value
		}
	}
	return base
}

// Compute runs the base and filtered grouped counts and merges them by group
// key. Merge order follows the base result set. MinCount drops groups after
// rates are computed, so a group's rate never changes because another group
// was dropped.
func (s *MetricsService) Compute(ctx context.Context, def Definition, query Query) (*Response, error) {
	dims := make([]string, 0, len(query.GroupBy))
	for _, name := range query.GroupBy {
		column, ok := def.GroupBy[name]
		if !ok {
			return nil, fmt.Errorf("cannot group by %q", name)
		}
		dims = append(dims, column)
	}

	baseParams := DeriveBaseParams(def, query.Params)
	baseConds, err := buildConditions(def, baseParams)
	if err != nil {
		return nil, err
	}
	filteredConds, err := buildConditions(def, query.Params)
	if err != nil {
		return nil, err
	}

	baseCounts, err := s.repo.GroupedCounts(ctx, def.From, baseConds, dims)
	if err != nil {
		return nil, err
	}
	filteredCounts, err := s.repo.GroupedCounts(ctx, def.From, filteredConds, dims)
	if err != nil {
		return nil, err
	}

	baseKeys := make(map[string]bool, len(baseCounts))
	for _, group := range baseCounts {
		baseKeys[groupKey(group.Dims)] = true
	}
	filteredByKey := make(map[string]int64, len(filteredCounts))
	for _, group := range filteredCounts {
		key := groupKey(group.Dims)
		if !baseKeys[key] {
			return nil, ErrGroupMismatch
		}
		filteredByKey[key] = group.Count
	}

	results := make([]Result, 0, len(baseCounts))
	for _, group := range baseCounts {
		result := Result{
			Count:     filteredByKey[groupKey(group.Dims)],
			BaseCount: group.Count,
		}
		if len(dims) > 0 {
			result.Dims = make(map[string]string, len(dims))
			for i, name := range query.GroupBy {
				result.Dims[name] = group.Dims[i]
			}
		}
		if group.Count > 0 {
			rate := float64(result.Count) / float64(group.Count)
			result.Rate = &rate
		}
		if result.BaseCount < query.MinCount {
			continue
		}
		results = append(results, result)
	}

	return &Response{
		Params:     query.Params,
		ParamsBase: baseParams,
		Count:      len(results),
		Results:    results,
	}, nil
}

func buildConditions(def Definition, params map[string]string) ([]repository.Condition, error) {
	conds := make([]repository.Condition, 0, len(params))
	for name, value := range params {
		filter, ok := def.Filters[name]
		if !ok {
			return nil, fmt.Errorf("unknown filter %q", name)
		}
		cond, err := filter.Build(value)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func groupKey(dims []string) string {
	return strings.Join(dims, "\x00")
}
