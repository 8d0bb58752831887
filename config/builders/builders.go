package builders

import (
	"github.com/rushteam/songrec/config"
	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/filter"
	"github.com/rushteam/songrec/pipeline"
	"github.com/rushteam/songrec/pkg/conv"
	"github.com/rushteam/songrec/rerank"
)

func init() {
	config.Register("filter", BuildFilterNode)
	config.Register("filter.popularity", BuildPopularityNode)
	config.Register("filter.year_range", BuildYearRangeNode)
	config.Register("filter.expr", BuildExprNode)
	config.Register("filter.exclude", BuildExcludeNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("rerank.topn", BuildTopNNode)
}

// BuildFilterNode 组合多个过滤器：
//
//	type: filter
//	config:
//	  filters:
//	    - {type: popularity, min: 40}
//	    - {type: expr, expr: 'track.release_year >= 2000'}
func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, core.Errorf(core.ErrInvalidInput, "filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			return nil, core.Errorf(core.ErrInvalidInput, "filter entry must be a map, got %T", fc)
		}
		f, err := buildFilter(conv.ConfigGet(filterMap, "type", ""), filterMap)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filter.NewFilterNode(filters...), nil
}

func buildFilter(filterType string, cfg map[string]any) (filter.Filter, error) {
	switch filterType {
	case "popularity":
		min := conv.ConfigGetIntPtr(cfg, "min")
		if min == nil {
			return nil, core.Errorf(core.ErrInvalidInput, "filter.popularity: min is required")
		}
		return filter.NewPopularityFilter(*min), nil
	case "year_range":
		from, to := conv.ConfigGetIntPtr(cfg, "from"), conv.ConfigGetIntPtr(cfg, "to")
		if from == nil || to == nil {
			return nil, core.Errorf(core.ErrInvalidInput, "filter.year_range: from and to are required")
		}
		return filter.NewYearRangeFilter(*from, *to, nil)
	case "expr":
		return filter.NewExprFilter(conv.ConfigGet(cfg, "expr", ""))
	case "exclude":
		return filter.NewExcludeFilter(conv.SliceAnyToString(cfg["ids"])...), nil
	default:
		return nil, core.Errorf(core.ErrInvalidInput, "unknown filter type: %s", filterType)
	}
}

func BuildPopularityNode(cfg map[string]any) (pipeline.Node, error) {
	return single("popularity", cfg)
}

func BuildYearRangeNode(cfg map[string]any) (pipeline.Node, error) {
	return single("year_range", cfg)
}

func BuildExprNode(cfg map[string]any) (pipeline.Node, error) {
	return single("expr", cfg)
}

func BuildExcludeNode(cfg map[string]any) (pipeline.Node, error) {
	return single("exclude", cfg)
}

func single(filterType string, cfg map[string]any) (pipeline.Node, error) {
	f, err := buildFilter(filterType, cfg)
	if err != nil {
		return nil, err
	}
	return filter.NewFilterNode(f), nil
}

func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Diversity{
		Cap:      conv.ConfigGetInt(cfg, "cap", core.DefaultDiversityCap),
		N:        conv.ConfigGetInt(cfg, "n", 0),
		Backfill: conv.ConfigGet(cfg, "backfill", false),
	}, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
}
