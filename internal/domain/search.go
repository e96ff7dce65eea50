package domain

import (
	"math"
	"strings"
)

// Sort orders accepted in the "sort" query parameter. Unknown values select
// SortRelevance.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "asc"
	SortPriceDesc = "desc"
)

// ParseSort normalizes a caller-supplied sort value.
func ParseSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	default:
		return SortRelevance
	}
}

// Mode selects the search strategy.
type Mode string

const (
	// ModeLexical is substring plus price filtering over the relational store.
	ModeLexical Mode = "lexical"
	// ModeRelevance is ranked fuzzy matching over the search index.
	ModeRelevance Mode = "relevance"
)

// SearchRequest is a caller's search as received by the orchestrator.
type SearchRequest struct {
	Query string `json:"q" validate:"required"`
	Page  int    `json:"page" validate:"gte=1"`
	Limit int    `json:"limit" validate:"gte=1"`
	Sort  string `json:"sort" validate:"oneof=relevance asc desc"`
	Mode  Mode   `json:"mode" validate:"oneof=lexical relevance"`
}

// PriceConstraint bounds discount_price. Either side may be nil; both set
// means an inclusive range. Bounds are kept as given, so Min may exceed Max.
type PriceConstraint struct {
	Min *int64 `json:"min,omitempty"`
	Max *int64 `json:"max,omitempty"`
}

// InterpretedQuery is the parsed form of a raw query string.
type InterpretedQuery struct {
	Term  string
	Price *PriceConstraint
}

// ResultPage is the response envelope for both strategies.
type ResultPage struct {
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
	Sort       string        `json:"sort"`
	Results    []ProductView `json:"results"`
}

// StrategyQuery is what a strategy receives from the orchestrator.
type StrategyQuery struct {
	Term  string
	Price *PriceConstraint
	Page  int
	Limit int
	Sort  string
}

// Offset is the number of records skipped before the requested page. It
// saturates at math.MaxInt instead of overflowing.
func (q StrategyQuery) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// StrategyResult is one page of raw records and the pre-pagination total.
type StrategyResult struct {
	Records []ProductRecord
	Total   int64
}
