package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// FetchStyle is the policy for retrieving an association's data.
type FetchStyle int

const (
	// FetchUnset means no style was declared. It is only valid on mapping
	// metadata; resolved strategies never carry it.
	FetchUnset FetchStyle = iota

	// FetchJoin loads the association inline through an SQL join.
	FetchJoin

	// FetchSelect loads the association with a separate query per owner.
	FetchSelect

	// FetchSubselect loads the association for all owners at once, keyed by
	// a subselect over the owning query.
	FetchSubselect

	// FetchBatch loads the association for up to BatchSize owners per query.
	FetchBatch
)

var fetchStyleNames = map[FetchStyle]string{
	FetchUnset:     "",
	FetchJoin:      "join",
	FetchSelect:    "select",
	FetchSubselect: "subselect",
	FetchBatch:     "batch",
}

// String returns the lower-case mapping name of the style.
func (s FetchStyle) String() string {
	if name, ok := fetchStyleNames[s]; ok {
		return name
	}
	return fmt.Sprintf("FetchStyle(%d)", int(s))
}

// ParseFetchStyle parses a mapping or override style name.
// The empty string parses to FetchUnset.
func ParseFetchStyle(s string) (FetchStyle, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for style, n := range fetchStyleNames {
		if n == name {
			return style, nil
		}
	}
	return FetchUnset, fmt.Errorf("unknown fetch style %q: must be one of join, select, subselect, batch", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s FetchStyle) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *FetchStyle) UnmarshalText(text []byte) error {
	style, err := ParseFetchStyle(string(text))
	if err != nil {
		return err
	}
	*s = style
	return nil
}

// FetchStrategy is the effective fetch policy for one association in one
// build. BatchSize is only meaningful when Style is FetchBatch.
type FetchStrategy struct {
	Style     FetchStyle `json:"style"`
	BatchSize int        `json:"batch_size,omitempty"`
}

// JoinFetch is the inline join strategy.
func JoinFetch() FetchStrategy {
	return FetchStrategy{Style: FetchJoin}
}

// SelectFetch is the separate-select strategy.
func SelectFetch() FetchStrategy {
	return FetchStrategy{Style: FetchSelect}
}

// SubselectFetch is the subselect strategy.
func SubselectFetch() FetchStrategy {
	return FetchStrategy{Style: FetchSubselect}
}

// BatchFetch is the batch strategy with the given batch size.
func BatchFetch(size int) FetchStrategy {
	return FetchStrategy{Style: FetchBatch, BatchSize: size}
}

// IsJoin reports whether the association is loaded inline.
func (f FetchStrategy) IsJoin() bool {
	return f.Style == FetchJoin
}

// String renders the strategy as "join", "select", "subselect" or "batch(16)".
func (f FetchStrategy) String() string {
	if f.Style == FetchBatch {
		return fmt.Sprintf("batch(%d)", f.BatchSize)
	}
	return f.Style.String()
}

// ParseFetchStrategy parses "style" or "style:size" (size only for batch),
// the override syntax accepted on the command line and in scenario files.
func ParseFetchStrategy(s string) (FetchStrategy, error) {
	name, sizeText, hasSize := strings.Cut(strings.TrimSpace(s), ":")
	style, err := ParseFetchStyle(name)
	if err != nil {
		return FetchStrategy{}, err
	}
	if style == FetchUnset {
		return FetchStrategy{}, fmt.Errorf("fetch strategy is required")
	}
	strategy := FetchStrategy{Style: style}
	if hasSize {
		if style != FetchBatch {
			return FetchStrategy{}, fmt.Errorf("batch size given for non-batch style %q", name)
		}
		size, err := strconv.Atoi(sizeText)
		if err != nil || size <= 0 {
			return FetchStrategy{}, fmt.Errorf("invalid batch size %q: must be a positive integer", sizeText)
		}
		strategy.BatchSize = size
	}
	return strategy, nil
}
