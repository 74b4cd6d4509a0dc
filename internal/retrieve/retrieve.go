package retrieve

import (
	"context"
	"fmt"

	"github.com/your-org/memoryd/internal/store"
)

const maxEvidence = 50

// FetchEvidence resolves a ParsedQuery into store rows, with one loosening
// retry: if the keyword-filtered query returns nothing, it retries once
// without the action keyword rather than returning an empty result on a
// plausible-but-too-narrow phrasing.
func FetchEvidence(ctx context.Context, st *store.Store, q ParsedQuery) ([]store.AppearanceRow, error) {
	filter := store.RetrieveFilter{
		From:  q.From,
		To:    q.To,
		Limit: maxEvidence,
	}
	if q.PersonName != "" {
		filter.PersonName = &q.PersonName
	}
	if q.ActionLike != "" {
		filter.ActionLike = &q.ActionLike
	}

	rows, err := st.RetrieveAppearances(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("retrieve appearances: %w", err)
	}

	if len(rows) == 0 && filter.ActionLike != nil {
		filter.ActionLike = nil
		rows, err = st.RetrieveAppearances(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("retrieve appearances (loosened): %w", err)
		}
	}

	return rows, nil
}
