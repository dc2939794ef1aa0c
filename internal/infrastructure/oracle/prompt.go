package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scentmatch/backend/internal/domain"
)

// buildPrompt renders one arbitration batch as a numbered list of items with
// their candidate shortlists, and asks for a JSON array back.
func buildPrompt(batch []domain.ArbitrationQuery) string {
	var b strings.Builder

	b.WriteString("For every numbered item below, pick the candidate number that is the SAME product, ")
	b.WriteString("or -1 if none of the candidates is the same product.\n")
	b.WriteString(`Answer with a JSON array only, one object per item: `)
	b.WriteString(`[{"item":1,"selection":0,"reason":"..."}]`)
	b.WriteString("\n\n")

	for i, q := range batch {
		fmt.Fprintf(&b, "Item %d: %s", i+1, q.Product.Name)
		if q.Product.Price > 0 {
			fmt.Fprintf(&b, " (our price %.2f)", q.Product.Price)
		}
		b.WriteString("\nCandidates:\n")
		for j, cand := range q.Shortlist {
			fmt.Fprintf(&b, "  %d) %s", j, cand.Record.Name)
			if cand.Record.Price > 0 {
				fmt.Fprintf(&b, " (price %.2f)", cand.Record.Price)
			}
			fmt.Fprintf(&b, " [similarity %.1f]\n", cand.Score)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// verdictEntry is one element of the model's JSON answer
type verdictEntry struct {
	Item      int    `json:"item"`
	Selection int    `json:"selection"`
	Reason    string `json:"reason"`
}

// parseVerdicts extracts the JSON array from a model reply and maps it back
// onto the batch. Items the model skipped default to an out-of-range
// selection, which the caller resolves to the top candidate.
func parseVerdicts(content string, batch []domain.ArbitrationQuery) ([]domain.ArbitrationVerdict, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var entries []verdictEntry
	if err := json.Unmarshal([]byte(content[start:end+1]), &entries); err != nil {
		return nil, fmt.Errorf("decoding verdicts: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("empty verdict array")
	}

	verdicts := make([]domain.ArbitrationVerdict, len(batch))
	for i := range verdicts {
		verdicts[i] = domain.ArbitrationVerdict{SelectedIndex: len(batch[i].Shortlist), Reason: "no verdict returned"}
	}

	for _, e := range entries {
		idx := e.Item - 1
		if idx < 0 || idx >= len(batch) {
			continue
		}
		selection := e.Selection
		if selection < 0 {
			selection = domain.NoSelection
		}
		verdicts[idx] = domain.ArbitrationVerdict{SelectedIndex: selection, Reason: e.Reason}
	}

	return verdicts, nil
}
