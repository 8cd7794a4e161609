package memory

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"context"

	"github.com/kraklabs/rwm/internal/tokens"
	"github.com/kraklabs/rwm/pkg/store"
)

// Compose gathers candidates from db, scores them, and greedily packs them
// under opts.Budget by utility density (score / (tokenCost+1)), with
// mandatory inclusion of the most recent decisions and failures. now is the
// reference time for recency scoring, threaded explicitly so tests are
// deterministic.
func Compose(ctx context.Context, db store.Store, estimator tokens.Estimator, opts BundleOptions, now time.Time) (Bundle, error) {
	tasks, err := db.ListActiveTasks(ctx, opts.SessionID, 20)
	if err != nil {
		return Bundle{}, err
	}
	events, err := db.ListRecentEvents(ctx, opts.SessionID, 100)
	if err != nil {
		return Bundle{}, err
	}
	facts, err := db.ListFacts(ctx)
	if err != nil {
		return Bundle{}, err
	}

	family := tokens.ParseFamily(opts.Family)
	candidates := make([]Candidate, 0, len(tasks)+len(events)+len(facts))

	for _, t := range tasks {
		text := fmt.Sprintf("TASK %s: %s [%s]", t.ID, t.Title, t.Status)
		if t.AcceptCriteria != nil && *t.AcceptCriteria != "" {
			text += "\nACCEPT: " + *t.AcceptCriteria
		}
		score := 5.0 + math.Max(0, 3-ageHours(t.UpdatedAt, now)*0.5)
		candidates = append(candidates, Candidate{
			ID: t.ID, Kind: CandidateTask, Text: text,
			TokenCost: estimator.Estimate(text, family), Score: score, Ts: t.UpdatedAt,
		})
	}

	for _, e := range events {
		text := fmt.Sprintf("%s %s: %s", e.Kind, e.ID, e.Summary)
		base := 2.0
		switch e.Kind {
		case store.EventTestFail, store.EventBlocker:
			base = 4.0
		case store.EventDecision:
			base = 3.5
		}
		score := base + math.Max(0, 4-ageHours(e.Ts, now))
		candidates = append(candidates, Candidate{
			ID: e.ID, Kind: CandidateEvent, Text: text,
			TokenCost: estimator.Estimate(text, family), Score: score, Ts: e.Ts,
		})
	}

	for _, f := range facts {
		text := fmt.Sprintf("FACT %s=%s (%s)", f.Key, f.Value, f.Scope)
		candidates = append(candidates, Candidate{
			ID: f.ID, Kind: CandidateFact, Text: text,
			TokenCost: estimator.Estimate(text, family), Score: 1.5,
		})
	}

	mandatoryIDs := mandatorySet(events)
	for i := range candidates {
		if mandatoryIDs[candidates[i].ID] {
			candidates[i].Mandatory = true
		}
	}

	picked, tokenUsed := pack(candidates, opts.Budget)

	nowCard := buildNowCard(tasks, events)
	text := renderBundleText(nowCard, picked)

	structured := BundleStructured{
		Now:           nowCard,
		TokenEstimate: tokenUsed,
		Budget:        opts.Budget,
		SessionID:     opts.SessionID,
	}
	metrics := make([]Metric, 0, len(picked))
	for _, c := range picked {
		structured.Pointers = append(structured.Pointers, Pointer{Type: c.Kind, ID: c.ID, TokenCost: c.TokenCost})
		metrics = append(metrics, Metric{PointerID: c.ID, TokenCost: c.TokenCost})
	}

	return Bundle{Text: text, Structured: structured, Metrics: metrics}, nil
}

func ageHours(t, now time.Time) float64 {
	return now.Sub(t).Hours()
}

// mandatorySet returns up to 3 most recent DECISION events plus up to 3 most
// recent TEST_FAIL or BLOCKER events, as a set of event IDs.
func mandatorySet(events []store.Event) map[string]bool {
	decisions := make([]store.Event, 0)
	failures := make([]store.Event, 0)
	for _, e := range events {
		switch e.Kind {
		case store.EventDecision:
			decisions = append(decisions, e)
		case store.EventTestFail, store.EventBlocker:
			failures = append(failures, e)
		}
	}
	sortByTsDesc(decisions)
	sortByTsDesc(failures)

	out := map[string]bool{}
	for i, e := range decisions {
		if i >= 3 {
			break
		}
		out[e.ID] = true
	}
	for i, e := range failures {
		if i >= 3 {
			break
		}
		out[e.ID] = true
	}
	return out
}

func sortByTsDesc(events []store.Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Ts.After(events[j].Ts) })
}

// pack implements the greedy knapsack: mandatory items first (by descending
// ts, skipped if they don't fit), then the remainder sorted by utility
// density descending.
func pack(candidates []Candidate, budget int) ([]Candidate, int) {
	var mandatory, rest []Candidate
	for _, c := range candidates {
		if c.Mandatory {
			mandatory = append(mandatory, c)
		} else {
			rest = append(rest, c)
		}
	}
	sort.SliceStable(mandatory, func(i, j int) bool { return mandatory[i].Ts.After(mandatory[j].Ts) })
	sort.SliceStable(rest, func(i, j int) bool {
		di := rest[i].Score / float64(rest[i].TokenCost+1)
		dj := rest[j].Score / float64(rest[j].TokenCost+1)
		return di > dj
	})

	picked := make([]Candidate, 0, len(candidates))
	pickedIDs := map[string]bool{}
	used := 0

	for _, c := range mandatory {
		if used+c.TokenCost > budget {
			continue
		}
		used += c.TokenCost
		picked = append(picked, c)
		pickedIDs[c.ID] = true
	}
	for _, c := range rest {
		if pickedIDs[c.ID] {
			continue
		}
		if used+c.TokenCost > budget {
			continue
		}
		used += c.TokenCost
		picked = append(picked, c)
		pickedIDs[c.ID] = true
	}
	return picked, used
}

func buildNowCard(tasks []store.Task, events []store.Event) NowCard {
	card := NowCard{Objective: "No active task"}
	if len(tasks) > 0 {
		card.Objective = tasks[0].Title
		for _, t := range tasks {
			card.ActiveTaskIDs = append(card.ActiveTaskIDs, t.ID)
		}
	}

	decisions := make([]store.Event, 0)
	failures := make([]store.Event, 0)
	for _, e := range events {
		switch e.Kind {
		case store.EventDecision:
			decisions = append(decisions, e)
		case store.EventTestFail:
			failures = append(failures, e)
		}
	}
	sortByTsDesc(decisions)
	sortByTsDesc(failures)
	for i, e := range decisions {
		if i >= 5 {
			break
		}
		card.DecisionIDs = append(card.DecisionIDs, e.ID)
	}
	for i, e := range failures {
		if i >= 5 {
			break
		}
		card.TestFailIDs = append(card.TestFailIDs, e.ID)
	}
	return card
}

func renderBundleText(now NowCard, picked []Candidate) string {
	var b strings.Builder
	b.WriteString("NOW:\n")
	fmt.Fprintf(&b, "- Objective: %s\n", now.Objective)
	b.WriteString("- Active: " + joinOrDash(now.ActiveTaskIDs) + "\n")
	b.WriteString("- Decisions: " + joinOrDash(now.DecisionIDs) + "\n")
	b.WriteString("- Failing tests: " + joinOrDash(now.TestFailIDs) + "\n")
	b.WriteString("\nPOINTERS:\n")
	for _, c := range picked {
		fmt.Fprintf(&b, "• %s %s\n", c.Kind, c.ID)
	}
	return b.String()
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "—"
	}
	return strings.Join(ids, ", ")
}
