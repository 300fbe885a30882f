// Package match links records across two sets with a phased, confidence
// scored algorithm: exact foreign key, then exact amount in a narrow date
// window, then fuzzy amount in a wide window. Earlier phases claim records;
// later phases only see what remains. Records surviving every phase
// unmatched are orphans, an explicit output rather than an error.
package match

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reckon-dev/reckon/internal/model"
)

// Confidence constants per phase. Base scores are adjusted by the vendor
// affinity bonus and the per-day date offset penalty, then clamped so a
// fuzzy-amount link can never outrank an exact-amount one.
var (
	confExactKey    = decimal.RequireFromString("0.95")
	baseExactAmount = decimal.RequireFromString("0.70")
	capExactAmount  = decimal.RequireFromString("0.90")
	baseFuzzyAmount = decimal.RequireFromString("0.50")
	capFuzzyAmount  = decimal.RequireFromString("0.69")
	vendorBonus     = decimal.RequireFromString("0.15")
	dayPenalty      = decimal.RequireFromString("0.01")
)

// Link is one scored correspondence between a record in A and one in B.
type Link struct {
	A          model.TransactionRecord
	B          model.TransactionRecord
	Confidence decimal.Decimal
	Rule       model.MatchRule
}

// Ambiguity records a tie between equally-ranked candidates that was
// resolved deterministically (lowest external ID wins). Logged for audit,
// never fatal.
type Ambiguity struct {
	A      model.TransactionRecord
	Chosen model.TransactionRecord
	Other  model.TransactionRecord
	Rule   model.MatchRule
}

// Result is the complete outcome of one matcher run. Every input record
// appears either in a link or as an orphan; nothing is silently dropped.
type Result struct {
	Links     []Link
	OrphansA  []model.TransactionRecord
	OrphansB  []model.TransactionRecord
	Ambiguous []Ambiguity
}

// Summary renders the human-readable counts line for a run.
func (r Result) Summary() string {
	return fmt.Sprintf("matched=%d orphans_a=%d orphans_b=%d ambiguous=%d",
		len(r.Links), len(r.OrphansA), len(r.OrphansB), len(r.Ambiguous))
}

// Run matches set A against set B. Quarantined and superseded records are
// excluded up front. The input slices are never mutated; claim state is
// local to this call, so concurrent runs over disjoint partitions are safe.
func Run(a, b []model.TransactionRecord, cfg Config) Result {
	if cfg.Key == nil {
		cfg.Key = KeyByExternalID
	}

	m := &run{
		cfg:      cfg,
		a:        matchable(a),
		b:        matchable(b),
		claimedA: map[int]bool{},
		claimedB: map[int]bool{},
	}

	m.exactKeyPhase()
	m.windowPhase(model.RuleExactAmount, cfg.NarrowWindowDays, baseExactAmount, capExactAmount, false)
	m.windowPhase(model.RuleFuzzyAmount, cfg.WideWindowDays, baseFuzzyAmount, capFuzzyAmount, true)

	for i, rec := range m.a {
		if !m.claimedA[i] {
			m.result.OrphansA = append(m.result.OrphansA, rec)
		}
	}
	for i, rec := range m.b {
		if !m.claimedB[i] {
			m.result.OrphansB = append(m.result.OrphansB, rec)
		}
	}
	return m.result
}

type run struct {
	cfg      Config
	a, b     []model.TransactionRecord
	claimedA map[int]bool
	claimedB map[int]bool
	result   Result
}

func matchable(recs []model.TransactionRecord) []model.TransactionRecord {
	out := make([]model.TransactionRecord, 0, len(recs))
	for _, r := range recs {
		if r.Status == "" || r.Status == model.RecordActive {
			out = append(out, r)
		}
	}
	// Stable processing order regardless of caller ordering.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ExternalID != out[j].ExternalID {
			return out[i].ExternalID < out[j].ExternalID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// exactKeyPhase links records sharing a non-empty foreign key at 0.95.
func (m *run) exactKeyPhase() {
	byKey := make(map[string][]int)
	for j, rec := range m.b {
		if k := m.cfg.Key(rec); k != "" {
			byKey[k] = append(byKey[k], j)
		}
	}

	for i, rec := range m.a {
		k := m.cfg.Key(rec)
		if k == "" {
			continue
		}
		candidates := unclaimed(byKey[k], m.claimedB)
		if len(candidates) == 0 {
			continue
		}
		j := candidates[0] // lowest external ID; m.b is sorted
		if len(candidates) > 1 {
			m.result.Ambiguous = append(m.result.Ambiguous, Ambiguity{
				A: rec, Chosen: m.b[j], Other: m.b[candidates[1]], Rule: model.RuleExactKey,
			})
		}
		m.claim(i, j, confExactKey, model.RuleExactKey)
	}
}

// scored is one candidate pairing considered by a window phase.
type scored struct {
	ai, bj int
	score  decimal.Decimal
}

// windowPhase links unclaimed records by amount within a date window.
// All surviving candidate pairs are ranked globally by confidence and
// claimed greedily, so the best-scoring pair always wins its records.
func (m *run) windowPhase(rule model.MatchRule, windowDays int, base, ceiling decimal.Decimal, fuzzy bool) {
	var pairs []scored
	for i, ra := range m.a {
		if m.claimedA[i] {
			continue
		}
		for j, rb := range m.b {
			if m.claimedB[j] {
				continue
			}
			days := daysBetween(ra.Day(), rb.Day())
			if days > windowDays {
				continue
			}
			if !amountsAgree(ra.Amount, rb.Amount, m.cfg.AmountEpsilon, fuzzy) {
				continue
			}
			score := m.score(ra, rb, base, ceiling, days)
			if score.LessThan(m.cfg.MinConfidence) {
				continue
			}
			pairs = append(pairs, scored{ai: i, bj: j, score: score})
		}
	}

	sort.SliceStable(pairs, func(x, y int) bool {
		if !pairs[x].score.Equal(pairs[y].score) {
			return pairs[x].score.GreaterThan(pairs[y].score)
		}
		// Deterministic tie-break: lowest external ID, A side then B side.
		if c := strings.Compare(m.a[pairs[x].ai].ExternalID, m.a[pairs[y].ai].ExternalID); c != 0 {
			return c < 0
		}
		return m.b[pairs[x].bj].ExternalID < m.b[pairs[y].bj].ExternalID
	})

	claimedHere := make(map[int]scored)
	for _, p := range pairs {
		if prev, ok := claimedHere[p.ai]; ok && prev.score.Equal(p.score) && !m.claimedB[p.bj] {
			// Two equally-ranked candidates for the same record; the earlier
			// (lower external ID) one was taken. Logged, not fatal.
			m.result.Ambiguous = append(m.result.Ambiguous, Ambiguity{
				A: m.a[p.ai], Chosen: m.b[prev.bj], Other: m.b[p.bj], Rule: rule,
			})
			continue
		}
		if m.claimedA[p.ai] || m.claimedB[p.bj] {
			continue
		}
		claimedHere[p.ai] = p
		m.claim(p.ai, p.bj, p.score, rule)
	}
}

// score computes base + vendor bonus - per-day penalty, clamped to
// [MinConfidence floor handled by caller, cap].
func (m *run) score(a, b model.TransactionRecord, base, ceiling decimal.Decimal, days int) decimal.Decimal {
	s := base
	if m.cfg.vendorAffinity(vendorOf(a), vendorOf(b)) {
		s = s.Add(vendorBonus)
	}
	s = s.Sub(dayPenalty.Mul(decimal.NewFromInt(int64(days))))
	if s.GreaterThan(ceiling) {
		return ceiling
	}
	return s
}

func vendorOf(r model.TransactionRecord) string {
	if r.CounterpartyCanon != "" {
		return r.CounterpartyCanon
	}
	return strings.ToUpper(strings.TrimSpace(r.CounterpartyText))
}

// amountsAgree compares magnitudes so that a bank debit (negative outflow)
// can match the positive receipt it paid for.
func amountsAgree(a, b, epsilon decimal.Decimal, fuzzy bool) bool {
	diff := a.Abs().Sub(b.Abs()).Abs()
	if fuzzy {
		return diff.LessThanOrEqual(epsilon)
	}
	return diff.IsZero()
}

func (m *run) claim(i, j int, confidence decimal.Decimal, rule model.MatchRule) {
	m.claimedA[i] = true
	m.claimedB[j] = true
	m.result.Links = append(m.result.Links, Link{
		A: m.a[i], B: m.b[j], Confidence: confidence, Rule: rule,
	})
}

func unclaimed(indices []int, claimed map[int]bool) []int {
	var out []int
	for _, j := range indices {
		if !claimed[j] {
			out = append(out, j)
		}
	}
	return out
}

func daysBetween(a, b time.Time) int {
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
