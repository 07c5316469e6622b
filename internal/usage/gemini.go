package usage

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/yuxishi/aiusage/internal/model"
)

// Gemini quotas reset daily, whatever the reported reset spacing.
const geminiPeriod = 24 * time.Hour

// ModelQuota is the most constrained bucket seen for one model.
type ModelQuota struct {
	ModelID                 string
	LowestRemainingFraction float64
	ResetTime               *time.Time
}

// QuotaPool groups models sharing the same remaining fraction and reset.
type QuotaPool struct {
	ModelIDs          []string
	RemainingFraction float64
	ResetTime         *time.Time
}

// ParseGeminiUsage emits one window per distinct quota pool.
func ParseGeminiUsage(resp GeminiQuotaResponse) model.ServiceUsageData {
	pools := PoolQuotas(GroupModelQuotas(resp.Buckets))

	windows := make([]model.UsageWindow, 0, len(pools))
	for _, pool := range pools {
		windows = append(windows, model.UsageWindow{
			Name:           FormatModelNames(pool.ModelIDs),
			Utilization:    round2((1 - pool.RemainingFraction) * 100),
			ResetsAt:       pool.ResetTime,
			PeriodDuration: geminiPeriod,
		})
	}

	return model.ServiceUsageData{
		Service: model.ServiceGemini,
		Windows: windows,
	}
}

// GroupModelQuotas keeps, per model, the bucket with the lowest remaining
// fraction (input-token quota usually binds first). Models are returned in
// first-seen order; on exact ties the first bucket wins.
func GroupModelQuotas(buckets []GeminiQuotaBucket) []ModelQuota {
	var order []string
	byModel := make(map[string]*ModelQuota)

	for _, b := range buckets {
		if b.RemainingFraction == nil {
			continue
		}
		fraction := *b.RemainingFraction
		existing, ok := byModel[b.ModelID]
		if !ok {
			order = append(order, b.ModelID)
			byModel[b.ModelID] = &ModelQuota{
				ModelID:                 b.ModelID,
				LowestRemainingFraction: fraction,
				ResetTime:               parseTimestamp(b.ResetTime),
			}
			continue
		}
		if fraction < existing.LowestRemainingFraction {
			existing.LowestRemainingFraction = fraction
			existing.ResetTime = parseTimestamp(b.ResetTime)
		}
	}

	return lo.Map(order, func(id string, _ int) ModelQuota {
		return *byModel[id]
	})
}

// PoolQuotas merges models with identical (remaining fraction, reset time)
// into one pool. Pools keep the first-seen order of their key.
func PoolQuotas(quotas []ModelQuota) []QuotaPool {
	var keys []string
	pools := make(map[string]*QuotaPool)

	for _, q := range quotas {
		key := poolKey(q)
		pool, ok := pools[key]
		if !ok {
			keys = append(keys, key)
			pools[key] = &QuotaPool{
				ModelIDs:          []string{q.ModelID},
				RemainingFraction: q.LowestRemainingFraction,
				ResetTime:         q.ResetTime,
			}
			continue
		}
		pool.ModelIDs = append(pool.ModelIDs, q.ModelID)
	}

	return lo.Map(keys, func(key string, _ int) QuotaPool {
		return *pools[key]
	})
}

func poolKey(q ModelQuota) string {
	reset := "none"
	if q.ResetTime != nil {
		reset = q.ResetTime.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	return fmt.Sprintf("%.6f|%s", q.LowestRemainingFraction, reset)
}

// FormatModelNames renders a sorted, de-duplicated list of model IDs. Names
// that share their first word collapse into "<Prefix> <a>, <b>".
func FormatModelNames(ids []string) string {
	unique := lo.Uniq(ids)
	sort.Strings(unique)
	names := lo.Map(unique, func(id string, _ int) string {
		return FormatModelName(id)
	})

	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}

	prefix, _, _ := strings.Cut(names[0], " ")
	suffixes := make([]string, 0, len(names))
	for _, name := range names {
		p, suffix, _ := strings.Cut(name, " ")
		if p != prefix || suffix == "" {
			return strings.Join(names, ", ")
		}
		suffixes = append(suffixes, suffix)
	}
	return prefix + " " + strings.Join(suffixes, ", ")
}

// FormatModelName turns "gemini-2.5-pro" into "Gemini 2.5 Pro". Tokens that
// start with a digit are kept verbatim.
func FormatModelName(id string) string {
	tokens := lo.Filter(strings.Split(id, "-"), func(tok string, _ int) bool {
		return tok != ""
	})
	for i, tok := range tokens {
		if tok[0] >= '0' && tok[0] <= '9' {
			continue
		}
		r, size := utf8.DecodeRuneInString(tok)
		tokens[i] = string(unicode.ToUpper(r)) + tok[size:]
	}
	return strings.Join(tokens, " ")
}
