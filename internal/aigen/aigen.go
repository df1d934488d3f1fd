// Package aigen drafts a class's news and price schedule with a generative
// model. The model only proposes; every plan is validated before use.
package aigen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrDisabled    = errors.New("AI generation is not configured")
	ErrEmptyOutput = errors.New("model returned no content")
)

// Model returns the raw JSON text for a prompt.
type Model interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type StockRef struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

type ClassSpec struct {
	TotalDays int        `json:"total_days" validate:"gte=1,lte=60"`
	Stocks    []StockRef `json:"stocks" validate:"required,min=1,max=30,dive"`
	// Theme steers the storyline, e.g. "energy crisis".
	Theme string `json:"theme" validate:"max=200"`
	// StartPrice is a hint for day 1 prices.
	StartPrice int64  `json:"start_price" validate:"omitempty,gt=0"`
	Language   string `json:"language" validate:"omitempty,oneof=ko en"`
}

type PlanNews struct {
	Day             int     `json:"day"`
	Title           string  `json:"title"`
	Content         string  `json:"content"`
	RelatedStockIDs []int64 `json:"related_stock_ids"`
}

type PlanPrice struct {
	StockID int64 `json:"stock_id"`
	Day     int   `json:"day"`
	Price   int64 `json:"price"`
}

type Plan struct {
	News   []PlanNews  `json:"news"`
	Prices []PlanPrice `json:"prices"`
}

// PlanError lists every problem found in a generated plan.
type PlanError struct {
	Problems []string
}

func (e *PlanError) Error() string {
	return "generated plan is invalid: " + strings.Join(e.Problems, "; ")
}

type Generator struct {
	model Model
}

// NewGenerator returns a generator; a nil model yields ErrDisabled on use.
func NewGenerator(m Model) *Generator {
	return &Generator{model: m}
}

func (g *Generator) Enabled() bool {
	return g != nil && g.model != nil
}

func (g *Generator) Generate(ctx context.Context, spec ClassSpec) (Plan, error) {
	if !g.Enabled() {
		return Plan{}, ErrDisabled
	}
	raw, err := g.model.GenerateJSON(ctx, Prompt(spec))
	if err != nil {
		return Plan{}, fmt.Errorf("generate plan: %w", err)
	}
	plan, err := ParsePlan(raw)
	if err != nil {
		return Plan{}, err
	}
	if err := ValidatePlan(plan, spec); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// ParsePlan decodes model output, tolerating a fenced code block around it.
func ParsePlan(raw string) (Plan, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return Plan{}, ErrEmptyOutput
	}
	var p Plan
	if err := json.Unmarshal([]byte(clean), &p); err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	return p, nil
}

// ValidatePlan checks that every stock is priced on every day, prices are
// positive, every day has news and news only mentions known stocks.
func ValidatePlan(p Plan, spec ClassSpec) error {
	var problems []string
	known := make(map[int64]bool, len(spec.Stocks))
	for _, s := range spec.Stocks {
		known[s.ID] = true
	}

	newsPerDay := map[int]int{}
	for i, n := range p.News {
		if n.Day < 1 || n.Day > spec.TotalDays {
			problems = append(problems, fmt.Sprintf("news %d has day %d outside 1..%d", i+1, n.Day, spec.TotalDays))
			continue
		}
		if strings.TrimSpace(n.Title) == "" {
			problems = append(problems, fmt.Sprintf("news %d has no title", i+1))
		}
		for _, id := range n.RelatedStockIDs {
			if !known[id] {
				problems = append(problems, fmt.Sprintf("news %d mentions unknown stock %d", i+1, id))
			}
		}
		newsPerDay[n.Day]++
	}
	for day := 1; day <= spec.TotalDays; day++ {
		if newsPerDay[day] == 0 {
			problems = append(problems, fmt.Sprintf("day %d has no news", day))
		}
	}

	type key struct {
		stock int64
		day   int
	}
	seen := map[key]bool{}
	for _, pr := range p.Prices {
		switch {
		case !known[pr.StockID]:
			problems = append(problems, fmt.Sprintf("price for unknown stock %d", pr.StockID))
		case pr.Day < 1 || pr.Day > spec.TotalDays:
			problems = append(problems, fmt.Sprintf("price for stock %d has day %d outside 1..%d", pr.StockID, pr.Day, spec.TotalDays))
		case pr.Price <= 0:
			problems = append(problems, fmt.Sprintf("price for stock %d on day %d is not positive", pr.StockID, pr.Day))
		case seen[key{pr.StockID, pr.Day}]:
			problems = append(problems, fmt.Sprintf("stock %d is priced twice on day %d", pr.StockID, pr.Day))
		default:
			seen[key{pr.StockID, pr.Day}] = true
		}
	}
	ids := make([]int64, 0, len(known))
	for id := range known {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		for day := 1; day <= spec.TotalDays; day++ {
			if !seen[key{id, day}] {
				problems = append(problems, fmt.Sprintf("stock %d has no price on day %d", id, day))
			}
		}
	}

	if len(problems) > 0 {
		return &PlanError{Problems: problems}
	}
	return nil
}

// Prompt renders the instruction sent to the model.
func Prompt(spec ClassSpec) string {
	lang := "Korean"
	if spec.Language == "en" {
		lang = "English"
	}
	start := spec.StartPrice
	if start <= 0 {
		start = 10_000
	}
	stocks, _ := json.Marshal(spec.Stocks)

	var b strings.Builder
	fmt.Fprintf(&b, "You design a %d-day stock market game for middle and high school students.\n", spec.TotalDays)
	if spec.Theme != "" {
		fmt.Fprintf(&b, "Storyline theme: %s.\n", spec.Theme)
	}
	fmt.Fprintf(&b, "Stocks (use these ids only): %s\n", stocks)
	fmt.Fprintf(&b, "Write news in %s. Each day needs 1 to 3 news items that hint at the next day's price moves.\n", lang)
	fmt.Fprintf(&b, "Give every stock a whole-number price for every day 1..%d, starting near %d, moving at most 30%% per day.\n", spec.TotalDays, start)
	b.WriteString("Respond with JSON only, shaped as:\n")
	b.WriteString(`{"news":[{"day":1,"title":"","content":"","related_stock_ids":[1]}],"prices":[{"stock_id":1,"day":1,"price":10000}]}`)
	return b.String()
}
