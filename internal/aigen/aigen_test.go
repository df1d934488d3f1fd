package aigen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	out    string
	err    error
	prompt string
}

func (f *fakeModel) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func twoDaySpec() ClassSpec {
	return ClassSpec{
		TotalDays: 2,
		Stocks:    []StockRef{{ID: 1, Name: "한빛전자"}, {ID: 2, Name: "푸른에너지"}},
		Theme:     "energy crisis",
	}
}

const validPlan = "```json\n" + `{
  "news": [
    {"day": 1, "title": "Oil prices surge", "content": "...", "related_stock_ids": [2]},
    {"day": 2, "title": "Chip demand slows", "content": "...", "related_stock_ids": [1]}
  ],
  "prices": [
    {"stock_id": 1, "day": 1, "price": 10000},
    {"stock_id": 1, "day": 2, "price": 9500},
    {"stock_id": 2, "day": 1, "price": 8000},
    {"stock_id": 2, "day": 2, "price": 9100}
  ]
}` + "\n```"

func TestGenerateValidPlan(t *testing.T) {
	m := &fakeModel{out: validPlan}
	plan, err := NewGenerator(m).Generate(context.Background(), twoDaySpec())
	require.NoError(t, err)
	assert.Len(t, plan.News, 2)
	assert.Len(t, plan.Prices, 4)
	assert.Contains(t, m.prompt, "energy crisis")
	assert.Contains(t, m.prompt, "Korean")
}

func TestGenerateDisabled(t *testing.T) {
	_, err := NewGenerator(nil).Generate(context.Background(), twoDaySpec())
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestGenerateModelError(t *testing.T) {
	boom := errors.New("quota exceeded")
	_, err := NewGenerator(&fakeModel{err: boom}).Generate(context.Background(), twoDaySpec())
	assert.ErrorIs(t, err, boom)
}

func TestParsePlanEmpty(t *testing.T) {
	_, err := ParsePlan("  ``` ")
	assert.ErrorIs(t, err, ErrEmptyOutput)
	_, err = ParsePlan("not json")
	assert.Error(t, err)
}

func TestValidatePlanReportsProblems(t *testing.T) {
	plan := Plan{
		News: []PlanNews{
			{Day: 1, Title: "ok", RelatedStockIDs: []int64{9}},
			{Day: 5, Title: "late"},
		},
		Prices: []PlanPrice{
			{StockID: 1, Day: 1, Price: 100},
			{StockID: 1, Day: 1, Price: 110},
			{StockID: 2, Day: 1, Price: 0},
			{StockID: 3, Day: 1, Price: 10},
		},
	}
	err := ValidatePlan(plan, twoDaySpec())
	var perr *PlanError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Problems, "news 1 mentions unknown stock 9")
	assert.Contains(t, perr.Problems, "news 2 has day 5 outside 1..2")
	assert.Contains(t, perr.Problems, "day 2 has no news")
	assert.Contains(t, perr.Problems, "stock 1 is priced twice on day 1")
	assert.Contains(t, perr.Problems, "price for stock 2 on day 1 is not positive")
	assert.Contains(t, perr.Problems, "price for unknown stock 3")
	assert.Contains(t, perr.Problems, "stock 1 has no price on day 2")
	assert.Contains(t, perr.Problems, "stock 2 has no price on day 1")
}
