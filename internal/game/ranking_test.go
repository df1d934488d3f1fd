package game

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func rankingFixture() RankingInput {
	return RankingInput{
		Guests: []Guest{
			{ID: 1, Name: "김민수", Nickname: "다람쥐"},
			{ID: 2, Name: "이서연", Nickname: "가람"},
			{ID: 3, Name: "박지훈"},
			{ID: 4, Name: "최유진", Nickname: "나비"},
		},
		Balances: map[int64]int64{1: 50_000, 2: 120_000, 3: 100_000, 4: 50_000},
		Capital:  map[int64]int64{1: 100_000, 2: 100_000, 3: 100_000, 4: 100_000},
		Holdings: map[int64]map[int64]Position{
			1: {10: {Quantity: 5, AveragePrice: decimal.NewFromInt(10_000)}},
			4: {10: {Quantity: 5, AveragePrice: decimal.NewFromInt(10_000)}},
		},
		Prices: map[int64]int64{10: 12_000},
	}
}

func TestComputeRankingOrder(t *testing.T) {
	rows := ComputeRanking(rankingFixture())
	if len(rows) != 4 {
		t.Fatalf("rows=%d want 4", len(rows))
	}

	// guest 2: 120k assets (+20%), guests 1 and 4: 110k (+10%), guest 3: flat.
	gotIDs := []int64{rows[0].GuestID, rows[1].GuestID, rows[2].GuestID, rows[3].GuestID}
	wantIDs := []int64{2, 4, 1, 3}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Fatalf("order=%v want %v", gotIDs, wantIDs)
	}
	gotRanks := []int{rows[0].Rank, rows[1].Rank, rows[2].Rank, rows[3].Rank}
	wantRanks := []int{1, 2, 2, 3}
	if !reflect.DeepEqual(gotRanks, wantRanks) {
		t.Fatalf("ranks=%v want %v", gotRanks, wantRanks)
	}
	if rows[1].TotalAssets != 110_000 || rows[1].Profit != 10_000 || rows[1].ProfitRate != 0.1 {
		t.Fatalf("unexpected row %+v", rows[1])
	}
	if rows[3].Nickname != "박지훈" {
		t.Fatalf("guest without nickname should rank under real name, got %q", rows[3].Nickname)
	}
}

func TestComputeRankingIsIdempotent(t *testing.T) {
	in := rankingFixture()
	first := ComputeRanking(in)
	for i := 0; i < 5; i++ {
		if got := ComputeRanking(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestComputeRankingZeroCapital(t *testing.T) {
	rows := ComputeRanking(RankingInput{
		Guests:   []Guest{{ID: 7, Name: "new"}},
		Balances: map[int64]int64{7: 0},
	})
	if len(rows) != 1 || rows[0].Rank != 1 || rows[0].ProfitRate != 0 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestComputeRankingUnpricedHoldingUsesCost(t *testing.T) {
	in := RankingInput{
		Guests:   []Guest{{ID: 1, Name: "a"}},
		Balances: map[int64]int64{1: 10_000},
		Capital:  map[int64]int64{1: 100_000},
		Holdings: map[int64]map[int64]Position{
			1: {99: {Quantity: 9, AveragePrice: decimal.NewFromInt(10_000)}},
		},
	}
	rows := ComputeRanking(in)
	if rows[0].TotalAssets != 100_000 || rows[0].Profit != 0 {
		t.Fatalf("unexpected row %+v", rows[0])
	}
}

func TestRankOf(t *testing.T) {
	rows := ComputeRanking(rankingFixture())
	row, ok := RankOf(rows, 3)
	if !ok || row.Rank != 3 {
		t.Fatalf("rank of guest 3: row=%+v ok=%v", row, ok)
	}
	if _, ok := RankOf(rows, 42); ok {
		t.Fatalf("unknown guest should not be found")
	}
}
