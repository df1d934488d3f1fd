package game

import (
	"errors"
	"reflect"
	"testing"
)

func TestCheckAdvance(t *testing.T) {
	base := func() AdvanceState {
		return AdvanceState{
			CurrentDay: 2,
			TotalDays:  5,
			NewsCount:  1,
			Universe:   []int64{3, 1, 2},
			Priced:     map[int64]bool{1: true, 2: true, 3: true},
		}
	}

	if err := CheckAdvance(base()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := base()
	st.CurrentDay = 5
	if err := CheckAdvance(st); !errors.Is(err, ErrLastDay) {
		t.Fatalf("expected ErrLastDay, got %v", err)
	}

	st = base()
	st.NewsCount = 0
	if err := CheckAdvance(st); !errors.Is(err, ErrNoNewsForDay) {
		t.Fatalf("expected ErrNoNewsForDay, got %v", err)
	}

	st = base()
	st.Universe = nil
	if err := CheckAdvance(st); !errors.Is(err, ErrNoStocks) {
		t.Fatalf("expected ErrNoStocks, got %v", err)
	}

	st = base()
	st.Priced = map[int64]bool{2: true}
	var missing *MissingPricesError
	if err := CheckAdvance(st); !errors.As(err, &missing) {
		t.Fatalf("expected MissingPricesError, got %v", err)
	}
	if missing.Day != 2 || !reflect.DeepEqual(missing.StockIDs, []int64{1, 3}) {
		t.Fatalf("unexpected missing prices %+v", missing)
	}
}

func TestCheckAdvanceLastDayWinsOverNews(t *testing.T) {
	st := AdvanceState{CurrentDay: 3, TotalDays: 3}
	if err := CheckAdvance(st); !errors.Is(err, ErrLastDay) {
		t.Fatalf("expected ErrLastDay, got %v", err)
	}
}
