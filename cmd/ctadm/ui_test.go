package main

import "testing"

func TestComma(t *testing.T) {
	cases := map[int64]string{
		0:         "0",
		999:       "999",
		1000:      "1,000",
		-25000:    "-25,000",
		1_234_567: "1,234,567",
		-100:      "-100",
	}
	for in, want := range cases {
		if got := comma(in); got != want {
			t.Fatalf("comma(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	if got := truncate("가나다라마바사", 5); got != "가나..." {
		t.Fatalf("truncate korean = %q", got)
	}
	if got := truncate("  short ", 10); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
}

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList(" 3, 1,,7 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 1 || ids[2] != 7 {
		t.Fatalf("ids = %v", ids)
	}
	if _, err := parseIDList("1,x"); err == nil {
		t.Fatalf("expected invalid id error")
	}
	if ids, _ := parseIDList(""); len(ids) != 0 {
		t.Fatalf("empty list = %v", ids)
	}
}

func TestClassInputManagerOptional(t *testing.T) {
	in := classInput(2, 0, " 5반 ", 5, 1_000_000, 50_000)
	if in.ManagerID != nil || in.Name != "5반" || in.TotalDays != 5 {
		t.Fatalf("class input = %+v", in)
	}
	in = classInput(2, 9, "5반", 5, 0, 0)
	if in.ManagerID == nil || *in.ManagerID != 9 {
		t.Fatalf("manager id not set: %+v", in)
	}
}
