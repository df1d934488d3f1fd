package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"classtrade/internal/admin"
	"classtrade/internal/aigen"
	"classtrade/internal/game"
	"classtrade/internal/syncq"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Fprintln(os.Stderr, msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

// newTable styles the header row and right-aligns the listed numeric columns.
func newTable(headers []string, numeric ...int) *table.Table {
	right := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		right[c] = true
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case right[col]:
				return numberStyle
			default:
				return cellStyle
			}
		})
}

func renderClasses(classes []admin.Class) {
	accent.Println("\n== CLASSES ==")
	if len(classes) == 0 {
		printInfo("No classes yet.")
		return
	}
	t := newTable([]string{"ID", "NAME", "STATUS", "DAY", "START", "BENEFIT"}, 0, 3, 4, 5)
	for _, c := range classes {
		t.Row(
			strconv.FormatInt(c.ID, 10),
			truncate(c.Name, 24),
			statusText(c.Status),
			fmt.Sprintf("%d/%d", c.CurrentDay, c.TotalDays),
			comma(c.StartingBalance),
			comma(c.DailyBenefit),
		)
	}
	fmt.Println(t)
}

func renderClass(c admin.Class) {
	accent.Printf("\n== CLASS #%d ==\n", c.ID)
	fmt.Printf("%-18s %s\n", "Name", c.Name)
	fmt.Printf("%-18s %s\n", "Status", statusText(c.Status))
	fmt.Printf("%-18s %d of %d\n", "Day", c.CurrentDay, c.TotalDays)
	fmt.Printf("%-18s %s\n", "Starting balance", comma(c.StartingBalance))
	fmt.Printf("%-18s %s\n", "Daily benefit", comma(c.DailyBenefit))
	fmt.Printf("%-18s %d\n", "Client", c.ClientID)
	if c.ManagerID != nil {
		fmt.Printf("%-18s %d\n", "Manager", *c.ManagerID)
	}
	fmt.Printf("%-18s %s\n", "Updated", c.UpdatedAt.Local().Format(time.DateTime))
	fmt.Println()
}

func renderOverview(o admin.Overview) {
	renderClass(o.Class)
	fmt.Printf("%-18s %d\n", "Students", o.GuestCount)
	fmt.Printf("%-18s %d trades, %s volume\n\n", "Today", o.TradesToday, comma(o.VolumeToday))

	t := newTable([]string{"DAY", "NEWS", "PRICED", "READY"}, 0, 1, 2)
	for _, d := range o.Days {
		ready := danger.Sprint("no")
		if d.NewsCount > 0 && d.Universe > 0 && d.Priced == d.Universe {
			ready = success.Sprint("yes")
		}
		day := strconv.Itoa(d.Day)
		if d.Day == o.Class.CurrentDay {
			day = "> " + day
		}
		t.Row(day, strconv.Itoa(d.NewsCount), fmt.Sprintf("%d/%d", d.Priced, d.Universe), ready)
	}
	fmt.Println(t)
	renderRanking("Top ranking", o.TopRanking)
}

func renderRanking(title string, rows []game.RankingRow) {
	accent.Printf("\n== %s ==\n", strings.ToUpper(title))
	if len(rows) == 0 {
		printInfo("No students yet.")
		return
	}
	t := newTable([]string{"RANK", "NICKNAME", "ASSETS", "CAPITAL", "PROFIT", "RATE"}, 0, 2, 3, 4, 5)
	for _, r := range rows {
		t.Row(
			strconv.Itoa(r.Rank),
			truncate(r.Nickname, 16),
			comma(r.TotalAssets),
			comma(r.InitialCapital),
			colorizeAmount(r.Profit),
			colorizePercent(r.ProfitRate),
		)
	}
	fmt.Println(t)
}

func renderGuests(guests []admin.Guest) {
	accent.Println("\n== STUDENTS ==")
	if len(guests) == 0 {
		printInfo("No students yet.")
		return
	}
	t := newTable([]string{"ID", "NAME", "NICKNAME", "PHONE", "SCHOOL", "GRADE", "BALANCE", "LAST LOGIN"}, 0, 5, 6)
	for _, g := range guests {
		nick := "-"
		if g.Nickname != nil {
			nick = *g.Nickname
		}
		grade := "-"
		if g.Grade > 0 {
			grade = strconv.Itoa(g.Grade)
		}
		last := "never"
		if g.LastLoginAt != nil {
			last = g.LastLoginAt.Local().Format(time.DateTime)
		}
		t.Row(
			strconv.FormatInt(g.ID, 10),
			truncate(g.Name, 12),
			truncate(nick, 12),
			g.Phone,
			truncate(g.School, 14),
			grade,
			comma(g.Balance),
			last,
		)
	}
	fmt.Println(t)
}

func renderBulk(res admin.BulkResult) {
	if res.Created > 0 {
		printSuccess(fmt.Sprintf("Created %d students.", res.Created))
	}
	if res.Failed == 0 {
		if res.Created == 0 {
			printInfo("Nothing to import.")
		}
		return
	}
	printWarn(fmt.Sprintf("%d rows failed.", res.Failed))
	t := newTable([]string{"ROW", "PROBLEM"}, 0)
	for _, e := range res.Errors {
		t.Row(strconv.Itoa(e.Row), e.Message)
	}
	fmt.Println(t)
}

func renderQueue(entries []syncq.Entry) {
	accent.Println("\n== RETRY QUEUE ==")
	if len(entries) == 0 {
		printInfo("Queue is empty.")
		return
	}
	t := newTable([]string{"CLASS", "ROW", "NAME", "PHONE", "PROBLEM", "QUEUED"}, 0, 1)
	for _, e := range entries {
		t.Row(
			strconv.FormatInt(e.ClassID, 10),
			strconv.Itoa(e.Row.Row),
			truncate(e.Row.Name, 12),
			e.Row.Phone,
			truncate(e.Message, 40),
			e.QueuedAt.Local().Format(time.DateTime),
		)
	}
	fmt.Println(t)
}

func renderPlan(p aigen.Plan) {
	accent.Printf("\n== PLAN: %d news, %d prices ==\n", len(p.News), len(p.Prices))
	t := newTable([]string{"DAY", "TITLE", "STOCKS"}, 0)
	for _, n := range p.News {
		ids := make([]string, len(n.RelatedStockIDs))
		for i, id := range n.RelatedStockIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		t.Row(strconv.Itoa(n.Day), truncate(n.Title, 40), strings.Join(ids, ","))
	}
	fmt.Println(t)
}

func statusText(s string) string {
	switch s {
	case game.StatusActive:
		return success.Sprint(s)
	case game.StatusEnded:
		return danger.Sprint(s)
	default:
		return warn.Sprint(s)
	}
}

func colorizeAmount(v int64) string {
	text := comma(v)
	switch {
	case v > 0:
		return success.Sprint("+" + text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

// colorizePercent renders a ratio such as 0.125 as +12.50%.
func colorizePercent(ratio float64) string {
	v := ratio * 100
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func comma(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.WriteString(sign)
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		b.WriteByte(',')
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

// truncate cuts by rune so Korean names are never split mid-character.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
