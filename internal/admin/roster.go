package admin

import (
	"context"
	"sort"

	"classtrade/internal/roster"
)

// ImportRoster creates the parsed rows and folds the parser's rejects into
// the tallies, ordered by line.
func (s *Service) ImportRoster(ctx context.Context, classID int64, parsed roster.Result) (BulkResult, error) {
	rows := make([]GuestInput, len(parsed.Rows))
	for i, r := range parsed.Rows {
		rows[i] = GuestInput{Row: r.Line, Name: r.Name, Phone: r.Phone, School: r.School, Grade: r.Grade}
	}
	out, err := s.BulkCreate(ctx, classID, rows)
	if err != nil {
		return out, err
	}
	return MergeRejects(out, parsed.Errors), nil
}

// MergeRejects adds parser-level failures to a bulk result.
func MergeRejects(out BulkResult, rejects []roster.RowError) BulkResult {
	for _, e := range rejects {
		out.Failed++
		out.Errors = append(out.Errors, RowError{Row: e.Line, Message: e.Message})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool { return out.Errors[i].Row < out.Errors[j].Row })
	return out
}
