package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"classtrade/internal/admin"
	cl "classtrade/internal/cli"
	"classtrade/internal/roster"
	"classtrade/internal/syncq"

	"github.com/spf13/cobra"
)

func newGuestsCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "guests",
		Aliases: []string{"students"},
		Short:   "Manage the students of a class",
	}
	cmd.AddCommand(
		newGuestsListCmd(apiBase),
		newGuestsImportCmd(apiBase),
		newGuestsUploadCmd(apiBase),
		newGuestsRetryCmd(apiBase),
		newGuestsFailedCmd(),
	)
	return cmd
}

func newGuestsListCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list <class-id>",
		Short: "List students with their balances",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := int64FromArgOrPrompt(args, 0, "Class ID")
			if err != nil {
				return err
			}
			client, err := authedClient(cmd, apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			guests, err := client.ListGuests(ctx, id)
			if err != nil {
				return err
			}
			renderGuests(guests)
			return nil
		},
	}
}

func newGuestsImportCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <class-id> <roster.csv|roster.xlsx>",
		Short: "Check a roster locally, create its students and queue rejected rows",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := int64FromArgOrPrompt(args, 0, "Class ID")
			if err != nil {
				return err
			}
			parsed, err := parseRosterFile(args[1])
			if err != nil {
				return err
			}
			rows := guestInputs(parsed.Rows)
			res := admin.BulkResult{}
			if len(rows) > 0 {
				client, err := authedClient(cmd, apiBase)
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
				defer cancel()
				if res, err = client.BulkGuests(ctx, id, rows); err != nil {
					return err
				}
			}
			res = admin.MergeRejects(res, parsed.Errors)
			renderBulk(res)
			return queueRejected(id, append(rows, rejectedInputs(parsed.Errors)...), res)
		},
	}
}

func newGuestsUploadCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <class-id> <roster.csv|roster.xlsx>",
		Short: "Send a roster file to the server as-is",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := int64FromArgOrPrompt(args, 0, "Class ID")
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			client, err := authedClient(cmd, apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			res, err := client.UploadRoster(ctx, id, args[1], f)
			if err != nil {
				return err
			}
			renderBulk(res)
			return nil
		},
	}
}

func newGuestsRetryCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <class-id>",
		Short: "Resend queued rows (edit queue.json under CTADM_HOME to fix them first)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := int64FromArgOrPrompt(args, 0, "Class ID")
			if err != nil {
				return err
			}
			client, err := authedClient(cmd, apiBase)
			if err != nil {
				return err
			}
			queued, err := syncq.Take(id)
			if err != nil {
				return err
			}
			if len(queued) == 0 {
				printInfo("No queued rows for this class.")
				return nil
			}
			var rows []admin.GuestInput
			var blank []syncq.Entry
			for _, e := range queued {
				if strings.TrimSpace(e.Row.Name) == "" && strings.TrimSpace(e.Row.Phone) == "" {
					blank = append(blank, e)
					continue
				}
				rows = append(rows, e.Row)
			}
			if err := syncq.Push(blank...); err != nil {
				return err
			}
			if len(rows) == 0 {
				printWarn(fmt.Sprintf("%d queued rows have no name or phone yet.", len(blank)))
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			res, err := client.BulkGuests(ctx, id, rows)
			if err != nil {
				var apiErr *cl.APIError
				if !errors.As(err, &apiErr) {
					// network failure: keep the rows for the next run
					if qerr := syncq.Push(syncq.Rejected(id, rows, allFailed(rows), time.Now())...); qerr != nil {
						return errors.Join(err, qerr)
					}
				}
				return err
			}
			renderBulk(res)
			return queueRejected(id, rows, res)
		},
	}
}

func newGuestsFailedCmd() *cobra.Command {
	var classID int64
	cmd := &cobra.Command{
		Use:   "failed",
		Short: "Show roster rows waiting in the local retry queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := syncq.Load()
			if err != nil {
				return err
			}
			if classID > 0 {
				kept := entries[:0]
				for _, e := range entries {
					if e.ClassID == classID {
						kept = append(kept, e)
					}
				}
				entries = kept
			}
			renderQueue(entries)
			return nil
		},
	}
	cmd.Flags().Int64Var(&classID, "class", 0, "only rows for this class")
	return cmd
}

func parseRosterFile(path string) (roster.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return roster.Result{}, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return roster.ParseXLSX(f)
	case ".csv", ".txt", "":
		return roster.ParseCSV(f)
	default:
		return roster.Result{}, fmt.Errorf("unsupported roster file %q: use .csv or .xlsx", filepath.Base(path))
	}
}

func guestInputs(rows []roster.Row) []admin.GuestInput {
	out := make([]admin.GuestInput, len(rows))
	for i, r := range rows {
		out[i] = admin.GuestInput{Row: r.Line, Name: r.Name, Phone: r.Phone, School: r.School, Grade: r.Grade}
	}
	return out
}

// rejectedInputs keeps the line number of rows that failed local parsing so
// they show up in the queue.
func rejectedInputs(errs []roster.RowError) []admin.GuestInput {
	out := make([]admin.GuestInput, len(errs))
	for i, e := range errs {
		out[i] = admin.GuestInput{Row: e.Line}
	}
	return out
}

func allFailed(rows []admin.GuestInput) admin.BulkResult {
	res := admin.BulkResult{Failed: len(rows)}
	for i, r := range rows {
		row := r.Row
		if row == 0 {
			row = i + 1
		}
		res.Errors = append(res.Errors, admin.RowError{Row: row, Message: "not sent"})
	}
	return res
}

func queueRejected(classID int64, rows []admin.GuestInput, res admin.BulkResult) error {
	entries := syncq.Rejected(classID, rows, res, time.Now())
	if len(entries) == 0 {
		return nil
	}
	if err := syncq.Push(entries...); err != nil {
		return err
	}
	printWarn(fmt.Sprintf("%d rows queued. Fix them and run `ctadm guests retry %d`, or see `ctadm guests failed`.", len(entries), classID))
	return nil
}
