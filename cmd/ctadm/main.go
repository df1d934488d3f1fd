package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"classtrade/internal/admin"
	cl "classtrade/internal/cli"
	"classtrade/internal/config"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "ctadm",
		Short:        "Classroom trading admin CLI",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL (env CTADM_API_BASE_URL)")

	root.AddCommand(
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newClassesCmd(&apiBase),
		newGuestsCmd(&apiBase),
		newQRCmd(&apiBase),
		newGenerateCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		printError(fmt.Sprintf("error: %v", err))
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimSpace(*apiBase), "")
}

// authedClient loads the saved admin session. A base URL given on the
// command line wins over the one stored at login.
func authedClient(cmd *cobra.Command, apiBase *string) (*cl.Client, error) {
	sess, err := cl.LoadSession(time.Now())
	if err != nil {
		return nil, err
	}
	base := strings.TrimSpace(*apiBase)
	if !cmd.Flags().Changed("api") && sess.APIBaseURL != "" {
		base = sess.APIBaseURL
	}
	return cl.NewClient(base, sess.AccessToken), nil
}

func newLoginCmd(apiBase *string) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as an administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if strings.TrimSpace(email) == "" {
				if email, err = promptRequired("Email"); err != nil {
					return err
				}
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken: out.Session.AccessToken,
				ExpiresAt:   out.Session.ExpiresAt,
				Email:       out.Admin.Email,
				AdminID:     out.Admin.ID,
				APIBaseURL:  strings.TrimSpace(*apiBase),
			}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Signed in as %s until %s.", out.Admin.Email, out.Session.ExpiresAt.Local().Format(time.DateTime)))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newClassesCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "classes",
		Aliases: []string{"class"},
		Short:   "List, create and run classes",
	}
	cmd.AddCommand(
		newClassesListCmd(apiBase),
		newClassShowCmd(apiBase),
		newClassCreateCmd(apiBase),
		newClassStatusCmd(apiBase),
		newClassAdvanceCmd(apiBase),
		newClassRewindCmd(apiBase),
		newClassOverviewCmd(apiBase),
		newClassRankingCmd(apiBase),
	)
	return cmd
}

func newClassesListCmd(apiBase *string) *cobra.Command {
	var clientID int64
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List classes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := authedClient(cmd, apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			classes, err := client.ListClasses(ctx, clientID, status)
			if err != nil {
				return err
			}
			renderClasses(classes)
			return nil
		},
	}
	cmd.Flags().Int64Var(&clientID, "client", 0, "only classes of this client")
	cmd.Flags().StringVar(&status, "status", "", "setting, active or ended")
	return cmd
}

func newClassShowCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <class-id>",
		Short: "Show one class",
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
			c, err := client.Class(ctx, id)
			if err != nil {
				return err
			}
			renderClass(c)
			return nil
		},
	}
}

func newClassCreateCmd(apiBase *string) *cobra.Command {
	var in struct {
		clientID  int64
		managerID int64
		name      string
		days      int
		start     int64
		benefit   int64
	}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a class in setting status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.clientID <= 0 {
				if in.clientID, err = promptInt64("Client ID", 1); err != nil {
					return err
				}
			}
			if strings.TrimSpace(in.name) == "" {
				if in.name, err = promptRequired("Class name"); err != nil {
					return err
				}
			}
			body := classInput(in.clientID, in.managerID, in.name, in.days, in.start, in.benefit)
			client, err := authedClient(cmd, apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			c, err := client.CreateClass(ctx, body)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Created class #%d.", c.ID))
			renderClass(c)
			return nil
		},
	}
	cmd.Flags().Int64Var(&in.clientID, "client", 0, "owning client id")
	cmd.Flags().Int64Var(&in.managerID, "manager", 0, "manager id")
	cmd.Flags().StringVar(&in.name, "name", "", "class name")
	cmd.Flags().IntVar(&in.days, "days", 5, "total trading days")
	cmd.Flags().Int64Var(&in.start, "start", 1_000_000, "starting balance per student")
	cmd.Flags().Int64Var(&in.benefit, "benefit", 0, "benefit paid on every day advance")
	return cmd
}

func newClassStatusCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <class-id> <setting|active|ended>",
		Short: "Change a class status",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := int64FromArgOrPrompt(args, 0, "Class ID")
			if err != nil {
				return err
			}
			var status string
			if len(args) > 1 {
				status = strings.ToLower(strings.TrimSpace(args[1]))
			} else if status, err = promptChoice("Status", []string{"setting", "active", "ended"}, "active"); err != nil {
				return err
			}
			client, err := authedClient(cmd, apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			c, err := client.SetClassStatus(ctx, id, status)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Class #%d is now %s.", c.ID, c.Status))
			return nil
		},
	}
}

func newClassAdvanceCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <class-id>",
		Short: "Move a class to its next day and pay the daily benefit",
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
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			out, err := client.AdvanceDay(ctx, id)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Day %d -> %d.", out.PreviousDay, out.CurrentDay))
			if out.BenefitsPaid > 0 {
				printInfo(fmt.Sprintf("Paid %s to %d students.", comma(out.BenefitEach), out.BenefitsPaid))
			}
			return nil
		},
	}
}

func newClassRewindCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rewind <class-id>",
		Short: "Move a class back one day (benefits already paid stay)",
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
			out, err := client.RewindDay(ctx, id)
			if err != nil {
				return err
			}
			printWarn(fmt.Sprintf("Day %d -> %d.", out.PreviousDay, out.CurrentDay))
			return nil
		},
	}
}

func newClassOverviewCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "overview <class-id>",
		Short: "Show day coverage, today's trading and the top ranking",
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
			out, err := client.Overview(ctx, id)
			if err != nil {
				return err
			}
			renderOverview(out)
			return nil
		},
	}
}

func newClassRankingCmd(apiBase *string) *cobra.Command {
	var day int
	cmd := &cobra.Command{
		Use:   "ranking <class-id>",
		Short: "Show the class ranking",
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
			out, err := client.Ranking(ctx, id, day)
			if err != nil {
				return err
			}
			renderRanking(fmt.Sprintf("Ranking, day %d", out.Day), out.Ranking)
			return nil
		},
	}
	cmd.Flags().IntVar(&day, "day", 0, "day to value holdings at (default current)")
	return cmd
}

func newQRCmd(apiBase *string) *cobra.Command {
	var noCode bool
	cmd := &cobra.Command{
		Use:   "qr <class-id> <student-id>",
		Short: "Print a one-time QR login link for a student",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			classID, err := int64FromArgOrPrompt(args, 0, "Class ID")
			if err != nil {
				return err
			}
			guestID, err := int64FromArgOrPrompt(args, 1, "Student ID")
			if err != nil {
				return err
			}
			client, err := authedClient(cmd, apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			link, err := client.GuestQR(ctx, classID, guestID)
			if err != nil {
				return err
			}
			if !noCode {
				qrterminal.GenerateHalfBlock(link.URL, qrterminal.M, os.Stdout)
			}
			printInfo(link.URL)
			printWarn(fmt.Sprintf("Expires %s.", link.ExpiresAt.Local().Format(time.DateTime)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCode, "url-only", false, "print the link without the QR code")
	return cmd
}

func newGenerateCmd(apiBase *string) *cobra.Command {
	var in cl.GenerateRequest
	var stocks string
	cmd := &cobra.Command{
		Use:   "generate <class-id>",
		Short: "Draft news and prices for every day with the AI generator",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := int64FromArgOrPrompt(args, 0, "Class ID")
			if err != nil {
				return err
			}
			if in.StockIDs, err = parseIDList(stocks); err != nil {
				return err
			}
			client, err := authedClient(cmd, apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Minute)
			defer cancel()
			out, err := client.Generate(ctx, id, in)
			if err != nil {
				return err
			}
			renderPlan(out.Plan)
			if out.Applied && out.Result != nil {
				printSuccess(fmt.Sprintf("Saved %d news and %d prices.", out.Result.NewsCreated, out.Result.PricesWritten))
			} else {
				printInfo("Dry run. Re-run with --apply to save this plan.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stocks, "stocks", "", "comma separated stock ids (default: all stocks)")
	cmd.Flags().StringVar(&in.Theme, "theme", "", "story theme for the news")
	cmd.Flags().StringVar(&in.Language, "lang", "ko", "ko or en")
	cmd.Flags().BoolVar(&in.Apply, "apply", false, "save the generated news and prices")
	return cmd
}

func classInput(clientID, managerID int64, name string, days int, start, benefit int64) admin.ClassInput {
	in := admin.ClassInput{
		ClientID:        clientID,
		Name:            strings.TrimSpace(name),
		TotalDays:       days,
		StartingBalance: start,
		DailyBenefit:    benefit,
	}
	if managerID > 0 {
		in.ManagerID = &managerID
	}
	return in
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptRequired(label)
	}
	for {
		fmt.Printf("%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		if len(raw) > 0 {
			return string(raw), nil
		}
		printWarn(label + " is required.")
	}
}

func int64FromArgOrPrompt(args []string, idx int, label string) (int64, error) {
	if len(args) > idx {
		v, err := strconv.ParseInt(strings.TrimSpace(args[idx]), 10, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptInt64(label, 1)
}

func parseIDList(s string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid stock id %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}
