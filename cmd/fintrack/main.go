// Command fintrack is a terminal client for the fintrack API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"fintrack/api/client"
	"fintrack/api/models"

	"golang.org/x/term"
)

const usage = `Usage: fintrack [-server URL] [-session PATH] <command> [flags]

Commands:
  register       create an account and log in
  login          log in with email and password
  logout         forget the saved session
  whoami         show the logged-in user and profile
  onboard        fill in the financial profile
  chat           ask the assistant a question
  history        show the chat history
  clear-history  delete the chat history
  goals          list goals
  add-goal       create a goal
  update-goal    change a goal
  delete-goal    delete a goal
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	api    *client.Client
	store  client.SessionStore
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fintrack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	server := fs.String("server", envOr("FINTRACK_API_URL", "http://localhost:8080/api"), "API base URL")
	sessionPath := fs.String("session", os.Getenv("FINTRACK_SESSION"), "Session file (default: user config dir)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	if *sessionPath == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			return fmt.Errorf("failed to locate session file: %w", err)
		}
		*sessionPath = p
	}

	a := &app{
		api:    client.New(*server),
		store:  &client.FileStore{Path: *sessionPath},
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	ctx := context.Background()
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami(ctx)
	case "onboard":
		return a.onboard(ctx, rest)
	case "chat":
		return a.chat(ctx, rest)
	case "history":
		return a.history(ctx)
	case "clear-history":
		return a.clearHistory(ctx)
	case "goals":
		return a.goals(ctx)
	case "add-goal":
		return a.addGoal(ctx, rest)
	case "update-goal":
		return a.updateGoal(ctx, rest)
	case "delete-goal":
		return a.deleteGoal(ctx, rest)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// session loads the saved session and refuses expired ones.
func (a *app) session() (*client.Session, error) {
	s, err := a.store.Load()
	if errors.Is(err, client.ErrNoSession) {
		return nil, client.ErrNotLoggedIn
	}
	if err != nil {
		return nil, err
	}
	if s.Expired(time.Now()) {
		return nil, client.ErrSessionExpired
	}
	return s, nil
}

func (a *app) password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(a.stdout, "Password: ")
	password, err := readPassword(a.stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(a.stdout)
	if strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	username := fs.String("username", "", "Username (3-50 characters)")
	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *email == "" {
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: username, email")
	}

	password, err := a.password(*passwordFlag)
	if err != nil {
		return err
	}
	s, err := a.api.Register(ctx, *username, *email, password)
	if err != nil {
		return err
	}
	if err := a.store.Save(s); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Registered and logged in as %s. Run 'fintrack onboard' to set up your profile.\n", s.User.Username)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}

	password, err := a.password(*passwordFlag)
	if err != nil {
		return err
	}
	s, err := a.api.Login(ctx, *email, password)
	if err != nil {
		return err
	}
	if err := a.store.Save(s); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Logged in as %s (session valid until %s)\n", s.User.Username, s.ExpiresAt.Local().Format(time.Kitchen))
	if !s.User.OnboardingCompleted {
		fmt.Fprintln(a.stdout, "Your profile is not set up yet. Run 'fintrack onboard'.")
	}
	return nil
}

func (a *app) logout() error {
	if err := a.store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	u, err := a.api.Me(ctx, s)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "%s <%s>\n", u.Username, u.Email)
	if !u.OnboardingCompleted {
		fmt.Fprintln(a.stdout, "Onboarding: not completed")
		return nil
	}
	fmt.Fprintf(a.stdout, "Annual income:   %.2f\n", u.AnnualIncome)
	fmt.Fprintf(a.stdout, "Current savings: %.2f\n", u.CurrentSavings)
	fmt.Fprintf(a.stdout, "Risk tolerance:  %s\n", u.RiskTolerance)
	if len(u.FinancialGoals) > 0 {
		goals := make([]string, len(u.FinancialGoals))
		for i, g := range u.FinancialGoals {
			goals[i] = string(g)
		}
		fmt.Fprintf(a.stdout, "Goals:           %s\n", strings.Join(goals, ", "))
	}
	if len(u.MonthlyExpenses) > 0 {
		fmt.Fprintln(a.stdout, "Monthly expenses:")
		keys := make([]string, 0, len(u.MonthlyExpenses))
		for k := range u.MonthlyExpenses {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(a.stdout, "  %-14s %.2f\n", k, u.MonthlyExpenses[k])
		}
	}
	return nil
}

// parseExpenses reads "housing=1500,food=400".
func parseExpenses(s string) (map[string]float64, error) {
	out := map[string]float64{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expense %q must look like name=amount", pair)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("expense %q: %w", pair, err)
		}
		out[strings.TrimSpace(name)] = amount
	}
	return out, nil
}

func (a *app) onboard(ctx context.Context, args []string) error {
	fs := a.flags("onboard")
	income := fs.Float64("income", 0, "Annual income")
	savings := fs.Float64("savings", 0, "Current savings")
	expenses := fs.String("expenses", "", "Monthly expenses, e.g. housing=1500,food=400")
	goals := fs.String("goals", "", "Comma-separated goals: retirement, homePurchase, debtPayoff, investment, other")
	risk := fs.String("risk", string(models.RiskMedium), "Risk tolerance: low, medium or high")
	update := fs.Bool("update", false, "Edit the profile without re-running onboarding")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.session()
	if err != nil {
		return err
	}
	monthly, err := parseExpenses(*expenses)
	if err != nil {
		return err
	}
	profile := models.FinancialProfile{
		AnnualIncome:    *income,
		MonthlyExpenses: monthly,
		CurrentSavings:  *savings,
		FinancialGoals:  []models.FinancialGoal{},
		RiskTolerance:   models.RiskTolerance(*risk),
	}
	for _, g := range strings.Split(*goals, ",") {
		if g = strings.TrimSpace(g); g != "" {
			profile.FinancialGoals = append(profile.FinancialGoals, models.FinancialGoal(g))
		}
	}

	var u *models.User
	if *update {
		u, err = a.api.UpdateFinancialInfo(ctx, s, profile)
	} else {
		u, err = a.api.CompleteOnboarding(ctx, s, profile)
	}
	if err != nil {
		return err
	}
	s.User = u
	if err := a.store.Save(s); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Profile saved")
	return nil
}

func (a *app) chat(ctx context.Context, args []string) error {
	fs := a.flags("chat")
	area := fs.String("area", "", "Area of interest (default general)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		return fmt.Errorf("usage: fintrack chat [-area AREA] <message>")
	}

	s, err := a.session()
	if err != nil {
		return err
	}
	reply, err := a.api.SendMessage(ctx, s, message, *area)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Retryable {
			return fmt.Errorf("%w (try again)", err)
		}
		return err
	}
	fmt.Fprintln(a.stdout, reply)
	return nil
}

func (a *app) history(ctx context.Context) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	msgs, err := a.api.History(ctx, s)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintln(a.stdout, "No messages yet")
		return nil
	}
	for _, m := range msgs {
		fmt.Fprintf(a.stdout, "[%s] %s: %s\n", m.Timestamp.Local().Format("2006-01-02 15:04"), m.Role, m.Content)
	}
	return nil
}

func (a *app) clearHistory(ctx context.Context) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	if err := a.api.ClearHistory(ctx, s); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Chat history cleared")
	return nil
}

func (a *app) goals(ctx context.Context) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	goals, err := a.api.ListGoals(ctx, s)
	if err != nil {
		return err
	}
	if len(goals) == 0 {
		fmt.Fprintln(a.stdout, "No goals yet")
		return nil
	}
	for _, g := range goals {
		printGoal(a.stdout, &g)
	}
	return nil
}

func printGoal(w io.Writer, g *models.Goal) {
	fmt.Fprintf(w, "%s  %-12s %10.2f / %10.2f  %5.1f%%  by %s\n",
		g.ID.Hex(), g.Type, g.CurrentAmount, g.TargetAmount, g.Progress, g.TargetDate.Format("2006-01-02"))
}

func (a *app) addGoal(ctx context.Context, args []string) error {
	fs := a.flags("add-goal")
	goalType := fs.String("type", "", "Goal type: retirement, homePurchase, education, other")
	target := fs.Float64("target", 0, "Target amount")
	current := fs.Float64("current", 0, "Amount saved so far")
	date := fs.String("date", "", "Target date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *goalType == "" || *date == "" {
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: type, date")
	}

	s, err := a.session()
	if err != nil {
		return err
	}
	g, err := a.api.CreateGoal(ctx, s, client.GoalRequest{
		Type:          models.GoalType(*goalType),
		TargetAmount:  *target,
		CurrentAmount: *current,
		TargetDate:    *date,
	})
	if err != nil {
		return err
	}
	printGoal(a.stdout, g)
	if g.Strategy != "" {
		fmt.Fprintf(a.stdout, "\n%s\n", g.Strategy)
	}
	return nil
}

func (a *app) updateGoal(ctx context.Context, args []string) error {
	fs := a.flags("update-goal")
	id := fs.String("id", "", "Goal id")
	goalType := fs.String("type", "", "Goal type")
	target := fs.Float64("target", 0, "Target amount")
	current := fs.Float64("current", 0, "Amount saved so far")
	date := fs.String("date", "", "Target date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: id")
	}

	var update client.GoalUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "type":
			t := models.GoalType(*goalType)
			update.Type = &t
		case "target":
			update.TargetAmount = target
		case "current":
			update.CurrentAmount = current
		case "date":
			update.TargetDate = date
		}
	})

	s, err := a.session()
	if err != nil {
		return err
	}
	g, err := a.api.UpdateGoal(ctx, s, *id, update)
	if err != nil {
		return err
	}
	printGoal(a.stdout, g)
	return nil
}

func (a *app) deleteGoal(ctx context.Context, args []string) error {
	fs := a.flags("delete-goal")
	id := fs.String("id", "", "Goal id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: id")
	}

	s, err := a.session()
	if err != nil {
		return err
	}
	if err := a.api.DeleteGoal(ctx, s, *id); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Goal deleted")
	return nil
}
