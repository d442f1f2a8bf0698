package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/youtrackr/admin"
	"github.com/s0up4200/youtrackr/match"
	"github.com/s0up4200/youtrackr/youtrack"
)

var (
	// Command flags
	whereExpr   string
	newPassword string
)

// userCmd groups the user management commands
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Look up and create YouTrack users",
}

var userGetCmd = &cobra.Command{
	Use:   "get <login>...",
	Short: "Look up one or more users by login",
	Long: `Look up users by login. Lookups run concurrently (lookup.concurrency).
Use --where to keep only users matching an expression over Username,
FullName and Email, e.g. --where 'iendsWith(Email, "@example.com")'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUserGet,
}

var userFiltersCmd = &cobra.Command{
	Use:   "filters <login>",
	Short: "List the saved searches of a user",
	Long: `List the saved searches of a user. Use --where to keep only searches
matching an expression over Name and Query, e.g. --where 'Query contains "#Unresolved"'.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserFilters,
}

var userCreateCmd = &cobra.Command{
	Use:   "create <login> <full name> <email>",
	Short: "Create a user",
	Long: `Create a user account. With --password the account is created with a
password and can log in straight away.`,
	Args: cobra.ExactArgs(3),
	RunE: runUserCreate,
}

func init() {
	userGetCmd.Flags().StringVarP(&whereExpr, "where", "w", "", "only show users matching this expression")
	userFiltersCmd.Flags().StringVarP(&whereExpr, "where", "w", "", "only show saved searches matching this expression")
	userCreateCmd.Flags().StringVar(&newPassword, "password", "", "password for the new account")

	userCmd.AddCommand(userGetCmd)
	userCmd.AddCommand(userFiltersCmd)
	userCmd.AddCommand(userCreateCmd)
}

// compileWhere compiles the --where flag, or returns nil when it is unset
func compileWhere() (*match.Program, error) {
	if strings.TrimSpace(whereExpr) == "" {
		return nil, nil
	}
	program, err := match.NewCompiler().Compile(whereExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid --where expression: %w", err)
	}
	return program, nil
}

func runUserGet(cmd *cobra.Command, args []string) error {
	program, err := compileWhere()
	if err != nil {
		return err
	}

	logger.Info().Strs("logins", args).Msg("Looking up users")

	result := admin.LookupUsers(cmd.Context(), conn, args, logger, admin.WithConcurrency(cfg.Lookup.Concurrency))

	found := result.Found
	if program != nil {
		found = match.FilterUsers(program, found)
	}

	printLookup(cmd.OutOrStdout(), found, result.Failed)

	if len(result.Failed) > 0 {
		return fmt.Errorf("%d of %d lookups failed", len(result.Failed), result.Requested)
	}
	return nil
}

func printLookup(w io.Writer, found []*youtrack.User, failed []admin.LookupError) {
	if len(found) > 0 {
		fmt.Fprintf(w, "Found %d users:\n", len(found))
		fmt.Fprintln(w, strings.Repeat("-", 80))
		for _, u := range found {
			printUser(w, u)
		}
	} else {
		fmt.Fprintln(w, "No users found.")
	}

	for _, failure := range failed {
		fmt.Fprintf(w, "✗ %s: %s (%s)\n", failure.Login, failure.Err, failure.Outcome())
	}
}

func runUserFilters(cmd *cobra.Command, args []string) error {
	program, err := compileWhere()
	if err != nil {
		return err
	}

	filters, err := users.GetFiltersByUsername(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get saved searches of %s: %w", args[0], err)
	}

	if program != nil {
		filters = match.FilterFilters(program, filters)
	}

	printFilters(cmd.OutOrStdout(), args[0], filters)
	return nil
}

func printFilters(w io.Writer, login string, filters []youtrack.Filter) {
	if len(filters) == 0 {
		fmt.Fprintf(w, "No saved searches for %s.\n", login)
		return
	}

	fmt.Fprintf(w, "\nSaved searches of %s (%d):\n", login, len(filters))
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, f := range filters {
		fmt.Fprintf(w, "• %s\n  %s\n", f.Name, f.Query)
	}
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}

	login, fullName, email := args[0], args[1], args[2]

	var created bool
	var err error
	if newPassword != "" {
		created, err = users.CreateUserWithPassword(cmd.Context(), login, fullName, email, newPassword)
	} else {
		created, err = users.CreateUser(cmd.Context(), login, fullName, email)
	}
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", login, err)
	}
	if !created {
		return fmt.Errorf("user %s was not created (status %d)", login, conn.LastStatus())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created user %s\n", login)
	return nil
}
