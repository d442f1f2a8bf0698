package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/s0up4200/youtrackr/youtrack"
)

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the account youtrackr is logged in as",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}

	me, err := conn.GetCurrentUser(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	printUser(cmd.OutOrStdout(), me)
	return nil
}

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe <path>",
	Short: "Check whether a resource exists with a HEAD request",
	Long: `Send a HEAD request for a resource path below /rest/, for example
"issue/TEST-1", and report the status and its classification.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	status, err := conn.Head(cmd.Context(), args[0])
	outcome := youtrack.Classify(err)

	if status == 0 {
		return fmt.Errorf("failed to probe %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d %s\n", args[0], status, outcome)
	if outcome != youtrack.OutcomeOK {
		return fmt.Errorf("probe of %s failed: %w", args[0], err)
	}
	return nil
}

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <path> <file>",
	Short: "Upload a file as a multipart attachment",
	Long: `Upload a local file to a resource path below /rest/, for example
"issue/TEST-1/attachment". The content type is taken from the file extension.`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}

	path, file := args[0], args[1]
	logger.Info().
		Str("path", path).
		Str("file", file).
		Str("content_type", youtrack.ContentTypeForFile(file)).
		Msg("Uploading file")

	resp, err := conn.PostFile(cmd.Context(), path, file)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", file, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Uploaded %s (%d %s)\n", file, resp.StatusCode, resp.Status)
	return nil
}

func printUser(w io.Writer, u *youtrack.User) {
	fmt.Fprintf(w, "• %s", u.Username)
	if u.FullName != "" {
		fmt.Fprintf(w, " (%s)", u.FullName)
	}
	if u.Email != "" {
		fmt.Fprintf(w, " <%s>", u.Email)
	}
	fmt.Fprintln(w)
}
