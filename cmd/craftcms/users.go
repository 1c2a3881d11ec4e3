package main

import (
	"bufio"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage admin users",
}

var usersCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create an admin user",
	Long: `Create an admin user. The password is read from the first line of stdin.

Examples:
  echo 's3cret' | craftcms users create admin@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersCreate,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admin users",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <email>",
	Short: "Delete an admin user and end its sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersDelete,
}

func init() {
	usersCmd.AddCommand(usersCreateCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersDeleteCmd)
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	password, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && password == "" {
		return fmt.Errorf("failed to read password from stdin: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.auth.CreateUser(cmd.Context(), args[0], password)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s)\n", user.ID, user.Email)
	return nil
}

func runUsersList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	users, err := a.auth.ListUsers(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Email, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.auth.DeleteUser(cmd.Context(), args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", args[0])
	return nil
}
