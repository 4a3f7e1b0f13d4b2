package commands

import (
	"fmt"
	"strconv"

	"ejudge-client/internal/scrapers/ejudge"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(accountCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Logs in, prompting for credentials when none are configured.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		err := current.client.Login(cmd.Context())
		if err != nil {
			fatal("failed to login", err)
		}
		me, err := current.client.MyAccountOrGuest(cmd.Context())
		if err != nil {
			fatal("failed to get the logged in account", err)
		}
		if me == nil {
			fmt.Println("still not logged in")
			return
		}
		fmt.Printf("logged in as %s (%s)\n", me.Username, me.Fullname)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Ends the session and forgets the saved cookies.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		loggedOut, err := current.client.Logout(cmd.Context())
		if err != nil {
			fatal("failed to logout", err)
		}
		err = current.store.Clear(cmd.Context())
		if err != nil {
			fatal("failed to clear the saved session", err)
		}
		if !loggedOut {
			fmt.Println("the judge did not answer with the login page, the session may still be alive")
			return
		}
		fmt.Println("logged out")
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Prints the logged in account without logging in.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		me, err := current.client.MyAccountOrGuest(cmd.Context())
		if err != nil {
			fatal("failed to get the logged in account", err)
		}
		if me == nil {
			fmt.Println("guest")
		} else {
			printAccount(*me)
		}

		logins, err := current.store.Logins(cmd.Context(), 3)
		if err != nil {
			fatal("failed to read the login history", err)
		}
		for _, at := range logins {
			fmt.Printf("logged in %s\n", humanize.Time(at))
		}
	},
}

var accountCmd = &cobra.Command{
	Use:   "account <id|me>",
	Short: "Prints an account.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := ejudge.AccountMe
		if args[0] != "me" {
			parsed, err := strconv.Atoi(args[0])
			if err != nil {
				fatal("invalid account id", err)
			}
			id = parsed
		}
		account, err := current.client.Account(cmd.Context(), id)
		if err != nil {
			fatal("failed to get account", err)
		}
		printAccount(account)
	},
}

func printAccount(account ejudge.Account) {
	fmt.Printf("#%d %s\n", account.ID, account.Username)
	if account.Fullname != "" {
		fmt.Println(account.Fullname)
	}
	if account.Email != "" {
		fmt.Println(account.Email)
	}
	if account.ProfilePicURL != "" {
		fmt.Println(current.client.ResolveURL(account.ProfilePicURL))
	}
	if account.Desc != "" {
		fmt.Println()
		fmt.Println(account.Desc)
	}
}
