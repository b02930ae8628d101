package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pyrates-identitydb/internal/client/identitydb"
)

type globalOpts struct {
	url    string
	secret string
}

func (o *globalOpts) client() (*identitydb.Client, error) {
	if o.url == "" {
		return nil, errors.New("--url (or IDENTITYDB_URL) is required")
	}
	return identitydb.New(o.url, o.secret), nil
}

func envOr(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	o := &globalOpts{}
	root := &cobra.Command{
		Use:           "identitydb-admin",
		Short:         "Manage records in a pyrates identity database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.url, "url", envOr("IDENTITYDB_URL", "BASE_URL"), "identity database base URL")
	root.PersistentFlags().StringVar(&o.secret, "secret", envOr("IDENTITYDB_SECRET", "SECRET"), "service secret")

	root.AddCommand(
		listCmd(o), getCmd(o), createCmd(o), updateCmd(o),
		deleteCmd(o), loginCmd(o), verifyCmd(o), passwdCmd(o),
	)
	return root
}

func listCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all pyrates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			ps, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ps)
		},
	}
}

func getCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id|email>",
		Short: "Show one pyrate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			p, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
}

// recordFlags 创建与更新共用的字段参数
type recordFlags struct {
	email, password, firstName, lastName, ship string
	verified                                   bool
}

func (f *recordFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.password, "password", "", "plaintext password (hashed by the server)")
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&f.lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&f.ship, "ship", "", "ship")
}

// changes 只取命令行上显式给出的参数
func (f *recordFlags) changes(cmd *cobra.Command) identitydb.Changes {
	var ch identitydb.Changes
	fl := cmd.Flags()
	if fl.Changed("email") {
		ch.Email = &f.email
	}
	if fl.Changed("password") {
		ch.Password = &f.password
	}
	if fl.Changed("first-name") {
		ch.FirstName = &f.firstName
	}
	if fl.Changed("last-name") {
		ch.LastName = &f.lastName
	}
	if fl.Changed("ship") {
		ch.Ship = &f.ship
	}
	if fl.Changed("verified") {
		ch.EmailVerified = &f.verified
	}
	return ch
}

func createCmd(o *globalOpts) *cobra.Command {
	f := &recordFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pyrate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			ch := f.changes(cmd)
			in := identitydb.NewPyrate{Email: f.email, Password: f.password, FirstName: ch.FirstName, LastName: ch.LastName, Ship: ch.Ship}
			id, err := c.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func updateCmd(o *globalOpts) *cobra.Command {
	f := &recordFlags{}
	cmd := &cobra.Command{
		Use:   "update <id|email>",
		Short: "Change fields of a pyrate; only flags given are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			changed, err := c.Update(cmd.Context(), args[0], f.changes(cmd))
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintln(cmd.OutOrStdout(), "updated (password changed)")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "updated")
			}
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&f.verified, "verified", false, "email verified flag")
	return cmd
}

func deleteCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id|email>",
		Aliases: []string{"rm"},
		Short:   "Delete a pyrate",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			if err := c.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}

func loginCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Check a pyrate's credentials and print the provider profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			prof, err := c.Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), prof)
		},
	}
}

func verifyCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <email>",
		Short: "Mark a pyrate's email as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			if err := c.Verify(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "verified")
			return nil
		},
	}
}

func passwdCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <email> <new-password>",
		Short: "Set a pyrate's password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			if err := c.ChangePassword(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password changed")
			return nil
		},
	}
}
