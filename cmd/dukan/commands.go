package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dukan.org/internal/routing"
	"dukan.org/internal/session"
)

var (
	okf   = color.New(color.FgGreen).PrintfFunc()
	warnf = color.New(color.FgYellow).PrintfFunc()
)

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "dukan",
		Short:         "Dukan identity client",
		Long:          "Terminal client for the Dukan business-management identity API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "dukan.yaml", "path to the client config file")

	cmd.AddCommand(
		loginCmd(&configPath),
		logoutCmd(&configPath),
		whoamiCmd(&configPath),
		refreshCmd(&configPath),
		twoFACmd(&configPath),
		emailCmd(&configPath),
		resetCmd(&configPath),
		routesCmd(),
	)
	return cmd
}

func loginCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Authenticate and persist the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			password, err := prompt("password")
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx()
			defer cancel()
			if err := a.ctrl.Login(ctx, args[0], password); err != nil {
				return err
			}
			principal := a.ctrl.Principal()
			okf("logged in as %s (%s)\n", principal.Email, principal.Role)
			fmt.Printf("landing route: %s\n", routing.Route(principal.Role))
			return nil
		},
	}
}

func logoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			a.ctrl.Logout()
			okf("logged out\n")
			return nil
		},
	}
}

func whoamiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Resolve the stored session to its principal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx()
			defer cancel()
			if err := a.ctrl.Resume(ctx); err != nil {
				if errors.Is(err, session.ErrNoSession) {
					warnf("not logged in\n")
					return nil
				}
				return err
			}
			p := a.ctrl.Principal()
			fmt.Printf("id:    %s\nname:  %s\nemail: %s\nrole:  %s\n", p.ID, p.Name, p.Email, p.Role)
			if exp := a.ctrl.Snapshot().TokenExpiresAt; !exp.IsZero() {
				fmt.Printf("token expires: %s\n", exp.Format("2006-01-02 15:04:05 MST"))
			}
			return nil
		},
	}
}

func refreshCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the stored credential pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx()
			defer cancel()
			if err := a.ctrl.Refresh(ctx); err != nil {
				return err
			}
			okf("session refreshed\n")
			return nil
		},
	}
}

func twoFACmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "2fa",
		Short: "Two-factor enrollment",
	}

	var enable bool
	setup := &cobra.Command{
		Use:   "setup",
		Short: "Start enrollment, verify a code, optionally enable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx()
			defer cancel()
			if err := a.ctrl.Resume(ctx); err != nil {
				return err
			}
			setup, err := a.ctrl.Setup2FA(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("secret: %s\nscan:   %s\n", setup.Secret, setup.QRCode)
			code, err := prompt("code from your authenticator")
			if err != nil {
				return err
			}
			if err := a.ctrl.Verify2FA(ctx, code); err != nil {
				return err
			}
			okf("code verified\n")
			if enable {
				if err := a.ctrl.Enable2FA(ctx); err != nil {
					return err
				}
				okf("two-factor enabled\n")
			}
			return nil
		},
	}
	setup.Flags().BoolVar(&enable, "enable", false, "enable two-factor once the code verifies")

	disable := &cobra.Command{
		Use:   "disable",
		Short: "Turn two-factor off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx()
			defer cancel()
			if err := a.ctrl.Resume(ctx); err != nil {
				return err
			}
			if err := a.ctrl.Disable2FA(ctx); err != nil {
				return err
			}
			okf("two-factor disabled\n")
			return nil
		},
	}

	cmd.AddCommand(setup, disable)
	return cmd
}

func emailCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Email verification",
	}

	send := &cobra.Command{
		Use:   "send <address>",
		Short: "Mail a verification code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx()
			defer cancel()
			if err := a.ctrl.SendVerificationEmail(ctx, args[0]); err != nil {
				return err
			}
			okf("verification email sent\n")
			return nil
		},
	}

	verify := &cobra.Command{
		Use:   "verify <code>",
		Short: "Confirm an emailed code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx()
			defer cancel()
			if err := a.ctrl.VerifyEmail(ctx, args[0]); err != nil {
				return err
			}
			okf("email verified\n")
			return nil
		},
	}

	cmd.AddCommand(send, verify)
	return cmd
}

func resetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <email>",
		Short: "Run the password reset flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx()
			defer cancel()
			if err := a.ctrl.RequestPasswordReset(ctx, args[0]); err != nil {
				return err
			}
			okf("reset code requested\n")
			code, err := prompt("reset code")
			if err != nil {
				return err
			}
			if err := a.ctrl.VerifyResetCode(ctx, code); err != nil {
				return err
			}
			okf("code accepted\n")
			password, err := prompt("new password")
			if err != nil {
				return err
			}
			if err := a.ctrl.ResetPassword(ctx, code, password); err != nil {
				return err
			}
			okf("password changed\n")
			return nil
		},
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show the post-login landing route per role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, role := range []string{
				routing.RoleOwner, routing.RoleAdmin, routing.RoleStaff,
				routing.RoleSupplier, routing.RoleCustomer,
			} {
				fmt.Printf("%-10s %s\n", role, routing.Route(role))
			}
			fmt.Printf("%-10s %s\n", "(other)", routing.DefaultPath)
			return nil
		},
	}
}
