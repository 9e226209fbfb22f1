package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spec-kit/farmer-dashboard/internal/auth"
	"github.com/spec-kit/farmer-dashboard/internal/domain"
	"github.com/spec-kit/farmer-dashboard/internal/guard"
)

const maxRedirects = 5

func newWhoamiCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Bootstrap the session and print the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := mount(v)
			if err != nil {
				return err
			}
			st := s.store.Bootstrap(cmd.Context())
			if st.User == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", st.User.UserID, st.User.Role)
			return nil
		},
	}
}

func newRouteCmd(v *viper.Viper) *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "route PATH...",
		Short: "Evaluate route guards for one or more client paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := mount(v)
			if err != nil {
				return err
			}
			st := s.store.Bootstrap(cmd.Context())
			router := guard.DefaultRouter()
			out := cmd.OutOrStdout()

			for _, path := range args {
				current := path
				for hop := 0; ; hop++ {
					_, decision, _ := router.Resolve(current, st)
					fmt.Fprintf(out, "%s\t%s", current, decision.Action)
					if decision.Action == guard.ActionRedirect {
						fmt.Fprintf(out, "\t%s", decision.Target)
					}
					fmt.Fprintln(out)
					if !follow || decision.Action != guard.ActionRedirect {
						break
					}
					if hop == maxRedirects {
						return fmt.Errorf("%s: too many redirects", path)
					}
					current = decision.Target
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "follow redirects until a view renders")
	return cmd
}

func newRegionCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "region [REGION]",
		Short: "Show or set the farmer's profile region",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := mount(v)
			if err != nil {
				return err
			}
			st := s.store.Bootstrap(cmd.Context())
			if decision := guard.Evaluate(st, guard.Protected(domain.RoleFarmer)); decision.Action != guard.ActionRender {
				return fmt.Errorf("profile not available: %s %s", decision.Action, decision.Target)
			}

			var region string
			if len(args) == 1 {
				region, err = s.client.SetRegion(cmd.Context(), args[0])
			} else {
				region, err = s.client.Region(cmd.Context())
			}
			if err != nil {
				return err
			}
			if region == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "(no region set)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), region)
			return nil
		},
	}
}

func newTokenCmd(v *viper.Viper) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Local development token helpers",
	}

	var (
		id   string
		role string
		ttl  time.Duration
	)
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Sign a development token with the local secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := v.GetString("secret")
			if secret == "" {
				secret = os.Getenv("AUTH_JWT_SECRET")
			}
			if secret == "" {
				return errors.New("no signing secret: set --secret, FARMCTL_SECRET or AUTH_JWT_SECRET")
			}
			parsed, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			if id == "" {
				return errors.New("--id is required")
			}
			tokens, err := auth.NewTokenManager(secret, 0)
			if err != nil {
				return err
			}
			token, _, err := tokens.IssueWithTTL(domain.Identity{UserID: id, Role: parsed}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	mint.Flags().StringVar(&id, "id", "", "user id claim")
	mint.Flags().StringVar(&role, "role", string(domain.RoleFarmer), "role claim (farmer or admin)")
	mint.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	mint.Flags().String("secret", "", "signing secret")
	_ = v.BindPFlag("secret", mint.Flags().Lookup("secret"))

	tokenCmd.AddCommand(mint)
	return tokenCmd
}
