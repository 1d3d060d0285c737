package main

import (
	"context"
	"fmt"
	"io"

	"dragonvpn-app/internal/app"
	"dragonvpn-app/internal/event"
	"dragonvpn-app/internal/model"
	"dragonvpn-app/internal/navigation"

	"github.com/spf13/cobra"
)

// withApp bootstraps a client for the duration of one command.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, out io.Writer) error) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	rt, err := setup(ctx, out)
	if err != nil {
		return err
	}
	defer rt.close()

	return fn(ctx, rt.app, out)
}

func servicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List subscription plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				v, err := a.Subscription.Load(ctx)
				if err != nil {
					return err
				}
				printServices(out, v.Services)
				return nil
			})
		},
	}
}

func subscriptionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscription",
		Short: "Show your subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				if err := a.Router.Navigate(ctx, navigation.ScreenSubscription); err != nil {
					return err
				}
				v, ok := a.Subscription.View()
				if !ok {
					return nil
				}
				printSubscriptions(out, v)
				return nil
			})
		},
	}
}

func buyCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "buy <service-id>",
		Short: "Buy a subscription plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				events, stop := a.Bus.Listen(8, event.PaymentSucceeded, event.PaymentCanceled, event.PaymentDropped)
				defer stop()

				res, err := a.Subscription.Purchase(ctx, model.ID(args[0]))
				if err != nil {
					return err
				}
				if res.Subscription != nil {
					fmt.Fprintf(out, "Подписка активирована до %s\n", formatDate(res.Subscription.EndDate.Time))
					return nil
				}

				fmt.Fprintf(out, "Платёж %s создан\nОплатить: %s\n", res.Payment.ID, res.URL)
				if !watch || !res.Shown {
					return nil
				}
				return awaitPayment(ctx, events, res.Payment.ID, out)
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "wait until the payment is resolved")
	return cmd
}

func paymentsCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Show payment history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				if err := a.Router.Navigate(ctx, navigation.ScreenPayments); err != nil {
					return err
				}
				items, _ := a.Payments.View()
				printPayments(out, items)
				if !watch {
					return nil
				}
				return watchLifecycle(ctx, a, out)
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling pending payments")
	return cmd
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <payment-id>",
		Short: "Continue paying a pending payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				events, stop := a.Bus.Listen(8, event.PaymentSucceeded, event.PaymentCanceled, event.PaymentDropped)
				defer stop()

				p, err := a.Payments.Resume(ctx, model.ID(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Оплатить: %s\n", p.ActionURL())
				return awaitPayment(ctx, events, p.ID, out)
			})
		},
	}
}

func refundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refund <payment-id>",
		Short: "Request a refund",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				p, err := a.Payments.Refund(ctx, model.ID(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Возврат по платежу %s оформлен\n", p.ID)
				return nil
			})
		},
	}
}

func keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Show VPN keys of active subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				if err := a.Router.Navigate(ctx, navigation.ScreenKeys); err != nil {
					return err
				}
				v, _ := a.Keys.View()
				printKeys(out, v)
				return nil
			})
		},
	}
}

func referralsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "referrals",
		Short: "Show your invite link and referral bonuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				if err := a.Router.Navigate(ctx, navigation.ScreenReferrals); err != nil {
					return err
				}
				v, _ := a.Referrals.View()
				printReferrals(out, v)
				return nil
			})
		},
	}
}

func giftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gift",
		Short: "Buy or activate gift subscriptions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "buy <service-id>",
		Short: "Buy a gift subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				order, err := a.Subscription.PurchaseGift(ctx, model.ID(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Код подарка: %s\n", order.Gift.Code)
				if order.Payment != nil && order.Payment.ActionURL() != "" {
					fmt.Fprintf(out, "Оплатить: %s\n", order.Payment.ActionURL())
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "activate <gift-id>",
		Short: "Activate a gift subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				sub, err := a.Subscription.ActivateGift(ctx, model.ID(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Подарок активирован, подписка до %s\n", formatDate(sub.EndDate.Time))
				return nil
			})
		},
	})

	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll pending payments until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, out io.Writer) error {
				return watchLifecycle(ctx, a, out)
			})
		},
	}
}

// awaitPayment blocks until id resolves or leaves the watch set.
func awaitPayment(ctx context.Context, events <-chan event.Event, id model.ID, out io.Writer) error {
	fmt.Fprintln(out, "Ожидаем оплату...")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if e.PaymentID != id {
				continue
			}
			printOutcome(out, e)
			return nil
		}
	}
}

// watchLifecycle prints every payment outcome until ctx is done.
func watchLifecycle(ctx context.Context, a *app.App, out io.Writer) error {
	events, stop := a.Bus.Listen(16, event.PaymentSucceeded, event.PaymentCanceled, event.PaymentDropped)
	defer stop()

	fmt.Fprintf(out, "Отслеживаем %d платеж(ей), Ctrl+C для выхода\n", len(a.Monitor.Watched()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			printOutcome(out, e)
		}
	}
}
