package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"dragonvpn-app/internal/event"
	"dragonvpn-app/internal/screen"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Local().Format("02.01.2006")
}

func printServices(out io.Writer, items []screen.ServiceItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "Тарифы недоступны")
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "ID\tТАРИФ\tСРОК\tЦЕНА")
	for _, s := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.DurationText, s.PriceText)
	}
	w.Flush()
}

func printSubscriptions(out io.Writer, v screen.SubscriptionView) {
	if v.Active != nil {
		fmt.Fprintf(out, "Активная подписка: %s, %s\n\n", v.Active.ServiceName, v.Active.DaysText)
	} else {
		fmt.Fprintln(out, "Нет активной подписки")
		fmt.Fprintln(out)
	}
	if len(v.Subscriptions) == 0 {
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "ID\tТАРИФ\tДО\tСТАТУС")
	for _, s := range v.Subscriptions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.ServiceName, formatDate(s.EndsAt), s.DaysText)
	}
	w.Flush()
}

func printPayments(out io.Writer, items []screen.PaymentItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "Платежей пока нет")
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "ID\tДАТА\tСУММА\tСТАТУС\tОПИСАНИЕ")
	for _, p := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, formatDate(p.CreatedAt), p.AmountText, p.StatusText, p.Description)
	}
	w.Flush()

	for _, p := range items {
		if p.Actionable {
			fmt.Fprintf(out, "\nОплатить %s: %s\n", p.ID, p.URL)
		}
	}
}

func printKeys(out io.Writer, v screen.KeysView) {
	if len(v.Keys) == 0 && v.Failed == 0 {
		fmt.Fprintln(out, "Нет ключей: оформите подписку")
		return
	}
	for _, k := range v.Keys {
		fmt.Fprintf(out, "%s · %s (%s)\n%s\n\n", k.ServiceName, k.ServerName, k.Protocol, k.Connection)
	}
	if v.Failed > 0 {
		fmt.Fprintf(out, "Не удалось загрузить ключи для %d подписок\n", v.Failed)
	}
}

func printReferrals(out io.Writer, v screen.ReferralView) {
	if v.Link != "" {
		fmt.Fprintf(out, "Ваша ссылка: %s\n", v.Link)
	}
	fmt.Fprintf(out, "Приглашено: %d, оплатили: %d\n", v.Invited, v.Paid)
	fmt.Fprintf(out, "Бонус: %s\n", v.BonusText)
}

func printOutcome(out io.Writer, e event.Event) {
	switch e.Kind {
	case event.PaymentSucceeded:
		fmt.Fprintf(out, "Платёж %s оплачен\n", e.PaymentID)
	case event.PaymentCanceled:
		if e.Expired {
			fmt.Fprintf(out, "Время оплаты %s истекло\n", e.PaymentID)
			return
		}
		fmt.Fprintf(out, "Платёж %s отменён\n", e.PaymentID)
	case event.PaymentDropped:
		fmt.Fprintf(out, "Платёж %s больше не отслеживается (%s)\n", e.PaymentID, e.Reason)
	}
}
