package payment

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/model"

	"go.uber.org/zap"
)

const lookupTimeout = 3 * time.Second

var durationPattern = regexp.MustCompile(`(?i)(\d+)\s*(дней|дня|день|дн\.?|days?)`)

// enrich fills the display fields of p from the service catalogue,
// falling back to what the description says.
func enrich(ctx context.Context, services ServiceLookup, p *model.Payment) {
	if p.ServiceName != "" && p.ServiceDuration > 0 && !p.DisplayAmount().IsZero() {
		return
	}

	if services != nil && p.ServiceID != "" {
		lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
		svc, err := services.GetService(lctx, p.ServiceID)
		cancel()
		if err == nil && svc != nil {
			if p.ServiceName == "" {
				p.ServiceName = svc.Name
			}
			if p.ServiceDuration == 0 {
				p.ServiceDuration = svc.Duration
			}
			if p.DisplayAmount().IsZero() {
				p.Price = svc.Price
			}
			return
		}
		logger.FromCtx(ctx).Debug("service lookup failed, parsing description",
			zap.String("payment_id", p.ID.String()),
			zap.Error(err),
		)
	}

	name, days := ParseDescription(p.Description)
	if p.ServiceName == "" {
		p.ServiceName = name
	}
	if p.ServiceDuration == 0 {
		p.ServiceDuration = days
	}
}

// ParseDescription extracts the tier name and duration in days from a
// description like "Dragon VPN - 30 дней" or "Подписка на 90 дней".
func ParseDescription(desc string) (name string, days int) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "", 0
	}

	loc := durationPattern.FindStringSubmatchIndex(desc)
	if loc == nil {
		return desc, 0
	}

	days, _ = strconv.Atoi(desc[loc[2]:loc[3]])

	name = strings.TrimSpace(desc[:loc[0]])
	name = strings.TrimRight(name, " -–—:,")
	name = strings.TrimSpace(strings.TrimSuffix(name, " на"))
	if name == "" {
		name = desc
	}
	return name, days
}
