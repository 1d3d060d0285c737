package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Service struct {
	ID          ID              `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Duration    int             `json:"duration"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"is_active"`
}

type Server struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Country  string `json:"country,omitempty"`
	IsActive bool   `json:"is_active"`
	Load     int    `json:"load,omitempty"`
}

type Subscription struct {
	ID          ID        `json:"id"`
	UserID      ID        `json:"user_id"`
	ServiceID   ID        `json:"service_id"`
	ServiceName string    `json:"service_name,omitempty"`
	StartDate   Timestamp `json:"start_date"`
	EndDate     Timestamp `json:"end_date"`
	IsActive    bool      `json:"is_active"`
}

func (s *Subscription) Active(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.EndDate.IsZero() || now.Before(s.EndDate.Time)
}

// DaysLeft rounds up, so a subscription ending in two hours has one day left.
func (s *Subscription) DaysLeft(now time.Time) int {
	if s.EndDate.IsZero() || !now.Before(s.EndDate.Time) {
		return 0
	}
	left := s.EndDate.Sub(now)
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) != 0 {
		days++
	}
	return days
}

type VPNKey struct {
	ID             ID        `json:"id"`
	SubscriptionID ID        `json:"subscription_id"`
	ServerID       ID        `json:"server_id,omitempty"`
	ServerName     string    `json:"server_name,omitempty"`
	Key            string    `json:"key,omitempty"`
	Config         string    `json:"config,omitempty"`
	Protocol       string    `json:"protocol,omitempty"`
	CreatedAt      Timestamp `json:"created_at"`
}

func (k *VPNKey) ConnectionString() string {
	if k.Key != "" {
		return k.Key
	}
	return k.Config
}

type Gift struct {
	ID          ID        `json:"id"`
	Code        string    `json:"code"`
	ServiceID   ID        `json:"service_id"`
	Status      string    `json:"status"`
	ActivatedBy ID        `json:"activated_by,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
}
