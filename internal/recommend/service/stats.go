package service

import (
	"context"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Stats is the admin dashboard summary. Sales only count delivered orders.
type Stats struct {
	TotalSales      decimal.Decimal `json:"total_sales"`
	DeliveredOrders int             `json:"delivered_orders"`
	TotalOrders     int             `json:"total_orders"`
	Customers       int             `json:"customers"`
}

type DailySale struct {
	Date   string          `json:"date"`
	Total  decimal.Decimal `json:"total"`
	Orders int             `json:"orders"`
}

const dayLayout = "2006-01-02"

// DashboardStats counts distinct customers across all orders: accounts by
// user id and guests by email.
func (a *Aggregator) DashboardStats(ctx context.Context) (*Stats, error) {
	orders, err := a.loadOrders(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalSales: decimal.Zero, TotalOrders: len(orders)}
	customers := make(map[string]struct{})
	for _, o := range orders {
		switch {
		case o.UserID != nil:
			customers["user:"+*o.UserID] = struct{}{}
		case o.GuestInfo != nil:
			customers["guest:"+strings.ToLower(strings.TrimSpace(o.GuestInfo.Email))] = struct{}{}
		}
		if o.Status == domain.OrderStatusDelivered {
			stats.DeliveredOrders++
			stats.TotalSales = stats.TotalSales.Add(o.TotalPrice)
		}
	}
	stats.Customers = len(customers)
	return stats, nil
}

// DailySales buckets delivered orders by UTC creation day over the last
// days days, today included. Days without sales are present with zero.
func (a *Aggregator) DailySales(ctx context.Context, days int) ([]DailySale, error) {
	if days < 1 || days > MaxDays {
		return nil, ErrInvalidDays
	}
	orders, err := a.loadOrders(ctx)
	if err != nil {
		return nil, err
	}

	today := a.now().UTC().Truncate(24 * time.Hour)
	first := today.AddDate(0, 0, -(days - 1))

	out := make([]DailySale, days)
	index := make(map[string]int, days)
	for i := range out {
		day := first.AddDate(0, 0, i).Format(dayLayout)
		out[i] = DailySale{Date: day, Total: decimal.Zero}
		index[day] = i
	}

	for _, o := range orders {
		if o.Status != domain.OrderStatusDelivered {
			continue
		}
		i, ok := index[o.CreatedAt.UTC().Format(dayLayout)]
		if !ok {
			continue
		}
		out[i].Total = out[i].Total.Add(o.TotalPrice)
		out[i].Orders++
	}
	return out, nil
}
