package service

import (
	"sort"
	"time"

	"putik-service/internal/models"

	"github.com/shopspring/decimal"
)

// GroupItem is one booking row inside a group summary
type GroupItem struct {
	BookingID int64                `json:"booking_id"`
	Part      models.Part          `json:"part"`
	Quantity  int                  `json:"quantity"`
	Status    models.BookingStatus `json:"status"`
	Subtotal  decimal.Decimal      `json:"subtotal"`
}

// GroupSummary is a booking group as listings show it
type GroupSummary struct {
	GroupID  int64                `json:"booking_group_id"`
	Status   models.BookingStatus `json:"status"`
	Date     time.Time            `json:"date"`
	Vehicle  models.Vehicle       `json:"vehicle"`
	Mechanic models.Mechanic      `json:"mechanic"`
	Customer models.UserProfile   `json:"customer"`
	Total    decimal.Decimal      `json:"total"`
	Items    []GroupItem          `json:"items"`
}

var statusPriority = map[models.BookingStatus]int{
	models.BookingStatusPending:    0,
	models.BookingStatusAccepted:   1,
	models.BookingStatusInProgress: 2,
	models.BookingStatusCompleted:  3,
	models.BookingStatusMixed:      4,
	models.BookingStatusCancelled:  5,
	models.BookingStatusRejected:   6,
}

func priority(s models.BookingStatus) int {
	if p, ok := statusPriority[s]; ok {
		return p
	}
	return len(statusPriority)
}

// AggregateStatus is the common status of rows, or mixed when they disagree
func AggregateStatus(statuses []models.BookingStatus) models.BookingStatus {
	if len(statuses) == 0 {
		return ""
	}
	first := statuses[0]
	for _, s := range statuses[1:] {
		if s != first {
			return models.BookingStatusMixed
		}
	}
	return first
}

// GroupBookings partitions joined booking rows by group. Vehicle, mechanic,
// date and customer are taken from the first row of each group. The result
// is sorted with SortGroups.
func GroupBookings(rows []models.BookingDetail) []GroupSummary {
	index := make(map[int64]int)
	groups := []GroupSummary{}
	statuses := make(map[int64][]models.BookingStatus)

	for _, row := range rows {
		i, ok := index[row.BookingGroupID]
		if !ok {
			i = len(groups)
			index[row.BookingGroupID] = i
			groups = append(groups, GroupSummary{
				GroupID:  row.BookingGroupID,
				Date:     row.Date,
				Vehicle:  row.Vehicle,
				Mechanic: row.Mechanic,
				Customer: row.Customer,
				Total:    decimal.Zero,
			})
		}

		subtotal := row.Part.Price.Mul(decimal.NewFromInt(int64(row.Quantity)))
		g := &groups[i]
		g.Items = append(g.Items, GroupItem{
			BookingID: row.ID,
			Part:      row.Part,
			Quantity:  row.Quantity,
			Status:    row.Status,
			Subtotal:  subtotal,
		})
		g.Total = g.Total.Add(subtotal)
		statuses[row.BookingGroupID] = append(statuses[row.BookingGroupID], row.Status)
	}

	for i := range groups {
		groups[i].Status = AggregateStatus(statuses[groups[i].GroupID])
	}

	SortGroups(groups)
	return groups
}

// SortGroups orders by status priority, then newest date, then newest group
func SortGroups(groups []GroupSummary) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if pa, pb := priority(a.Status), priority(b.Status); pa != pb {
			return pa < pb
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.GroupID > b.GroupID
	})
}

// FilterGroups keeps the groups whose aggregate status is status
func FilterGroups(groups []GroupSummary, status models.BookingStatus) []GroupSummary {
	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		if g.Status == status {
			out = append(out, g)
		}
	}
	return out
}
