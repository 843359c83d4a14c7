package models

import (
	"fmt"
	"time"
)

const (
	CommitteeApproved = "Approved"
	CommitteePending  = "Pending"
)

// CommitteeMember представляет члена комиссии RFx.
type CommitteeMember struct {
	ID         string     `json:"id"`
	RfxID      string     `json:"-"`
	UserID     *string    `json:"userId,omitempty"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	IsApproved bool       `json:"isApproved"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
}

// CommitteeStatus вычисляет статус комиссии по набору членов, не храня его.
func CommitteeStatus(status RfxStatus, members []CommitteeMember) string {
	if status == PublishedRfx {
		return CommitteeApproved
	}
	if len(members) == 0 {
		return CommitteePending
	}
	return fmt.Sprintf("%d/%d Approved", ApprovedCount(members), len(members))
}

// ApprovedCount возвращает число одобривших членов комиссии.
func ApprovedCount(members []CommitteeMember) int {
	n := 0
	for _, m := range members {
		if m.IsApproved {
			n++
		}
	}
	return n
}

// AllApproved - true, если комиссия не пуста и все ее члены одобрили RFx.
func AllApproved(members []CommitteeMember) bool {
	return len(members) > 0 && ApprovedCount(members) == len(members)
}

// FindMemberByUser возвращает индекс члена комиссии, привязанного к пользователю, или -1.
func FindMemberByUser(members []CommitteeMember, userID string) int {
	if userID == "" {
		return -1
	}
	for i, m := range members {
		if m.UserID != nil && *m.UserID == userID {
			return i
		}
	}
	return -1
}

// CommitteeUserIDs возвращает привязанные идентификаторы пользователей без повторов.
func CommitteeUserIDs(members []CommitteeMemberRequest) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range members {
		if m.UserID == nil || *m.UserID == "" || seen[*m.UserID] {
			continue
		}
		seen[*m.UserID] = true
		ids = append(ids, *m.UserID)
	}
	return ids
}
