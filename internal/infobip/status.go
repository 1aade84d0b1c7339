package infobip

import (
	"strings"

	"github.com/kursadbilgin/infobip-dispatch/internal/domain"
)

// Vendor status group ids.
const (
	GroupPending       = 1
	GroupUndeliverable = 2
	GroupDelivered     = 3
	GroupExpired       = 4
	GroupRejected      = 5
)

// ToDispatchStatus maps a vendor status group id onto a dispatch status.
func ToDispatchStatus(groupID int) domain.DispatchStatus {
	switch groupID {
	case GroupPending:
		return domain.StatusDispatched
	case GroupUndeliverable, GroupExpired, GroupRejected:
		return domain.StatusUndeliverable
	case GroupDelivered:
		return domain.StatusDelivered
	default:
		return domain.StatusUnknown
	}
}

// groupNameStatus maps the call-state group names used by voice send responses.
func groupNameStatus(groupName string) domain.DispatchStatus {
	switch strings.ToUpper(strings.TrimSpace(groupName)) {
	case "PENDING", "IN_PROGRESS", "COMPLETED":
		return domain.StatusDispatched
	case "FAILED":
		return domain.StatusError
	default:
		return domain.StatusUnknown
	}
}

// sendStatus resolves the status of one send response message. The group id
// wins; the group name is only consulted when no id was returned.
func sendStatus(s *messageStatus) domain.DispatchStatus {
	if s == nil {
		return domain.StatusUnknown
	}
	if s.GroupID != 0 {
		return ToDispatchStatus(s.GroupID)
	}
	return groupNameStatus(s.GroupName)
}
