package infrastructure

import (
	"fmt"

	"earnify/events"
)

const subjectPrefix = "earnify"

var eventSubjects = map[events.EventType]string{
	events.EventTypeBalanceChange:         subjectPrefix + ".ledger.balance_changed",
	events.EventTypeUserCreated:           subjectPrefix + ".users.created",
	events.EventTypeWithdrawalRequested:   subjectPrefix + ".withdrawals.requested",
	events.EventTypeWithdrawalResolved:    subjectPrefix + ".withdrawals.resolved",
	events.EventTypeReferralBonusCredited: subjectPrefix + ".referrals.bonus_credited",
}

// EventSubjectMapper maps domain events to NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("%s.unknown.%s", subjectPrefix, event.Type())
}

// StreamSubjects returns the subject filter for the event stream
func (m *EventSubjectMapper) StreamSubjects() []string {
	return []string{subjectPrefix + ".>"}
}
