package session

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/callistohq/callisto/internal/entities"
)

// MeetingContext accumulates what the agent has learned during the
// current meeting from executed workflows. Research results about
// companies and people and any calendar events seen are kept in memory
// for the session and written through to the entity store when one is
// configured.
type MeetingContext struct {
	logger *slog.Logger
	store  *entities.Store

	mu             sync.Mutex
	companyInfo    map[string]map[string]any
	personInfo     map[string]map[string]any
	calendarEvents []map[string]any
}

// NewMeetingContext creates an empty accumulator. store may be nil, in
// which case context lives only for the session.
func NewMeetingContext(store *entities.Store, logger *slog.Logger) *MeetingContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &MeetingContext{
		logger:      logger,
		store:       store,
		companyInfo: make(map[string]map[string]any),
		personInfo:  make(map[string]map[string]any),
	}
}

// Update folds one successful workflow result into the accumulated
// context. Results that are not JSON, or JSON without recognized
// fields, are ignored without diagnostics: most tool output is prose,
// and prose is not context.
func (m *MeetingContext) Update(wfType WorkflowType, content string) {
	switch wfType {
	case WorkflowSearch:
		m.updateFromSearch(content)
	case WorkflowCalendar:
		m.updateFromCalendar(content)
	}
}

func (m *MeetingContext) updateFromSearch(content string) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if company, ok := parsed["company"].(string); ok && company != "" {
		m.companyInfo[company] = parsed
		if m.store != nil {
			if err := m.store.SaveCompany(company, parsed); err != nil {
				m.logger.Warn("failed to persist company entity", "company", company, "error", err)
			}
		}
	}
	if person, ok := parsed["person"].(string); ok && person != "" {
		m.personInfo[person] = parsed
		if m.store != nil {
			if err := m.store.SavePerson(person, parsed); err != nil {
				m.logger.Warn("failed to persist person entity", "person", person, "error", err)
			}
		}
	}
}

func (m *MeetingContext) updateFromCalendar(content string) {
	var parsed struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil || len(parsed.Events) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calendarEvents = append(m.calendarEvents, parsed.Events...)
	if m.store != nil {
		if err := m.store.SaveEvents(parsed.Events); err != nil {
			m.logger.Warn("failed to persist calendar events", "count", len(parsed.Events), "error", err)
		}
	}
}

// Company returns the accumulated record for a company, if any.
func (m *MeetingContext) Company(name string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.companyInfo[name]
	return info, ok
}

// Person returns the accumulated record for a person, if any.
func (m *MeetingContext) Person(name string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.personInfo[name]
	return info, ok
}

// CalendarEvents returns the events observed so far this session.
func (m *MeetingContext) CalendarEvents() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, len(m.calendarEvents))
	copy(out, m.calendarEvents)
	return out
}
