package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/repository"
)

// mockStore 内存数据池，各 mock repo 共享
type mockStore struct {
	resources     map[string]*model.Resource
	groups        map[string]*model.Group
	memberships   []model.Membership
	categories    map[string]*model.EventCategory
	events        map[string]*model.Event
	commitments   map[string]*model.Commitment
	notes         map[string]*model.ClashNote
	notifications []model.Notification
	prefs         map[string]*model.NotificationPreference

	noteSeq       int
	eventSeq      int
	commitmentSeq int
}

func newMockStore() *mockStore {
	return &mockStore{
		resources:   make(map[string]*model.Resource),
		groups:      make(map[string]*model.Group),
		categories:  make(map[string]*model.EventCategory),
		events:      make(map[string]*model.Event),
		commitments: make(map[string]*model.Commitment),
		notes:       make(map[string]*model.ClashNote),
		prefs:       make(map[string]*model.NotificationPreference),
	}
}

func (s *mockStore) toRepository() *repository.Repository {
	return &repository.Repository{
		Resource:               &mockResourceRepo{s},
		Group:                  &mockGroupRepo{s},
		EventCategory:          &mockEventCategoryRepo{s},
		Event:                  &mockEventRepo{s},
		Commitment:             &mockCommitmentRepo{s},
		ClashNote:              &mockClashNoteRepo{s},
		Notification:           &mockNotificationRepo{s},
		NotificationPreference: &mockNotificationPreferenceRepo{s},
	}
}

// hydrateCommitment 模拟 Preload：填充 Event(+Category)、Resource、CoveredBy
func (s *mockStore) hydrateCommitment(c *model.Commitment) model.Commitment {
	out := *c
	if ev, ok := s.events[c.EventID]; ok {
		evCopy := *ev
		if cat, ok := s.categories[ev.CategoryID]; ok {
			evCopy.Category = cat
		}
		out.Event = &evCopy
	}
	if c.ResourceID != nil {
		if r, ok := s.resources[*c.ResourceID]; ok {
			out.Resource = r
		}
	}
	out.CoveredBy = nil
	for _, other := range s.commitments {
		if other.CoveringID != nil && *other.CoveringID == c.CommitmentID {
			out.CoveredBy = append(out.CoveredBy, *other)
		}
	}
	return out
}

func (s *mockStore) eventOverlaps(ev *model.Event, start, end time.Time) bool {
	return ev.StartsAt.Before(end) && start.Before(ev.EndsAt)
}

// ── Mock ResourceRepository ──

type mockResourceRepo struct{ s *mockStore }

func (m *mockResourceRepo) Create(_ context.Context, resource *model.Resource) error {
	if resource.ResourceID == "" {
		resource.ResourceID = "res-" + resource.Name
	}
	m.s.resources[resource.ResourceID] = resource
	return nil
}

func (m *mockResourceRepo) GetByID(_ context.Context, id string) (*model.Resource, error) {
	if r, ok := m.s.resources[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockResourceRepo) GetByNameAndKind(_ context.Context, name string, kind model.ResourceKind) (*model.Resource, error) {
	for _, r := range m.s.resources {
		if r.Name == name && r.Kind == kind {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockResourceRepo) ListByKind(_ context.Context, kind model.ResourceKind) ([]model.Resource, error) {
	var result []model.Resource
	for _, r := range m.s.resources {
		if r.Kind == kind && r.IsActive {
			result = append(result, *r)
		}
	}
	return result, nil
}

// ── Mock GroupRepository ──

type mockGroupRepo struct{ s *mockStore }

func (m *mockGroupRepo) Create(_ context.Context, group *model.Group) error {
	if group.GroupID == "" {
		group.GroupID = "grp-" + group.Name
	}
	m.s.groups[group.GroupID] = group
	return nil
}

func (m *mockGroupRepo) GetByID(_ context.Context, id string) (*model.Group, error) {
	if g, ok := m.s.groups[id]; ok {
		return g, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGroupRepo) ListMemberships(_ context.Context, groupID string, asOf time.Time) ([]model.Membership, error) {
	var result []model.Membership
	for _, mb := range m.s.memberships {
		if mb.GroupID == groupID && mb.ActiveOn(asOf) {
			result = append(result, mb)
		}
	}
	return result, nil
}

func (m *mockGroupRepo) ListMembershipsForElement(_ context.Context, elementType, elementID string, asOf time.Time) ([]model.Membership, error) {
	var result []model.Membership
	for _, mb := range m.s.memberships {
		if mb.ElementType == elementType && mb.ElementID == elementID && mb.ActiveOn(asOf) {
			result = append(result, mb)
		}
	}
	return result, nil
}

func (m *mockGroupRepo) AddMembership(_ context.Context, mb *model.Membership) error {
	if mb.MembershipID == "" {
		mb.MembershipID = fmt.Sprintf("mbr-%d", len(m.s.memberships)+1)
	}
	m.s.memberships = append(m.s.memberships, *mb)
	return nil
}

// ── Mock EventCategoryRepository ──

type mockEventCategoryRepo struct{ s *mockStore }

func (m *mockEventCategoryRepo) Create(_ context.Context, category *model.EventCategory) error {
	if category.CategoryID == "" {
		category.CategoryID = "cat-" + category.Name
	}
	m.s.categories[category.CategoryID] = category
	return nil
}

func (m *mockEventCategoryRepo) GetByName(_ context.Context, name string) (*model.EventCategory, error) {
	for _, c := range m.s.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventCategoryRepo) ListClashCheck(_ context.Context) ([]model.EventCategory, error) {
	var result []model.EventCategory
	for _, c := range m.s.categories {
		if c.ClashCheck && !c.Deprecated {
			result = append(result, *c)
		}
	}
	return result, nil
}

// ── Mock EventRepository ──

type mockEventRepo struct{ s *mockStore }

func (m *mockEventRepo) Create(_ context.Context, event *model.Event) error {
	if event.EventID == "" {
		m.s.eventSeq++
		event.EventID = fmt.Sprintf("evt-%d", m.s.eventSeq)
	}
	m.s.events[event.EventID] = event
	return nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id string) (*model.Event, error) {
	if ev, ok := m.s.events[id]; ok {
		return ev, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) GetBySourceUID(_ context.Context, source, uid string) (*model.Event, error) {
	for _, ev := range m.s.events {
		if ev.Source == source && ev.SourceUID != nil && *ev.SourceUID == uid {
			return ev, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) EventsOn(_ context.Context, start, end time.Time) ([]model.Event, error) {
	var result []model.Event
	for _, ev := range m.s.events {
		cat, ok := m.s.categories[ev.CategoryID]
		if !ok || !cat.ClashCheck || cat.NonBusy || cat.Deprecated {
			continue
		}
		if ev.NonExistent || !m.s.eventOverlaps(ev, start, end) {
			continue
		}
		evCopy := *ev
		evCopy.Category = cat
		for _, c := range m.s.commitments {
			if c.EventID == ev.EventID {
				evCopy.Commitments = append(evCopy.Commitments, m.s.hydrateCommitment(c))
			}
		}
		result = append(result, evCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartsAt.Before(result[j].StartsAt) })
	return result, nil
}

func (m *mockEventRepo) ListSuspendedWithNotes(_ context.Context, start, end time.Time) ([]model.Event, error) {
	var result []model.Event
	for _, ev := range m.s.events {
		if !ev.NonExistent || !m.s.eventOverlaps(ev, start, end) {
			continue
		}
		hasNote := false
		for _, n := range m.s.notes {
			if n.EventID == ev.EventID {
				hasNote = true
				break
			}
		}
		if hasNote {
			result = append(result, *ev)
		}
	}
	return result, nil
}

func (m *mockEventRepo) UpdateHasClashes(_ context.Context, eventID string, hasClashes bool) error {
	ev, ok := m.s.events[eventID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	ev.HasClashes = hasClashes
	return nil
}

// ── Mock CommitmentRepository ──

type mockCommitmentRepo struct{ s *mockStore }

func (m *mockCommitmentRepo) Create(_ context.Context, commitment *model.Commitment) error {
	if commitment.CommitmentID == "" {
		m.s.commitmentSeq++
		commitment.CommitmentID = fmt.Sprintf("cmt-%d", m.s.commitmentSeq)
	}
	m.s.commitments[commitment.CommitmentID] = commitment
	return nil
}

func (m *mockCommitmentRepo) ListByEvent(_ context.Context, eventID string) ([]model.Commitment, error) {
	var result []model.Commitment
	for _, c := range m.s.commitments {
		if c.EventID == eventID {
			result = append(result, m.s.hydrateCommitment(c))
		}
	}
	return result, nil
}

func (m *mockCommitmentRepo) matches(c *model.Commitment, start, end time.Time, excludeNonBusy bool) bool {
	ev, ok := m.s.events[c.EventID]
	if !ok || ev.NonExistent || !m.s.eventOverlaps(ev, start, end) {
		return false
	}
	if excludeNonBusy {
		if cat, ok := m.s.categories[ev.CategoryID]; ok && cat.NonBusy {
			return false
		}
	}
	return true
}

func (m *mockCommitmentRepo) ListForResourceDuring(_ context.Context, resourceID string, start, end time.Time, excludeNonBusy bool) ([]model.Commitment, error) {
	var result []model.Commitment
	for _, c := range m.s.commitments {
		if c.ResourceID == nil || *c.ResourceID != resourceID {
			continue
		}
		if m.matches(c, start, end, excludeNonBusy) {
			result = append(result, m.s.hydrateCommitment(c))
		}
	}
	return result, nil
}

func (m *mockCommitmentRepo) ListForGroupsDuring(_ context.Context, groupIDs []string, start, end time.Time, excludeNonBusy bool) ([]model.Commitment, error) {
	idSet := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		idSet[id] = true
	}
	var result []model.Commitment
	for _, c := range m.s.commitments {
		if c.GroupID == nil || !idSet[*c.GroupID] {
			continue
		}
		if m.matches(c, start, end, excludeNonBusy) {
			result = append(result, m.s.hydrateCommitment(c))
		}
	}
	return result, nil
}

// ── Mock ClashNoteRepository ──

type mockClashNoteRepo struct{ s *mockStore }

func (m *mockClashNoteRepo) Create(_ context.Context, note *model.ClashNote) error {
	if note.NoteID == "" {
		m.s.noteSeq++
		note.NoteID = fmt.Sprintf("note-%d", m.s.noteSeq)
	}
	m.s.notes[note.NoteID] = note
	return nil
}

func (m *mockClashNoteRepo) Update(_ context.Context, note *model.ClashNote) error {
	if _, ok := m.s.notes[note.NoteID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.s.notes[note.NoteID] = note
	return nil
}

func (m *mockClashNoteRepo) Delete(_ context.Context, noteID string) error {
	delete(m.s.notes, noteID)
	return nil
}

func (m *mockClashNoteRepo) ListByEvent(_ context.Context, eventID string) ([]model.ClashNote, error) {
	var result []model.ClashNote
	for _, n := range m.s.notes {
		if n.EventID == eventID {
			result = append(result, *n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NoteID < result[j].NoteID })
	return result, nil
}

func (m *mockClashNoteRepo) DeleteByEvent(_ context.Context, eventID string) error {
	for id, n := range m.s.notes {
		if n.EventID == eventID {
			delete(m.s.notes, id)
		}
	}
	return nil
}

func (m *mockClashNoteRepo) ListBetween(_ context.Context, start, end time.Time) ([]model.ClashNote, error) {
	var result []model.ClashNote
	for _, n := range m.s.notes {
		ev, ok := m.s.events[n.EventID]
		if !ok || !m.s.eventOverlaps(ev, start, end) {
			continue
		}
		nCopy := *n
		evCopy := *ev
		if cat, ok := m.s.categories[ev.CategoryID]; ok {
			evCopy.Category = cat
		}
		nCopy.Event = &evCopy
		result = append(result, nCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Event.StartsAt.Before(result[j].Event.StartsAt) })
	return result, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ s *mockStore }

func (m *mockNotificationRepo) Create(_ context.Context, notification *model.Notification) error {
	m.s.notifications = append(m.s.notifications, *notification)
	return nil
}

func (m *mockNotificationRepo) BatchCreate(_ context.Context, notifications []model.Notification) error {
	m.s.notifications = append(m.s.notifications, notifications...)
	return nil
}

func (m *mockNotificationRepo) ListByResource(_ context.Context, resourceID string, unreadOnly bool) ([]model.Notification, error) {
	var result []model.Notification
	for _, n := range m.s.notifications {
		if n.ResourceID != resourceID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, n)
	}
	return result, nil
}

// ── Mock NotificationPreferenceRepository ──

type mockNotificationPreferenceRepo struct{ s *mockStore }

func (m *mockNotificationPreferenceRepo) GetByResource(_ context.Context, resourceID string) (*model.NotificationPreference, error) {
	if p, ok := m.s.prefs[resourceID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationPreferenceRepo) Upsert(_ context.Context, pref *model.NotificationPreference) error {
	m.s.prefs[pref.ResourceID] = pref
	return nil
}
