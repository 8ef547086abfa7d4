package clubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clubhouse/backend/internal/models"
	"github.com/clubhouse/backend/pkg/queue"
)

// ------------------------
// Fake Club Repo
// ------------------------

type joinKey struct{ clubID, userID int64 }

// FakeClubRepo is an in-memory Repository with the same semantics as the
// Postgres one. Set errs[method] to make a method fail.
type FakeClubRepo struct {
	trace []string

	nextClubID   int64
	clubs        map[int64]*models.Club
	joins        map[joinKey]models.JoinState
	deletedUsers map[int64]bool
	userNames    map[int64]string
	events       map[int64]*models.Event
	eventJoins   map[joinKey]bool // clubID field holds the event id
	errs         map[string]error
}

func NewFakeClubRepo() *FakeClubRepo {
	return &FakeClubRepo{
		clubs:        map[int64]*models.Club{},
		joins:        map[joinKey]models.JoinState{},
		deletedUsers: map[int64]bool{},
		userNames:    map[int64]string{},
		events:       map[int64]*models.Event{},
		eventJoins:   map[joinKey]bool{},
		errs:         map[string]error{},
	}
}

var _ Repository = (*FakeClubRepo)(nil)

func (f *FakeClubRepo) record(step string) error {
	f.trace = append(f.trace, step)
	return f.errs[step]
}

// --- seeding helpers ---

func (f *FakeClubRepo) seedClub(c models.Club) *models.Club {
	if c.ID == 0 {
		f.nextClubID++
		c.ID = f.nextClubID
	} else if c.ID > f.nextClubID {
		f.nextClubID = c.ID
	}
	f.clubs[c.ID] = &c
	f.joins[joinKey{c.ID, c.OwnerID}] = models.JoinStateJoined
	return &c
}

func (f *FakeClubRepo) seedJoin(clubID, userID int64, state models.JoinState) {
	f.joins[joinKey{clubID, userID}] = state
}

func (f *FakeClubRepo) seedEvent(e models.Event, participants ...int64) {
	f.events[e.ID] = &e
	for _, u := range participants {
		f.eventJoins[joinKey{e.ID, u}] = true
	}
}

func (f *FakeClubRepo) state(clubID, userID int64) models.JoinState {
	return f.joins[joinKey{clubID, userID}]
}

func (f *FakeClubRepo) joinRows() int {
	return len(f.joins)
}

func (f *FakeClubRepo) joinedCount(clubID int64) int {
	n := 0
	for k, s := range f.joins {
		if k.clubID == clubID && s == models.JoinStateJoined && !f.deletedUsers[k.userID] {
			n++
		}
	}
	return n
}

// --- Repository Interface Implementation ---

func (f *FakeClubRepo) ClubNameExists(_ context.Context, name string) (bool, error) {
	if err := f.record("ClubNameExists"); err != nil {
		return false, err
	}
	for _, c := range f.clubs {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeClubRepo) CreateClub(_ context.Context, data CreateClubData) (*models.Club, error) {
	if err := f.record("CreateClub"); err != nil {
		return nil, err
	}
	c := f.seedClub(models.Club{
		Name:        data.Name,
		Description: data.Description,
		OwnerID:     data.OwnerID,
		MaxCapacity: data.MaxCapacity,
	})
	out := *c
	return &out, nil
}

func (f *FakeClubRepo) GetClubByID(_ context.Context, clubID int64) (*models.Club, error) {
	if err := f.record("GetClubByID"); err != nil {
		return nil, err
	}
	c, ok := f.clubs[clubID]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (f *FakeClubRepo) sortedClubs(keep func(*models.Club) bool) []models.Club {
	list := []models.Club{}
	for _, c := range f.clubs {
		if keep(c) {
			list = append(list, *c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (f *FakeClubRepo) GetClubs(_ context.Context) ([]models.Club, error) {
	if err := f.record("GetClubs"); err != nil {
		return nil, err
	}
	return f.sortedClubs(func(*models.Club) bool { return true }), nil
}

func (f *FakeClubRepo) GetMyClubs(_ context.Context, userID int64) ([]models.Club, error) {
	if err := f.record("GetMyClubs"); err != nil {
		return nil, err
	}
	return f.sortedClubs(func(c *models.Club) bool {
		return !f.deletedUsers[userID] && f.joins[joinKey{c.ID, userID}] == models.JoinStateJoined
	}), nil
}

func (f *FakeClubRepo) GetJoinState(_ context.Context, clubID, userID int64) (models.JoinState, error) {
	if err := f.record("GetJoinState"); err != nil {
		return "", err
	}
	if f.deletedUsers[userID] {
		return "", nil
	}
	return f.joins[joinKey{clubID, userID}], nil
}

func (f *FakeClubRepo) CountJoinedUsers(_ context.Context, clubID int64) (int, error) {
	if err := f.record("CountJoinedUsers"); err != nil {
		return 0, err
	}
	return f.joinedCount(clubID), nil
}

func (f *FakeClubRepo) GetClubMemberIDs(_ context.Context, clubID int64) ([]int64, error) {
	if err := f.record("GetClubMemberIDs"); err != nil {
		return nil, err
	}
	var ids []int64
	for k, s := range f.joins {
		if k.clubID == clubID && s == models.JoinStateJoined && !f.deletedUsers[k.userID] {
			ids = append(ids, k.userID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *FakeClubRepo) GetJoinRequests(_ context.Context, clubID int64) ([]models.JoinRequest, error) {
	if err := f.record("GetJoinRequests"); err != nil {
		return nil, err
	}
	list := []models.JoinRequest{}
	for k, s := range f.joins {
		if k.clubID == clubID && s == models.JoinStatePending && !f.deletedUsers[k.userID] {
			list = append(list, models.JoinRequest{UserID: k.userID, FullName: f.userNames[k.userID]})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UserID < list[j].UserID })
	return list, nil
}

func (f *FakeClubRepo) JoinClub(_ context.Context, clubID, userID int64) (bool, error) {
	if err := f.record("JoinClub"); err != nil {
		return false, err
	}
	if f.joinedCount(clubID) >= f.clubs[clubID].MaxCapacity {
		return false, nil
	}
	f.joins[joinKey{clubID, userID}] = models.JoinStatePending
	return true, nil
}

func (f *FakeClubRepo) ApproveJoin(_ context.Context, clubID, userID int64) (bool, error) {
	if err := f.record("ApproveJoin"); err != nil {
		return false, err
	}
	if f.joinedCount(clubID) >= f.clubs[clubID].MaxCapacity {
		return false, nil
	}
	if f.joins[joinKey{clubID, userID}] != models.JoinStatePending {
		return false, ErrNoPendingRequest
	}
	f.joins[joinKey{clubID, userID}] = models.JoinStateJoined
	return true, nil
}

func (f *FakeClubRepo) UpdateClub(_ context.Context, clubID int64, data UpdateClubData) (*models.Club, error) {
	if err := f.record("UpdateClub"); err != nil {
		return nil, err
	}
	c, ok := f.clubs[clubID]
	if !ok {
		return nil, nil
	}
	if data.MaxCapacity != nil && *data.MaxCapacity < f.joinedCount(clubID) {
		return nil, nil
	}
	if data.Name != nil {
		c.Name = *data.Name
	}
	if data.Description != nil {
		c.Description = *data.Description
	}
	if data.MaxCapacity != nil {
		c.MaxCapacity = *data.MaxCapacity
	}
	out := *c
	return &out, nil
}

func (f *FakeClubRepo) UpdateOwner(_ context.Context, clubID, ownerID int64) (bool, error) {
	if err := f.record("UpdateOwner"); err != nil {
		return false, err
	}
	c, ok := f.clubs[clubID]
	if !ok || f.deletedUsers[ownerID] {
		return false, nil
	}
	c.OwnerID = ownerID
	return true, nil
}

func (f *FakeClubRepo) DeleteClub(_ context.Context, clubID int64, now time.Time) error {
	if err := f.record("DeleteClub"); err != nil {
		return err
	}
	for id, e := range f.events {
		if e.ClubID == nil || *e.ClubID != clubID {
			continue
		}
		if e.StartTime.After(now) {
			f.deleteEvent(id)
			continue
		}
		e.ClubID = nil
		e.IsArchived = true
	}
	delete(f.clubs, clubID)
	for k := range f.joins {
		if k.clubID == clubID {
			delete(f.joins, k)
		}
	}
	return nil
}

func (f *FakeClubRepo) OutClub(_ context.Context, clubID, userID int64, now time.Time) error {
	if err := f.record("OutClub"); err != nil {
		return err
	}
	for id, e := range f.events {
		if e.ClubID == nil || *e.ClubID != clubID || !e.StartTime.After(now) {
			continue
		}
		if e.HostID == userID {
			f.deleteEvent(id)
			continue
		}
		delete(f.eventJoins, joinKey{id, userID})
	}
	delete(f.joins, joinKey{clubID, userID})
	return nil
}

func (f *FakeClubRepo) deleteEvent(id int64) {
	delete(f.events, id)
	for k := range f.eventJoins {
		if k.clubID == id {
			delete(f.eventJoins, k)
		}
	}
}

// --- Accessors for assertions ---

func (f *FakeClubRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// ------------------------
// Fake Notifier
// ------------------------

type FakeNotifier struct {
	mu   sync.Mutex
	sent []queue.Notification
	err  error
}

func (f *FakeNotifier) EnqueueNotification(_ context.Context, n queue.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *FakeNotifier) Sent() []queue.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]queue.Notification, len(f.sent))
	copy(out, f.sent)
	return out
}
