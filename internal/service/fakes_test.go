package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/session"
)

var baseTime = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type fakeAccounts struct {
	mu     sync.Mutex
	rows   map[int64]*domain.Account
	nextID int64
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{rows: map[int64]*domain.Account{}}
}

func (f *fakeAccounts) add(first, last string, role domain.Role) domain.Account {
	account := &domain.Account{
		FirstName: first,
		LastName:  last,
		Email:     strings.ToLower(first+"."+last) + "@example.com",
		Role:      role,
	}
	if err := f.Create(context.Background(), account); err != nil {
		panic(err)
	}
	return *account
}

func (f *fakeAccounts) Create(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if strings.EqualFold(existing.Email, account.Email) {
			return repository.ErrEmailTaken
		}
	}
	f.nextID++
	account.ID = f.nextID
	account.CreatedAt = baseTime.Add(time.Duration(f.nextID) * time.Minute)
	account.UpdatedAt = account.CreatedAt
	stored := *account
	f.rows[account.ID] = &stored
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *account
	return &out, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.rows {
		if strings.EqualFold(account.Email, email) {
			out := *account
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccounts) FirstByRole(_ context.Context, role domain.Role) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first *domain.Account
	for _, account := range f.rows {
		if account.Role != role {
			continue
		}
		if first == nil || account.CreatedAt.Before(first.CreatedAt) ||
			(account.CreatedAt.Equal(first.CreatedAt) && account.ID < first.ID) {
			first = account
		}
	}
	if first == nil {
		return nil, pgx.ErrNoRows
	}
	out := *first
	return &out, nil
}

func (f *fakeAccounts) List(_ context.Context, filter repository.AccountFilter) ([]domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	term := strings.ToLower(strings.TrimSpace(filter.SearchTerm))
	result := []domain.Account{}
	for _, account := range f.rows {
		if filter.Role != nil && account.Role != *filter.Role {
			continue
		}
		if filter.ExcludeID != nil && account.ID == *filter.ExcludeID {
			continue
		}
		if term != "" && !matchesTerm(*account, term) {
			continue
		}
		result = append(result, *account)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FirstName != result[j].FirstName {
			return result[i].FirstName < result[j].FirstName
		}
		return result[i].ID < result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matchesTerm(account domain.Account, term string) bool {
	for _, field := range []string{account.Email, account.FirstName, account.LastName, account.FullName()} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (f *fakeAccounts) UpdateRole(_ context.Context, id int64, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.Role = role
	return nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.rows[account.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	for id, existing := range f.rows {
		if id != account.ID && strings.EqualFold(existing.Email, account.Email) {
			return repository.ErrEmailTaken
		}
	}
	stored.FirstName = account.FirstName
	stored.LastName = account.LastName
	stored.Email = account.Email
	stored.PasswordHash = account.PasswordHash
	stored.UpdatedAt = stored.UpdatedAt.Add(time.Minute)
	account.UpdatedAt = stored.UpdatedAt
	return nil
}

type fakeMessages struct {
	mu         sync.Mutex
	rows       []domain.Message
	clock      func() time.Time
	failCreate error
}

func newFakeMessages(clock func() time.Time) *fakeMessages {
	return &fakeMessages{clock: clock}
}

func (f *fakeMessages) Create(_ context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	msg.ID = int64(len(f.rows) + 1)
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = f.clock()
	}
	f.rows = append(f.rows, *msg)
	return nil
}

func (f *fakeMessages) ListThread(_ context.Context, thread domain.Thread) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []domain.Message{}
	for _, msg := range f.rows {
		if thread.Contains(msg) {
			result = append(result, msg)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (f *fakeMessages) CountFromSince(_ context.Context, senderID, recipientID int64, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, msg := range f.rows {
		sender, _ := msg.SenderID()
		recipient, ok := msg.RecipientID()
		if ok && sender == senderID && recipient == recipientID && msg.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeMessages) ExistsFromSince(ctx context.Context, senderID, recipientID int64, since time.Time) (bool, error) {
	count, err := f.CountFromSince(ctx, senderID, recipientID, since)
	return count > 0, err
}

type fakeStatuses struct {
	rows []domain.TicketStatus
}

func newFakeStatuses() *fakeStatuses {
	return &fakeStatuses{rows: []domain.TicketStatus{
		{ID: 1, Code: domain.TicketStatusPending, Name: "В обработке"},
		{ID: 2, Code: domain.TicketStatusCompleted, Name: "Завершено"},
		{ID: 3, Code: domain.TicketStatusSuspended, Name: "Приостановлено"},
	}}
}

func (f *fakeStatuses) List(context.Context) ([]domain.TicketStatus, error) {
	return append([]domain.TicketStatus{}, f.rows...), nil
}

func (f *fakeStatuses) GetByID(_ context.Context, id int64) (*domain.TicketStatus, error) {
	for _, status := range f.rows {
		if status.ID == id {
			out := status
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStatuses) GetByCode(_ context.Context, code domain.TicketStatusCode) (*domain.TicketStatus, error) {
	for _, status := range f.rows {
		if status.Code == code {
			out := status
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeTickets struct {
	mu       sync.Mutex
	rows     map[int64]*domain.Ticket
	numbers  map[int]int64
	nextID   int64
	statuses *fakeStatuses
	// collide makes the next Create of that number lose a race to a phantom ticket.
	collide map[int]bool
	// alwaysTaken makes every Create fail with a unique violation.
	alwaysTaken bool
	creates     int
}

func newFakeTickets(statuses *fakeStatuses) *fakeTickets {
	return &fakeTickets{
		rows:     map[int64]*domain.Ticket{},
		numbers:  map[int]int64{},
		statuses: statuses,
		collide:  map[int]bool{},
	}
}

func (f *fakeTickets) occupy(numbers ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range numbers {
		f.numbers[n] = -1
	}
}

func (f *fakeTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.alwaysTaken {
		return repository.ErrTicketNumberTaken
	}
	if f.collide[ticket.Number] {
		delete(f.collide, ticket.Number)
		f.numbers[ticket.Number] = -1
		return repository.ErrTicketNumberTaken
	}
	if _, taken := f.numbers[ticket.Number]; taken {
		return repository.ErrTicketNumberTaken
	}
	f.nextID++
	ticket.ID = f.nextID
	ticket.CreatedAt = baseTime.Add(time.Duration(f.nextID) * time.Second)
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	stored.Status = nil
	f.rows[ticket.ID] = &stored
	f.numbers[ticket.Number] = ticket.ID
	return nil
}

func (f *fakeTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.rows[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.ProcessingDeadline = ticket.ProcessingDeadline
	stored.StatusID = ticket.StatusID
	return nil
}

func (f *fakeTickets) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	f.mu.Lock()
	stored, ok := f.rows[id]
	var out domain.Ticket
	if ok {
		out = *stored
	}
	f.mu.Unlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	status, err := f.statuses.GetByID(ctx, out.StatusID)
	if err != nil {
		return nil, err
	}
	out.Status = status
	return &out, nil
}

func (f *fakeTickets) NumberExists(_ context.Context, number int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, taken := f.numbers[number]
	return taken, nil
}

func (f *fakeTickets) LowestFreeNumber(_ context.Context, ceiling int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for n := 1; n <= ceiling; n++ {
		if _, taken := f.numbers[n]; !taken {
			return n, nil
		}
	}
	return 0, repository.ErrNoFreeTicketNumber
}

func (f *fakeTickets) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	ids := make([]int64, 0, len(f.rows))
	for id, ticket := range f.rows {
		if filter.UserID != nil && ticket.UserID != *filter.UserID {
			continue
		}
		ids = append(ids, id)
	}
	f.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]domain.Ticket, 0, len(ids))
	for _, id := range ids {
		ticket, err := f.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

// newSessionStore returns a redis-backed session store on miniredis.
func newSessionStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewRedisStore(client, time.Hour), mr
}

func newSession(t *testing.T, store session.Store) string {
	t.Helper()
	sid, err := store.Create(context.Background())
	require.NoError(t, err)
	return sid
}

// steppingClock advances by step on every call.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func int64Ptr(v int64) *int64 { return &v }
