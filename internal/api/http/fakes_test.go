package http

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type memAccounts struct {
	mu   sync.Mutex
	rows []domain.Account
}

func (m *memAccounts) Create(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if strings.EqualFold(existing.Email, account.Email) {
			return repository.ErrEmailTaken
		}
	}
	account.ID = int64(len(m.rows) + 1)
	account.CreatedAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(account.ID) * time.Minute)
	account.UpdatedAt = account.CreatedAt
	m.rows = append(m.rows, *account)
	return nil
}

func (m *memAccounts) find(match func(domain.Account) bool) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.rows {
		if match(account) {
			out := account
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memAccounts) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	return m.find(func(a domain.Account) bool { return a.ID == id })
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	return m.find(func(a domain.Account) bool { return strings.EqualFold(a.Email, email) })
}

// FirstByRole relies on rows being kept in creation order.
func (m *memAccounts) FirstByRole(_ context.Context, role domain.Role) (*domain.Account, error) {
	return m.find(func(a domain.Account) bool { return a.Role == role })
}

func (m *memAccounts) List(_ context.Context, filter repository.AccountFilter) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	term := strings.ToLower(strings.TrimSpace(filter.SearchTerm))
	out := []domain.Account{}
	for _, a := range m.rows {
		if filter.Role != nil && a.Role != *filter.Role {
			continue
		}
		if filter.ExcludeID != nil && a.ID == *filter.ExcludeID {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(a.Email+"|"+a.FullName()), term) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memAccounts) UpdateRole(_ context.Context, id int64, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Role = role
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memAccounts) UpdateProfile(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	index := -1
	for i, existing := range m.rows {
		if existing.ID == account.ID {
			index = i
			continue
		}
		if strings.EqualFold(existing.Email, account.Email) {
			return repository.ErrEmailTaken
		}
	}
	if index < 0 {
		return pgx.ErrNoRows
	}
	row := &m.rows[index]
	row.FirstName = account.FirstName
	row.LastName = account.LastName
	row.Email = account.Email
	row.PasswordHash = account.PasswordHash
	return nil
}

type memMessages struct {
	mu   sync.Mutex
	rows []domain.Message
}

func (m *memMessages) Create(_ context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = int64(len(m.rows) + 1)
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memMessages) ListThread(_ context.Context, thread domain.Thread) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Message{}
	for _, msg := range m.rows {
		if thread.Contains(msg) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessages) CountFromSince(_ context.Context, senderID, recipientID int64, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, msg := range m.rows {
		sender, _ := msg.SenderID()
		recipient, ok := msg.RecipientID()
		if ok && sender == senderID && recipient == recipientID && msg.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *memMessages) ExistsFromSince(ctx context.Context, senderID, recipientID int64, since time.Time) (bool, error) {
	count, err := m.CountFromSince(ctx, senderID, recipientID, since)
	return count > 0, err
}

var seededStatuses = []domain.TicketStatus{
	{ID: 1, Code: domain.TicketStatusPending, Name: "В обработке"},
	{ID: 2, Code: domain.TicketStatusCompleted, Name: "Завершено"},
	{ID: 3, Code: domain.TicketStatusSuspended, Name: "Приостановлено"},
}

type memStatuses struct{}

func (memStatuses) List(context.Context) ([]domain.TicketStatus, error) {
	return append([]domain.TicketStatus{}, seededStatuses...), nil
}

func (memStatuses) GetByID(_ context.Context, id int64) (*domain.TicketStatus, error) {
	for _, s := range seededStatuses {
		if s.ID == id {
			out := s
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (memStatuses) GetByCode(_ context.Context, code domain.TicketStatusCode) (*domain.TicketStatus, error) {
	for _, s := range seededStatuses {
		if s.Code == code {
			out := s
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memTickets struct {
	mu   sync.Mutex
	rows []domain.Ticket
}

func (m *memTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.Number == ticket.Number {
			return repository.ErrTicketNumberTaken
		}
	}
	ticket.ID = int64(len(m.rows) + 1)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	m.rows = append(m.rows, *ticket)
	return nil
}

func (m *memTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == ticket.ID {
			m.rows[i].StatusID = ticket.StatusID
			m.rows[i].ProcessingDeadline = ticket.ProcessingDeadline
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memTickets) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.ID == id {
			out := t
			out.Status, _ = memStatuses{}.GetByID(ctx, t.StatusID)
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memTickets) NumberExists(_ context.Context, number int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTickets) LowestFreeNumber(ctx context.Context, ceiling int) (int, error) {
	for n := 1; n <= ceiling; n++ {
		taken, _ := m.NumberExists(ctx, n)
		if !taken {
			return n, nil
		}
	}
	return 0, repository.ErrNoFreeTicketNumber
}

func (m *memTickets) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Ticket{}
	for _, t := range m.rows {
		if filter.UserID != nil && t.UserID != *filter.UserID {
			continue
		}
		t.Status, _ = memStatuses{}.GetByID(ctx, t.StatusID)
		out = append(out, t)
	}
	return out, nil
}
