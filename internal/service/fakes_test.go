package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/logger"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

func newTestLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.InitLogger("slog", "test", "test", logger.WithLevel(logger.ErrorLevel))
	require.NoError(t, err)
	return log
}

// memTokens keeps one token per user, like the real stores.
type memTokens struct {
	mu     sync.Mutex
	byUser map[uint64]model.RefreshToken
}

func newMemTokens() *memTokens { return &memTokens{byUser: map[uint64]model.RefreshToken{}} }

func (m *memTokens) Replace(_ context.Context, userID uint64, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[userID] = model.RefreshToken{UserID: userID, TokenHash: hash, ExpiresAt: exp}
	return nil
}

func (m *memTokens) FindByHash(_ context.Context, hash string) (model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byUser {
		if t.TokenHash == hash {
			return t, nil
		}
	}
	return model.RefreshToken{}, repository.ErrTokenNotFound
}

func (m *memTokens) DeleteByUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byUser, userID)
	return nil
}

func (m *memTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byUser)
}

type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	m.nextID++
	u.ID = m.nextID
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

type memMovies struct {
	mu   sync.Mutex
	byID map[uint64]model.Movie
}

func (m *memMovies) Create(_ context.Context, mv *model.Movie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv.ID = uint64(len(m.byID) + 1)
	m.byID[mv.ID] = *mv
	return nil
}

func (m *memMovies) GetByID(_ context.Context, id uint64) (model.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv, ok := m.byID[id]
	if !ok {
		return model.Movie{}, repository.ErrMovieNotFound
	}
	return mv, nil
}

func (m *memMovies) List(_ context.Context) ([]model.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Movie
	for _, mv := range m.byID {
		out = append(out, mv)
	}
	return out, nil
}

type memTheaters struct {
	mu   sync.Mutex
	byID map[uint64]model.Theater
}

func (m *memTheaters) Create(_ context.Context, t *model.Theater) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uint64(len(m.byID) + 1)
	m.byID[t.ID] = *t
	return nil
}

func (m *memTheaters) GetByID(_ context.Context, id uint64) (model.Theater, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return model.Theater{}, repository.ErrTheaterNotFound
	}
	return t, nil
}

// memScreenings stores showtimes keyed like the unique index of the table.
type memScreenings struct {
	mu         sync.Mutex
	theaters   *memTheaters
	screenings []model.Screening
	showtimes  map[string]*model.Showtime
}

func (m *memScreenings) Create(_ context.Context, s *model.Screening) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, timing := range s.ShowTimings {
		if _, ok := m.showtimes[showtimeKey(s.MovieID, s.TheaterID, timing)]; ok {
			return repository.ErrConflict
		}
	}
	s.ID = uint64(len(m.screenings) + 1)
	m.screenings = append(m.screenings, *s)
	for _, timing := range s.ShowTimings {
		m.showtimes[showtimeKey(s.MovieID, s.TheaterID, timing)] = &model.Showtime{
			ScreeningID: s.ID, MovieID: s.MovieID, TheaterID: s.TheaterID, ShowTiming: timing, Capacity: s.Capacity,
		}
	}
	return nil
}

func (m *memScreenings) ListByMovie(ctx context.Context, movieID uint64) ([]model.TheaterScreening, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TheaterScreening
	for _, s := range m.screenings {
		if s.MovieID != movieID {
			continue
		}
		t, _ := m.theaters.GetByID(ctx, s.TheaterID)
		out = append(out, model.TheaterScreening{
			TheaterID: s.TheaterID, TheaterName: t.Name, Location: t.Location,
			ScreenNumber: s.ScreenNumber, ShowTimings: s.ShowTimings,
		})
	}
	return out, nil
}

func (m *memScreenings) GetShowtime(_ context.Context, movieID, theaterID uint64, timing string) (model.Showtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.showtimes[showtimeKey(movieID, theaterID, timing)]
	if !ok {
		return model.Showtime{}, repository.ErrScreeningNotFound
	}
	return *st, nil
}

func (m *memScreenings) adjust(key string, delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showtimes[key].BookedSeats += delta
}

// memBookings checks capacity and then writes in two separate critical
// sections with a sleep in between.  On its own it oversells under
// concurrency; the allocator's key lock is what keeps it correct.
type memBookings struct {
	mu         sync.Mutex
	screenings *memScreenings
	byID       map[uint64]*model.Booking
	byRequest  map[string]uint64
	nextID     uint64
	clockStep  time.Duration
}

func (m *memBookings) Reserve(ctx context.Context, p repository.ReserveParams) (repository.ReserveResult, error) {
	key := showtimeKey(p.MovieID, p.TheaterID, p.ShowTiming)
	if p.RequestID != "" {
		m.mu.Lock()
		id, ok := m.byRequest[requestKey(p)]
		m.mu.Unlock()
		if ok {
			b := m.get(id)
			if !p.Matches(b) {
				return repository.ReserveResult{}, repository.ErrRequestReused
			}
			st, _ := m.screenings.GetShowtime(ctx, p.MovieID, p.TheaterID, p.ShowTiming)
			return repository.ReserveResult{Booking: b, Available: st.Available(), Replayed: true}, nil
		}
	}

	st, err := m.screenings.GetShowtime(ctx, p.MovieID, p.TheaterID, p.ShowTiming)
	if err != nil {
		return repository.ReserveResult{}, err
	}
	if st.BookedSeats+p.Tickets > st.Capacity {
		return repository.ReserveResult{}, &repository.InsufficientSeatsError{Available: st.Available(), Requested: p.Tickets}
	}
	time.Sleep(200 * time.Microsecond)
	m.screenings.adjust(key, p.Tickets)

	m.mu.Lock()
	m.nextID++
	b := model.Booking{
		ID: m.nextID, UserID: p.UserID, MovieID: p.MovieID, TheaterID: p.TheaterID, ShowTiming: p.ShowTiming,
		NumberOfTickets: p.Tickets, BookingTime: p.BookedAt.Add(time.Duration(m.nextID) * m.clockStep), Status: model.BookingBooked,
	}
	m.byID[b.ID] = &b
	if p.RequestID != "" {
		m.byRequest[requestKey(p)] = b.ID
	}
	m.mu.Unlock()

	after, _ := m.screenings.GetShowtime(ctx, p.MovieID, p.TheaterID, p.ShowTiming)
	return repository.ReserveResult{Booking: b, Available: after.Available()}, nil
}

// requestKey mirrors the (user_id, request_id) unique key.
func requestKey(p repository.ReserveParams) string {
	return strconv.FormatUint(p.UserID, 10) + "|" + p.RequestID
}

func (m *memBookings) Cancel(_ context.Context, bookingID, userID uint64) (model.Booking, error) {
	m.mu.Lock()
	b, ok := m.byID[bookingID]
	if !ok {
		m.mu.Unlock()
		return model.Booking{}, repository.ErrBookingNotFound
	}
	if b.UserID != userID {
		m.mu.Unlock()
		return model.Booking{}, repository.ErrForbidden
	}
	if b.Status == model.BookingCancelled {
		m.mu.Unlock()
		return model.Booking{}, repository.ErrAlreadyCancelled
	}
	b.Status = model.BookingCancelled
	out := *b
	m.mu.Unlock()

	m.screenings.adjust(showtimeKey(out.MovieID, out.TheaterID, out.ShowTiming), -out.NumberOfTickets)
	return out, nil
}

func (m *memBookings) ListByUser(_ context.Context, userID uint64) ([]model.BookingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.BookingDetail{}
	for _, b := range m.byID {
		if b.UserID == userID {
			out = append(out, model.BookingDetail{Booking: *b})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingTime.After(out[j].BookingTime) })
	return out, nil
}

func (m *memBookings) get(id uint64) model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[id]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// mockTokenRepo is a testify mock for failure paths the in-memory store
// cannot produce.
type mockTokenRepo struct{ mock.Mock }

func (m *mockTokenRepo) Replace(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	return m.Called(ctx, userID, hash, exp).Error(0)
}

func (m *mockTokenRepo) FindByHash(ctx context.Context, hash string) (model.RefreshToken, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(model.RefreshToken), args.Error(1)
}

func (m *mockTokenRepo) DeleteByUser(ctx context.Context, userID uint64) error {
	return m.Called(ctx, userID).Error(0)
}

// catalogFixture is a fresh in-memory catalog with one movie, one theater
// and a screening at 18:00 and 21:00.
type catalogFixture struct {
	movies     *memMovies
	theaters   *memTheaters
	screenings *memScreenings
	bookings   *memBookings
	users      *memUsers
	events     *recordingPublisher
}

func newCatalogFixture(t *testing.T, capacity int) *catalogFixture {
	t.Helper()
	f := &catalogFixture{
		movies:   &memMovies{byID: map[uint64]model.Movie{}},
		theaters: &memTheaters{byID: map[uint64]model.Theater{}},
		users:    newMemUsers(),
		events:   &recordingPublisher{},
	}
	f.screenings = &memScreenings{theaters: f.theaters, showtimes: map[string]*model.Showtime{}}
	f.bookings = &memBookings{screenings: f.screenings, byID: map[uint64]*model.Booking{}, byRequest: map[string]uint64{}, clockStep: time.Second}

	ctx := context.Background()
	require.NoError(t, f.movies.Create(ctx, &model.Movie{Name: "Dune"}))
	require.NoError(t, f.theaters.Create(ctx, &model.Theater{Name: "Grand", Location: "Downtown", NumberOfScreens: 2}))
	require.NoError(t, f.screenings.Create(ctx, &model.Screening{
		MovieID: 1, TheaterID: 1, ScreenNumber: 1, ShowTimings: []string{"18:00", "21:00"}, Capacity: capacity,
	}))
	return f
}
