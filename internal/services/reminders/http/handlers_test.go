package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"pursue/internal/modkit/repokit"
	pnet "pursue/internal/platform/net"
	phttp "pursue/internal/platform/net/http"
	"pursue/internal/platform/store"
	groupsdomain "pursue/internal/services/groups/domain"
	"pursue/internal/services/reminders/domain"
	svc "pursue/internal/services/reminders/service"
)

// fakeTxRunner runs fn against nothing; the fake storage never touches q
type fakeTxRunner struct{}

func (fakeTxRunner) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error { return fn(nil) }
func (fakeTxRunner) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	var zero store.CommandTag
	return zero, nil
}
func (fakeTxRunner) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return nil, nil
}
func (fakeTxRunner) QueryRow(ctx context.Context, sql string, args ...any) store.Row { return nil }

// fakeStorage records the ids the upsert path sees
type fakeStorage struct {
	gotGoalID string
	gotUserID string
}

func (f *fakeStorage) PreferencesForUser(ctx context.Context, userID string) ([]domain.Preference, error) {
	return []domain.Preference{}, nil
}

func (f *fakeStorage) UpsertPreference(ctx context.Context, userID, goalID string, p domain.Preference) (domain.Preference, error) {
	f.gotUserID = userID
	f.gotGoalID = goalID
	return p, nil
}

func (f *fakeStorage) GoalGroup(ctx context.Context, goalID string) (string, bool, error) {
	return "g-1", true, nil
}

func (f *fakeStorage) HourSamples(ctx context.Context, since time.Time) ([]domain.HourSample, error) {
	return nil, nil
}

func (f *fakeStorage) UpsertPattern(ctx context.Context, p domain.Pattern, calculatedAt time.Time) error {
	return nil
}

func (f *fakeStorage) DeletePatternsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (f *fakeStorage) Candidates(ctx context.Context) ([]domain.Candidate, error) { return nil, nil }

func (f *fakeStorage) EntryExists(ctx context.Context, goalID, userID string, periodStart time.Time) (bool, error) {
	return false, nil
}

func (f *fakeStorage) InsertReminderLog(ctx context.Context, userID, goalID, dedupeKey string, periodStart, sentAt time.Time) (bool, error) {
	return true, nil
}

func (f *fakeStorage) EvaluateEffectiveness(ctx context.Context, since, now time.Time, window time.Duration) (int, int, error) {
	return 0, 0, nil
}

// fakeGuards admits everyone
type fakeGuards struct{}

func (fakeGuards) ActiveMember(ctx context.Context, userID, groupID string) (groupsdomain.Membership, error) {
	return groupsdomain.Membership{UserID: userID, GroupID: groupID}, nil
}

// mount builds the preference routes over fakes with a fixed caller
func mount(t *testing.T, st *fakeStorage) stdhttp.Handler {
	t.Helper()
	s := svc.New(
		fakeTxRunner{},
		repokit.BindFunc[domain.Storage](func(repokit.Queryer) domain.Storage { return st }),
		svc.Config{Guards: fakeGuards{}},
	)
	m := chi.NewRouter()
	m.Use(func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			next.ServeHTTP(w, r.WithContext(pnet.WithUser(r.Context(), "u-1")))
		})
	})
	RegisterPreferences(phttp.AdaptChi(m), s)
	return m
}

func TestSetPreference_RoutesGoalID(t *testing.T) {
	t.Parallel()

	st := &fakeStorage{}
	h := mount(t, st)

	const goalID = "7b0e8b3a-4a67-4f2d-9a5e-2f6c1d9b8e01"
	req := httptest.NewRequest(stdhttp.MethodPut, "/"+goalID,
		strings.NewReader(`{"enabled":true,"mode":"smart"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if st.gotGoalID != goalID {
		t.Fatalf("stored goal id = %q, want %q", st.gotGoalID, goalID)
	}
	if st.gotUserID != "u-1" {
		t.Fatalf("stored user id = %q", st.gotUserID)
	}
}

func TestSetPreference_MalformedGoalID(t *testing.T) {
	t.Parallel()

	st := &fakeStorage{}
	h := mount(t, st)

	req := httptest.NewRequest(stdhttp.MethodPut, "/not-a-uuid",
		strings.NewReader(`{"enabled":true}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != stdhttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if st.gotGoalID != "" {
		t.Fatalf("upsert reached storage with %q", st.gotGoalID)
	}
}
