package authstate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spec-kit/farmer-dashboard/internal/domain"
)

type fakeChecker struct {
	calls    atomic.Int32
	release  chan struct{}
	identity domain.Identity
	err      error
}

func (f *fakeChecker) CurrentIdentity(ctx context.Context) (domain.Identity, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.identity, f.err
}

var farmer = domain.Identity{UserID: "u-1", Role: domain.RoleFarmer}

func TestInitialState(t *testing.T) {
	s := NewStore(&fakeChecker{}, nil)
	st := s.State()
	if st.User != nil || st.Loading {
		t.Fatalf("initial state = %+v", st)
	}
}

func TestBootstrapSuccess(t *testing.T) {
	checker := &fakeChecker{identity: farmer}
	s := NewStore(checker, nil)

	st := s.Bootstrap(context.Background())
	if st.Loading {
		t.Fatal("loading after bootstrap")
	}
	if st.User == nil || *st.User != farmer {
		t.Fatalf("user = %+v", st.User)
	}
}

func TestBootstrapFailureIsLoggedOut(t *testing.T) {
	for _, checker := range []*fakeChecker{
		{err: errors.New("status 401")},
		{err: context.DeadlineExceeded},
		{identity: domain.Identity{UserID: "u-1", Role: "superuser"}},
	} {
		s := NewStore(checker, nil)
		st := s.Bootstrap(context.Background())
		if st.User != nil || st.Loading {
			t.Fatalf("state = %+v for checker %+v", st, checker)
		}
	}
}

func TestLoadingWhileInFlight(t *testing.T) {
	checker := &fakeChecker{identity: farmer, release: make(chan struct{})}
	s := NewStore(checker, nil)

	done := s.Start(context.Background())
	if st := s.State(); !st.Loading || st.User != nil {
		t.Fatalf("in-flight state = %+v", st)
	}

	close(checker.release)
	<-done
	if st := s.State(); st.Loading || st.User == nil {
		t.Fatalf("settled state = %+v", st)
	}
}

func TestSingleBootstrapPerStore(t *testing.T) {
	checker := &fakeChecker{identity: farmer, release: make(chan struct{})}
	s := NewStore(checker, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Bootstrap(context.Background())
		}()
	}
	time.Sleep(10 * time.Millisecond)
	close(checker.release)
	wg.Wait()

	s.Bootstrap(context.Background())
	if n := checker.calls.Load(); n != 1 {
		t.Fatalf("identity checked %d times, want 1", n)
	}
}

func TestLoginLogout(t *testing.T) {
	s := NewStore(&fakeChecker{err: errors.New("401")}, nil)
	s.Bootstrap(context.Background())

	admin := domain.Identity{UserID: "a-1", Role: domain.RoleAdmin}
	s.Login(admin)
	if st := s.State(); st.User == nil || *st.User != admin || st.Loading {
		t.Fatalf("after login = %+v", st)
	}

	s.Logout()
	if st := s.State(); st.User != nil {
		t.Fatalf("after logout = %+v", st)
	}

	s.Login(domain.Identity{UserID: "x", Role: "root"})
	if st := s.State(); st.User != nil {
		t.Fatalf("unknown role accepted: %+v", st)
	}
}

func TestExplicitLogoutBeatsInFlightBootstrap(t *testing.T) {
	checker := &fakeChecker{identity: farmer, release: make(chan struct{})}
	s := NewStore(checker, nil)

	done := s.Start(context.Background())
	s.Logout()
	close(checker.release)
	<-done

	st := s.State()
	if st.User != nil {
		t.Fatalf("bootstrap result overwrote logout: %+v", st)
	}
	if st.Loading {
		t.Fatal("loading must clear when bootstrap finishes")
	}
}

func TestStateIsACopy(t *testing.T) {
	s := NewStore(&fakeChecker{identity: farmer}, nil)
	st := s.Bootstrap(context.Background())
	st.User.Role = domain.RoleAdmin

	if s.State().User.Role != domain.RoleFarmer {
		t.Fatal("caller mutated store state")
	}
}
