// Package stalker watches the judge's online users page on a schedule and
// reports who came online and who left between two polls.
package stalker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ejudge-client/internal/components/assert"
	"ejudge-client/internal/components/chrono"
	"ejudge-client/internal/components/telemetry"
	"ejudge-client/internal/scrapers/ejudge"
	"ejudge-client/pkg/textutil"

	"github.com/Yiling-J/theine-go"
)

const (
	report_stalker_poll    = "poll"
	report_stalker_profile = "profile"
	report_stalker_online  = "online"
)

// Judge is the part of *ejudge.Client the stalker needs.
type Judge interface {
	OnlineUsers(ctx context.Context) ([]ejudge.UserActivity, error)
	Account(ctx context.Context, id int) (ejudge.Account, error)
}

type Sighting struct {
	Activity ejudge.UserActivity
	// the full profile when FetchProfiles is set and the profile loaded,
	// otherwise the account from the online users row.
	Account ejudge.Account
	// New is true when the user was not online in the previous poll.
	New bool
}

type Snapshot struct {
	At        time.Time
	Sightings []Sighting
	Left      []ejudge.Account
}

type Options struct {
	// cron spec of the poll, "@every 5s" when empty.
	Spec string
	// only users whose username or full name contains one of these
	// (normalized) are reported, everyone when empty.
	Watch         []string
	FetchProfiles bool
	ProfileTTL    time.Duration
	CacheSize     int64
}

type Stalker struct {
	judge    Judge
	cron     chrono.CronAPI
	clock    chrono.API
	spec     string
	watch    []string
	profiles *theine.LoadingCache[int, ejudge.Account]
	fetch    bool
	tel      telemetry.API

	mutex    sync.Mutex
	previous map[int]ejudge.Account
}

func New(judge Judge, cron chrono.CronAPI, clock chrono.API, opts Options, tel telemetry.API) (*Stalker, error) {
	assert.NotNil(judge, "judge")
	assert.NotNil(cron, "cron")
	assert.NotNil(clock, "clock")
	assert.NotNil(tel, "tel")

	tel = telemetry.NewScopedAPI("stalker", tel)

	if opts.Spec == "" {
		opts.Spec = "@every 5s"
	}
	if opts.ProfileTTL == 0 {
		opts.ProfileTTL = 10 * time.Minute
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = 500
	}

	watch := make([]string, len(opts.Watch))
	for i, w := range opts.Watch {
		watch[i] = textutil.NormalizeName(w)
	}

	profiles, err := theine.NewBuilder[int, ejudge.Account](opts.CacheSize).BuildWithLoader(func(ctx context.Context, id int) (theine.Loaded[ejudge.Account], error) {
		account, err := judge.Account(ctx, id)
		if err != nil {
			return theine.Loaded[ejudge.Account]{}, err
		}
		return theine.Loaded[ejudge.Account]{
			Value: account,
			Cost:  1,
			TTL:   opts.ProfileTTL,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not build profile cache: %w", err)
	}

	return &Stalker{
		judge:    judge,
		cron:     cron,
		clock:    clock,
		spec:     opts.Spec,
		watch:    watch,
		profiles: profiles,
		fetch:    opts.FetchProfiles,
		tel:      tel,
	}, nil
}

func (s *Stalker) watched(activity ejudge.UserActivity) bool {
	if len(s.watch) == 0 {
		return true
	}
	return textutil.MatchName(activity.Account.Username, s.watch) ||
		textutil.MatchName(activity.Account.Fullname, s.watch)
}

// Poll reads the online users once and diffs them against the previous
// poll. The first poll reports everyone as new.
func (s *Stalker) Poll(ctx context.Context) (Snapshot, error) {
	users, err := s.judge.OnlineUsers(ctx)
	if err != nil {
		s.tel.ReportWarning(report_stalker_poll, err)
		return Snapshot{}, err
	}

	s.mutex.Lock()
	previous := s.previous
	s.mutex.Unlock()

	snapshot := Snapshot{At: s.clock.Now()}
	current := map[int]ejudge.Account{}
	for _, activity := range users {
		if !s.watched(activity) {
			continue
		}
		account := activity.Account
		if s.fetch {
			profile, err := s.profiles.Get(ctx, account.ID)
			if err != nil {
				s.tel.ReportWarning(report_stalker_profile, err, account.ID)
			} else {
				account = profile
			}
		}

		_, seen := previous[account.ID]
		current[account.ID] = account
		snapshot.Sightings = append(snapshot.Sightings, Sighting{
			Activity: activity,
			Account:  account,
			New:      !seen,
		})
	}

	for id, account := range previous {
		if _, ok := current[id]; !ok {
			snapshot.Left = append(snapshot.Left, account)
		}
	}
	sort.Slice(snapshot.Left, func(i, j int) bool {
		return snapshot.Left[i].ID < snapshot.Left[j].ID
	})

	s.mutex.Lock()
	s.previous = current
	s.mutex.Unlock()

	s.tel.ReportCount(report_stalker_online, int64(len(snapshot.Sightings)))
	return snapshot, nil
}

// Start polls on the configured schedule and hands every successful
// snapshot to `callback`. Polls stop when ctx is done or stop is called.
func (s *Stalker) Start(ctx context.Context, callback func(Snapshot)) (stop func(), err error) {
	stopCron, err := s.cron.Cron(s.spec, func() {
		if ctx.Err() != nil {
			return
		}
		snapshot, err := s.Poll(ctx)
		if err != nil {
			return
		}
		callback(snapshot)
	})
	if err != nil {
		return nil, fmt.Errorf("stalker: schedule %q: %w", s.spec, err)
	}

	done := make(chan struct{})
	var once sync.Once
	stop = func() {
		once.Do(func() {
			close(done)
			stopCron()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	return stop, nil
}

// Forget drops a cached profile so the next poll fetches it again.
func (s *Stalker) Forget(id int) {
	s.profiles.Delete(id)
}

func (s *Stalker) Close() {
	s.profiles.Close()
}
