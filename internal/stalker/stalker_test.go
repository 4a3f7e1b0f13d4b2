package stalker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ejudge-client/internal/components/chrono"
	"ejudge-client/internal/components/telemetry"
	"ejudge-client/internal/scrapers/ejudge"

	"github.com/stretchr/testify/require"
)

type fakeJudge struct {
	mutex    sync.Mutex
	online   [][]ejudge.UserActivity
	polls    int
	profiles map[int]int
}

func (j *fakeJudge) OnlineUsers(ctx context.Context) ([]ejudge.UserActivity, error) {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	if j.polls >= len(j.online) {
		return nil, fmt.Errorf("no more polls")
	}
	users := j.online[j.polls]
	j.polls++
	return users, nil
}

func (j *fakeJudge) Account(ctx context.Context, id int) (ejudge.Account, error) {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	if id == 404 {
		return ejudge.Account{}, fmt.Errorf("not found")
	}
	j.profiles[id]++
	return ejudge.Account{ID: id, Username: fmt.Sprintf("user%d", id), Email: fmt.Sprintf("%d@example.com", id)}, nil
}

func (j *fakeJudge) profileLoads(id int) int {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	return j.profiles[id]
}

func user(id int, name, fullname string) ejudge.UserActivity {
	return ejudge.UserActivity{Account: ejudge.Account{ID: id, Username: name, Fullname: fullname}}
}

// manualCron runs its job only when tick is called.
type manualCron struct {
	mutex   sync.Mutex
	job     func()
	stopped bool
}

func (c *manualCron) Cron(spec string, callback func()) (func(), error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.job = callback
	return func() {
		c.mutex.Lock()
		c.stopped = true
		c.mutex.Unlock()
	}, nil
}

func (c *manualCron) tick() {
	c.mutex.Lock()
	job := c.job
	stopped := c.stopped
	c.mutex.Unlock()
	if job != nil && !stopped {
		job()
	}
}

func (c *manualCron) isStopped() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stopped
}

var fixedClock = chrono.FixedImpl{At: time.Date(2024, time.August, 1, 12, 0, 0, 0, time.UTC), Loc: time.UTC}

func TestPollDiff(t *testing.T) {
	judge := &fakeJudge{
		profiles: map[int]int{},
		online: [][]ejudge.UserActivity{
			{user(1, "alice", "Alice Wonder"), user(2, "bob", "Bob Builder")},
			{user(2, "bob", "Bob Builder"), user(3, "carol", "Carol Singer")},
		},
	}
	s, err := New(judge, &manualCron{}, fixedClock, Options{}, &telemetry.Recorder{})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	first, err := s.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, fixedClock.At, first.At)
	require.Len(t, first.Sightings, 2)
	require.True(t, first.Sightings[0].New)
	require.True(t, first.Sightings[1].New)
	require.Empty(t, first.Left)

	second, err := s.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, second.Sightings, 2)
	require.Equal(t, 2, second.Sightings[0].Account.ID)
	require.False(t, second.Sightings[0].New)
	require.Equal(t, 3, second.Sightings[1].Account.ID)
	require.True(t, second.Sightings[1].New)
	require.Len(t, second.Left, 1)
	require.Equal(t, "alice", second.Left[0].Username)

	rec := &telemetry.Recorder{}
	s.tel = rec
	_, err = s.Poll(ctx)
	require.Error(t, err)
	require.NotEmpty(t, rec.Find("warning", report_stalker_poll))
}

func TestPollWatchFilter(t *testing.T) {
	judge := &fakeJudge{
		profiles: map[int]int{},
		online: [][]ejudge.UserActivity{
			{user(1, "alice", "Alice Wonder"), user(2, "bob", "Bob Builder"), user(3, "carol", "Carol Singer")},
		},
	}
	s, err := New(judge, &manualCron{}, fixedClock, Options{Watch: []string{"ALICE", "Bob Build"}}, &telemetry.Recorder{})
	require.NoError(t, err)
	defer s.Close()

	snapshot, err := s.Poll(context.Background())
	require.NoError(t, err)
	ids := []int{}
	for _, sighting := range snapshot.Sightings {
		ids = append(ids, sighting.Account.ID)
	}
	require.Equal(t, []int{1, 2}, ids)
}

func TestPollProfilesAreCached(t *testing.T) {
	users := []ejudge.UserActivity{user(7, "dave", "Dave"), user(404, "ghost", "Ghost")}
	judge := &fakeJudge{
		profiles: map[int]int{},
		online:   [][]ejudge.UserActivity{users, users, users},
	}
	rec := &telemetry.Recorder{}
	s, err := New(judge, &manualCron{}, fixedClock, Options{FetchProfiles: true}, rec)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	snapshot, err := s.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, "7@example.com", snapshot.Sightings[0].Account.Email)
	require.Equal(t, "ghost", snapshot.Sightings[1].Account.Username)
	require.NotEmpty(t, rec.Find("warning", report_stalker_profile))

	_, err = s.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, judge.profileLoads(7))

	s.Forget(7)
	_, err = s.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, judge.profileLoads(7))
}

func TestStart(t *testing.T) {
	judge := &fakeJudge{
		profiles: map[int]int{},
		online: [][]ejudge.UserActivity{
			{user(1, "alice", "Alice")},
			{},
		},
	}
	cron := &manualCron{}
	s, err := New(judge, cron, fixedClock, Options{}, &telemetry.Recorder{})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var snapshots []Snapshot
	_, err = s.Start(ctx, func(snapshot Snapshot) {
		snapshots = append(snapshots, snapshot)
	})
	require.NoError(t, err)

	cron.tick()
	cron.tick()
	// failed polls are not reported
	cron.tick()

	require.Len(t, snapshots, 2)
	require.Len(t, snapshots[0].Sightings, 1)
	require.Empty(t, snapshots[1].Sightings)
	require.Len(t, snapshots[1].Left, 1)

	cancel()
	require.Eventually(t, cron.isStopped, time.Second, 10*time.Millisecond)
}

func TestStartWithStandardCron(t *testing.T) {
	judge := &fakeJudge{
		profiles: map[int]int{},
		online:   [][]ejudge.UserActivity{{user(1, "alice", "Alice")}},
	}
	cron := chrono.NewStandardCron(&telemetry.Recorder{}, time.UTC)
	defer cron.Stop()

	s, err := New(judge, cron, fixedClock, Options{Spec: "@every 1s"}, &telemetry.Recorder{})
	require.NoError(t, err)
	defer s.Close()

	got := make(chan Snapshot, 1)
	stop, err := s.Start(context.Background(), func(snapshot Snapshot) {
		select {
		case got <- snapshot:
		default:
		}
	})
	require.NoError(t, err)
	defer stop()

	select {
	case snapshot := <-got:
		require.Len(t, snapshot.Sightings, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("the scheduled poll never ran")
	}
}

func TestStartInvalidSpec(t *testing.T) {
	cron := chrono.NewStandardCron(&telemetry.Recorder{}, time.UTC)
	defer cron.Stop()

	s, err := New(&fakeJudge{}, cron, fixedClock, Options{Spec: "not a spec"}, &telemetry.Recorder{})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Start(context.Background(), func(Snapshot) {})
	require.Error(t, err)
}
