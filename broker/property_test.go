package broker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func genPayload() *rapid.Generator[[]byte] {
	return rapid.Custom(func(t *rapid.T) []byte {
		n := rapid.IntRange(0, 1000).Draw(t, "n")
		return []byte(fmt.Sprintf(`{"seq":%d}`, n))
	})
}

// P1: per-mailbox FIFO ordering, both directions.
func TestProperty_MailboxFIFO(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewStore(WithPollInterval(time.Millisecond))
		ctx := context.Background()
		payloads := rapid.SliceOfN(genPayload(), 1, 30).Draw(rt, "payloads")

		require.NoError(rt, s.Join("p1"))
		_, err := s.AggregatorReceive(ctx, 0)
		require.NoError(rt, err)

		for _, p := range payloads {
			s.AggregatorSend(p)
			require.NoError(rt, s.ParticipantSend("p1", p))
		}
		for i, p := range payloads {
			down, err := s.ParticipantReceive(ctx, "p1", 0)
			require.NoError(rt, err)
			up, err := s.AggregatorReceive(ctx, 0)
			require.NoError(rt, err)
			if string(down.Payload) != string(p) || string(up.Payload) != string(p) {
				rt.Fatalf("index %d: want %s, got down=%s up=%s", i, p, down.Payload, up.Payload)
			}
		}
	})
}

// P2: a payload queued for one participant is never observed by another.
func TestProperty_MailboxIsolation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewStore()
		ctx := context.Background()

		require.NoError(rt, s.Join("a"))
		_, err := s.AggregatorReceive(ctx, 0)
		require.NoError(rt, err)

		n := rapid.IntRange(1, 20).Draw(rt, "n")
		for i := 0; i < n; i++ {
			s.AggregatorSend([]byte(fmt.Sprintf("%d", i)))
		}

		// b joins only after the broadcasts, so its mailbox must stay empty.
		require.NoError(rt, s.Join("b"))
		_, err = s.AggregatorReceive(ctx, 0)
		require.NoError(rt, err)

		for i := 0; i < n; i++ {
			_, err := s.ParticipantReceive(ctx, "a", 0)
			require.NoError(rt, err)
		}
		_, err = s.ParticipantReceive(ctx, "b", 0)
		if !IsTimeout(err) {
			rt.Fatalf("b observed a message meant for a: %v", err)
		}
	})
}

// P4: broadcasts reach exactly the participants confirmed at broadcast time.
func TestProperty_SnapshotBroadcast(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewStore()
		ctx := context.Background()
		early := rapid.IntRange(0, 5).Draw(rt, "early")
		late := rapid.IntRange(1, 5).Draw(rt, "late")

		join := func(prefix string, count int) []string {
			ids := make([]string, count)
			for i := range ids {
				ids[i] = fmt.Sprintf("%s-%d", prefix, i)
				require.NoError(rt, s.Join(ids[i]))
				_, err := s.AggregatorReceive(ctx, 0)
				require.NoError(rt, err)
			}
			return ids
		}

		before := join("early", early)
		s.AggregatorSend([]byte(`"round"`))
		after := join("late", late)

		for _, id := range before {
			env, err := s.ParticipantReceive(ctx, id, 0)
			require.NoError(rt, err)
			require.Equal(rt, `"round"`, string(env.Payload))
		}
		for _, id := range after {
			_, err := s.ParticipantReceive(ctx, id, 0)
			if !IsTimeout(err) {
				rt.Fatalf("%s received a broadcast sent before it joined", id)
			}
		}
	})
}

// P3: a second join before the first is drained always fails.
func TestProperty_DuplicateJoin(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("second join before drain is rejected", prop.ForAll(
		func(id string, drain bool) bool {
			s := NewStore()
			if err := s.Join(id); err != nil {
				return false
			}
			if drain {
				if _, err := s.AggregatorReceive(context.Background(), 0); err != nil {
					return false
				}
			}
			return errors.Is(s.Join(id), ErrDuplicateJoin)
		},
		gen.Identifier(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

type storeView struct {
	stats        Stats
	tasks        int
	participants int
	hasTask      bool
}

func viewOf(s *Store) storeView {
	_, ok := s.TaskInfo()
	return storeView{
		stats:        s.Stats(),
		tasks:        len(s.ListTasks()),
		participants: len(s.Participants()),
		hasTask:      ok,
	}
}

// P6: reset twice is indistinguishable from reset once.
func TestProperty_ResetIdempotence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("reset is idempotent", prop.ForAll(
		func(joins int, sends int, name string) bool {
			populate := func(s *Store) {
				_, _ = s.CreateTask(name, []byte(`{}`))
				for i := 0; i < joins; i++ {
					_ = s.Join(fmt.Sprintf("p%d", i))
				}
				_, _ = s.AggregatorReceive(context.Background(), 0)
				for i := 0; i < sends; i++ {
					s.AggregatorSend([]byte(`1`))
				}
			}

			once := NewStore()
			populate(once)
			once.Reset()

			twice := NewStore()
			populate(twice)
			twice.Reset()
			twice.Reset()

			return viewOf(once) == viewOf(twice) && viewOf(once) == viewOf(NewStore())
		},
		gen.IntRange(0, 10),
		gen.IntRange(0, 10),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

// P5: a receive with nothing available fails within its timeout plus slack.
func TestProperty_TimeoutBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewStore(WithPollInterval(time.Duration(rapid.IntRange(1, 20).Draw(rt, "poll")) * time.Millisecond))
		timeout := time.Duration(rapid.IntRange(0, 25).Draw(rt, "timeout")) * time.Millisecond

		start := time.Now()
		_, err := s.AggregatorReceive(context.Background(), timeout)
		elapsed := time.Since(start)

		if !IsTimeout(err) {
			rt.Fatalf("expected timeout, got %v", err)
		}
		if elapsed > timeout+250*time.Millisecond {
			rt.Fatalf("receive took %v for timeout %v", elapsed, timeout)
		}
	})
}
