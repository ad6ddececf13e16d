package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

var (
	alice = domain.Identity{UserID: 1, Username: "alice", City: "Москва"}
	bob   = domain.Identity{UserID: 2, Username: "bob", City: "Казань"}
	carol = domain.Identity{UserID: 3, Username: "carol", City: domain.DefaultCity}
)

func ids(list []domain.Identity) []int64 {
	out := make([]int64, 0, len(list))
	for _, id := range list {
		out = append(out, id.UserID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isMember(tb *Table, roomID, userID int64) bool {
	for _, id := range tb.Members(roomID) {
		if id.UserID == userID {
			return true
		}
	}
	return false
}

func TestJoin_ReturnsPreInsertionSnapshot(t *testing.T) {
	tb := NewTable()

	if got, _ := tb.Join(10, "c-a", alice); len(got) != 0 {
		t.Fatalf("first joiner should see empty room, got %v", ids(got))
	}
	if got, _ := tb.Join(10, "c-b", bob); !equalIDs(ids(got), []int64{1}) {
		t.Fatalf("bob should see [alice], got %v", ids(got))
	}
	if got, _ := tb.Join(10, "c-c", carol); !equalIDs(ids(got), []int64{1, 2}) {
		t.Fatalf("carol should see [alice bob], got %v", ids(got))
	}
	if got := tb.Members(10); !equalIDs(ids(got), []int64{1, 2, 3}) {
		t.Fatalf("members = %v", ids(got))
	}
}

func TestJoinThen_RunsUnderLock(t *testing.T) {
	tb := NewTable()
	tb.Join(10, "c-a", alice)

	var seen []int64
	others, added := tb.JoinThen(10, "c-b", bob, func(others []domain.Identity) {
		seen = ids(others)
		// подписка уже видна, но таблица ещё занята: второй вход ждёт
		if tb.mu.TryLock() {
			tb.mu.Unlock()
			t.Error("then must run while the table is locked")
		}
	})
	if !added || !equalIDs(seen, []int64{1}) || !equalIDs(ids(others), seen) {
		t.Fatalf("seen=%v others=%v added=%v", seen, ids(others), added)
	}
}

func TestJoin_IdempotentRefreshesSnapshot(t *testing.T) {
	tb := NewTable()
	tb.Join(10, "c-a", alice)
	tb.Join(10, "c-b", bob)

	renamed := alice
	renamed.City = "Питер"
	got, added := tb.Join(10, "c-a", renamed)
	if added {
		t.Fatal("rejoin must not report a new member")
	}
	if !equalIDs(ids(got), []int64{2}) {
		t.Fatalf("rejoin must not list self, got %v", ids(got))
	}

	members := tb.Members(10)
	if !equalIDs(ids(members), []int64{1, 2}) {
		t.Fatalf("rejoin must keep join order, got %v", ids(members))
	}
	if members[0].City != "Питер" {
		t.Fatalf("snapshot not refreshed: %+v", members[0])
	}
}

func TestLeave_IsIdempotent(t *testing.T) {
	tb := NewTable()

	if _, ok := tb.Leave(10, "nobody"); ok {
		t.Fatal("leave without join must be a no-op")
	}

	tb.Join(10, "c-a", alice)
	d, ok := tb.Leave(10, "c-a")
	if !ok || !d.Gone || d.UserID != alice.UserID {
		t.Fatalf("unexpected departure %+v ok=%v", d, ok)
	}
	if _, ok := tb.Leave(10, "c-a"); ok {
		t.Fatal("double leave must be a no-op")
	}
	if len(tb.Members(10)) != 0 || len(tb.Rooms()) != 0 {
		t.Fatal("empty room must be dropped")
	}
}

func TestMultipleConnections_KeepMembershipUntilLast(t *testing.T) {
	tb := NewTable()
	tb.Join(10, "tab-1", alice)
	tb.Join(10, "tab-2", alice)

	d, _ := tb.Leave(10, "tab-1")
	if d.Gone {
		t.Fatal("alice still has tab-2 in the room")
	}
	if !isMember(tb, 10, alice.UserID) {
		t.Fatal("alice must stay a member")
	}

	deps := tb.PurgeConn("tab-2")
	if len(deps) != 1 || !deps[0].Gone {
		t.Fatalf("last connection gone, got %+v", deps)
	}
	if isMember(tb, 10, alice.UserID) {
		t.Fatal("ghost member after last connection left")
	}
}

func TestPurgeConn_RemovesFromEveryRoom(t *testing.T) {
	tb := NewTable()
	tb.Join(1, "c-a", alice)
	tb.Join(2, "c-a", alice)
	tb.Join(3, "c-a", alice)
	tb.Join(2, "c-b", bob)

	deps := tb.PurgeConn("c-a")
	if len(deps) != 3 {
		t.Fatalf("expected 3 departures, got %+v", deps)
	}
	for _, d := range deps {
		if !d.Gone || d.UserID != alice.UserID {
			t.Fatalf("unexpected departure %+v", d)
		}
	}
	if rooms := tb.RoomsOf(alice.UserID); len(rooms) != 0 {
		t.Fatalf("alice still in %v", rooms)
	}
	if got := tb.Members(2); !equalIDs(ids(got), []int64{2}) {
		t.Fatalf("room 2 members = %v", ids(got))
	}
	if deps := tb.PurgeConn("c-a"); deps != nil {
		t.Fatalf("second purge must be a no-op, got %+v", deps)
	}
}

func TestPurge_RemovesAllConnectionsOfUser(t *testing.T) {
	tb := NewTable()
	tb.Join(1, "tab-1", alice)
	tb.Join(1, "tab-2", alice)
	tb.Join(2, "tab-2", alice)

	deps := tb.Purge(alice.UserID)
	if len(deps) != 2 {
		t.Fatalf("expected 2 departures, got %+v", deps)
	}
	if len(tb.Subscribers(1)) != 0 || len(tb.Subscribers(2)) != 0 {
		t.Fatal("subscriptions left behind")
	}
	if _, ok := tb.Leave(1, "tab-1"); ok {
		t.Fatal("connection index left behind")
	}
}

func TestSubscribers(t *testing.T) {
	tb := NewTable()
	tb.Join(10, "tab-1", alice)
	tb.Join(10, "tab-2", alice)
	tb.Join(10, "c-b", bob)
	tb.Join(11, "c-c", carol)

	subs := tb.Subscribers(10)
	if len(subs) != 3 {
		t.Fatalf("subscribers = %v", subs)
	}
}

// Итоговое состояние должно совпадать с последним событием каждого пользователя.
func TestConcurrentJoinLeave_Consistent(t *testing.T) {
	tb := NewTable()
	const users = 50

	var wg sync.WaitGroup
	for i := 1; i <= users; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			id := domain.Identity{UserID: uid, Username: fmt.Sprintf("u%d", uid)}
			conn := fmt.Sprintf("c-%d", uid)
			for j := 0; j < 20; j++ {
				tb.Join(1, conn, id)
				tb.Join(2, conn, id)
				if j%2 == 0 {
					tb.Leave(1, conn)
				}
			}
			if uid%2 == 0 {
				tb.PurgeConn(conn)
			}
		}(int64(i))
	}
	wg.Wait()

	for i := int64(1); i <= users; i++ {
		in2 := isMember(tb, 2, i)
		if i%2 == 0 && in2 {
			t.Fatalf("user %d purged but still in room 2", i)
		}
		if i%2 == 1 && !in2 {
			t.Fatalf("user %d must be in room 2", i)
		}
	}
	if got := len(tb.Members(2)); got != users/2 {
		t.Fatalf("room 2 size = %d", got)
	}
}
