package panel

import "testing"

func TestPanelsAreMutuallyExclusive(t *testing.T) {
	store := NewStore()

	store.OpenMessage("msg_1")
	if state := store.State(); state.ParentMessageID != "msg_1" || state.ProfileMemberID != "" {
		t.Fatalf("after OpenMessage: %+v", state)
	}

	store.OpenProfile("mem_1")
	state := store.State()
	if state.ProfileMemberID != "mem_1" {
		t.Fatalf("profile not open: %+v", state)
	}
	if state.ParentMessageID != "" {
		t.Fatalf("thread panel still open: %+v", state)
	}

	store.OpenMessage("msg_2")
	state = store.State()
	if state.ParentMessageID != "msg_2" || state.ProfileMemberID != "" {
		t.Fatalf("after reopening thread: %+v", state)
	}

	store.Close()
	if state := store.State(); state.ParentMessageID != "" || state.ProfileMemberID != "" {
		t.Fatalf("after Close: %+v", state)
	}
}

func TestEditingSurvivesPanelChanges(t *testing.T) {
	store := NewStore()

	store.SetEditing("msg_9")
	store.OpenProfile("mem_1")
	store.Close()
	if state := store.State(); state.EditingMessageID != "msg_9" {
		t.Fatalf("editing id lost: %+v", state)
	}

	store.ClearEditing()
	if state := store.State(); state.EditingMessageID != "" {
		t.Fatalf("editing id not cleared: %+v", state)
	}
}

func TestSubscribe(t *testing.T) {
	store := NewStore()

	var seen []State
	unsubscribe := store.Subscribe(func(state State) {
		seen = append(seen, state)
	})

	store.OpenMessage("msg_1")
	store.SetEditing("msg_1")
	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if seen[0].ParentMessageID != "msg_1" {
		t.Fatalf("first notification %+v", seen[0])
	}
	if seen[1].EditingMessageID != "msg_1" {
		t.Fatalf("second notification %+v", seen[1])
	}

	unsubscribe()
	store.Close()
	if len(seen) != 2 {
		t.Fatalf("listener notified after unsubscribe: %d", len(seen))
	}
}
