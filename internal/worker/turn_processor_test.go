package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/manor-engine/internal/services"
	"github.com/jwebster45206/manor-engine/internal/services/status"
	"github.com/jwebster45206/manor-engine/pkg/chat"
	"github.com/jwebster45206/manor-engine/pkg/state"
	"github.com/jwebster45206/manor-engine/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordingPublisher keeps every event it is asked to publish.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	rooms  []string
}

func (r *recordingPublisher) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) PublishTurnQueued(context.Context, uuid.UUID, string) error {
	r.add("queued")
	return nil
}

func (r *recordingPublisher) PublishTurnProcessing(context.Context, uuid.UUID, string, string) error {
	r.add("processing")
	return nil
}

func (r *recordingPublisher) PublishTurnCompleted(context.Context, uuid.UUID, string, int, string) error {
	r.add("completed")
	return nil
}

func (r *recordingPublisher) PublishTurnFailed(context.Context, uuid.UUID, string, string) error {
	r.add("failed")
	return nil
}

func (r *recordingPublisher) PublishRoomGenerated(_ context.Context, _ uuid.UUID, room string) error {
	r.add("room")
	r.mu.Lock()
	r.rooms = append(r.rooms, room)
	r.mu.Unlock()
	return nil
}

func (r *recordingPublisher) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fixture struct {
	processor *TurnProcessor
	storage   *storage.MockStorage
	llm       *services.MockLLMAPI
	status    *status.MemoryLog
	publisher *recordingPublisher
	game      *state.Game
}

// newFixture stores a Foyer with a Note on the table, a Kitchen holding a
// Kettle, and a frontier Library beyond the Foyer.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	g, err := state.NewGame("Shifting Manor", state.GameState{
		Setting: "A manor whose rooms rearrange themselves.",
		Player:  state.Player{Name: "Corvin", Description: "A cartographer."},
		Rooms: []state.Room{
			{Name: "Foyer", Description: "A dusty entrance hall."},
			{Name: "Kitchen", Description: "Copper pots hang from hooks."},
		},
		Items: []state.Item{
			{Name: "Note", Description: "A folded note."},
			{Name: "Kettle", Description: "A dented kettle."},
		},
		PlayerLocation: state.PlayerLocation{Room: "Foyer", Description: "Just inside the door."},
		ItemLocations: []state.ItemLocation{
			state.InRoom("Note", "Foyer", "On the oak table."),
			state.InRoom("Kettle", "Kitchen", "On the stove."),
		},
		RoomConnections: []state.RoomConnection{
			{Room1: "Foyer", Room2: "Kitchen", Description: "A swinging door."},
			{Room1: "Foyer", Room2: "Library", Description: "A pair of tall doors."},
		},
	})
	require.NoError(t, err)

	store := storage.NewMockStorage()
	require.NoError(t, store.SaveGame(context.Background(), g))

	f := &fixture{
		storage:   store,
		llm:       services.NewMockLLMAPI(),
		status:    status.NewMemoryLog(testLogger()),
		publisher: &recordingPublisher{},
		game:      g,
	}
	f.processor = NewTurnProcessor(f.storage, f.llm, f.status, f.publisher, testLogger())
	return f
}

func (f *fixture) load(t *testing.T) *state.Game {
	t.Helper()
	g, err := f.storage.LoadGame(context.Background(), f.game.Metadata.ID)
	require.NoError(t, err)
	require.NotNil(t, g)
	return g
}

func (f *fixture) statusLevels(t *testing.T) []status.Level {
	t.Helper()
	msgs, err := f.status.List(context.Background(), f.game.Metadata.ID, 0)
	require.NoError(t, err)
	levels := make([]status.Level, len(msgs))
	for i, m := range msgs {
		levels[i] = m.Level
	}
	return levels
}

const (
	takeNote    = `{"actions":[{"type":"PlayerTakeItem","item":"Note","descriptionOfItemInInventory":"In a coat pocket.","description":"Corvin takes the note."}]}`
	moveLibrary = `{"actions":[{"type":"PlayerMove","room":"Library","descriptionOfPlayerInRoom":"Beside a reading desk.","description":"Corvin pushes through the doors."}]}`
	libraryRoom = `{"roomDescription":"Shelves climb into darkness.","connections":[{"otherRoom":"Reading Nook","description":"A curtained alcove."},{"otherRoom":"Foyer","description":"Ignored duplicate."}]}`
	libraryItem = `{"items":[{"itemName":"Old Map","itemDescription":"A map of rooms that no longer exist.","itemLocationDescription":"Pinned to a shelf."}]}`
)

func TestProcessTurn_Command(t *testing.T) {
	tests := []struct {
		name     string
		prompt   string
		contains string
	}{
		{"look", "look", "Foyer"},
		{"short look", " L ", "Foyer"},
		{"inventory", "inventory", "inventory"},
		{"short inventory", "i", "inventory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			saves := f.storage.SaveCount()

			res, err := f.processor.ProcessTurn(context.Background(), f.game.Metadata.ID, tt.prompt)
			require.NoError(t, err)
			assert.True(t, res.Command)
			assert.Contains(t, res.Message, tt.contains)
			assert.Equal(t, 0, res.Turn)

			chatCalls, jsonCalls := f.llm.GetCalls()
			assert.Empty(t, chatCalls)
			assert.Empty(t, jsonCalls)
			assert.Equal(t, saves, f.storage.SaveCount())
		})
	}
}

func TestProcessTurn_EmptyPromptAndMissingGame(t *testing.T) {
	f := newFixture(t)

	_, err := f.processor.ProcessTurn(context.Background(), f.game.Metadata.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = f.processor.ProcessTurn(context.Background(), uuid.New(), "look")
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestProcessTurn_TakeItem(t *testing.T) {
	f := newFixture(t)
	f.llm.SetChatResponses("Corvin picks up the note from the table.", "Corvin slips the note into his coat.")
	f.llm.SetChatJSONResponses(takeNote)

	res, err := f.processor.ProcessTurn(context.Background(), f.game.Metadata.ID, "grab the note")
	require.NoError(t, err)
	assert.False(t, res.Command)
	assert.Equal(t, "Corvin slips the note into his coat.", res.Message)
	assert.Equal(t, "Corvin picks up the note from the table.", res.Plan)
	assert.Equal(t, 1, res.Turn)
	assert.Empty(t, res.NewRoom)

	g := f.load(t)
	loc, err := g.State.GetItemLocation("Note")
	require.NoError(t, err)
	assert.Equal(t, state.ItemLocationInventory, loc.Type)
	assert.Equal(t, "In a coat pocket.", loc.Description)
	require.Len(t, g.Turns, 1)
	assert.Equal(t, "grab the note", g.Turns[0].Prompt)
	assert.Equal(t, "Corvin slips the note into his coat.", g.Turns[0].Description)
	assert.NoError(t, g.Validate())

	// The actions call is constrained by the legal value sets.
	_, jsonCalls := f.llm.GetCalls()
	require.Len(t, jsonCalls, 1)
	require.NotNil(t, jsonCalls[0].Schema)
	item := jsonCalls[0].Schema.Properties["actions"].Items.Properties["item"]
	require.NotNil(t, item)
	assert.Contains(t, item.Enum, "Note")

	assert.Equal(t, []status.Level{status.LevelInfo}, f.statusLevels(t))
}

func TestProcessTurn_MoveIntoFrontierRoom(t *testing.T) {
	f := newFixture(t)
	f.llm.SetChatResponses("Corvin opens the tall doors.", "The doors give way to a silent library.")
	f.llm.SetChatJSONResponses(moveLibrary, libraryRoom, libraryItem)

	res, err := f.processor.ProcessTurn(context.Background(), f.game.Metadata.ID, "go through the tall doors")
	require.NoError(t, err)
	assert.Equal(t, "Library", res.NewRoom)

	g := f.load(t)
	assert.Equal(t, "Library", g.State.PlayerLocation.Room)
	room, err := g.State.GetRoom("Library")
	require.NoError(t, err)
	assert.Equal(t, "Shelves climb into darkness.", room.Description)

	assert.True(t, g.State.AreConnected("Library", "Reading Nook"))
	assert.True(t, g.State.AreConnected("Foyer", "Library"))
	// The duplicate Foyer connection is skipped; the original description wins.
	var pairs int
	for _, c := range g.State.RoomConnections {
		if c.Touches("Foyer") && c.Touches("Library") {
			pairs++
			assert.Equal(t, "A pair of tall doors.", c.Description)
		}
	}
	assert.Equal(t, 1, pairs)

	loc, err := g.State.GetItemLocation("Old Map")
	require.NoError(t, err)
	assert.Equal(t, "Library", loc.Room)
	assert.NoError(t, g.Validate())

	_, jsonCalls := f.llm.GetCalls()
	assert.Len(t, jsonCalls, 3)
	assert.Contains(t, f.publisher.Events(), "room")
	assert.Equal(t, []string{"Library"}, f.publisher.rooms)
}

func TestProcessTurn_MoveToUnconnectedRoom(t *testing.T) {
	f := newFixture(t)
	f.llm.SetChatResponses("Corvin looks for a way up.")
	f.llm.SetChatJSONResponses(
		`{"actions":[{"type":"PlayerMove","room":"Attic","descriptionOfPlayerInRoom":"Under the rafters.","description":"Corvin climbs."}]}`,
		`{"roomDescription":"Dust and rafters.","connections":[{"otherRoom":"Foyer","description":"A ladder."}]}`,
	)

	_, err := f.processor.ProcessTurn(context.Background(), f.game.Metadata.ID, "climb into the attic")
	require.Error(t, err)
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	require.Len(t, rejected.Faults, 1)
	assert.ErrorIs(t, rejected.Faults[0], state.ErrIllegalMove)

	// The room is never generated.
	_, jsonCalls := f.llm.GetCalls()
	assert.Len(t, jsonCalls, 1)
	assert.Empty(t, f.publisher.rooms)

	g := f.load(t)
	assert.Equal(t, "Foyer", g.State.PlayerLocation.Room)
	assert.False(t, g.State.AreConnected("Foyer", "Attic"))
	assert.Equal(t, f.game.State, g.State)
	assert.Empty(t, g.Turns)
}

func TestProcessTurn_RejectedRollsBack(t *testing.T) {
	tests := []struct {
		name       string
		jsonReplys []string
		wantFaults int
	}{
		{
			name:       "unknown item after valid take",
			jsonReplys: []string{`{"actions":[{"type":"PlayerTakeItem","item":"Note","descriptionOfItemInInventory":"Pocket.","description":"Takes it."},{"type":"PlayerTakeItem","item":"Candle","descriptionOfItemInInventory":"Hand.","description":"Takes it."}]}`},
			wantFaults: 1,
		},
		{
			name:       "item in another room",
			jsonReplys: []string{`{"actions":[{"type":"PlayerTakeItem","item":"Kettle","descriptionOfItemInInventory":"Hand.","description":"Takes it."}]}`},
			wantFaults: 1,
		},
		{
			name:       "every fault is collected",
			jsonReplys: []string{`{"actions":[{"type":"PlayerDropItem","item":"Note","descriptionOfItemInRoom":"Floor.","description":"Drops it."},{"type":"PlayerMove","room":"Foyer","descriptionOfPlayerInRoom":"Here.","description":"Stays."}]}`},
			wantFaults: 2,
		},
		{
			name:       "generated room does not survive",
			jsonReplys: []string{`{"actions":[{"type":"PlayerMove","room":"Library","descriptionOfPlayerInRoom":"Desk.","description":"Goes."},{"type":"PlayerTakeItem","item":"Candle","descriptionOfItemInInventory":"Hand.","description":"Takes it."}]}`, libraryRoom, libraryItem},
			wantFaults: 1,
		},
		{
			name:       "generated item collides with an existing one",
			jsonReplys: []string{moveLibrary, libraryRoom, `{"items":[{"itemName":"Kettle","itemDescription":"Another kettle.","itemLocationDescription":"On a shelf."}]}`},
			wantFaults: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.llm.SetChatResponses("A plan.")
			f.llm.SetChatJSONResponses(tt.jsonReplys...)
			saves := f.storage.SaveCount()

			_, err := f.processor.ProcessTurn(context.Background(), f.game.Metadata.ID, "do it")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTurnRejected)
			var rejected *RejectedError
			require.True(t, errors.As(err, &rejected))
			assert.Len(t, rejected.Faults, tt.wantFaults)
			for _, fault := range rejected.Faults {
				assert.True(t, state.IsGameFault(fault))
			}

			assert.Equal(t, saves, f.storage.SaveCount())
			g := f.load(t)
			assert.Equal(t, f.game.State, g.State)
			assert.Empty(t, g.Turns)

			// No narration once the turn is rejected.
			chatCalls, _ := f.llm.GetCalls()
			assert.Len(t, chatCalls, 1)

			levels := f.statusLevels(t)
			assert.Len(t, levels, tt.wantFaults)
			for _, l := range levels {
				assert.Equal(t, status.LevelError, l)
			}
		})
	}
}

func TestProcessTurn_ExternalFault(t *testing.T) {
	boom := errors.New("connection reset")
	tests := []struct {
		name      string
		setup     func(m *services.MockLLMAPI)
		wantStage string
	}{
		{
			name:      "plan transport error",
			setup:     func(m *services.MockLLMAPI) { m.SetChatError(boom) },
			wantStage: StagePlan,
		},
		{
			name:      "empty plan",
			setup:     func(m *services.MockLLMAPI) { m.SetChatResponses("   ") },
			wantStage: StagePlan,
		},
		{
			name: "unparseable actions",
			setup: func(m *services.MockLLMAPI) {
				m.SetChatResponses("A plan.")
				m.SetChatJSONResponses("I would rather not.")
			},
			wantStage: StageActions,
		},
		{
			name: "room generation fails",
			setup: func(m *services.MockLLMAPI) {
				m.SetChatResponses("A plan.")
				m.SetChatJSONResponses(moveLibrary, `{"roomDescription":""}`)
			},
			wantStage: StageRoom,
		},
		{
			name: "item generation fails",
			setup: func(m *services.MockLLMAPI) {
				m.SetChatResponses("A plan.")
				m.SetChatJSONResponses(moveLibrary, libraryRoom, "{")
			},
			wantStage: StageItems,
		},
		{
			name: "narration fails",
			setup: func(m *services.MockLLMAPI) {
				calls := 0
				m.ChatFunc = func(ctx context.Context, msgs []chat.ChatMessage) (*chat.ChatResponse, error) {
					calls++
					if calls == 1 {
						return &chat.ChatResponse{Message: "A plan."}, nil
					}
					return nil, boom
				}
				m.SetChatJSONResponses(takeNote)
			},
			wantStage: StageNarration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f.llm)
			saves := f.storage.SaveCount()

			_, err := f.processor.ProcessTurn(context.Background(), f.game.Metadata.ID, "do something")
			require.Error(t, err)
			var ef *ExternalFault
			require.True(t, errors.As(err, &ef), "got %v", err)
			assert.Equal(t, tt.wantStage, ef.Stage)
			assert.False(t, errors.Is(err, ErrTurnRejected))

			assert.Equal(t, saves, f.storage.SaveCount())
			g := f.load(t)
			assert.Equal(t, f.game.State, g.State)
			assert.Empty(t, g.Turns)
			assert.Equal(t, []status.Level{status.LevelError}, f.statusLevels(t))
		})
	}
}

func TestProcessTurn_NoActions(t *testing.T) {
	f := newFixture(t)
	f.llm.SetChatResponses("Corvin hesitates.", "Nothing happens.")

	res, err := f.processor.ProcessTurn(context.Background(), f.game.Metadata.ID, "wait")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Turn)
	assert.Equal(t, []status.Level{status.LevelWarning, status.LevelInfo}, f.statusLevels(t))
}

func TestProcessTurn_InconsistentSave(t *testing.T) {
	f := newFixture(t)
	broken := f.game.DeepCopy()
	broken.State.PlayerLocation.Room = "Nowhere"
	require.NoError(t, f.storage.SaveGame(context.Background(), broken))

	_, err := f.processor.ProcessTurn(context.Background(), f.game.Metadata.ID, "look")
	require.Error(t, err)
	assert.ErrorIs(t, err, state.ErrConsistency)
}

func TestProcessTurn_SaveError(t *testing.T) {
	f := newFixture(t)
	f.llm.SetChatResponses("A plan.", "Done.")
	f.llm.SetChatJSONResponses(takeNote)
	f.storage.SetSaveError(errors.New("disk full"))

	_, err := f.processor.ProcessTurn(context.Background(), f.game.Metadata.ID, "take the note")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestApplyAction(t *testing.T) {
	tests := []struct {
		name      string
		action    state.Action
		wantErr   error
		wantSaved bool
	}{
		{"take", state.TakeItem("Note", "In a coat pocket.", "Takes the note."), nil, true},
		{"inspect", state.Inspect("Looks around.", "Dust everywhere."), nil, false},
		{"illegal move", state.Move("Attic", "Up.", "Climbs."), state.ErrIllegalMove, false},
		{"no-op", state.DropItem("Note", "Floor.", "Drops."), state.ErrNoOp, false},
		{"invalid", state.Action{Type: "PlayerDance"}, ErrInvalidAction, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			saves := f.storage.SaveCount()

			g, err := f.processor.ApplyAction(context.Background(), f.game.Metadata.ID, tt.action)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, saves, f.storage.SaveCount())
				return
			}
			require.NoError(t, err)
			assert.Empty(t, g.Turns)
			if tt.wantSaved {
				assert.Equal(t, saves+1, f.storage.SaveCount())
			} else {
				assert.Equal(t, saves, f.storage.SaveCount())
			}
		})
	}
}

func TestKeyedMutex(t *testing.T) {
	var k keyedMutex
	id := uuid.New()

	unlock := k.Lock(id)
	acquired := make(chan struct{})
	released := make(chan struct{})
	go func() {
		u := k.Lock(id)
		close(acquired)
		u()
		close(released)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	default:
	}

	// Another game is independent.
	k.Lock(uuid.New())()

	unlock()
	<-acquired
	<-released
	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}
