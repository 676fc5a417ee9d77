package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/manor-engine/internal/services"
	"github.com/jwebster45206/manor-engine/internal/services/events"
	"github.com/jwebster45206/manor-engine/internal/services/status"
	"github.com/jwebster45206/manor-engine/pkg/prompts"
	"github.com/jwebster45206/manor-engine/pkg/state"
	"github.com/jwebster45206/manor-engine/pkg/storage"
)

const DefaultTurnTimeout = 3 * time.Minute

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrEmptyPrompt   = errors.New("prompt cannot be empty")
	ErrTurnRejected  = errors.New("turn rejected")
	ErrInvalidAction = errors.New("invalid action")
	errEmptyOutput   = errors.New("model returned no output")
)

// Stages of a turn that call the model.
const (
	StagePlan      = "plan"
	StageActions   = "actions"
	StageRoom      = "room"
	StageItems     = "items"
	StageNarration = "narration"
)

// ExternalFault is a failure of the language model during one stage of a
// turn. The turn is abandoned and nothing is saved.
type ExternalFault struct {
	Stage string
	Err   error
}

func (f *ExternalFault) Error() string {
	return fmt.Sprintf("model failure during %s: %v", f.Stage, f.Err)
}

func (f *ExternalFault) Unwrap() error { return f.Err }

// RejectedError carries the game faults that rolled a turn back. It matches
// ErrTurnRejected with errors.Is.
type RejectedError struct {
	Faults []error
}

func (e *RejectedError) Error() string {
	msgs := make([]string, len(e.Faults))
	for i, f := range e.Faults {
		msgs[i] = f.Error()
	}
	return "turn rejected: " + strings.Join(msgs, "; ")
}

func (e *RejectedError) Is(target error) bool { return target == ErrTurnRejected }

// Messages returns the player-facing text of each fault.
func (e *RejectedError) Messages() []string {
	msgs := make([]string, len(e.Faults))
	for i, f := range e.Faults {
		msgs[i] = f.Error()
	}
	return msgs
}

// TurnResult is the outcome of one accepted prompt.
type TurnResult struct {
	GameID  uuid.UUID      `json:"gameId"`
	Command bool           `json:"command,omitempty"` // answered by a shortcut, no turn appended
	Message string         `json:"message"`
	Plan    string         `json:"plan,omitempty"`
	Actions []state.Action `json:"actions,omitempty"`
	NewRoom string         `json:"newRoom,omitempty"`
	Turn    int            `json:"turn"`
}

// TurnProcessor runs the prompt → plan → actions → narration cycle.
// It's used by both the HTTP handler (synchronously) and the worker
// (asynchronously).
type TurnProcessor struct {
	storage        storage.Storage
	llmService     services.LLMService
	statusLog      status.Log
	publisher      events.Publisher
	logger         *slog.Logger
	timeout        time.Duration
	newConnections int

	locks keyedMutex
}

// NewTurnProcessor creates a new turn processor. A nil publisher discards
// events.
func NewTurnProcessor(
	storage storage.Storage,
	llmService services.LLMService,
	statusLog status.Log,
	publisher events.Publisher,
	logger *slog.Logger,
) *TurnProcessor {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &TurnProcessor{
		storage:        storage,
		llmService:     llmService,
		statusLog:      statusLog,
		publisher:      publisher,
		logger:         logger,
		timeout:        DefaultTurnTimeout,
		newConnections: prompts.DefaultNewConnections,
	}
}

// SetTimeout bounds the model calls of a single turn.
func (p *TurnProcessor) SetTimeout(d time.Duration) {
	if d > 0 {
		p.timeout = d
	}
}

// LoadGame returns the validated game, or ErrGameNotFound.
func (p *TurnProcessor) LoadGame(ctx context.Context, gameID uuid.UUID) (*state.Game, error) {
	g, err := p.storage.LoadGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	if g == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// ProcessTurn interprets one natural-language prompt against the game. A
// turn either commits completely, appending one Turn and saving, or leaves
// the saved game untouched.
func (p *TurnProcessor) ProcessTurn(ctx context.Context, gameID uuid.UUID, prompt string) (*TurnResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	unlock := p.locks.Lock(gameID)
	defer unlock()

	g, err := p.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	log := p.logger.With("game_id", gameID)

	if cmd := g.State.TryHandleCommand(prompt); cmd.Handled {
		log.Debug("Prompt handled as command", "prompt", prompt)
		return &TurnResult{GameID: gameID, Command: true, Message: cmd.Message, Turn: len(g.Turns)}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	snapshot := g.DeepCopy()
	manager := state.NewManager(g)
	interpreter := state.NewInterpreter(manager, log)

	plan, err := p.generatePlan(ctx, &g.State, prompt)
	if err != nil {
		return nil, p.abort(ctx, gameID, err)
	}
	log.Debug("Action plan", "plan", plan)

	actions, err := p.generateActions(ctx, &g.State, plan)
	if err != nil {
		return nil, p.abort(ctx, gameID, err)
	}
	if len(actions) == 0 {
		p.appendStatus(ctx, gameID, status.LevelWarning, "No actions were taken this turn.")
	}

	newRoom, ok := g.State.NewRoomNeeded(actions)
	if ok {
		if err := p.generateRoom(ctx, manager, newRoom); err != nil {
			g.Restore(snapshot)
			if state.IsGameFault(err) {
				return nil, p.reject(ctx, gameID, []error{err})
			}
			return nil, p.abort(ctx, gameID, err)
		}
	}

	var faults []error
	for _, a := range actions {
		err := interpreter.Apply(a)
		if err == nil {
			continue
		}
		if state.IsGameFault(err) {
			faults = append(faults, err)
			continue
		}
		g.Restore(snapshot)
		log.Error("Turn aborted", "action", a.Type, "error", err)
		return nil, err
	}
	if len(faults) > 0 {
		g.Restore(snapshot)
		return nil, p.reject(ctx, gameID, faults)
	}

	narration, err := p.generateNarration(ctx, prompt, actions)
	if err != nil {
		g.Restore(snapshot)
		return nil, p.abort(ctx, gameID, err)
	}

	manager.AddTurn(state.Turn{Prompt: prompt, Actions: actions, Description: narration})
	if err := g.Validate(); err != nil {
		g.Restore(snapshot)
		log.Error("Turn left the world inconsistent", "error", err)
		return nil, err
	}
	if err := p.storage.SaveGame(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	if newRoom != "" {
		p.appendStatus(ctx, gameID, status.LevelInfo, fmt.Sprintf("Discovered a new place: %s.", newRoom))
		if err := p.publisher.PublishRoomGenerated(ctx, gameID, newRoom); err != nil {
			log.Error("Failed to publish room event", "error", err)
		}
	}
	p.appendStatus(ctx, gameID, status.LevelInfo, fmt.Sprintf("Turn %d complete.", len(g.Turns)))

	return &TurnResult{
		GameID:  gameID,
		Message: narration,
		Plan:    plan,
		Actions: actions,
		NewRoom: newRoom,
		Turn:    len(g.Turns),
	}, nil
}

// ApplyAction applies one structured action directly, bypassing the model.
// No turn is appended.
func (p *TurnProcessor) ApplyAction(ctx context.Context, gameID uuid.UUID, a state.Action) (*state.Game, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	unlock := p.locks.Lock(gameID)
	defer unlock()

	g, err := p.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := state.NewInterpreter(state.NewManager(g), p.logger).Apply(a); err != nil {
		if state.IsGameFault(err) {
			p.appendStatus(ctx, gameID, status.LevelError, err.Error())
		}
		return nil, err
	}
	if !a.Mutates() {
		return g, nil
	}
	if err := p.storage.SaveGame(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}
	p.appendStatus(ctx, gameID, status.LevelInfo, a.Summary())
	return g, nil
}

func (p *TurnProcessor) generatePlan(ctx context.Context, gs *state.GameState, prompt string) (string, error) {
	msgs, err := prompts.New(prompts.TaskPlan).WithGameState(gs).WithUserMessage(prompt).Build()
	if err != nil {
		return "", err
	}
	resp, err := p.llmService.Chat(ctx, msgs)
	if err != nil {
		return "", &ExternalFault{Stage: StagePlan, Err: err}
	}
	plan := strings.TrimSpace(resp.Message)
	if plan == "" {
		return "", &ExternalFault{Stage: StagePlan, Err: errEmptyOutput}
	}
	return plan, nil
}

func (p *TurnProcessor) generateActions(ctx context.Context, gs *state.GameState, plan string) ([]state.Action, error) {
	b := prompts.New(prompts.TaskActions).WithGameState(gs).WithPlan(plan)
	msgs, err := b.Build()
	if err != nil {
		return nil, err
	}
	resp, err := p.llmService.ChatJSON(ctx, msgs, b.Schema())
	if err != nil {
		return nil, &ExternalFault{Stage: StageActions, Err: err}
	}
	actions, err := prompts.ParseActions(resp.Message)
	if err != nil {
		return nil, &ExternalFault{Stage: StageActions, Err: err}
	}
	return actions, nil
}

// generateRoom asks the model for the room the player is about to enter and
// the items lying in it, and inserts both into the world graph.
func (p *TurnProcessor) generateRoom(ctx context.Context, m *state.Manager, name string) error {
	b := prompts.New(prompts.TaskRoom).
		WithGameState(m.State()).
		WithRoom(name, "").
		WithConnections(p.newConnections)
	msgs, err := b.Build()
	if err != nil {
		return err
	}
	resp, err := p.llmService.ChatJSON(ctx, msgs, b.Schema())
	if err != nil {
		return &ExternalFault{Stage: StageRoom, Err: err}
	}
	room, conns, err := prompts.ParseRoom(name, resp.Message)
	if err != nil {
		return &ExternalFault{Stage: StageRoom, Err: err}
	}
	if err := m.CreateRoom(room, conns); err != nil {
		return err
	}

	ib := prompts.New(prompts.TaskItems).WithRoom(room.Name, room.Description)
	msgs, err = ib.Build()
	if err != nil {
		return err
	}
	resp, err = p.llmService.ChatJSON(ctx, msgs, ib.Schema())
	if err != nil {
		return &ExternalFault{Stage: StageItems, Err: err}
	}
	items, err := prompts.ParseItems(room.Name, resp.Message)
	if err != nil {
		return &ExternalFault{Stage: StageItems, Err: err}
	}
	for _, it := range items {
		if err := m.CreateItem(it.Item, it.Location); err != nil {
			return err
		}
	}

	p.logger.Info("Generated room", "room", room.Name, "connections", len(conns), "items", len(items))
	return nil
}

func (p *TurnProcessor) generateNarration(ctx context.Context, prompt string, actions []state.Action) (string, error) {
	msgs, err := prompts.New(prompts.TaskNarration).WithUserMessage(prompt).WithActions(actions).Build()
	if err != nil {
		return "", err
	}
	resp, err := p.llmService.Chat(ctx, msgs)
	if err != nil {
		return "", &ExternalFault{Stage: StageNarration, Err: err}
	}
	narration := strings.TrimSpace(resp.Message)
	if narration == "" {
		return "", &ExternalFault{Stage: StageNarration, Err: errEmptyOutput}
	}
	return narration, nil
}

// reject records every fault as an error status message.
func (p *TurnProcessor) reject(ctx context.Context, gameID uuid.UUID, faults []error) error {
	for _, f := range faults {
		p.appendStatus(ctx, gameID, status.LevelError, f.Error())
	}
	return &RejectedError{Faults: faults}
}

func (p *TurnProcessor) abort(ctx context.Context, gameID uuid.UUID, err error) error {
	var ef *ExternalFault
	if errors.As(err, &ef) {
		p.appendStatus(ctx, gameID, status.LevelError, fmt.Sprintf("The game master could not finish the %s step. Try again.", ef.Stage))
	}
	p.logger.Error("Turn aborted", "game_id", gameID, "error", err)
	return err
}

// appendStatus survives a cancelled turn context so failures are still
// recorded.
func (p *TurnProcessor) appendStatus(ctx context.Context, gameID uuid.UUID, level status.Level, text string) {
	if p.statusLog == nil {
		return
	}
	if err := p.statusLog.Append(context.WithoutCancel(ctx), gameID, level, text); err != nil {
		p.logger.Error("Failed to append status message", "game_id", gameID, "error", err)
	}
}

// keyedMutex serializes turns per game within one process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(id uuid.UUID) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uuid.UUID]*refMutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
