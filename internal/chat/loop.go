// Package chat drives one conversation: it records turns in the session,
// calls the agent and hands the reply to a front end for the reveal.
package chat

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"agentchat/internal/agent"
	"agentchat/internal/reveal"
	"agentchat/internal/session"
)

type State int

const (
	StateIdle State = iota
	StateTurnInProgress
)

func (s State) String() string {
	if s == StateTurnInProgress {
		return "turn-in-progress"
	}
	return "idle"
}

const (
	DefaultTemperature = 0.3
	MinTemperature     = 0.0
	MaxTemperature     = 1.0
	TemperatureStep    = 0.1
)

var (
	ErrTurnInProgress = errors.New("a turn is already in progress")
	ErrNoTurn         = errors.New("no turn in progress")
)

// Loop is the two state turn machine. It is owned by a single front end and
// is not safe for concurrent use; Call snapshots what the gateway needs so
// the blocking call can run off the UI goroutine.
type Loop struct {
	sess     *session.Session
	gateway  agent.Gateway
	threadID string
	// temperature in tenths, always within [0, 10]
	tenths int

	// RevealDelay is the pause between frames used by RunTurn.
	RevealDelay time.Duration

	state   State
	pending string
	turn    int
	lastErr error
}

func New(sess *session.Session, gateway agent.Gateway, threadID string, temperature float64) *Loop {
	if strings.TrimSpace(threadID) == "" {
		threadID = agent.DefaultThreadID
	}
	l := &Loop{
		sess:        sess,
		gateway:     gateway,
		threadID:    threadID,
		RevealDelay: reveal.Delay,
	}
	l.SetTemperature(temperature)
	return l
}

func (l *Loop) Session() *session.Session { return l.sess }
func (l *Loop) State() State               { return l.state }
func (l *Loop) Busy() bool                 { return l.state == StateTurnInProgress }
func (l *Loop) ThreadID() string           { return l.threadID }

// Turn is the number of turns started in this session.
func (l *Loop) Turn() int { return l.turn }

// Pending is the user text of the turn in progress.
func (l *Loop) Pending() string { return l.pending }

// LastErr is the gateway error of the most recent failed turn, cleared by
// the next submission.
func (l *Loop) LastErr() error { return l.lastErr }

func (l *Loop) Temperature() float64 {
	return float64(l.tenths) / 10
}

// SetTemperature snaps t to the nearest step inside [0, 1].
func (l *Loop) SetTemperature(t float64) {
	if math.IsNaN(t) {
		t = DefaultTemperature
	}
	l.tenths = clampInt(int(math.Round(t*10)), 0, 10)
}

// AdjustTemperature moves the temperature by steps of 0.1.
func (l *Loop) AdjustTemperature(steps int) {
	l.tenths = clampInt(l.tenths+steps, 0, 10)
}

// Config is recomputed from the controls on every turn.
func (l *Loop) Config() agent.Config {
	return agent.NewConfig(l.threadID, l.Temperature())
}

// Submit starts a turn. Blank text is ignored and reported as false. The
// user message is recorded as typed.
func (l *Loop) Submit(text string) (bool, error) {
	if l.Busy() {
		return false, ErrTurnInProgress
	}
	if strings.TrimSpace(text) == "" {
		return false, nil
	}
	if err := l.sess.Append(session.RoleUser, text); err != nil {
		return false, errors.Wrap(err, "record user message")
	}
	l.state = StateTurnInProgress
	l.pending = text
	l.turn++
	l.lastErr = nil
	log.Info().
		Int("turn", l.turn).
		Str("thread_id", l.threadID).
		Float64("temperature", l.Temperature()).
		Int("chars", len(text)).
		Msg("turn started")
	return true, nil
}

// Call is a snapshot of one gateway invocation.
type Call struct {
	Turn    int
	Request agent.Request
	Config  agent.Config
	gateway agent.Gateway
}

// Do invokes the agent and returns the reply text.
func (c Call) Do(ctx context.Context) (string, error) {
	resp, err := c.gateway.Invoke(ctx, c.Request, c.Config)
	if err != nil {
		return "", err
	}
	return resp.LastText(), nil
}

// Call prepares the gateway invocation for the turn in progress.
func (l *Loop) Call() (Call, error) {
	if !l.Busy() {
		return Call{}, ErrNoTurn
	}
	return Call{
		Turn:    l.turn,
		Request: agent.UserRequest(l.pending),
		Config:  l.Config(),
		gateway: l.gateway,
	}, nil
}

// Complete records the full reply and returns to idle.
func (l *Loop) Complete(reply string) error {
	if !l.Busy() {
		return ErrNoTurn
	}
	if err := l.sess.Append(session.RoleAssistant, reply); err != nil {
		return errors.Wrap(err, "record assistant message")
	}
	l.state = StateIdle
	l.pending = ""
	log.Info().Int("turn", l.turn).Int("reply_chars", len(reply)).Int("messages", l.sess.Len()).Msg("turn completed")
	return nil
}

// Fail ends the turn without an assistant message. The user message stays
// in the transcript.
func (l *Loop) Fail(err error) {
	if !l.Busy() {
		return
	}
	l.lastErr = err
	l.state = StateIdle
	l.pending = ""
	log.Error().Err(err).Int("turn", l.turn).Msg("turn failed")
}

// Reset clears the transcript.
func (l *Loop) Reset() error {
	if l.Busy() {
		return ErrTurnInProgress
	}
	l.sess.Clear()
	l.lastErr = nil
	log.Info().Str("session_id", l.sess.ID).Msg("session reset")
	return nil
}

// Export writes the transcript to dir and returns the file path.
func (l *Loop) Export(dir string) (string, error) {
	if l.Busy() {
		return "", ErrTurnInProgress
	}
	path, err := l.sess.WriteExport(dir)
	if err != nil {
		return "", err
	}
	log.Info().Str("path", path).Int("messages", l.sess.Len()).Msg("transcript exported")
	return path, nil
}

// RunTurn runs a whole turn on the calling goroutine: submit, call the
// agent, reveal the reply through onFrame and record it. submitted is false
// for blank input.
func (l *Loop) RunTurn(ctx context.Context, text string, onFrame func(frame string)) (reply string, submitted bool, err error) {
	ok, err := l.Submit(text)
	if err != nil || !ok {
		return "", ok, err
	}
	call, err := l.Call()
	if err != nil {
		return "", true, err
	}
	reply, err = call.Do(ctx)
	if err != nil {
		l.Fail(err)
		return "", true, err
	}
	if onFrame != nil {
		// an interrupted reveal still records the full reply
		_ = reveal.Play(ctx, reply, l.RevealDelay, onFrame)
	}
	if err := l.Complete(reply); err != nil {
		return "", true, err
	}
	return reply, true, nil
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
