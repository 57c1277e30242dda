package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/asset"
	"catalog-admin/internal/ledger"
	"catalog-admin/internal/submit"
)

// State is the lifecycle position of an edit session.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrBusy is returned for any mutation attempted while a submission is in flight.
	ErrBusy = errors.New("a submission is in progress")

	// ErrClosed is returned when the session was closed before a result arrived.
	// The result is discarded.
	ErrClosed = errors.New("edit session closed")

	// ErrNotReady is returned when the session has no draft to work on yet.
	ErrNotReady = errors.New("edit session is not ready")
)

// Controller drives one create or edit session for one entity. It owns the
// draft and the asset ledger, and serialises submission against mutation.
type Controller struct {
	kind      Kind
	submitter *submit.Submitter
	logger    admin.Logger
	ledger    *ledger.Ledger

	mu     sync.Mutex
	id     string
	create bool
	state  State
	draft  *submit.Draft
	keep   bool
	// edits counts AddFiles and DeleteAsset calls still touching the ledger.
	edits   int
	gen     uint64
	closed  bool
	message string
	err     error
}

// Option configures a Controller.
type Option func(*controllerOptions)

type controllerOptions struct {
	logger     admin.Logger
	ledgerOpts []ledger.Option
}

// WithLogger sets the controller's logger.
func WithLogger(logger admin.Logger) Option {
	return func(o *controllerOptions) { o.logger = logger }
}

// WithLedgerOptions passes options through to the asset ledger.
func WithLedgerOptions(opts ...ledger.Option) Option {
	return func(o *controllerOptions) { o.ledgerOpts = append(o.ledgerOpts, opts...) }
}

// New creates a controller for kind. An empty id starts a create session;
// otherwise the entity with that id is edited.
func New(kind Kind, id string, submitter *submit.Submitter, previews asset.PreviewGenerator, opts ...Option) *Controller {
	o := controllerOptions{logger: admin.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Controller{
		kind:      kind,
		submitter: submitter,
		logger:    o.logger,
		id:        id,
		create:    id == "",
		keep:      kind.Assets().KeepByDefault,
	}

	ledgerOpts := []ledger.Option{ledger.WithLogger(o.logger)}
	if remover, ok := kind.(AssetRemover); ok {
		ledgerOpts = append(ledgerOpts, ledger.WithDeleter(ledger.AssetDeleterFunc(
			func(ctx context.Context, assetID string) error {
				entityID := c.ID()
				if entityID == "" {
					return fmt.Errorf("deleting asset %s: %s not saved yet", assetID, kind.Name())
				}
				return remover.DeleteAsset(ctx, entityID, assetID)
			})))
	}
	ledgerOpts = append(ledgerOpts, o.ledgerOpts...)
	c.ledger = ledger.New(kind.Policy(), previews, ledgerOpts...)
	return c
}

// Open moves an idle session to Ready. Create sessions get an empty draft;
// edit sessions fetch the entity first and pass through Loading.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != Idle && !(c.state == Failed && c.draft == nil) {
		c.mu.Unlock()
		return fmt.Errorf("opening %s editor: already %s", c.kind.Name(), c.state)
	}
	if c.create {
		c.draft = c.kind.NewDraft()
		c.state = Ready
		c.mu.Unlock()
		return nil
	}
	c.state = Loading
	gen := c.gen
	id := c.id
	c.mu.Unlock()

	draft, assets, err := c.kind.Fetch(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.gen != gen {
		c.logger.Debug("discarding stale load", "kind", c.kind.Name(), "id", id)
		return ErrClosed
	}
	if err != nil {
		c.state = Failed
		c.err = err
		c.message = fmt.Sprintf("Failed to fetch %s details", c.kind.Name())
		return fmt.Errorf("fetching %s %s: %w", c.kind.Name(), id, err)
	}
	if draft == nil {
		c.state = Failed
		c.err = fmt.Errorf("%s %s not found", c.kind.Name(), id)
		c.message = fmt.Sprintf("Failed to fetch %s details", c.kind.Name())
		return c.err
	}

	c.draft = draft
	c.ledger.Load(assets)
	c.state = Ready
	c.logger.Debug("editor loaded", "kind", c.kind.Name(), "id", id, "assets", len(assets))
	return nil
}

// editable checks that a mutation may proceed and returns a finished session
// to Ready. The caller holds c.mu.
func (c *Controller) editable() error {
	switch {
	case c.closed:
		return ErrClosed
	case c.state == Submitting:
		return ErrBusy
	case c.draft == nil:
		return ErrNotReady
	}
	if c.state == Success || c.state == Failed {
		c.state = Ready
	}
	return nil
}

// SetField assigns one draft field. A nil value unsets it.
func (c *Controller) SetField(name string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	c.draft.Set(name, value)
	return nil
}

// SetKeepExisting says whether the next update keeps persisted assets. The
// kind's AssetMode supplies the default.
func (c *Controller) SetKeepExisting(keep bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	c.keep = keep
	return nil
}

// beginEdit admits a ledger mutation that runs outside c.mu. Submit is
// refused until the matching endEdit.
func (c *Controller) beginEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	c.edits++
	return nil
}

func (c *Controller) endEdit() {
	c.mu.Lock()
	c.edits--
	c.mu.Unlock()
}

// AddFiles validates and stages files. Rejected files are returned as data.
func (c *Controller) AddFiles(ctx context.Context, files []asset.Candidate) (int, []*admin.ValidationError, error) {
	positions, rejected, err := c.StageFiles(ctx, files)
	if err != nil {
		return 0, nil, err
	}
	added := 0
	for _, pos := range positions {
		if pos >= 0 {
			added++
		}
	}
	return added, rejected, nil
}

// StageFiles is AddFiles reporting the staged index each file landed at, or
// -1 for rejected files.
func (c *Controller) StageFiles(ctx context.Context, files []asset.Candidate) ([]int, []*admin.ValidationError, error) {
	if err := c.beginEdit(); err != nil {
		return nil, nil, err
	}
	defer c.endEdit()

	positions, rejected := c.ledger.Stage(ctx, files)
	for _, r := range rejected {
		c.logger.Info("file rejected", "kind", c.kind.Name(), "file", r.File, "reason", r.Reason)
	}
	return positions, rejected, nil
}

// RemoveStaged drops a staged file.
func (c *Controller) RemoveStaged(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	return c.ledger.RemoveStaged(index)
}

// SetPrimary designates the primary asset.
func (c *Controller) SetPrimary(group ledger.Group, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	return c.ledger.SetPrimary(group, index)
}

// DeleteAsset eagerly deletes a persisted asset after confirm agrees. It is
// not part of the draft and survives abandoning the session.
func (c *Controller) DeleteAsset(ctx context.Context, assetID string, confirm admin.Confirmer) (bool, error) {
	if err := c.beginEdit(); err != nil {
		return false, err
	}
	defer c.endEdit()

	ok, err := c.ledger.MarkPersistedForDeletion(ctx, assetID, confirm)
	if err != nil {
		c.mu.Lock()
		c.message = admin.UserMessage(err)
		c.mu.Unlock()
		return false, err
	}
	if ok {
		c.logger.Info("asset deleted", "kind", c.kind.Name(), "id", c.ID(), "asset_id", assetID)
	}
	return ok, nil
}

// Submit validates the draft and sends the draft and ledger as one request.
// On failure the draft and ledger are kept so the operator can retry.
func (c *Controller) Submit(ctx context.Context) (*admin.Envelope, error) {
	c.mu.Lock()
	if err := c.editable(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.edits > 0 {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	snap := c.ledger.Snapshot()
	if err := c.kind.Validate(c.draft, snap, c.create); err != nil {
		c.fail(err)
		c.mu.Unlock()
		return nil, err
	}

	opts := submit.Options{
		Update:       !c.create,
		KeepExisting: c.keep,
		KeepField:    c.kind.Assets().KeepField,
		FileField:    c.kind.FileField(),
	}
	payload, err := submit.Build(c.draft, snap, opts)
	if err != nil {
		c.fail(err)
		c.mu.Unlock()
		return nil, err
	}

	method, path, query := c.kind.Target(c.id, c.keep)
	c.state = Submitting
	c.message = ""
	gen := c.gen
	c.mu.Unlock()

	c.logger.Info("submitting entity", "kind", c.kind.Name(), "id", c.id, "files", payload.Files)
	env, err := c.submitter.Submit(ctx, method, path, query, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.gen != gen {
		c.logger.Debug("discarding stale submission result", "kind", c.kind.Name(), "error", err)
		return nil, ErrClosed
	}
	if err != nil {
		c.fail(err)
		return nil, err
	}

	verb := "updated"
	if c.create {
		verb = "created"
		if id := createdID(env); id != "" {
			c.id = id
			c.create = false
		}
	}
	c.ledger.Discard()
	c.keep = c.kind.Assets().KeepByDefault
	c.state = Success
	c.err = nil
	c.message = fmt.Sprintf("%s %s successfully!", title(c.kind.Name()), verb)
	return env, nil
}

func (c *Controller) fail(err error) {
	c.state = Failed
	c.err = err
	c.message = admin.UserMessage(err)
}

// Close abandons the session. Results of in-flight loads and submissions
// arriving later are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.gen++
	c.ledger.Discard()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Message returns the single line shown to the operator for the last outcome.
func (c *Controller) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// Err returns the error behind the last failure, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ID returns the entity id; empty until a create session succeeds.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Draft returns a copy of the draft, or nil before Ready.
func (c *Controller) Draft() *submit.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return nil
	}
	return c.draft.Clone()
}

// Snapshot returns the current ledger contents.
func (c *Controller) Snapshot() ledger.Snapshot {
	return c.ledger.Snapshot()
}

// Staged returns the staged files with their previews.
func (c *Controller) Staged() []ledger.StagedAsset {
	return c.ledger.Staged()
}

func createdID(env *admin.Envelope) string {
	if env == nil || len(env.Data) == 0 {
		return ""
	}
	var created struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return ""
	}
	return created.ID
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
