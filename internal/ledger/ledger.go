package ledger

import (
	"context"
	"fmt"
	"sync"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/asset"
)

// Group selects one half of the ledger.
type Group int

const (
	// Persisted assets are already stored by the backing API.
	Persisted Group = iota
	// Staged assets are selected locally and not yet uploaded.
	Staged
)

func (g Group) String() string {
	if g == Persisted {
		return "persisted"
	}
	return "staged"
}

// AssetDeleter removes one persisted asset from the backing store.
type AssetDeleter interface {
	DeleteAsset(ctx context.Context, assetID string) error
}

// AssetDeleterFunc adapts a function to the AssetDeleter interface.
type AssetDeleterFunc func(ctx context.Context, assetID string) error

func (f AssetDeleterFunc) DeleteAsset(ctx context.Context, assetID string) error {
	return f(ctx, assetID)
}

// StagedAsset is a validated file waiting for submission.
type StagedAsset struct {
	Key          string
	File         asset.Candidate
	PreviewURI   string
	OriginalName string
}

// ref identifies the primary asset by identity rather than position, so
// removals elsewhere in the ledger never move the designation.
type ref struct {
	group Group
	key   string
}

// Ledger holds the assets of one entity during one edit session: the persisted
// assets fetched from the backing store and the files staged on top of them.
// At most one asset across both groups is primary. All mutations are serialised.
type Ledger struct {
	policy   asset.Policy
	previews asset.PreviewGenerator
	deleter  AssetDeleter
	idgen    admin.IDGenerator
	logger   admin.Logger

	mu        sync.Mutex
	persisted []admin.PersistedAsset
	staged    []*StagedAsset
	reserved  int
	primary   *ref
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithDeleter sets the backing store used by MarkPersistedForDeletion.
func WithDeleter(d AssetDeleter) Option {
	return func(l *Ledger) { l.deleter = d }
}

// WithLogger sets the ledger's logger.
func WithLogger(logger admin.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithIDGenerator sets the generator for staged asset keys.
func WithIDGenerator(idgen admin.IDGenerator) Option {
	return func(l *Ledger) { l.idgen = idgen }
}

// New creates an empty ledger enforcing policy.
func New(policy asset.Policy, previews asset.PreviewGenerator, opts ...Option) *Ledger {
	l := &Ledger{
		policy:   policy,
		previews: previews,
		idgen:    admin.UUIDGenerator{},
		logger:   admin.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces the persisted half with assets fetched from the backing store.
// The first asset flagged primary keeps the designation; later flags are dropped.
func (l *Ledger) Load(assets []admin.PersistedAsset) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.persisted = make([]admin.PersistedAsset, len(assets))
	copy(l.persisted, assets)

	if l.primary != nil && l.primary.group == Persisted {
		l.primary = nil
	}
	for i := range l.persisted {
		if l.persisted[i].IsPrimary && l.primary == nil {
			l.primary = &ref{group: Persisted, key: l.persisted[i].ID}
		}
		l.persisted[i].IsPrimary = false
	}
}

// pending is an accepted candidate waiting for its preview.
type pending struct {
	seq  int
	file int
	task *asset.PreviewTask
}

type previewResult struct {
	seq int
	uri string
	err error
}

// AddCandidates validates files and stages the accepted ones once their
// previews resolve. Staged entries appear in the order the files were given,
// whatever order their previews finish in. Rejections are returned as data and
// leave the ledger untouched.
func (l *Ledger) AddCandidates(ctx context.Context, files []asset.Candidate) (added int, rejected []*admin.ValidationError) {
	positions, rejected := l.Stage(ctx, files)
	for _, pos := range positions {
		if pos >= 0 {
			added++
		}
	}
	return added, rejected
}

// Stage is AddCandidates reporting where each file landed: positions[i] is
// the staged index files[i] was committed at, or -1 if it was rejected.
func (l *Ledger) Stage(ctx context.Context, files []asset.Candidate) (positions []int, rejected []*admin.ValidationError) {
	positions = make([]int, len(files))
	var batch []pending

	l.mu.Lock()
	for i, f := range files {
		positions[i] = -1
		if err := l.policy.Check(f); err != nil {
			rejected = append(rejected, err.(*admin.ValidationError))
			continue
		}
		if err := l.policy.CheckCapacity(f, len(l.staged)+l.reserved); err != nil {
			rejected = append(rejected, err.(*admin.ValidationError))
			continue
		}
		l.reserved++
		batch = append(batch, pending{seq: len(batch), file: i, task: asset.NewPreviewTask(l.previews, f)})
	}
	l.mu.Unlock()

	if len(batch) == 0 {
		return positions, rejected
	}

	results := make(chan previewResult, len(batch))
	for _, p := range batch {
		go func(p pending) {
			uri, err := p.task.Await(ctx)
			results <- previewResult{seq: p.seq, uri: uri, err: err}
		}(p)
	}

	// Flush completions strictly in selection order.
	buffered := make(map[int]previewResult, len(batch))
	next := 0
	for range batch {
		r := <-results
		buffered[r.seq] = r
		for {
			r, ok := buffered[next]
			if !ok {
				break
			}
			delete(buffered, next)
			c := batch[next].task.Candidate()
			if r.err != nil {
				l.release()
				l.logger.Warn("preview failed", "file", c.Name, "error", r.err)
				rejected = append(rejected, &admin.ValidationError{
					File:   c.Name,
					Reason: admin.ReasonUnreadable,
					Detail: r.err.Error(),
				})
			} else {
				positions[batch[next].file] = l.commit(c, r.uri)
			}
			next++
		}
	}

	return positions, rejected
}

// commit appends one previewed file, applies the default primary rule and
// returns the staged index it landed at.
func (l *Ledger) commit(c asset.Candidate, uri string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reserved--
	sa := &StagedAsset{
		Key:          l.idgen.New(),
		File:         c,
		PreviewURI:   uri,
		OriginalName: c.Name,
	}
	if len(l.persisted) == 0 && len(l.staged) == 0 && l.primary == nil {
		l.primary = &ref{group: Staged, key: sa.Key}
	}
	l.staged = append(l.staged, sa)
	l.logger.Debug("asset staged", "file", c.Name, "size", c.Size, "staged", len(l.staged))
	return len(l.staged) - 1
}

func (l *Ledger) release() {
	l.mu.Lock()
	l.reserved--
	l.mu.Unlock()
}

// RemoveStaged drops the staged entry at index. Removing the primary leaves
// the ledger without one.
func (l *Ledger) RemoveStaged(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.staged) {
		return &admin.StaleIndexError{Group: Staged.String(), Index: index, Len: len(l.staged)}
	}

	removed := l.staged[index]
	l.staged = append(l.staged[:index:index], l.staged[index+1:]...)
	if l.isPrimary(Staged, removed.Key) {
		l.primary = nil
	}
	return nil
}

// MarkPersistedForDeletion deletes a persisted asset from the backing store
// immediately, after the operator confirms, and then drops it locally. The
// deletion is not part of the draft and is not rolled back if the edit is
// abandoned. It returns false without side effects when the operator declines.
func (l *Ledger) MarkPersistedForDeletion(ctx context.Context, assetID string, confirm admin.Confirmer) (bool, error) {
	l.mu.Lock()
	found := l.indexOfPersisted(assetID) >= 0
	size := len(l.persisted)
	l.mu.Unlock()

	if !found {
		return false, &admin.StaleIndexError{Group: Persisted.String(), AssetID: assetID, Len: size}
	}
	if l.deleter == nil {
		return false, admin.ErrUnsupported
	}
	if confirm == nil {
		return false, fmt.Errorf("deleting asset %s: no confirmation gate", assetID)
	}

	ok, err := confirm.Confirm(ctx, "Are you sure you want to delete this image?")
	if err != nil {
		return false, fmt.Errorf("confirming deletion: %w", err)
	}
	if !ok {
		return false, nil
	}

	if err := l.deleter.DeleteAsset(ctx, assetID); err != nil {
		return false, fmt.Errorf("deleting asset %s: %w", assetID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOfPersisted(assetID); i >= 0 {
		l.persisted = append(l.persisted[:i:i], l.persisted[i+1:]...)
	}
	if l.isPrimary(Persisted, assetID) {
		l.primary = nil
	}
	l.logger.Info("persisted asset deleted", "asset_id", assetID, "remaining", len(l.persisted))
	return true, nil
}

// SetPrimary moves the primary designation to index within group.
func (l *Ledger) SetPrimary(group Group, index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch group {
	case Persisted:
		if index < 0 || index >= len(l.persisted) {
			return &admin.StaleIndexError{Group: group.String(), Index: index, Len: len(l.persisted)}
		}
		l.primary = &ref{group: Persisted, key: l.persisted[index].ID}
	case Staged:
		if index < 0 || index >= len(l.staged) {
			return &admin.StaleIndexError{Group: group.String(), Index: index, Len: len(l.staged)}
		}
		l.primary = &ref{group: Staged, key: l.staged[index].Key}
	default:
		return fmt.Errorf("unknown ledger group %d", group)
	}
	return nil
}

// Primary returns the group and index of the primary asset, if any.
func (l *Ledger) Primary() (Group, int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.primaryPosition()
}

func (l *Ledger) primaryPosition() (Group, int, bool) {
	if l.primary == nil {
		return 0, -1, false
	}
	switch l.primary.group {
	case Persisted:
		if i := l.indexOfPersisted(l.primary.key); i >= 0 {
			return Persisted, i, true
		}
	case Staged:
		for i, sa := range l.staged {
			if sa.Key == l.primary.key {
				return Staged, i, true
			}
		}
	}
	return 0, -1, false
}

// Persisted returns a copy of the persisted sequence with IsPrimary set from
// the current designation.
func (l *Ledger) Persisted() []admin.PersistedAsset {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.persistedCopy()
}

func (l *Ledger) persistedCopy() []admin.PersistedAsset {
	out := make([]admin.PersistedAsset, len(l.persisted))
	for i, pa := range l.persisted {
		pa.IsPrimary = l.isPrimary(Persisted, pa.ID)
		out[i] = pa
	}
	return out
}

// Staged returns a copy of the staged sequence, previews included.
func (l *Ledger) Staged() []StagedAsset {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]StagedAsset, len(l.staged))
	for i, sa := range l.staged {
		out[i] = *sa
	}
	return out
}

// Len returns the number of persisted and staged assets.
func (l *Ledger) Len() (persisted, staged int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.persisted), len(l.staged)
}

// Discard drops every staged entry, typically after a successful submission.
func (l *Ledger) Discard() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.primary != nil && l.primary.group == Staged {
		l.primary = nil
	}
	l.staged = nil
}

// StagedFile is a staged file handle as sent on submission.
type StagedFile struct {
	Name string
	File asset.Candidate
}

// Snapshot is the ledger state handed to the submitter. Previews are excluded.
type Snapshot struct {
	Persisted    []admin.PersistedAsset
	Staged       []StagedFile
	HasPrimary   bool
	PrimaryGroup Group
	PrimaryIndex int
}

// PrimaryStagedIndex returns the staged index of the primary, if it is staged.
func (s Snapshot) PrimaryStagedIndex() (int, bool) {
	if s.HasPrimary && s.PrimaryGroup == Staged {
		return s.PrimaryIndex, true
	}
	return 0, false
}

// PrimaryPersistedID returns the id of the primary, if it is persisted.
func (s Snapshot) PrimaryPersistedID() (string, bool) {
	if s.HasPrimary && s.PrimaryGroup == Persisted {
		return s.Persisted[s.PrimaryIndex].ID, true
	}
	return "", false
}

// Snapshot captures the current ledger for submission.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		Persisted: l.persistedCopy(),
		Staged:    make([]StagedFile, len(l.staged)),
	}
	for i, sa := range l.staged {
		snap.Staged[i] = StagedFile{Name: sa.OriginalName, File: sa.File}
	}
	snap.PrimaryGroup, snap.PrimaryIndex, snap.HasPrimary = l.primaryPosition()
	return snap
}

func (l *Ledger) isPrimary(group Group, key string) bool {
	return l.primary != nil && l.primary.group == group && l.primary.key == key
}

func (l *Ledger) indexOfPersisted(id string) int {
	for i, pa := range l.persisted {
		if pa.ID == id {
			return i
		}
	}
	return -1
}
