package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/api"
	"catalog-admin/internal/archive"
	"catalog-admin/internal/asset"
	"catalog-admin/internal/config"
	"catalog-admin/internal/database"
	"catalog-admin/internal/session"
)

// ConsoleApp is the application layer between the CLI and the backing API.
// It constructs all dependencies from config, exposes the console's
// operations, and records mutating ones in the history on Close.
type ConsoleApp struct {
	cfg      *config.Config
	client   *api.Client
	sessions admin.SessionStore
	ttl      time.Duration
	history  admin.History
	archive  admin.Archive
	logger   admin.Logger
	clock    admin.Clock
	previews asset.PreviewGenerator
	policies policies
	op       *Operation
	logFile  *os.File
}

// policies are the upload limits after applying config overrides.
type policies struct {
	banner  asset.Policy
	product asset.Policy
	pkg     asset.Policy
}

func policiesFromConfig(cfg config.LimitsConfig) policies {
	p := policies{
		banner:  asset.BannerImages(),
		product: asset.ProductImages(),
		pkg:     asset.AppPackage(),
	}
	if cfg.ImageMaxBytes > 0 {
		p.banner.MaxBytes = cfg.ImageMaxBytes
		p.product.MaxBytes = cfg.ImageMaxBytes
	}
	if cfg.BannerMaxImages > 0 {
		p.banner.MaxStaged = cfg.BannerMaxImages
	}
	if cfg.ProductMaxImages > 0 {
		p.product.MaxStaged = cfg.ProductMaxImages
	}
	if cfg.PackageMaxBytes > 0 {
		p.pkg.MaxBytes = cfg.PackageMaxBytes
	}
	return p
}

// Option configures NewConsoleApp.
type Option func(*appOptions)

type appOptions struct {
	stderr      io.Writer
	stderrLevel slog.Level
	clock       admin.Clock
	httpClient  *http.Client
}

// WithStderr sets where log records at or above level are echoed.
func WithStderr(w io.Writer, level slog.Level) Option {
	return func(o *appOptions) {
		o.stderr = w
		o.stderrLevel = level
	}
}

func WithClock(clock admin.Clock) Option {
	return func(o *appOptions) { o.clock = clock }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *appOptions) { o.httpClient = hc }
}

// NewConsoleApp creates a fully wired ConsoleApp from the given config.
// operation identifies the CLI command being run (e.g. "banner create").
// The caller must call Close when done.
func NewConsoleApp(ctx context.Context, cfg *config.Config, operation string, opts ...Option) (*ConsoleApp, error) {
	o := appOptions{stderr: os.Stderr, stderrLevel: slog.LevelWarn, clock: admin.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	opID := o.clock.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID, o.stderr, o.stderrLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	sessions, err := session.NewStoreFromConfig(cfg.Session)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating session store: %w", err)
	}
	ttl := session.TTLFromConfig(cfg.Session)

	sess, err := session.Current(sessions, o.clock, ttl)
	if err != nil && !errors.Is(err, admin.ErrNotAuthenticated) {
		logFile.Close()
		return nil, fmt.Errorf("loading session: %w", err)
	}

	history, err := database.NewHistoryFromConfig(cfg.Database, cfg.OperatorID, o.clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating history database: %w", err)
	}

	arch, err := archive.NewArchiveFromConfig(ctx, cfg.Archive)
	if err != nil {
		history.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	clientOpts := []api.Option{
		api.WithSession(sess),
		api.WithLogger(logger),
		api.WithClock(o.clock),
	}
	if cfg.API.Timeout > 0 {
		clientOpts = append(clientOpts, api.WithTimeout(time.Duration(cfg.API.Timeout)*time.Second))
	}
	if cfg.API.UploadTimeout > 0 {
		clientOpts = append(clientOpts, api.WithUploadTimeout(time.Duration(cfg.API.UploadTimeout)*time.Second))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(o.httpClient))
	}

	return &ConsoleApp{
		cfg:      cfg,
		client:   api.New(cfg.API.BaseURL, clientOpts...),
		sessions: sessions,
		ttl:      ttl,
		history:  history,
		archive:  arch,
		logger:   logger,
		clock:    o.clock,
		previews: asset.DataURIGenerator{},
		policies: policiesFromConfig(cfg.Limits),
		op:       NewOperation(operation),
		logFile:  logFile,
	}, nil
}

// persistOperation saves the operation to the history, giving it an
// auto-increment ID. This should only be called for mutating commands.
func (a *ConsoleApp) persistOperation(params map[string]any) error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	a.op.Parameters = encodeParams(params)
	id, err := a.history.StartOperation(a.op.Name, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("recording operation: %w", err)
	}
	a.op.ID = id
	return nil
}

// settle marks the operation failed when *errp is set. Deferred by mutating commands.
func (a *ConsoleApp) settle(errp *error) {
	if *errp != nil {
		a.op.Fail(*errp)
	}
}

func (a *ConsoleApp) requireSession() error {
	if a.client.Session() == nil {
		return admin.ErrNotAuthenticated
	}
	return nil
}

// Close finalizes the operation record and closes all resources.
func (a *ConsoleApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.history.FinishOperation(a.op.ID, a.op.Status, a.op.Message); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}
	if err := a.history.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing history database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// Login exchanges credentials for a session and stores it.
func (a *ConsoleApp) Login(ctx context.Context, email, password string) (sess *admin.Session, err error) {
	if err := a.persistOperation(map[string]any{"email": email}); err != nil {
		return nil, err
	}
	defer a.settle(&err)

	sess, err = a.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.sessions.Save(sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	a.client = a.client.WithSession(sess)
	return sess, nil
}

// Logout ends the session remotely when possible and always removes the
// local copy.
func (a *ConsoleApp) Logout(ctx context.Context) (err error) {
	if err := a.persistOperation(nil); err != nil {
		return err
	}
	defer a.settle(&err)

	if a.client.Session() != nil {
		if err := a.client.Logout(ctx); err != nil {
			a.logger.Warn("remote logout failed", "error", err)
		}
	}
	if err := a.sessions.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	a.client = a.client.WithSession(nil)
	return nil
}

// WhoAmI returns the operator the stored session belongs to.
func (a *ConsoleApp) WhoAmI(ctx context.Context) (*admin.Operator, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	return a.client.Profile(ctx)
}

// History returns the most recent recorded operations.
func (a *ConsoleApp) History(limit int) ([]*admin.Operation, error) {
	return a.history.RecentOperations(limit)
}

// Banners lists banners, optionally only the active ones.
func (a *ConsoleApp) Banners(ctx context.Context, activeOnly bool) ([]admin.Banner, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	return a.client.Banners(ctx, activeOnly)
}

// Banner returns one banner, or nil if it does not exist.
func (a *ConsoleApp) Banner(ctx context.Context, id string) (*admin.Banner, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	return a.client.Banner(ctx, id)
}

// DeleteBanner deletes a banner after confirm agrees. It reports whether the
// banner was deleted.
func (a *ConsoleApp) DeleteBanner(ctx context.Context, id string, confirm admin.Confirmer) (bool, error) {
	return a.confirmedDelete(ctx, "Delete banner "+id+"?", id, confirm, a.client.DeleteBanner)
}

// ToggleBanner flips a banner's active flag.
func (a *ConsoleApp) ToggleBanner(ctx context.Context, id string) (b *admin.Banner, err error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	if err := a.persistOperation(map[string]any{"id": id}); err != nil {
		return nil, err
	}
	defer a.settle(&err)
	return a.client.ToggleBanner(ctx, id)
}

// Products lists products matching q.
func (a *ConsoleApp) Products(ctx context.Context, q admin.ProductQuery) ([]admin.Product, *admin.Pagination, error) {
	if err := a.requireSession(); err != nil {
		return nil, nil, err
	}
	return a.client.Products(ctx, q)
}

// Product returns one product, or nil if it does not exist.
func (a *ConsoleApp) Product(ctx context.Context, id string) (*admin.Product, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	return a.client.Product(ctx, id)
}

func (a *ConsoleApp) DeleteProduct(ctx context.Context, id string, confirm admin.Confirmer) (bool, error) {
	return a.confirmedDelete(ctx, "Delete product "+id+"?", id, confirm, a.client.DeleteProduct)
}

// UpdateRating sets a product's rating and review count.
func (a *ConsoleApp) UpdateRating(ctx context.Context, id string, rating float64, reviews int) (p *admin.Product, err error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	if err := a.persistOperation(map[string]any{"id": id, "rating": rating, "reviewsCount": reviews}); err != nil {
		return nil, err
	}
	defer a.settle(&err)
	return a.client.UpdateRating(ctx, id, rating, reviews)
}

// Stats returns the dashboard statistics.
func (a *ConsoleApp) Stats(ctx context.Context) (*admin.Stats, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	return a.client.Stats(ctx)
}

// Orders lists orders matching q. A non-empty userID restricts the list to
// that customer's orders.
func (a *ConsoleApp) Orders(ctx context.Context, userID string, q admin.OrderQuery) ([]admin.Order, *admin.Pagination, error) {
	if err := a.requireSession(); err != nil {
		return nil, nil, err
	}
	if userID != "" {
		return a.client.OrdersByUser(ctx, userID, q)
	}
	return a.client.Orders(ctx, q)
}

// Order returns one order by id, or by order number when byNumber is set.
func (a *ConsoleApp) Order(ctx context.Context, ref string, byNumber bool) (*admin.Order, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	if byNumber {
		return a.client.OrderByNumber(ctx, ref)
	}
	return a.client.Order(ctx, ref)
}

// UpdateOrderStatus moves an order to status.
func (a *ConsoleApp) UpdateOrderStatus(ctx context.Context, id, status string) (o *admin.Order, err error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	if err := a.persistOperation(map[string]any{"id": id, "status": status}); err != nil {
		return nil, err
	}
	defer a.settle(&err)
	return a.client.UpdateOrderStatus(ctx, id, status)
}

func (a *ConsoleApp) DeleteOrder(ctx context.Context, id string, confirm admin.Confirmer) (bool, error) {
	return a.confirmedDelete(ctx, "Delete order "+id+"?", id, confirm, a.client.DeleteOrder)
}

// Settings returns the store settings.
func (a *ConsoleApp) Settings(ctx context.Context) (*admin.Settings, error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	return a.client.Settings(ctx)
}

// UpdateSettings changes the given settings fields.
func (a *ConsoleApp) UpdateSettings(ctx context.Context, changes map[string]string) (s *admin.Settings, err error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	params := make(map[string]any, len(changes))
	for k, v := range changes {
		params[k] = v
	}
	if err := a.persistOperation(params); err != nil {
		return nil, err
	}
	defer a.settle(&err)
	return a.client.UpdateSettings(ctx, changes)
}

// MerchantUPI returns the merchant UPI id used at checkout.
func (a *ConsoleApp) MerchantUPI(ctx context.Context) (string, error) {
	if err := a.requireSession(); err != nil {
		return "", err
	}
	return a.client.MerchantUPI(ctx)
}

// PackageStatus reports whether an app package is published.
func (a *ConsoleApp) PackageStatus(ctx context.Context) (*admin.PackageStatus, error) {
	return a.client.PackageStatus(ctx)
}

// PackageDownloadURL is the public download link for the published package.
func (a *ConsoleApp) PackageDownloadURL() string {
	return a.client.PackageDownloadURL()
}

// ArchivedPackages lists the locally archived app packages, newest first.
// It returns nil when no archive is configured.
func (a *ConsoleApp) ArchivedPackages() ([]admin.ArchivedPackage, error) {
	if a.archive == nil {
		return nil, nil
	}
	return a.archive.List()
}

func (a *ConsoleApp) confirmedDelete(ctx context.Context, prompt, id string, confirm admin.Confirmer, del func(context.Context, string) error) (deleted bool, err error) {
	if err := a.requireSession(); err != nil {
		return false, err
	}
	ok, err := confirm.Confirm(ctx, prompt)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := a.persistOperation(map[string]any{"id": id}); err != nil {
		return false, err
	}
	defer a.settle(&err)

	if err := del(ctx, id); err != nil {
		return false, err
	}
	a.logger.Info("deleted", "operation", a.op.Name, "id", id)
	return true, nil
}
