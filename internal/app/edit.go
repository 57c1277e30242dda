package app

import (
	"context"
	"fmt"
	"path/filepath"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/archive"
	"catalog-admin/internal/asset"
	"catalog-admin/internal/editor"
	"catalog-admin/internal/ledger"
	"catalog-admin/internal/submit"
)

// EditRequest describes one create or edit of a banner, product or app
// package, expressed the way the CLI collects it.
type EditRequest struct {
	ID     string // empty to create
	Fields []submit.Field

	// Files are staged in order. Primary indexes into Files; -1 leaves the
	// primary choice to the ledger.
	Files   []string
	Primary int

	// PrimaryExisting makes an already stored asset the primary.
	PrimaryExisting string

	// DeleteAssets are stored assets deleted eagerly, each after confirmation.
	DeleteAssets []string

	// KeepExisting overrides whether an update keeps stored assets. Nil uses
	// the entity's default.
	KeepExisting *bool
}

// EditResult reports what an edit session did.
type EditResult struct {
	ID       string
	Message  string
	Staged   int
	Rejected []*admin.ValidationError
	Deleted  []string
}

// SaveBanner creates or updates a banner.
func (a *ConsoleApp) SaveBanner(ctx context.Context, req EditRequest, confirm admin.Confirmer) (*EditResult, error) {
	kind := editor.NewBannerKind(a.client, a.policies.banner)
	return a.edit(ctx, kind, req, confirm)
}

// SaveProduct creates or updates a product.
func (a *ConsoleApp) SaveProduct(ctx context.Context, req EditRequest, confirm admin.Confirmer) (*EditResult, error) {
	kind := editor.NewProductKind(a.client, a.policies.product)
	return a.edit(ctx, kind, req, confirm)
}

// UploadPackage publishes a new app package. When an archive is configured
// the package is archived under its checksum before the upload.
func (a *ConsoleApp) UploadPackage(ctx context.Context, path, version string) (res *EditResult, err error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	c, err := asset.FromPath(path)
	if err != nil {
		return nil, err
	}
	if err := a.policies.pkg.Check(c); err != nil {
		return nil, err
	}

	if a.archive != nil {
		if err := a.archivePackage(c, version); err != nil {
			return nil, err
		}
	}

	req := EditRequest{Files: []string{path}, Primary: -1}
	if version != "" {
		req.Fields = []submit.Field{{Name: "version", Value: version}}
	}
	return a.edit(ctx, editor.NewPackageKind(a.policies.pkg), req, nil)
}

func (a *ConsoleApp) archivePackage(c asset.Candidate, version string) error {
	if err := a.archive.ValidateSetup(); err != nil {
		return fmt.Errorf("archive unavailable: %w", err)
	}

	r, err := c.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", c.Name, err)
	}
	sum, size, err := archive.Checksum(r)
	r.Close()
	if err != nil {
		return err
	}

	r, err = c.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", c.Name, err)
	}
	defer r.Close()

	pkg := admin.ArchivedPackage{
		Checksum:   sum,
		Version:    version,
		Name:       c.Name,
		Size:       size,
		ArchivedAt: a.clock.Now().UTC(),
	}
	if err := a.archive.Put(pkg, r); err != nil {
		return fmt.Errorf("archiving %s: %w", c.Name, err)
	}
	a.logger.Info("package archived", "name", c.Name, "version", version, "checksum", sum)
	return nil
}

// edit drives one editor session from open to submit.
func (a *ConsoleApp) edit(ctx context.Context, kind editor.Kind, req EditRequest, confirm admin.Confirmer) (res *EditResult, err error) {
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	if err := a.persistOperation(map[string]any{
		"id":     req.ID,
		"files":  len(req.Files),
		"delete": req.DeleteAssets,
	}); err != nil {
		return nil, err
	}
	defer a.settle(&err)

	ctrl := editor.New(kind, req.ID, a.client.Submitter(), a.previews, editor.WithLogger(a.logger))
	defer ctrl.Close()

	if err := ctrl.Open(ctx); err != nil {
		return nil, err
	}

	res = &EditResult{}
	for _, f := range req.Fields {
		if err := ctrl.SetField(f.Name, f.Value); err != nil {
			return res, err
		}
	}

	for _, id := range req.DeleteAssets {
		ok, err := ctrl.DeleteAsset(ctx, id, confirm)
		if err != nil {
			return res, err
		}
		if ok {
			res.Deleted = append(res.Deleted, id)
		}
	}

	// readable[j] is the req.Files index of candidates[j].
	var candidates []asset.Candidate
	var readable []int
	for i, path := range req.Files {
		c, err := asset.FromPath(path)
		if err != nil {
			res.Rejected = append(res.Rejected, &admin.ValidationError{
				File:   filepath.Base(path),
				Reason: admin.ReasonUnreadable,
				Detail: err.Error(),
			})
			continue
		}
		candidates = append(candidates, c)
		readable = append(readable, i)
	}

	primary := -1
	if len(candidates) > 0 {
		positions, rejected, err := ctrl.StageFiles(ctx, candidates)
		if err != nil {
			return res, err
		}
		res.Rejected = append(res.Rejected, rejected...)
		for j, pos := range positions {
			if readable[j] == req.Primary {
				primary = pos
			}
		}
	}
	res.Staged = len(ctrl.Staged())

	if req.Primary >= 0 {
		if req.Primary >= len(req.Files) {
			return res, fmt.Errorf("primary image %d out of range: %d files given", req.Primary, len(req.Files))
		}
		if primary < 0 {
			return res, fmt.Errorf("primary image %s was not staged", filepath.Base(req.Files[req.Primary]))
		}
		if err := ctrl.SetPrimary(ledger.Staged, primary); err != nil {
			return res, err
		}
	}
	if req.PrimaryExisting != "" {
		idx := -1
		for i, p := range ctrl.Snapshot().Persisted {
			if p.ID == req.PrimaryExisting {
				idx = i
				break
			}
		}
		if idx < 0 {
			return res, fmt.Errorf("%s has no image %s", kind.Name(), req.PrimaryExisting)
		}
		if err := ctrl.SetPrimary(ledger.Persisted, idx); err != nil {
			return res, err
		}
	}
	if req.KeepExisting != nil {
		if err := ctrl.SetKeepExisting(*req.KeepExisting); err != nil {
			return res, err
		}
	}

	if _, err := ctrl.Submit(ctx); err != nil {
		return res, err
	}
	res.ID = ctrl.ID()
	res.Message = ctrl.Message()
	a.logger.Info("entity saved", "kind", kind.Name(), "id", res.ID, "staged", res.Staged, "rejected", len(res.Rejected))
	return res, nil
}
