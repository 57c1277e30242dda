package editor

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/asset"
	"catalog-admin/internal/ledger"
	"catalog-admin/internal/submit"
)

// Kind describes one editable entity type: its fields, its asset policy and
// the endpoints it is read from and written to.
type Kind interface {
	// Name is the lower-case entity name used in messages.
	Name() string
	Policy() asset.Policy
	// FileField is the multipart field staged files are sent under.
	FileField() string
	// NewDraft returns an empty draft for a create session.
	NewDraft() *submit.Draft
	// Fetch loads an existing entity. A nil draft means it does not exist.
	Fetch(ctx context.Context, id string) (*submit.Draft, []admin.PersistedAsset, error)
	// Assets says how an update treats persisted assets.
	Assets() AssetMode
	// Target returns the request line for a submission. An empty id means create.
	Target(id string, keep bool) (method, path string, query url.Values)
	// Validate checks required fields before anything is sent.
	Validate(d *submit.Draft, snap ledger.Snapshot, create bool) error
}

// AssetMode describes how an update treats the entity's persisted assets.
type AssetMode struct {
	// KeepByDefault is whether persisted assets survive an update when the
	// operator does not choose.
	KeepByDefault bool
	// KeepField sends the choice in the body as keepExistingImages. Kinds
	// without it express replacement through Target.
	KeepField bool
}

// AssetRemover is implemented by kinds whose backing API can delete a single
// persisted asset.
type AssetRemover interface {
	DeleteAsset(ctx context.Context, entityID, assetID string) error
}

// DraftError rejects a submission before it reaches the network.
type DraftError struct {
	Field   string
	Message string
}

func (e *DraftError) Error() string { return e.Message }

func blank(d *submit.Draft, name string) bool {
	return strings.TrimSpace(d.Text(name)) == ""
}

// BannerSource reads banners and deletes single banner images.
type BannerSource interface {
	Banner(ctx context.Context, id string) (*admin.Banner, error)
	DeleteBannerImage(ctx context.Context, bannerID, imageID string) error
}

// BannerFields are the banner draft fields in submission order.
var BannerFields = []string{"title", "description", "isActive", "order"}

// BannerKind edits promotional banners.
type BannerKind struct {
	source BannerSource
	policy asset.Policy
}

var (
	_ Kind         = (*BannerKind)(nil)
	_ AssetRemover = (*BannerKind)(nil)
)

// NewBannerKind creates a BannerKind enforcing policy.
func NewBannerKind(source BannerSource, policy asset.Policy) *BannerKind {
	return &BannerKind{source: source, policy: policy}
}

func (k *BannerKind) Name() string         { return "banner" }
func (k *BannerKind) Policy() asset.Policy { return k.policy }
func (k *BannerKind) FileField() string    { return submit.DefaultFileField }

func (k *BannerKind) NewDraft() *submit.Draft {
	d := submit.NewDraft(BannerFields...)
	d.Set("isActive", true)
	d.Set("order", 0)
	return d
}

func (k *BannerKind) Fetch(ctx context.Context, id string) (*submit.Draft, []admin.PersistedAsset, error) {
	b, err := k.source.Banner(ctx, id)
	if err != nil || b == nil {
		return nil, nil, err
	}
	d := submit.NewDraft(BannerFields...)
	d.Set("title", b.Title)
	d.Set("description", b.Description)
	d.Set("isActive", b.IsActive)
	d.Set("order", b.Order)
	return d, b.Images, nil
}

// Assets reports that new banner images replace the stored ones unless the
// operator asks to keep them.
func (k *BannerKind) Assets() AssetMode { return AssetMode{KeepField: true} }

func (k *BannerKind) Target(id string, _ bool) (string, string, url.Values) {
	if id == "" {
		return http.MethodPost, "/banners", nil
	}
	return http.MethodPut, "/banners/" + url.PathEscape(id), nil
}

func (k *BannerKind) Validate(d *submit.Draft, snap ledger.Snapshot, create bool) error {
	if blank(d, "title") {
		return &DraftError{Field: "title", Message: "Title is required"}
	}
	if create && len(snap.Staged) == 0 {
		return &DraftError{Field: "images", Message: "At least one banner image is required"}
	}
	return nil
}

func (k *BannerKind) DeleteAsset(ctx context.Context, bannerID, imageID string) error {
	return k.source.DeleteBannerImage(ctx, bannerID, imageID)
}

// ProductSource reads products.
type ProductSource interface {
	Product(ctx context.Context, id string) (*admin.Product, error)
}

// ProductFields are the product draft fields in submission order.
var ProductFields = []string{
	"name", "description", "mrp", "dmartPrice", "weight", "brand", "category",
	"isVeg", "tags", "stockQuantity", "featured", "rating", "reviewsCount", "badge",
}

var productRequired = []string{"name", "description", "mrp", "dmartPrice"}

// ProductKind edits catalog products. The backing API cannot delete a single
// product image, so it does not implement AssetRemover.
type ProductKind struct {
	source ProductSource
	policy asset.Policy
}

var _ Kind = (*ProductKind)(nil)

// NewProductKind creates a ProductKind enforcing policy.
func NewProductKind(source ProductSource, policy asset.Policy) *ProductKind {
	return &ProductKind{source: source, policy: policy}
}

func (k *ProductKind) Name() string         { return "product" }
func (k *ProductKind) Policy() asset.Policy { return k.policy }
func (k *ProductKind) FileField() string    { return submit.DefaultFileField }

func (k *ProductKind) NewDraft() *submit.Draft {
	return submit.NewDraft(ProductFields...)
}

func (k *ProductKind) Fetch(ctx context.Context, id string) (*submit.Draft, []admin.PersistedAsset, error) {
	p, err := k.source.Product(ctx, id)
	if err != nil || p == nil {
		return nil, nil, err
	}
	d := submit.NewDraft(ProductFields...)
	d.Set("name", p.Name)
	d.Set("description", p.Description)
	d.Set("mrp", p.MRP)
	d.Set("dmartPrice", p.DmartPrice)
	d.Set("weight", p.Weight)
	d.Set("brand", p.Brand)
	d.Set("category", p.Category)
	d.Set("isVeg", p.IsVeg)
	d.Set("tags", p.Tags)
	d.Set("stockQuantity", p.StockQuantity)
	d.Set("featured", p.Featured)
	d.Set("rating", p.Rating)
	d.Set("reviewsCount", p.ReviewsCount)
	d.Set("badge", p.Badge)
	return d, p.Images, nil
}

func (k *ProductKind) Assets() AssetMode { return AssetMode{KeepByDefault: true} }

func (k *ProductKind) Target(id string, keep bool) (string, string, url.Values) {
	if id == "" {
		return http.MethodPost, "/admin/products", nil
	}
	var query url.Values
	if !keep {
		query = url.Values{"replaceImages": {"true"}}
	}
	return http.MethodPut, "/admin/products/" + url.PathEscape(id), query
}

func (k *ProductKind) Validate(d *submit.Draft, _ ledger.Snapshot, _ bool) error {
	for _, name := range productRequired {
		if blank(d, name) {
			return &DraftError{Field: name, Message: "Please fill in all required fields"}
		}
	}
	return nil
}

// PackageKind uploads the installable app package. It only supports create
// sessions; every upload replaces the published package.
type PackageKind struct {
	policy asset.Policy
}

var _ Kind = (*PackageKind)(nil)

// NewPackageKind creates a PackageKind enforcing policy.
func NewPackageKind(policy asset.Policy) *PackageKind {
	return &PackageKind{policy: policy}
}

func (k *PackageKind) Name() string         { return "app package" }
func (k *PackageKind) Policy() asset.Policy { return k.policy }
func (k *PackageKind) FileField() string    { return "apk" }

func (k *PackageKind) NewDraft() *submit.Draft {
	return submit.NewDraft("version")
}

func (k *PackageKind) Fetch(context.Context, string) (*submit.Draft, []admin.PersistedAsset, error) {
	return nil, nil, admin.ErrUnsupported
}

func (k *PackageKind) Assets() AssetMode { return AssetMode{} }

func (k *PackageKind) Target(string, bool) (string, string, url.Values) {
	return http.MethodPost, "/apk/upload", nil
}

func (k *PackageKind) Validate(_ *submit.Draft, snap ledger.Snapshot, _ bool) error {
	if len(snap.Staged) != 1 {
		return &DraftError{Field: "apk", Message: "Select one APK file to upload"}
	}
	return nil
}
