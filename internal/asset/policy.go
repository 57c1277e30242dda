package asset

import (
	"fmt"
	"strings"

	"catalog-admin/internal/admin"
)

const (
	// MiB is one mebibyte.
	MiB int64 = 1024 * 1024

	// DefaultImageMaxBytes is the per-file ceiling for banner and product images.
	DefaultImageMaxBytes = 5 * MiB

	// DefaultPackageMaxBytes is the per-file ceiling for the app package.
	DefaultPackageMaxBytes = 200 * MiB

	// DefaultBannerMaxImages bounds the staged images of one banner.
	DefaultBannerMaxImages = 10

	// DefaultProductMaxImages bounds the staged images of one product.
	DefaultProductMaxImages = 5

	// PackageMIMEType is the only type the app package uploader accepts.
	PackageMIMEType = "application/vnd.android.package-archive"
)

// Policy is the validation rule set for one upload context.
type Policy struct {
	Name string

	// AllowedPrefixes match the start of the declared MIME type ("image/").
	AllowedPrefixes []string
	// AllowedTypes match the declared MIME type exactly.
	AllowedTypes []string

	MaxBytes  int64
	MaxStaged int
}

// BannerImages is the policy for banner images.
func BannerImages() Policy {
	return Policy{
		Name:            "banner",
		AllowedPrefixes: []string{"image/"},
		MaxBytes:        DefaultImageMaxBytes,
		MaxStaged:       DefaultBannerMaxImages,
	}
}

// ProductImages is the policy for product images.
func ProductImages() Policy {
	return Policy{
		Name:            "product",
		AllowedPrefixes: []string{"image/"},
		MaxBytes:        DefaultImageMaxBytes,
		MaxStaged:       DefaultProductMaxImages,
	}
}

// AppPackage is the policy for the installable app package.
func AppPackage() Policy {
	return Policy{
		Name:         "package",
		AllowedTypes: []string{PackageMIMEType},
		MaxBytes:     DefaultPackageMaxBytes,
		MaxStaged:    1,
	}
}

// Check applies the per-file rules in order: MIME type first, then size.
// It returns nil to accept, or a *admin.ValidationError naming the file.
func (p Policy) Check(c Candidate) error {
	if !p.allowsType(c.MIMEType) {
		return &admin.ValidationError{
			File:   c.Name,
			Reason: admin.ReasonType,
			Detail: fmt.Sprintf("type %q is not allowed for %s uploads", c.MIMEType, p.Name),
		}
	}
	if p.MaxBytes > 0 && c.Size > p.MaxBytes {
		return &admin.ValidationError{
			File:   c.Name,
			Reason: admin.ReasonSize,
			Detail: fmt.Sprintf("%d bytes exceeds the %d byte limit", c.Size, p.MaxBytes),
		}
	}
	return nil
}

// CheckCapacity rejects c when current staged entries already fill the policy's bound.
func (p Policy) CheckCapacity(c Candidate, current int) error {
	if p.MaxStaged > 0 && current >= p.MaxStaged {
		return &admin.ValidationError{
			File:   c.Name,
			Reason: admin.ReasonCapacity,
			Detail: fmt.Sprintf("at most %d files can be staged for %s uploads", p.MaxStaged, p.Name),
		}
	}
	return nil
}

func (p Policy) allowsType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		return false
	}
	for _, t := range p.AllowedTypes {
		if mimeType == t {
			return true
		}
	}
	for _, prefix := range p.AllowedPrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}
