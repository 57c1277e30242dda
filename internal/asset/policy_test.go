package asset_test

import (
	"errors"
	"testing"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/asset"
)

func TestPolicy_Check(t *testing.T) {
	tests := []struct {
		name       string
		policy     asset.Policy
		candidate  asset.Candidate
		wantReason admin.Reason
	}{
		{
			name:      "png under limit",
			policy:    asset.BannerImages(),
			candidate: asset.Candidate{Name: "a.png", MIMEType: "image/png", Size: 1024},
		},
		{
			name:      "exactly at limit",
			policy:    asset.ProductImages(),
			candidate: asset.Candidate{Name: "a.jpg", MIMEType: "image/jpeg", Size: asset.DefaultImageMaxBytes},
		},
		{
			name:       "one byte over limit",
			policy:     asset.BannerImages(),
			candidate:  asset.Candidate{Name: "big.png", MIMEType: "image/png", Size: asset.DefaultImageMaxBytes + 1},
			wantReason: admin.ReasonSize,
		},
		{
			name:       "pdf for images",
			policy:     asset.BannerImages(),
			candidate:  asset.Candidate{Name: "doc.pdf", MIMEType: "application/pdf", Size: 10},
			wantReason: admin.ReasonType,
		},
		{
			name:       "type checked before size",
			policy:     asset.BannerImages(),
			candidate:  asset.Candidate{Name: "doc.pdf", MIMEType: "application/pdf", Size: asset.DefaultImageMaxBytes * 2},
			wantReason: admin.ReasonType,
		},
		{
			name:       "missing type",
			policy:     asset.BannerImages(),
			candidate:  asset.Candidate{Name: "blob", Size: 10},
			wantReason: admin.ReasonType,
		},
		{
			name:      "mixed case type",
			policy:    asset.BannerImages(),
			candidate: asset.Candidate{Name: "a.webp", MIMEType: "Image/WEBP", Size: 10},
		},
		{
			name:      "android package",
			policy:    asset.AppPackage(),
			candidate: asset.Candidate{Name: "app.apk", MIMEType: asset.PackageMIMEType, Size: 50 * asset.MiB},
		},
		{
			name:       "zip is not a package",
			policy:     asset.AppPackage(),
			candidate:  asset.Candidate{Name: "app.zip", MIMEType: "application/zip", Size: 10},
			wantReason: admin.ReasonType,
		},
		{
			name:       "image is not a package",
			policy:     asset.AppPackage(),
			candidate:  asset.Candidate{Name: "a.png", MIMEType: "image/png", Size: 10},
			wantReason: admin.ReasonType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Check(tt.candidate)
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("Check() error = %v, want nil", err)
				}
				return
			}

			var verr *admin.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Check() error = %v, want *ValidationError", err)
			}
			if verr.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", verr.Reason, tt.wantReason)
			}
			if verr.File != tt.candidate.Name {
				t.Errorf("File = %q, want %q", verr.File, tt.candidate.Name)
			}
		})
	}
}

func TestPolicy_CheckCapacity(t *testing.T) {
	p := asset.AppPackage()
	c := asset.Candidate{Name: "app.apk", MIMEType: asset.PackageMIMEType, Size: 1}

	if err := p.CheckCapacity(c, 0); err != nil {
		t.Errorf("CheckCapacity(0) error = %v", err)
	}

	err := p.CheckCapacity(c, 1)
	var verr *admin.ValidationError
	if !errors.As(err, &verr) || verr.Reason != admin.ReasonCapacity {
		t.Errorf("CheckCapacity(1) error = %v, want capacity rejection", err)
	}

	unbounded := asset.Policy{Name: "any", AllowedPrefixes: []string{"image/"}}
	if err := unbounded.CheckCapacity(c, 1000); err != nil {
		t.Errorf("unbounded CheckCapacity() error = %v", err)
	}
}
