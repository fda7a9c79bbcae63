package curvature

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/felipeek/gimmesh/rimage"
	"github.com/felipeek/gimmesh/utils"
)

// BlurMode selects the smoothing used before estimating curvature.
type BlurMode int

const (
	// BlurRecursive smooths with the separable recursive filter, using SS only.
	BlurRecursive BlurMode = iota
	// BlurDistance smooths with the bilateral filter, using SS and SR.
	BlurDistance
)

func (m BlurMode) String() string {
	switch m {
	case BlurRecursive:
		return "recursive"
	case BlurDistance:
		return "distance"
	default:
		return fmt.Sprintf("BlurMode(%d)", int(m))
	}
}

// ParseBlurMode is the inverse of BlurMode.String.
func ParseBlurMode(s string) (BlurMode, error) {
	switch strings.ToLower(s) {
	case "recursive":
		return BlurRecursive, nil
	case "distance":
		return BlurDistance, nil
	default:
		return 0, errors.Errorf("unknown blur mode %q", s)
	}
}

// BlurInformation configures the optional smoothing applied to positions before curvature is estimated.
type BlurInformation struct {
	UseBlur  bool     `json:"use_blur" mapstructure:"use_blur"`
	BlurMode BlurMode `json:"blur_mode" mapstructure:"blur_mode"`
	SS       float64  `json:"ss" mapstructure:"ss"`
	SR       float64  `json:"sr" mapstructure:"sr"`
}

// Validate rejects unknown modes and non-finite factors of an enabled blur.
func (b *BlurInformation) Validate() error {
	if !b.UseBlur {
		return nil
	}
	if b.BlurMode != BlurRecursive && b.BlurMode != BlurDistance {
		return errors.Errorf("unknown blur mode %v", b.BlurMode)
	}
	if !utils.IsFinite(b.SS) || !utils.IsFinite(b.SR) {
		return errors.Errorf("blur factors must be finite, got ss=%v sr=%v", b.SS, b.SR)
	}
	return nil
}

// Apply returns img smoothed as configured, or img itself when blur is nil or disabled.
func (b *BlurInformation) Apply(img *rimage.FloatImage) *rimage.FloatImage {
	if b == nil || !b.UseBlur {
		return img
	}
	switch b.BlurMode {
	case BlurRecursive:
		return rimage.RecursiveFilter(img, b.SS)
	case BlurDistance:
		return rimage.BilateralFilter(img, b.SS, b.SR, nil)
	default:
		utils.ContractViolation("unknown blur mode %v", b.BlurMode)
		return nil
	}
}
