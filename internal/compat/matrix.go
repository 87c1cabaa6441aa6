// Package compat holds the red cell transfusion compatibility table.
package compat

import (
	"fmt"

	"bloodlink/pkg/types"
)

// receivesFrom is keyed by recipient type. Each entry lists the donor types
// that recipient may receive from. O- is the universal donor, AB+ the
// universal recipient.
var receivesFrom = map[types.BloodType][]types.BloodType{
	types.BloodTypeAPos:  {types.BloodTypeAPos, types.BloodTypeANeg, types.BloodTypeOPos, types.BloodTypeONeg},
	types.BloodTypeANeg:  {types.BloodTypeANeg, types.BloodTypeONeg},
	types.BloodTypeBPos:  {types.BloodTypeBPos, types.BloodTypeBNeg, types.BloodTypeOPos, types.BloodTypeONeg},
	types.BloodTypeBNeg:  {types.BloodTypeBNeg, types.BloodTypeONeg},
	types.BloodTypeABPos: types.AllBloodTypes(),
	types.BloodTypeABNeg: {types.BloodTypeABNeg, types.BloodTypeANeg, types.BloodTypeBNeg, types.BloodTypeONeg},
	types.BloodTypeOPos:  {types.BloodTypeOPos, types.BloodTypeONeg},
	types.BloodTypeONeg:  {types.BloodTypeONeg},
}

var standard = Matrix{receivesFrom: receivesFrom}

// Matrix answers donor/recipient compatibility questions. It is read-only
// once built.
type Matrix struct {
	receivesFrom map[types.BloodType][]types.BloodType
}

// Standard returns the standard ABO/Rh compatibility matrix.
func Standard() Matrix {
	return standard
}

// CompatibleDonors returns the donor types that can give to recipient. The
// returned slice is a copy.
func (m Matrix) CompatibleDonors(recipient types.BloodType) ([]types.BloodType, error) {
	if !recipient.Valid() {
		return nil, fmt.Errorf("recipient %q: %w", recipient, types.ErrInvalidBloodType)
	}

	donors := m.receivesFrom[recipient]
	out := make([]types.BloodType, len(donors))
	copy(out, donors)
	return out, nil
}

// CanDonate reports whether a donor of type donor may give to a recipient of
// type recipient.
func (m Matrix) CanDonate(donor, recipient types.BloodType) (bool, error) {
	if !donor.Valid() {
		return false, fmt.Errorf("donor %q: %w", donor, types.ErrInvalidBloodType)
	}

	donors, err := m.CompatibleDonors(recipient)
	if err != nil {
		return false, err
	}

	for _, t := range donors {
		if t == donor {
			return true, nil
		}
	}

	return false, nil
}
