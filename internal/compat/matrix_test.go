package compat

import (
	"testing"

	"bloodlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Rows are donors, columns are recipients, in types.AllBloodTypes order:
// A+ A- B+ B- AB+ AB- O+ O-
var expected = map[types.BloodType][8]bool{
	types.BloodTypeAPos:  {true, false, false, false, true, false, false, false},
	types.BloodTypeANeg:  {true, true, false, false, true, true, false, false},
	types.BloodTypeBPos:  {false, false, true, false, true, false, false, false},
	types.BloodTypeBNeg:  {false, false, true, true, true, true, false, false},
	types.BloodTypeABPos: {false, false, false, false, true, false, false, false},
	types.BloodTypeABNeg: {false, false, false, false, true, true, false, false},
	types.BloodTypeOPos:  {true, false, true, false, true, false, true, false},
	types.BloodTypeONeg:  {true, true, true, true, true, true, true, true},
}

func TestCanDonateAllPairs(t *testing.T) {
	m := Standard()
	all := types.AllBloodTypes()

	checked := 0
	for _, donor := range all {
		for j, recipient := range all {
			ok, err := m.CanDonate(donor, recipient)
			require.NoError(t, err)
			assert.Equal(t, expected[donor][j], ok, "donor %s -> recipient %s", donor, recipient)
			checked++
		}
	}

	assert.Equal(t, 64, checked)
}

func TestUniversalDonorAndRecipient(t *testing.T) {
	m := Standard()

	donors, err := m.CompatibleDonors(types.BloodTypeABPos)
	require.NoError(t, err)
	assert.ElementsMatch(t, types.AllBloodTypes(), donors)

	donors, err = m.CompatibleDonors(types.BloodTypeONeg)
	require.NoError(t, err)
	assert.Equal(t, []types.BloodType{types.BloodTypeONeg}, donors)
}

func TestCompatibleDonorsReturnsCopy(t *testing.T) {
	m := Standard()

	donors, err := m.CompatibleDonors(types.BloodTypeANeg)
	require.NoError(t, err)
	donors[0] = types.BloodTypeABPos

	again, err := m.CompatibleDonors(types.BloodTypeANeg)
	require.NoError(t, err)
	assert.Equal(t, []types.BloodType{types.BloodTypeANeg, types.BloodTypeONeg}, again)
}

func TestInvalidBloodType(t *testing.T) {
	m := Standard()

	_, err := m.CompatibleDonors("C+")
	assert.ErrorIs(t, err, types.ErrInvalidBloodType)

	_, err = m.CanDonate("", types.BloodTypeAPos)
	assert.ErrorIs(t, err, types.ErrInvalidBloodType)

	_, err = m.CanDonate(types.BloodTypeAPos, "a+")
	assert.ErrorIs(t, err, types.ErrInvalidBloodType)
}
